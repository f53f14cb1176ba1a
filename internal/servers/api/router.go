package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/config"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/servers/api/handlers"
	"github.com/alekl79/peachtree-bank-poc/internal/servers/api/middleware"
)

type Handlers struct {
	Get         *handlers.GetTransactionHandler
	Query       *handlers.QueryTransactionsHandler
	Create      *handlers.CreateTransactionHandler
	UpdateState *handlers.UpdateStateHandler
	Health      *handlers.HealthHandler
}

func NewHandlers(
	get *handlers.GetTransactionHandler,
	query *handlers.QueryTransactionsHandler,
	create *handlers.CreateTransactionHandler,
	updateState *handlers.UpdateStateHandler,
	health *handlers.HealthHandler,
) *Handlers {
	return &Handlers{
		Get:         get,
		Query:       query,
		Create:      create,
		UpdateState: updateState,
		Health:      health,
	}
}

func NewRouter(
	cfg *config.Config,
	lg *logging.ZapLogger,
	h *Handlers,
	idempotency middleware.IdempotencyRepository,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "peachtree-bank",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(lg),
	})

	app.Use(
		recover.New(),
		requestid.New(),
		middleware.AccessLog(lg),
		cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowHeaders:  "Origin, Content-Type, Accept, Authorization, If-Match, Idempotency-Key",
			AllowMethods:  "GET, POST, PUT, OPTIONS",
			ExposeHeaders: "Location, ETag",
		}),
	)

	app.Get("/hc", h.Health.Handle)

	api := app.Group("/api")
	if cfg.AuthEnabled() {
		api.Use(middleware.Auth(cfg, lg))
	}

	transactions := api.Group("/transactions")
	transactions.Get("/:page/:pageSize", h.Query.Handle)
	transactions.Get("/:id", h.Get.Handle)
	transactions.Post("/", middleware.Idempotency(idempotency, lg), h.Create.Create)
	transactions.Post("/bulk", middleware.Idempotency(idempotency, lg), h.Create.Bulk)
	transactions.Put("/:id/state/:state", h.UpdateState.Handle)

	return app
}

func errorHandler(lg *logging.ZapLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			code = ferr.Code
		}

		if code >= fiber.StatusInternalServerError {
			lg.ErrorCtx(c.UserContext(), "unhandled request error", zap.Error(err))

			return c.Status(code).JSON(handlers.ErrorResponse{
				Code:    "internal_error",
				Title:   "Internal Server Error",
				Message: "the request could not be completed",
			})
		}

		return c.Status(code).JSON(handlers.ErrorResponse{
			Code:    "request_error",
			Title:   utils.StatusMessage(code),
			Message: err.Error(),
		})
	}
}
