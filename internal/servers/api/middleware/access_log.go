package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
)

// AccessLog binds the request id to the request context so every log line
// written while serving it carries the id.
func AccessLog(lg *logging.ZapLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		ctx := lg.WithContextFields(
			c.UserContext(),
			zap.String("request_id", requestID(c)),
		)
		c.SetUserContext(ctx)

		err := c.Next()
		if err != nil {
			// let the app error handler write the response before we read the status
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		lg.InfoCtx(
			ctx,
			"request served",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)

		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}

	return c.Get(fiber.HeaderXRequestID)
}
