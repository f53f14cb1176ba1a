package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/lifecycle"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/query"
	"github.com/alekl79/peachtree-bank-poc/internal/validation"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func BadRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Code:    code,
		Title:   "Bad Request",
		Message: message,
	})
}

// RespondError maps domain errors to status codes. Anything unknown is a
// server fault: it is logged and answered with a generic body.
func RespondError(c *fiber.Ctx, lg *logging.ZapLogger, err error) error {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		return c.Status(http.StatusBadRequest).JSON(verr.Violations)
	case errors.Is(err, query.ErrInvalidQuery):
		return BadRequest(c, "invalid_query", err.Error())
	case errors.Is(err, lifecycle.ErrInvalidState):
		return BadRequest(c, "invalid_state", err.Error())
	case errors.Is(err, models.ErrTransactionNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    "transaction_not_found",
			Title:   "Not Found",
			Message: "transaction not found",
		})
	case errors.Is(err, models.ErrVersionConflict):
		return c.Status(http.StatusConflict).JSON(ErrorResponse{
			Code:    "version_conflict",
			Title:   "Conflict",
			Message: "transaction was modified by another request",
		})
	default:
		lg.ErrorCtx(c.UserContext(), "request failed", zap.Error(err), zap.String("path", c.Path()))

		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    "internal_error",
			Title:   "Internal Server Error",
			Message: "the request could not be completed",
		})
	}
}
