package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
)

type HealthHandler struct {
	lg     *logging.ZapLogger
	pinger Pinger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewHealthHandler(pinger Pinger, lg *logging.ZapLogger) *HealthHandler {
	return &HealthHandler{pinger: pinger, lg: lg}
}

func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	if err := h.pinger.Ping(c.UserContext()); err != nil {
		h.lg.ErrorCtx(c.UserContext(), "health check failed", zap.Error(err))

		return c.Status(fiber.StatusServiceUnavailable).SendString("Unhealthy")
	}

	return c.SendString("Healthy")
}
