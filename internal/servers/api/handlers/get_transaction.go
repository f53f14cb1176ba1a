package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

type GetTransactionHandler struct {
	lg           *logging.ZapLogger
	transactions TransactionFinder
}

type TransactionFinder interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

func NewGetTransactionHandler(transactions TransactionFinder, lg *logging.ZapLogger) *GetTransactionHandler {
	return &GetTransactionHandler{transactions: transactions, lg: lg}
}

func (h *GetTransactionHandler) Handle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "invalid_id", "transaction id must be a UUID")
	}

	t, err := h.transactions.Get(c.UserContext(), id)
	if err != nil {
		return RespondError(c, h.lg, err)
	}

	return c.JSON(t)
}
