package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

type CreateTransactionHandler struct {
	lg           *logging.ZapLogger
	transactions TransactionCreator
}

type TransactionCreator interface {
	Create(ctx context.Context, candidate *models.TransactionCandidate) (*models.Transaction, error)
	BulkCreate(ctx context.Context, candidates []*models.TransactionCandidate) ([]*models.Transaction, error)
}

func NewCreateTransactionHandler(transactions TransactionCreator, lg *logging.ZapLogger) *CreateTransactionHandler {
	return &CreateTransactionHandler{transactions: transactions, lg: lg}
}

func (h *CreateTransactionHandler) Create(c *fiber.Ctx) error {
	candidate := &models.TransactionCandidate{}
	if err := c.BodyParser(candidate); err != nil {
		return BadRequest(c, "invalid_body", "request body must be a transaction object")
	}

	t, err := h.transactions.Create(c.UserContext(), candidate)
	if err != nil {
		return RespondError(c, h.lg, err)
	}

	c.Location(location(t))

	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *CreateTransactionHandler) Bulk(c *fiber.Ctx) error {
	var candidates []*models.TransactionCandidate
	if err := c.BodyParser(&candidates); err != nil {
		return BadRequest(c, "invalid_body", "request body must be an array of transactions")
	}

	created, err := h.transactions.BulkCreate(c.UserContext(), candidates)
	if err != nil {
		return RespondError(c, h.lg, err)
	}

	locations := make([]string, 0, len(created))
	for _, t := range created {
		locations = append(locations, location(t))
	}

	if len(locations) > 0 {
		c.Location(strings.Join(locations, ","))
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func location(t *models.Transaction) string {
	return fmt.Sprintf("/api/transactions/%s", t.ID)
}
