package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

type UpdateStateHandler struct {
	lg           *logging.ZapLogger
	transactions StateAdvancer
}

type StateAdvancer interface {
	AdvanceState(ctx context.Context, id uuid.UUID, state models.TransactionState) (*models.Transaction, error)
	AdvanceStateIfVersion(ctx context.Context, id uuid.UUID, state models.TransactionState, expectedVersion int) (*models.Transaction, error)
}

func NewUpdateStateHandler(transactions StateAdvancer, lg *logging.ZapLogger) *UpdateStateHandler {
	return &UpdateStateHandler{transactions: transactions, lg: lg}
}

// Handle applies the state unconditionally unless an If-Match header carries
// the version the caller last saw.
func (h *UpdateStateHandler) Handle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "invalid_id", "transaction id must be a UUID")
	}

	state, err := models.ParseTransactionState(c.Params("state"))
	if err != nil {
		return BadRequest(c, "invalid_state", err.Error())
	}

	ctx := c.UserContext()

	if raw := c.Get(fiber.HeaderIfMatch); raw != "" {
		version, err := parseVersionTag(raw)
		if err != nil {
			return BadRequest(c, "invalid_if_match", "If-Match must carry an integer version")
		}

		t, err := h.transactions.AdvanceStateIfVersion(ctx, id, state, version)
		if err != nil {
			return RespondError(c, h.lg, err)
		}

		c.Set(fiber.HeaderETag, strconv.Itoa(t.Version))

		return c.SendStatus(fiber.StatusNoContent)
	}

	t, err := h.transactions.AdvanceState(ctx, id, state)
	if err != nil {
		return RespondError(c, h.lg, err)
	}

	c.Set(fiber.HeaderETag, strconv.Itoa(t.Version))

	return c.SendStatus(fiber.StatusNoContent)
}

// parseVersionTag accepts 3, "3" and W/"3".
func parseVersionTag(raw string) (int, error) {
	tag := strings.TrimPrefix(strings.TrimSpace(raw), "W/")
	tag = strings.Trim(tag, `"`)

	return strconv.Atoi(tag)
}
