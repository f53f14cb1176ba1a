// Package lifecycle governs how a transaction's state, version and state
// timestamp change after creation.
//
// States form an unordered set: any state may follow any other, and setting
// the current state again is a legal transition that is still counted.
//
// Advance keeps last-writer-wins semantics: concurrent calls on one id are
// all applied and each adds exactly one to Version, the final State is the
// one written last. AdvanceIfVersion treats Version as an optimistic
// concurrency token and fails with models.ErrVersionConflict instead of
// overwriting a newer write. Both run as a single conditional update in the
// store.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

var ErrInvalidState = errors.New("invalid transaction state")

type StateStore interface {
	UpdateState(ctx context.Context, in *models.StateUpdate) (*models.Transaction, error)
}

type Controller struct {
	store StateStore
	lg    *logging.ZapLogger
	now   func() time.Time
}

func NewController(store StateStore, lg *logging.ZapLogger) *Controller {
	return &Controller{
		store: store,
		lg:    lg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (c *Controller) Advance(ctx context.Context, id uuid.UUID, state models.TransactionState) (*models.Transaction, error) {
	return c.advance(ctx, id, state, nil)
}

func (c *Controller) AdvanceIfVersion(
	ctx context.Context,
	id uuid.UUID,
	state models.TransactionState,
	expectedVersion int,
) (*models.Transaction, error) {
	return c.advance(ctx, id, state, &expectedVersion)
}

func (c *Controller) advance(
	ctx context.Context,
	id uuid.UUID,
	state models.TransactionState,
	expectedVersion *int,
) (*models.Transaction, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	t, err := c.store.UpdateState(ctx, &models.StateUpdate{
		ID:              id,
		State:           state,
		At:              c.now(),
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		if errors.Is(err, models.ErrTransactionNotFound) || errors.Is(err, models.ErrVersionConflict) {
			return nil, err
		}

		return nil, fmt.Errorf("lifecycle/controller: update state error %w", err)
	}

	c.lg.InfoCtx(
		ctx,
		"transaction state advanced",
		zap.String("transaction_id", t.ID.String()),
		zap.Stringer("state", t.State),
		zap.Int("version", t.Version),
	)

	return t, nil
}
