package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/storage"
)

type OutboxEventsRepository struct {
	strg OutboxEventsStorage
	lg   *logging.ZapLogger
}

type OutboxEventsStorage interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

func NewOutboxEventsRepository(strg *storage.Storage, lg *logging.ZapLogger) *OutboxEventsRepository {
	return &OutboxEventsRepository{strg: strg.DB, lg: lg}
}

// SaveTX stores an event inside the caller's transaction.
func (rep *OutboxEventsRepository) SaveTX(ctx context.Context, tx pgx.Tx, in *models.TransactionEvent) error {
	if _, err := tx.Exec(
		ctx,
		`
			INSERT INTO outbox_events(uuid, state, name, message, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
		in.UUID, in.State, in.Name, in.Meta, in.CreatedAt,
	); err != nil {
		return fmt.Errorf("outbox_events_repository: save event error %w", err)
	}

	return nil
}

// ReserveEvent picks the oldest publishable event and marks it processing.
// Failed events are retried until maxAttempts is reached. Returns nil when
// there is nothing to publish.
func (rep *OutboxEventsRepository) ReserveEvent(ctx context.Context, maxAttempts int) (*models.TransactionEvent, error) {
	tx, err := rep.strg.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("outbox_events_repository: create tx error %w", err)
	}
	defer tx.Rollback(ctx)

	e := &models.TransactionEvent{Meta: &models.TransactionEventMeta{}}
	row := tx.QueryRow(
		ctx,
		`
			SELECT uuid, name, message, created_at
			FROM outbox_events
			WHERE state = $1 OR (state = $2 AND attempts < $3)
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		`,
		models.TransactionEventNewState, models.TransactionEventFailedState, maxAttempts)

	if err := row.Scan(&e.UUID, &e.Name, e.Meta, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("outbox_events_repository: scan attributes error %w", err)
	}

	if _, err := tx.Exec(
		ctx,
		`
			UPDATE outbox_events
			SET state = $1, attempts = attempts + 1
			WHERE uuid = $2
		`,
		models.TransactionEventProcessingState, e.UUID,
	); err != nil {
		return nil, fmt.Errorf("outbox_events_repository: reserve event error %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("outbox_events_repository: commit tx error %w", err)
	}

	e.State = models.TransactionEventProcessingState

	return e, nil
}

func (rep *OutboxEventsRepository) SetState(ctx context.Context, id uuid.UUID, newState string) error {
	tx, err := rep.strg.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("outbox_events_repository: create tx error %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`
			UPDATE outbox_events
			SET state = $1
			WHERE uuid = $2
		`,
		newState, id); err != nil {
		return fmt.Errorf("outbox_events_repository: set state error %w", err)
	}

	return tx.Commit(ctx)
}
