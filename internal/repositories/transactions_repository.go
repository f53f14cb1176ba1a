package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/query"
	"github.com/alekl79/peachtree-bank-poc/internal/storage"
)

const uniqueViolationCode = "23505"

const transactionColumns = `id, from_account, to_account, amount, created, state, last_state_update, version`

type TransactionsRepository struct {
	strg   TransactionsStorage
	events *OutboxEventsRepository
	lg     *logging.ZapLogger
}

type TransactionsStorage interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

func NewTransactionsRepository(strg *storage.Storage, events *OutboxEventsRepository, lg *logging.ZapLogger) *TransactionsRepository {
	return &TransactionsRepository{strg: strg.DB, events: events, lg: lg}
}

func (rep *TransactionsRepository) Find(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := rep.strg.QueryRow(
		ctx,
		`SELECT `+transactionColumns+`
			FROM transactions
			WHERE id = $1`,
		id,
	)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}

		return nil, fmt.Errorf("transactions_repository: find transaction error %w", err)
	}

	return t, nil
}

func (rep *TransactionsRepository) Create(ctx context.Context, in *models.Transaction) error {
	return rep.CreateBatch(ctx, []*models.Transaction{in})
}

// CreateBatch inserts every transaction and its outbox event in one database
// transaction, so either all of them become visible or none do.
func (rep *TransactionsRepository) CreateBatch(ctx context.Context, in []*models.Transaction) error {
	tx, err := rep.strg.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("transactions_repository: create tx error %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range in {
		if _, err := tx.Exec(
			ctx,
			`
				INSERT INTO transactions(`+transactionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`,
			t.ID, t.FromAccount, t.ToAccount, t.Amount, t.Created, int16(t.State), t.LastStateUpdate, t.Version,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
				return fmt.Errorf("transactions_repository: insert transaction %s error %w", t.ID, ErrDuplicateID)
			}

			return fmt.Errorf("transactions_repository: insert transaction error %w", err)
		}

		if err := rep.saveEventTX(ctx, tx, models.TransactionCreatedEventName, t, t.Created); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("transactions_repository: commit tx error %w", err)
	}

	rep.lg.DebugCtx(ctx, "transactions created", zap.Int("count", len(in)))

	return nil
}

// Search counts the filtered set and reads one page of it from the same
// snapshot.
func (rep *TransactionsRepository) Search(ctx context.Context, plan *query.Plan) ([]*models.Transaction, int, error) {
	tx, err := rep.strg.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, fmt.Errorf("transactions_repository: create tx error %w", err)
	}
	defer tx.Rollback(ctx)

	where := `WHERE $1::text = '' OR strpos(lower(from_account), $1) > 0 OR strpos(lower(to_account), $1) > 0`

	var total int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM transactions `+where, plan.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("transactions_repository: count transactions error %w", err)
	}

	if total == 0 {
		return []*models.Transaction{}, 0, tx.Commit(ctx)
	}

	// ORDER BY is rendered from the closed field set only, never from input.
	rows, err := tx.Query(
		ctx,
		`SELECT `+transactionColumns+`
			FROM transactions
			`+where+`
			ORDER BY `+plan.OrderBy()+`
			LIMIT $2 OFFSET $3`,
		plan.Search, plan.Limit(), plan.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("transactions_repository: query transactions error %w", err)
	}
	defer rows.Close()

	items := []*models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("transactions_repository: scan transactions error %w", err)
		}

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("transactions_repository: iterate transactions error %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("transactions_repository: commit tx error %w", err)
	}

	return items, total, nil
}

// UpdateState applies a state update as a single conditional UPDATE. When an
// expected version is given the row is only touched if it still carries it.
func (rep *TransactionsRepository) UpdateState(ctx context.Context, in *models.StateUpdate) (*models.Transaction, error) {
	tx, err := rep.strg.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("transactions_repository: create tx error %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(
		ctx,
		`
			UPDATE transactions
			SET state = $1, last_state_update = $2, version = version + 1
			WHERE id = $3 AND ($4::integer IS NULL OR version = $4)
			RETURNING `+transactionColumns,
		int16(in.State), in.At, in.ID, in.ExpectedVersion,
	)

	t, err := scanTransaction(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transactions_repository: update state error %w", err)
		}

		return nil, rep.missedUpdateReason(ctx, tx, in)
	}

	if err := rep.saveEventTX(ctx, tx, models.TransactionStateUpdatedEventName, t, in.At); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transactions_repository: commit tx error %w", err)
	}

	return t, nil
}

func (rep *TransactionsRepository) Ping(ctx context.Context) error {
	return rep.strg.Ping(ctx)
}

func (rep *TransactionsRepository) missedUpdateReason(ctx context.Context, tx pgx.Tx, in *models.StateUpdate) error {
	if in.ExpectedVersion == nil {
		return models.ErrTransactionNotFound
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, in.ID).Scan(&exists); err != nil {
		return fmt.Errorf("transactions_repository: check transaction error %w", err)
	}

	if exists {
		return models.ErrVersionConflict
	}

	return models.ErrTransactionNotFound
}

func (rep *TransactionsRepository) saveEventTX(ctx context.Context, tx pgx.Tx, name string, t *models.Transaction, at time.Time) error {
	e, err := models.NewTransactionEvent(name, t, at)
	if err != nil {
		return fmt.Errorf("transactions_repository: build event error %w", err)
	}

	return rep.events.SaveTX(ctx, tx, e)
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		t     models.Transaction
		state int16
	)

	if err := row.Scan(
		&t.ID,
		&t.FromAccount,
		&t.ToAccount,
		&t.Amount,
		&t.Created,
		&state,
		&t.LastStateUpdate,
		&t.Version,
	); err != nil {
		return nil, err
	}

	t.State = models.TransactionState(state)

	return &t, nil
}
