//go:build integration

package repositories

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/query"
	"github.com/alekl79/peachtree-bank-poc/internal/storage"
)

func setupStorage(t *testing.T) *storage.Storage {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("peachtree_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	strg, err := storage.New(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(strg.DB.Close)

	require.NoError(t, strg.RunMigration())

	return strg
}

func newPgTransaction(t *testing.T, from, to string, amount float64, created time.Time) *models.Transaction {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	return &models.Transaction{
		ID:          id,
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Created:     created.UTC().Truncate(time.Microsecond),
		State:       models.TransactionStateSend,
	}
}

func TestIntegration_TransactionsRepository(t *testing.T) {
	strg := setupStorage(t)
	lg := logging.NewNopLogger()
	events := NewOutboxEventsRepository(strg, lg)
	repo := NewTransactionsRepository(strg, events, lg)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	batch := []*models.Transaction{
		newPgTransaction(t, "ACME Corp", "Bob", 3.25, base),
		newPgTransaction(t, "Carol", "Acme-East", -5, base.Add(time.Minute)),
		newPgTransaction(t, "Dave", "Erin", 250, base.Add(2*time.Minute)),
		newPgTransaction(t, "acme labs", "Frank", -100, base.Add(3*time.Minute)),
		newPgTransaction(t, "50%_off", "Grace", 1, base.Add(4*time.Minute)),
	}
	require.NoError(t, repo.CreateBatch(ctx, batch))

	t.Run("find round trip", func(t *testing.T) {
		got, err := repo.Find(ctx, batch[0].ID)
		require.NoError(t, err)

		assert.Equal(t, batch[0].ID, got.ID)
		assert.Equal(t, "ACME Corp", got.FromAccount)
		assert.Equal(t, 3.25, got.Amount)
		assert.True(t, batch[0].Created.Equal(got.Created))
		assert.Nil(t, got.LastStateUpdate)
		assert.Equal(t, 0, got.Version)
	})

	t.Run("find unknown", func(t *testing.T) {
		_, err := repo.Find(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	})

	t.Run("duplicate id rolls back the batch", func(t *testing.T) {
		fresh := newPgTransaction(t, "Heidi", "Ivan", 7, base)
		err := repo.CreateBatch(ctx, []*models.Transaction{fresh, batch[0]})
		require.ErrorIs(t, err, ErrDuplicateID)

		_, err = repo.Find(ctx, fresh.ID)
		assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	})

	planner := query.NewPlanner(100)

	t.Run("search matches the in-memory semantics", func(t *testing.T) {
		specs := []query.Spec{
			{Page: 1, PageSize: 10},
			{SearchText: "acme", SortBy: "amount", SortDirection: "desc", Page: 1, PageSize: 2},
			{SearchText: "ACME", SortBy: "fromAccount", Page: 1, PageSize: 10},
			{SearchText: "%_", Page: 1, PageSize: 10},
			{SortBy: "toAccount", SortDirection: "desc", Page: 2, PageSize: 2},
			{Page: 9, PageSize: 2},
			{Page: math.MaxInt, PageSize: 2},
		}

		for _, spec := range specs {
			plan, err := planner.Plan(spec)
			require.NoError(t, err)

			items, total, err := repo.Search(ctx, plan)
			require.NoError(t, err)

			wantItems, wantTotal := query.Apply(batch, plan)
			assert.Equal(t, wantTotal, total, "%+v", spec)
			require.Len(t, items, len(wantItems), "%+v", spec)
			for i := range wantItems {
				assert.Equal(t, wantItems[i].ID, items[i].ID, "%+v position %d", spec, i)
			}
		}
	})

	t.Run("conditional state update", func(t *testing.T) {
		target := batch[2]
		at := base.Add(time.Hour)

		updated, err := repo.UpdateState(ctx, &models.StateUpdate{ID: target.ID, State: models.TransactionStatePaid, At: at})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Version)
		assert.Equal(t, models.TransactionStatePaid, updated.State)
		require.NotNil(t, updated.LastStateUpdate)
		assert.True(t, at.Equal(*updated.LastStateUpdate))
		assert.Equal(t, target.FromAccount, updated.FromAccount)

		stale := 0
		_, err = repo.UpdateState(ctx, &models.StateUpdate{ID: target.ID, State: models.TransactionStateSend, At: at, ExpectedVersion: &stale})
		assert.ErrorIs(t, err, models.ErrVersionConflict)

		current := 1
		updated, err = repo.UpdateState(ctx, &models.StateUpdate{ID: target.ID, State: models.TransactionStateSend, At: at, ExpectedVersion: &current})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		_, err = repo.UpdateState(ctx, &models.StateUpdate{ID: uuid.New(), State: models.TransactionStatePaid, At: at, ExpectedVersion: &current})
		assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	})

	t.Run("outbox events are reserved once", func(t *testing.T) {
		seen := map[uuid.UUID]bool{}

		for {
			e, err := events.ReserveEvent(ctx, 3)
			require.NoError(t, err)
			if e == nil {
				break
			}

			assert.False(t, seen[e.UUID])
			seen[e.UUID] = true
			require.NoError(t, events.SetState(ctx, e.UUID, models.TransactionEventFinishedState))
		}

		// five creates plus two accepted state updates
		assert.Len(t, seen, 7)
	})

	t.Run("failed events are retried until max attempts", func(t *testing.T) {
		_, err := repo.UpdateState(ctx, &models.StateUpdate{ID: batch[1].ID, State: models.TransactionStateReceived, At: base})
		require.NoError(t, err)

		for attempt := 1; attempt <= 2; attempt++ {
			e, err := events.ReserveEvent(ctx, 2)
			require.NoError(t, err)
			require.NotNil(t, e, "attempt %d", attempt)
			assert.Equal(t, batch[1].ID, e.Meta.TransactionID)
			require.NoError(t, events.SetState(ctx, e.UUID, models.TransactionEventFailedState))
		}

		e, err := events.ReserveEvent(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, e)
	})
}

func TestIntegration_IdempotencyKeysRepository(t *testing.T) {
	repo := NewIdempotencyKeysRepository(setupStorage(t))
	ctx := context.Background()

	got, err := repo.Find(ctx, "POST /api/transactions k1")
	require.NoError(t, err)
	assert.Nil(t, got)

	first := &models.IdempotentResponse{
		Key:         "POST /api/transactions k1",
		RequestHash: "9f86d081",
		Status:      201,
		Location:    "/api/transactions/0190a2f4-7f3c-7d1e-9c43-5b5d1c1f2e3a",
		Body:        []byte(`{"a":1}`),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, &models.IdempotentResponse{Key: first.Key, Status: 400, Body: []byte(`[]`), CreatedAt: time.Now().UTC()}))

	got, err = repo.Find(ctx, first.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.Status)
	assert.Equal(t, first.Body, got.Body)
	assert.Equal(t, first.RequestHash, got.RequestHash)
	assert.Equal(t, first.Location, got.Location)
}
