package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alekl79/peachtree-bank-poc/internal/lifecycle"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/query"
	"github.com/alekl79/peachtree-bank-poc/internal/repositories"
	"github.com/alekl79/peachtree-bank-poc/internal/validation"
)

func newService(t *testing.T, repo TransactionsRepository) *TransferService {
	t.Helper()

	gate, err := validation.NewGate()
	require.NoError(t, err)

	lg := logging.NewNopLogger()

	var states StateController
	if store, ok := repo.(lifecycle.StateStore); ok {
		states = lifecycle.NewController(store, lg)
	}

	return NewTransferService(repo, gate, query.NewPlanner(100), states, lg)
}

func candidate(from, to string, amount float64) *models.TransactionCandidate {
	return &models.TransactionCandidate{FromAccount: from, ToAccount: to, Amount: amount}
}

func TestCreateAssignsServerFields(t *testing.T) {
	repo := repositories.NewMemoryTransactionsRepository()
	svc := newService(t, repo)

	in := candidate("Alice", "Bob", -42.5)
	in.State = models.TransactionStateReceived

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, uuid.Version(7), created.ID.Version())
	assert.False(t, created.Created.IsZero())
	assert.Equal(t, 0, created.Version)
	assert.Nil(t, created.LastStateUpdate)
	assert.Equal(t, models.TransactionStateReceived, created.State)
	assert.Equal(t, -42.5, created.Amount)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestCreateRejectsInvalidCandidate(t *testing.T) {
	repo := repositories.NewMemoryTransactionsRepository()
	svc := newService(t, repo)

	_, err := svc.Create(context.Background(), candidate("A", "Bob", 1))

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "FromAccount", verr.Violations[0].Field)

	_, err = svc.Query(context.Background(), query.Spec{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestBulkCreateIsAllOrNothing(t *testing.T) {
	repo := repositories.NewMemoryTransactionsRepository()
	svc := newService(t, repo)

	_, err := svc.BulkCreate(context.Background(), []*models.TransactionCandidate{
		candidate("Alice", "Bob", 1),
		candidate("", "Bob", 2),
		candidate("Carol", "Dave", 3),
	})

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Violations)
	assert.Equal(t, 1, verr.Violations[0].Index)

	_, err = svc.Query(context.Background(), query.Spec{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestBulkCreateStoresEveryCandidate(t *testing.T) {
	repo := repositories.NewMemoryTransactionsRepository()
	svc := newService(t, repo)

	created, err := svc.BulkCreate(context.Background(), []*models.TransactionCandidate{
		candidate("Alice", "Bob", 1),
		candidate("Carol", "Dave", 2),
		candidate("Erin", "Frank", 3),
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	seen := map[uuid.UUID]bool{}
	for _, c := range created {
		assert.Equal(t, 0, c.Version)
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
	}

	result, err := svc.Query(context.Background(), query.Spec{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 1, result.TotalPages)
}

func TestBulkCreateEmptyBatch(t *testing.T) {
	svc := newService(t, repositories.NewMemoryTransactionsRepository())

	created, err := svc.BulkCreate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestGetUnknownID(t *testing.T) {
	svc := newService(t, repositories.NewMemoryTransactionsRepository())

	got, err := svc.Get(context.Background(), uuid.Must(uuid.NewV7()))
	assert.Nil(t, got)
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
}

func TestQuery(t *testing.T) {
	repo := repositories.NewMemoryTransactionsRepository()
	svc := newService(t, repo)
	ctx := context.Background()

	_, err := svc.BulkCreate(ctx, []*models.TransactionCandidate{
		candidate("ACME Corp", "Bob", 3.25),
		candidate("Alice", "Acme-East", -5),
		candidate("Globex", "Initech", 0),
		candidate("acme labs", "Initech", -100),
	})
	require.NoError(t, err)

	t.Run("filter and sort by amount", func(t *testing.T) {
		result, err := svc.Query(ctx, query.Spec{SearchText: "ACME", SortBy: "amount", Page: 1, PageSize: 2})
		require.NoError(t, err)

		assert.Equal(t, 3, result.TotalCount)
		assert.Equal(t, 2, result.TotalPages)
		require.Len(t, result.Items, 2)
		assert.Equal(t, -100.0, result.Items[0].Amount)
		assert.Equal(t, -5.0, result.Items[1].Amount)

		second, err := svc.Query(ctx, query.Spec{SearchText: "ACME", SortBy: "amount", Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, second.Items, 1)
		assert.Equal(t, 3.25, second.Items[0].Amount)
	})

	t.Run("page past the end is not empty signal", func(t *testing.T) {
		result, err := svc.Query(ctx, query.Spec{Page: 9, PageSize: 2})
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Equal(t, 4, result.TotalCount)
	})

	t.Run("no match is empty signal", func(t *testing.T) {
		_, err := svc.Query(ctx, query.Spec{SearchText: "umbrella", Page: 1, PageSize: 2})
		assert.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("unknown sort field", func(t *testing.T) {
		_, err := svc.Query(ctx, query.Spec{SortBy: "balance", Page: 1, PageSize: 2})
		assert.ErrorIs(t, err, query.ErrUnknownSortField)
	})

	t.Run("invalid page", func(t *testing.T) {
		_, err := svc.Query(ctx, query.Spec{Page: 0, PageSize: 2})
		assert.ErrorIs(t, err, query.ErrInvalidQuery)
	})

	t.Run("repeated query is identical", func(t *testing.T) {
		spec := query.Spec{SortBy: "ToAccount", SortDirection: "desc", Page: 1, PageSize: 4}

		first, err := svc.Query(ctx, spec)
		require.NoError(t, err)
		second, err := svc.Query(ctx, spec)
		require.NoError(t, err)

		assert.Equal(t, first.Items, second.Items)
	})
}

func TestAdvanceStateThroughService(t *testing.T) {
	repo := repositories.NewMemoryTransactionsRepository()
	svc := newService(t, repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, candidate("Alice", "Bob", 1))
	require.NoError(t, err)
	require.Equal(t, models.TransactionStateSend, created.State)

	paid, err := svc.AdvanceState(ctx, created.ID, models.TransactionStatePaid)
	require.NoError(t, err)
	assert.Equal(t, 1, paid.Version)
	assert.Equal(t, models.TransactionStatePaid, paid.State)
	assert.NotNil(t, paid.LastStateUpdate)

	again, err := svc.AdvanceState(ctx, created.ID, models.TransactionStatePaid)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version)

	_, err = svc.AdvanceStateIfVersion(ctx, created.ID, models.TransactionStateSend, 1)
	assert.ErrorIs(t, err, models.ErrVersionConflict)

	_, err = svc.AdvanceState(ctx, uuid.Must(uuid.NewV7()), models.TransactionStatePaid)
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
}

type brokenRepository struct {
	err error
}

func (r brokenRepository) Find(context.Context, uuid.UUID) (*models.Transaction, error) {
	return nil, r.err
}

func (r brokenRepository) Create(context.Context, *models.Transaction) error { return r.err }

func (r brokenRepository) CreateBatch(context.Context, []*models.Transaction) error { return r.err }

func (r brokenRepository) Search(context.Context, *query.Plan) ([]*models.Transaction, int, error) {
	return nil, 0, r.err
}

func TestStorageFaultsAreNotMasked(t *testing.T) {
	fault := errors.New("connection refused")
	svc := newService(t, brokenRepository{err: fault})
	ctx := context.Background()

	_, err := svc.Get(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, fault)
	assert.NotErrorIs(t, err, models.ErrTransactionNotFound)

	_, err = svc.Create(ctx, candidate("Alice", "Bob", 1))
	assert.ErrorIs(t, err, fault)

	_, err = svc.BulkCreate(ctx, []*models.TransactionCandidate{candidate("Alice", "Bob", 1)})
	assert.ErrorIs(t, err, fault)

	_, err = svc.Query(ctx, query.Spec{Page: 1, PageSize: 1})
	assert.ErrorIs(t, err, fault)
	assert.NotErrorIs(t, err, ErrEmptyResult)
}

func TestQueryPaginationCoversEveryTransaction(t *testing.T) {
	repo := repositories.NewMemoryTransactionsRepository()
	svc := newService(t, repo)
	ctx := context.Background()

	var candidates []*models.TransactionCandidate
	for i := 0; i < 17; i++ {
		candidates = append(candidates, candidate(fmt.Sprintf("acc-%d", i%3), "to", float64(i%5)))
	}
	_, err := svc.BulkCreate(ctx, candidates)
	require.NoError(t, err)

	seen := map[uuid.UUID]int{}
	var last *models.Transaction
	for page := 1; page <= 4; page++ {
		result, err := svc.Query(ctx, query.Spec{SortBy: "Amount", Page: page, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, 4, result.TotalPages)

		for _, item := range result.Items {
			seen[item.ID]++
			if last != nil {
				assert.LessOrEqual(t, last.Amount, item.Amount)
			}
			last = item
		}
	}

	assert.Len(t, seen, 17)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
}
