package repositories

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/query"
)

// MemoryTransactionsRepository keeps transactions in process memory. It backs
// the memory storage driver and tests; it publishes no outbox events.
type MemoryTransactionsRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]models.Transaction
}

func NewMemoryTransactionsRepository() *MemoryTransactionsRepository {
	return &MemoryTransactionsRepository{items: map[uuid.UUID]models.Transaction{}}
}

func (rep *MemoryTransactionsRepository) Find(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	rep.mu.RLock()
	defer rep.mu.RUnlock()

	t, ok := rep.items[id]
	if !ok {
		return nil, models.ErrTransactionNotFound
	}

	return clone(t), nil
}

func (rep *MemoryTransactionsRepository) Create(ctx context.Context, in *models.Transaction) error {
	return rep.CreateBatch(ctx, []*models.Transaction{in})
}

func (rep *MemoryTransactionsRepository) CreateBatch(_ context.Context, in []*models.Transaction) error {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	for _, t := range in {
		if _, ok := rep.items[t.ID]; ok {
			return ErrDuplicateID
		}
	}

	for _, t := range in {
		rep.items[t.ID] = *clone(*t)
	}

	return nil
}

func (rep *MemoryTransactionsRepository) Search(_ context.Context, plan *query.Plan) ([]*models.Transaction, int, error) {
	rep.mu.RLock()
	snapshot := make([]*models.Transaction, 0, len(rep.items))
	for _, t := range rep.items {
		snapshot = append(snapshot, clone(t))
	}
	rep.mu.RUnlock()

	items, total := query.Apply(snapshot, plan)

	return items, total, nil
}

// UpdateState performs the compare and the write under one lock.
func (rep *MemoryTransactionsRepository) UpdateState(_ context.Context, in *models.StateUpdate) (*models.Transaction, error) {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	t, ok := rep.items[in.ID]
	if !ok {
		return nil, models.ErrTransactionNotFound
	}

	if in.ExpectedVersion != nil && *in.ExpectedVersion != t.Version {
		return nil, models.ErrVersionConflict
	}

	at := in.At
	t.State = in.State
	t.LastStateUpdate = &at
	t.Version++
	rep.items[in.ID] = t

	return clone(t), nil
}

func (rep *MemoryTransactionsRepository) Ping(context.Context) error {
	return nil
}

func clone(t models.Transaction) *models.Transaction {
	if t.LastStateUpdate != nil {
		at := *t.LastStateUpdate
		t.LastStateUpdate = &at
	}

	return &t
}
