package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/query"
)

// ErrEmptyResult signals that no stored transaction matches a query at all,
// as opposed to a page past the end of a non-empty result.
var ErrEmptyResult = errors.New("no transactions match the query")

type TransactionsRepository interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Create(ctx context.Context, in *models.Transaction) error
	CreateBatch(ctx context.Context, in []*models.Transaction) error
	Search(ctx context.Context, plan *query.Plan) ([]*models.Transaction, int, error)
}

type Validator interface {
	Validate(candidate *models.TransactionCandidate) error
	ValidateAll(candidates []*models.TransactionCandidate) error
}

type StateController interface {
	Advance(ctx context.Context, id uuid.UUID, state models.TransactionState) (*models.Transaction, error)
	AdvanceIfVersion(ctx context.Context, id uuid.UUID, state models.TransactionState, expectedVersion int) (*models.Transaction, error)
}

type TransferService struct {
	repo      TransactionsRepository
	validator Validator
	planner   *query.Planner
	lifecycle StateController
	lg        *logging.ZapLogger
	now       func() time.Time
}

func NewTransferService(
	repo TransactionsRepository,
	validator Validator,
	planner *query.Planner,
	lifecycle StateController,
	lg *logging.ZapLogger,
) *TransferService {
	return &TransferService{
		repo:      repo,
		validator: validator,
		planner:   planner,
		lifecycle: lifecycle,
		lg:        lg,
		// Postgres keeps microseconds, trimming here keeps the returned
		// record equal to the stored one.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *TransferService) Create(ctx context.Context, candidate *models.TransactionCandidate) (*models.Transaction, error) {
	if err := s.validator.Validate(candidate); err != nil {
		return nil, err
	}

	t, err := s.newTransaction(candidate)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("transfer_service: create transaction error %w", err)
	}

	s.lg.InfoCtx(ctx, "transaction created", zap.String("transaction_id", t.ID.String()))

	return t, nil
}

// BulkCreate validates every candidate before anything is written and stores
// the whole batch in one storage transaction.
func (s *TransferService) BulkCreate(ctx context.Context, candidates []*models.TransactionCandidate) ([]*models.Transaction, error) {
	if err := s.validator.ValidateAll(candidates); err != nil {
		return nil, err
	}

	created := make([]*models.Transaction, 0, len(candidates))
	for _, c := range candidates {
		t, err := s.newTransaction(c)
		if err != nil {
			return nil, err
		}

		created = append(created, t)
	}

	if len(created) == 0 {
		return created, nil
	}

	if err := s.repo.CreateBatch(ctx, created); err != nil {
		return nil, fmt.Errorf("transfer_service: create transactions batch error %w", err)
	}

	s.lg.InfoCtx(ctx, "transactions batch created", zap.Int("count", len(created)))

	return created, nil
}

func (s *TransferService) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	t, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrTransactionNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("transfer_service: find transaction error %w", err)
	}

	return t, nil
}

func (s *TransferService) Query(ctx context.Context, spec query.Spec) (*query.Result, error) {
	plan, err := s.planner.Plan(spec)
	if err != nil {
		return nil, err
	}

	items, total, err := s.repo.Search(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("transfer_service: search transactions error %w", err)
	}

	if total == 0 {
		return nil, ErrEmptyResult
	}

	return query.NewResult(items, total, plan), nil
}

func (s *TransferService) AdvanceState(ctx context.Context, id uuid.UUID, state models.TransactionState) (*models.Transaction, error) {
	return s.lifecycle.Advance(ctx, id, state)
}

// AdvanceStateIfVersion fails with models.ErrVersionConflict when the stored
// version differs from expectedVersion.
func (s *TransferService) AdvanceStateIfVersion(
	ctx context.Context,
	id uuid.UUID,
	state models.TransactionState,
	expectedVersion int,
) (*models.Transaction, error) {
	return s.lifecycle.AdvanceIfVersion(ctx, id, state, expectedVersion)
}

func (s *TransferService) newTransaction(c *models.TransactionCandidate) (*models.Transaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("transfer_service: generate id error %w", err)
	}

	return &models.Transaction{
		ID:          id,
		FromAccount: c.FromAccount,
		ToAccount:   c.ToAccount,
		Amount:      c.Amount,
		Created:     s.now(),
		State:       c.State,
		Version:     0,
	}, nil
}
