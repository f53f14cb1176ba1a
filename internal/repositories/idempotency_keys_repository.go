package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/storage"
)

type IdempotencyKeysRepository struct {
	strg IdempotencyKeysStorage
}

type IdempotencyKeysStorage interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

func NewIdempotencyKeysRepository(strg *storage.Storage) *IdempotencyKeysRepository {
	return &IdempotencyKeysRepository{strg: strg.DB}
}

// Find returns nil when the key has not been seen yet.
func (rep *IdempotencyKeysRepository) Find(ctx context.Context, key string) (*models.IdempotentResponse, error) {
	resp := &models.IdempotentResponse{Key: key}

	if err := rep.strg.QueryRow(
		ctx,
		`
			SELECT request_hash, response_status, location, response_body, created_at
			FROM idempotency_keys
			WHERE key_id = $1
		`,
		key,
	).Scan(&resp.RequestHash, &resp.Status, &resp.Location, &resp.Body, &resp.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("idempotency_keys_repository: find key error %w", err)
	}

	return resp, nil
}

// Save keeps the first stored response for a key.
func (rep *IdempotencyKeysRepository) Save(ctx context.Context, in *models.IdempotentResponse) error {
	if _, err := rep.strg.Exec(
		ctx,
		`
			INSERT INTO idempotency_keys(key_id, request_hash, response_status, location, response_body, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT DO NOTHING
		`,
		in.Key, in.RequestHash, in.Status, in.Location, in.Body, in.CreatedAt,
	); err != nil {
		return fmt.Errorf("idempotency_keys_repository: save key error %w", err)
	}

	return nil
}

type MemoryIdempotencyKeysRepository struct {
	mu        sync.Mutex
	responses map[string]models.IdempotentResponse
}

func NewMemoryIdempotencyKeysRepository() *MemoryIdempotencyKeysRepository {
	return &MemoryIdempotencyKeysRepository{responses: map[string]models.IdempotentResponse{}}
}

func (rep *MemoryIdempotencyKeysRepository) Find(_ context.Context, key string) (*models.IdempotentResponse, error) {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	resp, ok := rep.responses[key]
	if !ok {
		return nil, nil
	}

	resp.Body = append([]byte(nil), resp.Body...)

	return &resp, nil
}

func (rep *MemoryIdempotencyKeysRepository) Save(_ context.Context, in *models.IdempotentResponse) error {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	if _, ok := rep.responses[in.Key]; ok {
		return nil
	}

	stored := *in
	stored.Body = append([]byte(nil), in.Body...)
	rep.responses[in.Key] = stored

	return nil
}
