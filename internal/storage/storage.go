package storage

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"

	"github.com/alekl79/peachtree-bank-poc/internal/config"
)

type Storage struct {
	DB *pgxpool.Pool
}

func NewStorage(lc fx.Lifecycle, cfg *config.Config) (*Storage, error) {
	strg, err := New(context.Background(), cfg.DatabaseDSN, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, err
	}

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := strg.DB.Ping(ctx); err != nil {
					return fmt.Errorf("storage: ping error %w", err)
				}

				return strg.RunMigration()
			},
			OnStop: func(ctx context.Context) error {
				strg.DB.Close()
				return nil
			},
		},
	)

	return strg, nil
}

// New opens a pool without connecting; the first query or Ping dials.
func New(ctx context.Context, dsn string, maxConns int) (*Storage, error) {
	dbcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse dsn error %w", err)
	}

	if maxConns > 0 {
		dbcfg.MaxConns = int32(maxConns)
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, dbcfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool error %w", err)
	}

	return &Storage{DB: dbpool}, nil
}

//go:embed migrations/*.sql
var embedMigrations embed.FS

func (s *Storage) RunMigration() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect(string(goose.DialectPostgres)); err != nil {
		return err
	}

	return goose.Up(stdlib.OpenDBFromPool(s.DB), "migrations")
}
