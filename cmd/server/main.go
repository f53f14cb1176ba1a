package main

import (
	main_config "github.com/alekl79/peachtree-bank-poc/internal/config"
	"github.com/alekl79/peachtree-bank-poc/internal/lifecycle"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/query"
	"github.com/alekl79/peachtree-bank-poc/internal/repositories"
	"github.com/alekl79/peachtree-bank-poc/internal/servers/api"
	"github.com/alekl79/peachtree-bank-poc/internal/servers/api/handlers"
	"github.com/alekl79/peachtree-bank-poc/internal/servers/api/middleware"
	"github.com/alekl79/peachtree-bank-poc/internal/servers/health"
	"github.com/alekl79/peachtree-bank-poc/internal/service"
	"github.com/alekl79/peachtree-bank-poc/internal/storage"
	"github.com/alekl79/peachtree-bank-poc/internal/validation"
	"go.uber.org/fx"
)

func main() {
	fx.New(CreateApp(main_config.MustNewConfig()), fx.WithLogger(logging.NewFxLogger)).Run()
}

func CreateApp(cfg *main_config.Config) fx.Option {
	return fx.Options(
		fx.Provide(
			logging.NewZapLogger,

			func(cfg *main_config.Config) *query.Planner { return query.NewPlanner(cfg.MaxPageSize) },
			fx.Annotate(validation.NewGate, fx.As(new(service.Validator))),
			fx.Annotate(lifecycle.NewController, fx.As(new(service.StateController))),
			fx.Annotate(
				service.NewTransferService,
				fx.As(new(handlers.TransactionFinder)),
				fx.As(new(handlers.TransactionSearcher)),
				fx.As(new(handlers.TransactionCreator)),
				fx.As(new(handlers.StateAdvancer)),
			),

			// HTTP API
			api.NewServer,
			api.NewRouter,
			api.NewHandlers,
			handlers.NewGetTransactionHandler,
			handlers.NewQueryTransactionsHandler,
			handlers.NewCreateTransactionHandler,
			handlers.NewUpdateStateHandler,
			handlers.NewHealthHandler,

			// GRPC health
			health.NewServer,
		),
		storageOptions(cfg),
		fx.Supply(cfg),
		fx.Invoke(
			startAPIServer,
			startHealthServer,
		),
	)
}

func storageOptions(cfg *main_config.Config) fx.Option {
	if cfg.StorageDriver == main_config.StorageDriverMemory {
		return fx.Provide(
			fx.Annotate(
				repositories.NewMemoryTransactionsRepository,
				fx.As(new(service.TransactionsRepository)),
				fx.As(new(lifecycle.StateStore)),
				fx.As(new(handlers.Pinger)),
				fx.As(new(health.Pinger)),
			),
			fx.Annotate(repositories.NewMemoryIdempotencyKeysRepository, fx.As(new(middleware.IdempotencyRepository))),
		)
	}

	return fx.Provide(
		storage.NewStorage,
		repositories.NewOutboxEventsRepository,
		fx.Annotate(
			repositories.NewTransactionsRepository,
			fx.As(new(service.TransactionsRepository)),
			fx.As(new(lifecycle.StateStore)),
			fx.As(new(handlers.Pinger)),
			fx.As(new(health.Pinger)),
		),
		fx.Annotate(repositories.NewIdempotencyKeysRepository, fx.As(new(middleware.IdempotencyRepository))),
	)
}

func startAPIServer(*api.Server)       {}
func startHealthServer(*health.Server) {}
