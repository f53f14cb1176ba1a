package main

import (
	main_config "github.com/alekl79/peachtree-bank-poc/internal/config"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/repositories"
	"github.com/alekl79/peachtree-bank-poc/internal/storage"
	"github.com/alekl79/peachtree-bank-poc/internal/transaction_outbox"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		CreateApp(main_config.MustNewConfig(), transaction_outbox.MustNewConfig()),
		fx.WithLogger(logging.NewFxLogger),
	).Run()
}

func CreateApp(cfg *main_config.Config, outboxCfg *transaction_outbox.Config) fx.Option {
	return fx.Options(
		fx.Provide(
			logging.NewZapLogger,
			logging.NewKafkaErrorLogger,
			logging.NewKafkaLogger,
			storage.NewStorage,

			transaction_outbox.NewDaemon,
			fx.Annotate(transaction_outbox.NewKafkaPublisher, fx.As(new(transaction_outbox.Publisher))),
			fx.Annotate(repositories.NewOutboxEventsRepository, fx.As(new(transaction_outbox.OutboxEventsRepository))),
		),
		fx.Supply(cfg, outboxCfg),
		fx.Invoke(startDaemon),
	)
}

func startDaemon(*transaction_outbox.Daemon) {}
