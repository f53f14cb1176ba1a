package transaction_outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

type Daemon struct {
	lg           *logging.ZapLogger
	pollInterval time.Duration
	workersCount int64
	cfg          *Config

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	events    OutboxEventsRepository
	publisher Publisher
}

type OutboxEventsRepository interface {
	ReserveEvent(ctx context.Context, maxAttempts int) (*models.TransactionEvent, error)
	SetState(ctx context.Context, id uuid.UUID, newState string) error
}

type Publisher interface {
	Publish(ctx context.Context, e *models.TransactionEvent) error
}

func NewDaemon(
	lc fx.Lifecycle,
	events OutboxEventsRepository,
	publisher Publisher,
	lg *logging.ZapLogger,
	cfg *Config,
) *Daemon {
	dmn := &Daemon{
		lg:           lg,
		pollInterval: time.Duration(cfg.PollInterval) * time.Millisecond,
		workersCount: cfg.WorkersCount,
		cfg:          cfg,
		events:       events,
		publisher:    publisher,
	}

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				dmn.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				dmn.Stop()
				return nil
			},
		},
	)

	return dmn
}

func (dmn *Daemon) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	dmn.cancel = cancel
	ctx = dmn.lg.WithContextFields(ctx, zap.String("name", "transaction_outbox_daemon"))

	dmn.lg.DebugCtx(ctx, "start publishing transaction events", zap.Any("config", dmn.cfg))

	for i := 0; i < int(dmn.workersCount); i++ {
		wctx := dmn.lg.WithContextFields(ctx, zap.Int("worker_id", i))

		dmn.wg.Add(1)
		go func() {
			defer dmn.wg.Done()

			ticker := time.NewTicker(dmn.pollInterval)
			defer ticker.Stop()

			for {
				select {
				case <-wctx.Done():
					dmn.lg.DebugCtx(wctx, "daemon worker graceful shutdown")
					return
				case <-ticker.C:
					if err := dmn.processEvent(wctx); err != nil {
						dmn.lg.ErrorCtx(wctx, "process event finished error", zap.Error(err))
					}
				}
			}
		}()
	}
}

func (dmn *Daemon) Stop() {
	if dmn.cancel != nil {
		dmn.cancel()
	}

	dmn.wg.Wait()
}

func (dmn *Daemon) processEvent(ctx context.Context) error {
	e, err := dmn.events.ReserveEvent(ctx, dmn.cfg.MaxAttempts)
	if err != nil {
		return fmt.Errorf("reserve unpublished event error %w", err)
	}

	if e == nil {
		return nil
	}

	ctx = dmn.lg.WithContextFields(ctx, zap.String("event_uuid", e.UUID.String()), zap.String("event_name", e.Name))

	// a cancelled worker still records the outcome of the reserved event
	stateCtx := context.WithoutCancel(ctx)

	if err := dmn.publisher.Publish(ctx, e); err != nil {
		if err := dmn.events.SetState(stateCtx, e.UUID, models.TransactionEventFailedState); err != nil {
			return fmt.Errorf("set failed event state error %w", err)
		}

		return fmt.Errorf("publish event error %w", err)
	}

	if err := dmn.events.SetState(stateCtx, e.UUID, models.TransactionEventFinishedState); err != nil {
		return fmt.Errorf("set finished event state error %w", err)
	}

	dmn.lg.DebugCtx(ctx, "event published")

	return nil
}
