package health

import (
	"context"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alekl79/peachtree-bank-poc/internal/config"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
)

const ServiceName = "peachtree.transactions"

type Pinger interface {
	Ping(ctx context.Context) error
}

// Server reports SERVING while the transaction store answers pings.
type Server struct {
	cfg      *config.Config
	lg       *logging.ZapLogger
	srv      *grpc.Server
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	cancel   context.CancelFunc
}

func (s *Server) Start(lis net.Listener) {
	healthpb.RegisterHealthServer(s.srv, s.health)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.check(ctx)
	go s.watch(ctx)
	go func() {
		if err := s.srv.Serve(lis); err != nil {
			s.lg.ErrorCtx(ctx, "health server stopped with error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Server) check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	pctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if err := s.pinger.Ping(pctx); err != nil {
		s.lg.WarnCtx(ctx, "transaction store ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func NewServer(pinger Pinger, lc fx.Lifecycle, cfg *config.Config, lg *logging.ZapLogger) *Server {
	srv := newServer(pinger, cfg, lg)

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				lis, err := net.Listen("tcp", cfg.HealthGRPCAddress)
				if err != nil {
					return err
				}

				lg.InfoCtx(ctx, "start serving grpc health checks", zap.String("address", cfg.HealthGRPCAddress))
				srv.Start(lis)

				return nil
			},
			OnStop: func(ctx context.Context) error {
				srv.Stop()
				return nil
			},
		},
	)

	return srv
}

func newServer(pinger Pinger, cfg *config.Config, lg *logging.ZapLogger) *Server {
	return &Server{
		cfg:      cfg,
		lg:       lg,
		srv:      grpc.NewServer(),
		health:   health.NewServer(),
		pinger:   pinger,
		interval: 5 * time.Second,
	}
}
