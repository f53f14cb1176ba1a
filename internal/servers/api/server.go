package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/config"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
)

type Server struct {
	app *fiber.App
	cfg *config.Config
	lg  *logging.ZapLogger
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.app.Listen(s.cfg.HTTPAddress); err != nil {
			s.lg.ErrorCtx(ctx, "http server stopped with error", zap.Error(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func NewServer(app *fiber.App, lc fx.Lifecycle, cfg *config.Config, lg *logging.ZapLogger) *Server {
	srv := &Server{app: app, cfg: cfg, lg: lg}

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				lg.InfoCtx(ctx, "start serving transactions api", zap.String("address", cfg.HTTPAddress))

				return srv.Start(context.Background())
			},
			OnStop: func(ctx context.Context) error {
				return srv.Stop(ctx)
			},
		},
	)

	return srv
}
