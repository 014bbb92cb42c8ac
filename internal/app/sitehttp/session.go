package sitehttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourname/staticserve/internal/config"
	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/internal/metrics"
	"github.com/yourname/staticserve/internal/models"
	"github.com/yourname/staticserve/internal/reload"
	"github.com/yourname/staticserve/internal/usecase/deploysvc"
)

const readHeaderTimeout = 10 * time.Second

// Session — одна сессия обслуживания поверх снимка конфигурации.
type Session struct {
	Config  *config.Config
	Metrics *metrics.Collector
	Logger  *slog.Logger
	// Listener, если задан, используется вместо net.Listen(Config.Addr).
	Listener net.Listener
}

// Run обслуживает запросы, пока сессия не остановится. Restart возвращается, только
// если остановку вызвал запрос перезагрузки, а ctx при этом жив.
func (s Session) Run(ctx context.Context) (reload.Decision, error) {
	cfg := s.Config
	log := logger.OrDiscard(s.Logger)

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return reload.Stop, fmt.Errorf("%w: %w", models.ErrIO, err)
	}

	sig := reload.NewSignal()
	defer sig.Close()

	deploys := deploysvc.New(deploysvc.Deps{
		Dir:      cfg.Dir,
		Reloader: sig,
		Metrics:  s.Metrics,
		Logger:   log.With(logger.Component("deploy")),
		MaxBytes: cfg.MaxUpload.Int64(),
	})

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: New(Deps{
			Config:  cfg,
			Deploys: deploys,
			Metrics: s.Metrics,
			Logger:  log,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	ln := s.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", cfg.Addr); err != nil {
			return reload.Stop, err
		}
	}
	defer ln.Close()

	grace := cfg.ShutdownTimeout
	if grace <= 0 {
		grace = config.DefaultShutdownTimeout
	}
	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	session, end := context.WithCancel(ctx)
	defer end()

	g, gctx := errgroup.WithContext(session)
	wait := reload.NewCoordinator(sig, log).Watch(gctx, shutdown)

	g.Go(func() error {
		defer end()

		log.Info("listening", "addr", ln.Addr().String(), "root", cfg.ServeRoot(), "tls", cfg.TLSEnabled())
		var err error
		if cfg.TLSEnabled() {
			err = server.ServeTLS(ln, cfg.TLS.Crt, cfg.TLS.Key)
		} else {
			err = server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	// Graceful shutdown по сигналу процесса.
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() == nil {
			return nil
		}
		return shutdown()
	})

	err := g.Wait()
	decision := wait()
	if err != nil {
		return reload.Stop, err
	}
	if decision == reload.Restart {
		s.Metrics.ObserveReload()
	}

	return decision, nil
}
