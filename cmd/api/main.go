package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/evaluator"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {

	if err := loadDotEnv(); err != nil {
		panic(err)
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	// Logger
	if err := observability.InitLogger(cfg.LogLevel); err != nil {
		panic(err)
	}

	// serve has flushed telemetry by the time it returns.
	err = serve(cfg)
	observability.SyncLogger()
	if err != nil {
		os.Exit(1)
	}
}

// serve wires the service and blocks until a signal arrives. Failures are
// logged before the telemetry providers shut down.
func serve(cfg config) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing, logs, metrics
	telemetryShutdown, err := initTelemetry(ctx, cfg.OTelDisabled)
	if err != nil {
		observability.Logger.Error("telemetry setup failed", zap.Error(err))
		return err
	}
	defer telemetryShutdown(context.Background())

	defer func() {
		if err != nil {
			observability.Logger.Error("server stopped", zap.Error(err))
		}
	}()

	// Keypad sessions
	eval := evaluator.New()
	store := calculator.NewStore(eval, cfg.SessionTTL, observability.Logger)
	if err := calculator.RegisterPrometheus(store); err != nil {
		return err
	}

	// Router
	router := server.NewRouter(calculator.NewHandler(store, eval))

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: router,
	}

	return run(ctx, srv, ln, store, cfg.ShutdownTimeout)
}

// run serves on ln until ctx is cancelled. It then drains in-flight
// requests and only afterwards closes every session.
func run(ctx context.Context, srv *http.Server, ln net.Listener, store *calculator.Store, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		observability.Logger.Info("server started", zap.String("addr", srv.Addr))

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return store.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		observability.Logger.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		store.Close()
		return err
	})

	return g.Wait()
}
