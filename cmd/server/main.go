package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitwose/internal/auth"
	"github.com/mmynk/splitwose/internal/config"
	"github.com/mmynk/splitwose/internal/ledger"
	"github.com/mmynk/splitwose/internal/metrics"
	"github.com/mmynk/splitwose/internal/middleware"
	"github.com/mmynk/splitwose/internal/service"
	"github.com/mmynk/splitwose/internal/storage"
	"github.com/mmynk/splitwose/internal/storage/postgres"
	"github.com/mmynk/splitwose/internal/storage/sqlite"
	"github.com/mmynk/splitwose/internal/telemetry"
	"github.com/mmynk/splitwose/pkg/api"
	"github.com/mmynk/splitwose/pkg/logging"
)

const serviceName = "splitwose"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "splitwose: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: newHandler(cfg, store, slog.Default()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})
	return g.Wait()
}

// openStore opens the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver)
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver, "database", cfg.DBPath)
		return store, nil
	}
}

// newHandler mounts every service plus /metrics and /healthz.
func newHandler(cfg *config.Config, store storage.Store, logger *slog.Logger) http.Handler {
	m := metrics.New()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	l := ledger.New(store)

	// Metrics first so rejected tokens are counted; logging after auth so
	// lines carry the user ID.
	interceptors := connect.WithInterceptors(
		m.Interceptor(),
		middleware.RequireAuth(jwtManager, api.PublicProcedures...),
		middleware.LoggingInterceptor(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger),
		interceptors,
	))
	mux.Handle(api.NewExpenseServiceHandler(service.NewExpenseService(l, m, logger), interceptors))
	mux.Handle(api.NewSettlementServiceHandler(service.NewSettlementService(l, m, logger), interceptors))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.LogRequests(logger, middleware.CORS(mux))

	// h2c serves HTTP/2 without TLS, which gRPC clients require.
	return h2c.NewHandler(handler, &http2.Server{})
}
