package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/zbuppan/internal/auth"
	"github.com/mmynk/zbuppan/internal/config"
	"github.com/mmynk/zbuppan/internal/idempotency"
	"github.com/mmynk/zbuppan/internal/metrics"
	"github.com/mmynk/zbuppan/internal/middleware"
	"github.com/mmynk/zbuppan/internal/notify"
	"github.com/mmynk/zbuppan/internal/service"
	"github.com/mmynk/zbuppan/internal/storage"
	"github.com/mmynk/zbuppan/internal/storage/postgres"
	"github.com/mmynk/zbuppan/internal/storage/sqlite"
	"github.com/mmynk/zbuppan/internal/tracing"
	"github.com/mmynk/zbuppan/pkg/api/apiconnect"
	"github.com/mmynk/zbuppan/pkg/logging"
)

const purgeInterval = time.Hour

func main() {
	configPath := flag.String("config", os.Getenv("ZB_CONFIG"), "path to config file")
	flag.Parse()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	logging.Setup()

	if err := run(*configPath); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.SetLevel(cfg.LogLevel)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.Exporter)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := idempotency.New(cfg.Idempotency.Path, cfg.GetIdempotencyTTL())
	if err != nil {
		return fmt.Errorf("failed to open idempotency store: %w", err)
	}
	defer keys.Close()
	go purgeKeys(ctx, keys)

	m := metrics.New()

	notifier, closeNotifier, err := openNotifier(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer closeNotifier()

	if configPath != "" {
		watcher, err := config.NewWatcher(cfg)
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		watcher.OnReload(func(c *config.Config) {
			logging.SetLevel(c.LogLevel)
		})
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		defer watcher.Stop()
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = rand.Text()
		logger.Warn("No JWT secret configured; sessions will not survive a restart")
	}
	jwtManager := auth.NewJWTManager(secret, cfg.GetTokenTTL())
	authenticator := auth.NewPasswordAuthenticator(store, cfg.GetAdminEmails)

	common := []connect.Interceptor{m.Interceptor()}
	logged := middleware.LoggingInterceptor(logger)
	optional := connect.WithInterceptors(append(common, middleware.OptionalAuth(jwtManager), logged)...)
	required := connect.WithInterceptors(append(common, middleware.RequireAuth(jwtManager), logged)...)
	adminOnly := connect.WithInterceptors(append(common, middleware.RequireAuth(jwtManager), middleware.RequireAdmin(), logged)...)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, store, logger), optional))
	mux.Handle(apiconnect.NewShopServiceHandler(
		service.NewShopService(store, keys, notifier, cfg, m, logger), required))
	mux.Handle(apiconnect.NewTimelineServiceHandler(
		service.NewTimelineService(store, cfg, logger), optional))
	mux.Handle(apiconnect.NewAdminServiceHandler(
		service.NewAdminService(store, notifier, cfg, logger), adminOnly))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(otelhttp.NewHandler(corsMiddleware(mux), "zbuppan"), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", cfg.Server.Addr, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		store, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", "postgres")
		return store, nil
	default:
		store, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", "sqlite", "database", cfg.Storage.SQLitePath)
		return store, nil
	}
}

// openNotifier combines the configured sinks. The Teams sink reads the webhook
// URL on every send so a reloaded URL applies immediately.
func openNotifier(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (notify.Notifier, func(), error) {
	sinks := []notify.Notifier{notify.NewTeams(cfg.GetTeamsWebhookURL)}
	closeFn := func() {}

	if cfg.Notify.RedisAddr != "" {
		r, err := notify.NewRedis(ctx, cfg.Notify.RedisAddr, cfg.Notify.RedisChannel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		sinks = append(sinks, r)
		closeFn = func() { r.Close() }
		slog.Info("Publishing events to redis", "addr", cfg.Notify.RedisAddr, "channel", cfg.Notify.RedisChannel)

		// Echo the channel back at debug level to confirm delivery end to end.
		err = r.Subscribe(ctx, func(msg notify.Message) {
			slog.Debug("Redis event delivered", "kind", msg.Kind, "title", msg.Title, "at", msg.At)
		})
		if err != nil {
			slog.Warn("Failed to subscribe to redis channel", "channel", cfg.Notify.RedisChannel, "error", err)
		}
	}

	return notify.NewMulti(m.ObserveNotification, sinks...), closeFn, nil
}

func purgeKeys(ctx context.Context, keys *idempotency.Store) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := keys.Purge()
			if err != nil {
				slog.Warn("Failed to purge idempotency keys", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("Purged idempotency keys", "count", n)
			}
		}
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
