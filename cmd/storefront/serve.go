package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			return serve(cfg, log)
		},
	}

	cmd.Flags().String("port", "", "HTTP port")
	cmd.Flags().String("session-backend", "", "session store (memory, redis)")
	cmd.Flags().String("redis-addr", "", "redis address for the session store")
	cmd.Flags().StringSlice("kafka-brokers", nil, "kafka brokers for payment completion events")
	cmd.Flags().Bool("trim-required", false, "treat whitespace-only checkout fields as missing")
	bindFlags(c.v, cmd.Flags(), map[string]string{
		"http_port":              "port",
		"session.backend":        "session-backend",
		"redis.addr":             "redis-addr",
		"kafka.brokers":          "kafka-brokers",
		"checkout.trim_required": "trim-required",
	})
	return cmd
}

func serve(cfg *config.Config, log *zap.Logger) error {
	m := metrics.New()

	backend, err := newBackendClient(cfg, log, m.ObserveBackend)
	if err != nil {
		return err
	}
	gateway := catalog.NewGateway(backend)
	ordersClient := orders.NewClient(backend)

	notifier, closeNotifier := newNotifier(cfg, log)
	defer closeNotifier()
	bridge := payment.NewBridge(backend, payment.Config{
		StoreName:   cfg.Payment.StoreName,
		Description: cfg.Payment.Description,
		ThemeColor:  cfg.Payment.ThemeColor,
	}, notifier, log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, closeStore, err := newSessionStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	manager := session.NewManager(store, log)
	sessions := h.NewSessions(manager, ordersClient, bridge, checkout.Options{
		TrimRequired: cfg.Checkout.TrimRequired,
		Logger:       log,
	})

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxBodyBytes,
		SessionTTL:         cfg.Session.TTL,
		SecureCookies:      cfg.Session.CookieSecure,
	}, h.Handlers{
		Catalog:  h.NewCatalogHandler(gateway, sessions, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(gateway, sessions, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(sessions, ordersClient, m, cfg.RequestTimeout, log),
		Orders:   h.NewOrdersHandler(ordersClient, cfg.RequestTimeout),
		Sessions: sessions,
		Ready:    gateway,
		Metrics:  m.Handler(),
		Latency:  m,
	}, log)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// the write deadline has to outlast a backend call
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront starting", zap.String("addr", srv.Addr), zap.String("backend", cfg.APIBaseURL),
			zap.String("session_backend", cfg.Session.Backend), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := session.NewRedisStore(client, cfg.Session.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis %s: %w", cfg.Redis.Addr, err)
		}
		log.Info("using redis session store", zap.String("addr", cfg.Redis.Addr))
		return store, func() { client.Close() }, nil
	default:
		store := session.NewMemoryStore(cfg.Session.TTL)
		go store.RunSweeper(ctx, time.Minute)
		return store, func() {}, nil
	}
}

func newNotifier(cfg *config.Config, log *zap.Logger) (payment.CompletionNotifier, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		return payment.NewLogNotifier(log), func() {}
	}
	n := payment.NewKafkaNotifier(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
	log.Info("publishing payment completions to kafka",
		zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return n, func() {
		if err := n.Close(); err != nil {
			log.Warn("close kafka writer", zap.Error(err))
		}
	}
}
