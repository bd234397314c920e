package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buildspace/pricebridge/internal/bridge"
	"github.com/buildspace/pricebridge/internal/config"
	"github.com/buildspace/pricebridge/internal/feed"
	"github.com/buildspace/pricebridge/internal/metrics"
	"github.com/buildspace/pricebridge/internal/store"
	"github.com/buildspace/pricebridge/internal/subscription"
	"github.com/buildspace/pricebridge/internal/throttle"
	"github.com/buildspace/pricebridge/internal/trace"
	"github.com/buildspace/pricebridge/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/bridge.local.yaml", "path to config file")
	healthAddr := flag.String("health-addr", ":8080", "health endpoint listen address")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting bridge",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_url", cfg.Feed.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool, logger)
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	logger.Info("database connected")

	// Connect to the broker. The consumer and the publisher each get
	// their own channel so consuming never blocks behind a publish.
	conn, err := amqp.Dial(cfg.Broker.URL)
	if err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	pubCh, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open publisher channel", "error", err)
		os.Exit(1)
	}
	conCh, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open consumer channel", "error", err)
		os.Exit(1)
	}

	if err := bridge.DeclareTopology(pubCh, cfg.Broker); err != nil {
		logger.Error("failed to declare broker topology", "error", err)
		os.Exit(1)
	}

	logger.Info("broker connected", "exchange", cfg.Broker.Exchange)

	sink := metrics.NewSink()

	// Feed client
	feedClient := feed.NewClient(feed.Config{
		URL:               cfg.Feed.URL,
		RetryMaxAttempts:  cfg.Feed.RetryMaxAttempts,
		RetryBaseInterval: cfg.Feed.RetryBaseInterval,
		RetryMultiplier:   cfg.Feed.RetryMultiplier,
		HandshakeTimeout:  cfg.Feed.HandshakeTimeout,
		WriteTimeout:      cfg.Feed.WriteTimeout,
		SubscriberBuffer:  cfg.Feed.SubscriberBuffer,
	}, sink, logger)

	if err := feedClient.Connect(ctx); err != nil {
		logger.Error("failed to connect to feed", "error", err)
		os.Exit(1)
	}
	defer feedClient.Close()

	// Throttler batches subscription changes onto the feed session
	throttler := throttle.New(throttle.Config{
		FlushInterval: cfg.Throttle.FlushInterval,
		BatchLimit:    cfg.Throttle.BatchLimit,
		StreamSuffix:  cfg.Throttle.StreamSuffix,
	}, feedClient, logger)

	if err := throttler.Start(ctx); err != nil {
		logger.Error("failed to start throttler", "error", err)
		os.Exit(1)
	}

	coordinator := subscription.NewCoordinator(st, throttler, logger)
	publisher := bridge.NewPublisher(pubCh, cfg.Broker, logger)

	consumer := bridge.NewConsumer(conCh, cfg.Broker, coordinator, logger)
	if err := consumer.Start(ctx); err != nil {
		logger.Error("failed to start consumer", "error", err)
		os.Exit(1)
	}

	// Pump feed events to the broker
	events, unsubscribe := feedClient.Subscribe()
	go runPump(ctx, events, publisher, logger)

	// Replay persisted subscriptions onto the fresh session
	if err := coordinator.ReloadAll(ctx); err != nil {
		logger.Error("failed to reload subscriptions", "error", err)
		os.Exit(1)
	}

	go runReconnect(ctx, feedClient, coordinator, logger)
	go runGauges(ctx, st, feedClient, sink, logger)

	// Health server
	healthServer := &http.Server{
		Addr:    *healthAddr,
		Handler: createHealthHandler(pool, feedClient, sink),
	}
	go func() {
		logger.Info("starting health server", "addr", *healthAddr)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("bridge running", "instance_id", cfg.Instance.ID)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	consumer.Stop(shutdownCtx)
	throttler.Stop(shutdownCtx)
	unsubscribe()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("bridge stopped")
}

// runPump forwards feed events to the broker: ticks on the symbol route,
// decode errors on the error route.
func runPump(ctx context.Context, events <-chan feed.Event, publisher *bridge.Publisher, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			evtCtx := trace.NewContext(ctx)
			switch {
			case evt.Tick != nil:
				if err := publisher.Publish(evtCtx, *evt.Tick); err != nil {
					trace.Logger(evtCtx, logger).Error("failed to publish tick",
						"symbol", evt.Tick.Symbol,
						"error", err,
					)
				}
			case evt.Err != nil:
				if err := publisher.PublishError(evtCtx, evt.Err.Error()); err != nil {
					trace.Logger(evtCtx, logger).Error("failed to publish error event", "error", err)
				}
			}
		}
	}
}

// runReconnect re-establishes a dropped feed session. The feed holds no
// server-side subscription state, so every reconnect replays the
// persisted set.
func runReconnect(ctx context.Context, client feed.Client, coordinator *subscription.Coordinator, logger *slog.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if client.IsOpen() {
				continue
			}
			logger.Warn("feed session down, reconnecting")
			if err := client.Connect(ctx); err != nil {
				logger.Error("feed reconnect failed", "error", err)
				continue
			}
			if err := coordinator.ReloadAll(ctx); err != nil {
				logger.Error("failed to reload subscriptions after reconnect", "error", err)
			}
		}
	}
}

// runGauges refreshes the slow-moving gauges from their sources of truth.
func runGauges(ctx context.Context, st *store.Store, client feed.Client, sink *metrics.Sink, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sink.SetConnected(client.IsOpen())
			count, err := st.Count(ctx)
			if err != nil {
				logger.Warn("failed to count subscriptions", "error", err)
				continue
			}
			sink.SetActiveSubscriptions(count)
		}
	}
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(pool interface {
	Ping(ctx context.Context) error
}, client feed.Client, sink *metrics.Sink) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check database
		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		// Check feed session
		health.Components["feed"] = map[string]interface{}{
			"state":           client.State().String(),
			"last_message_at": client.LastMessageAt().UTC().Format(time.RFC3339),
			"silence_seconds": int64(time.Since(client.LastMessageAt()).Seconds()),
		}
		if !client.IsOpen() {
			health.Status = "degraded"
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		snap := sink.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	})

	return mux
}
