package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrKriegler/insurance-lifecycle/docs"
	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	transporthttp "github.com/MrKriegler/insurance-lifecycle/internal/http"
	"github.com/MrKriegler/insurance-lifecycle/internal/http/handlers"
	"github.com/MrKriegler/insurance-lifecycle/internal/http/health"
	"github.com/MrKriegler/insurance-lifecycle/internal/jobs"
	"github.com/MrKriegler/insurance-lifecycle/internal/messaging/kafka"
	"github.com/MrKriegler/insurance-lifecycle/internal/messaging/rabbitmq"
	"github.com/MrKriegler/insurance-lifecycle/internal/middleware"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/config"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/ids"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/logging"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/metrics"
	"github.com/MrKriegler/insurance-lifecycle/internal/store"
)

const notifyRetryInterval = 30 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting insurance lifecycle api", "env", cfg.Env, "db", cfg.DBType, "broker", cfg.NotifyBroker)

	repos, err := store.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repos.Close(context.Background())

	pub, closePub, err := newPublisher(cfg, log)
	if err != nil {
		return fmt.Errorf("notification broker: %w", err)
	}
	defer func() {
		if err := closePub.Close(); err != nil {
			log.Error("close publisher", "err", err)
		}
	}()

	m := metrics.New()
	notifier := jobs.NewNotificationWorker(pub, cfg.NotifyQueueSize, notifyRetryInterval, m, log)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		notifier.Start(workerCtx)
	}()

	refs := ids.NewGenerator(cfg.PolicyCategoryCode)
	quotations := core.NewQuotationService(repos.Packages, repos.Quotations, refs, log)
	orders := core.NewOrderService(repos.Orders, repos.Quotations, repos.Packages, refs, log)
	reconciler := core.NewPaymentReconciler(repos.Orders, repos.Packages, refs, notifier, log)
	claims := core.NewClaimService(repos.Claims, repos.Orders, refs, notifier, log)

	auth, err := middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	defer func() { _ = closeLimiter.Close() }()

	opTimeout := time.Duration(cfg.StoreOpTimeoutMs) * time.Millisecond
	router := transporthttp.NewRouter(transporthttp.Deps{
		Log: log,
		Mounts: []handlers.Mountable{
			handlers.NewPackageHandler(repos.Packages, log),
			handlers.NewQuotationHandler(quotations, orders, handlers.BrandResolver{Default: cfg.DefaultBrand}, m, log),
			handlers.NewOrderHandler(orders, cfg.PaymentGateway, log),
			handlers.NewPaymentHandler(reconciler, m, log),
			handlers.NewClaimHandler(claims, m, log),
		},
		Auth:           auth,
		Limiter:        limiter,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: time.Duration(cfg.HTTPRequestTimeoutSec) * time.Second,
		Health:         health.New(log, repos, opTimeout),
		Metrics:        m,
		Docs:           docs.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stopWorkers()
		wg.Wait()
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}

	// In-flight requests are done; flush queued notifications.
	stopWorkers()
	wg.Wait()
	log.Info("shutdown complete")
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newPublisher(cfg *config.Config, log *slog.Logger) (jobs.Publisher, io.Closer, error) {
	switch cfg.NotifyBroker {
	case "rabbitmq":
		p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, nil, err
		}
		log.Info("publishing notifications to rabbitmq", "exchange", cfg.RabbitMQExchange)
		return p, p, nil
	case "kafka":
		p := kafka.NewProducer(kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		log.Info("publishing notifications to kafka", "topic", cfg.KafkaTopic)
		return p, p, nil
	default:
		return jobs.LogPublisher{Log: log}, nopCloser{}, nil
	}
}

// newLimiter shares counters through redis when REDIS_URL is set.
func newLimiter(ctx context.Context, cfg *config.Config) (middleware.Limiter, io.Closer, error) {
	if cfg.RedisURL == "" {
		rl := middleware.NewRateLimiter(cfg.RateLimitRPM, time.Minute)
		rl.StartWithContext(ctx)
		return rl, nopCloser{}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return middleware.NewRedisRateLimiter(client, "insurance:ratelimit", cfg.RateLimitRPM, time.Minute), client, nil
}
