package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/config"
	"github.com/MrKriegler/insurance-lifecycle/internal/store/dynamo"
	"github.com/MrKriegler/insurance-lifecycle/internal/store/memory"
	"github.com/MrKriegler/insurance-lifecycle/internal/store/mongo"
	"github.com/MrKriegler/insurance-lifecycle/internal/store/postgres"
)

// Repos is the backend selected by DB_TYPE.
type Repos struct {
	Packages   core.PackageRepo
	Quotations core.QuotationRepo
	Orders     core.OrderRepo
	Claims     core.ClaimRepo

	pinger  func(ctx context.Context) error
	closers []func(ctx context.Context)
}

func (r *Repos) Ping(ctx context.Context) error { return r.pinger(ctx) }

// Close releases the backend's connections in reverse order of acquisition.
func (r *Repos) Close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i](ctx)
	}
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Repos, error) {
	opTimeout := time.Duration(cfg.StoreOpTimeoutMs) * time.Millisecond

	switch cfg.DBType {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		s := memory.New()
		return &Repos{
			Packages:   s.Packages(),
			Quotations: s.Quotations(),
			Orders:     s.Orders(),
			Claims:     s.Claims(),
			pinger:     s.Ping,
		}, nil

	case "mongo":
		log.Info("connecting to mongodb", "db", cfg.MongoDB)
		client, err := mongo.NewClient(mongo.Config{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDB,
			ConnectTimeout: time.Duration(cfg.MongoConnectTimeoutSec) * time.Second,
		}, log)
		if err != nil {
			return nil, err
		}
		closeMongo := func(ctx context.Context) {
			if err := client.Close(ctx); err != nil {
				log.Error("mongo disconnect failed", "err", err)
			}
		}
		if err := mongo.EnsureIndexes(ctx, client.DB); err != nil {
			closeMongo(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return &Repos{
			Packages:   mongo.NewPackageRepo(client.DB, opTimeout),
			Quotations: mongo.NewQuotationRepo(client.DB, opTimeout),
			Orders:     mongo.NewOrderRepo(client.DB, opTimeout),
			Claims:     mongo.NewClaimRepo(client.DB, opTimeout),
			pinger:     client.Ping,
			closers:    []func(context.Context){closeMongo},
		}, nil

	case "dynamodb":
		log.Info("connecting to dynamodb", "region", cfg.AWSRegion, "endpoint", cfg.DynamoDBEndpoint)
		client, err := dynamo.NewClient(ctx, dynamo.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			OpTimeout:       opTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := dynamo.EnsureTables(ctx, client.DB, log); err != nil {
			return nil, fmt.Errorf("ensure tables: %w", err)
		}
		return &Repos{
			Packages:   client.Packages(),
			Quotations: client.Quotations(),
			Orders:     client.Orders(),
			Claims:     client.Claims(),
			pinger:     client.Ping,
		}, nil

	case "postgres":
		if cfg.PostgresMigrate {
			log.Info("running postgres migrations")
			if err := postgres.RunMigrations(cfg.PostgresDSN); err != nil {
				return nil, err
			}
		}
		db, err := postgres.NewPool(ctx, postgres.Config{
			DSN:       cfg.PostgresDSN,
			MaxConns:  int32(cfg.PostgresMaxConns),
			OpTimeout: opTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		return &Repos{
			Packages:   db.Packages(),
			Quotations: db.Quotations(),
			Orders:     db.Orders(),
			Claims:     db.Claims(),
			pinger:     db.Ping,
			closers:    []func(context.Context){func(context.Context) { db.Close() }},
		}, nil
	}

	return nil, fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
}
