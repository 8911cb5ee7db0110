package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	maxRetries     = 5
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type MongoClient struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewClient connects with exponential backoff. Multi-document operations need a
// replica set (a single-node one is enough).
func NewClient(cfg Config, log *slog.Logger) (*MongoClient, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)

	var client *mongo.Client
	var err error

	backoff := initialBackoff
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client, err = connectOnce(cfg, clientOpts)
		if err == nil {
			break
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("connect to mongo after %d attempts: %w", maxRetries, err)
		}
		log.Warn("mongo connect failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"err", err)
		time.Sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}

	return &MongoClient{Client: client, DB: client.Database(cfg.Database)}, nil
}

func connectOnce(cfg Config, opts *options.ClientOptions) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Ping verifies connectivity (used by /readyz).
func (c *MongoClient) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx, nil)
}

// Close gracefully disconnects from MongoDB.
func (c *MongoClient) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}

// withTx runs fn inside a session transaction on db's client.
func withTx(ctx context.Context, db *mongo.Database, fn func(sc mongo.SessionContext) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("session.start: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
