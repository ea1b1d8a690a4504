// Package mongodb provides MongoDB client management for the profile
// document store.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/finbot-ai/agent-platform/pkg/logger"
)

// Config holds MongoDB connection configuration.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Client wraps the MongoDB connection and database handle.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logger.Logger
}

// Connect establishes and verifies a connection to MongoDB.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(30).
		SetMinPoolSize(5)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info("connected to MongoDB")

	return &Client{
		client: client,
		db:     client.Database(cfg.Database),
		logger: log,
	}, nil
}

// Collection returns a handle to the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// IsConnected reports whether the server currently answers pings.
func (c *Client) IsConnected(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(pingCtx, readpref.Primary()) == nil
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) {
	if c.client != nil {
		if err := c.client.Disconnect(ctx); err != nil {
			c.logger.Warn("error disconnecting from MongoDB", zap.Error(err))
		}
	}
}
