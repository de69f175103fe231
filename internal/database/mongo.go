package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

type MongoClient struct {
	Client *mongo.Client
	config *MongoConfig
}

func NewMongoClient(ctx context.Context, config *MongoConfig) (*MongoClient, error) {
	if config == nil || config.URI == "" {
		return nil, errors.New("mongo URI is required")
	}
	if config.Database == "" || config.Collection == "" {
		return nil, errors.New("mongo database and collection names are required")
	}

	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.ConnectTimeout)
	if config.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(config.MaxPoolSize)
	}

	ctx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	slog.Info("mongo client ready", "database", config.Database, "collection", config.Collection)

	return &MongoClient{Client: client, config: config}, nil
}

func (m *MongoClient) Collection() *mongo.Collection {
	return m.Client.Database(m.config.Database).Collection(m.config.Collection)
}

func (m *MongoClient) Health(ctx context.Context) error {
	if m.Client == nil {
		return errors.New("mongo client not initialized")
	}
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *MongoClient) Close(ctx context.Context) error {
	if m.Client == nil {
		return nil
	}
	return m.Client.Disconnect(ctx)
}
