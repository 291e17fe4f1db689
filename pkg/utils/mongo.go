package utils

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names for the document store.
const (
	UsersCollection    = "Users"
	CallLogsCollection = "CallLogs"
)

// MongoPoolConfig controls client pool behavior.
// Keep it config-driven; defaults should be safe and conservative.
type MongoPoolConfig struct {
	MaxPoolSize     uint64
	MinPoolSize     uint64
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	PingTimeout     time.Duration
}

func (c MongoPoolConfig) withDefaults() MongoPoolConfig {
	out := c
	if out.MaxPoolSize == 0 {
		out.MaxPoolSize = 25
	}
	if out.ConnMaxIdleTime <= 0 {
		out.ConnMaxIdleTime = 5 * time.Minute
	}
	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = 10 * time.Second
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 5 * time.Second
	}
	return out
}

// OpenMongo connects a Mongo client and validates connectivity via ping.
// uri must not be logged; it contains credentials.
func OpenMongo(ctx context.Context, uri string, pool MongoPoolConfig) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	pool = pool.withDefaults()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(pool.MaxPoolSize).
		SetMinPoolSize(pool.MinPoolSize).
		SetMaxConnIdleTime(pool.ConnMaxIdleTime).
		SetConnectTimeout(pool.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pool.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	return client, nil
}

// MongoHealthCheck pings the store with a timeout.
func MongoHealthCheck(ctx context.Context, client *mongo.Client, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique indexes the pipeline's invariants rely on:
// one profile per canonical phone, one call log entry per (phone, hash).
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("ux_phone"),
	})
	if err != nil {
		return fmt.Errorf("create users phone index: %w", err)
	}

	_, err = db.Collection(CallLogsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "phone", Value: 1},
			{Key: "transcript_hash", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("ux_phone_transcript_hash"),
	})
	if err != nil {
		return fmt.Errorf("create calllogs dedup index: %w", err)
	}
	return nil
}
