package infrastructure

import (
	"context"
	"fmt"

	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/cenkalti/backoff/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoClient owns the connection pool to the document store.
type MongoClient struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoClient connects and waits until the primary answers a ping,
// retrying with exponential backoff.
func NewMongoClient(ctx context.Context, dbCfg config.Database, backoffCfg config.Backoff, log logger.Logger) (*MongoClient, error) {
	opts := options.Client().
		ApplyURI(dbCfg.URI).
		SetMaxPoolSize(dbCfg.MaxPoolSize).
		SetMinPoolSize(dbCfg.MinPoolSize).
		SetConnectTimeout(dbCfg.ConnectTimeout).
		SetTimeout(dbCfg.OperationTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating mongo client: %w", err)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = backoffCfg.BaseDelay
	expBackoff.Multiplier = backoffCfg.Multiplier
	expBackoff.RandomizationFactor = backoffCfg.Jitter
	expBackoff.MaxInterval = backoffCfg.MaxDelay

	attempt := 0
	_, err = backoff.Retry(
		ctx,
		func() (struct{}, error) {
			attempt++

			pingCtx, cancel := context.WithTimeout(ctx, dbCfg.ConnectTimeout)
			defer cancel()

			if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
				log.Warn().Err(err).Int("attempt", attempt).Msg("database not reachable yet")

				return struct{}{}, err
			}

			return struct{}{}, nil
		},
		backoff.WithMaxTries(dbCfg.ConnectAttempts),
		backoff.WithBackOff(expBackoff),
	)
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))

		return nil, fmt.Errorf("connecting to mongo after %d attempts: %w", attempt, err)
	}

	return &MongoClient{
		client:   client,
		database: client.Database(dbCfg.Name),
	}, nil
}

func (c *MongoClient) Database() *mongo.Database {
	return c.database
}

func (c *MongoClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *MongoClient) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
