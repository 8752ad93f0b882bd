package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

var Drivers = []string{DriverSQLite, DriverPostgres, DriverMongo, DriverMemory}

// Options selects and addresses a backend.
type Options struct {
	Driver       string
	DatabaseURL  string
	MongoURI     string
	DatabaseName string
}

// Open connects to the configured backend. Mongo connections are pinged
// before returning.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return OpenSQLite(opts.DatabaseURL)
	case DriverPostgres:
		return OpenPostgres(opts.DatabaseURL)
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		return NewMongoStore(client, opts.DatabaseName), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
