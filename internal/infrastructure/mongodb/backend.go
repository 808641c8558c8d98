package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// Config contains the MongoDB location of the document.
type Config struct {
	URI            string
	Database       string
	Collection     string
	DocumentID     string
	ConnectTimeout time.Duration
}

// record is the stored shape of the document.
type record struct {
	ID        string    `bson:"_id"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Backend implements siteconfig.Backend on one MongoDB document.
type Backend struct {
	client     *mongo.Client
	collection *mongo.Collection
	id         string
	now        func() time.Time
}

// Open connects to MongoDB, verifies the connection and returns a backend.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background()) //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &Backend{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		id:         cfg.DocumentID,
		now:        time.Now,
	}, nil
}

// Read implements siteconfig.Backend.
func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	var rec record
	err := b.collection.FindOne(ctx, idFilter(b.id)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, siteconfig.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("finding site document %s: %w", b.id, err)
	}
	if rec.Body == "" {
		// A record without a body loads as the default document.
		return []byte("{}"), nil
	}
	return []byte(rec.Body), nil
}

// Write implements siteconfig.Backend. ReplaceOne on a single document is
// atomic in MongoDB.
func (b *Backend) Write(ctx context.Context, data []byte) error {
	rec := record{ID: b.id, Body: string(data), UpdatedAt: b.now().UTC()}
	_, err := b.collection.ReplaceOne(ctx, idFilter(b.id), rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replacing site document %s: %w", b.id, err)
	}
	return nil
}

// Name implements siteconfig.Backend.
func (b *Backend) Name() string { return "mongodb" }

// HealthCheck pings the primary.
func (b *Backend) HealthCheck(ctx context.Context) error {
	if err := b.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (b *Backend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

func idFilter(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}
