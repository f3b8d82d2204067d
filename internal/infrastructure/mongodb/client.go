package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"circulapp/pkg/logger"
)

const (
	ChatsCollection    = "chats"
	UsersCollection    = "users"
	ProductsCollection = "products"
)

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("Connected to MongoDB database %s", database)
	return client.Database(database), nil
}

// Ping is used by the readiness probe.
func Ping(ctx context.Context, db *mongo.Database) error {
	return db.Client().Ping(ctx, nil)
}

// IndexModels lists the indexes every collection needs.
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		ChatsCollection: {
			{
				Keys: bson.D{{Key: "dedupeKey", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("unique_active_conversation").
					SetPartialFilterExpression(bson.M{"isActive": true}),
			},
			{Keys: bson.D{{Key: "participants.user", Value: 1}, {Key: "isActive", Value: 1}, {Key: "updatedAt", Value: -1}}},
			{Keys: bson.D{{Key: "product", Value: 1}}},
			{Keys: bson.D{{Key: "transaction", Value: 1}}},
			{Keys: bson.D{{Key: "messages.createdAt", Value: -1}}},
		},
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_email"),
			},
			{
				Keys:    bson.D{{Key: "firebaseUid", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
}

// EnsureIndexes creates missing indexes. Existing ones are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, indexes := range IndexModels() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}
	logger.Info("MongoDB indexes ensured")
	return nil
}

// Disconnect closes the client behind db.
func Disconnect(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// Probe adapts a database handle to readiness checks.
type Probe struct {
	DB *mongo.Database
}

func (p Probe) Ping(ctx context.Context) error {
	return Ping(ctx, p.DB)
}
