package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectToMongo dials the cluster, pings it and makes sure the accounts
// collection has its unique userId index.
func ConnectToMongo(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Collection, error) {
	if cfg.MongoURI == "" {
		return nil, nil, fmt.Errorf("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.MongoURI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
	if err := EnsureIndexes(ctx, collection); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, collection, nil
}

// EnsureIndexes creates the unique index on userId.
func EnsureIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("userId_unique"),
	}

	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("create userId index: %w", err)
	}

	return nil
}
