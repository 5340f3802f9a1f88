package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecbarko/ecbarko-db/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per account in a collection with a unique
// index on userId.
type MongoStore struct {
	collection *mongo.Collection
	client     *mongo.Client
}

// NewMongoStore wraps an existing collection. The client, if given, is
// disconnected on Close.
func NewMongoStore(collection *mongo.Collection, client *mongo.Client) *MongoStore {
	return &MongoStore{collection: collection, client: client}
}

func (s *MongoStore) FindByUserID(ctx context.Context, userID string) (*models.Account, error) {
	var account models.Account

	err := s.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account %q: %w", userID, err)
	}

	return &account, nil
}

func (s *MongoStore) Credit(ctx context.Context, userID string, amount float64, at time.Time) (*models.Account, error) {
	account, err := s.credit(ctx, userID, amount, at)
	// Two upserts racing on a new userId: the loser hits the unique index
	// and a second attempt matches the winner's document.
	if mongo.IsDuplicateKeyError(err) {
		account, err = s.credit(ctx, userID, amount, at)
	}
	if err != nil {
		return nil, fmt.Errorf("credit account %q: %w", userID, err)
	}

	return account, nil
}

func (s *MongoStore) credit(ctx context.Context, userID string, amount float64, at time.Time) (*models.Account, error) {
	update := bson.M{
		"$inc":  bson.M{"balance": amount},
		"$push": bson.M{"transactions": models.NewLoad(amount, at)},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var account models.Account
	if err := s.collection.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&account); err != nil {
		return nil, err
	}

	return &account, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
