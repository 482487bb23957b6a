package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type storeDocument struct {
	Key       string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoBackend keeps one document per key, with the key as _id.
type MongoBackend struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoBackend constructs the backend over a collection.
func NewMongoBackend(collection *mongo.Collection) *MongoBackend {
	return &MongoBackend{collection: collection, now: time.Now}
}

// LoadAll implements Backend.
func (b *MongoBackend) LoadAll(ctx context.Context, key string) ([]byte, error) {
	var doc storeDocument
	if err := b.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return doc.Payload, nil
}

// SaveAll implements Backend.
func (b *MongoBackend) SaveAll(ctx context.Context, key string, payload []byte) error {
	doc := storeDocument{Key: key, Payload: payload, UpdatedAt: b.now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := b.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// storeLeaseID is the _id of the lease document guarding the store rewrite. It shares the
// collection with the payload documents but is never loaded as one.
const storeLeaseID = "portal_store_lock"

// Lock implements Locker with a lease document. The conditional upsert matches only an
// expired lease; against a live one it collides on _id and the caller retries.
func (b *MongoBackend) Lock(ctx context.Context) (func() error, error) {
	holder := uuid.NewString()
	err := acquireLease(ctx, func() (bool, error) {
		now := b.now().UTC()
		filter := bson.M{"_id": storeLeaseID, "expiresAt": bson.M{"$lt": now}}
		update := bson.M{"$set": bson.M{"holder": holder, "expiresAt": now.Add(leaseTTL)}}
		_, err := b.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		switch {
		case err == nil:
			return true, nil
		case mongo.IsDuplicateKeyError(err):
			return false, nil
		default:
			return false, fmt.Errorf("acquire store lease: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return func() error {
		if _, err := b.collection.DeleteOne(context.Background(), bson.M{"_id": storeLeaseID, "holder": holder}); err != nil {
			return fmt.Errorf("release store lease: %w", err)
		}
		return nil
	}, nil
}
