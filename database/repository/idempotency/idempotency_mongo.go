package idempotencyRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goodfoods/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoIdempotencyRepo implements IdempotencyRepository using MongoDB.
type MongoIdempotencyRepo struct {
	coll *mongo.Collection
}

// NewMongoIdempotencyRepo constructs a new instance of MongoIdempotencyRepo.
func NewMongoIdempotencyRepo() IdempotencyRepository {
	db := database.MongoClient.Database("goodfoods")
	return &MongoIdempotencyRepo{coll: db.Collection("commit_tokens")}
}

func (repo *MongoIdempotencyRepo) Create(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to create commit token record: %w", err)
	}
	return nil
}

func (repo *MongoIdempotencyRepo) Get(ctx context.Context, token string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec Record
	if err := repo.coll.FindOne(ctx, bson.M{"_id": token}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("error fetching commit token: %w", err)
	}
	return &rec, nil
}

func (repo *MongoIdempotencyRepo) MarkApplied(ctx context.Context, token, reservationCode string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{"_id": token, "status": StatusPending}
	update := bson.M{"$set": bson.M{
		"status":          StatusApplied,
		"reservationCode": reservationCode,
		"appliedAt":       now,
	}}
	result, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark commit token applied: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrTokenNotFound
	}
	return nil
}
