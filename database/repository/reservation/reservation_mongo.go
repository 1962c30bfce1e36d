package reservationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goodfoods/database"
	"goodfoods/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReservationRepo implements ReservationRepository using MongoDB.
type MongoReservationRepo struct {
	coll        *mongo.Collection
	counterColl *mongo.Collection
}

// NewMongoReservationRepo constructs a new instance of MongoReservationRepo.
func NewMongoReservationRepo() ReservationRepository {
	db := database.MongoClient.Database("goodfoods")
	return &MongoReservationRepo{
		coll:        db.Collection("reservations"),
		counterColl: db.Collection("counters"),
	}
}

func (repo *MongoReservationRepo) GetByCode(ctx context.Context, code string) (*models.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var res models.Reservation
	if err := repo.coll.FindOne(ctx, bson.M{"code": code}).Decode(&res); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching reservation %s: %w", code, err)
	}
	return &res, nil
}

func (repo *MongoReservationRepo) FindActiveByContact(ctx context.Context, q ContactLookup) ([]models.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var contact []bson.M
	if q.Phone != "" {
		contact = append(contact, bson.M{"customerPhone": q.Phone})
	}
	if q.Email != "" {
		contact = append(contact, bson.M{"customerEmail": q.Email})
	}
	if len(contact) == 0 {
		return nil, fmt.Errorf("contact lookup requires phone or email")
	}

	filter := bson.M{
		"$or": contact,
		"status": bson.M{"$in": bson.A{
			models.ReservationPending, models.ReservationConfirmed,
		}},
	}
	if q.Date != "" {
		filter["date"] = q.Date
	}

	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error looking up reservations by contact: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Reservation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding reservations: %w", err)
	}
	return out, nil
}

func (repo *MongoReservationRepo) NextSequence(ctx context.Context, restaurantID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"_id": "reservation:" + restaurantID}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := repo.counterColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to advance reservation counter: %w", err)
	}
	return doc.Seq, nil
}

func (repo *MongoReservationRepo) MarkCompletedBefore(ctx context.Context, date string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{
		"status": models.ReservationConfirmed,
		"date":   bson.M{"$lt": date},
	}
	update := bson.M{"$set": bson.M{"status": models.ReservationCompleted}}
	result, err := repo.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past reservations: %w", err)
	}
	return result.ModifiedCount, nil
}
