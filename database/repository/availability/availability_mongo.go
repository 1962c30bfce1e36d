package availabilityRepo

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

// MongoAvailabilityRepo implements AvailabilityRepository using MongoDB.
type MongoAvailabilityRepo struct {
	slotColl        *mongo.Collection
	reservationColl *mongo.Collection
}

// NewMongoAvailabilityRepo constructs a new instance of MongoAvailabilityRepo.
func NewMongoAvailabilityRepo() AvailabilityRepository {
	db := database.MongoClient.Database("goodfoods")
	return &MongoAvailabilityRepo{
		slotColl:        db.Collection("availability_slots"),
		reservationColl: db.Collection("reservations"),
	}
}

func (repo *MongoAvailabilityRepo) EnsureSlot(ctx context.Context, restaurantID, date string, bucket, totalCapacity int) (*models.AvailabilitySlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"restaurantId": restaurantID, "date": date, "bucket": bucket}
	update := bson.M{
		"$setOnInsert": bson.M{
			"restaurantId":  restaurantID,
			"date":          date,
			"bucket":        bucket,
			"totalCapacity": totalCapacity,
			"reservedCount": 0,
			"version":       0,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var slot models.AvailabilitySlot
	if err := repo.slotColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot); err != nil {
		return nil, fmt.Errorf("failed to ensure availability slot: %w", err)
	}
	return &slot, nil
}

func (repo *MongoAvailabilityRepo) GetSlot(ctx context.Context, restaurantID, date string, bucket int) (*models.AvailabilitySlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"restaurantId": restaurantID, "date": date, "bucket": bucket}
	var slot models.AvailabilitySlot
	if err := repo.slotColl.FindOne(ctx, filter).Decode(&slot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching availability slot: %w", err)
	}
	return &slot, nil
}

func (repo *MongoAvailabilityRepo) GetDay(ctx context.Context, restaurantID, date string) ([]models.AvailabilitySlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"restaurantId": restaurantID, "date": date}
	opts := options.Find().SetSort(bson.M{"bucket": 1})
	cursor, err := repo.slotColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching day availability: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []models.AvailabilitySlot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("error decoding availability slots: %w", err)
	}
	return slots, nil
}

// CommitReserve inserts the reservation and increments the bucket counter in
// one transaction. The capacity guard lives in the update filter: if another
// writer exhausted the bucket first, MatchedCount is zero and the whole
// transaction aborts.
func (repo *MongoAvailabilityRepo) CommitReserve(ctx context.Context, res *models.Reservation, bucket int) error {
	client := repo.slotColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		if _, err := repo.reservationColl.InsertOne(sc, res); err != nil {
			return fmt.Errorf("insert reservation failed: %w", err)
		}

		filter := bson.M{
			"restaurantId": res.RestaurantID,
			"date":         res.Date,
			"bucket":       bucket,
			"$expr": bson.M{
				"$lte": bson.A{
					bson.M{"$add": bson.A{"$reservedCount", res.PartySize}},
					"$totalCapacity",
				},
			},
		}
		update := bson.M{
			"$inc": bson.M{"reservedCount": res.PartySize, "version": 1},
		}

		result, err := repo.slotColl.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("reserve counter update failed: %w", err)
		}
		if result.MatchedCount == 0 {
			return ErrCapacityRaced
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if errors.Is(err, ErrCapacityRaced) {
			return ErrCapacityRaced
		}
		return fmt.Errorf("reserve transaction failed: %w", err)
	}
	return nil
}

// CommitCancel flips the reservation to cancelled and releases its units.
// The status filter guards the transition at the store level: only a
// pending or confirmed reservation matches, so cancelled and completed
// ones are left alone.
func (repo *MongoAvailabilityRepo) CommitCancel(ctx context.Context, res *models.Reservation, bucket int) error {
	client := repo.slotColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	now := time.Now()
	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{
			"code": res.Code,
			"status": bson.M{"$in": bson.A{
				models.ReservationPending, models.ReservationConfirmed,
			}},
		}
		update := bson.M{
			"$set": bson.M{"status": models.ReservationCancelled, "cancelledAt": now},
		}
		result, err := repo.reservationColl.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("cancel status update failed: %w", err)
		}
		if result.MatchedCount == 0 {
			return ErrReservationNotFound
		}

		slotFilter := bson.M{
			"restaurantId":  res.RestaurantID,
			"date":          res.Date,
			"bucket":        bucket,
			"reservedCount": bson.M{"$gte": res.PartySize},
		}
		slotUpdate := bson.M{
			"$inc": bson.M{"reservedCount": -res.PartySize, "version": 1},
		}
		if _, err := repo.slotColl.UpdateOne(sc, slotFilter, slotUpdate); err != nil {
			return fmt.Errorf("release counter update failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return ErrReservationNotFound
		}
		return fmt.Errorf("cancel transaction failed: %w", err)
	}

	res.Status = models.ReservationCancelled
	res.CancelledAt = &now
	return nil
}
