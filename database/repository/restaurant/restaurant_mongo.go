package restaurantRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goodfoods/database"
	"goodfoods/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no restaurant matches the given id.
var ErrNotFound = errors.New("restaurant not found")

// MongoRestaurantRepo implements RestaurantRepository using MongoDB.
type MongoRestaurantRepo struct {
	coll *mongo.Collection
}

// NewMongoRestaurantRepo constructs a new instance of MongoRestaurantRepo.
func NewMongoRestaurantRepo() RestaurantRepository {
	db := database.MongoClient.Database("goodfoods")
	return &MongoRestaurantRepo{coll: db.Collection("restaurants")}
}

func (repo *MongoRestaurantRepo) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var r models.Restaurant
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching restaurant with id %s: %w", id, err)
	}
	return &r, nil
}

func (repo *MongoRestaurantRepo) List(ctx context.Context) ([]models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := repo.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error listing restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Restaurant
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding restaurants: %w", err)
	}
	return out, nil
}
