package restaurantRepo

import (
	"context"

	"goodfoods/models"
)

// RestaurantRepository reads the restaurant mirror. The restaurant-management
// system owns this data; the core never writes it.
type RestaurantRepository interface {
	GetByID(ctx context.Context, id string) (*models.Restaurant, error)
	List(ctx context.Context) ([]models.Restaurant, error)
}
