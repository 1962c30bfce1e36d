// File: services/search/search.go
package search

import (
	"context"
	"sort"

	restaurantRepo "goodfoods/database/repository/restaurant"
	"goodfoods/models"
	"goodfoods/services/availability"

	"go.uber.org/zap"
)

// maxHits caps a single result page; the agent summarizes, it does not
// paginate.
const maxHits = 20

// Service answers restaurant discovery queries. It filters reference data
// in-process and decorates hits with cached availability when the query
// carries a date, time, and party size.
type Service struct {
	Restaurants restaurantRepo.RestaurantRepository
	Engine      *availability.Engine
	Logger      *zap.Logger
}

// NewService wires a search service.
func NewService(restaurants restaurantRepo.RestaurantRepository, engine *availability.Engine, logger *zap.Logger) *Service {
	return &Service{Restaurants: restaurants, Engine: engine, Logger: logger}
}

// Search returns restaurants matching every supplied filter, best-rated
// first. An empty criteria set returns the top-rated restaurants rather
// than an error; the dialogue layer narrows from there.
func (s *Service) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.RestaurantHit, error) {
	all, err := s.Restaurants.List(ctx)
	if err != nil {
		return nil, err
	}

	var hits []models.RestaurantHit
	for _, r := range all {
		if !r.MatchesCriteria(criteria) {
			continue
		}
		hit := models.RestaurantHit{
			RestaurantID: r.ID,
			Name:         r.Name,
			CuisineType:  r.CuisineType,
			Location:     r.Location,
			PriceRange:   r.PriceRange,
			Rating:       r.Rating,
		}
		hit.Available = s.availabilityHint(ctx, r.ID, criteria)
		hits = append(hits, hit)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Rating != hits[j].Rating {
			return hits[i].Rating > hits[j].Rating
		}
		return hits[i].Name < hits[j].Name
	})
	if len(hits) > maxHits {
		hits = hits[:maxHits]
	}
	return hits, nil
}

// availabilityHint is a best-effort decoration from the bounded-staleness
// cache. It defaults to true when the query lacks a concrete slot or the
// lookup fails; the hint is advisory, the booking path re-checks.
func (s *Service) availabilityHint(ctx context.Context, restaurantID string, c models.SearchCriteria) bool {
	if c.Date == "" || c.Time == "" || c.PartySize == 0 {
		return true
	}
	result, err := s.Engine.CheckAvailability(ctx, restaurantID, c.Date, c.Time, c.PartySize)
	if err != nil {
		s.Logger.Warn("availability hint lookup failed",
			zap.String("restaurantID", restaurantID), zap.Error(err))
		return true
	}
	return result.Available
}
