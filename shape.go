package transit

import (
	"fmt"

	"github.com/pkg/errors"

	"tramway.dev/transit/model"
)

// ShapeSource says which tier a shape was resolved from.
type ShapeSource string

const (
	// Explicit geometry from the schedule dataset.
	ShapeSourceGeometry ShapeSource = "geometry"
	// Precomputed generated shape cache.
	ShapeSourceCache ShapeSource = "cache"
	// Live fallback from a trip's stop coordinates.
	ShapeSourceStops ShapeSource = "stops"
)

type Shape struct {
	ID          string
	RouteID     string
	DirectionID int8
	Source      ShapeSource
	Points      []model.Point
}

func (s *Service) countResolution(source ShapeSource) {
	if s.metrics != nil {
		s.metrics.ShapeResolutions.WithLabelValues(string(source)).Inc()
	}
}

// Resolves a shape by its ID: explicit geometry first, then the generated
// shape cache.
func (s *Service) ShapeByID(shapeID string) (*Shape, error) {
	if shapeID == "" {
		return nil, fmt.Errorf("%w: shape ID required", ErrBadInput)
	}

	if s.store.HasShapeGeometry() {
		points, err := s.store.ShapePoints(shapeID)
		if err != nil {
			return nil, fmt.Errorf("getting shape points: %w", err)
		}
		if len(points) > 0 {
			s.countResolution(ShapeSourceGeometry)
			return &Shape{
				ID:          shapeID,
				DirectionID: model.DirectionUnset,
				Source:      ShapeSourceGeometry,
				Points:      points,
			}, nil
		}
	}

	generated, err := s.store.GeneratedShape(shapeID)
	if err != nil {
		return nil, fmt.Errorf("getting generated shape: %w", err)
	}
	if generated != nil {
		s.countResolution(ShapeSourceCache)
		return &Shape{
			ID:          generated.ShapeID,
			RouteID:     generated.RouteID,
			DirectionID: generated.DirectionID,
			Source:      ShapeSourceCache,
			Points:      generated.Points,
		}, nil
	}

	return nil, errors.Wrapf(ErrNotFound, "shape %s", shapeID)
}

// Resolves a shape for a route and direction. Explicit geometry is tried
// first, using the shape ID carried by the most trips of the pair; then
// the generated shape cache, where DirectionUnset only matches entries
// built without a direction. There is no stop-coordinate fallback here: a
// route alone carries no trip to derive a path from.
func (s *Service) ShapeForRoute(routeID string, directionID int8) (*Shape, error) {
	if routeID == "" {
		return nil, fmt.Errorf("%w: route ID required", ErrBadInput)
	}

	if s.store.HasShapeGeometry() {
		shapeID, err := s.store.PreferredShapeID(routeID, directionID)
		if err != nil {
			return nil, fmt.Errorf("getting preferred shape: %w", err)
		}
		if shapeID != "" {
			points, err := s.store.ShapePoints(shapeID)
			if err != nil {
				return nil, fmt.Errorf("getting shape points: %w", err)
			}
			if len(points) > 0 {
				s.countResolution(ShapeSourceGeometry)
				return &Shape{
					ID:          shapeID,
					RouteID:     routeID,
					DirectionID: directionID,
					Source:      ShapeSourceGeometry,
					Points:      points,
				}, nil
			}
		}
	}

	generated, err := s.store.GeneratedShapeForRoute(routeID, directionID)
	if err != nil {
		return nil, fmt.Errorf("getting generated shape: %w", err)
	}
	if generated != nil {
		s.countResolution(ShapeSourceCache)
		return &Shape{
			ID:          generated.ShapeID,
			RouteID:     generated.RouteID,
			DirectionID: generated.DirectionID,
			Source:      ShapeSourceCache,
			Points:      generated.Points,
		}, nil
	}

	return nil, errors.Wrapf(ErrNotFound, "shape for route %s", routeID)
}

// Resolves a shape for a trip: the trip's assigned explicit geometry,
// then the cache by assigned shape ID or by the trip's route and
// direction, and finally the trip's own stop coordinates. The last tier
// always answers for a known trip, even with zero stop times.
func (s *Service) ShapeForTrip(tripID string) (*Shape, error) {
	if tripID == "" {
		return nil, fmt.Errorf("%w: trip ID required", ErrBadInput)
	}

	trip, err := s.store.Trip(tripID)
	if err != nil {
		return nil, fmt.Errorf("getting trip: %w", err)
	}
	if trip == nil {
		return nil, errors.Wrapf(ErrNotFound, "trip %s", tripID)
	}

	if trip.ShapeID != "" && s.store.HasShapeGeometry() {
		points, err := s.store.ShapePoints(trip.ShapeID)
		if err != nil {
			return nil, fmt.Errorf("getting shape points: %w", err)
		}
		if len(points) > 0 {
			s.countResolution(ShapeSourceGeometry)
			return &Shape{
				ID:          trip.ShapeID,
				RouteID:     trip.RouteID,
				DirectionID: trip.DirectionID,
				Source:      ShapeSourceGeometry,
				Points:      points,
			}, nil
		}
	}

	var generated *model.GeneratedShape
	if trip.ShapeID != "" {
		generated, err = s.store.GeneratedShape(trip.ShapeID)
		if err != nil {
			return nil, fmt.Errorf("getting generated shape: %w", err)
		}
	}
	if generated == nil {
		generated, err = s.store.GeneratedShapeForRoute(trip.RouteID, trip.DirectionID)
		if err != nil {
			return nil, fmt.Errorf("getting generated shape: %w", err)
		}
	}
	if generated != nil {
		s.countResolution(ShapeSourceCache)
		return &Shape{
			ID:          generated.ShapeID,
			RouteID:     generated.RouteID,
			DirectionID: generated.DirectionID,
			Source:      ShapeSourceCache,
			Points:      generated.Points,
		}, nil
	}

	points, err := s.store.TripPath(tripID)
	if err != nil {
		return nil, fmt.Errorf("getting trip path: %w", err)
	}
	s.countResolution(ShapeSourceStops)
	return &Shape{
		ID:          shapeKey(trip.RouteID, trip.DirectionID),
		RouteID:     trip.RouteID,
		DirectionID: trip.DirectionID,
		Source:      ShapeSourceStops,
		Points:      points,
	}, nil
}

// Returns all generated shape cache entries.
func (s *Service) ListGeneratedShapes() ([]*model.GeneratedShape, error) {
	return s.store.ListGeneratedShapes()
}

// Rebuilds the generated shape cache: for every (route, direction) pair
// seen among trips, the trip with the most stop times lends its stop
// coordinates as the pair's cached path. Pairs whose trips carry no stop
// times are skipped. Re-running replaces entries in place, so the
// operation is idempotent. Returns the number of shapes written.
func (s *Service) RebuildShapes() (int, error) {
	start := s.clock.Now()

	pairs, err := s.store.RouteDirectionPairs()
	if err != nil {
		return 0, fmt.Errorf("getting route direction pairs: %w", err)
	}

	written := 0
	for _, pair := range pairs {
		tripID, err := s.store.BusiestTrip(pair.RouteID, pair.DirectionID)
		if err != nil {
			return written, fmt.Errorf("getting busiest trip: %w", err)
		}
		if tripID == "" {
			continue
		}

		points, err := s.store.TripPath(tripID)
		if err != nil {
			return written, fmt.Errorf("getting trip path: %w", err)
		}
		if len(points) == 0 {
			continue
		}

		err = s.store.WriteGeneratedShape(model.GeneratedShape{
			ShapeID:     shapeKey(pair.RouteID, pair.DirectionID),
			RouteID:     pair.RouteID,
			DirectionID: pair.DirectionID,
			Points:      points,
			CreatedAt:   s.clock.Now(),
		})
		if err != nil {
			return written, fmt.Errorf("writing generated shape: %w", err)
		}
		written++
	}

	if s.metrics != nil {
		s.metrics.ShapeRebuildDuration.Observe(s.clock.Now().Sub(start).Seconds())
	}

	return written, nil
}

// Cache key for a (route, direction) pair. A trip without a direction
// keys separately from directions 0 and 1.
func shapeKey(routeID string, directionID int8) string {
	if directionID == model.DirectionUnset {
		return routeID + "__null"
	}
	return fmt.Sprintf("%s__%d", routeID, directionID)
}
