// Package transit resolves transit schedule queries against a relational
// store of static schedule data and realtime delay updates: active
// services for a date, upcoming departures with delays applied, trip
// itineraries with journey segments, and route shapes with a tiered
// fallback.
package transit

import (
	"fmt"
	"time"

	"tramway.dev/transit/clock"
	"tramway.dev/transit/metrics"
	"tramway.dev/transit/model"
	"tramway.dev/transit/storage"
)

type Service struct {
	store   storage.Store
	clock   clock.Clock
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Returns the IDs of all services running on the given date, applying the
// weekly calendar pattern overlaid with exceptions. Date is YYYYMMDD. A
// date with no matches yields an empty set.
func (s *Service) ActiveServices(date string) ([]string, error) {
	if _, err := time.Parse("20060102", date); err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrBadInput, date)
	}

	services, err := s.store.ActiveServices(date)
	if err != nil {
		return nil, fmt.Errorf("resolving active services: %w", err)
	}

	return services, nil
}

// Returns all distinct route and direction combinations passing through a
// stop, with the headsigns seen on each.
func (s *Service) RouteDirections(stopID string) ([]*model.RouteDirection, error) {
	if stopID == "" {
		return nil, fmt.Errorf("%w: stop ID required", ErrBadInput)
	}

	return s.store.RouteDirections(stopID)
}

// Returns stops ordered by distance from lat,lon. If limit is >0, at most
// limit stops are returned.
func (s *Service) NearbyStops(lat float64, lon float64, limit int) ([]model.Stop, error) {
	return s.store.NearbyStops(lat, lon, limit)
}
