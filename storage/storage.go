package storage

import (
	"tramway.dev/transit/model"
)

// Store is the query surface the resolution engine runs against. The
// static schedule (stops, routes, trips, stop_times, calendar,
// calendar_dates, shapes) is populated by an external importer and read
// only here; delay_updates rows are appended by an external realtime
// ingester; generated_shapes rows are written only through
// WriteGeneratedShape.
//
// Implementations never retry failed queries. A failed read propagates to
// the caller as-is.
type Store interface {
	Reader
	Writer

	Close() error
}

type Reader interface {
	// Service IDs for all services active on the given date, per the
	// weekly calendar pattern overlaid with calendar_dates exceptions.
	// Date is given as YYYYMMDD. An unknown date yields an empty result.
	ActiveServices(date string) ([]string, error)

	// All stop_time rows at a stop for trips of the given services, each
	// joined with its trip, route, stop and the authoritative delay
	// update: the one with the greatest created_at among rows whose
	// expires_at is NULL or after now (unix seconds). Delay is nil when
	// no authoritative update exists.
	StopEvents(stopID string, serviceIDs []string, now int64) ([]*StopEvent, error)

	// Like StopEvents, but all rows of a single trip, ordered by
	// stop_sequence. An unknown trip yields an empty result.
	TripEvents(tripID string, now int64) ([]*StopEvent, error)

	// A single trip by ID. Returns nil when the trip doesn't exist.
	Trip(tripID string) (*model.Trip, error)

	// All distinct route/direction combinations passing through a stop,
	// with their headsigns.
	RouteDirections(stopID string) ([]*model.RouteDirection, error)

	// Stops ordered by haversine distance from lat/lon. At most limit
	// results (pass 0 for no limit).
	NearbyStops(lat float64, lon float64, limit int) ([]model.Stop, error)

	// Reports whether the dataset carries explicit shape geometry.
	// Resolved once when the store is opened, not re-probed per request.
	HasShapeGeometry() bool

	// Explicit geometry for a shape, ordered by point sequence. Empty
	// when the shape is unknown.
	ShapePoints(shapeID string) ([]model.Point, error)

	// The shape ID used by the most trips of the given route and
	// direction. Ties go to the storage engine's own ordering. Returns
	// "" when no matching trip has a shape assigned.
	PreferredShapeID(routeID string, directionID int8) (string, error)

	// Generated shape cache lookups. Both return nil when no entry
	// exists. DirectionUnset matches only rows with a NULL direction.
	GeneratedShape(shapeID string) (*model.GeneratedShape, error)
	GeneratedShapeForRoute(routeID string, directionID int8) (*model.GeneratedShape, error)
	ListGeneratedShapes() ([]*model.GeneratedShape, error)

	// All distinct (route, direction) pairs observed among trips.
	RouteDirectionPairs() ([]RouteDirectionPair, error)

	// The trip with the most stop_time rows for a route/direction pair.
	// Ties go to the storage engine's own ordering. Returns "" when the
	// pair has no trips with stop_times.
	BusiestTrip(routeID string, directionID int8) (string, error)

	// A trip's stop coordinates in stop_sequence order.
	TripPath(tripID string) ([]model.Point, error)
}

// Writer is the surface used by the external importer, the realtime
// ingester, the shape cache builder, and test fixtures.
type Writer interface {
	WriteStop(stop model.Stop) error
	WriteRoute(route model.Route) error
	WriteTrip(trip model.Trip) error
	WriteStopTime(stopTime model.StopTime) error
	WriteCalendar(cal model.Calendar) error
	WriteCalendarDate(cd model.CalendarDate) error
	WriteShapePoint(pt model.ShapePoint) error
	WriteDelayUpdate(upd model.DelayUpdate) error

	// Upserts a generated shape, replacing any prior entry with the
	// same shape ID. Last write wins; no history is kept.
	WriteGeneratedShape(gs model.GeneratedShape) error
}

// StopEvent is one stop_time row joined with its surrounding entities and
// the authoritative delay update, if any.
type StopEvent struct {
	StopTime model.StopTime
	Trip     model.Trip
	Route    model.Route
	Stop     model.Stop
	Delay    *model.DelayUpdate
}

type RouteDirectionPair struct {
	RouteID     string
	DirectionID int8
}
