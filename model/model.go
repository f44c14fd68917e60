package model

import (
	"time"
)

// Holds all external facing types shared by storage and the resolution
// engine.

// Calendar exception types, as used in calendar_dates.
const (
	ExceptionAdded   int8 = 1
	ExceptionRemoved int8 = 2
)

// DirectionUnset marks a trip without a direction_id. It is a distinct key
// from directions 0 and 1 wherever a direction participates in a lookup.
const DirectionUnset int8 = -1

type Stop struct {
	ID            string
	Name          string
	ParentStation string
	Lat           float64
	Lon           float64
}

type Route struct {
	ID        string
	ShortName string
	LongName  string
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID int8
	ShapeID     string
}

// StopTime is one scheduled visit of a trip to a stop. Arrival and
// Departure are "HH:MM:SS" time-of-day strings and may exceed 24:00:00 for
// service continuing past midnight relative to its service day.
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence uint32
	Arrival      string
	Departure    string
}

// Calendar is a service's weekly running pattern, valid for dates in
// [StartDate, EndDate] inclusive. Dates are YYYYMMDD. Weekday is a bitmask
// with bit 1<<time.Weekday set for each running day.
type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   int8
}

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int8
}

// DelayUpdate is a single realtime observation for a (trip, stop) pair.
// Multiple updates may exist per pair; the one with the greatest CreatedAt
// among non-expired rows is authoritative. Delays are signed seconds; a nil
// delay means the feed reported nothing for that field.
type DelayUpdate struct {
	TripID         string
	StopID         string
	ArrivalDelay   *int
	DepartureDelay *int
	CreatedAt      int64
	ExpiresAt      *int64
}

// ShapePoint is one vertex of explicit route geometry.
type ShapePoint struct {
	ShapeID  string
	Sequence uint32
	Lat      float64
	Lon      float64
}

type Point struct {
	Lat float64
	Lon float64
}

// GeneratedShape is a cached path derived from a representative trip's stop
// coordinates. Keyed uniquely by ShapeID; also queryable by (RouteID,
// DirectionID), where DirectionUnset is a key of its own.
type GeneratedShape struct {
	ShapeID     string
	RouteID     string
	DirectionID int8
	Points      []Point
	CreatedAt   time.Time
}

// Holds all headsigns for trips passing through a stop, for a given route
// and direction.
type RouteDirection struct {
	StopID      string
	RouteID     string
	DirectionID int8
	Headsigns   []string
}
