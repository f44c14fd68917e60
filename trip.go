package transit

import (
	"fmt"

	"github.com/pkg/errors"

	"tramway.dev/transit/model"
	"tramway.dev/transit/storage"
)

// Marker names one endpoint of a journey segment, by stop ID or by
// sequence number. Sequence takes priority when both are given, since a
// stop ID can repeat within a trip at different sequence positions.
type Marker struct {
	StopID   string
	Sequence *uint32
}

func (m Marker) supplied() bool {
	return m.StopID != "" || m.Sequence != nil
}

func (m Marker) matches(st model.StopTime) bool {
	if m.Sequence != nil {
		return st.StopSequence == *m.Sequence
	}
	return st.StopID == m.StopID
}

func (m Marker) String() string {
	if m.Sequence != nil {
		return fmt.Sprintf("sequence %d", *m.Sequence)
	}
	return fmt.Sprintf("stop %s", m.StopID)
}

type TripStop struct {
	StopID       string
	StopName     string
	StopSequence uint32

	ScheduledArrival   string
	ScheduledDeparture string
	RealtimeArrival    string
	RealtimeDeparture  string

	// Delays as reported by the feed, nil when unreported.
	ArrivalDelay   *int
	DepartureDelay *int
}

// Journey is the segment between two resolved markers. The duration
// metrics are nil whenever an input needed to compute them is missing.
type Journey struct {
	FromIndex int
	ToIndex   int

	ScheduledSecs *int
	RealtimeSecs  *int
	DeltaSecs     *int
}

type TripDetails struct {
	Trip  model.Trip
	Route model.Route
	Stops []TripStop

	// Nil when no markers were supplied.
	Journey *Journey
}

// Returns the full ordered itinerary of a trip, plus a journey segment
// between the from and to markers when both resolve.
//
// The from marker matches the first qualifying stop. The to marker is
// searched strictly after from's position, so on a loop route a repeated
// stop can't bind the segment backwards. A supplied marker that matches
// nothing is a not-found error naming the marker.
func (s *Service) TripItinerary(tripID string, from, to Marker) (*TripDetails, error) {
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

	now := s.clock.Now()
	events, err := s.store.TripEvents(tripID, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("getting trip events: %w", err)
	}

	details := &TripDetails{
		Trip:  *trip,
		Stops: make([]TripStop, 0, len(events)),
	}
	if len(events) > 0 {
		details.Route = events[0].Route
	}

	for _, event := range events {
		details.Stops = append(details.Stops, buildTripStop(event))
	}

	if !from.supplied() && !to.supplied() {
		return details, nil
	}

	fromIdx := -1
	if from.supplied() {
		for i, event := range events {
			if from.matches(event.StopTime) {
				fromIdx = i
				break
			}
		}
		if fromIdx == -1 {
			return nil, errors.Wrapf(ErrNotFound, "from marker (%s) on trip %s", from, tripID)
		}
	}

	toIdx := -1
	if to.supplied() {
		for i := fromIdx + 1; i < len(events); i++ {
			if to.matches(events[i].StopTime) {
				toIdx = i
				break
			}
		}
		if toIdx == -1 {
			return nil, errors.Wrapf(ErrNotFound, "to marker (%s) on trip %s", to, tripID)
		}
	}

	if fromIdx == -1 || toIdx == -1 {
		// Only one endpoint given; the itinerary alone is the answer.
		return details, nil
	}

	details.Journey = buildJourney(events, fromIdx, toIdx)

	return details, nil
}

func buildTripStop(event *storage.StopEvent) TripStop {
	stop := TripStop{
		StopID:             event.Stop.ID,
		StopName:           event.Stop.Name,
		StopSequence:       event.StopTime.StopSequence,
		ScheduledArrival:   event.StopTime.Arrival,
		ScheduledDeparture: event.StopTime.Departure,
	}
	if event.Delay != nil {
		stop.ArrivalDelay = event.Delay.ArrivalDelay
		stop.DepartureDelay = event.Delay.DepartureDelay
	}

	arrDelay, depDelay := effectiveDelays(event.Delay)
	if arrSecs, ok := model.TimeToSeconds(event.StopTime.Arrival); ok {
		stop.RealtimeArrival = model.FormatSeconds(arrSecs + arrDelay)
	}
	if depSecs, ok := model.TimeToSeconds(event.StopTime.Departure); ok {
		stop.RealtimeDeparture = model.FormatSeconds(depSecs + depDelay)
	}

	return stop
}

// Effective per-stop delays for itinerary arithmetic: each field
// substitutes the other when unreported, and only when both are absent
// does the delay default to zero.
func effectiveDelays(delay *model.DelayUpdate) (arrival int, departure int) {
	if delay == nil {
		return 0, 0
	}
	if delay.ArrivalDelay != nil {
		arrival = *delay.ArrivalDelay
	} else if delay.DepartureDelay != nil {
		arrival = *delay.DepartureDelay
	}
	if delay.DepartureDelay != nil {
		departure = *delay.DepartureDelay
	} else if delay.ArrivalDelay != nil {
		departure = *delay.ArrivalDelay
	}
	return arrival, departure
}

func buildJourney(events []*storage.StopEvent, fromIdx, toIdx int) *Journey {
	journey := &Journey{
		FromIndex: fromIdx,
		ToIndex:   toIdx,
	}

	depSecs, depOK := model.TimeToSeconds(events[fromIdx].StopTime.Departure)
	arrSecs, arrOK := model.TimeToSeconds(events[toIdx].StopTime.Arrival)
	if !depOK || !arrOK {
		return journey
	}

	scheduled := arrSecs - depSecs
	journey.ScheduledSecs = &scheduled

	arrDelay, _ := effectiveDelays(events[toIdx].Delay)
	_, depDelay := effectiveDelays(events[fromIdx].Delay)
	realtime := (arrSecs + arrDelay) - (depSecs + depDelay)
	journey.RealtimeSecs = &realtime

	delta := realtime - scheduled
	journey.DeltaSecs = &delta

	return journey
}
