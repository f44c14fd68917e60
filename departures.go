package transit

import (
	"fmt"
	"math"
	"sort"

	"tramway.dev/transit/model"
)

// DefaultDepartureLimit is what callers pass when the user didn't ask for
// a specific number of departures.
const DefaultDepartureLimit = 10

// Candidates departing more than this many seconds before now are
// dropped. Tolerates clock and processing skew around the query instant.
const departureGraceSeconds = 60

type Departure struct {
	StopID         string
	StopName       string
	TripID         string
	RouteID        string
	RouteShortName string
	Headsign       string
	DirectionID    int8

	// Departure times of day, day offset applied, so an early-tomorrow
	// trip renders as e.g. 24:10:00. Realtime fields carry the
	// authoritative delay; RealtimeSecs is seconds past midnight of the
	// query day and is what results are ordered by.
	ScheduledDeparture string
	RealtimeDeparture  string
	RealtimeSecs       int

	ScheduledArrival string
	RealtimeArrival  string

	// Nil when no realtime data covers the stop, as opposed to a
	// reported delay of zero.
	DelayMinutes    *float64
	RealtimeUpdated bool
}

// Returns up to limit predicted departures from a stop, soonest first.
//
// Candidates come from today's active services, plus tomorrow's for trips
// scheduled before midnight (re-anchored a day later). The authoritative
// delay shifts both times; candidates departing more than a minute ago
// are dropped. A limit <= 0 yields an empty result.
func (s *Service) NextDepartures(stopID string, limit int) ([]Departure, error) {
	if stopID == "" {
		return nil, fmt.Errorf("%w: stop ID required", ErrBadInput)
	}

	departures := []Departure{}
	if limit <= 0 {
		return departures, nil
	}

	if s.metrics != nil {
		s.metrics.DepartureQueries.Inc()
	}

	now := s.clock.Now()
	today := now.Format("20060102")
	tomorrow := now.AddDate(0, 0, 1).Format("20060102")
	nowSecs := now.Hour()*3600 + now.Minute()*60 + now.Second()

	activeToday, err := s.store.ActiveServices(today)
	if err != nil {
		return nil, fmt.Errorf("resolving today's services: %w", err)
	}
	activeTomorrow, err := s.store.ActiveServices(tomorrow)
	if err != nil {
		return nil, fmt.Errorf("resolving tomorrow's services: %w", err)
	}

	todaySet := map[string]bool{}
	for _, serviceID := range activeToday {
		todaySet[serviceID] = true
	}
	tomorrowSet := map[string]bool{}
	for _, serviceID := range activeTomorrow {
		tomorrowSet[serviceID] = true
	}

	serviceIDs := []string{}
	for _, serviceID := range activeToday {
		serviceIDs = append(serviceIDs, serviceID)
	}
	for _, serviceID := range activeTomorrow {
		if !todaySet[serviceID] {
			serviceIDs = append(serviceIDs, serviceID)
		}
	}

	events, err := s.store.StopEvents(stopID, serviceIDs, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("getting stop events: %w", err)
	}

	for _, event := range events {
		depSecs, ok := model.TimeToSeconds(event.StopTime.Departure)
		if !ok {
			continue
		}
		arrSecs, arrOK := model.TimeToSeconds(event.StopTime.Arrival)

		// Departure delay preferred, arrival delay as fallback. No
		// substitution into the arithmetic beyond that.
		var delay *int
		if event.Delay != nil {
			if event.Delay.DepartureDelay != nil {
				delay = event.Delay.DepartureDelay
			} else if event.Delay.ArrivalDelay != nil {
				delay = event.Delay.ArrivalDelay
			}
		}

		offsets := []int{}
		if todaySet[event.Trip.ServiceID] {
			offsets = append(offsets, 0)
		}
		// A post-midnight continuation of today's service already covers
		// tomorrow's small hours; only re-anchor trips scheduled before
		// midnight.
		if tomorrowSet[event.Trip.ServiceID] && depSecs < model.DaySeconds {
			offsets = append(offsets, model.DaySeconds)
		}

		for _, offset := range offsets {
			scheduled := depSecs + offset
			realtime := scheduled
			if delay != nil {
				realtime += *delay
			}

			if realtime < nowSecs-departureGraceSeconds {
				continue
			}

			departure := Departure{
				StopID:             event.Stop.ID,
				StopName:           event.Stop.Name,
				TripID:             event.Trip.ID,
				RouteID:            event.Trip.RouteID,
				RouteShortName:     event.Route.ShortName,
				Headsign:           event.Trip.Headsign,
				DirectionID:        event.Trip.DirectionID,
				ScheduledDeparture: model.FormatSeconds(scheduled),
				RealtimeDeparture:  model.FormatSeconds(realtime),
				RealtimeSecs:       realtime,
				RealtimeUpdated:    delay != nil && *delay != 0,
			}
			if delay != nil {
				minutes := math.Round(float64(*delay)/60*10) / 10
				departure.DelayMinutes = &minutes
			}
			if arrOK {
				scheduledArr := arrSecs + offset
				realtimeArr := scheduledArr
				if delay != nil {
					realtimeArr += *delay
				}
				departure.ScheduledArrival = model.FormatSeconds(scheduledArr)
				departure.RealtimeArrival = model.FormatSeconds(realtimeArr)
			}

			departures = append(departures, departure)
		}
	}

	sort.SliceStable(departures, func(i, j int) bool {
		return departures[i].RealtimeSecs < departures[j].RealtimeSecs
	})

	if len(departures) > limit {
		departures = departures[:limit]
	}

	return departures, nil
}
