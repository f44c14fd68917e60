package transit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tramway.dev/transit/model"
	"tramway.dev/transit/testutil"
)

func seq(v uint32) *uint32 {
	return &v
}

// A loop trip visiting stop A twice.
func loopFixture(t *testing.T, backend string) (*Service, *testutil.Fixture) {
	service, f, _ := testService(t, backend)

	f.AddStop("A", "Alpha", 1, 1)
	f.AddStop("B", "Bravo", 2, 2)
	f.AddStop("C", "Charlie", 3, 3)
	f.AddRoute("R", "r")
	f.AddTrip(model.Trip{ID: "loop", RouteID: "R", ServiceID: "daily", Headsign: "Loop", DirectionID: 0})

	f.AddStopTime("loop", "A", 1, "08:00:00", "08:01:00")
	f.AddStopTime("loop", "B", 2, "08:10:00", "08:11:00")
	f.AddStopTime("loop", "A", 3, "08:20:00", "08:21:00")
	f.AddStopTime("loop", "C", 4, "08:30:00", "08:31:00")

	return service, f
}

func testTripItinerary(t *testing.T, backend string) {
	service, _ := loopFixture(t, backend)

	details, err := service.TripItinerary("loop", Marker{}, Marker{})
	require.NoError(t, err)

	assert.Equal(t, "loop", details.Trip.ID)
	assert.Equal(t, "R", details.Route.ID)
	assert.Nil(t, details.Journey)

	require.Len(t, details.Stops, 4)
	assert.Equal(t, "A", details.Stops[0].StopID)
	assert.Equal(t, "Alpha", details.Stops[0].StopName)
	assert.Equal(t, uint32(1), details.Stops[0].StopSequence)
	assert.Equal(t, "08:00:00", details.Stops[0].ScheduledArrival)
	assert.Equal(t, "08:01:00", details.Stops[0].ScheduledDeparture)

	// No delay updates: realtime equals scheduled
	assert.Equal(t, "08:00:00", details.Stops[0].RealtimeArrival)
	assert.Equal(t, "08:01:00", details.Stops[0].RealtimeDeparture)
	assert.Nil(t, details.Stops[0].ArrivalDelay)
	assert.Nil(t, details.Stops[0].DepartureDelay)
}

func testTripItineraryUnknownTrip(t *testing.T, backend string) {
	service, _ := loopFixture(t, backend)

	_, err := service.TripItinerary("ghost", Marker{}, Marker{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = service.TripItinerary("", Marker{}, Marker{})
	assert.ErrorIs(t, err, ErrBadInput)
}

func testTripItineraryJourney(t *testing.T, backend string) {
	service, _ := loopFixture(t, backend)

	// From A matches its first occurrence; to A is searched strictly
	// after, landing on the second occurrence.
	details, err := service.TripItinerary("loop", Marker{StopID: "A"}, Marker{StopID: "A"})
	require.NoError(t, err)
	require.NotNil(t, details.Journey)

	j := details.Journey
	assert.Equal(t, 0, j.FromIndex)
	assert.Equal(t, 2, j.ToIndex)

	// 08:01:00 departure to 08:20:00 arrival
	require.NotNil(t, j.ScheduledSecs)
	assert.Equal(t, 19*60, *j.ScheduledSecs)
	require.NotNil(t, j.RealtimeSecs)
	assert.Equal(t, 19*60, *j.RealtimeSecs)
	require.NotNil(t, j.DeltaSecs)
	assert.Equal(t, 0, *j.DeltaSecs)
}

func testTripItinerarySequencePriority(t *testing.T, backend string) {
	service, _ := loopFixture(t, backend)

	// Sequence beats the (repeating) stop ID
	details, err := service.TripItinerary("loop",
		Marker{StopID: "A", Sequence: seq(3)},
		Marker{StopID: "C"},
	)
	require.NoError(t, err)
	require.NotNil(t, details.Journey)
	assert.Equal(t, 2, details.Journey.FromIndex)
	assert.Equal(t, 3, details.Journey.ToIndex)
}

func testTripItineraryToBeforeFrom(t *testing.T, backend string) {
	service, _ := loopFixture(t, backend)

	// "to" search starts strictly after "from", so a to-marker earlier
	// in the itinerary is not found.
	_, err := service.TripItinerary("loop",
		Marker{Sequence: seq(3)},
		Marker{Sequence: seq(1)},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "to marker")

	_, err = service.TripItinerary("loop", Marker{StopID: "nope"}, Marker{StopID: "C"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "from marker")
}

func testTripItinerarySingleMarker(t *testing.T, backend string) {
	service, _ := loopFixture(t, backend)

	// One endpoint alone yields the itinerary without a segment
	details, err := service.TripItinerary("loop", Marker{StopID: "B"}, Marker{})
	require.NoError(t, err)
	assert.Nil(t, details.Journey)
	assert.Len(t, details.Stops, 4)
}

func testTripItineraryDelaySubstitution(t *testing.T, backend string) {
	service, f := loopFixture(t, backend)

	// Arrival-only delay at the origin substitutes into its departure;
	// departure-only delay at the destination substitutes into its
	// arrival.
	f.AddDelay(model.DelayUpdate{
		TripID: "loop", StopID: "B", ArrivalDelay: testutil.Int(120), CreatedAt: 1000,
	})
	f.AddDelay(model.DelayUpdate{
		TripID: "loop", StopID: "C", DepartureDelay: testutil.Int(60), CreatedAt: 1000,
	})

	details, err := service.TripItinerary("loop", Marker{Sequence: seq(2)}, Marker{StopID: "C"})
	require.NoError(t, err)

	stopB := details.Stops[1]
	assert.Equal(t, "08:12:00", stopB.RealtimeArrival)
	assert.Equal(t, "08:13:00", stopB.RealtimeDeparture)
	require.NotNil(t, stopB.ArrivalDelay)
	assert.Equal(t, 120, *stopB.ArrivalDelay)
	assert.Nil(t, stopB.DepartureDelay)

	stopC := details.Stops[3]
	assert.Equal(t, "08:31:00", stopC.RealtimeArrival)
	assert.Equal(t, "08:32:00", stopC.RealtimeDeparture)

	j := details.Journey
	require.NotNil(t, j)

	// Scheduled: 08:11:00 -> 08:30:00. Realtime shifts the origin
	// departure by 120 and the destination arrival by 60.
	require.NotNil(t, j.ScheduledSecs)
	assert.Equal(t, 19*60, *j.ScheduledSecs)
	require.NotNil(t, j.RealtimeSecs)
	assert.Equal(t, 19*60-60, *j.RealtimeSecs)
	require.NotNil(t, j.DeltaSecs)
	assert.Equal(t, -60, *j.DeltaSecs)
}

func testTripItineraryUnparseableTimes(t *testing.T, backend string) {
	service, f, _ := testService(t, backend)

	f.AddStop("A", "Alpha", 1, 1)
	f.AddStop("B", "Bravo", 2, 2)
	f.AddRoute("R", "r")
	f.AddTrip(model.Trip{ID: "t1", RouteID: "R", ServiceID: "daily", DirectionID: 0})
	f.AddStopTime("t1", "A", 1, "08:00:00", "")
	f.AddStopTime("t1", "B", 2, "08:10:00", "08:11:00")

	details, err := service.TripItinerary("t1", Marker{StopID: "A"}, Marker{StopID: "B"})
	require.NoError(t, err)

	// The malformed departure yields no realtime field and collapses the
	// journey durations.
	assert.Equal(t, "", details.Stops[0].RealtimeDeparture)
	assert.Equal(t, "08:00:00", details.Stops[0].RealtimeArrival)

	require.NotNil(t, details.Journey)
	assert.Nil(t, details.Journey.ScheduledSecs)
	assert.Nil(t, details.Journey.RealtimeSecs)
	assert.Nil(t, details.Journey.DeltaSecs)
}

func TestTrip(t *testing.T) {
	for _, test := range []struct {
		Name string
		Test func(t *testing.T, backend string)
	}{
		{"Itinerary", testTripItinerary},
		{"UnknownTrip", testTripItineraryUnknownTrip},
		{"Journey", testTripItineraryJourney},
		{"SequencePriority", testTripItinerarySequencePriority},
		{"ToBeforeFrom", testTripItineraryToBeforeFrom},
		{"SingleMarker", testTripItinerarySingleMarker},
		{"DelaySubstitution", testTripItineraryDelaySubstitution},
		{"UnparseableTimes", testTripItineraryUnparseableTimes},
	} {
		for _, backend := range testutil.Backends() {
			t.Run(fmt.Sprintf("%s %s", test.Name, backend), func(t *testing.T) {
				test.Test(t, backend)
			})
		}
	}
}
