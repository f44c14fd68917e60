package transit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tramway.dev/transit/clock"
	"tramway.dev/transit/model"
	"tramway.dev/transit/testutil"
)

// 2020-01-06 is a Monday.
var monday = time.Date(2020, 1, 6, 8, 0, 0, 0, time.UTC)

func testService(t *testing.T, backend string) (*Service, *testutil.Fixture, *clock.Mock) {
	fixture := testutil.NewFixture(t, backend)
	mock := clock.NewMock(monday)
	service := NewService(fixture.Store, WithClock(mock))
	return service, fixture, mock
}

func addDepartureTrip(f *testutil.Fixture, tripID, serviceID, departure string) {
	f.AddTrip(model.Trip{
		ID: tripID, RouteID: "R", ServiceID: serviceID, Headsign: "Downtown", DirectionID: 0,
	})
	f.AddStopTime(tripID, "s1", 1, departure, departure)
}

func testNextDepartures(t *testing.T, backend string) {
	service, f, _ := testService(t, backend)

	f.AddStop("s1", "First", 1, 1)
	f.AddRoute("R", "r")
	f.AddCalendar("monday", "20200101", "20201231", 1<<time.Monday)

	addDepartureTrip(f, "t_0810", "monday", "08:10:00")
	addDepartureTrip(f, "t_0805", "monday", "08:05:00")
	addDepartureTrip(f, "t_0820", "monday", "08:20:00")

	departures, err := service.NextDepartures("s1", DefaultDepartureLimit)
	require.NoError(t, err)
	require.Len(t, departures, 3)

	assert.Equal(t, "t_0805", departures[0].TripID)
	assert.Equal(t, "t_0810", departures[1].TripID)
	assert.Equal(t, "t_0820", departures[2].TripID)

	first := departures[0]
	assert.Equal(t, "s1", first.StopID)
	assert.Equal(t, "First", first.StopName)
	assert.Equal(t, "R", first.RouteID)
	assert.Equal(t, "r", first.RouteShortName)
	assert.Equal(t, "Downtown", first.Headsign)
	assert.Equal(t, "08:05:00", first.ScheduledDeparture)
	assert.Equal(t, "08:05:00", first.RealtimeDeparture)
	assert.False(t, first.RealtimeUpdated)
	assert.Nil(t, first.DelayMinutes)

	departures, err = service.NextDepartures("s1", 2)
	require.NoError(t, err)
	assert.Len(t, departures, 2)

	departures, err = service.NextDepartures("s1", 0)
	require.NoError(t, err)
	assert.Len(t, departures, 0)

	departures, err = service.NextDepartures("s1", -5)
	require.NoError(t, err)
	assert.Len(t, departures, 0)

	_, err = service.NextDepartures("", 10)
	assert.ErrorIs(t, err, ErrBadInput)
}

func testNextDeparturesGraceWindow(t *testing.T, backend string) {
	service, f, _ := testService(t, backend)

	f.AddStop("s1", "First", 1, 1)
	f.AddRoute("R", "r")
	f.AddCalendar("monday", "20200101", "20201231", 1<<time.Monday)

	// Now is 08:00:00. The grace window keeps anything down to 07:59:00.
	addDepartureTrip(f, "t_long_gone", "monday", "07:58:59")
	addDepartureTrip(f, "t_just_missed", "monday", "07:59:00")
	addDepartureTrip(f, "t_upcoming", "monday", "08:01:00")

	departures, err := service.NextDepartures("s1", 10)
	require.NoError(t, err)
	require.Len(t, departures, 2)
	assert.Equal(t, "t_just_missed", departures[0].TripID)
	assert.Equal(t, "t_upcoming", departures[1].TripID)
}

func testNextDeparturesDelays(t *testing.T, backend string) {
	service, f, mock := testService(t, backend)

	f.AddStop("s1", "First", 1, 1)
	f.AddRoute("R", "r")
	f.AddCalendar("monday", "20200101", "20201231", 1<<time.Monday)

	addDepartureTrip(f, "t_dep_delay", "monday", "08:05:00")
	addDepartureTrip(f, "t_arr_delay", "monday", "08:06:00")
	addDepartureTrip(f, "t_zero_delay", "monday", "08:07:00")
	addDepartureTrip(f, "t_early", "monday", "08:08:00")
	addDepartureTrip(f, "t_no_data", "monday", "08:09:00")

	now := mock.Now().Unix()

	// Departure delay wins over arrival delay
	f.AddDelay(model.DelayUpdate{
		TripID: "t_dep_delay", StopID: "s1",
		ArrivalDelay: testutil.Int(600), DepartureDelay: testutil.Int(90),
		CreatedAt: now,
	})
	// Arrival delay is the fallback
	f.AddDelay(model.DelayUpdate{
		TripID: "t_arr_delay", StopID: "s1",
		ArrivalDelay: testutil.Int(120),
		CreatedAt:    now,
	})
	f.AddDelay(model.DelayUpdate{
		TripID: "t_zero_delay", StopID: "s1",
		DepartureDelay: testutil.Int(0),
		CreatedAt:      now,
	})
	// Negative delay means running early
	f.AddDelay(model.DelayUpdate{
		TripID: "t_early", StopID: "s1",
		DepartureDelay: testutil.Int(-30),
		CreatedAt:      now,
	})

	departures, err := service.NextDepartures("s1", 10)
	require.NoError(t, err)
	require.Len(t, departures, 5)

	byTrip := map[string]Departure{}
	for _, d := range departures {
		byTrip[d.TripID] = d
	}

	d := byTrip["t_dep_delay"]
	assert.Equal(t, "08:05:00", d.ScheduledDeparture)
	assert.Equal(t, "08:06:30", d.RealtimeDeparture)
	require.NotNil(t, d.DelayMinutes)
	assert.Equal(t, 1.5, *d.DelayMinutes)
	assert.True(t, d.RealtimeUpdated)

	d = byTrip["t_arr_delay"]
	assert.Equal(t, "08:08:00", d.RealtimeDeparture)
	require.NotNil(t, d.DelayMinutes)
	assert.Equal(t, 2.0, *d.DelayMinutes)
	assert.True(t, d.RealtimeUpdated)

	// A reported delay of zero is still realtime data
	d = byTrip["t_zero_delay"]
	assert.Equal(t, "08:07:00", d.RealtimeDeparture)
	require.NotNil(t, d.DelayMinutes)
	assert.Equal(t, 0.0, *d.DelayMinutes)
	assert.False(t, d.RealtimeUpdated)

	d = byTrip["t_early"]
	assert.Equal(t, "08:07:30", d.RealtimeDeparture)
	require.NotNil(t, d.DelayMinutes)
	assert.Equal(t, -0.5, *d.DelayMinutes)
	assert.True(t, d.RealtimeUpdated)

	// No realtime coverage at all: no delay, not even zero
	d = byTrip["t_no_data"]
	assert.Nil(t, d.DelayMinutes)
	assert.False(t, d.RealtimeUpdated)

	// Sorted by realtime departure, not scheduled
	assert.Equal(t, "t_dep_delay", departures[0].TripID)
	assert.Equal(t, "t_zero_delay", departures[1].TripID)
	assert.Equal(t, "t_early", departures[2].TripID)
	assert.Equal(t, "t_arr_delay", departures[3].TripID)
	assert.Equal(t, "t_no_data", departures[4].TripID)
}

func testNextDeparturesDayRollover(t *testing.T, backend string) {
	service, f, mock := testService(t, backend)

	f.AddStop("s1", "First", 1, 1)
	f.AddRoute("R", "r")

	// Runs Tuesdays only: active tomorrow but not today.
	f.AddCalendar("tuesday", "20200101", "20201231", 1<<time.Tuesday)
	addDepartureTrip(f, "t_early_tomorrow", "tuesday", "00:10:00")

	// Queried Monday at 23:58
	mock.Set(time.Date(2020, 1, 6, 23, 58, 0, 0, time.UTC))

	departures, err := service.NextDepartures("s1", 10)
	require.NoError(t, err)
	require.Len(t, departures, 1)

	d := departures[0]
	assert.Equal(t, "t_early_tomorrow", d.TripID)
	assert.Equal(t, "24:10:00", d.ScheduledDeparture)
	assert.Equal(t, 24*3600+600, d.RealtimeSecs)
}

func testNextDeparturesNoDoubleCount(t *testing.T, backend string) {
	service, f, mock := testService(t, backend)

	f.AddStop("s1", "First", 1, 1)
	f.AddRoute("R", "r")
	f.AddDailyCalendar("daily", "20200101", "20201231")

	// A post-midnight continuation of today's service. Active both today
	// and tomorrow, but must appear exactly once.
	addDepartureTrip(f, "t_overnight", "daily", "24:10:00")

	mock.Set(time.Date(2020, 1, 6, 23, 58, 0, 0, time.UTC))

	departures, err := service.NextDepartures("s1", 10)
	require.NoError(t, err)
	require.Len(t, departures, 1)
	assert.Equal(t, "24:10:00", departures[0].ScheduledDeparture)

	// A pre-midnight trip on an every-day service appears once for
	// today's passed departure being outside the window, and once
	// re-anchored to tomorrow.
	addDepartureTrip(f, "t_morning", "daily", "08:30:00")

	departures, err = service.NextDepartures("s1", 10)
	require.NoError(t, err)
	require.Len(t, departures, 2)
	assert.Equal(t, "t_overnight", departures[0].TripID)
	assert.Equal(t, "t_morning", departures[1].TripID)
	assert.Equal(t, "32:30:00", departures[1].ScheduledDeparture)
}

func testNextDeparturesSkipsUnparseableTimes(t *testing.T, backend string) {
	service, f, _ := testService(t, backend)

	f.AddStop("s1", "First", 1, 1)
	f.AddRoute("R", "r")
	f.AddCalendar("monday", "20200101", "20201231", 1<<time.Monday)

	addDepartureTrip(f, "t_bad", "monday", "not a time")
	addDepartureTrip(f, "t_good", "monday", "08:30:00")

	departures, err := service.NextDepartures("s1", 10)
	require.NoError(t, err)
	require.Len(t, departures, 1)
	assert.Equal(t, "t_good", departures[0].TripID)
}

func TestDepartures(t *testing.T) {
	for _, test := range []struct {
		Name string
		Test func(t *testing.T, backend string)
	}{
		{"NextDepartures", testNextDepartures},
		{"GraceWindow", testNextDeparturesGraceWindow},
		{"Delays", testNextDeparturesDelays},
		{"DayRollover", testNextDeparturesDayRollover},
		{"NoDoubleCount", testNextDeparturesNoDoubleCount},
		{"SkipsUnparseableTimes", testNextDeparturesSkipsUnparseableTimes},
	} {
		for _, backend := range testutil.Backends() {
			t.Run(fmt.Sprintf("%s %s", test.Name, backend), func(t *testing.T) {
				test.Test(t, backend)
			})
		}
	}
}
