package transit

import (
	"fmt"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tramway.dev/transit/clock"
	"tramway.dev/transit/metrics"
	"tramway.dev/transit/model"
	"tramway.dev/transit/testutil"
)

func testActiveServices(t *testing.T, backend string) {
	service, f, _ := testService(t, backend)

	f.AddCalendar("weekday", "20200101", "20200131",
		1<<time.Monday|1<<time.Tuesday|1<<time.Wednesday|1<<time.Thursday|1<<time.Friday)
	f.AddCalendarDate("weekday", "20200106", model.ExceptionRemoved)
	f.AddCalendarDate("special", "20200104", model.ExceptionAdded)

	services, err := service.ActiveServices("20200107")
	require.NoError(t, err)
	assert.Equal(t, []string{"weekday"}, services)

	services, err = service.ActiveServices("20200106")
	require.NoError(t, err)
	assert.Equal(t, []string{}, services)

	services, err = service.ActiveServices("20200104")
	require.NoError(t, err)
	assert.Equal(t, []string{"special"}, services)

	_, err = service.ActiveServices("2020-01-07")
	assert.ErrorIs(t, err, ErrBadInput)

	_, err = service.ActiveServices("")
	assert.ErrorIs(t, err, ErrBadInput)
}

func testRouteDirections(t *testing.T, backend string) {
	service, f, _ := testService(t, backend)

	f.AddStop("s1", "First", 1, 1)
	f.AddTrip(model.Trip{ID: "t1", RouteID: "R", ServiceID: "svc", Headsign: "North", DirectionID: 0})
	f.AddTrip(model.Trip{ID: "t2", RouteID: "R", ServiceID: "svc", Headsign: "South", DirectionID: 1})
	f.AddStopTime("t1", "s1", 1, "08:00:00", "08:00:00")
	f.AddStopTime("t2", "s1", 1, "09:00:00", "09:00:00")

	rds, err := service.RouteDirections("s1")
	require.NoError(t, err)
	require.Len(t, rds, 2)
	assert.Equal(t, []string{"North"}, rds[0].Headsigns)
	assert.Equal(t, []string{"South"}, rds[1].Headsigns)

	_, err = service.RouteDirections("")
	assert.ErrorIs(t, err, ErrBadInput)
}

func testNearbyStops(t *testing.T, backend string) {
	service, f, _ := testService(t, backend)

	f.AddStop("far", "Far", 10, 10)
	f.AddStop("near", "Near", 1, 1)

	stops, err := service.NearbyStops(0, 0, 1)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "near", stops[0].ID)
}

func TestServiceRecordsMetrics(t *testing.T) {
	f := testutil.NewFixture(t, "sqlite")
	m := metrics.New()
	service := NewService(f.Store, WithClock(clock.NewMock(monday)), WithMetrics(m))

	f.AddStop("s1", "First", 1, 1)
	f.AddRoute("R", "r")
	f.AddCalendar("monday", "20200101", "20201231", 1<<time.Monday)
	addDepartureTrip(f, "t1", "monday", "08:30:00")

	_, err := service.NextDepartures("s1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.DepartureQueries))

	f.AddTrip(model.Trip{ID: "t_stops", RouteID: "Z", ServiceID: "svc", DirectionID: 0})
	f.AddStopTime("t_stops", "s1", 1, "08:00:00", "08:00:00")

	_, err = service.ShapeForTrip("t_stops")
	require.NoError(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ShapeResolutions.WithLabelValues("stops")))
}

func TestService(t *testing.T) {
	for _, test := range []struct {
		Name string
		Test func(t *testing.T, backend string)
	}{
		{"ActiveServices", testActiveServices},
		{"RouteDirections", testRouteDirections},
		{"NearbyStops", testNearbyStops},
	} {
		for _, backend := range testutil.Backends() {
			t.Run(fmt.Sprintf("%s %s", test.Name, backend), func(t *testing.T) {
				test.Test(t, backend)
			})
		}
	}
}
