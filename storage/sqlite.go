package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tramway.dev/transit/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db        *sql.DB
	hasShapes bool
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/transit.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for name, query := range map[string]string{
		"stops": `
CREATE TABLE IF NOT EXISTS stops (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    parent_station TEXT,
    lat REAL NOT NULL,
    lon REAL NOT NULL
);`,
		"routes": `
CREATE TABLE IF NOT EXISTS routes (
    id TEXT PRIMARY KEY,
    short_name TEXT,
    long_name TEXT
);`,
		"trips": `
CREATE TABLE IF NOT EXISTS trips (
    id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    headsign TEXT,
    direction_id INTEGER,
    shape_id TEXT
);
CREATE INDEX IF NOT EXISTS trips_route_id ON trips (route_id);
CREATE INDEX IF NOT EXISTS trips_service_id ON trips (service_id);
`,
		"stop_times": `
CREATE TABLE IF NOT EXISTS stop_times (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    arrival_time TEXT,
    departure_time TEXT
);
CREATE INDEX IF NOT EXISTS stop_times_trip_id ON stop_times (trip_id);
CREATE INDEX IF NOT EXISTS stop_times_stop_id ON stop_times (stop_id);
`,
		"calendar": `
CREATE TABLE IF NOT EXISTS calendar (
    service_id TEXT PRIMARY KEY,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    monday INTEGER NOT NULL,
    tuesday INTEGER NOT NULL,
    wednesday INTEGER NOT NULL,
    thursday INTEGER NOT NULL,
    friday INTEGER NOT NULL,
    saturday INTEGER NOT NULL,
    sunday INTEGER NOT NULL
);`,
		"calendar_dates": `
CREATE TABLE IF NOT EXISTS calendar_dates (
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    exception_type INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS calendar_dates_date ON calendar_dates (date);
`,
		"shapes": `
CREATE TABLE IF NOT EXISTS shapes (
    shape_id TEXT NOT NULL,
    pt_sequence INTEGER NOT NULL,
    lat REAL NOT NULL,
    lon REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS shapes_shape_id ON shapes (shape_id);
`,
		"delay_updates": `
CREATE TABLE IF NOT EXISTS delay_updates (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    arrival_delay INTEGER,
    departure_delay INTEGER,
    created_at INTEGER NOT NULL,
    expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS delay_updates_trip_stop ON delay_updates (trip_id, stop_id);
`,
		"generated_shapes": `
CREATE TABLE IF NOT EXISTS generated_shapes (
    shape_id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL,
    direction_id INTEGER,
    points TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS generated_shapes_route ON generated_shapes (route_id);
`,
	} {
		_, err = db.Exec(query)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating %s table: %w", name, err)
		}
	}

	// Shape geometry presence is resolved once here, not re-probed per
	// request.
	var hasShapes bool
	err = db.QueryRow(`SELECT EXISTS (SELECT 1 FROM shapes)`).Scan(&hasShapes)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("probing shape geometry: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db:        db,
		hasShapes: hasShapes,
	}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) HasShapeGeometry() bool {
	return s.hasShapes
}

// weekdayColumn maps a weekday to its calendar table column. The column
// name never comes from caller input.
func weekdayColumn(day time.Weekday) string {
	switch day {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	}
	return "sunday"
}

func (s *SQLiteStorage) ActiveServices(date string) ([]string, error) {
	parsedDate, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", date)
	}

	weekday := weekdayColumn(parsedDate.Weekday())

	rows, err := s.db.Query(`
WITH
Exceptions AS (
	SELECT service_id, exception_type
	FROM calendar_dates
	WHERE date = ?
),
Regular AS (
	SELECT service_id
	FROM calendar
	WHERE `+weekday+` = 1 AND
	      start_date <= ? AND
	      end_date >= ?
)
SELECT service_id
FROM Regular
WHERE service_id NOT IN (
	SELECT service_id FROM Exceptions WHERE exception_type = 2
)
UNION
SELECT service_id
FROM Exceptions
WHERE exception_type = 1
`, date, date, date)
	if err != nil {
		return nil, fmt.Errorf("querying for active services: %w", err)
	}
	defer rows.Close()

	activeServices := []string{}
	for rows.Next() {
		var serviceID string
		err = rows.Scan(&serviceID)
		if err != nil {
			return nil, fmt.Errorf("scanning active services: %w", err)
		}
		activeServices = append(activeServices, serviceID)
	}

	return activeServices, nil
}

// Column list shared by StopEvents and TripEvents. The delays join picks
// the authoritative update per (trip, stop): greatest created_at among
// non-expired rows.
const sqliteEventColumns = `
    stops.id,
    stops.name,
    stops.parent_station,
    stops.lat,
    stops.lon,
    stop_times.trip_id,
    stop_times.stop_id,
    stop_times.stop_sequence,
    stop_times.arrival_time,
    stop_times.departure_time,
    trips.id,
    trips.route_id,
    trips.service_id,
    trips.headsign,
    trips.direction_id,
    trips.shape_id,
    routes.short_name,
    routes.long_name,
    delays.arrival_delay,
    delays.departure_delay,
    delays.created_at,
    delays.expires_at`

const sqliteDelayJoin = `
LEFT OUTER JOIN (
    SELECT u.trip_id, u.stop_id, u.arrival_delay, u.departure_delay, u.created_at, u.expires_at
    FROM delay_updates u
    INNER JOIN (
        SELECT trip_id, stop_id, MAX(created_at) AS max_created
        FROM delay_updates
        WHERE %s AND (expires_at IS NULL OR expires_at > ?)
        GROUP BY trip_id, stop_id
    ) latest ON u.trip_id = latest.trip_id AND
                u.stop_id = latest.stop_id AND
                u.created_at = latest.max_created
) delays ON delays.trip_id = stop_times.trip_id AND delays.stop_id = stop_times.stop_id`

func (s *SQLiteStorage) StopEvents(stopID string, serviceIDs []string, now int64) ([]*StopEvent, error) {
	if len(serviceIDs) == 0 {
		return []*StopEvent{}, nil
	}

	query := `
SELECT` + sqliteEventColumns + `
FROM stop_times
INNER JOIN stops ON stop_times.stop_id = stops.id
INNER JOIN trips ON stop_times.trip_id = trips.id
LEFT OUTER JOIN routes ON trips.route_id = routes.id` +
		fmt.Sprintf(sqliteDelayJoin, "stop_id = ?") + `
WHERE stop_times.stop_id = ? AND trips.service_id IN (` + questionMarks(len(serviceIDs)) + `)`

	args := []interface{}{stopID, now, stopID}
	args = append(args, stringArgs(serviceIDs)...)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying for stop events: %w", err)
	}
	defer rows.Close()

	return scanStopEvents(rows)
}

func (s *SQLiteStorage) TripEvents(tripID string, now int64) ([]*StopEvent, error) {
	query := `
SELECT` + sqliteEventColumns + `
FROM stop_times
INNER JOIN stops ON stop_times.stop_id = stops.id
INNER JOIN trips ON stop_times.trip_id = trips.id
LEFT OUTER JOIN routes ON trips.route_id = routes.id` +
		fmt.Sprintf(sqliteDelayJoin, "trip_id = ?") + `
WHERE stop_times.trip_id = ?
ORDER BY stop_times.stop_sequence`

	rows, err := s.db.Query(query, tripID, now, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying for trip events: %w", err)
	}
	defer rows.Close()

	return scanStopEvents(rows)
}

func scanStopEvents(rows *sql.Rows) ([]*StopEvent, error) {
	events := []*StopEvent{}
	for rows.Next() {
		stop := model.Stop{}
		stopTime := model.StopTime{}
		trip := model.Trip{}
		route := model.Route{}

		var parentStation, arrival, departure sql.NullString
		var headsign, shapeID, routeShort, routeLong sql.NullString
		var direction sql.NullInt64
		var arrivalDelay, departureDelay, createdAt, expiresAt sql.NullInt64

		err := rows.Scan(
			&stop.ID,
			&stop.Name,
			&parentStation,
			&stop.Lat,
			&stop.Lon,
			&stopTime.TripID,
			&stopTime.StopID,
			&stopTime.StopSequence,
			&arrival,
			&departure,
			&trip.ID,
			&trip.RouteID,
			&trip.ServiceID,
			&headsign,
			&direction,
			&shapeID,
			&routeShort,
			&routeLong,
			&arrivalDelay,
			&departureDelay,
			&createdAt,
			&expiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop event: %w", err)
		}

		stop.ParentStation = parentStation.String
		stopTime.Arrival = arrival.String
		stopTime.Departure = departure.String
		trip.Headsign = headsign.String
		trip.ShapeID = shapeID.String
		trip.DirectionID = nullableDirection(direction)
		route.ID = trip.RouteID
		route.ShortName = routeShort.String
		route.LongName = routeLong.String

		event := &StopEvent{
			Stop:     stop,
			StopTime: stopTime,
			Trip:     trip,
			Route:    route,
		}

		if createdAt.Valid {
			event.Delay = &model.DelayUpdate{
				TripID:         stopTime.TripID,
				StopID:         stopTime.StopID,
				ArrivalDelay:   nullableInt(arrivalDelay),
				DepartureDelay: nullableInt(departureDelay),
				CreatedAt:      createdAt.Int64,
				ExpiresAt:      nullableInt64(expiresAt),
			}
		}

		events = append(events, event)
	}

	return events, nil
}

func (s *SQLiteStorage) Trip(tripID string) (*model.Trip, error) {
	trip := model.Trip{}
	var headsign, shapeID sql.NullString
	var direction sql.NullInt64

	err := s.db.QueryRow(`
SELECT id, route_id, service_id, headsign, direction_id, shape_id
FROM trips
WHERE id = ?`, tripID).Scan(
		&trip.ID,
		&trip.RouteID,
		&trip.ServiceID,
		&headsign,
		&direction,
		&shapeID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying trip: %w", err)
	}

	trip.Headsign = headsign.String
	trip.ShapeID = shapeID.String
	trip.DirectionID = nullableDirection(direction)

	return &trip, nil
}

func (s *SQLiteStorage) RouteDirections(stopID string) ([]*model.RouteDirection, error) {
	rows, err := s.db.Query(`
SELECT trips.route_id, trips.direction_id, trips.headsign
FROM stop_times
INNER JOIN trips ON trips.id = stop_times.trip_id
WHERE stop_times.stop_id = ?`, stopID)
	if err != nil {
		return nil, fmt.Errorf("querying for route directions: %w", err)
	}
	defer rows.Close()

	type key struct {
		RouteID     string
		DirectionID int8
	}

	deduped := map[key]map[string]bool{}
	for rows.Next() {
		var routeID string
		var direction sql.NullInt64
		var headsign sql.NullString
		err = rows.Scan(&routeID, &direction, &headsign)
		if err != nil {
			return nil, fmt.Errorf("scanning route directions: %w", err)
		}

		key := key{
			RouteID:     routeID,
			DirectionID: nullableDirection(direction),
		}
		if _, ok := deduped[key]; !ok {
			deduped[key] = map[string]bool{}
		}
		if headsign.String != "" {
			deduped[key][headsign.String] = true
		}
	}

	routeDirections := []*model.RouteDirection{}
	for key, headsignSet := range deduped {
		headsigns := []string{}
		for headsign := range headsignSet {
			headsigns = append(headsigns, headsign)
		}
		sort.Strings(headsigns)
		routeDirections = append(routeDirections, &model.RouteDirection{
			StopID:      stopID,
			RouteID:     key.RouteID,
			DirectionID: key.DirectionID,
			Headsigns:   headsigns,
		})
	}

	sort.Slice(routeDirections, func(i, j int) bool {
		if routeDirections[i].RouteID != routeDirections[j].RouteID {
			return routeDirections[i].RouteID < routeDirections[j].RouteID
		}
		return routeDirections[i].DirectionID < routeDirections[j].DirectionID
	})

	return routeDirections, nil
}

func (s *SQLiteStorage) NearbyStops(lat float64, lon float64, limit int) ([]model.Stop, error) {
	rows, err := s.db.Query(`
SELECT id, name, parent_station, lat, lon
FROM stops`)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []model.Stop{}
	for rows.Next() {
		stop := model.Stop{}
		var parentStation sql.NullString
		err = rows.Scan(&stop.ID, &stop.Name, &parentStation, &stop.Lat, &stop.Lon)
		if err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		stop.ParentStation = parentStation.String
		stops = append(stops, stop)
	}

	sort.SliceStable(stops, func(i, j int) bool {
		di := HaversineDistance(lat, lon, stops[i].Lat, stops[i].Lon)
		dj := HaversineDistance(lat, lon, stops[j].Lat, stops[j].Lon)
		return di < dj
	})

	if limit > 0 && len(stops) > limit {
		stops = stops[:limit]
	}

	return stops, nil
}

func (s *SQLiteStorage) ShapePoints(shapeID string) ([]model.Point, error) {
	rows, err := s.db.Query(`
SELECT lat, lon
FROM shapes
WHERE shape_id = ?
ORDER BY pt_sequence`, shapeID)
	if err != nil {
		return nil, fmt.Errorf("querying shape points: %w", err)
	}
	defer rows.Close()

	points := []model.Point{}
	for rows.Next() {
		var p model.Point
		err = rows.Scan(&p.Lat, &p.Lon)
		if err != nil {
			return nil, fmt.Errorf("scanning shape point: %w", err)
		}
		points = append(points, p)
	}

	return points, nil
}

func (s *SQLiteStorage) PreferredShapeID(routeID string, directionID int8) (string, error) {
	query := `
SELECT shape_id
FROM trips
WHERE route_id = ? AND shape_id IS NOT NULL AND shape_id != ''`
	args := []interface{}{routeID}

	if directionID == model.DirectionUnset {
		query += ` AND direction_id IS NULL`
	} else {
		query += ` AND direction_id = ?`
		args = append(args, directionID)
	}

	query += `
GROUP BY shape_id
ORDER BY COUNT(*) DESC
LIMIT 1`

	var shapeID string
	err := s.db.QueryRow(query, args...).Scan(&shapeID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying preferred shape: %w", err)
	}

	return shapeID, nil
}

func (s *SQLiteStorage) GeneratedShape(shapeID string) (*model.GeneratedShape, error) {
	row := s.db.QueryRow(`
SELECT shape_id, route_id, direction_id, points, created_at
FROM generated_shapes
WHERE shape_id = ?`, shapeID)

	return scanGeneratedShape(row)
}

func (s *SQLiteStorage) GeneratedShapeForRoute(routeID string, directionID int8) (*model.GeneratedShape, error) {
	query := `
SELECT shape_id, route_id, direction_id, points, created_at
FROM generated_shapes
WHERE route_id = ?`
	args := []interface{}{routeID}

	if directionID == model.DirectionUnset {
		query += ` AND direction_id IS NULL`
	} else {
		query += ` AND direction_id = ?`
		args = append(args, directionID)
	}

	return scanGeneratedShape(s.db.QueryRow(query, args...))
}

func scanGeneratedShape(row *sql.Row) (*model.GeneratedShape, error) {
	gs := model.GeneratedShape{}
	var direction sql.NullInt64
	var encoded string

	err := row.Scan(&gs.ShapeID, &gs.RouteID, &direction, &encoded, &gs.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning generated shape: %w", err)
	}

	gs.DirectionID = nullableDirection(direction)
	gs.Points, err = decodePoints(encoded)
	if err != nil {
		return nil, err
	}

	return &gs, nil
}

func (s *SQLiteStorage) ListGeneratedShapes() ([]*model.GeneratedShape, error) {
	rows, err := s.db.Query(`
SELECT shape_id, route_id, direction_id, points, created_at
FROM generated_shapes
ORDER BY route_id, shape_id`)
	if err != nil {
		return nil, fmt.Errorf("listing generated shapes: %w", err)
	}
	defer rows.Close()

	shapes := []*model.GeneratedShape{}
	for rows.Next() {
		gs := model.GeneratedShape{}
		var direction sql.NullInt64
		var encoded string
		err = rows.Scan(&gs.ShapeID, &gs.RouteID, &direction, &encoded, &gs.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning generated shape: %w", err)
		}
		gs.DirectionID = nullableDirection(direction)
		gs.Points, err = decodePoints(encoded)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, &gs)
	}

	return shapes, nil
}

func (s *SQLiteStorage) RouteDirectionPairs() ([]RouteDirectionPair, error) {
	rows, err := s.db.Query(`
SELECT DISTINCT route_id, direction_id
FROM trips
ORDER BY route_id`)
	if err != nil {
		return nil, fmt.Errorf("querying route direction pairs: %w", err)
	}
	defer rows.Close()

	pairs := []RouteDirectionPair{}
	for rows.Next() {
		var routeID string
		var direction sql.NullInt64
		err = rows.Scan(&routeID, &direction)
		if err != nil {
			return nil, fmt.Errorf("scanning route direction pair: %w", err)
		}
		pairs = append(pairs, RouteDirectionPair{
			RouteID:     routeID,
			DirectionID: nullableDirection(direction),
		})
	}

	return pairs, nil
}

func (s *SQLiteStorage) BusiestTrip(routeID string, directionID int8) (string, error) {
	query := `
SELECT stop_times.trip_id
FROM stop_times
INNER JOIN trips ON stop_times.trip_id = trips.id
WHERE trips.route_id = ?`
	args := []interface{}{routeID}

	if directionID == model.DirectionUnset {
		query += ` AND trips.direction_id IS NULL`
	} else {
		query += ` AND trips.direction_id = ?`
		args = append(args, directionID)
	}

	query += `
GROUP BY stop_times.trip_id
ORDER BY COUNT(*) DESC
LIMIT 1`

	var tripID string
	err := s.db.QueryRow(query, args...).Scan(&tripID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying busiest trip: %w", err)
	}

	return tripID, nil
}

func (s *SQLiteStorage) TripPath(tripID string) ([]model.Point, error) {
	rows, err := s.db.Query(`
SELECT stops.lat, stops.lon
FROM stop_times
INNER JOIN stops ON stop_times.stop_id = stops.id
WHERE stop_times.trip_id = ?
ORDER BY stop_times.stop_sequence`, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying trip path: %w", err)
	}
	defer rows.Close()

	points := []model.Point{}
	for rows.Next() {
		var p model.Point
		err = rows.Scan(&p.Lat, &p.Lon)
		if err != nil {
			return nil, fmt.Errorf("scanning trip path point: %w", err)
		}
		points = append(points, p)
	}

	return points, nil
}

func (s *SQLiteStorage) WriteStop(stop model.Stop) error {
	_, err := s.db.Exec(`
INSERT INTO stops (id, name, parent_station, lat, lon)
VALUES (?, ?, ?, ?, ?)`,
		stop.ID,
		stop.Name,
		stop.ParentStation,
		stop.Lat,
		stop.Lon,
	)
	if err != nil {
		return fmt.Errorf("inserting stop: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteRoute(route model.Route) error {
	_, err := s.db.Exec(`
INSERT INTO routes (id, short_name, long_name)
VALUES (?, ?, ?)`,
		route.ID,
		route.ShortName,
		route.LongName,
	)
	if err != nil {
		return fmt.Errorf("inserting route: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteTrip(trip model.Trip) error {
	_, err := s.db.Exec(`
INSERT INTO trips (id, route_id, service_id, headsign, direction_id, shape_id)
VALUES (?, ?, ?, ?, ?, ?)`,
		trip.ID,
		trip.RouteID,
		trip.ServiceID,
		trip.Headsign,
		directionValue(trip.DirectionID),
		trip.ShapeID,
	)
	if err != nil {
		return fmt.Errorf("inserting trip: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteStopTime(stopTime model.StopTime) error {
	_, err := s.db.Exec(`
INSERT INTO stop_times (trip_id, stop_id, stop_sequence, arrival_time, departure_time)
VALUES (?, ?, ?, ?, ?)`,
		stopTime.TripID,
		stopTime.StopID,
		stopTime.StopSequence,
		stopTime.Arrival,
		stopTime.Departure,
	)
	if err != nil {
		return fmt.Errorf("inserting stop_time: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteCalendar(cal model.Calendar) error {
	days := weekdayFlags(cal.Weekday)
	_, err := s.db.Exec(`
INSERT INTO calendar (service_id, start_date, end_date, monday, tuesday, wednesday, thursday, friday, saturday, sunday)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cal.ServiceID,
		cal.StartDate,
		cal.EndDate,
		days[time.Monday],
		days[time.Tuesday],
		days[time.Wednesday],
		days[time.Thursday],
		days[time.Friday],
		days[time.Saturday],
		days[time.Sunday],
	)
	if err != nil {
		return fmt.Errorf("inserting calendar: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteCalendarDate(cd model.CalendarDate) error {
	_, err := s.db.Exec(`
INSERT INTO calendar_dates (service_id, date, exception_type)
VALUES (?, ?, ?)`,
		cd.ServiceID,
		cd.Date,
		cd.ExceptionType,
	)
	if err != nil {
		return fmt.Errorf("inserting calendar date: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteShapePoint(pt model.ShapePoint) error {
	_, err := s.db.Exec(`
INSERT INTO shapes (shape_id, pt_sequence, lat, lon)
VALUES (?, ?, ?, ?)`,
		pt.ShapeID,
		pt.Sequence,
		pt.Lat,
		pt.Lon,
	)
	if err != nil {
		return fmt.Errorf("inserting shape point: %w", err)
	}

	s.hasShapes = true
	return nil
}

func (s *SQLiteStorage) WriteDelayUpdate(upd model.DelayUpdate) error {
	_, err := s.db.Exec(`
INSERT INTO delay_updates (trip_id, stop_id, arrival_delay, departure_delay, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		upd.TripID,
		upd.StopID,
		intValue(upd.ArrivalDelay),
		intValue(upd.DepartureDelay),
		upd.CreatedAt,
		int64Value(upd.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("inserting delay update: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteGeneratedShape(gs model.GeneratedShape) error {
	_, err := s.db.Exec(`
INSERT INTO generated_shapes (shape_id, route_id, direction_id, points, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (shape_id) DO UPDATE SET
    route_id = excluded.route_id,
    direction_id = excluded.direction_id,
    points = excluded.points,
    created_at = excluded.created_at`,
		gs.ShapeID,
		gs.RouteID,
		directionValue(gs.DirectionID),
		encodePoints(gs.Points),
		gs.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting generated shape: %w", err)
	}
	return nil
}

func weekdayFlags(mask int8) map[time.Weekday]int {
	days := map[time.Weekday]int{}
	for day := time.Sunday; day <= time.Saturday; day++ {
		if mask&(1<<day) != 0 {
			days[day] = 1
		}
	}
	return days
}

func directionValue(directionID int8) interface{} {
	if directionID == model.DirectionUnset {
		return nil
	}
	return directionID
}

func intValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func int64Value(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDirection(v sql.NullInt64) int8 {
	if !v.Valid {
		return model.DirectionUnset
	}
	return int8(v.Int64)
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
