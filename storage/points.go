package storage

import (
	"fmt"

	"github.com/twpayne/go-polyline"

	"tramway.dev/transit/model"
)

// Generated shape point lists are persisted as encoded polylines.

func encodePoints(points []model.Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

func decodePoints(encoded string) ([]model.Point, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding points: %w", err)
	}

	points := make([]model.Point, len(coords))
	for i, c := range coords {
		points[i] = model.Point{Lat: c[0], Lon: c[1]}
	}
	return points, nil
}
