package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// DecodePolyline decodes a Google encoded polyline (precision 1e5) such as a
// directions overview_polyline.
func DecodePolyline(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	pairs, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	out := make([]Coordinate, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			return nil, fmt.Errorf("decode polyline: point with %d values", len(p))
		}
		out = append(out, Coordinate{Lat: p[0], Lng: p[1]})
	}
	return out, nil
}
