// Package geo holds the coordinate types shared by the editor and the conversions
// between the editor's {lat,lng} form and the backend's [lng,lat] wire form.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Coordinate is a WGS84 position as the map front-end reports it.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LngLat is the backend's on-the-wire pair order.
type LngLat [2]float64

func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Point returns the orb point (x=lng, y=lat).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

func FromLngLat(p LngLat) Coordinate {
	return Coordinate{Lat: p[1], Lng: p[0]}
}

func ToLngLat(c Coordinate) LngLat {
	return LngLat{c.Lng, c.Lat}
}

func FromLngLats(in []LngLat) []Coordinate {
	if len(in) == 0 {
		return nil
	}
	out := make([]Coordinate, 0, len(in))
	for _, p := range in {
		out = append(out, FromLngLat(p))
	}
	return out
}

func ToLngLats(in []Coordinate) []LngLat {
	out := make([]LngLat, 0, len(in))
	for _, c := range in {
		out = append(out, ToLngLat(c))
	}
	return out
}

func LineString(points []Coordinate) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, c := range points {
		ls = append(ls, c.Point())
	}
	return ls
}

// Bounds is the lng/lat box around points. It is empty for no points.
func Bounds(points []Coordinate) orb.Bound {
	if len(points) == 0 {
		return orb.Bound{}
	}
	return LineString(points).Bound()
}

// ParseBBox reads "minLng,minLat,maxLng,maxLat", the order map clients send.
func ParseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox needs 4 values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox value %d: %w", i+1, err)
		}
		v[i] = f
	}
	lo := Coordinate{Lng: v[0], Lat: v[1]}
	hi := Coordinate{Lng: v[2], Lat: v[3]}
	if !lo.Valid() || !hi.Valid() || lo.Lng > hi.Lng || lo.Lat > hi.Lat {
		return orb.Bound{}, fmt.Errorf("bbox %q is out of range", s)
	}
	return orb.Bound{Min: lo.Point(), Max: hi.Point()}, nil
}

// Length is the great-circle length of the path in meters.
func Length(points []Coordinate) float64 {
	if len(points) < 2 {
		return 0
	}
	return geo.LengthHaversine(LineString(points))
}

// Distance is the great-circle distance between two coordinates in meters.
func Distance(a, b Coordinate) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// Clone copies a coordinate slice; nil stays nil.
func Clone(points []Coordinate) []Coordinate {
	if points == nil {
		return nil
	}
	out := make([]Coordinate, len(points))
	copy(out, points)
	return out
}
