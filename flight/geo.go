package flight

import (
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0

	// kmPerDegreeLat is the flat approximation used to size bounding boxes.
	kmPerDegreeLat = 111.0
)

// Region is the area of interest: a center point and a radius.
type Region struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	RadiusKm  float64 `json:"radius_km"`
}

// BoundingBox is a lat/lon rectangle in degrees.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// String formats the box in the provider's "N,S,W,E" query order.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", b.North, b.South, b.West, b.East)
}

// Contains reports whether a point lies inside the box (edges inclusive).
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat <= b.North && lat >= b.South && lon >= b.West && lon <= b.East
}

// Bounds derives the bounding box from the center and radius, using 111 km
// per degree of latitude and a cosine correction for longitude.
func (r Region) Bounds() BoundingBox {
	kmPerDegreeLon := kmPerDegreeLat * math.Cos(r.CenterLat*math.Pi/180)
	latDelta := r.RadiusKm / kmPerDegreeLat
	lonDelta := r.RadiusKm / kmPerDegreeLon

	return BoundingBox{
		North: r.CenterLat + latDelta,
		South: r.CenterLat - latDelta,
		West:  r.CenterLon - lonDelta,
		East:  r.CenterLon + lonDelta,
	}
}

// DistanceKm returns the great-circle distance from the region center.
func (r Region) DistanceKm(lat, lon float64) float64 {
	return HaversineKm(r.CenterLat, r.CenterLon, lat, lon)
}

// HaversineKm returns the great-circle distance between two points in
// kilometers, rounded to one decimal place.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusKm*c*10) / 10
}
