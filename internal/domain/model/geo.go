package model

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type DistanceUnit string

const (
	UnitMiles      DistanceUnit = "mi"
	UnitKilometers DistanceUnit = "km"

	GeoTypePoint = "Point"

	earthRadiusMiles      = 3963.2
	earthRadiusKilometers = 6378.1

	metersToMiles      = 0.0006213
	metersToKilometers = 0.001
)

type (
	// Point is a GeoJSON point. Coordinates are [longitude, latitude].
	Point struct {
		Type        string    `bson:"type" json:"type"`
		Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	}

	Location struct {
		Point       `bson:",inline"`
		Address     string `bson:"address,omitempty" json:"address,omitempty"`
		Description string `bson:"description,omitempty" json:"description,omitempty"`
		Day         int    `bson:"day,omitempty" json:"day,omitempty"`
	}

	// GeoCircle is a spherical cap: a center and a radius in radians.
	GeoCircle struct {
		Center Point
		Radius float64
	}
)

func NewPoint(lat, lng float64) Point {
	return Point{Type: GeoTypePoint, Coordinates: []float64{lng, lat}}
}

func (p Point) Lng() float64 { return p.Coordinates[0] }
func (p Point) Lat() float64 { return p.Coordinates[1] }

func (p Point) validate(field string, errs *ValidationErrors) {
	if p.Type != GeoTypePoint {
		errs.Add(field+".type", "location type must be Point", "invalid")
	}

	if len(p.Coordinates) != 2 {
		errs.Add(field+".coordinates", "coordinates must contain exactly [longitude, latitude]", "invalid")

		return
	}

	if p.Lng() < -180 || p.Lng() > 180 || p.Lat() < -90 || p.Lat() > 90 {
		errs.Add(field+".coordinates", "coordinates are out of range", "out_of_range")
	}
}

// ParseLatLng parses the "lat,lng" path notation.
func ParseLatLng(raw string) (Point, error) {
	latRaw, lngRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return Point{}, NewAppError(http.StatusBadRequest, "Please provide latitude and longitude in the format lat,lng.")
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)

	if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Point{}, NewAppError(http.StatusBadRequest, "Please provide latitude and longitude in the format lat,lng.")
	}

	return NewPoint(lat, lng), nil
}

func ParseDistanceUnit(raw string) (DistanceUnit, error) {
	switch unit := DistanceUnit(raw); unit {
	case UnitMiles, UnitKilometers:
		return unit, nil
	default:
		return "", NewAppError(http.StatusBadRequest, `Invalid unit! Use "mi" for miles or "km" for kilometers.`)
	}
}

// RadiusRadians converts a distance in unit into radians on the earth sphere.
func (u DistanceUnit) RadiusRadians(distance float64) float64 {
	if u == UnitMiles {
		return distance / earthRadiusMiles
	}

	return distance / earthRadiusKilometers
}

// DistanceMultiplier converts meters into unit.
func (u DistanceUnit) DistanceMultiplier() float64 {
	if u == UnitMiles {
		return metersToMiles
	}

	return metersToKilometers
}

func NewGeoCircle(center Point, distance float64, unit DistanceUnit) (GeoCircle, error) {
	if distance <= 0 {
		return GeoCircle{}, NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid distance: %v", distance))
	}

	return GeoCircle{Center: center, Radius: unit.RadiusRadians(distance)}, nil
}
