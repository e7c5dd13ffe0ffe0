// Package geo holds the pure coordinate math used by the event processor:
// modem coordinate-string parsing, great-circle distance and initial bearing.
package geo

import (
	"errors"
	"math"
	"strconv"
)

// ErrInvalidCoordinate is returned when a modem coordinate string cannot be
// parsed into a signed decimal degree value.
var ErrInvalidCoordinate = errors.New("invalid coordinate string")

const earthRadiusMeters = 6371000.0

// ParseCoordinate parses a modem coordinate string such as "N10.12345" or
// "W074.12345". The leading hemisphere letter carries the sign (N/E positive,
// anything else negative); the remainder must parse as a float.
func ParseCoordinate(s string) (float64, error) {
	if len(s) < 3 {
		return 0, ErrInvalidCoordinate
	}
	value, err := strconv.ParseFloat(s[1:], 64)
	if err != nil {
		return 0, ErrInvalidCoordinate
	}
	if s[0] == 'N' || s[0] == 'E' {
		return value, nil
	}
	return -value, nil
}

// Distance returns the haversine great-circle distance in meters between two
// points given in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Bearing returns the initial bearing in whole degrees from the first point
// to the second, normalized to [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) int {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dLambda := radians(lon2 - lon1)

	x := math.Sin(dLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	deg := math.Atan2(x, y) * 180 / math.Pi
	return int(math.Mod(deg+360, 360))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
