// Package distance computes great-circle distances between coordinate pairs.
package distance

import (
	"fmt"
	"math"

	"github.com/kass/go-geo-grid/pkg/models"
)

// EarthRadiusKm is the sphere radius used for all distances.
const EarthRadiusKm = 6367.0

// ErrShapeMismatch is returned by Haversine when the input slices differ in length.
var ErrShapeMismatch = models.ErrShapeMismatch

const degToRad = math.Pi / 180.0

// Distance returns the haversine distance in kilometers between
// (lon1, lat1) and (lon2, lat2), all in decimal degrees.
func Distance(lon1, lat1, lon2, lat2 float64) float64 {
	lon1Rad := lon1 * degToRad
	lat1Rad := lat1 * degToRad
	lon2Rad := lon2 * degToRad
	lat2Rad := lat2 * degToRad

	dLon := lon2Rad - lon1Rad
	dLat := lat2Rad - lat1Rad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon

	// Rounding can push a just outside [0, 1] where asin is undefined.
	a = math.Max(0, math.Min(1, a))

	c := 2 * math.Asin(math.Sqrt(a))
	return EarthRadiusKm * c
}

// Haversine computes Distance element-wise over four equal-length slices.
// Inputs are never broadcast: any length mismatch is an error.
func Haversine(lon1, lat1, lon2, lat2 []float64) ([]float64, error) {
	n := len(lon1)
	if len(lat1) != n || len(lon2) != n || len(lat2) != n {
		return nil, fmt.Errorf("%w: lon1=%d lat1=%d lon2=%d lat2=%d",
			ErrShapeMismatch, len(lon1), len(lat1), len(lon2), len(lat2))
	}

	km := make([]float64, n)
	for i := range km {
		km[i] = Distance(lon1[i], lat1[i], lon2[i], lat2[i])
	}
	return km, nil
}
