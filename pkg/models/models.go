package models

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidBoundingBox is returned when a box has no positive extent on an axis.
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
	// ErrShapeMismatch is returned when parallel inputs differ in length.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrMissingColumn is returned when a required table column is absent.
	ErrMissingColumn = errors.New("missing column")
)

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point represents a single trip sample: an entity ID (e.g. taxi id) and where it was seen
type Point struct {
	ID       string    `json:"id"`
	Location *Location `json:"location"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location `json:"bottom_left"`
	TopRight   Location `json:"top_right"`
}

// NewBoundingBox builds a box from its extents and validates it.
func NewBoundingBox(minLon, minLat, maxLon, maxLat float64) (BoundingBox, error) {
	box := BoundingBox{
		BottomLeft: Location{Lat: minLat, Lon: minLon},
		TopRight:   Location{Lat: maxLat, Lon: maxLon},
	}
	if err := box.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return box, nil
}

// Validate checks min_lon < max_lon and min_lat < max_lat.
func (b BoundingBox) Validate() error {
	// Negated comparisons so NaN fails too.
	if !(b.BottomLeft.Lon < b.TopRight.Lon) {
		return fmt.Errorf("%w: min_lon %v must be less than max_lon %v",
			ErrInvalidBoundingBox, b.BottomLeft.Lon, b.TopRight.Lon)
	}
	if !(b.BottomLeft.Lat < b.TopRight.Lat) {
		return fmt.Errorf("%w: min_lat %v must be less than max_lat %v",
			ErrInvalidBoundingBox, b.BottomLeft.Lat, b.TopRight.Lat)
	}
	if math.IsInf(b.BottomLeft.Lon, 0) || math.IsInf(b.TopRight.Lon, 0) ||
		math.IsInf(b.BottomLeft.Lat, 0) || math.IsInf(b.TopRight.Lat, 0) {
		return fmt.Errorf("%w: extents must be finite", ErrInvalidBoundingBox)
	}
	if math.IsInf(b.TopRight.Lon-b.BottomLeft.Lon, 0) || math.IsInf(b.TopRight.Lat-b.BottomLeft.Lat, 0) {
		return fmt.Errorf("%w: width and height must be finite", ErrInvalidBoundingBox)
	}
	return nil
}

// Contains reports whether loc lies inside the box, edges included.
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon &&
		loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat
}

// Cell addresses one grid slot.
type Cell struct {
	X int `json:"grid_x"`
	Y int `json:"grid_y"`
}

// CellCount is the number of records observed in one grid slot.
// GridNr is grid_y*size + grid_x rendered as a label for display grouping.
type CellCount struct {
	GridX  int    `json:"grid_x"`
	GridY  int    `json:"grid_y"`
	GridNr string `json:"grid_nr"`
	Count  int    `json:"count"`
}
