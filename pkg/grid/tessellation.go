// Package grid partitions a bounding box into a uniform size×size grid,
// maps coordinates onto its cells and aggregates per-cell counts.
//
// A Tessellation is immutable once built and may be shared between goroutines.
package grid

import (
	"errors"
	"fmt"

	"github.com/kass/go-geo-grid/pkg/models"
)

// Column names written by MapFrame and read by Occurrences.
const (
	ColumnGridX = "grid_x"
	ColumnGridY = "grid_y"
)

var (
	// ErrInvalidBoundingBox is returned by New for an inverted or empty box.
	ErrInvalidBoundingBox = models.ErrInvalidBoundingBox
	// ErrInvalidSize is returned by New when size < 1.
	ErrInvalidSize = errors.New("grid size must be at least 1")
	// ErrMissingColumn is returned when grid or coordinate columns are absent.
	ErrMissingColumn = models.ErrMissingColumn
	// ErrShapeMismatch is returned when coordinate slices differ in length.
	ErrShapeMismatch = models.ErrShapeMismatch
	// ErrCellOutOfRange is returned when a cell index lies outside the grid.
	ErrCellOutOfRange = errors.New("cell out of range")
)

// Tessellation is a uniform rectangular grid over a bounding box.
type Tessellation struct {
	box   models.BoundingBox
	size  int
	xs    []float64 // size+1 longitude boundaries
	ys    []float64 // size+1 latitude boundaries
	xStep float64
	yStep float64
}

// New builds a size×size tessellation of the box [minLon,maxLon]×[minLat,maxLat].
func New(minLon, minLat, maxLon, maxLat float64, size int) (*Tessellation, error) {
	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: minLat, Lon: minLon},
		TopRight:   models.Location{Lat: maxLat, Lon: maxLon},
	}
	return NewFromBox(box, size)
}

// NewFromBox is New for an existing bounding box.
func NewFromBox(box models.BoundingBox, size int) (*Tessellation, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}

	xs := linspace(box.BottomLeft.Lon, box.TopRight.Lon, size+1)
	ys := linspace(box.BottomLeft.Lat, box.TopRight.Lat, size+1)

	return &Tessellation{
		box:   box,
		size:  size,
		xs:    xs,
		ys:    ys,
		xStep: xs[1] - xs[0],
		yStep: ys[1] - ys[0],
	}, nil
}

// linspace returns num evenly spaced values from start to stop inclusive.
// The last value is exactly stop.
func linspace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	n := float64(num - 1)
	for i := range out {
		f := float64(i) / n
		out[i] = start*(1-f) + stop*f
	}
	out[num-1] = stop
	return out
}

// Size returns the number of cells along each axis.
func (t *Tessellation) Size() int {
	return t.size
}

// Cells returns the total number of cells, size*size.
func (t *Tessellation) Cells() int {
	return t.size * t.size
}

// Box returns the tessellated bounding box.
func (t *Tessellation) Box() models.BoundingBox {
	return t.box
}

// XStep returns the cell width in degrees of longitude.
func (t *Tessellation) XStep() float64 {
	return t.xStep
}

// YStep returns the cell height in degrees of latitude.
func (t *Tessellation) YStep() float64 {
	return t.yStep
}

// XBounds returns a copy of the size+1 longitude boundaries.
func (t *Tessellation) XBounds() []float64 {
	out := make([]float64, len(t.xs))
	copy(out, t.xs)
	return out
}

// YBounds returns a copy of the size+1 latitude boundaries.
func (t *Tessellation) YBounds() []float64 {
	out := make([]float64, len(t.ys))
	copy(out, t.ys)
	return out
}

// CellNumber returns the linear index y*size + x.
func (t *Tessellation) CellNumber(x, y int) int {
	return y*t.size + x
}

// Contains reports whether (x, y) addresses a cell of this grid.
func (t *Tessellation) Contains(x, y int) bool {
	return x >= 0 && x < t.size && y >= 0 && y < t.size
}
