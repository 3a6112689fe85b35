package grid

import (
	"fmt"

	"github.com/kass/go-geo-grid/pkg/models"
)

// Rect is one grid cell as an axis-aligned rectangle.
type Rect struct {
	X      int
	Y      int
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Corners returns the four corners counter-clockwise from the bottom-left:
// (minLon,minLat), (maxLon,minLat), (maxLon,maxLat), (minLon,maxLat).
func (r Rect) Corners() [4]models.Location {
	return [4]models.Location{
		{Lon: r.MinLon, Lat: r.MinLat},
		{Lon: r.MaxLon, Lat: r.MinLat},
		{Lon: r.MaxLon, Lat: r.MaxLat},
		{Lon: r.MinLon, Lat: r.MaxLat},
	}
}

// Ring returns the corners as a closed [lon, lat] ring, first point repeated last.
func (r Rect) Ring() [][]float64 {
	corners := r.Corners()
	ring := make([][]float64, 0, len(corners)+1)
	for _, c := range corners {
		ring = append(ring, []float64{c.Lon, c.Lat})
	}
	return append(ring, []float64{corners[0].Lon, corners[0].Lat})
}

// Box returns the rectangle as a bounding box.
func (r Rect) Box() models.BoundingBox {
	return models.BoundingBox{
		BottomLeft: models.Location{Lon: r.MinLon, Lat: r.MinLat},
		TopRight:   models.Location{Lon: r.MaxLon, Lat: r.MaxLat},
	}
}

// Polygons returns one rectangle per cell. The outer loop runs over longitude
// (left to right) and the inner loop over latitude (bottom to top), so for a
// 3×3 grid the order on the map is
//
//	3 6 9
//	2 5 8
//	1 4 7
func (t *Tessellation) Polygons() []Rect {
	rects := make([]Rect, 0, t.size*t.size)
	for i := 0; i < t.size; i++ {
		for j := 0; j < t.size; j++ {
			rects = append(rects, t.rect(i, j))
		}
	}
	return rects
}

// CellBounds returns the rectangle of cell (x, y).
func (t *Tessellation) CellBounds(x, y int) (Rect, error) {
	if !t.Contains(x, y) {
		return Rect{}, fmt.Errorf("%w: (%d, %d) in %dx%d grid", ErrCellOutOfRange, x, y, t.size, t.size)
	}
	return t.rect(x, y), nil
}

func (t *Tessellation) rect(i, j int) Rect {
	return Rect{
		X:      i,
		Y:      j,
		MinLon: t.xs[i],
		MinLat: t.ys[j],
		MaxLon: t.xs[i+1],
		MaxLat: t.ys[j+1],
	}
}
