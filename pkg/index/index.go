// Package index keeps trip points in an R-Tree so they can be cut to a
// bounding box, a radius or a single grid cell before aggregation.
package index

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-geo-grid/pkg/distance"
	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/models"
)

const (
	tolerance   = 1e-7
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialPoint wraps a point to implement rtreego.Spatial interface.
// Coordinates are ordered (lon, lat).
type spatialPoint struct {
	*models.Point
	rect *rtreego.Rect
}

func (sp *spatialPoint) Bounds() *rtreego.Rect {
	return sp.rect
}

// PointIndex is a thread-safe R-Tree of trip points
type PointIndex struct {
	tree      *rtreego.Rtree
	mu        sync.RWMutex
	itemCount atomic.Int64

	// extent covers every indexed point, used to enumerate the tree
	extent models.BoundingBox
}

// NewPointIndex creates an empty index
func NewPointIndex() *PointIndex {
	return &PointIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// IndexPoints inserts points, skipping those without a location or with NaN coordinates
func (idx *PointIndex) IndexPoints(points []*models.Point) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]*spatialPoint, 0, len(points))
	for _, point := range points {
		if point == nil || point.Location == nil {
			continue
		}
		loc := point.Location
		if math.IsNaN(loc.Lon) || math.IsNaN(loc.Lat) {
			continue
		}
		p := rtreego.Point{loc.Lon, loc.Lat}
		items = append(items, &spatialPoint{point, p.ToRect(tolerance)})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, item := range items {
		if idx.tree.Size() == 0 {
			idx.extent = models.BoundingBox{BottomLeft: *item.Location, TopRight: *item.Location}
		} else {
			idx.grow(*item.Location)
		}
		idx.tree.Insert(item)
	}
	idx.itemCount.Add(int64(len(items)))
	return nil
}

func (idx *PointIndex) grow(loc models.Location) {
	idx.extent.BottomLeft.Lon = math.Min(idx.extent.BottomLeft.Lon, loc.Lon)
	idx.extent.BottomLeft.Lat = math.Min(idx.extent.BottomLeft.Lat, loc.Lat)
	idx.extent.TopRight.Lon = math.Max(idx.extent.TopRight.Lon, loc.Lon)
	idx.extent.TopRight.Lat = math.Max(idx.extent.TopRight.Lat, loc.Lat)
}

// QueryBox returns all points within the box, edges included
func (idx *PointIndex) QueryBox(box models.BoundingBox) ([]*models.Point, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.search(box, box.Contains)
}

// search runs an intersect query over box and keeps the points accepted by keep
func (idx *PointIndex) search(box models.BoundingBox, keep func(models.Location) bool) ([]*models.Point, error) {
	bounds, err := rtreego.NewRect(
		rtreego.Point{box.BottomLeft.Lon - tolerance, box.BottomLeft.Lat - tolerance},
		[]float64{
			box.TopRight.Lon - box.BottomLeft.Lon + 2*tolerance,
			box.TopRight.Lat - box.BottomLeft.Lat + 2*tolerance,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid search box: %w", err)
	}

	results := idx.tree.SearchIntersect(bounds)

	points := make([]*models.Point, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialPoint)
		if !ok || item.Point == nil || item.Location == nil {
			continue
		}
		if keep(*item.Location) {
			points = append(points, item.Point)
		}
	}
	return points, nil
}

// QueryRadius returns all points within radiusKm of center (haversine)
func (idx *PointIndex) QueryRadius(center models.Location, radiusKm float64) ([]*models.Point, error) {
	if !(radiusKm > 0) {
		return nil, fmt.Errorf("invalid radius %v: must be positive", radiusKm)
	}

	// Degree box around the circle, widened in longitude away from the equator
	latDeg := (radiusKm / distance.EarthRadiusKm) * (180 / math.Pi)
	lonDeg := 180.0
	if cos := math.Cos(center.Lat * math.Pi / 180); cos > 1e-9 {
		lonDeg = math.Min(latDeg/cos, 180)
	}

	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: center.Lat - latDeg, Lon: center.Lon - lonDeg},
		TopRight:   models.Location{Lat: center.Lat + latDeg, Lon: center.Lon + lonDeg},
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.search(box, func(loc models.Location) bool {
		return distance.Distance(center.Lon, center.Lat, loc.Lon, loc.Lat) <= radiusKm
	})
}

// CellPoints returns the points the tessellation maps into cell (x, y)
func (idx *PointIndex) CellPoints(t *grid.Tessellation, x, y int) ([]*models.Point, error) {
	rect, err := t.CellBounds(x, y)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// Shared edges belong to exactly one cell, so defer to MapToGrid
	return idx.search(rect.Box(), func(loc models.Location) bool {
		cx, cy := t.MapToGrid(loc.Lon, loc.Lat)
		return cx == x && cy == y
	})
}

// All returns every indexed point
func (idx *PointIndex) All() ([]*models.Point, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.tree.Size() == 0 {
		return nil, nil
	}
	return idx.search(idx.extent, func(models.Location) bool { return true })
}

// Count returns the number of indexed points
func (idx *PointIndex) Count() int64 {
	return idx.itemCount.Load()
}

// Clear removes all points from the index
func (idx *PointIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	idx.extent = models.BoundingBox{}
	idx.itemCount.Store(0)
}
