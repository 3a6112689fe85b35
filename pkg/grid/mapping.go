package grid

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kass/go-geo-grid/pkg/table"
)

// minParallelChunk keeps goroutine overhead below the cost of the work it splits.
const minParallelChunk = 4096

// MapToGrid returns the cell (x, y) holding (lon, lat).
//
// Indices are (v-min)/step truncated toward zero. They are clamped to size-1
// from above, so a point exactly on (or rounding past) the max edge lands in
// the last cell. There is no lower clamp: a point more than one step below
// min_lon or min_lat yields a negative index, and a point less than one step
// below truncates to 0. Callers that can see such points must filter them
// first (see index.PointIndex.QueryBox). A NaN coordinate maps to -1.
func (t *Tessellation) MapToGrid(lon, lat float64) (x, y int) {
	return t.axisIndex(lon, t.box.BottomLeft.Lon, t.xStep),
		t.axisIndex(lat, t.box.BottomLeft.Lat, t.yStep)
}

func (t *Tessellation) axisIndex(v, min, step float64) int {
	f := (v - min) / step
	if math.IsNaN(f) {
		return -1
	}
	// Compare before converting, the conversion of huge floats is undefined.
	if f >= float64(t.size-1) {
		return t.size - 1
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// MapPoints maps equal-length lon/lat slices element-wise.
func (t *Tessellation) MapPoints(lons, lats []float64) (xs, ys []int, err error) {
	if len(lons) != len(lats) {
		return nil, nil, fmt.Errorf("%w: %d longitudes, %d latitudes", ErrShapeMismatch, len(lons), len(lats))
	}
	xs = make([]int, len(lons))
	ys = make([]int, len(lats))
	t.mapRange(lons, lats, xs, ys, 0, len(lons))
	return xs, ys, nil
}

// MapPointsParallel is MapPoints split over up to workers goroutines.
// workers <= 0 uses runtime.NumCPU(). The result equals MapPoints.
func (t *Tessellation) MapPointsParallel(ctx context.Context, lons, lats []float64, workers int) (xs, ys []int, err error) {
	if len(lons) != len(lats) {
		return nil, nil, fmt.Errorf("%w: %d longitudes, %d latitudes", ErrShapeMismatch, len(lons), len(lats))
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	n := len(lons)
	xs = make([]int, n)
	ys = make([]int, n)

	batchSize := (n + workers - 1) / workers
	if batchSize < minParallelChunk {
		batchSize = minParallelChunk
	}

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Each goroutine owns a disjoint [start, end) of xs and ys.
			t.mapRange(lons, lats, xs, ys, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to map points: %w", err)
	}
	return xs, ys, nil
}

func (t *Tessellation) mapRange(lons, lats []float64, xs, ys []int, start, end int) {
	for i := start; i < end; i++ {
		xs[i], ys[i] = t.MapToGrid(lons[i], lats[i])
	}
}

// MapFrame reads the lon/lat columns of f and appends grid_x and grid_y.
func (t *Tessellation) MapFrame(ctx context.Context, f *table.Frame, lonCol, latCol string, workers int) error {
	lons, err := f.Float64s(lonCol)
	if err != nil {
		return err
	}
	lats, err := f.Float64s(latCol)
	if err != nil {
		return err
	}

	xs, ys, err := t.MapPointsParallel(ctx, lons, lats, workers)
	if err != nil {
		return err
	}
	if err := f.AddInts(ColumnGridX, xs); err != nil {
		return fmt.Errorf("failed to add %s: %w", ColumnGridX, err)
	}
	if err := f.AddInts(ColumnGridY, ys); err != nil {
		return fmt.Errorf("failed to add %s: %w", ColumnGridY, err)
	}
	return nil
}
