package grid

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geo-grid/pkg/table"
)

func TestMapToGrid(t *testing.T) {
	tess, err := New(0, 0, 10, 10, 2)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		lon   float64
		lat   float64
		wantX int
		wantY int
	}{
		{"min corner", 0, 0, 0, 0},
		{"inside first", 4.99, 2, 0, 0},
		{"on inner edge", 5, 5, 1, 1},
		{"inside last", 7, 9, 1, 1},
		{"max corner clamped", 10, 10, 1, 1},
		{"past max clamped", 10.0000001, 11, 1, 1},
		{"mixed", 9, 1, 1, 0},
		{"below min within a step truncates to zero", -1, -4, 0, 0},
		{"below min by more than a step", -6, -11, -1, -2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tess.MapToGrid(tc.lon, tc.lat)
			assert.Equal(t, tc.wantX, x)
			assert.Equal(t, tc.wantY, y)
		})
	}
}

func TestMapToGridNaN(t *testing.T) {
	tess, err := New(0, 0, 10, 10, 2)
	require.NoError(t, err)

	x, y := tess.MapToGrid(math.NaN(), 3)
	assert.Equal(t, -1, x)
	assert.Equal(t, 0, y)
}

func TestMapToGridInsideBox(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	sizes := []int{1, 2, 7, 50, 300}

	for _, size := range sizes {
		tess, err := New(portoMinLon, portoMinLat, portoMaxLon, portoMaxLat, size)
		require.NoError(t, err)

		for i := 0; i < 2000; i++ {
			lon := portoMinLon + r.Float64()*(portoMaxLon-portoMinLon)
			lat := portoMinLat + r.Float64()*(portoMaxLat-portoMinLat)
			x, y := tess.MapToGrid(lon, lat)
			require.True(t, tess.Contains(x, y), "size=%d (%v, %v) -> (%d, %d)", size, lon, lat, x, y)
		}

		x, y := tess.MapToGrid(portoMaxLon, portoMaxLat)
		assert.Equal(t, size-1, x)
		assert.Equal(t, size-1, y)
	}
}

func TestMapToGridAgreesWithPolygons(t *testing.T) {
	tess, err := New(portoMinLon, portoMinLat, portoMaxLon, portoMaxLat, 9)
	require.NoError(t, err)

	for _, rect := range tess.Polygons() {
		lon := (rect.MinLon + rect.MaxLon) / 2
		lat := (rect.MinLat + rect.MaxLat) / 2
		x, y := tess.MapToGrid(lon, lat)
		assert.Equal(t, rect.X, x)
		assert.Equal(t, rect.Y, y)
	}
}

func TestMapPoints(t *testing.T) {
	tess, err := New(0, 0, 10, 10, 2)
	require.NoError(t, err)

	xs, ys, err := tess.MapPoints([]float64{1, 6, 10}, []float64{1, 2, 10})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, xs)
	assert.Equal(t, []int{0, 0, 1}, ys)

	_, _, err = tess.MapPoints([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	xs, ys, err = tess.MapPoints(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, xs)
	assert.Empty(t, ys)
}

func TestMapPointsParallelMatchesSequential(t *testing.T) {
	tess, err := New(portoMinLon, portoMinLat, portoMaxLon, portoMaxLat, 25)
	require.NoError(t, err)

	lons, lats := randomPorto(50000, 3)

	wantX, wantY, err := tess.MapPoints(lons, lats)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 3, 16} {
		xs, ys, err := tess.MapPointsParallel(context.Background(), lons, lats, workers)
		require.NoError(t, err)
		assert.Equal(t, wantX, xs, "workers=%d", workers)
		assert.Equal(t, wantY, ys, "workers=%d", workers)
	}
}

func TestMapPointsParallelErrors(t *testing.T) {
	tess, err := New(0, 0, 10, 10, 2)
	require.NoError(t, err)

	_, _, err = tess.MapPointsParallel(context.Background(), []float64{1}, nil, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lons, lats := randomPorto(10000, 5)
	_, _, err = tess.MapPointsParallel(ctx, lons, lats, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapFrame(t *testing.T) {
	tess, err := New(0, 0, 10, 10, 2)
	require.NoError(t, err)

	f := table.New()
	require.NoError(t, f.AddStrings("taxi_id", []string{"a", "b"}))
	require.NoError(t, f.AddFloat64s("lon", []float64{1, 9}))
	require.NoError(t, f.AddFloat64s("lat", []float64{8, 2}))

	require.NoError(t, tess.MapFrame(context.Background(), f, "lon", "lat", 1))

	xs, err := f.Ints(ColumnGridX)
	require.NoError(t, err)
	ys, err := f.Ints(ColumnGridY)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, xs)
	assert.Equal(t, []int{1, 0}, ys)

	// Mapping twice would duplicate the grid columns.
	err = tess.MapFrame(context.Background(), f, "lon", "lat", 1)
	assert.ErrorIs(t, err, table.ErrDuplicateColumn)
}

func TestMapFrameMissingColumn(t *testing.T) {
	tess, err := New(0, 0, 10, 10, 2)
	require.NoError(t, err)

	f := table.New()
	require.NoError(t, f.AddFloat64s("lon", []float64{1}))

	err = tess.MapFrame(context.Background(), f, "lon", "lat", 1)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.False(t, f.Has(ColumnGridX))
}

func randomPorto(n int, seed int64) (lons, lats []float64) {
	r := rand.New(rand.NewSource(seed))
	lons = make([]float64, n)
	lats = make([]float64, n)
	for i := range lons {
		lons[i] = portoMinLon + r.Float64()*(portoMaxLon-portoMinLon)
		lats[i] = portoMinLat + r.Float64()*(portoMaxLat-portoMinLat)
	}
	return lons, lats
}

func BenchmarkMapPoints(b *testing.B) {
	tess, _ := New(portoMinLon, portoMinLat, portoMaxLon, portoMaxLat, 100)
	lons, lats := randomPorto(100000, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = tess.MapPoints(lons, lats)
	}
}

func BenchmarkMapPointsParallel(b *testing.B) {
	tess, _ := New(portoMinLon, portoMinLat, portoMaxLon, portoMaxLat, 100)
	lons, lats := randomPorto(100000, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = tess.MapPointsParallel(context.Background(), lons, lats, 0)
	}
}
