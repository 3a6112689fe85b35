package index

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dhconnelly/rtreego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/models"
)

var _ rtreego.Spatial = (*spatialPoint)(nil)

func TestSpatialPointBounds(t *testing.T) {
	p := &models.Point{ID: "p", Location: &models.Location{Lat: 41.15, Lon: -8.61}}
	sp := &spatialPoint{p, rtreego.Point{p.Location.Lon, p.Location.Lat}.ToRect(tolerance)}

	require.NotNil(t, sp.Bounds())
	assert.Same(t, sp.rect, sp.Bounds())

	idx := NewPointIndex()
	require.NoError(t, idx.IndexPoints([]*models.Point{p}))
	found, err := idx.QueryBox(models.BoundingBox{
		BottomLeft: models.Location{Lat: 41.1, Lon: -8.7},
		TopRight:   models.Location{Lat: 41.2, Lon: -8.5},
	})
	require.NoError(t, err)
	assert.Equal(t, []*models.Point{p}, found)
}

func TestNewPointIndex(t *testing.T) {
	idx := NewPointIndex()
	assert.NotNil(t, idx)
	assert.NotNil(t, idx.tree)
	assert.Equal(t, int64(0), idx.Count())

	all, err := idx.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIndexPoints(t *testing.T) {
	idx := NewPointIndex()

	points := []*models.Point{
		{ID: "1", Location: &models.Location{Lat: 41.1579, Lon: -8.6291}}, // Aliados
		{ID: "2", Location: &models.Location{Lat: 41.1486, Lon: -8.5853}}, // Campanha
		{ID: "3", Location: &models.Location{Lat: 41.2481, Lon: -8.6814}}, // Airport
		{ID: "4", Location: nil},
		nil,
	}

	err := idx.IndexPoints(points)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), idx.Count())
}

func TestQueryBox(t *testing.T) {
	idx := NewPointIndex()

	points := []*models.Point{
		{ID: "Aliados", Location: &models.Location{Lat: 41.1579, Lon: -8.6291}},
		{ID: "Campanha", Location: &models.Location{Lat: 41.1486, Lon: -8.5853}},
		{ID: "Edge", Location: &models.Location{Lat: 41.10, Lon: -8.70}},
		{ID: "Airport", Location: &models.Location{Lat: 41.2481, Lon: -8.6814}},
		{ID: "Lisbon", Location: &models.Location{Lat: 38.7223, Lon: -9.1393}},
	}
	require.NoError(t, idx.IndexPoints(points))

	box, err := models.NewBoundingBox(-8.70, 41.10, -8.55, 41.20)
	require.NoError(t, err)

	results, err := idx.QueryBox(box)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, p := range results {
		ids[p.ID] = true
	}
	assert.Len(t, results, 3)
	assert.True(t, ids["Aliados"])
	assert.True(t, ids["Campanha"])
	assert.True(t, ids["Edge"])
	assert.False(t, ids["Airport"])
	assert.False(t, ids["Lisbon"])

	_, err = idx.QueryBox(models.BoundingBox{})
	assert.ErrorIs(t, err, models.ErrInvalidBoundingBox)
}

func TestQueryRadius(t *testing.T) {
	idx := NewPointIndex()

	center := models.Location{Lat: 41.1579, Lon: -8.6291}
	points := []*models.Point{
		{ID: "Aliados", Location: &models.Location{Lat: 41.1579, Lon: -8.6291}},
		{ID: "SaoBento", Location: &models.Location{Lat: 41.1456, Lon: -8.6106}}, // ~2km
		{ID: "Matosinhos", Location: &models.Location{Lat: 41.1844, Lon: -8.6963}}, // ~6.3km
		{ID: "Braga", Location: &models.Location{Lat: 41.5454, Lon: -8.4265}},      // ~46km
	}
	require.NoError(t, idx.IndexPoints(points))

	testCases := []struct {
		name     string
		radius   float64
		expected []string
	}{
		{"1km radius", 1, []string{"Aliados"}},
		{"3km radius", 3, []string{"Aliados", "SaoBento"}},
		{"10km radius", 10, []string{"Aliados", "SaoBento", "Matosinhos"}},
		{"60km radius", 60, []string{"Aliados", "SaoBento", "Matosinhos", "Braga"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := idx.QueryRadius(center, tc.radius)
			assert.NoError(t, err)
			assert.Len(t, results, len(tc.expected))

			ids := make(map[string]bool)
			for _, p := range results {
				ids[p.ID] = true
			}
			for _, id := range tc.expected {
				assert.True(t, ids[id], "Expected %s in results", id)
			}
		})
	}

	_, err := idx.QueryRadius(center, 0)
	assert.Error(t, err)
}

func TestCellPoints(t *testing.T) {
	tess, err := grid.New(0, 0, 10, 10, 2)
	require.NoError(t, err)

	idx := NewPointIndex()
	require.NoError(t, idx.IndexPoints([]*models.Point{
		{ID: "a", Location: &models.Location{Lon: 1, Lat: 1}},
		{ID: "b", Location: &models.Location{Lon: 5, Lat: 5}}, // shared corner, belongs to (1,1)
		{ID: "c", Location: &models.Location{Lon: 7, Lat: 8}},
		{ID: "d", Location: &models.Location{Lon: 10, Lat: 10}},
		{ID: "e", Location: &models.Location{Lon: 4, Lat: 6}},
	}))

	testCases := []struct {
		x, y     int
		expected []string
	}{
		{0, 0, []string{"a"}},
		{1, 1, []string{"b", "c", "d"}},
		{0, 1, []string{"e"}},
		{1, 0, nil},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("cell_%d_%d", tc.x, tc.y), func(t *testing.T) {
			results, err := idx.CellPoints(tess, tc.x, tc.y)
			require.NoError(t, err)

			var ids []string
			for _, p := range results {
				ids = append(ids, p.ID)
			}
			assert.ElementsMatch(t, tc.expected, ids)
		})
	}

	_, err = idx.CellPoints(tess, 2, 0)
	assert.ErrorIs(t, err, grid.ErrCellOutOfRange)
}

func TestCellPointsSumToBoxCount(t *testing.T) {
	tess, err := grid.New(-8.73, 41.10, -8.52, 41.25, 6)
	require.NoError(t, err)

	idx := NewPointIndex()
	points := generateRandomPoints(2000)
	require.NoError(t, idx.IndexPoints(points))

	total := 0
	for _, rect := range tess.Polygons() {
		results, err := idx.CellPoints(tess, rect.X, rect.Y)
		require.NoError(t, err)
		total += len(results)
	}

	inBox, err := idx.QueryBox(tess.Box())
	require.NoError(t, err)
	assert.Equal(t, len(inBox), total)
}

func TestPersistence(t *testing.T) {
	index1 := NewPointIndex()
	points := generateRandomPoints(500)
	require.NoError(t, index1.IndexPoints(points))

	tempFile := filepath.Join(t.TempDir(), "index.gob")
	require.NoError(t, index1.SaveToFile(tempFile))

	index2 := NewPointIndex()
	require.NoError(t, index2.LoadFromFile(tempFile))

	assert.Equal(t, index1.Count(), index2.Count())

	box, err := models.NewBoundingBox(-8.70, 41.12, -8.60, 41.20)
	require.NoError(t, err)

	results1, err := index1.QueryBox(box)
	require.NoError(t, err)
	results2, err := index2.QueryBox(box)
	require.NoError(t, err)
	assert.Equal(t, len(results1), len(results2))

	assert.Error(t, index2.LoadFromFile(filepath.Join(t.TempDir(), "missing.gob")))
}

func TestClear(t *testing.T) {
	idx := NewPointIndex()
	require.NoError(t, idx.IndexPoints(generateRandomPoints(10)))
	idx.Clear()
	assert.Equal(t, int64(0), idx.Count())

	all, err := idx.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConcurrentQueries(t *testing.T) {
	idx := NewPointIndex()
	require.NoError(t, idx.IndexPoints(generateRandomPoints(5000)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			if r.Intn(2) == 0 {
				box, err := models.NewBoundingBox(-8.70, 41.12, -8.70+r.Float64()*0.1+0.01, 41.22)
				if !assert.NoError(t, err) {
					return
				}
				_, err = idx.QueryBox(box)
				assert.NoError(t, err)
				return
			}
			center := models.Location{Lat: 41.15 + r.Float64()*0.05, Lon: -8.65 + r.Float64()*0.05}
			_, err := idx.QueryRadius(center, r.Float64()*5+0.5)
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()
}

// Helper function to generate random points around Porto
func generateRandomPoints(n int) []*models.Point {
	r := rand.New(rand.NewSource(1))
	points := make([]*models.Point, n)
	for i := 0; i < n; i++ {
		points[i] = &models.Point{
			ID: fmt.Sprintf("taxi_%d", i%40),
			Location: &models.Location{
				Lat: r.Float64()*0.2 + 41.08,  // 41.08-41.28
				Lon: r.Float64()*0.25 - 8.75, // -8.75 to -8.50
			},
		}
	}
	return points
}

func BenchmarkIndexPoints(b *testing.B) {
	sizes := []int{1000, 10000, 100000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%d_points", size), func(b *testing.B) {
			points := generateRandomPoints(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				idx := NewPointIndex()
				_ = idx.IndexPoints(points)
			}
		})
	}
}

func BenchmarkQueryBox(b *testing.B) {
	idx := NewPointIndex()
	_ = idx.IndexPoints(generateRandomPoints(100000))
	box, _ := models.NewBoundingBox(-8.70, 41.12, -8.60, 41.20)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.QueryBox(box)
	}
}
