package export

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/models"
)

type featureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox"`
	Features []struct {
		ID       string `json:"id"`
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	} `json:"features"`
}

func TestFeatureCollection(t *testing.T) {
	tess, err := grid.New(0, 0, 10, 10, 2)
	require.NoError(t, err)

	counts, _ := tess.CountCells([]models.Cell{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 1}})

	data, err := FeatureCollection(tess, counts)
	require.NoError(t, err)

	var fc featureCollection
	require.NoError(t, json.Unmarshal(data, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, []float64{0, 0, 10, 10}, fc.BBox)
	require.Len(t, fc.Features, 4)

	// Polygons order: (0,0) (0,1) (1,0) (1,1)
	wantCounts := []float64{0, 1, 0, 2}
	wantNr := []string{"0", "2", "1", "3"}
	for i, f := range fc.Features {
		assert.Equal(t, "Polygon", f.Geometry.Type)
		assert.Equal(t, wantNr[i], f.ID)
		assert.Equal(t, wantNr[i], f.Properties["grid_nr"])
		assert.Equal(t, wantCounts[i], f.Properties["count"])
	}

	assert.Equal(t, [][][]float64{{{0, 5}, {5, 5}, {5, 10}, {0, 10}, {0, 5}}}, fc.Features[1].Geometry.Coordinates)
}

func TestFeatureCollectionWithoutCounts(t *testing.T) {
	tess, err := grid.New(-8.73, 41.10, -8.52, 41.25, 3)
	require.NoError(t, err)

	data, err := FeatureCollection(tess, nil)
	require.NoError(t, err)

	var fc featureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Len(t, fc.Features, 9)
	for _, f := range fc.Features {
		_, ok := f.Properties["count"]
		assert.False(t, ok)
		assert.Contains(t, f.Properties, "grid_x")
		assert.Contains(t, f.Properties, "grid_y")
	}
}
