package main

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geo-grid/pkg/ingest"
	"github.com/kass/go-geo-grid/pkg/models"
)

func TestGenerateTripsDeterministic(t *testing.T) {
	box, err := models.NewBoundingBox(-8.73, 41.10, -8.52, 41.25)
	require.NoError(t, err)

	a := generateTrips(rand.New(rand.NewSource(7)), 1000, 10, box, 0, 4)
	b := generateTrips(rand.New(rand.NewSource(7)), 1000, 10, box, 0, 4)

	require.Len(t, a, 1000)
	for i := range a {
		require.NotNil(t, a[i])
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, *a[i].Location, *b[i].Location)
		assert.True(t, box.Contains(*a[i].Location), "uniform sample %d outside box", i)
	}
}

func TestWriteFormats(t *testing.T) {
	box, err := models.NewBoundingBox(-8.73, 41.10, -8.52, 41.25)
	require.NoError(t, err)
	points := generateTrips(rand.New(rand.NewSource(1)), 50, 3, box, 0.5, 2)

	dir := t.TempDir()
	for _, name := range []string{"trips.csv", "trips.parquet"} {
		path := filepath.Join(dir, name)
		require.NoError(t, write(path, points), name)

		f, err := ingest.Load(path, "", ingest.DefaultColumns)
		require.NoError(t, err, name)
		assert.Equal(t, len(points), f.Len(), name)
	}

	assert.ErrorIs(t, write(filepath.Join(dir, "trips.txt"), points), ingest.ErrUnknownFormat)
}
