package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameColumns(t *testing.T) {
	f := New()
	assert.Equal(t, 0, f.Len())

	require.NoError(t, f.AddStrings("taxi_id", []string{"a", "b", "c"}))
	require.NoError(t, f.AddFloat64s("lon", []float64{1, 2, 3}))
	require.NoError(t, f.AddInts("grid_x", []int{0, 1, 1}))

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"taxi_id", "lon", "grid_x"}, f.Columns())
	assert.True(t, f.Has("lon", "grid_x"))
	assert.False(t, f.Has("lon", "grid_y"))

	lons, err := f.Float64s("lon")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, lons)

	xs, err := f.Ints("grid_x")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, xs)
}

func TestFrameErrors(t *testing.T) {
	f := New()
	require.NoError(t, f.AddFloat64s("lon", []float64{1, 2}))

	err := f.AddFloat64s("lat", []float64{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	err = f.AddFloat64s("lon", []float64{3, 4})
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = f.Ints("grid_x")
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = f.Ints("lon")
	assert.ErrorIs(t, err, ErrColumnType)

	_, err = f.Strings("lon")
	assert.ErrorIs(t, err, ErrColumnType)
}

func TestColumnsReturnsCopy(t *testing.T) {
	f := New()
	require.NoError(t, f.AddInts("a", []int{1}))

	cols := f.Columns()
	cols[0] = "mutated"
	assert.Equal(t, []string{"a"}, f.Columns())
}
