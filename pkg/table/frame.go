// Package table holds a small column-oriented table of named, typed columns.
// It is the in-memory form of trip data between loading, grid mapping and
// aggregation.
package table

import (
	"errors"
	"fmt"

	"github.com/kass/go-geo-grid/pkg/models"
)

var (
	// ErrMissingColumn is returned when a looked-up column does not exist.
	ErrMissingColumn = models.ErrMissingColumn
	// ErrShapeMismatch is returned when a new column's length differs from the frame's.
	ErrShapeMismatch = models.ErrShapeMismatch
	// ErrColumnType is returned when a column is read as the wrong type.
	ErrColumnType = errors.New("column type mismatch")
	// ErrDuplicateColumn is returned when adding a column whose name is taken.
	ErrDuplicateColumn = errors.New("duplicate column")
)

// Frame is a set of equal-length columns. The first column added fixes the row count.
type Frame struct {
	order   []string
	columns map[string]any
	rows    int
}

// New returns an empty frame.
func New() *Frame {
	return &Frame{columns: make(map[string]any)}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.rows
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Has reports whether every named column exists.
func (f *Frame) Has(names ...string) bool {
	for _, name := range names {
		if _, ok := f.columns[name]; !ok {
			return false
		}
	}
	return true
}

// AddFloat64s adds a float column.
func (f *Frame) AddFloat64s(name string, values []float64) error {
	return f.add(name, len(values), values)
}

// AddInts adds an integer column.
func (f *Frame) AddInts(name string, values []int) error {
	return f.add(name, len(values), values)
}

// AddStrings adds a string column.
func (f *Frame) AddStrings(name string, values []string) error {
	return f.add(name, len(values), values)
}

func (f *Frame) add(name string, n int, values any) error {
	if _, ok := f.columns[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(f.order) > 0 && n != f.rows {
		return fmt.Errorf("%w: column %q has %d rows, frame has %d", ErrShapeMismatch, name, n, f.rows)
	}
	f.rows = n
	f.order = append(f.order, name)
	f.columns[name] = values
	return nil
}

// Float64s returns the named float column. The slice is shared with the frame.
func (f *Frame) Float64s(name string) ([]float64, error) {
	return column[[]float64](f, name, "float64")
}

// Ints returns the named integer column. The slice is shared with the frame.
func (f *Frame) Ints(name string) ([]int, error) {
	return column[[]int](f, name, "int")
}

// Strings returns the named string column. The slice is shared with the frame.
func (f *Frame) Strings(name string) ([]string, error) {
	return column[[]string](f, name, "string")
}

func column[T any](f *Frame, name, kind string) (T, error) {
	var zero T
	raw, ok := f.columns[name]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	values, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: column %q is not %s", ErrColumnType, name, kind)
	}
	return values, nil
}
