package grid

import (
	"fmt"
	"strconv"

	"github.com/kass/go-geo-grid/pkg/models"
	"github.com/kass/go-geo-grid/pkg/table"
)

// CountCells counts how often each cell occurs and backfills every cell of the
// grid, so the result always has exactly size*size records. Records come out in
// grid_nr order (grid_y outer, grid_x inner). Cells outside the grid cannot
// be backfilled; they are left out of the records and tallied in outside.
func (t *Tessellation) CountCells(cells []models.Cell) (counts []models.CellCount, outside int) {
	observed := make(map[models.Cell]int, t.Cells())
	for _, c := range cells {
		if !t.Contains(c.X, c.Y) {
			outside++
			continue
		}
		observed[c]++
	}

	counts = make([]models.CellCount, 0, t.Cells())
	for y := 0; y < t.size; y++ {
		for x := 0; x < t.size; x++ {
			counts = append(counts, models.CellCount{
				GridX:  x,
				GridY:  y,
				GridNr: strconv.Itoa(t.CellNumber(x, y)),
				Count:  observed[models.Cell{X: x, Y: y}],
			})
		}
	}
	return counts, outside
}

// OccurrenceResult is the outcome of Occurrences.
type OccurrenceResult struct {
	Counts []models.CellCount
	// Records is the number of input rows.
	Records int
	// Outside is the number of rows whose grid_x/grid_y lie outside the grid.
	Outside int
}

// Occurrences counts the rows of f per (grid_x, grid_y). The frame must
// already carry the grid columns, normally added by MapFrame.
func (t *Tessellation) Occurrences(f *table.Frame) (OccurrenceResult, error) {
	if !f.Has(ColumnGridX, ColumnGridY) {
		return OccurrenceResult{}, fmt.Errorf("%w: %s and %s are required, map the frame to the grid first",
			ErrMissingColumn, ColumnGridX, ColumnGridY)
	}
	xs, err := f.Ints(ColumnGridX)
	if err != nil {
		return OccurrenceResult{}, err
	}
	ys, err := f.Ints(ColumnGridY)
	if err != nil {
		return OccurrenceResult{}, err
	}

	cells := make([]models.Cell, len(xs))
	for i := range xs {
		cells[i] = models.Cell{X: xs[i], Y: ys[i]}
	}

	counts, outside := t.CountCells(cells)
	return OccurrenceResult{
		Counts:  counts,
		Records: len(cells),
		Outside: outside,
	}, nil
}
