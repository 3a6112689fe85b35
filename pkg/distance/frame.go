package distance

import (
	"fmt"

	"github.com/kass/go-geo-grid/pkg/table"
)

// ColumnDistance is the column added by TripLengths.
const ColumnDistance = "distance_km"

// TripColumns names the start and end coordinate columns of a trip table.
type TripColumns struct {
	StartLon string
	StartLat string
	EndLon   string
	EndLat   string
}

// TripLengths adds a distance_km column with the haversine length of every row.
func TripLengths(f *table.Frame, cols TripColumns) error {
	names := []string{cols.StartLon, cols.StartLat, cols.EndLon, cols.EndLat}
	vectors := make([][]float64, len(names))
	for i, name := range names {
		values, err := f.Float64s(name)
		if err != nil {
			return err
		}
		vectors[i] = values
	}

	km, err := Haversine(vectors[0], vectors[1], vectors[2], vectors[3])
	if err != nil {
		return err
	}
	if err := f.AddFloat64s(ColumnDistance, km); err != nil {
		return fmt.Errorf("failed to add %s: %w", ColumnDistance, err)
	}
	return nil
}
