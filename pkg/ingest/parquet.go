package ingest

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/kass/go-geo-grid/pkg/models"
	"github.com/kass/go-geo-grid/pkg/table"
)

// TripRow is the parquet schema of a trip sample.
type TripRow struct {
	TaxiID string  `parquet:"taxi_id"`
	Lon    float64 `parquet:"lon"`
	Lat    float64 `parquet:"lat"`
}

// ReadParquet loads a TripRow parquet file into a frame using DefaultColumns names.
func ReadParquet(path string) (*table.Frame, error) {
	return readParquet(path, DefaultColumns)
}

// readParquet names the frame columns after cols so a configured column
// mapping works for parquet input as it does for CSV.
func readParquet(path string, cols Columns) (*table.Frame, error) {
	rows, err := parquet.ReadFile[TripRow](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
	}

	ids := make([]string, len(rows))
	lons := make([]float64, len(rows))
	lats := make([]float64, len(rows))
	for i, row := range rows {
		ids[i] = row.TaxiID
		lons[i] = row.Lon
		lats[i] = row.Lat
	}
	return newFrame(cols, ids, lons, lats)
}

// WriteParquet writes points as TripRows, skipping those without a location.
func WriteParquet(path string, points []*models.Point) error {
	rows := make([]TripRow, 0, len(points))
	for _, p := range points {
		if p == nil || p.Location == nil {
			continue
		}
		rows = append(rows, TripRow{TaxiID: p.ID, Lon: p.Location.Lon, Lat: p.Location.Lat})
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet %s: %w", path, err)
	}
	return nil
}
