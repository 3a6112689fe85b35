// Package ingest loads trip samples into a table.Frame.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kass/go-geo-grid/pkg/models"
	"github.com/kass/go-geo-grid/pkg/table"
)

// Columns names the identifying and coordinate fields of the input.
type Columns struct {
	ID  string
	Lon string
	Lat string
	// Polyline, when set, names a column holding a JSON array of [lon, lat]
	// pairs; every pair becomes its own row. Lon and Lat are then the names of
	// the output columns rather than input columns.
	Polyline string
}

// DefaultColumns matches the files written by cmd/load.
var DefaultColumns = Columns{ID: "taxi_id", Lon: "lon", Lat: "lat"}

// ReadCSV reads a CSV file with a header row into a frame holding the ID,
// Lon and Lat columns. Other columns are ignored. Rows with an empty
// coordinate (or an empty polyline) are skipped.
func ReadCSV(r io.Reader, cols Columns) (*table.Frame, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	wanted := []string{cols.ID, cols.Lon, cols.Lat}
	if cols.Polyline != "" {
		wanted = []string{cols.ID, cols.Polyline}
	}
	for _, name := range wanted {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %q not in header", models.ErrMissingColumn, name)
		}
	}

	var ids []string
	var lons, lats []float64
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		id := record[index[cols.ID]]

		if cols.Polyline != "" {
			path, err := parsePolyline(record[index[cols.Polyline]])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			for _, p := range path {
				ids = append(ids, id)
				lons = append(lons, p[0])
				lats = append(lats, p[1])
			}
			continue
		}

		rawLon := strings.TrimSpace(record[index[cols.Lon]])
		rawLat := strings.TrimSpace(record[index[cols.Lat]])
		if rawLon == "" || rawLat == "" {
			continue
		}
		lon, err := strconv.ParseFloat(rawLon, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", line, cols.Lon, err)
		}
		lat, err := strconv.ParseFloat(rawLat, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", line, cols.Lat, err)
		}
		ids = append(ids, id)
		lons = append(lons, lon)
		lats = append(lats, lat)
	}

	return newFrame(cols, ids, lons, lats)
}

func parsePolyline(raw string) ([][2]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var path [][2]float64
	if err := json.Unmarshal([]byte(raw), &path); err != nil {
		return nil, fmt.Errorf("invalid polyline: %w", err)
	}
	return path, nil
}

// WriteCSV writes points as taxi_id,lon,lat rows (DefaultColumns).
func WriteCSV(w io.Writer, points []*models.Point) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{DefaultColumns.ID, DefaultColumns.Lon, DefaultColumns.Lat}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range points {
		if p == nil || p.Location == nil {
			continue
		}
		row := []string{
			p.ID,
			strconv.FormatFloat(p.Location.Lon, 'f', -1, 64),
			strconv.FormatFloat(p.Location.Lat, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write point %s: %w", p.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func newFrame(cols Columns, ids []string, lons, lats []float64) (*table.Frame, error) {
	f := table.New()
	if err := f.AddStrings(cols.ID, ids); err != nil {
		return nil, err
	}
	if err := f.AddFloat64s(cols.Lon, lons); err != nil {
		return nil, err
	}
	if err := f.AddFloat64s(cols.Lat, lats); err != nil {
		return nil, err
	}
	return f, nil
}

// Points converts the ID/Lon/Lat columns of f to points.
func Points(f *table.Frame, cols Columns) ([]*models.Point, error) {
	ids, err := f.Strings(cols.ID)
	if err != nil {
		return nil, err
	}
	lons, err := f.Float64s(cols.Lon)
	if err != nil {
		return nil, err
	}
	lats, err := f.Float64s(cols.Lat)
	if err != nil {
		return nil, err
	}

	points := make([]*models.Point, len(ids))
	for i := range ids {
		points[i] = &models.Point{
			ID:       ids[i],
			Location: &models.Location{Lat: lats[i], Lon: lons[i]},
		}
	}
	return points, nil
}

// FromPoints builds a frame from points, skipping those without a location.
func FromPoints(points []*models.Point, cols Columns) (*table.Frame, error) {
	ids := make([]string, 0, len(points))
	lons := make([]float64, 0, len(points))
	lats := make([]float64, 0, len(points))
	for _, p := range points {
		if p == nil || p.Location == nil {
			continue
		}
		ids = append(ids, p.ID)
		lons = append(lons, p.Location.Lon)
		lats = append(lats, p.Location.Lat)
	}
	return newFrame(cols, ids, lons, lats)
}
