package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kass/go-geo-grid/pkg/table"
)

// Input formats understood by Load.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// ErrUnknownFormat is returned when the input format cannot be determined.
var ErrUnknownFormat = errors.New("unknown input format")

// Load reads path as format. An empty format is taken from the file extension.
// Parquet files are read with the TripRow schema; the resulting frame columns
// are named after cols.
func Load(path, format string, cols Columns) (*table.Frame, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	switch format {
	case FormatCSV:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		f, err := ReadCSV(file, cols)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return f, nil
	case FormatParquet:
		return readParquet(path, cols)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
