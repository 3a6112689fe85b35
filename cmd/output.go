package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kass/go-geo-grid/internal/config"
	"github.com/kass/go-geo-grid/pkg/export"
	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/models"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1).
			MarginTop(1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	// heat ramp for non-zero counts, coolest first
	heatColors = []lipgloss.Color{"#50FA7B", "#F1FA8C", "#FFB86C", "#FF5555"}
)

func printTitle(title string) {
	fmt.Println(titleStyle.Render(title))
}

func printStat(label string, value interface{}) {
	fmt.Printf("%s %s\n", dimStyle.Render(label+":"), statStyle.Render(fmt.Sprint(value)))
}

func printPoints(points []*models.Point, limit int) {
	for i, p := range points {
		if i >= limit {
			fmt.Println(dimStyle.Render(fmt.Sprintf("... and %d more", len(points)-limit)))
			return
		}
		fmt.Printf("  %-16s %11.6f %10.6f\n", p.ID, p.Location.Lon, p.Location.Lat)
	}
}

// writeCounts renders counts in the configured output format.
func writeCounts(w io.Writer, format string, tess *grid.Tessellation, counts []models.CellCount) error {
	switch format {
	case config.FormatTable:
		_, err := fmt.Fprintln(w, renderCounts(counts))
		return err
	case config.FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"grid_x", "grid_y", "grid_nr", "count"}); err != nil {
			return err
		}
		for _, c := range counts {
			row := []string{strconv.Itoa(c.GridX), strconv.Itoa(c.GridY), c.GridNr, strconv.Itoa(c.Count)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	case config.FormatGeoJSON:
		data, err := export.FeatureCollection(tess, counts)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderCounts(counts []models.CellCount) string {
	maxCount := 0
	total := 0
	for _, c := range counts {
		total += c.Count
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%6s %6s %8s %10s", "grid_x", "grid_y", "grid_nr", "count")))
	b.WriteByte('\n')
	for _, c := range counts {
		line := fmt.Sprintf("%6d %6d %8s %10d", c.GridX, c.GridY, c.GridNr, c.Count)
		b.WriteString(heatStyle(c.Count, maxCount).Render(line))
		b.WriteByte('\n')
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d cells, %d points", len(counts), total)))
	return b.String()
}

func heatStyle(count, maxCount int) lipgloss.Style {
	if count == 0 || maxCount == 0 {
		return dimStyle
	}
	i := (count * len(heatColors)) / (maxCount + 1)
	return lipgloss.NewStyle().Foreground(heatColors[i])
}

func renderPolygons(rects []grid.Rect) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%6s %6s %12s %12s %12s %12s", "grid_x", "grid_y", "min_lon", "min_lat", "max_lon", "max_lat")))
	for _, r := range rects {
		fmt.Fprintf(&b, "\n%6d %6d %12.6f %12.6f %12.6f %12.6f", r.X, r.Y, r.MinLon, r.MinLat, r.MaxLon, r.MaxLat)
	}
	return b.String()
}

func writePolygons(w io.Writer, format string, rects []grid.Rect) error {
	switch format {
	case config.FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"grid_x", "grid_y", "min_lon", "min_lat", "max_lon", "max_lat"}); err != nil {
			return err
		}
		for _, r := range rects {
			row := []string{
				strconv.Itoa(r.X), strconv.Itoa(r.Y),
				strconv.FormatFloat(r.MinLon, 'f', -1, 64), strconv.FormatFloat(r.MinLat, 'f', -1, 64),
				strconv.FormatFloat(r.MaxLon, 'f', -1, 64), strconv.FormatFloat(r.MaxLat, 'f', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rects)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
