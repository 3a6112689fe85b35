// Package export encodes a tessellation and its cell counts as GeoJSON, the
// input format of heatmap and choropleth layers.
package export

import (
	"fmt"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/models"
)

// Features returns one polygon feature per cell, in Polygons order. Each
// feature carries grid_x, grid_y and grid_nr, plus count when counts is
// non-nil. Counts are matched by (grid_x, grid_y) so their order is free.
func Features(t *grid.Tessellation, counts []models.CellCount) ([]*geojson.Feature, error) {
	var byCell map[models.Cell]int
	if counts != nil {
		byCell = make(map[models.Cell]int, len(counts))
		for _, c := range counts {
			byCell[models.Cell{X: c.GridX, Y: c.GridY}] = c.Count
		}
	}

	rects := t.Polygons()
	features := make([]*geojson.Feature, 0, len(rects))
	for _, rect := range rects {
		ring := make([]geom.Coord, 0, 5)
		for _, c := range rect.Ring() {
			ring = append(ring, geom.Coord{c[0], c[1]})
		}
		polygon, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
		if err != nil {
			return nil, fmt.Errorf("failed to build cell (%d, %d): %w", rect.X, rect.Y, err)
		}

		nr := strconv.Itoa(t.CellNumber(rect.X, rect.Y))
		properties := map[string]interface{}{
			"grid_x":  rect.X,
			"grid_y":  rect.Y,
			"grid_nr": nr,
		}
		if byCell != nil {
			properties["count"] = byCell[models.Cell{X: rect.X, Y: rect.Y}]
		}

		features = append(features, &geojson.Feature{
			ID:         nr,
			Geometry:   polygon,
			Properties: properties,
		})
	}
	return features, nil
}

// FeatureCollection encodes Features as a GeoJSON FeatureCollection.
func FeatureCollection(t *grid.Tessellation, counts []models.CellCount) ([]byte, error) {
	features, err := Features(t, counts)
	if err != nil {
		return nil, err
	}

	box := t.Box()
	bounds := geom.NewBounds(geom.XY).Set(
		box.BottomLeft.Lon, box.BottomLeft.Lat,
		box.TopRight.Lon, box.TopRight.Lat,
	)

	fc := &geojson.FeatureCollection{
		BBox:     bounds,
		Features: features,
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return data, nil
}
