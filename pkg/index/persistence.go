package index

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/kass/go-geo-grid/pkg/models"
)

// IndexData represents the serializable form of the point index
type IndexData struct {
	Points []*models.Point `json:"points"`
	Count  int64           `json:"count"`
}

// SaveToFile saves the index to a binary file
func (idx *PointIndex) SaveToFile(filename string) error {
	points, err := idx.All()
	if err != nil {
		return fmt.Errorf("failed to extract points: %w", err)
	}

	data := IndexData{
		Points: points,
		Count:  int64(len(points)),
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return file.Close()
}

// LoadFromFile replaces the index contents with the points stored in filename
func (idx *PointIndex) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data IndexData
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	if int64(len(data.Points)) != data.Count {
		return fmt.Errorf("corrupt index file: header says %d points, found %d", data.Count, len(data.Points))
	}

	idx.Clear()
	if err := idx.IndexPoints(data.Points); err != nil {
		return fmt.Errorf("failed to index points: %w", err)
	}

	return nil
}
