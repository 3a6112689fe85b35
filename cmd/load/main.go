package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/kass/go-geo-grid/internal/logger"
	"github.com/kass/go-geo-grid/pkg/index"
	"github.com/kass/go-geo-grid/pkg/ingest"
	"github.com/kass/go-geo-grid/pkg/models"
)

func main() {
	var (
		numPoints  = flag.Int("n", 1000000, "Number of trip samples to generate")
		numTaxis   = flag.Int("taxis", 450, "Number of distinct taxi ids")
		outputFile = flag.String("o", "data/trips.parquet", "Output file path (.csv or .parquet)")
		indexFile  = flag.String("index", "", "Optionally also save an R-tree index to this gob file")
		workers    = flag.Int("w", runtime.NumCPU(), "Number of worker goroutines")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		hotspot    = flag.Float64("hotspot", 0.3, "Fraction of samples drawn around the box centre")
		// Geographic bounds for random trip samples (default: Porto)
		minLat = flag.Float64("min-lat", 41.10, "Minimum latitude")
		maxLat = flag.Float64("max-lat", 41.25, "Maximum latitude")
		minLon = flag.Float64("min-lon", -8.73, "Minimum longitude")
		maxLon = flag.Float64("max-lon", -8.52, "Maximum longitude")
		level  = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	log, err := logger.New(*level, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	box, err := models.NewBoundingBox(*minLon, *minLat, *maxLon, *maxLat)
	if err != nil {
		log.Fatal("invalid bounds", zap.Error(err))
	}
	if *workers < 1 {
		*workers = 1
	}

	if dir := filepath.Dir(*outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("failed to create output directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	log.Info("generating trip samples",
		zap.Int("points", *numPoints),
		zap.Int("taxis", *numTaxis),
		zap.Int("workers", *workers),
		zap.Float64("min_lon", *minLon), zap.Float64("min_lat", *minLat),
		zap.Float64("max_lon", *maxLon), zap.Float64("max_lat", *maxLat),
	)

	rng := rand.New(rand.NewSource(*seed))
	startTime := time.Now()
	points := generateTrips(rng, *numPoints, *numTaxis, box, *hotspot, *workers)
	log.Info("samples generated", zap.Duration("took", time.Since(startTime)))

	startTime = time.Now()
	if err := write(*outputFile, points); err != nil {
		log.Fatal("failed to write samples", zap.String("path", *outputFile), zap.Error(err))
	}
	fields := []zap.Field{zap.String("path", *outputFile), zap.Duration("took", time.Since(startTime))}
	if info, err := os.Stat(*outputFile); err == nil {
		fields = append(fields, zap.Float64("size_mb", float64(info.Size())/(1024*1024)))
	}
	log.Info("samples written", fields...)

	if *indexFile != "" {
		startTime = time.Now()
		idx := index.NewPointIndex()
		if err := idx.IndexPoints(points); err != nil {
			log.Fatal("failed to index samples", zap.Error(err))
		}
		if err := idx.SaveToFile(*indexFile); err != nil {
			log.Fatal("failed to save index", zap.String("path", *indexFile), zap.Error(err))
		}
		log.Info("index saved",
			zap.String("path", *indexFile),
			zap.Int64("points", idx.Count()),
			zap.Duration("took", time.Since(startTime)),
		)
	}
}

func write(path string, points []*models.Point) error {
	switch filepath.Ext(path) {
	case ".parquet":
		return ingest.WriteParquet(path, points)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		if err := ingest.WriteCSV(f, points); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("%w: %s", ingest.ErrUnknownFormat, path)
	}
}

// generateTrips fills n samples in parallel. Each worker owns a disjoint
// range and its own random source, seeded from rng so runs are reproducible.
func generateTrips(rng *rand.Rand, n, taxis int, box models.BoundingBox, hotspot float64, workers int) []*models.Point {
	points := make([]*models.Point, n)
	if taxis < 1 {
		taxis = 1
	}

	type workRange struct {
		start, end int
		seed       int64
	}
	work := make(chan workRange, workers)
	done := make(chan bool, workers)

	minLon, minLat := box.BottomLeft.Lon, box.BottomLeft.Lat
	width := box.TopRight.Lon - minLon
	height := box.TopRight.Lat - minLat
	centerLon, centerLat := minLon+width/2, minLat+height/2

	for w := 0; w < workers; w++ {
		go func() {
			for wr := range work {
				r := rand.New(rand.NewSource(wr.seed))
				for i := wr.start; i < wr.end; i++ {
					var lon, lat float64
					if r.Float64() < hotspot {
						// may fall slightly outside the box, like real GPS noise
						lon = centerLon + r.NormFloat64()*width/6
						lat = centerLat + r.NormFloat64()*height/6
					} else {
						lon = minLon + r.Float64()*width
						lat = minLat + r.Float64()*height
					}
					points[i] = &models.Point{
						ID:       fmt.Sprintf("%d", 20000000+r.Intn(taxis)),
						Location: &models.Location{Lat: lat, Lon: lon},
					}
				}
			}
			done <- true
		}()
	}

	perWorker := n / workers
	remainder := n % workers
	start := 0
	for w := 0; w < workers; w++ {
		size := perWorker
		if w < remainder {
			size++
		}
		work <- workRange{start: start, end: start + size, seed: rng.Int63()}
		start += size
	}
	close(work)

	for w := 0; w < workers; w++ {
		<-done
	}
	return points
}
