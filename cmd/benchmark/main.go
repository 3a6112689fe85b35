package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kass/go-geo-grid/internal/logger"
	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/index"
	"github.com/kass/go-geo-grid/pkg/ingest"
	"github.com/kass/go-geo-grid/pkg/models"
)

type BenchmarkResult struct {
	Mode          string
	Workers       int
	Rounds        int
	TotalDuration time.Duration
	AvgDuration   time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	PointsPerSec  float64
	TotalResults  int64
	AvgResults    float64
}

func main() {
	var (
		inputFile  = flag.String("i", "", "Input file (.csv or .parquet); random points when empty")
		mode       = flag.String("t", "bin", "Benchmark type: map, bin, cell")
		numPoints  = flag.Int("n", 1000000, "Number of random points when no input is given")
		rounds     = flag.Int("r", 10, "Rounds per worker count (queries for cell mode)")
		workerList = flag.String("w", defaultWorkers(), "Comma separated worker counts")
		size       = flag.Int("size", 10, "Grid size")
		seed       = flag.Int64("seed", 42, "Random seed")
		// Tessellation bounds (default: Porto)
		minLat = flag.Float64("min-lat", 41.10, "Minimum latitude")
		maxLat = flag.Float64("max-lat", 41.25, "Maximum latitude")
		minLon = flag.Float64("min-lon", -8.73, "Minimum longitude")
		maxLon = flag.Float64("max-lon", -8.52, "Maximum longitude")
	)
	flag.Parse()

	log, err := logger.New("info", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	workers, err := parseWorkers(*workerList)
	if err != nil {
		log.Fatal("invalid worker list", zap.Error(err))
	}

	tess, err := grid.New(*minLon, *minLat, *maxLon, *maxLat, *size)
	if err != nil {
		log.Fatal("failed to build tessellation", zap.Error(err))
	}

	lons, lats, err := loadCoordinates(*inputFile, *numPoints, *seed, tess.Box())
	if err != nil {
		log.Fatal("failed to load coordinates", zap.Error(err))
	}
	log.Info("coordinates ready", zap.Int("points", len(lons)), zap.Int("cells", tess.Cells()))

	var idx *index.PointIndex
	if *mode == "cell" {
		idx = index.NewPointIndex()
		points := make([]*models.Point, len(lons))
		for i := range lons {
			points[i] = &models.Point{ID: strconv.Itoa(i), Location: &models.Location{Lon: lons[i], Lat: lats[i]}}
		}
		if err := idx.IndexPoints(points); err != nil {
			log.Fatal("failed to index points", zap.Error(err))
		}
	}

	ctx := context.Background()
	results := make([]BenchmarkResult, 0, len(workers))
	for _, w := range workers {
		log.Info("running", zap.String("mode", *mode), zap.Int("workers", w), zap.Int("rounds", *rounds))

		var result BenchmarkResult
		switch *mode {
		case "map":
			result = benchmarkBinning(ctx, tess, lons, lats, w, *rounds, false)
		case "bin":
			result = benchmarkBinning(ctx, tess, lons, lats, w, *rounds, true)
		case "cell":
			result = benchmarkCellQueries(tess, idx, w, *rounds, *seed)
		default:
			log.Fatal("unknown benchmark type", zap.String("mode", *mode))
		}
		results = append(results, result)
	}

	fmt.Println("\n=== Benchmark Results ===")
	fmt.Printf("Grid: %dx%d over %d points, CPU cores: %d\n", *size, *size, len(lons), runtime.NumCPU())
	fmt.Printf("%-6s %8s %7s %12s %12s %12s %14s %12s\n",
		"Mode", "Workers", "Rounds", "Avg", "Min", "Max", "Points/sec", "Avg results")
	for _, r := range results {
		fmt.Printf("%-6s %8d %7d %12v %12v %12v %14.0f %12.1f\n",
			r.Mode, r.Workers, r.Rounds, r.AvgDuration, r.MinDuration, r.MaxDuration, r.PointsPerSec, r.AvgResults)
	}
}

func defaultWorkers() string {
	counts := []string{"1"}
	for w := 2; w <= runtime.NumCPU(); w *= 2 {
		counts = append(counts, strconv.Itoa(w))
	}
	return strings.Join(counts, ",")
}

func parseWorkers(list string) ([]int, error) {
	var workers []int
	for _, field := range strings.Split(list, ",") {
		w, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid worker count %q: %w", field, err)
		}
		if w < 1 {
			return nil, fmt.Errorf("worker count must be positive, got %d", w)
		}
		workers = append(workers, w)
	}
	return workers, nil
}

func loadCoordinates(path string, n int, seed int64, box models.BoundingBox) (lons, lats []float64, err error) {
	if path == "" {
		r := rand.New(rand.NewSource(seed))
		lons = make([]float64, n)
		lats = make([]float64, n)
		width := box.TopRight.Lon - box.BottomLeft.Lon
		height := box.TopRight.Lat - box.BottomLeft.Lat
		for i := 0; i < n; i++ {
			lons[i] = box.BottomLeft.Lon + r.Float64()*width
			lats[i] = box.BottomLeft.Lat + r.Float64()*height
		}
		return lons, lats, nil
	}

	f, err := ingest.Load(path, "", ingest.DefaultColumns)
	if err != nil {
		return nil, nil, err
	}
	if lons, err = f.Float64s(ingest.DefaultColumns.Lon); err != nil {
		return nil, nil, err
	}
	if lats, err = f.Float64s(ingest.DefaultColumns.Lat); err != nil {
		return nil, nil, err
	}
	return lons, lats, nil
}

// benchmarkBinning times MapPointsParallel, and CountCells when count is set,
// over the whole input once per round.
func benchmarkBinning(ctx context.Context, tess *grid.Tessellation, lons, lats []float64, workers, rounds int, count bool) BenchmarkResult {
	mode := "map"
	if count {
		mode = "bin"
	}
	var (
		totalResults int64
		minDuration  = time.Hour
		maxDuration  time.Duration
		totalDur     time.Duration
	)

	for i := 0; i < rounds; i++ {
		start := time.Now()
		xs, ys, err := tess.MapPointsParallel(ctx, lons, lats, workers)
		if err != nil {
			continue
		}
		if count {
			cells := make([]models.Cell, len(xs))
			for j := range xs {
				cells[j] = models.Cell{X: xs[j], Y: ys[j]}
			}
			counts, _ := tess.CountCells(cells)
			totalResults += int64(len(counts))
		} else {
			totalResults += int64(len(xs))
		}
		d := time.Since(start)

		totalDur += d
		if d < minDuration {
			minDuration = d
		}
		if d > maxDuration {
			maxDuration = d
		}
	}

	return summarize(mode, workers, rounds, totalDur, minDuration, maxDuration, int64(len(lons))*int64(rounds), totalResults)
}

// benchmarkCellQueries runs CellPoints for random cells on a worker pool.
func benchmarkCellQueries(tess *grid.Tessellation, idx *index.PointIndex, workers, queries int, seed int64) BenchmarkResult {
	var (
		totalResults int64
		minDuration  = time.Hour
		maxDuration  time.Duration
		totalDur     time.Duration
		mu           sync.Mutex
	)

	queryCh := make(chan int64, queries)
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for s := range queryCh {
				r := rand.New(rand.NewSource(s))
				x, y := r.Intn(tess.Size()), r.Intn(tess.Size())

				queryStart := time.Now()
				points, err := idx.CellPoints(tess, x, y)
				queryDuration := time.Since(queryStart)
				if err != nil {
					continue
				}
				atomic.AddInt64(&totalResults, int64(len(points)))

				mu.Lock()
				totalDur += queryDuration
				if queryDuration < minDuration {
					minDuration = queryDuration
				}
				if queryDuration > maxDuration {
					maxDuration = queryDuration
				}
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < queries; i++ {
		queryCh <- seed + int64(i)
	}
	close(queryCh)
	wg.Wait()

	return summarize("cell", workers, queries, totalDur, minDuration, maxDuration, totalResults, totalResults)
}

func summarize(mode string, workers, rounds int, total, fastest, slowest time.Duration, points, results int64) BenchmarkResult {
	result := BenchmarkResult{
		Mode:          mode,
		Workers:       workers,
		Rounds:        rounds,
		TotalDuration: total,
		MinDuration:   fastest,
		MaxDuration:   slowest,
		TotalResults:  results,
	}
	if rounds > 0 {
		result.AvgDuration = total / time.Duration(rounds)
		result.AvgResults = float64(results) / float64(rounds)
	}
	if total > 0 {
		result.PointsPerSec = float64(points) / total.Seconds()
	}
	return result
}
