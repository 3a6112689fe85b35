package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kass/go-geo-grid/internal/config"
	"github.com/kass/go-geo-grid/pkg/distance"
	"github.com/kass/go-geo-grid/pkg/export"
	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/index"
	"github.com/kass/go-geo-grid/pkg/ingest"
	"github.com/kass/go-geo-grid/pkg/models"
	"github.com/kass/go-geo-grid/pkg/postgis"
	"github.com/kass/go-geo-grid/pkg/table"
)

var polygonsCmd = &cobra.Command{
	Use:   "polygons",
	Short: "Print the cell rectangles of the grid",
	Long:  `Print every cell rectangle, longitude-major then latitude, as a table or GeoJSON.`,
	Args:  cobra.NoArgs,
	RunE:  runPolygons,
}

var mapCmd = &cobra.Command{
	Use:   "map LON LAT",
	Short: "Map a coordinate to its grid cell",
	Example: `  # negative coordinates need -- so they are not read as flags
  geogrid map -- -8.61 41.15`,
	Args: cobra.ExactArgs(2),
	RunE: runMap,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count trip points per grid cell",
	Long: `Load trip points (CSV or parquet), keep those inside the grid box, map them
to cells and count occurrences per cell. Every cell of the grid is reported.`,
	Args: cobra.NoArgs,
	RunE: runCount,
}

var distanceCmd = &cobra.Command{
	Use:     "distance LON1 LAT1 LON2 LAT2",
	Short:   "Great-circle distance between two coordinates in km",
	Example: `  geogrid distance -- -8.61 41.14 -8.58 41.16`,
	Args:    cobra.ExactArgs(4),
	RunE:    runDistance,
}

var cellCmd = &cobra.Command{
	Use:   "cell X Y",
	Short: "List the trip points that fall into one cell",
	Args:  cobra.ExactArgs(2),
	RunE:  runCell,
}

var (
	inputPath    string
	inputFormat  string
	outputPath   string
	outputFormat string
	numWorkers   int
	saveToPG     bool
	runName      string
	noFilter     bool
	cellLimit    int
)

func init() {
	for _, cmd := range []*cobra.Command{countCmd, cellCmd} {
		cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input file (csv or parquet)")
		cmd.Flags().StringVar(&inputFormat, "input-format", "", "Input format: csv, parquet (default: from extension)")
	}
	for _, cmd := range []*cobra.Command{countCmd, polygonsCmd} {
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
		cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format: table, csv, json, geojson")
	}

	countCmd.Flags().IntVarP(&numWorkers, "workers", "w", 0, "Mapping goroutines (0 = one per CPU)")
	countCmd.Flags().BoolVar(&saveToPG, "save", false, "Save counts to PostGIS")
	countCmd.Flags().StringVar(&runName, "run", "", "Run name the counts are saved under")
	countCmd.Flags().BoolVar(&noFilter, "no-filter", false, "Skip the bounding box filter; points below the box get negative cells and are reported as outside")

	cellCmd.Flags().IntVarP(&cellLimit, "limit", "l", 20, "Maximum number of points to display")
}

func applyCountFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("input") {
		cfg.Input.Path = inputPath
	}
	if flags.Changed("input-format") {
		cfg.Input.Format = inputFormat
	}
	if flags.Changed("output") {
		cfg.Output.Path = outputPath
	}
	if flags.Changed("format") {
		cfg.Output.Format = outputFormat
	}
	if flags.Changed("workers") {
		cfg.Workers = numWorkers
	}
	if flags.Changed("save") {
		cfg.Postgres.Enabled = saveToPG
	}
	if flags.Changed("run") {
		cfg.Postgres.Run = runName
	}
}

func runPolygons(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	tess, err := newTessellation(cfg, log)
	if err != nil {
		return err
	}

	return withOutput(cfg.Output.Path, func(w *os.File) error {
		switch cfg.Output.Format {
		case config.FormatGeoJSON:
			data, err := export.FeatureCollection(tess, nil)
			if err != nil {
				return err
			}
			_, err = w.Write(append(data, '\n'))
			return err
		case config.FormatTable:
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Grid %dx%d", tess.Size(), tess.Size())))
			fmt.Fprintln(w, renderPolygons(tess.Polygons()))
			return nil
		default:
			return writePolygons(w, cfg.Output.Format, tess.Polygons())
		}
	})
}

func runMap(cmd *cobra.Command, args []string) error {
	lon, lat, err := parseCoordinate(args[0], args[1])
	if err != nil {
		return err
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	tess, err := newTessellation(cfg, log)
	if err != nil {
		return err
	}

	if !tess.Box().Contains(models.Location{Lon: lon, Lat: lat}) {
		log.Warn("Coordinate outside the grid box, index may be clamped or negative",
			zap.Float64("lon", lon), zap.Float64("lat", lat))
	}

	x, y := tess.MapToGrid(lon, lat)
	printStat("grid_x", x)
	printStat("grid_y", y)
	printStat("grid_nr", tess.CellNumber(x, y))
	return nil
}

func runDistance(cmd *cobra.Command, args []string) error {
	values := make([]float64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q: %w", arg, err)
		}
		values[i] = v
	}

	km := distance.Distance(values[0], values[1], values[2], values[3])
	printStat("distance_km", fmt.Sprintf("%.3f", km))
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Input.Path == "" {
		return fmt.Errorf("no input: set --input or input.path")
	}

	tess, err := newTessellation(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	frame, err := ingest.Load(cfg.Input.Path, cfg.Input.Format, cfg.Input.Columns())
	if err != nil {
		return err
	}
	log.Info("Loaded trip points",
		zap.String("path", cfg.Input.Path),
		zap.Int("points", frame.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	cols := cfg.Input.Columns()
	if !noFilter {
		frame, err = filterToBox(frame, cols, tess, log)
		if err != nil {
			return err
		}
	}

	start = time.Now()
	if err := tess.MapFrame(ctx, frame, cols.Lon, cols.Lat, cfg.Workers); err != nil {
		return err
	}
	res, err := tess.Occurrences(frame)
	if err != nil {
		return err
	}
	log.Info("Counted occurrences",
		zap.Int("records", res.Records),
		zap.Int("cells", len(res.Counts)),
		zap.Int("outside", res.Outside),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := withOutput(cfg.Output.Path, func(w *os.File) error {
		return writeCounts(w, cfg.Output.Format, tess, res.Counts)
	}); err != nil {
		return err
	}

	if cfg.Postgres.Enabled {
		if err := saveCounts(ctx, cfg, tess, res.Counts, log); err != nil {
			return err
		}
	}
	return nil
}

// filterToBox drops the points outside the grid box using the R-Tree index,
// so no point reaches the grid mapping with a negative index.
func filterToBox(frame *table.Frame, cols ingest.Columns, tess *grid.Tessellation, log *zap.Logger) (*table.Frame, error) {
	points, err := ingest.Points(frame, cols)
	if err != nil {
		return nil, err
	}

	idx := index.NewPointIndex()
	if err := idx.IndexPoints(points); err != nil {
		return nil, fmt.Errorf("failed to index points: %w", err)
	}
	inside, err := idx.QueryBox(tess.Box())
	if err != nil {
		return nil, err
	}

	log.Debug("Filtered points to grid box",
		zap.Int("kept", len(inside)),
		zap.Int("dropped", len(points)-len(inside)),
	)
	return ingest.FromPoints(inside, cols)
}

func saveCounts(ctx context.Context, cfg config.Config, tess *grid.Tessellation, counts []models.CellCount, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := postgis.Open(ctx, postgis.DSN(cfg.Postgres.Store()))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	if err := store.SaveCounts(ctx, cfg.Postgres.Run, tess, counts); err != nil {
		return err
	}
	log.Info("Saved counts to PostGIS",
		zap.String("host", cfg.Postgres.Host),
		zap.String("run", cfg.Postgres.Run),
		zap.Int("cells", len(counts)),
	)
	return nil
}

func runCell(cmd *cobra.Command, args []string) error {
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid X %q: %w", args[0], err)
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid Y %q: %w", args[1], err)
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Input.Path == "" {
		return fmt.Errorf("no input: set --input or input.path")
	}

	tess, err := newTessellation(cfg, log)
	if err != nil {
		return err
	}

	frame, err := ingest.Load(cfg.Input.Path, cfg.Input.Format, cfg.Input.Columns())
	if err != nil {
		return err
	}
	points, err := ingest.Points(frame, cfg.Input.Columns())
	if err != nil {
		return err
	}

	idx := index.NewPointIndex()
	if err := idx.IndexPoints(points); err != nil {
		return fmt.Errorf("failed to index points: %w", err)
	}
	inCell, err := idx.CellPoints(tess, x, y)
	if err != nil {
		return err
	}

	rect, _ := tess.CellBounds(x, y)
	printTitle(fmt.Sprintf("Cell (%d, %d) #%d", x, y, tess.CellNumber(x, y)))
	printStat("bounds", fmt.Sprintf("[%.6f, %.6f] x [%.6f, %.6f]", rect.MinLon, rect.MaxLon, rect.MinLat, rect.MaxLat))
	printStat("points", len(inCell))
	printPoints(inCell, cellLimit)
	return nil
}

func parseCoordinate(rawLon, rawLat string) (lon, lat float64, err error) {
	lon, err = strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", rawLon, err)
	}
	lat, err = strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", rawLat, err)
	}
	return lon, lat, nil
}

// withOutput runs fn against the named file, or stdout when path is empty.
func withOutput(path string, fn func(*os.File) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
