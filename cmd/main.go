package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kass/go-geo-grid/internal/config"
	"github.com/kass/go-geo-grid/internal/logger"
	"github.com/kass/go-geo-grid/pkg/grid"
)

var (
	configFile string
	verbose    bool

	// grid overrides, applied only when the flag is set
	minLon, minLat, maxLon, maxLat float64
	gridSize                       int
)

var rootCmd = &cobra.Command{
	Use:   "geogrid",
	Short: "Bin geolocated trip points into a rectangular grid",
	Long: `geogrid partitions a bounding box into a uniform size×size grid, maps trip
coordinates onto its cells and counts occurrences per cell. Cells without
points are reported with a zero count.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose (debug) logging")

	rootCmd.PersistentFlags().Float64Var(&minLon, "min-lon", 0, "Minimum longitude of the grid")
	rootCmd.PersistentFlags().Float64Var(&minLat, "min-lat", 0, "Minimum latitude of the grid")
	rootCmd.PersistentFlags().Float64Var(&maxLon, "max-lon", 0, "Maximum longitude of the grid")
	rootCmd.PersistentFlags().Float64Var(&maxLat, "max-lat", 0, "Maximum latitude of the grid")
	rootCmd.PersistentFlags().IntVarP(&gridSize, "size", "s", 0, "Cells per axis")

	rootCmd.AddCommand(polygonsCmd, mapCmd, countCmd, distanceCmd, cellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// setup loads the config, applies command-line overrides and builds the logger.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("min-lon") {
		cfg.Grid.MinLon = minLon
	}
	if flags.Changed("min-lat") {
		cfg.Grid.MinLat = minLat
	}
	if flags.Changed("max-lon") {
		cfg.Grid.MaxLon = maxLon
	}
	if flags.Changed("max-lat") {
		cfg.Grid.MaxLat = maxLat
	}
	if flags.Changed("size") {
		cfg.Grid.Size = gridSize
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	applyCountFlags(flags, &cfg)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func newTessellation(cfg config.Config, log *zap.Logger) (*grid.Tessellation, error) {
	tess, err := grid.NewFromBox(cfg.Grid.Box(), cfg.Grid.Size)
	if err != nil {
		return nil, err
	}
	log.Debug("Tessellation ready",
		zap.Float64("min_lon", cfg.Grid.MinLon),
		zap.Float64("min_lat", cfg.Grid.MinLat),
		zap.Float64("max_lon", cfg.Grid.MaxLon),
		zap.Float64("max_lat", cfg.Grid.MaxLat),
		zap.Int("size", tess.Size()),
		zap.Float64("x_step", tess.XStep()),
		zap.Float64("y_step", tess.YStep()),
	)
	return tess, nil
}
