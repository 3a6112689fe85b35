// Package config loads the geogrid YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/ingest"
	"github.com/kass/go-geo-grid/pkg/models"
	"github.com/kass/go-geo-grid/pkg/postgis"
)

// Config holds the geogrid configuration.
type Config struct {
	Grid     GridConfig     `yaml:"grid"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Workers  int            `yaml:"workers"` // 0 = one per CPU
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GridConfig is the tessellated bounding box and its resolution.
type GridConfig struct {
	MinLon float64 `yaml:"min_lon"`
	MinLat float64 `yaml:"min_lat"`
	MaxLon float64 `yaml:"max_lon"`
	MaxLat float64 `yaml:"max_lat"`
	Size   int     `yaml:"size"`
}

// Box returns the grid extent as a bounding box.
func (g GridConfig) Box() models.BoundingBox {
	return models.BoundingBox{
		BottomLeft: models.Location{Lat: g.MinLat, Lon: g.MinLon},
		TopRight:   models.Location{Lat: g.MaxLat, Lon: g.MaxLon},
	}
}

// InputConfig describes where trip points come from.
type InputConfig struct {
	Path     string `yaml:"path"`
	Format   string `yaml:"format"` // csv, parquet (default: from extension)
	IDColumn string `yaml:"id_column"`
	Lon      string `yaml:"lon_column"`
	Lat      string `yaml:"lat_column"`
	Polyline string `yaml:"polyline_column"`
}

// Columns returns the ingest column mapping.
func (i InputConfig) Columns() ingest.Columns {
	return ingest.Columns{ID: i.IDColumn, Lon: i.Lon, Lat: i.Lat, Polyline: i.Polyline}
}

// OutputConfig describes where counts go.
type OutputConfig struct {
	Path   string `yaml:"path"`   // empty = stdout
	Format string `yaml:"format"` // table, csv, json, geojson
}

// PostgresConfig enables saving counts to PostGIS when Enabled is set.
type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Run      string `yaml:"run"`
}

// Store returns the postgis connection settings.
func (p PostgresConfig) Store() postgis.Config {
	return postgis.Config{
		Host:     p.Host,
		Port:     p.Port,
		User:     p.User,
		Password: p.Password,
		DBName:   p.DBName,
		SSLMode:  p.SSLMode,
	}
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Output formats.
const (
	FormatTable   = "table"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatGeoJSON = "geojson"
)

// Default returns a configuration with defaults applied and no file read.
// The default grid covers the city of Porto.
func Default() Config {
	cfg := Config{
		Grid: GridConfig{MinLon: -8.73, MinLat: 41.10, MaxLon: -8.52, MaxLat: 41.25},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML, substituting ${VAR} and ${VAR:-default} first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Grid.Size == 0 {
		c.Grid.Size = 10
	}
	if c.Input.IDColumn == "" {
		c.Input.IDColumn = ingest.DefaultColumns.ID
	}
	if c.Input.Lon == "" {
		c.Input.Lon = ingest.DefaultColumns.Lon
	}
	if c.Input.Lat == "" {
		c.Input.Lat = ingest.DefaultColumns.Lat
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatTable
	}
	if c.Postgres.Port <= 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.Run == "" {
		c.Postgres.Run = "default"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := c.Grid.Box().Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if c.Grid.Size < 1 {
		return fmt.Errorf("grid: %w: got %d", grid.ErrInvalidSize, c.Grid.Size)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	switch c.Input.Format {
	case "", ingest.FormatCSV, ingest.FormatParquet:
	default:
		return fmt.Errorf("input.format must be %q or %q, got %q", ingest.FormatCSV, ingest.FormatParquet, c.Input.Format)
	}
	switch c.Output.Format {
	case FormatTable, FormatCSV, FormatJSON, FormatGeoJSON:
	default:
		return fmt.Errorf("output.format must be one of table, csv, json, geojson, got %q", c.Output.Format)
	}
	if c.Postgres.Enabled {
		if c.Postgres.Host == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("postgres.host and postgres.dbname are required when postgres is enabled")
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
