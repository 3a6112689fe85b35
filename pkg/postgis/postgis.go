// Package postgis stores per-cell counts, with their cell polygons, in a
// PostGIS enabled PostgreSQL database.
package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"

	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/models"
)

// Config holds connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders cfg as a lib/pq connection URL.
func DSN(cfg Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Store persists cell counts.
type Store struct {
	db *sql.DB
}

// Open connects to the database and checks the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// InitSchema creates the cell_counts table and its spatial index if missing.
func (s *Store) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`CREATE TABLE IF NOT EXISTS cell_counts (
			run     TEXT NOT NULL,
			grid_x  INTEGER NOT NULL,
			grid_y  INTEGER NOT NULL,
			grid_nr TEXT NOT NULL,
			count   INTEGER NOT NULL CHECK (count >= 0),
			cell    GEOMETRY(POLYGON, 4326) NOT NULL,
			PRIMARY KEY (run, grid_x, grid_y)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cell_counts_cell ON cell_counts USING GIST(cell);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

const upsertCount = `
	INSERT INTO cell_counts (run, grid_x, grid_y, grid_nr, count, cell)
	VALUES ($1, $2, $3, $4, $5, ST_MakeEnvelope($6, $7, $8, $9, 4326))
	ON CONFLICT (run, grid_x, grid_y)
	DO UPDATE SET grid_nr = EXCLUDED.grid_nr, count = EXCLUDED.count, cell = EXCLUDED.cell
`

// SaveCounts writes counts under run in a single transaction, replacing any
// earlier counts of the same cells.
func (s *Store) SaveCounts(ctx context.Context, run string, t *grid.Tessellation, counts []models.CellCount) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertCount)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range counts {
		rect, err := t.CellBounds(c.GridX, c.GridY)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, run, c.GridX, c.GridY, c.GridNr, c.Count,
			rect.MinLon, rect.MinLat, rect.MaxLon, rect.MaxLat); err != nil {
			return fmt.Errorf("failed to save cell (%d, %d): %w", c.GridX, c.GridY, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit counts: %w", err)
	}
	return nil
}

// LoadCounts returns the counts saved under run in grid_nr order.
func (s *Store) LoadCounts(ctx context.Context, run string) ([]models.CellCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT grid_x, grid_y, grid_nr, count
		FROM cell_counts
		WHERE run = $1
		ORDER BY grid_y, grid_x
	`, run)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var counts []models.CellCount
	for rows.Next() {
		var c models.CellCount
		if err := rows.Scan(&c.GridX, &c.GridY, &c.GridNr, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
