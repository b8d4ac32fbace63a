package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jgoulah/meterdata/pkg/models"
	_ "modernc.org/sqlite"
)

const hourLayout = "2006-01-02 15:04:05"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// Filter narrows ListAggregated results. Empty fields match everything.
type Filter struct {
	Building string
	Type     models.ReadingType
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_hourly (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		building TEXT NOT NULL,
		hour TEXT NOT NULL,
		type TEXT NOT NULL,
		usage_unit TEXT NOT NULL,
		usage REAL NOT NULL,
		occupancy INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		published INTEGER DEFAULT 0,
		UNIQUE(building, hour, type)
	);
	CREATE INDEX IF NOT EXISTS idx_usage_hourly_building ON usage_hourly(building);
	CREATE INDEX IF NOT EXISTS idx_usage_hourly_hour ON usage_hourly(hour);
	CREATE INDEX IF NOT EXISTS idx_usage_hourly_published ON usage_hourly(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveAggregated upserts a session's aggregated records in one transaction.
// Rows whose values change are marked unpublished again.
func (db *DB) SaveAggregated(ctx context.Context, runID string, records []models.AggregatedRecord) error {
	query := `
	INSERT INTO usage_hourly (building, hour, type, usage_unit, usage, occupancy, run_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(building, hour, type) DO UPDATE SET
		published = CASE
			WHEN usage_hourly.usage != excluded.usage
				OR usage_hourly.usage_unit != excluded.usage_unit
				OR usage_hourly.occupancy != excluded.occupancy
			THEN 0 ELSE usage_hourly.published END,
		usage_unit = excluded.usage_unit,
		usage = excluded.usage,
		occupancy = excluded.occupancy,
		run_id = excluded.run_id,
		updated_at = excluded.updated_at
	`

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		hour := r.Timestamp.UTC().Format(hourLayout)
		if _, err := stmt.ExecContext(ctx, r.Building, hour, string(r.Type), r.UsageUnit, r.Usage, r.Occupancy, runID, now, now); err != nil {
			return fmt.Errorf("inserting usage for %s %s %s: %w", r.Building, hour, r.Type, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing usage: %w", err)
	}
	return nil
}

// ListAggregated retrieves stored records ordered by building, hour and type
func (db *DB) ListAggregated(ctx context.Context, f Filter) ([]models.AggregatedRecord, error) {
	var where []string
	var args []any
	if f.Building != "" {
		where = append(where, "building = ?")
		args = append(args, f.Building)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}

	query := `SELECT id, building, hour, type, usage_unit, usage, occupancy FROM usage_hourly`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY building, hour, type"

	return db.query(ctx, query, args...)
}

// ListUnpublished retrieves records not yet published, oldest hour first.
// A limit of 0 means no limit.
func (db *DB) ListUnpublished(ctx context.Context, limit int) ([]models.AggregatedRecord, error) {
	query := `
	SELECT id, building, hour, type, usage_unit, usage, occupancy
	FROM usage_hourly
	WHERE published = 0
	ORDER BY hour, building, type
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return db.query(ctx, query)
}

// MarkPublished marks a stored record as published
func (db *DB) MarkPublished(ctx context.Context, id int) error {
	query := `UPDATE usage_hourly SET published = 1 WHERE id = ?`
	_, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("marking record as published: %w", err)
	}
	return nil
}

func (db *DB) query(ctx context.Context, query string, args ...any) ([]models.AggregatedRecord, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage data: %w", err)
	}
	defer rows.Close()

	var results []models.AggregatedRecord
	for rows.Next() {
		var r models.AggregatedRecord
		var hourStr, typ string

		if err := rows.Scan(&r.ID, &r.Building, &hourStr, &typ, &r.UsageUnit, &r.Usage, &r.Occupancy); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.Timestamp, err = time.Parse(hourLayout, hourStr)
		if err != nil {
			return nil, fmt.Errorf("parsing hour: %w", err)
		}
		r.Type = models.ReadingType(typ)

		results = append(results, r)
	}

	return results, rows.Err()
}
