// Package store persists sensor readings in PostgreSQL.
//
// Rows live in a single table:
//
//	sensor_data(id, temperature, humidity, recorded_at)
//
// Temperature is Celsius and humidity percent. Rows are ordered by id, which
// matches insertion order.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrEmpty is returned when a query needs at least one row and the table
// has none.
var ErrEmpty = errors.New("store: no readings")

const schema = `
CREATE TABLE IF NOT EXISTS sensor_data (
	id          BIGSERIAL PRIMARY KEY,
	temperature DOUBLE PRECISION NOT NULL,
	humidity    DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS sensor_data_recorded_at_idx ON sensor_data (recorded_at);
`

// Row is one stored reading.
type Row struct {
	ID          int64
	Temperature float64
	Humidity    float64
	RecordedAt  time.Time
}

// Store is a PostgreSQL-backed reading store.
type Store struct {
	db *sql.DB
}

// Options tune the connection pool. Zero values keep database/sql defaults.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Reset drops and recreates the table.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS sensor_data`); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return s.Migrate(ctx)
}

// Insert stores one reading and returns it with its assigned id.
func (s *Store) Insert(ctx context.Context, temperature, humidity float64, at time.Time) (Row, error) {
	row := Row{Temperature: temperature, Humidity: humidity, RecordedAt: at}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO sensor_data (temperature, humidity, recorded_at) VALUES ($1, $2, $3) RETURNING id`,
		temperature, humidity, at,
	).Scan(&row.ID)
	if err != nil {
		return Row{}, fmt.Errorf("insert reading: %w", err)
	}
	return row, nil
}

// Last returns the most recent row, or ErrEmpty.
func (s *Store) Last(ctx context.Context) (Row, error) {
	var r Row
	err := s.db.QueryRowContext(ctx,
		`SELECT id, temperature, humidity, recorded_at FROM sensor_data ORDER BY id DESC LIMIT 1`,
	).Scan(&r.ID, &r.Temperature, &r.Humidity, &r.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrEmpty
	}
	if err != nil {
		return Row{}, fmt.Errorf("last reading: %w", err)
	}
	return r, nil
}

// Latest returns up to n of the most recent rows, newest first.
func (s *Store) Latest(ctx context.Context, n int) ([]Row, error) {
	return s.query(ctx,
		`SELECT id, temperature, humidity, recorded_at FROM sensor_data ORDER BY id DESC LIMIT $1`, n)
}

// Oldest returns up to n of the earliest rows, oldest first.
func (s *Store) Oldest(ctx context.Context, n int) ([]Row, error) {
	return s.query(ctx,
		`SELECT id, temperature, humidity, recorded_at FROM sensor_data ORDER BY id ASC LIMIT $1`, n)
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_data`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, q string, n int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Temperature, &r.Humidity, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reverse returns rows in the opposite order. Latest rows come newest
// first; charts want them oldest first.
func Reverse(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}
