package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"WhereAmI/internal/domain"
	"WhereAmI/internal/ports"
)

const metricsTable = "location_metrics"

//go:embed schema.sql
var schema string

// PostgresMetrics persists metrics records into Postgres.
type PostgresMetrics struct {
	db *sql.DB
}

var _ ports.MetricsRecorder = (*PostgresMetrics)(nil)

// NewPostgresMetrics wires a sql.DB implementation.
func NewPostgresMetrics(db *sql.DB) *PostgresMetrics {
	return &PostgresMetrics{db: db}
}

// OpenPostgres opens a lib/pq connection pool and checks it answers.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the metrics table when it does not exist.
func (r *PostgresMetrics) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create metrics schema: %w", err)
	}
	return nil
}

// Record inserts one row per request.
func (r *PostgresMetrics) Record(ctx context.Context, record domain.MetricsRecord) error {
	if r.db == nil {
		return nil
	}

	query, args, err := insertMetricsQuery(record)
	if err != nil {
		return fmt.Errorf("build metrics insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}
	return nil
}

func insertMetricsQuery(record domain.MetricsRecord) (string, []interface{}, error) {
	return sq.Insert(metricsTable).
		Columns(
			"id", "instance_id", "location_request_time", "latitude", "longitude",
			"locality", "state_name", "voice", "filename", "cache_hit", "location_miss",
		).
		Values(
			record.ID,
			record.InstanceID,
			record.LocationRequestTime,
			record.Latitude,
			record.Longitude,
			record.Locality,
			record.StateName,
			record.Voice,
			record.Filename,
			record.CacheHit,
			record.LocationMiss,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}
