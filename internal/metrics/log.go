package metrics

import (
	"context"
	"log/slog"

	"WhereAmI/internal/domain"
)

// LogBackend writes each record as one structured log line.
type LogBackend struct {
	logger *slog.Logger
}

// NewLogBackend logs at info level.
func NewLogBackend(logger *slog.Logger) *LogBackend {
	return &LogBackend{logger: logger}
}

func (b *LogBackend) Name() string { return "log" }

func (b *LogBackend) Record(ctx context.Context, record domain.MetricsRecord) error {
	attrs := []any{
		"id", record.ID,
		"instance_id", record.InstanceID,
		"location_request_time", record.LocationRequestTime,
		"latitude", record.Latitude,
		"longitude", record.Longitude,
		"voice", record.Voice,
		"location_miss", record.LocationMiss,
	}
	if record.Locality != nil {
		attrs = append(attrs, "locality", *record.Locality)
	}
	if record.StateName != nil {
		attrs = append(attrs, "state_name", *record.StateName)
	}
	if record.Filename != nil {
		attrs = append(attrs, "filename", *record.Filename)
	}
	if record.CacheHit != nil {
		attrs = append(attrs, "cache_hit", *record.CacheHit)
	}

	b.logger.InfoContext(ctx, "metrics", attrs...)
	return nil
}
