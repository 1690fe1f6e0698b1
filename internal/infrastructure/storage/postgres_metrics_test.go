package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"WhereAmI/internal/domain"
)

func TestInsertMetricsQuery(t *testing.T) {
	t.Parallel()

	locality := "Gregerton"
	hit := true
	query, args, err := insertMetricsQuery(domain.MetricsRecord{
		ID:                  "id-1",
		InstanceID:          "instance-1",
		LocationRequestTime: 1700000000000,
		Latitude:            -28.2,
		Longitude:           152.03,
		Locality:            &locality,
		Voice:               "Brian",
		CacheHit:            &hit,
	})
	if err != nil {
		t.Fatalf("insertMetricsQuery returned error: %v", err)
	}

	if !strings.HasPrefix(query, "INSERT INTO location_metrics (id,instance_id,location_request_time") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)") {
		t.Fatalf("expected dollar placeholders: %s", query)
	}
	if len(args) != 11 {
		t.Fatalf("expected 11 args, got %d", len(args))
	}
	if args[0] != "id-1" || args[7] != "Brian" || args[10] != false {
		t.Fatalf("unexpected args: %v", args)
	}
	if p, ok := args[5].(*string); !ok || *p != "Gregerton" {
		t.Fatalf("unexpected locality arg: %v", args[5])
	}
	if p, ok := args[6].(*string); !ok || p != nil {
		t.Fatalf("expected a nil state name, got %v", args[6])
	}
}

func TestRecordWithoutDB(t *testing.T) {
	t.Parallel()

	if err := NewPostgresMetrics(nil).Record(context.Background(), domain.MetricsRecord{}); err != nil {
		t.Fatalf("Record without db returned error: %v", err)
	}
}

func TestPostgresMetricsIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		t.Skip("DATABASE_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer db.Close()

	repo := NewPostgresMetrics(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	id := uuid.NewString()
	if err := repo.Record(ctx, domain.MetricsRecord{
		ID:                  id,
		InstanceID:          "integration",
		LocationRequestTime: time.Now().UnixMilli(),
		Voice:               "Brian",
		LocationMiss:        true,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var miss bool
	if err := db.QueryRowContext(ctx, `SELECT location_miss FROM location_metrics WHERE id = $1`, id).Scan(&miss); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !miss {
		t.Fatalf("location_miss not stored")
	}
}
