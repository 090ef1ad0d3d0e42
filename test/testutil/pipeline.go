package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/app"
	"github.com/fhuszti/property-media-ms-go/internal/config"
	"github.com/fhuszti/property-media-ms-go/internal/metrics"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/repository/mariadb"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Settings returns the configuration the harnesses run the pipeline with.
func Settings(bucket string) *config.Settings {
	return &config.Settings{
		AppEnv:                  "test",
		StorageDriver:           config.StorageDriverMinio,
		Bucket:                  bucket,
		BreakerFailureThreshold: 5,
		BreakerCooldown:         30 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
		MaxRetries:              3,
		RetryDelay:              time.Second,
		RetryDelayMode:          config.RetryDelayModeFixed,
		FetchTimeout:            5 * time.Second,
		StorePutTimeout:         10 * time.Second,
		MaxUploadBytes:          5 << 20,
		MaxFilesPerKind:         10,
		KeyMaxLength:            100,
		WorkerConcurrency:       4,
		BufferTTL:               time.Hour,
	}
}

// NewPipeline wires the production pipeline against a real store, with its own metrics registry.
func NewPipeline(cfg *config.Settings, strg port.Storage, repo port.MediaItemRepository, stash port.BufferStash, ca port.StatusCache) (app.Pipeline, *metrics.PrometheusMetrics) {
	m := metrics.New("property_media_test", prometheus.NewRegistry())
	br := app.NewBreaker(cfg, m)
	return app.Pipeline{
		Repo:    repo,
		Stash:   stash,
		Store:   app.NewGateway(cfg, strg, br),
		Cache:   ca,
		Metrics: m,
	}, m
}

// InsertProperty creates a property row and returns its id.
func InsertProperty(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO properties () VALUES ()")
	if err != nil {
		t.Fatalf("insert property: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("property id: %v", err)
	}
	return id
}

// WaitForStatus polls the ledger until the item reaches one of want.
func WaitForStatus(t *testing.T, repo *mariadb.MediaItemRepository, id uuid.UUID, timeout time.Duration, want ...model.UploadStatus) *model.MediaItem {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		item, err := repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		for _, s := range want {
			if item.Status == s {
				return item
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s to reach %v, last status %q (%s)", id, want, item.Status, deref(item.ErrorMessage))
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("error: %s", *s)
}
