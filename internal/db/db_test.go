package db

import (
	"context"
	"testing"
	"time"
)

// TestNew_PingError ensures that ping failures are propagated
// even when closing the connection succeeds.
func TestNew_PingError(t *testing.T) {
	// Use an unreachable DSN to trigger ping error quickly
	cfg := MariaDbConfig{
		DSN:             "invalid:invalid@tcp(127.0.0.1:0)/dbname",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Second,
		PingTimeout:     time.Second,
	}
	db, err := New(context.Background(), cfg)
	if err == nil {
		if db != nil {
			_ = db.Close()
		}
		t.Fatalf("expected error, got nil")
	}
}

func TestNew_InvalidDSN(t *testing.T) {
	if _, err := New(context.Background(), MariaDbConfig{DSN: "not a dsn"}); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}
