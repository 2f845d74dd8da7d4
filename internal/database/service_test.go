package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gaming-billing-go/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDb opens a private in-memory database for one test. The DSN is
// derived from the test name so parallel tests never share state, and the
// pool is capped at one connection to keep the memory database alive.
func setupTestDb(t *testing.T) *Service {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:            dsn,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func TestNewService_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(ctx, models.DatabaseConfig{})
	if err == nil {
		t.Fatal("Expected error for empty database path")
	}

	_, err = NewService(ctx, models.DatabaseConfig{Path: "test.db"})
	if err == nil {
		t.Fatal("Expected error for zero max open connections")
	}
}
