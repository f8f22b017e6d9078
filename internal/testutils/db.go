package testutils

import (
	"path/filepath"
	"testing"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	"github.com/USA-RedDragon/itinerary-server/internal/db"
	"gorm.io/gorm"
)

// NewDB opens a migrated sqlite database in a per-test temp directory.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{}
	cfg.Persistence.Database.Driver = config.DatabaseDriverSQLite
	cfg.Persistence.Database.Database = filepath.Join(t.TempDir(), "test.db")
	database, err := db.MakeDB(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close(database)
	})
	return database
}
