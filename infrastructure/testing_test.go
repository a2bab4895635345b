package infrastructure

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testStore opens a migrated SQLite database in a per-test temp dir.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := fmt.Sprintf("%s/store_test_%d.db", t.TempDir(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := CreateTables(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return NewStore(db)
}
