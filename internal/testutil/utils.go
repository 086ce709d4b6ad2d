package testutil

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/npezzotti/go-estate/internal/database"
)

func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "[test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}

// NewTestRepository returns a repository backed by a migrated SQLite
// database in the test's temp dir.
func NewTestRepository(t *testing.T) *database.SQLRepository {
	t.Helper()

	repo, err := database.NewSQLRepository(database.DriverSQLite, filepath.Join(t.TempDir(), "estate.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}
