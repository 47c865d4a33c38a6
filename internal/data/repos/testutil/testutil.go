package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/data/db"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// DB returns a migrated, empty database. By default it is a fresh SQLite
// file under tb.TempDir(); set TEST_POSTGRES_DSN to run against Postgres,
// in which case the registry tables are truncated first.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := db.Config{Driver: db.DriverSQLite, DSN: filepath.Join(tb.TempDir(), "test.db"), Silent: true}
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		cfg = db.Config{Driver: db.DriverPostgres, DSN: dsn, Silent: true}
	}
	svc, err := db.NewService(Logger(tb), cfg)
	if err != nil {
		tb.Fatalf("failed to init test db: %v", err)
	}
	tb.Cleanup(func() { _ = svc.Close() })

	if err := db.AutoMigrateAll(svc.DB()); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	if svc.Driver() == db.DriverPostgres {
		err := svc.DB().Exec(`TRUNCATE users, problems, problem_versions, solvers, solver_versions RESTART IDENTITY`).Error
		if err != nil {
			tb.Fatalf("truncate test db: %v", err)
		}
	}
	return svc.DB()
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
