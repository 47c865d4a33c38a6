package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/domain/user"
)

// AutoMigrateAll creates or updates every table. Artifact and version
// structs are shared between kinds, so each kind is migrated against its
// own table names.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(&user.User{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	for _, kind := range artifact.Kinds {
		if err := db.Table(kind.Table()).AutoMigrate(&artifact.Artifact{}); err != nil {
			return fmt.Errorf("migrate %s: %w", kind.Table(), err)
		}
		if err := db.Table(kind.VersionTable()).AutoMigrate(&artifact.Version{}); err != nil {
			return fmt.Errorf("migrate %s: %w", kind.VersionTable(), err)
		}
	}
	return EnsureRegistryIndexes(db)
}

// EnsureRegistryIndexes creates the per-kind indexes by hand because index
// names must be unique across tables that share a Go struct.
func EnsureRegistryIndexes(db *gorm.DB) error {
	for _, kind := range artifact.Kinds {
		t, vt := kind.Table(), kind.VersionTable()
		stmts := []struct{ name, sql string }{
			{"uq_" + t + "_owner_name_version", fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS uq_%[1]s_owner_name_version ON %[1]s(owner_id, name, version)`, t)},
			{"idx_" + t + "_created_at", fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at)`, t)},
			{"idx_" + t + "_category", fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_category ON %[1]s(category)`, t)},
			{"idx_" + vt + "_artifact_id", fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_artifact_id ON %[1]s(artifact_id)`, vt)},
		}
		for _, st := range stmts {
			if err := db.Exec(st.sql).Error; err != nil {
				return fmt.Errorf("create %s: %w", st.name, err)
			}
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	if err := AutoMigrateAll(s.db); err != nil {
		return err
	}
	s.log.Info("Schema migrated")
	return nil
}
