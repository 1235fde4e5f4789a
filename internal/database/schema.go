package database

import (
	"context"
	"fmt"
	"log/slog"

	"chirper/internal/config"
	"chirper/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do.
type SchemaStatus struct {
	Mode               string      `yaml:"mode"`
	Environment        string      `yaml:"environment"`
	Driver             string      `yaml:"driver"`
	WillRunSQL         bool        `yaml:"will_run_sql"`
	WillRunAutoMigrate bool        `yaml:"will_run_automigrate"`
	AppliedVersions    []int       `yaml:"applied_versions"`
	PendingMigrations  []Migration `yaml:"pending_migrations"`
}

// schemaPolicy decides between the embedded SQL migrations (Postgres only)
// and gorm AutoMigrate. Hybrid runs SQL everywhere and AutoMigrate outside
// production.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	mode := cfg.SchemaMode
	if mode == "" {
		mode = SchemaModeHybrid
	}
	if cfg.DBDriver == "sqlite" {
		return false, true, nil
	}

	switch mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if cfg.IsProduction() {
			return false, false, fmt.Errorf("refusing SCHEMA_MODE=auto in %q", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !cfg.IsProduction(), nil
	}
	return false, false, fmt.Errorf("unsupported SCHEMA_MODE %q", mode)
}

// ApplySchema brings the database schema up to date.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		migrations, err := EmbeddedMigrations()
		if err != nil {
			return err
		}
		if err := EnsureLedger(ctx, db); err != nil {
			return err
		}
		if _, err := NewMigrator(NewMigrationStore(db), migrations).Up(ctx); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		middleware.Logger.InfoContext(ctx, "running gorm AutoMigrate", slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the schema policy and migration state.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               cfg.SchemaMode,
		Environment:        cfg.Env,
		Driver:             cfg.DBDriver,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	migrations, err := EmbeddedMigrations()
	if err != nil {
		return nil, err
	}
	store := NewMigrationStore(db)
	if status.AppliedVersions, err = store.AppliedVersions(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = NewMigrator(store, migrations).Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
