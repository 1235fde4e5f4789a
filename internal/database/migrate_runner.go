package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"chirper/internal/middleware"

	"gorm.io/gorm"
)

// MigrationStore records which migrations have been applied.
type MigrationStore interface {
	AppliedVersions(ctx context.Context) ([]int, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

// MigrationLog represents a record of an applied migration in the database.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

type gormMigrationStore struct {
	db *gorm.DB
}

// NewMigrationStore keeps the ledger in the migration_logs table.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &gormMigrationStore{db: db}
}

const ensureMigrationLogTableSQL = `CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func (s *gormMigrationStore) AppliedVersions(ctx context.Context) ([]int, error) {
	var versions []int
	err := s.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		if isMissingTableError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// Apply runs the up script and records it in one transaction.
func (s *gormMigrationStore) Apply(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m, err)
		}
		if err := tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m, err)
		}
		return nil
	})
}

// Revert runs the down script and forgets the version in one transaction.
func (s *gormMigrationStore) Revert(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("failed to roll back migration %s: %w", m, err)
		}
		if err := tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error; err != nil {
			return fmt.Errorf("failed to remove migration record %d: %w", m.Version, err)
		}
		return nil
	})
}

// ErrNothingToRollBack is returned by Down when no migration is applied.
var ErrNothingToRollBack = errors.New("no applied migrations to roll back")

// Migrator applies and reverts a fixed list of migrations.
type Migrator struct {
	store      MigrationStore
	migrations []Migration
}

// NewMigrator builds a migrator over store.
func NewMigrator(store MigrationStore, migrations []Migration) *Migrator {
	return &Migrator{store: store, migrations: migrations}
}

// Up applies every pending migration in version order and returns the
// versions it applied.
func (m *Migrator) Up(ctx context.Context) ([]int, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var applied []int
	for _, mig := range pending {
		middleware.Logger.InfoContext(ctx, "applying migration", slog.Int("version", mig.Version), slog.String("name", mig.Name))
		if err := m.store.Apply(ctx, mig); err != nil {
			return applied, err
		}
		applied = append(applied, mig.Version)
	}
	return applied, nil
}

// Down reverts the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) (Migration, error) {
	applied, err := m.store.AppliedVersions(ctx)
	if err != nil {
		return Migration{}, err
	}
	if len(applied) == 0 {
		return Migration{}, ErrNothingToRollBack
	}

	latest := applied[len(applied)-1]
	for _, mig := range m.migrations {
		if mig.Version == latest {
			middleware.Logger.InfoContext(ctx, "rolling back migration", slog.Int("version", mig.Version), slog.String("name", mig.Name))
			return mig, m.store.Revert(ctx, mig)
		}
	}
	return Migration{}, fmt.Errorf("migration version %06d is applied but not present in code", latest)
}

// Pending lists migrations not yet applied. Applied versions unknown to the
// code are an error: the database is ahead of this binary.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.store.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAppliedVersions(applied, m.migrations); err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	var pending []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []int
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, version)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, 0, len(unknown))
	for _, version := range unknown {
		parts = append(parts, fmt.Sprintf("%06d", version))
	}
	return fmt.Errorf("migration_logs contains unknown versions not present in code: %s", strings.Join(parts, ", "))
}

// EnsureLedger creates the migration_logs table when missing.
func EnsureLedger(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(ensureMigrationLogTableSQL).Error; err != nil {
		return fmt.Errorf("failed to ensure migration logs table: %w", err)
	}
	return nil
}
