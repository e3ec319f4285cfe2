package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tabvault/tabvault/internal/shared/types"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the database handle. Obtain one with Open; the zero value is
// not usable.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path, applies pragmas and
// migrations, and seeds the unassigned pseudo-workspace.
func Open(path string) (*Store, error) {
	cfg := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// WAL for durability with a single writer; NORMAL sync is safe under WAL.
	if err := db.Exec("PRAGMA journal_mode = WAL;").Error; err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := db.Exec("PRAGMA synchronous = NORMAL;").Error; err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	// SQLite supports one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&types.WorkspaceGroup{},
		&types.Workspace{},
		&types.Tab{},
		&types.TabGroup{},
		&types.WorkspaceSnapshot{},
		&types.SnapshotTab{},
		&types.SnapshotTabGroup{},
		&Alarm{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedUnassigned(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Tx runs fn inside one transaction. The Store passed to fn is bound to the
// transaction; any error rolls the whole operation back.
func (s *Store) Tx(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// seedUnassigned guarantees the synthetic workspace that owns unattributed
// tabs exists.
func (s *Store) seedUnassigned() error {
	var count int64
	if err := s.db.Model(&types.Workspace{}).
		Where("id = ?", types.UnassignedWorkspaceID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check unassigned workspace: %w", err)
	}
	if count > 0 {
		return nil
	}

	ws := &types.Workspace{
		ID:        types.UnassignedWorkspaceID,
		Name:      "Unassigned",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(ws).Error; err != nil {
		return fmt.Errorf("failed to seed unassigned workspace: %w", err)
	}
	return nil
}

// wrapNotFound maps gorm's record-not-found onto the package sentinel.
func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
