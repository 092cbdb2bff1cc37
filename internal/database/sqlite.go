package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	pragmaForeignKeys = "_pragma=foreign_keys(1)"
	pragmaBusyTimeout = "_pragma=busy_timeout(5000)"
	memoryPathMarker  = ":memory:"
)

// OpenSQLite establishes a SQLite connection, ensures the schema and applies repair migrations.
// The returned handle is limited to a single connection and enforces foreign keys.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := ensureParentDirectory(path); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(buildDSN(path)), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := enableForeignKeys(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := db.AutoMigrate(&migrationRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := applyMigrations(db, logger, schemaRepairs()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := EnsureSchema(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := applyMigrations(db, logger, dataMigrations()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// EnsureSchema creates the roll and frame tables when missing. It is safe to run on every start.
func EnsureSchema(db *gorm.DB) error {
	return db.AutoMigrate(append(logbook.SchemaModels(), &migrationRecord{})...)
}

func buildDSN(path string) string {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + pragmaForeignKeys + "&" + pragmaBusyTimeout
}

func ensureParentDirectory(path string) error {
	if strings.Contains(path, memoryPathMarker) || strings.HasPrefix(path, "file:") {
		return nil
	}
	directory := filepath.Dir(path)
	if directory == "." || directory == "" {
		return nil
	}
	if err := os.MkdirAll(directory, 0o750); err != nil {
		return fmt.Errorf("create database directory %s: %w", directory, err)
	}
	return nil
}

func enableForeignKeys(db *gorm.DB) error {
	var enabled int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil {
		return err
	}
	if enabled == 1 {
		return nil
	}
	return db.Exec("PRAGMA foreign_keys = ON").Error
}
