package logbook

import (
	"errors"
	"sync"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errStoreClosed     = errors.New("store closed")
	noOpLogger         = zap.NewNop()
)

// StoreConfig describes the dependencies of a Store.
type StoreConfig struct {
	Database *gorm.DB
	Dates    *codec.DateCodec
	Logger   *zap.Logger
}

// Store exclusively owns the storage handle shared by the roll and frame repositories.
//
// All mutations go through writeMu, so a frame number read and the insert that
// uses it can never interleave with another writer in this process. Reads do
// not take writeMu; single SQL statements are atomic. Every operation holds
// stateMu for reading while it uses the handle, so Close waits for in-flight
// operations instead of closing the connection under them.
type Store struct {
	db      *gorm.DB
	cause   error
	dates   *codec.DateCodec
	logger  *zap.Logger
	writeMu sync.Mutex
	stateMu sync.RWMutex
}

// Status reports whether the storage handle materialized.
type Status struct {
	Available bool
	Cause     error
}

// NewStore wraps an opened database. A nil database yields an unavailable store.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	dates := cfg.Dates
	if dates == nil {
		dates = codec.NewDateCodec(nil)
	}
	store := &Store{
		db:     cfg.Database,
		dates:  dates,
		logger: logger,
	}
	if store.db == nil {
		store.cause = errMissingDatabase
	}
	return store
}

// NewUnavailableStore records why the storage handle could not be opened.
// Every repository call against it fails fast with ErrStorageUnavailable.
func NewUnavailableStore(cause error, logger *zap.Logger) *Store {
	if cause == nil {
		cause = errMissingDatabase
	}
	store := NewStore(StoreConfig{Logger: logger})
	store.cause = cause
	store.loggerOrDefault().Error("logbook storage unavailable", zap.Error(cause))
	return store
}

// Status returns the explicit availability signal.
func (s *Store) Status() Status {
	if s == nil {
		return Status{Available: false, Cause: errMissingDatabase}
	}
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.db == nil {
		return Status{Available: false, Cause: s.cause}
	}
	return Status{Available: true}
}

// Dates exposes the codec used to marshal timestamps.
func (s *Store) Dates() *codec.DateCodec {
	return s.dates
}

// Close releases the underlying connection once in-flight operations finish.
// The store is unavailable afterwards.
func (s *Store) Close() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	s.cause = errStoreClosed
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// acquire returns the live database or fails fast without attempting I/O.
// The caller must run release when done with the handle; Close blocks until then.
func (s *Store) acquire(operation string) (db *gorm.DB, release func(), err error) {
	if s == nil {
		return nil, func() {}, newServiceError(operation, reasonStorageUnavailable, ErrStorageUnavailable, errMissingDatabase)
	}
	s.stateMu.RLock()
	if s.db == nil {
		cause := s.cause
		s.stateMu.RUnlock()
		if cause == nil {
			cause = errMissingDatabase
		}
		return nil, func() {}, newServiceError(operation, reasonStorageUnavailable, ErrStorageUnavailable, cause)
	}
	return s.db, s.stateMu.RUnlock, nil
}

// ensureAvailable reports ErrStorageUnavailable without holding the handle.
func (s *Store) ensureAvailable(operation string) error {
	_, release, err := s.acquire(operation)
	release()
	return err
}

func (s *Store) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("logbook storage error", attrs...)
}
