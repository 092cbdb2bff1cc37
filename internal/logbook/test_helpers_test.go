package logbook

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	testLocation    = time.FixedZone("test", 2*60*60)
	errExhaustedIDs = errors.New("exhausted ids")
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "logbook.sqlite")
	db, err := gorm.Open(sqlite.Open(databasePath+"?_pragma=foreign_keys(1)"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(SchemaModels()...); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	store := NewStore(StoreConfig{
		Database: db,
		Dates:    codec.NewDateCodec(testLocation),
		Logger:   zap.NewNop(),
	})
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func mustRollID(t *testing.T, value string) RollID {
	t.Helper()
	id, err := NewRollID(value)
	if err != nil {
		t.Fatalf("unexpected roll id error: %v", err)
	}
	return id
}

func mustInsertRoll(t *testing.T, repository *RollRepository, id string, startTime time.Time) Roll {
	t.Helper()
	roll := Roll{
		ID:        mustRollID(t, id),
		FilmStock: "Kodak Portra 400",
		ISO:       400,
		Camera:    "Leica M6",
		Lens:      "50mm Summicron",
		StartTime: startTime,
	}
	if err := repository.InsertRoll(t.Context(), roll); err != nil {
		t.Fatalf("failed to insert roll %s: %v", id, err)
	}
	return roll
}

func stringPointer(value string) *string {
	return &value
}

func floatPointer(value float64) *float64 {
	return &value
}

func intPointer(value int) *int {
	return &value
}

type staticIDProvider struct {
	ids   []string
	index int
}

func (p *staticIDProvider) NewID() (string, error) {
	if p.index >= len(p.ids) {
		return "", errExhaustedIDs
	}
	id := p.ids[p.index]
	p.index++
	return id, nil
}
