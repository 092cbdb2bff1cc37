package database

import (
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesEmptyOptionalText(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := EnsureSchema(database); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	empty := ""
	roll := logbook.RollRecord{
		RollID:    "roll-1",
		FilmStock: "Kodak Portra 400",
		ISO:       400,
		Camera:    "Leica M6",
		Lens:      "50mm Summicron",
		Notes:     &empty,
		StartTime: "2024-03-09T09:30:15",
		EndTime:   &empty,
	}
	if err := database.Create(&roll).Error; err != nil {
		testContext.Fatalf("failed to insert roll: %v", err)
	}
	frame := logbook.FrameRecord{
		RollID:      "roll-1",
		FrameNumber: 1,
		Shutter:     &empty,
		Timestamp:   "2024-03-09T09:31:00",
		Keywords:    &empty,
	}
	if err := database.Create(&frame).Error; err != nil {
		testContext.Fatalf("failed to insert frame: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop(), dataMigrations()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var storedRoll logbook.RollRecord
	if err := database.Where("roll_id = ?", "roll-1").Take(&storedRoll).Error; err != nil {
		testContext.Fatalf("failed to reload roll: %v", err)
	}
	if storedRoll.Notes != nil || storedRoll.EndTime != nil {
		testContext.Fatalf("expected empty optional roll text to become NULL, got %#v", storedRoll)
	}

	var storedFrame logbook.FrameRecord
	if err := database.Where("roll_id = ? AND frame_number = ?", "roll-1", 1).Take(&storedFrame).Error; err != nil {
		testContext.Fatalf("failed to reload frame: %v", err)
	}
	if storedFrame.Shutter != nil || storedFrame.Keywords != nil {
		testContext.Fatalf("expected empty optional frame text to become NULL, got %#v", storedFrame)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeEmptyOptionalText).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop(), dataMigrations()); err != nil {
		testContext.Fatalf("re-applying migrations should be a no-op: %v", err)
	}
	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected a single migration record, got %d", count)
	}
}
