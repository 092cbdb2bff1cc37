package database

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeEmptyOptionalText    = "2026-10-18_normalize_empty_optional_text"
	migrationRebuildInvertedFrameReference = "2026-10-19_rebuild_inverted_frame_reference"

	tableRolls  = "rolls"
	tableFrames = "frames"
)

var errInvertedReferenceWithRows = errors.New("rolls table with inverted frame reference is not empty")

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

// schemaRepairs run before the logbook tables are created or migrated.
func schemaRepairs() []migrationDefinition {
	return []migrationDefinition{
		{name: migrationRebuildInvertedFrameReference, apply: rebuildInvertedFrameReference},
	}
}

// dataMigrations run once the schema is current.
func dataMigrations() []migrationDefinition {
	return []migrationDefinition{
		{name: migrationNormalizeEmptyOptionalText, apply: normalizeEmptyOptionalText},
	}
}

func applyMigrations(db *gorm.DB, logger *zap.Logger, migrations []migrationDefinition) error {
	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", migration.name, err)
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeEmptyOptionalText rewrites '' to NULL so older rows read back as absent.
func normalizeEmptyOptionalText(db *gorm.DB) error {
	tables := make([]string, 0, len(logbook.OptionalTextColumns))
	for table := range logbook.OptionalTextColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		for _, column := range logbook.OptionalTextColumns[table] {
			statement := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = ''", table, column, column)
			if err := db.Exec(statement).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// rebuildInvertedFrameReference drops tables from builds that declared the
// foreign key on rolls pointing at frames. No roll could be inserted into such
// a table, so it is empty; frames left in it reference no roll and go with it.
// Schema creation then builds both tables with frames referencing rolls.
func rebuildInvertedFrameReference(db *gorm.DB) error {
	inverted, err := tableReferences(db, tableRolls, tableFrames)
	if err != nil {
		return err
	}
	if !inverted {
		return nil
	}
	var rolls int64
	if err := db.Table(tableRolls).Count(&rolls).Error; err != nil {
		return err
	}
	if rolls > 0 {
		return fmt.Errorf("%w: %d rows", errInvertedReferenceWithRows, rolls)
	}
	if err := db.Exec("DROP TABLE " + tableRolls).Error; err != nil {
		return err
	}
	return db.Exec("DROP TABLE IF EXISTS " + tableFrames).Error
}

// tableReferences reports whether the stored definition of table declares a
// foreign key into referenced.
func tableReferences(db *gorm.DB, table, referenced string) (bool, error) {
	var definitions []string
	if err := db.Raw("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&definitions).Error; err != nil {
		return false, err
	}
	unquote := strings.NewReplacer("`", "", `"`, "", "[", "", "]", "")
	for _, definition := range definitions {
		normalized := strings.ToLower(unquote.Replace(definition))
		if strings.Contains(normalized, "references "+referenced+"(") || strings.Contains(normalized, "references "+referenced+" (") {
			return true, nil
		}
	}
	return false, nil
}
