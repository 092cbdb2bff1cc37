package logbook

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opInsertRoll = "logbook.insert_roll"
	opEndRoll    = "logbook.end_roll"
	opFetchRolls = "logbook.fetch_rolls"
	opFetchRoll  = "logbook.fetch_roll"

	fieldRollID        = "roll_id"
	queryRollID        = fieldRollID + " = ?"
	orderStartTimeDesc = "start_time DESC"
	columnEndTime      = "end_time"
)

// RollRepository exposes the roll operations over a Store.
type RollRepository struct {
	store *Store
}

// NewRollRepository binds a roll repository to the shared store.
func NewRollRepository(store *Store) *RollRepository {
	return &RollRepository{store: store}
}

// InsertRoll writes a new roll row. A second roll with the same id is a constraint violation.
func (r *RollRepository) InsertRoll(ctx context.Context, roll Roll) error {
	db, release, err := r.store.acquire(opInsertRoll)
	if err != nil {
		return err
	}
	defer release()
	if err := validateRoll(roll); err != nil {
		return newServiceError(opInsertRoll, reasonInvalidInput, ErrInvalidInput, err)
	}

	record := rollToRecord(r.store.dates, roll)

	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		serviceErr := writeFailure(opInsertRoll, err)
		r.store.logError(opInsertRoll, reasonOf(serviceErr), err, zap.String(fieldRollID, record.RollID))
		return serviceErr
	}
	return nil
}

// EndRoll sets the roll's end time unconditionally and reports how many rows changed.
// Ending an unknown roll changes nothing and is not an error; ending an ended roll overwrites the time.
func (r *RollRepository) EndRoll(ctx context.Context, rollID RollID, endTime time.Time) (int64, error) {
	db, release, err := r.store.acquire(opEndRoll)
	if err != nil {
		return 0, err
	}
	defer release()
	if endTime.IsZero() {
		return 0, newServiceError(opEndRoll, reasonInvalidInput, ErrInvalidInput, errors.New("end time is required"))
	}

	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	result := db.WithContext(ctx).
		Model(&RollRecord{}).
		Where(queryRollID, rollID.String()).
		Update(columnEndTime, r.store.dates.FormatStored(endTime))
	if result.Error != nil {
		r.store.logError(opEndRoll, reasonWriteFailed, result.Error, zap.String(fieldRollID, rollID.String()))
		return 0, writeFailure(opEndRoll, result.Error)
	}
	return result.RowsAffected, nil
}

// FetchRolls returns every roll, most recently started first.
// When storage is unavailable the slice is empty (never nil) and the error says so.
func (r *RollRepository) FetchRolls(ctx context.Context) ([]Roll, error) {
	rolls := []Roll{}
	db, release, err := r.store.acquire(opFetchRolls)
	if err != nil {
		return rolls, err
	}
	defer release()

	var records []RollRecord
	if err := db.WithContext(ctx).Order(orderStartTimeDesc).Find(&records).Error; err != nil {
		r.store.logError(opFetchRolls, reasonQueryFailed, err)
		return rolls, newServiceError(opFetchRolls, reasonQueryFailed, ErrStorageFailure, err)
	}

	for _, record := range records {
		roll, err := rollFromRecord(r.store.dates, record)
		if err != nil {
			r.store.logError(opFetchRolls, reasonDecodeFailed, err, zap.String(fieldRollID, record.RollID))
			return []Roll{}, newServiceError(opFetchRolls, reasonDecodeFailed, ErrCorruptRecord, err)
		}
		rolls = append(rolls, roll)
	}
	return rolls, nil
}

// FetchRoll returns the roll with the given id; found is false when no row matches.
func (r *RollRepository) FetchRoll(ctx context.Context, rollID RollID) (Roll, bool, error) {
	db, release, err := r.store.acquire(opFetchRoll)
	if err != nil {
		return Roll{}, false, err
	}
	defer release()

	var record RollRecord
	err = db.WithContext(ctx).Where(queryRollID, rollID.String()).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Roll{}, false, nil
	}
	if err != nil {
		r.store.logError(opFetchRoll, reasonQueryFailed, err, zap.String(fieldRollID, rollID.String()))
		return Roll{}, false, newServiceError(opFetchRoll, reasonQueryFailed, ErrStorageFailure, err)
	}

	roll, err := rollFromRecord(r.store.dates, record)
	if err != nil {
		r.store.logError(opFetchRoll, reasonDecodeFailed, err, zap.String(fieldRollID, rollID.String()))
		return Roll{}, false, newServiceError(opFetchRoll, reasonDecodeFailed, ErrCorruptRecord, err)
	}
	return roll, true, nil
}

func reasonOf(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && errors.Is(serviceErr.kind, ErrConstraintViolation) {
		return reasonConstraintViolation
	}
	return reasonWriteFailed
}
