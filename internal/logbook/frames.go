package logbook

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opNextFrameNumber = "logbook.next_frame_number"
	opInsertFrame     = "logbook.insert_frame"
	opAppendFrame     = "logbook.append_frame"
	opFetchFrames     = "logbook.fetch_frames"

	fieldFrameNumber      = "frame_number"
	fieldAttempt          = "attempt"
	orderFrameNumberAsc   = fieldFrameNumber + " ASC"
	selectNextFrameNumber = "COALESCE(MAX(" + fieldFrameNumber + "), 0) + 1"

	maxAppendAttempts = 3
)

// FrameRepository exposes the append-only frame operations over a Store.
type FrameRepository struct {
	store *Store
}

// NewFrameRepository binds a frame repository to the shared store.
func NewFrameRepository(store *Store) *FrameRepository {
	return &FrameRepository{store: store}
}

// NextFrameNumber returns one past the highest frame number logged for the roll, or 1.
// It reserves nothing; use AppendFrame to number and insert in one step.
func (r *FrameRepository) NextFrameNumber(ctx context.Context, rollID RollID) (int, error) {
	db, release, err := r.store.acquire(opNextFrameNumber)
	if err != nil {
		return 0, err
	}
	defer release()
	next, err := nextFrameNumber(db.WithContext(ctx), rollID)
	if err != nil {
		r.store.logError(opNextFrameNumber, reasonQueryFailed, err, zap.String(fieldRollID, rollID.String()))
		return 0, newServiceError(opNextFrameNumber, reasonQueryFailed, ErrStorageFailure, err)
	}
	return next, nil
}

// InsertFrame writes a frame with the caller-supplied number.
// A taken (roll, number) pair or an unknown roll is reported as ErrConstraintViolation.
func (r *FrameRepository) InsertFrame(ctx context.Context, frame Frame) error {
	db, release, err := r.store.acquire(opInsertFrame)
	if err != nil {
		return err
	}
	defer release()
	if err := validateFrame(frame); err != nil {
		return newServiceError(opInsertFrame, reasonInvalidInput, ErrInvalidInput, err)
	}

	record := frameToRecord(r.store.dates, frame)

	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	if err := db.WithContext(ctx).Omit(clause.Associations).Create(&record).Error; err != nil {
		serviceErr := writeFailure(opInsertFrame, err)
		r.store.logError(opInsertFrame, reasonOf(serviceErr), err,
			zap.String(fieldRollID, record.RollID),
			zap.Int(fieldFrameNumber, record.FrameNumber))
		return serviceErr
	}
	return nil
}

// AppendFrame assigns the next frame number and inserts the frame as one
// serialized unit: the max read and the insert share a transaction and the
// writer lock. A duplicate key (another process writing the same file) is
// retried with a fresh number a bounded number of times. The FrameNumber of
// the argument is ignored; the stored frame is returned.
func (r *FrameRepository) AppendFrame(ctx context.Context, frame Frame) (Frame, error) {
	db, release, err := r.store.acquire(opAppendFrame)
	if err != nil {
		return Frame{}, err
	}
	defer release()
	frame.FrameNumber = 1
	if err := validateFrame(frame); err != nil {
		return Frame{}, newServiceError(opAppendFrame, reasonInvalidInput, ErrInvalidInput, err)
	}

	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		var record FrameRecord
		lastErr = db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
			next, err := nextFrameNumber(transaction, frame.RollID)
			if err != nil {
				return err
			}
			frame.FrameNumber = next
			record = frameToRecord(r.store.dates, frame)
			return transaction.Omit(clause.Associations).Create(&record).Error
		})
		if lastErr == nil {
			stored, err := frameFromRecord(r.store.dates, record)
			if err != nil {
				return Frame{}, newServiceError(opAppendFrame, reasonDecodeFailed, ErrCorruptRecord, err)
			}
			return stored, nil
		}
		if !isDuplicateKey(lastErr) || ctx.Err() != nil {
			break
		}
		r.store.loggerOrDefault().Warn("frame number taken, retrying",
			zap.String(fieldRollID, frame.RollID.String()),
			zap.Int(fieldFrameNumber, frame.FrameNumber),
			zap.Int(fieldAttempt, attempt))
	}

	serviceErr := writeFailure(opAppendFrame, lastErr)
	r.store.logError(opAppendFrame, reasonOf(serviceErr), lastErr,
		zap.String(fieldRollID, frame.RollID.String()),
		zap.Int(fieldFrameNumber, frame.FrameNumber))
	return Frame{}, serviceErr
}

// FetchFrames returns the roll's frames in frame-number order.
// When storage is unavailable the slice is empty (never nil) and the error says so.
func (r *FrameRepository) FetchFrames(ctx context.Context, rollID RollID) ([]Frame, error) {
	frames := []Frame{}
	db, release, err := r.store.acquire(opFetchFrames)
	if err != nil {
		return frames, err
	}
	defer release()

	var records []FrameRecord
	if err := db.WithContext(ctx).
		Where(queryRollID, rollID.String()).
		Order(orderFrameNumberAsc).
		Find(&records).Error; err != nil {
		r.store.logError(opFetchFrames, reasonQueryFailed, err, zap.String(fieldRollID, rollID.String()))
		return frames, newServiceError(opFetchFrames, reasonQueryFailed, ErrStorageFailure, err)
	}

	for _, record := range records {
		frame, err := frameFromRecord(r.store.dates, record)
		if err != nil {
			r.store.logError(opFetchFrames, reasonDecodeFailed, err,
				zap.String(fieldRollID, record.RollID),
				zap.Int(fieldFrameNumber, record.FrameNumber))
			return []Frame{}, newServiceError(opFetchFrames, reasonDecodeFailed, ErrCorruptRecord, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func nextFrameNumber(db *gorm.DB, rollID RollID) (int, error) {
	var next int
	err := db.Model(&FrameRecord{}).
		Select(selectNextFrameNumber).
		Where(queryRollID, rollID.String()).
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}
