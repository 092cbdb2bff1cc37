package logbook

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrStorageUnavailable indicates the storage handle never opened; nothing was attempted.
	ErrStorageUnavailable = errors.New("logbook: storage unavailable")
	// ErrConstraintViolation indicates a duplicate key or a broken roll reference.
	ErrConstraintViolation = errors.New("logbook: constraint violation")
	// ErrInvalidInput indicates a value rejected before reaching storage.
	ErrInvalidInput = errors.New("logbook: invalid input")
	// ErrStorageFailure indicates any other failed read or write.
	ErrStorageFailure = errors.New("logbook: storage failure")
	// ErrCorruptRecord indicates a stored row that cannot be unmarshaled.
	ErrCorruptRecord = errors.New("logbook: corrupt record")
)

// ServiceError carries a stable `<operation>.<reason>` code alongside an error kind.
// errors.Is matches both the kind sentinel and the underlying cause.
type ServiceError struct {
	code string
	kind error
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if e.kind != nil {
		unwrapped = append(unwrapped, e.kind)
	}
	if e.err != nil {
		unwrapped = append(unwrapped, e.err)
	}
	return unwrapped
}

// Code returns the `<operation>.<reason>` identifier.
func (e *ServiceError) Code() string {
	return e.code
}

// Kind returns the sentinel describing the failure class.
func (e *ServiceError) Kind() error {
	return e.kind
}

const (
	reasonStorageUnavailable  = "storage_unavailable"
	reasonInvalidInput        = "invalid_input"
	reasonConstraintViolation = "constraint_violation"
	reasonQueryFailed         = "query_failed"
	reasonWriteFailed         = "write_failed"
	reasonDecodeFailed        = "decode_failed"
	reasonIDGenerationFailed  = "id_generation_failed"
)

func newServiceError(operation, reason string, kind, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, kind: kind, err: cause}
}

// writeFailure classifies a failed write so callers can react to constraint violations.
func writeFailure(operation string, cause error) error {
	if isConstraintViolation(cause) {
		return newServiceError(operation, reasonConstraintViolation, ErrConstraintViolation, cause)
	}
	return newServiceError(operation, reasonWriteFailed, ErrStorageFailure, cause)
}

func isConstraintViolation(err error) bool {
	return isDuplicateKey(err) || isForeignKeyViolation(err)
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "primary key constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
