package export

import (
	"errors"
	"fmt"
)

var (
	// ErrRollNotFound indicates the requested roll does not exist.
	ErrRollNotFound = errors.New("export: roll not found")
	// ErrEncodingFailure indicates serialization or the file write failed.
	ErrEncodingFailure = errors.New("export: encoding failure")
	// ErrUnsupportedFormat indicates an unknown export format name.
	ErrUnsupportedFormat = errors.New("export: unsupported format")
)

// ServiceError exposes a stable code for export failures.
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

const (
	opExport = "export.roll"
	opNew    = "export.new"

	reasonRollLookupFailed  = "roll_lookup_failed"
	reasonRollNotFound      = "roll_not_found"
	reasonFrameLookupFailed = "frame_lookup_failed"
	reasonEncodeFailed      = "encode_failed"
	reasonWriteFailed       = "write_failed"
	reasonUnsupportedFormat = "unsupported_format"
	reasonMissingDependency = "missing_dependency"
)

func newServiceError(operation, reason string, kind, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), kind: kind, err: cause}
}
