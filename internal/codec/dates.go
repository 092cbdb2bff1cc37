package codec

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// StoredLayout is the persisted timestamp layout: local wall time, second precision, no offset.
	StoredLayout = "2006-01-02T15:04:05"
	// FilenameLayout stamps export file names. It is never parsed back.
	FilenameLayout = "20060102-150405"
	// DisplayLayout renders timestamps for people. It is never parsed back.
	DisplayLayout = "Jan 2, 2006 at 3:04 PM"
)

// ErrInvalidTimestamp indicates a stored timestamp that does not match StoredLayout.
var ErrInvalidTimestamp = errors.New("codec: invalid stored timestamp")

// DateCodec formats and parses timestamps in a fixed location.
// Stored values carry no offset, so the location must stay stable across reads and writes.
type DateCodec struct {
	location *time.Location
}

// NewDateCodec returns a codec bound to the provided location; nil means time.Local.
func NewDateCodec(location *time.Location) *DateCodec {
	if location == nil {
		location = time.Local
	}
	return &DateCodec{location: location}
}

// LoadDateCodec resolves an IANA zone name ("Local" or empty for the process zone).
func LoadDateCodec(zoneName string) (*DateCodec, error) {
	trimmed := strings.TrimSpace(zoneName)
	if trimmed == "" || strings.EqualFold(trimmed, "local") {
		return NewDateCodec(time.Local), nil
	}
	location, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, fmt.Errorf("codec: load time zone %q: %w", trimmed, err)
	}
	return NewDateCodec(location), nil
}

// Location exposes the codec's time zone.
func (c *DateCodec) Location() *time.Location {
	return c.location
}

// FormatStored renders a timestamp for persistence and export documents.
// Sub-second precision is dropped.
func (c *DateCodec) FormatStored(value time.Time) string {
	return value.In(c.location).Format(StoredLayout)
}

// ParseStored reverses FormatStored.
func (c *DateCodec) ParseStored(raw string) (time.Time, error) {
	parsed, err := time.ParseInLocation(StoredLayout, strings.TrimSpace(raw), c.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
	}
	return parsed, nil
}

// FormatStoredPtr renders an optional timestamp; nil stays nil.
func (c *DateCodec) FormatStoredPtr(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := c.FormatStored(*value)
	return &formatted
}

// ParseStoredPtr parses an optional stored timestamp; nil or blank yields nil.
func (c *DateCodec) ParseStoredPtr(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := c.ParseStored(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// FormatFilename renders the timestamp fragment used in export file names.
func (c *DateCodec) FormatFilename(value time.Time) string {
	return value.In(c.location).Format(FilenameLayout)
}

// FormatDisplay renders a coarse human-readable timestamp.
func (c *DateCodec) FormatDisplay(value time.Time) string {
	return value.In(c.location).Format(DisplayLayout)
}

// Truncate returns the value as it will read back after a storage round trip.
func (c *DateCodec) Truncate(value time.Time) time.Time {
	return value.In(c.location).Truncate(time.Second)
}
