package logbook

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

// ErrInvalidRollID indicates that a roll identifier is empty or exceeds storage bounds.
var ErrInvalidRollID = errors.New("logbook: invalid roll id")

// RollID represents a validated roll identifier.
type RollID string

// NewRollID validates raw input and returns a RollID.
func NewRollID(rawInput string) (RollID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRollID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidRollID, maxIdentifierLength)
	}
	return RollID(trimmed), nil
}

// String returns the underlying string identifier.
func (id RollID) String() string {
	return string(id)
}

// Roll is a logging session for one physical film roll.
type Roll struct {
	ID        RollID
	FilmStock string
	ISO       int
	Camera    string
	Lens      string
	Notes     *string
	StartTime time.Time
	EndTime   *time.Time
}

// IsActive reports whether the roll has not been ended.
func (r Roll) IsActive() bool {
	return r.EndTime == nil
}

// Frame is one exposure logged within a roll, identified by (RollID, FrameNumber).
type Frame struct {
	RollID          RollID
	FrameNumber     int
	Shutter         *string
	Aperture        *string
	FocalLength     *int
	ExposureComp    *string
	Timestamp       time.Time
	Latitude        *float64
	Longitude       *float64
	WeatherSummary  *string
	TemperatureC    *float64
	VoiceNoteRaw    *string
	VoiceNoteParsed *string
	Keywords        []string
}

func validateRoll(roll Roll) error {
	if _, err := NewRollID(roll.ID.String()); err != nil {
		return err
	}
	if strings.TrimSpace(roll.FilmStock) == "" {
		return errors.New("film stock is required")
	}
	if strings.TrimSpace(roll.Camera) == "" {
		return errors.New("camera is required")
	}
	if strings.TrimSpace(roll.Lens) == "" {
		return errors.New("lens is required")
	}
	if roll.ISO <= 0 {
		return fmt.Errorf("iso must be positive, got %d", roll.ISO)
	}
	if roll.StartTime.IsZero() {
		return errors.New("start time is required")
	}
	return nil
}

func validateFrame(frame Frame) error {
	if _, err := NewRollID(frame.RollID.String()); err != nil {
		return err
	}
	if frame.FrameNumber <= 0 {
		return fmt.Errorf("frame number must be positive, got %d", frame.FrameNumber)
	}
	if frame.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}
