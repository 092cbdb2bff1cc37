package logbook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"go.uber.org/zap"
)

const (
	opServiceNew = "logbook.service.new"
	opStartRoll  = "logbook.start_roll"
	opLogFrame   = "logbook.log_frame"
)

var (
	errMissingStore      = errors.New("store is required")
	errMissingIDProvider = errors.New("id provider is required")
)

// ServiceConfig describes the dependencies of the logbook service.
type ServiceConfig struct {
	Store      *Store
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service is the caller-facing layer over the roll and frame repositories.
// It turns collaborator inputs (a location fix, a transcript, keywords, a
// capture time) into domain values and delegates persistence.
type Service struct {
	store      *Store
	rolls      *RollRepository
	frames     *FrameRepository
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// RollDraft holds the user-entered fields of a new roll.
type RollDraft struct {
	FilmStock string
	ISO       int
	Camera    string
	Lens      string
	Notes     string
}

// LocationFix is a geolocation reading supplied by the device.
type LocationFix struct {
	Latitude  float64
	Longitude float64
}

// FrameCapture gathers everything known about an exposure at the moment it is logged.
// A zero CapturedAt means "now".
type FrameCapture struct {
	CapturedAt      time.Time
	Location        *LocationFix
	VoiceTranscript string
	Keywords        []string
	Shutter         string
	Aperture        string
	FocalLength     *int
	ExposureComp    string
	WeatherSummary  string
	TemperatureC    *float64
}

// NewService validates dependencies and builds the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", ErrInvalidInput, errMissingStore)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", ErrInvalidInput, errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		store:      cfg.Store,
		rolls:      NewRollRepository(cfg.Store),
		frames:     NewFrameRepository(cfg.Store),
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Rolls exposes the roll repository.
func (s *Service) Rolls() *RollRepository {
	return s.rolls
}

// Frames exposes the frame repository.
func (s *Service) Frames() *FrameRepository {
	return s.frames
}

// Status reports storage availability so callers can tell "empty" from "down".
func (s *Service) Status() Status {
	return s.store.Status()
}

// StartRoll creates a new active roll starting now.
func (s *Service) StartRoll(ctx context.Context, draft RollDraft) (Roll, error) {
	if err := s.store.ensureAvailable(opStartRoll); err != nil {
		return Roll{}, err
	}
	rawID, err := s.idProvider.NewID()
	if err != nil {
		s.logger.Error("roll id generation failed", zap.Error(err))
		return Roll{}, newServiceError(opStartRoll, reasonIDGenerationFailed, ErrStorageFailure, err)
	}
	rollID, err := NewRollID(rawID)
	if err != nil {
		return Roll{}, newServiceError(opStartRoll, reasonIDGenerationFailed, ErrInvalidInput, err)
	}

	roll := Roll{
		ID:        rollID,
		FilmStock: strings.TrimSpace(draft.FilmStock),
		ISO:       draft.ISO,
		Camera:    strings.TrimSpace(draft.Camera),
		Lens:      strings.TrimSpace(draft.Lens),
		Notes:     codec.TextFromString(strings.TrimSpace(draft.Notes)),
		StartTime: s.store.dates.Truncate(s.clock()),
	}
	if err := s.rolls.InsertRoll(ctx, roll); err != nil {
		return Roll{}, err
	}
	s.logger.Info("roll started",
		zap.String(fieldRollID, roll.ID.String()),
		zap.String("film_stock", roll.FilmStock))
	return roll, nil
}

// EndRoll stamps the roll's end time with the current time.
// It reports false when no roll matched.
func (s *Service) EndRoll(ctx context.Context, rollID RollID) (bool, error) {
	affected, err := s.rolls.EndRoll(ctx, rollID, s.clock())
	if err != nil {
		return false, err
	}
	if affected == 0 {
		s.logger.Warn("end roll matched no roll", zap.String(fieldRollID, rollID.String()))
		return false, nil
	}
	s.logger.Info("roll ended", zap.String(fieldRollID, rollID.String()))
	return true, nil
}

// LogFrame records an exposure on the roll under the next free frame number.
func (s *Service) LogFrame(ctx context.Context, rollID RollID, capture FrameCapture) (Frame, error) {
	if err := s.store.ensureAvailable(opLogFrame); err != nil {
		return Frame{}, err
	}
	capturedAt := capture.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.clock()
	}

	frame := Frame{
		RollID:         rollID,
		Shutter:        codec.TextFromString(strings.TrimSpace(capture.Shutter)),
		Aperture:       codec.TextFromString(strings.TrimSpace(capture.Aperture)),
		FocalLength:    capture.FocalLength,
		ExposureComp:   codec.TextFromString(strings.TrimSpace(capture.ExposureComp)),
		Timestamp:      capturedAt,
		WeatherSummary: codec.TextFromString(strings.TrimSpace(capture.WeatherSummary)),
		TemperatureC:   capture.TemperatureC,
		VoiceNoteRaw:   codec.TextFromString(strings.TrimSpace(capture.VoiceTranscript)),
		Keywords:       cleanKeywords(capture.Keywords),
	}
	if capture.Location != nil {
		latitude := capture.Location.Latitude
		longitude := capture.Location.Longitude
		frame.Latitude = &latitude
		frame.Longitude = &longitude
	}

	stored, err := s.frames.AppendFrame(ctx, frame)
	if err != nil {
		return Frame{}, err
	}
	s.logger.Info("frame logged",
		zap.String(fieldRollID, rollID.String()),
		zap.Int(fieldFrameNumber, stored.FrameNumber))
	return stored, nil
}

// cleanKeywords trims entries and drops blanks. It does not split on commas;
// the caller owns tokenization.
func cleanKeywords(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		trimmed := strings.TrimSpace(keyword)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}
