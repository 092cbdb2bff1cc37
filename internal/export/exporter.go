package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"go.uber.org/zap"
)

const (
	// DefaultPrefix starts every export filename.
	DefaultPrefix = "roll"

	fieldRollID = "roll_id"
	fieldFormat = "format"
	fieldPath   = "path"
)

var (
	errMissingRollSource  = errors.New("roll source is required")
	errMissingFrameSource = errors.New("frame source is required")
	errMissingDirectory   = errors.New("export directory is required")
)

// Format selects the export serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat resolves a user-supplied format name.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// Extension returns the filename extension for the format.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the media type of the serialized format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// RollSource reads a single roll.
type RollSource interface {
	FetchRoll(ctx context.Context, rollID logbook.RollID) (logbook.Roll, bool, error)
}

// FrameSource reads the frames of a roll in frame-number order.
type FrameSource interface {
	FetchFrames(ctx context.Context, rollID logbook.RollID) ([]logbook.Frame, error)
}

// Archiver mirrors a finished export file to remote storage and returns its object key.
type Archiver interface {
	Store(ctx context.Context, rollID, filename, contentType string, content []byte) (string, error)
}

// Config describes the dependencies of an Exporter.
type Config struct {
	Rolls     RollSource
	Frames    FrameSource
	Directory string
	Prefix    string
	Dates     *codec.DateCodec
	Clock     func() time.Time
	Archiver  Archiver
	Logger    *zap.Logger
}

// Exporter produces portable snapshots of a roll. It only reads from the logbook.
//
// Roll and frames are read without holding the store's writer lock, so a
// frame logged between the two reads may or may not appear in the output.
type Exporter struct {
	rolls     RollSource
	frames    FrameSource
	directory string
	prefix    string
	dates     *codec.DateCodec
	clock     func() time.Time
	archiver  Archiver
	logger    *zap.Logger
}

// Result describes a written export.
type Result struct {
	Path       string
	Filename   string
	Format     Format
	Frames     int
	ArchiveKey string
	// ArchiveErr is set when the local file was written but mirroring it failed.
	ArchiveErr error
}

// NewExporter validates the configuration.
func NewExporter(cfg Config) (*Exporter, error) {
	if cfg.Rolls == nil {
		return nil, newServiceError(opNew, reasonMissingDependency, nil, errMissingRollSource)
	}
	if cfg.Frames == nil {
		return nil, newServiceError(opNew, reasonMissingDependency, nil, errMissingFrameSource)
	}
	if strings.TrimSpace(cfg.Directory) == "" {
		return nil, newServiceError(opNew, reasonMissingDependency, nil, errMissingDirectory)
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	dates := cfg.Dates
	if dates == nil {
		dates = codec.NewDateCodec(nil)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		rolls:     cfg.Rolls,
		frames:    cfg.Frames,
		directory: cfg.Directory,
		prefix:    prefix,
		dates:     dates,
		clock:     clock,
		archiver:  cfg.Archiver,
		logger:    logger,
	}, nil
}

// Export serializes the roll and its frames in memory and writes them to a
// new file named <prefix>-<rollId>-<yyyyMMdd-HHmmss>.<ext>.
func (e *Exporter) Export(ctx context.Context, rollID logbook.RollID, format Format) (Result, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return Result{}, newServiceError(opExport, reasonUnsupportedFormat, ErrUnsupportedFormat, err)
	}

	roll, found, err := e.rolls.FetchRoll(ctx, rollID)
	if err != nil {
		e.logError(reasonRollLookupFailed, err, zap.String(fieldRollID, rollID.String()))
		return Result{}, newServiceError(opExport, reasonRollLookupFailed, nil, err)
	}
	if !found {
		return Result{}, newServiceError(opExport, reasonRollNotFound, ErrRollNotFound, nil)
	}
	frames, err := e.frames.FetchFrames(ctx, rollID)
	if err != nil {
		e.logError(reasonFrameLookupFailed, err, zap.String(fieldRollID, rollID.String()))
		return Result{}, newServiceError(opExport, reasonFrameLookupFailed, nil, err)
	}

	content, err := e.encode(format, roll, frames)
	if err != nil {
		e.logError(reasonEncodeFailed, err, zap.String(fieldRollID, rollID.String()), zap.String(fieldFormat, string(format)))
		return Result{}, newServiceError(opExport, reasonEncodeFailed, ErrEncodingFailure, err)
	}

	stem := fmt.Sprintf("%s-%s-%s", e.prefix, filenameSafe(rollID.String()), e.dates.FormatFilename(e.clock()))
	path, err := writeExclusive(e.directory, stem, format.Extension(), content)
	if err != nil {
		e.logError(reasonWriteFailed, err, zap.String(fieldRollID, rollID.String()), zap.String(fieldPath, e.directory))
		return Result{}, newServiceError(opExport, reasonWriteFailed, ErrEncodingFailure, err)
	}

	result := Result{
		Path:     path,
		Filename: filepath.Base(path),
		Format:   format,
		Frames:   len(frames),
	}
	e.logger.Info("roll exported",
		zap.String(fieldRollID, rollID.String()),
		zap.String(fieldFormat, string(format)),
		zap.String(fieldPath, path),
		zap.Int("frames", len(frames)))

	if e.archiver != nil {
		key, archiveErr := e.archiver.Store(ctx, rollID.String(), result.Filename, format.ContentType(), content)
		if archiveErr != nil {
			e.logger.Warn("export archive failed",
				zap.String(fieldRollID, rollID.String()),
				zap.String(fieldPath, path),
				zap.Error(archiveErr))
			result.ArchiveErr = archiveErr
		} else {
			result.ArchiveKey = key
		}
	}
	return result, nil
}

func (e *Exporter) encode(format Format, roll logbook.Roll, frames []logbook.Frame) ([]byte, error) {
	switch format {
	case FormatJSON:
		return encodeDocument(e.dates, roll, frames)
	case FormatCSV:
		return encodeTable(e.dates, roll, frames), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

func (e *Exporter) logError(reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", opExport),
		zap.String("reason", reason),
		zap.Error(err),
	}
	attrs = append(attrs, fields...)
	e.logger.Error("export failed", attrs...)
}

// filenameSafe keeps a roll id from escaping the export directory.
func filenameSafe(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, value)
}
