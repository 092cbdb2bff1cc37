package sidecar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var errMissingResolver = errors.New("sidecar: resolver is required")

// MissingImagesError lists every frame whose scan was not found.
type MissingImagesError struct {
	Paths []string
}

func (e *MissingImagesError) Error() string {
	return fmt.Sprintf("missing files:\n%s", strings.Join(e.Paths, "\n"))
}

func (e *MissingImagesError) Unwrap() error {
	return ErrMissingImage
}

// ApplierConfig describes the dependencies of an Applier.
type ApplierConfig struct {
	Resolver *Resolver
	Runner   Runner
	Binary   string
	Options  Options
	Logger   *zap.Logger
}

// Applier writes each exported frame's metadata into its scan.
type Applier struct {
	resolver *Resolver
	runner   Runner
	binary   string
	options  Options
	logger   *zap.Logger
}

// Report summarizes an apply run.
type Report struct {
	Applied []string
	Skipped int
	Missing []string
}

// NewApplier validates the configuration.
func NewApplier(cfg ApplierConfig) (*Applier, error) {
	if cfg.Resolver == nil {
		return nil, errMissingResolver
	}
	runner := cfg.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = DefaultBinary
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{
		resolver: cfg.Resolver,
		runner:   runner,
		binary:   binary,
		options:  cfg.Options,
		logger:   logger,
	}, nil
}

// Apply runs exiftool for every row with a numeric frame number. Rows whose
// scan is missing are collected and reported together once all present scans
// are written; an exiftool failure stops the run.
func (a *Applier) Apply(ctx context.Context, rows []Row) (Report, error) {
	report := Report{Applied: []string{}, Missing: []string{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		frameNumber, ok := row.Frame()
		if !ok {
			report.Skipped++
			continue
		}
		imagePath, found, err := a.resolver.Resolve(frameNumber)
		if err != nil {
			return report, err
		}
		if !found {
			report.Missing = append(report.Missing, a.resolver.Expected(frameNumber))
			continue
		}

		args := append(BuildArgs(row, a.options), imagePath)
		if err := a.runner.Run(ctx, a.binary, args); err != nil {
			a.logger.Error("exiftool failed",
				zap.Int("frame_number", frameNumber),
				zap.String("path", imagePath),
				zap.Error(err))
			return report, fmt.Errorf("apply frame %d: %w", frameNumber, err)
		}
		a.logger.Info("metadata applied", zap.Int("frame_number", frameNumber), zap.String("path", imagePath))
		report.Applied = append(report.Applied, imagePath)
	}
	if len(report.Missing) > 0 {
		return report, &MissingImagesError{Paths: report.Missing}
	}
	return report, nil
}
