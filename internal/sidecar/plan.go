package sidecar

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"gopkg.in/yaml.v3"
)

const exifDateLayout = "2006-01-02T15:04:05"

var registerMakerNotes sync.Once

// Plan is what Apply would do, without running exiftool.
type Plan struct {
	Binary  string      `yaml:"binary"`
	Entries []PlanEntry `yaml:"entries"`
	Skipped int         `yaml:"skipped"`
	Missing []string    `yaml:"missing"`
}

// PlanEntry is one resolved frame.
type PlanEntry struct {
	FrameNumber int               `yaml:"frame_number"`
	Image       string            `yaml:"image"`
	Args        []string          `yaml:"args"`
	Existing    *ExistingMetadata `yaml:"existing,omitempty"`
}

// ExistingMetadata is the EXIF a scanner already wrote into the image.
type ExistingMetadata struct {
	Make  string `yaml:"make,omitempty"`
	Model string `yaml:"model,omitempty"`
	Taken string `yaml:"taken,omitempty"`
}

// Plan resolves every row like Apply does and reads the scan's current EXIF.
func (a *Applier) Plan(ctx context.Context, rows []Row) (Plan, error) {
	plan := Plan{Binary: a.binary, Entries: []PlanEntry{}, Missing: []string{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return plan, err
		}
		frameNumber, ok := row.Frame()
		if !ok {
			plan.Skipped++
			continue
		}
		imagePath, found, err := a.resolver.Resolve(frameNumber)
		if err != nil {
			return plan, err
		}
		if !found {
			plan.Missing = append(plan.Missing, a.resolver.Expected(frameNumber))
			continue
		}
		plan.Entries = append(plan.Entries, PlanEntry{
			FrameNumber: frameNumber,
			Image:       imagePath,
			Args:        append(BuildArgs(row, a.options), imagePath),
			Existing:    InspectImage(imagePath),
		})
	}
	return plan, nil
}

// InspectImage reads make, model and capture time from the image's EXIF.
// It returns nil when the file has no readable EXIF.
func InspectImage(path string) *ExistingMetadata {
	registerMakerNotes.Do(func() {
		exif.RegisterParsers(mknote.All...)
	})
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	decoded, err := exif.Decode(file)
	if err != nil || decoded == nil {
		return nil
	}
	metadata := ExistingMetadata{
		Make:  exifString(decoded, exif.Make),
		Model: exifString(decoded, exif.Model),
	}
	if taken, err := decoded.DateTime(); err == nil {
		metadata.Taken = taken.Format(exifDateLayout)
	}
	if metadata == (ExistingMetadata{}) {
		return nil
	}
	return &metadata
}

func exifString(decoded *exif.Exif, field exif.FieldName) string {
	tag, err := decoded.Get(field)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimRight(value, "\x00 ")
}

// WriteYAML renders the plan as YAML.
func (p Plan) WriteYAML(writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(p); err != nil {
		return err
	}
	return encoder.Close()
}
