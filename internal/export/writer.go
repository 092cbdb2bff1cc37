package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	maxNameAttempts = 1000
	tempPattern     = ".export-*.tmp"
	exportFileMode  = 0o644
	exportDirMode   = 0o755
)

var errNamesExhausted = errors.New("no free export filename")

// writeExclusive stores content under directory as <stem>.<ext>, or
// <stem>-<n>.<ext> for the first n >= 2 that is free. The content is written
// to a temporary file first and hard-linked into place; linking fails when the
// name exists, so two exporters can never claim the same file and a reader
// never sees a partial one.
func writeExclusive(directory, stem, extension string, content []byte) (string, error) {
	if err := os.MkdirAll(directory, exportDirMode); err != nil {
		return "", err
	}
	temporary, err := os.CreateTemp(directory, tempPattern)
	if err != nil {
		return "", err
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if _, err := temporary.Write(content); err != nil {
		_ = temporary.Close()
		return "", err
	}
	if err := temporary.Sync(); err != nil {
		_ = temporary.Close()
		return "", err
	}
	if err := temporary.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(temporaryPath, exportFileMode); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		candidate := filepath.Join(directory, candidateName(stem, extension, attempt))
		err := os.Link(temporaryPath, candidate)
		if err == nil {
			return candidate, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("%w: %s.%s", errNamesExhausted, stem, extension)
}

func candidateName(stem, extension string, attempt int) string {
	if attempt <= 1 {
		return fmt.Sprintf("%s.%s", stem, extension)
	}
	return fmt.Sprintf("%s-%d.%s", stem, attempt, extension)
}
