package sidecar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultPattern matches frame_01.jpg, frame_01.tif and so on.
const DefaultPattern = "frame_%02d.{jpg,jpeg,tif,tiff}"

var errInvalidPattern = errors.New("sidecar: filename pattern needs one integer verb")

// Resolver finds the scan of a frame in an images directory.
// The pattern is formatted with the frame number and then matched as a glob,
// so alternatives like {jpg,tif} select among extensions.
type Resolver struct {
	directory string
	pattern   string
	names     []string
}

// NewResolver lists the images directory once.
func NewResolver(directory, pattern string) (*Resolver, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	if strings.Contains(fmt.Sprintf(pattern, 1), "%!") {
		return nil, fmt.Errorf("%w: %q", errInvalidPattern, pattern)
	}
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("read images directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return &Resolver{directory: directory, pattern: pattern, names: names}, nil
}

// Expected returns the path reported when the frame has no scan.
func (r *Resolver) Expected(frameNumber int) string {
	return filepath.Join(r.directory, fmt.Sprintf(r.pattern, frameNumber))
}

// Resolve returns the first scan, in name order, that matches the frame.
// Matching ignores letter case so FRAME_01.JPG is found too.
func (r *Resolver) Resolve(frameNumber int) (string, bool, error) {
	expression := strings.ToLower(fmt.Sprintf(r.pattern, frameNumber))
	matcher, err := glob.Compile(expression)
	if err != nil {
		return "", false, fmt.Errorf("invalid pattern %q: %w", expression, err)
	}
	for _, name := range r.names {
		if matcher.Match(strings.ToLower(name)) {
			return filepath.Join(r.directory, name), true, nil
		}
	}
	return "", false, nil
}
