package sidecar

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBinary is the exiftool executable looked up on PATH.
const DefaultBinary = "exiftool"

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and folds its output into the error on failure.
func (ExecRunner) Run(ctx context.Context, binary string, args []string) error {
	command := exec.CommandContext(ctx, binary, args...)
	var output bytes.Buffer
	command.Stdout = &output
	command.Stderr = &output
	if err := command.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(output.String()))
	}
	return nil
}
