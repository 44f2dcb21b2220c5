package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"

	"thirdcoast.systems/browserutility/pkg/utils/format"
)

// Run executes the command and waits for it. A failure is an *Error
// carrying ffmpeg's stderr.
func (c *Command) Run(ctx context.Context) error {
	args := c.Build()
	slog.Debug("ffmpeg: running", "cmd", c.binary, "args", args)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &Error{Binary: c.binary, Args: args, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// Error is a failed ffmpeg run.
type Error struct {
	Binary string
	Args   []string
	Stderr string
	Err    error
}

// Error keeps the last three stderr lines, where ffmpeg reports the cause.
func (e *Error) Error() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	if last := strings.Join(lines, "\n"); last != "" {
		return fmt.Sprintf("ffmpeg: %v: %s", e.Err, last)
	}
	return fmt.Sprintf("ffmpeg: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StderrTail returns the last n characters of trimmed stderr.
func (e *Error) StderrTail(n int) string {
	return format.Tail(strings.TrimSpace(e.Stderr), n)
}

// NotFound reports whether the binary could not be executed at all.
func (e *Error) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, fs.ErrNotExist)
}
