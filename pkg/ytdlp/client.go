// Package ytdlp wraps the yt-dlp command line.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultBinary is looked up on PATH when no path is configured.
const DefaultBinary = "yt-dlp"

// ExecError is a failed yt-dlp run with its captured output.
type ExecError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("ytdlp: %s exited with %d", e.Cmd, e.ExitCode)
	}
	return fmt.Sprintf("ytdlp: %s: %v", e.Cmd, e.Cause)
}

func (e *ExecError) Unwrap() error { return e.Cause }

type Client struct {
	// Path to the executable; empty means DefaultBinary on PATH.
	Path string

	// OnLine receives every non-blank output line while yt-dlp runs, from
	// the stdout and stderr copiers concurrently. Setting it also switches
	// progress output to one update per line.
	OnLine func(stream, line string)

	execFn func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

func New() *Client {
	return &Client{Path: DefaultBinary}
}

func (c *Client) exec(ctx context.Context, args ...string) ([]byte, []byte, error) {
	name := c.PathOrDefault()
	if c.OnLine != nil {
		args = append([]string{"--newline"}, args...)
	}
	if c.execFn != nil {
		return c.execFn(ctx, name, args...)
	}

	slog.Debug("ytdlp: running", "cmd", name, "args", args)
	cmd := exec.CommandContext(ctx, name, args...)

	stdout := &lineWriter{stream: "stdout", emit: c.OnLine}
	stderr := &lineWriter{stream: "stderr", emit: c.OnLine}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.flush()
	stderr.flush()
	return stdout.buf.Bytes(), stderr.buf.Bytes(), err
}

// lineWriter keeps everything written to it and hands each finished line to
// emit. yt-dlp redraws its progress bar with \r, so \r ends a line too.
type lineWriter struct {
	stream  string
	emit    func(stream, line string)
	buf     bytes.Buffer
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.emit == nil {
		return len(p), nil
	}

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexAny(w.partial, "\r\n")
		if i < 0 {
			return len(p), nil
		}
		w.send(w.partial[:i])
		w.partial = w.partial[i+1:]
	}
}

// flush emits a trailing line that never got its newline.
func (w *lineWriter) flush() {
	if w.emit != nil && len(w.partial) > 0 {
		w.send(w.partial)
		w.partial = nil
	}
}

func (w *lineWriter) send(raw []byte) {
	if line := strings.TrimSpace(string(raw)); line != "" {
		w.emit(w.stream, line)
	}
}

// Version returns `yt-dlp --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := c.exec(ctx, "--version")
	if err != nil {
		return "", wrapExecError(c.PathOrDefault(), []string{"--version"}, stdout, stderr, err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// PathOrDefault returns Path, or DefaultBinary when it is blank.
func (c *Client) PathOrDefault() string {
	if strings.TrimSpace(c.Path) == "" {
		return DefaultBinary
	}
	return c.Path
}

func wrapExecError(cmd string, args []string, stdout, stderr []byte, cause error) error {
	code := 0
	var exitErr *exec.ExitError
	if errors.As(cause, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ExecError{
		Cmd:      cmd,
		Args:     args,
		ExitCode: code,
		Stdout:   strings.TrimSpace(string(stdout)),
		Stderr:   strings.TrimSpace(string(stderr)),
		Cause:    cause,
	}
}
