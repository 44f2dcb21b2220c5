// Package ffmpeg builds and runs ffmpeg commands.
package ffmpeg

import (
	"context"
	"strings"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "ffmpeg"

// Command represents an ffmpeg command being built.
type Command struct {
	binary string
	inputs []string
	output string
	codecs []string
}

// Option modifies a Command.
type Option interface {
	Apply(cmd *Command)
}

// OptionFunc is a function that implements Option.
type OptionFunc func(cmd *Command)

// Apply implements Option.
func (f OptionFunc) Apply(cmd *Command) { f(cmd) }

// NewCommand creates a command reading inputs in order and writing output.
func NewCommand(inputs []string, output string, opts ...Option) *Command {
	cmd := &Command{
		binary: DefaultBinary,
		inputs: append([]string(nil), inputs...),
		output: output,
	}
	for _, opt := range opts {
		opt.Apply(cmd)
	}
	return cmd
}

// Build returns the complete ffmpeg argument list.
func (c *Command) Build() []string {
	args := []string{"-y"}
	for _, in := range c.inputs {
		args = append(args, "-i", in)
	}
	args = append(args, c.codecs...)
	args = append(args, c.output)
	return args
}

// Binary selects the ffmpeg executable. Empty keeps the default.
func Binary(path string) Option {
	return OptionFunc(func(cmd *Command) {
		if p := strings.TrimSpace(path); p != "" {
			cmd.binary = p
		}
	})
}

// CopyVideo copies the video stream without re-encoding (-c:v copy).
var CopyVideo Option = OptionFunc(func(cmd *Command) {
	cmd.codecs = append(cmd.codecs, "-c:v", "copy")
})

// CopyAudio copies the audio stream without re-encoding (-c:a copy).
var CopyAudio Option = OptionFunc(func(cmd *Command) {
	cmd.codecs = append(cmd.codecs, "-c:a", "copy")
})

// MergeCommand muxes a video-only and an audio-only file into output without
// re-encoding.
func MergeCommand(binary, videoPath, audioPath, output string) *Command {
	return NewCommand([]string{videoPath, audioPath}, output, Binary(binary), CopyVideo, CopyAudio)
}

// Merge runs MergeCommand.
func Merge(ctx context.Context, binary, videoPath, audioPath, output string) error {
	return MergeCommand(binary, videoPath, audioPath, output).Run(ctx)
}
