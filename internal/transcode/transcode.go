// Package transcode converts audio files between the formats the pipeline
// needs by running ffmpeg as a child process.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/nadzzz/aidoctor/internal/config"
)

// Options are the ffmpeg arguments placed between the input and the output path.
type Options []string

var (
	// Playback produces the 44.1 kHz stereo copy returned to the patient.
	Playback = Options{"-ar", "44100", "-ac", "2"}

	// Transcription produces the 16 kHz mono PCM WAV the speech service expects.
	Transcription = Options{"-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1"}
)

// Transcoder converts in to out.
type Transcoder interface {
	Transcode(ctx context.Context, in, out string, opts Options) error
}

// Error reports a failed ffmpeg invocation.
type Error struct {
	Args     []string
	ExitCode int // -1 when the process never ran
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ffmpeg failed (exit %d)", e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// FFmpeg implements Transcoder with the ffmpeg command-line tool.
type FFmpeg struct {
	binary string
}

// New creates an ffmpeg transcoder from config.
func New(cfg config.TranscoderConfig) *FFmpeg {
	bin := cfg.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{binary: bin}
}

// Transcode runs `ffmpeg -y -i in <opts> out` and waits for it to exit.
// A non-zero exit status is returned as *Error; it is never retried.
func (f *FFmpeg) Transcode(ctx context.Context, in, out string, opts Options) error {
	args := make([]string, 0, len(opts)+4)
	args = append(args, "-y", "-i", in)
	args = append(args, opts...)
	args = append(args, out)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.binary, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &Error{Args: args, ExitCode: code, Stderr: stderr.String(), Err: err}
	}

	slog.Debug("transcoded audio", "in", in, "out", out, "args", strings.Join(opts, " "))
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
