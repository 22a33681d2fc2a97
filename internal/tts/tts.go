// Package tts defines the interface for text-to-speech synthesis.
//
// The doctor's reply is spoken in the language detected during
// transcription. Engines write their audio to a caller-chosen path so the
// result can be served back alongside the text.
package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en", "fr", "es") to select the voice.
	Language string

	// OutputPath is where the audio file is written.
	OutputPath string
}

// Synthesizer converts text to an audio file.
type Synthesizer interface {
	// Synthesize writes speech for text and returns the path of the produced
	// file, normally opts.OutputPath.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (string, error)
}

// WriteFile atomically replaces path with data, so a failed engine never
// leaves a truncated file for the next one to trip over.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tts-*")
	if err != nil {
		return fmt.Errorf("creating audio file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing audio file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming audio file: %w", err)
	}
	return nil
}
