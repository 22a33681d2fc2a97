// Package langdetect identifies the language of transcribed text locally,
// without a network call.
package langdetect

import (
	"errors"
	"fmt"

	"github.com/abadojack/whatlanggo"
)

// ErrUndetermined is returned when no ISO-639-1 language can be assigned.
var ErrUndetermined = errors.New("language could not be determined")

// Detector implements transcriber.Detector with whatlanggo trigram models.
type Detector struct {
	minConfidence float64
}

// New creates a detector. Results below minConfidence are rejected; zero
// accepts any result.
func New(minConfidence float64) *Detector {
	return &Detector{minConfidence: minConfidence}
}

// Detect returns the ISO-639-1 code for text.
func (d *Detector) Detect(text string) (string, error) {
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetermined
	}
	if info.Confidence < d.minConfidence {
		return "", fmt.Errorf("%w: %s at confidence %.2f", ErrUndetermined, code, info.Confidence)
	}
	return code, nil
}
