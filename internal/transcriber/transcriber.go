// Package transcriber defines the speech-to-text contract and the language
// corroboration that runs on top of it.
package transcriber

import (
	"context"
	"errors"
	"strings"
)

// DefaultLanguage is the code a speech service reports when it is unsure.
const DefaultLanguage = "en"

// ErrMissingAPIKey is returned before any network call when the service
// credential is not configured.
var ErrMissingAPIKey = errors.New("transcription api key is not set")

// Result is the recognized text and its language code.
type Result struct {
	Text     string
	Language string
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Result, error)
}

// ServiceError is a failure reported by the speech service itself.
type ServiceError struct {
	Detail string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return "transcription failed"
	}
	return "transcription failed: " + e.Detail
}

// NormalizeLanguage converts service language labels ("english", "en_us",
// "pt-BR") to lower-case ISO-639-1 codes.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "_-"); i == 2 {
		lang = lang[:2]
	}
	if len(lang) == 2 {
		return lang
	}
	known := map[string]string{
		"english":    "en",
		"french":     "fr",
		"spanish":    "es",
		"german":     "de",
		"italian":    "it",
		"portuguese": "pt",
		"dutch":      "nl",
		"polish":     "pl",
		"russian":    "ru",
		"japanese":   "ja",
		"korean":     "ko",
		"chinese":    "zh",
		"arabic":     "ar",
		"hindi":      "hi",
		"turkish":    "tr",
		"urdu":       "ur",
	}
	if code, ok := known[lang]; ok {
		return code
	}
	return lang
}
