package transcriber

import (
	"context"
	"errors"
	"log/slog"
)

var errUndetermined = errors.New("detector returned no language")

// Detector identifies the language of a piece of text.
type Detector interface {
	Detect(text string) (string, error)
}

// Corroborator re-checks the language of transcripts that the speech service
// labelled with DefaultLanguage. Services fall back to that code when unsure,
// so only that label is re-checked; other codes pass through untouched.
type Corroborator struct {
	next     Transcriber
	detector Detector
}

// Corroborate wraps next with text-based language corroboration.
func Corroborate(next Transcriber, detector Detector) *Corroborator {
	return &Corroborator{next: next, detector: detector}
}

// Transcribe delegates to the wrapped transcriber and corrects the language.
func (c *Corroborator) Transcribe(ctx context.Context, path string) (Result, error) {
	res, err := c.next.Transcribe(ctx, path)
	if err != nil {
		return Result{}, err
	}
	res.Language = c.Correct(res)
	return res, nil
}

// Correct returns the corroborated language for res. Detector failures keep
// the reported language.
func (c *Corroborator) Correct(res Result) string {
	if res.Language != DefaultLanguage || res.Text == "" {
		return res.Language
	}

	lang, err := c.detector.Detect(res.Text)
	if err == nil && lang == "" {
		err = errUndetermined
	}
	if err != nil {
		slog.Warn("language corroboration failed, keeping reported language",
			"language", res.Language, "error", err)
		return res.Language
	}

	if lang != res.Language {
		slog.Info("language corrected", "reported", res.Language, "detected", lang)
	}
	return lang
}
