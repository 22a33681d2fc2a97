package tts

import (
	"context"
	"log/slog"
)

// Fallback is a two-state synthesizer: the primary engine is tried first and
// any failure moves the request to the secondary engine. A nil primary (no
// credential configured) goes straight to the secondary. Secondary failures
// are returned to the caller.
type Fallback struct {
	primary    Synthesizer
	secondary  Synthesizer
	onFallback func(error)
}

// NewFallback creates a fallback synthesizer. primary may be nil.
func NewFallback(primary, secondary Synthesizer) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// OnFallback registers a hook called with the primary's error (nil when the
// primary is not configured) each time the secondary engine is used.
func (f *Fallback) OnFallback(fn func(error)) *Fallback {
	f.onFallback = fn
	return f
}

// Synthesize implements Synthesizer.
func (f *Fallback) Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (string, error) {
	if f.primary == nil {
		slog.Warn("primary TTS not configured, using fallback engine", "language", opts.Language)
		f.fellBack(nil)
		return f.secondary.Synthesize(ctx, text, opts)
	}

	path, err := f.primary.Synthesize(ctx, text, opts)
	if err == nil {
		return path, nil
	}

	slog.Error("primary TTS failed, falling back", "language", opts.Language, "error", err)
	f.fellBack(err)
	return f.secondary.Synthesize(ctx, text, opts)
}

func (f *Fallback) fellBack(err error) {
	if f.onFallback != nil {
		f.onFallback(err)
	}
}
