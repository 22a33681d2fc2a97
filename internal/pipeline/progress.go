package pipeline

import "log/slog"

// Reporter receives progress as a fraction in [0, 1] with a stage label.
// Fractions only increase during a consultation.
type Reporter func(fraction float64, label string)

const (
	progressTranscribe = 0.2
	progressTranslate  = 0.4
	progressReason     = 0.6
	progressSynthesize = 0.8
	progressDone       = 1.0
)

func (r Reporter) report(logger *slog.Logger, fraction float64, label string) {
	logger.Debug("progress", "fraction", fraction, "label", label)
	if r != nil {
		r(fraction, label)
	}
}
