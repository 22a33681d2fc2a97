// Package translator defines the text translation contract used to localize
// the reasoning instructions.
package translator

import "context"

// Translator translates text into the target ISO-639-1 language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}
