package translate

import "context"

// Translator defines the contract for any remote translation backend.
// Implementations return errors; callers decide how to degrade.
type Translator interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Translate renders text in the target language code.
	Translate(ctx context.Context, text, target string) (string, error)
}
