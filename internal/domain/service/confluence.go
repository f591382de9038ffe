package service

import (
	"time"

	"Conflux/internal/domain/models"
)

// Normalizer resolves a raw instrument mention to a canonical tracked
// symbol. Total: unmatched text returns ok=false, never an error.
type Normalizer interface {
	Normalize(text string) (symbol string, ok bool)
	Catalog() []string
}

// Scorer computes the derived confluence state for one symbol from a
// consistent snapshot of its views and levels.
type Scorer interface {
	Score(symbol string, views []models.SourceView, levels []models.PriceLevel, now time.Time) models.ConfluenceState
}

// Synthesizer produces the optional trade-setup text. ok=false when the
// state does not warrant one.
type Synthesizer interface {
	Synthesize(state models.ConfluenceState, views []models.SourceView, levels []models.PriceLevel) (text string, ok bool)
}
