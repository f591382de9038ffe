package confluence

import (
	"fmt"
	"strings"

	"Conflux/internal/domain/models"
	domsvc "Conflux/internal/domain/service"
)

// Synthesizer turns a strong confluence state into a short descriptive
// trade-setup sentence. Deterministic template fill: the same state always
// yields the same text. Anything below aligned+high yields nothing.
type Synthesizer struct{}

func NewSynthesizer() *Synthesizer { return &Synthesizer{} }

func (s *Synthesizer) Synthesize(state models.ConfluenceState, views []models.SourceView, levels []models.PriceLevel) (string, bool) {
	if !state.Aligned || state.Classification != models.ClassificationHigh {
		return "", false
	}

	direction := dominantDirection(views)
	if direction == "" {
		return "", false
	}

	contributing := make(map[string]struct{}, len(views))
	for _, v := range views {
		contributing[v.Source] = struct{}{}
	}

	levelParts := make([]string, 0, 3)
	for _, t := range []models.LevelType{models.LevelSupport, models.LevelTarget, models.LevelInvalidation} {
		if l, ok := bestLevel(levels, contributing, t); ok {
			levelParts = append(levelParts, fmt.Sprintf("%s %s (%s)", t, formatPrice(l), l.Source))
		}
	}

	text := fmt.Sprintf("%s: %d sources aligned %s (confluence %.2f)",
		state.Symbol, len(views), direction, state.Score)
	if len(levelParts) > 0 {
		text += "; " + strings.Join(levelParts, ", ")
	}
	return text, true
}

// dominantDirection returns the shared direction of the views, empty when
// the views net out neutral.
func dominantDirection(views []models.SourceView) string {
	sum := 0.0
	for _, v := range views {
		sum += v.Bias.Signal()
	}
	switch {
	case sum > 0:
		return "bullish"
	case sum < 0:
		return "bearish"
	default:
		return ""
	}
}

// bestLevel picks the highest-confidence level of type t among the
// contributing sources, tie-breaking on source then price so selection is
// stable across evaluations.
func bestLevel(levels []models.PriceLevel, sources map[string]struct{}, t models.LevelType) (models.PriceLevel, bool) {
	var best models.PriceLevel
	found := false
	for _, l := range levels {
		if l.Type != t {
			continue
		}
		if _, ok := sources[l.Source]; !ok {
			continue
		}
		if !found || better(l, best) {
			best = l
			found = true
		}
	}
	return best, found
}

func better(a, b models.PriceLevel) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.Price < b.Price
}

func formatPrice(l models.PriceLevel) string {
	if l.PriceUpper > 0 && l.PriceUpper > l.Price {
		return fmt.Sprintf("%.2f-%.2f", l.Price, l.PriceUpper)
	}
	return fmt.Sprintf("%.2f", l.Price)
}

var _ domsvc.Synthesizer = (*Synthesizer)(nil)
