package confluence

import (
	"strings"
	"testing"
	"time"

	"Conflux/internal/domain/models"
)

func alignedState(score float64) models.ConfluenceState {
	return models.ConfluenceState{
		Symbol:         "SPX",
		Score:          score,
		Aligned:        true,
		Classification: models.ClassificationHigh,
	}
}

func TestSynthesizeRequiresAlignedHigh(t *testing.T) {
	syn := NewSynthesizer()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now),
		view("substack", models.BiasBullish, 0.7, now),
	}

	st := alignedState(0.85)
	st.Classification = models.ClassificationMedium
	if _, ok := syn.Synthesize(st, views, nil); ok {
		t.Fatalf("medium classification must not synthesize")
	}

	st = alignedState(0.85)
	st.Aligned = false
	if _, ok := syn.Synthesize(st, views, nil); ok {
		t.Fatalf("unaligned state must not synthesize")
	}
}

func TestSynthesizeBullishWithLevels(t *testing.T) {
	syn := NewSynthesizer()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now),
		view("substack", models.BiasBullish, 0.7, now),
	}
	levels := []models.PriceLevel{
		level("tv", models.LevelSupport, 5000, now),
		level("substack", models.LevelTarget, 5200, now),
	}

	text, ok := syn.Synthesize(alignedState(0.85), views, levels)
	if !ok {
		t.Fatalf("expected a setup")
	}
	want := "SPX: 2 sources aligned bullish (confluence 0.85); support 5000.00 (tv), target 5200.00 (substack)"
	if text != want {
		t.Fatalf("setup text:\n got %q\nwant %q", text, want)
	}
}

func TestSynthesizeIgnoresNonContributingSources(t *testing.T) {
	syn := NewSynthesizer()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now),
		view("substack", models.BiasBullish, 0.7, now),
	}
	levels := []models.PriceLevel{
		level("discord", models.LevelSupport, 4900, now), // no view from discord
	}

	text, ok := syn.Synthesize(alignedState(0.85), views, levels)
	if !ok {
		t.Fatalf("expected a setup")
	}
	if strings.Contains(text, "discord") {
		t.Fatalf("setup referenced a non-contributing source: %q", text)
	}
}

func TestSynthesizeDeterministicTieBreak(t *testing.T) {
	syn := NewSynthesizer()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	views := []models.SourceView{
		view("tv", models.BiasBearish, 0.8, now),
		view("substack", models.BiasBearish, 0.7, now),
	}
	// equal confidence supports: source order breaks the tie
	levels := []models.PriceLevel{
		level("tv", models.LevelSupport, 5000, now),
		level("substack", models.LevelSupport, 5010, now),
	}

	first, ok := syn.Synthesize(alignedState(0.9), views, levels)
	if !ok {
		t.Fatalf("expected a setup")
	}
	if !strings.Contains(first, "support 5010.00 (substack)") {
		t.Fatalf("tie-break picked wrong level: %q", first)
	}
	for i := 0; i < 5; i++ {
		again, _ := syn.Synthesize(alignedState(0.9), views, levels)
		if again != first {
			t.Fatalf("setup not deterministic")
		}
	}
}

func TestSynthesizeRangeLevelFormat(t *testing.T) {
	syn := NewSynthesizer()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now),
		view("substack", models.BiasBullish, 0.7, now),
	}
	rng := level("tv", models.LevelSupport, 4980, now)
	rng.PriceUpper = 5020

	text, ok := syn.Synthesize(alignedState(0.8), views, []models.PriceLevel{rng})
	if !ok {
		t.Fatalf("expected a setup")
	}
	if !strings.Contains(text, "support 4980.00-5020.00 (tv)") {
		t.Fatalf("range not formatted: %q", text)
	}
}
