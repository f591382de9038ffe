package confluence

import (
	"math"
	"strings"
	"testing"
	"time"

	"Conflux/internal/domain/models"
)

var testThresholds = ThresholdSet{
	Default: Thresholds{Soft: 36 * time.Hour, Hard: 120 * time.Hour},
}

func view(source string, bias models.Bias, conf float64, at time.Time) models.SourceView {
	return models.SourceView{Symbol: "SPX", Source: source, Bias: bias, Confidence: conf, LastUpdatedAt: at}
}

func level(source string, typ models.LevelType, price float64, at time.Time) models.PriceLevel {
	return models.PriceLevel{Symbol: "SPX", Source: source, Type: typ, Price: price, Confidence: 0.8, LastConfirmedAt: at}
}

func TestScoreFullAgreementWithProximity(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now.Add(-time.Hour)),
		view("substack", models.BiasBullish, 0.7, now.Add(-2*time.Hour)),
	}
	levels := []models.PriceLevel{
		level("tv", models.LevelSupport, 5000, now.Add(-time.Hour)),
		level("substack", models.LevelSupport, 5010, now.Add(-time.Hour)),
	}

	state := s.Score("SPX", views, levels, now)
	if math.Abs(state.Score-1.0) > 1e-9 {
		t.Fatalf("score: got %v, want 1.0", state.Score)
	}
	if state.Classification != models.ClassificationHigh {
		t.Fatalf("classification: got %q", state.Classification)
	}
	if !state.Aligned {
		t.Fatalf("expected aligned")
	}
}

func TestScoreMixedBias(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now),
		view("substack", models.BiasBullish, 0.7, now),
		view("youtube", models.BiasBearish, 0.9, now),
	}

	state := s.Score("SPX", views, nil, now)
	// one agreeing pair of three: 0.65 * 1/3
	want := 0.65 / 3
	if math.Abs(state.Score-want) > 1e-9 {
		t.Fatalf("score: got %v, want %v", state.Score, want)
	}
	if state.Aligned {
		t.Fatalf("split bias must not align")
	}
	if state.Classification != models.ClassificationLow {
		t.Fatalf("classification: got %q", state.Classification)
	}
}

func TestScoreSingleSourceCapped(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{view("tv", models.BiasBullish, 0.95, now)}
	state := s.Score("SPX", views, nil, now)

	if state.Score != 0.39 {
		t.Fatalf("score: got %v, want capped 0.39", state.Score)
	}
	if state.Aligned {
		t.Fatalf("single source must never align")
	}
	if state.Classification != models.ClassificationLow {
		t.Fatalf("classification: got %q", state.Classification)
	}
}

func TestScoreStaleDampening(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now.Add(-time.Hour)),
		view("substack", models.BiasBullish, 0.7, now.Add(-48*time.Hour)), // stale
	}

	state := s.Score("SPX", views, nil, now)
	// base 0.65, half the views stale: 0.65 * (1 - 0.3*0.5)
	want := 0.65 * 0.85
	if math.Abs(state.Score-want) > 1e-9 {
		t.Fatalf("score: got %v, want %v", state.Score, want)
	}
	if state.Classification != models.ClassificationMedium {
		t.Fatalf("classification: got %q", state.Classification)
	}
	if !state.Aligned {
		t.Fatalf("unanimous medium should align")
	}
}

func TestScoreExpiredViewsExcluded(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now.Add(-time.Hour)),
		view("substack", models.BiasBearish, 0.9, now.Add(-200*time.Hour)), // expired
	}

	state := s.Score("SPX", views, nil, now)
	// only one live view remains: single-source path
	if state.Score != 0.39 {
		t.Fatalf("score: got %v, want 0.39", state.Score)
	}
}

func TestScoreNoViews(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	state := s.Score("SPX", nil, nil, now)
	if state.Score != 0 || state.Classification != models.ClassificationNone {
		t.Fatalf("empty input: got %v/%q", state.Score, state.Classification)
	}
}

func TestScoreNeutralPairAgrees(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{
		view("tv", models.BiasNeutral, 0.8, now),
		view("substack", models.BiasNeutral, 0.7, now),
	}
	state := s.Score("SPX", views, nil, now)
	want := 0.65
	if math.Abs(state.Score-want) > 1e-9 {
		t.Fatalf("score: got %v, want %v", state.Score, want)
	}
}

func TestScoreQuadrantBiasUsesDirectionPrefix(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{
		view("tv", models.Bias("bullish_volatile"), 0.8, now),
		view("substack", models.BiasBullish, 0.7, now),
	}
	state := s.Score("SPX", views, nil, now)
	if !state.Aligned {
		t.Fatalf("quadrant bias should agree with plain bullish: %+v", state)
	}
	if math.Abs(state.Score-0.65) > 1e-9 {
		t.Fatalf("score: got %v, want 0.65", state.Score)
	}
}

func TestScoreActionBiasAlignsWithBullish(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	// flow-style "buy_call" stance next to a plain bullish view, with
	// both sources calling out the same support zone
	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now.Add(-time.Hour)),
		view("discord", models.Bias("buy_call"), 0.7, now.Add(-time.Hour)),
	}
	levels := []models.PriceLevel{
		level("tv", models.LevelSupport, 5000, now),
		level("discord", models.LevelSupport, 5012, now),
	}

	state := s.Score("SPX", views, levels, now)
	if state.Classification != models.ClassificationHigh {
		t.Fatalf("classification: got %q, want high", state.Classification)
	}
	if !state.Aligned {
		t.Fatalf("buy_call must read as bullish and align: %+v", state)
	}

	text, ok := NewSynthesizer().Synthesize(state, views, levels)
	if !ok {
		t.Fatalf("expected a trade setup")
	}
	if !strings.Contains(text, "bullish") {
		t.Fatalf("setup should name the agreed direction: %q", text)
	}
}

func TestScoreLevelProximityCountsCrossSourceOnly(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now),
		view("substack", models.BiasBullish, 0.7, now),
	}
	// same source pair and mismatched type pair are both ineligible
	levels := []models.PriceLevel{
		level("tv", models.LevelSupport, 5000, now),
		level("tv", models.LevelSupport, 5010, now),
		level("substack", models.LevelResistance, 5005, now),
	}
	state := s.Score("SPX", views, levels, now)
	if math.Abs(state.Score-0.65) > 1e-9 {
		t.Fatalf("score: got %v, want bias-only 0.65", state.Score)
	}
}

func TestScoreDeterministic(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights(), testThresholds)

	views := []models.SourceView{
		view("tv", models.BiasBullish, 0.8, now.Add(-time.Hour)),
		view("substack", models.BiasBullish, 0.7, now.Add(-40*time.Hour)),
		view("youtube", models.BiasBearish, 0.6, now.Add(-2*time.Hour)),
	}
	levels := []models.PriceLevel{
		level("tv", models.LevelSupport, 5000, now),
		level("substack", models.LevelSupport, 5008, now),
	}

	first := s.Score("SPX", views, levels, now)
	for i := 0; i < 10; i++ {
		again := s.Score("SPX", views, levels, now)
		if again != first {
			t.Fatalf("score not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestWithinTolerance(t *testing.T) {
	if !WithinTolerance(5000, 5010, 0.015) {
		t.Fatalf("0.2%% apart should be within a 1.5%% band")
	}
	if WithinTolerance(5000, 5500, 0.015) {
		t.Fatalf("10%% apart should be outside a 1.5%% band")
	}
	if WithinTolerance(0, 0, 0.015) {
		t.Fatalf("zero prices cannot match")
	}
}
