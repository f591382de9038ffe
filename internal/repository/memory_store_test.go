package repository

import (
	"testing"
	"time"

	"Conflux/internal/domain/models"
)

func lvl(symbol, source string, typ models.LevelType, price, conf float64, at time.Time) models.PriceLevel {
	return models.PriceLevel{
		Symbol:          symbol,
		Source:          source,
		Type:            typ,
		Price:           price,
		Confidence:      conf,
		LastConfirmedAt: at,
	}
}

func TestApplyLevelInsertThenMerge(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 5000, 0.8, t0)); got != models.OutcomeInserted {
		t.Fatalf("first apply: got %q, want inserted", got)
	}
	// 5025 is 0.5% away, inside the default 1.5% band
	if got := s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 5025, 0.8, t0.Add(time.Hour))); got != models.OutcomeMerged {
		t.Fatalf("close apply: got %q, want merged", got)
	}

	levels := s.LevelsFor("SPX")
	if len(levels) != 1 {
		t.Fatalf("expected 1 level after merge, got %d", len(levels))
	}
	if levels[0].Price <= 5000 || levels[0].Price >= 5025 {
		t.Fatalf("merged price %v not between originals", levels[0].Price)
	}
	if !levels[0].LastConfirmedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("last confirmed not advanced: %v", levels[0].LastConfirmedAt)
	}
	if !levels[0].CreatedAt.Equal(t0) {
		t.Fatalf("created at changed on merge: %v", levels[0].CreatedAt)
	}
}

func TestApplyLevelOutsideToleranceInserts(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 5000, 0.8, t0))
	// 5500 is 10% away
	if got := s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 5500, 0.8, t0)); got != models.OutcomeInserted {
		t.Fatalf("distant apply: got %q, want inserted", got)
	}
	if n := len(s.LevelsFor("SPX")); n != 2 {
		t.Fatalf("expected 2 levels, got %d", n)
	}
}

func TestApplyLevelDifferentSourceOrTypeNeverMerges(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 5000, 0.8, t0))
	if got := s.ApplyLevel(lvl("SPX", "substack", models.LevelSupport, 5000, 0.8, t0)); got != models.OutcomeInserted {
		t.Fatalf("other source: got %q, want inserted", got)
	}
	if got := s.ApplyLevel(lvl("SPX", "tv", models.LevelResistance, 5000, 0.8, t0)); got != models.OutcomeInserted {
		t.Fatalf("other type: got %q, want inserted", got)
	}
}

func TestMergeKeepsStrongerNarrative(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	weak := lvl("SPX", "tv", models.LevelSupport, 5000, 0.6, t0)
	weak.Context = "weekly pivot"
	s.ApplyLevel(weak)

	strong := lvl("SPX", "tv", models.LevelSupport, 5010, 0.9, t0.Add(time.Hour))
	strong.Context = "golden pocket retest"
	strong.Direction = models.DirectionBullishReversal
	s.ApplyLevel(strong)

	got := s.LevelsFor("SPX")[0]
	if got.Context != "golden pocket retest" {
		t.Fatalf("context: got %q", got.Context)
	}
	if got.Confidence != 0.9 {
		t.Fatalf("confidence: got %v", got.Confidence)
	}
	if got.Direction != models.DirectionBullishReversal {
		t.Fatalf("direction: got %q", got.Direction)
	}
}

func TestMergeAppendsWeakerContext(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	strong := lvl("SPX", "tv", models.LevelSupport, 5000, 0.9, t0)
	strong.Context = "weekly pivot"
	s.ApplyLevel(strong)

	weak := lvl("SPX", "tv", models.LevelSupport, 5010, 0.5, t0.Add(time.Hour))
	weak.Context = "retested friday"
	s.ApplyLevel(weak)

	got := s.LevelsFor("SPX")[0]
	if got.Context != "weekly pivot | retested friday" {
		t.Fatalf("context: got %q", got.Context)
	}
	if got.Confidence != 0.9 {
		t.Fatalf("confidence: got %v", got.Confidence)
	}
}

func TestLowConfidenceFlag(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 5000, 0.3, t0))
	if got := s.LevelsFor("SPX")[0]; !got.LowConfidence {
		t.Fatalf("expected low-confidence flag at 0.3")
	}

	// merging in a strong confirmation clears the flag
	s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 5005, 0.9, t0.Add(time.Hour)))
	if got := s.LevelsFor("SPX")[0]; got.LowConfidence {
		t.Fatalf("flag should clear once confidence passes the floor")
	}
}

func TestApplyViewLastWriteWins(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	v1 := models.SourceView{Symbol: "SPX", Source: "tv", Bias: models.BiasBullish, Confidence: 0.7, LastUpdatedAt: t0}
	if got := s.ApplyView(v1); got != models.OutcomeReplaced {
		t.Fatalf("first view: got %q", got)
	}

	older := models.SourceView{Symbol: "SPX", Source: "tv", Bias: models.BiasBearish, Confidence: 0.9, LastUpdatedAt: t0.Add(-time.Hour)}
	if got := s.ApplyView(older); got != models.OutcomeIgnored {
		t.Fatalf("stale view: got %q, want ignored", got)
	}

	same := models.SourceView{Symbol: "SPX", Source: "tv", Bias: models.BiasBearish, Confidence: 0.9, LastUpdatedAt: t0}
	if got := s.ApplyView(same); got != models.OutcomeIgnored {
		t.Fatalf("equal-time view: got %q, want ignored", got)
	}

	newer := models.SourceView{Symbol: "SPX", Source: "tv", Bias: models.BiasBearish, Confidence: 0.9, LastUpdatedAt: t0.Add(time.Hour)}
	if got := s.ApplyView(newer); got != models.OutcomeReplaced {
		t.Fatalf("newer view: got %q, want replaced", got)
	}

	views := s.ViewsFor("SPX")
	if len(views) != 1 || views[0].Bias != models.BiasBearish {
		t.Fatalf("unexpected views %+v", views)
	}
}

func TestLevelsForSortedByPriceDesc(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 4800, 0.8, t0))
	s.ApplyLevel(lvl("SPX", "tv", models.LevelResistance, 5200, 0.8, t0))
	s.ApplyLevel(lvl("SPX", "substack", models.LevelTarget, 5000, 0.8, t0))

	levels := s.LevelsFor("SPX")
	for i := 1; i < len(levels); i++ {
		if levels[i].Price > levels[i-1].Price {
			t.Fatalf("levels not sorted descending: %v before %v", levels[i-1].Price, levels[i].Price)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.ApplyLevel(lvl("SPX", "tv", models.LevelSupport, 5000, 0.8, t0))
	s.ApplyView(models.SourceView{Symbol: "NDX", Source: "tv", Bias: models.BiasBullish, Confidence: 0.7, LastUpdatedAt: t0})

	b, err := s.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	fresh := NewMemoryStore()
	if err := fresh.Import(b); err != nil {
		t.Fatalf("import: %v", err)
	}
	if n := len(fresh.LevelsFor("SPX")); n != 1 {
		t.Fatalf("levels lost in round trip: %d", n)
	}
	if n := len(fresh.ViewsFor("NDX")); n != 1 {
		t.Fatalf("views lost in round trip: %d", n)
	}
}
