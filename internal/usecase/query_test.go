package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"Conflux/internal/domain/models"
	"Conflux/internal/repository"
	"Conflux/internal/services/confluence"
	"Conflux/internal/services/symbols"
)

var queryThresholds = confluence.ThresholdSet{
	Default: confluence.Thresholds{Soft: 36 * time.Hour, Hard: 120 * time.Hour},
}

func newTestQuery(t *testing.T) (*Query, *Ingestor) {
	t.Helper()
	store := repository.NewMemoryStore()
	norm := symbols.New()
	m := newStubMetrics()
	ing := NewIngestor(norm, store, m, testLogger(t), testSources)
	q := NewQuery(store, norm, confluence.NewScorer(confluence.DefaultWeights(), queryThresholds), confluence.NewSynthesizer(), queryThresholds, m)
	return q, ing
}

func TestListSymbolsCoversCatalog(t *testing.T) {
	q, ing := newTestQuery(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := ing.Ingest(context.Background(), viewRecord("SPX", "tv", models.BiasBullish, now)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows := q.ListSymbols(context.Background(), now)
	if len(rows) != len(symbols.New().Catalog()) {
		t.Fatalf("got %d rows, want one per catalog symbol", len(rows))
	}

	var spx, ndx *models.SymbolSummary
	for i := range rows {
		switch rows[i].Symbol {
		case "SPX":
			spx = &rows[i]
		case "NDX":
			ndx = &rows[i]
		}
	}
	if spx == nil || ndx == nil {
		t.Fatalf("catalog symbols missing from listing")
	}
	if len(spx.Sources) != 1 || spx.Sources["tv"].Bias != models.BiasBullish {
		t.Fatalf("SPX sources: %+v", spx.Sources)
	}
	if len(ndx.Sources) != 0 {
		t.Fatalf("symbol without data should list empty sources: %+v", ndx.Sources)
	}
}

func TestListSymbolsActiveLevelCountExcludesExpired(t *testing.T) {
	q, ing := newTestQuery(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	ing.Ingest(context.Background(), levelRecord("SPX", "tv", 5000, now.Add(-time.Hour)))
	ing.Ingest(context.Background(), levelRecord("SPX", "substack", 6000, now.Add(-200*time.Hour)))

	rows := q.ListSymbols(context.Background(), now)
	for _, r := range rows {
		if r.Symbol == "SPX" {
			if r.ActiveLevelCount != 1 {
				t.Fatalf("active levels: got %d, want 1", r.ActiveLevelCount)
			}
			return
		}
	}
	t.Fatalf("SPX missing")
}

func TestGetSymbolUnknown(t *testing.T) {
	q, _ := newTestQuery(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := q.GetSymbol(context.Background(), "DOGE", now); !errors.Is(err, models.ErrSymbolNotFound) {
		t.Fatalf("got %v, want ErrSymbolNotFound", err)
	}
}

func TestGetSymbolNormalizesInput(t *testing.T) {
	q, ing := newTestQuery(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ing.Ingest(context.Background(), viewRecord("SPX", "tv", models.BiasBullish, now))

	detail, err := q.GetSymbol(context.Background(), "/es", now)
	if err != nil {
		t.Fatalf("alias lookup: %v", err)
	}
	if detail.Symbol != "SPX" {
		t.Fatalf("symbol: got %q", detail.Symbol)
	}
}

func TestGetSymbolMarksStaleEntries(t *testing.T) {
	q, ing := newTestQuery(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	ing.Ingest(context.Background(), viewRecord("SPX", "tv", models.BiasBullish, now.Add(-time.Hour)))
	ing.Ingest(context.Background(), viewRecord("SPX", "substack", models.BiasBullish, now.Add(-48*time.Hour)))

	detail, err := q.GetSymbol(context.Background(), "SPX", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Views["tv"].IsStale {
		t.Fatalf("fresh view flagged stale")
	}
	if !detail.Views["substack"].IsStale {
		t.Fatalf("stale view not flagged")
	}
}

func TestGetSymbolTradeSetupOnlyWhenAlignedHigh(t *testing.T) {
	q, ing := newTestQuery(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// two bullish views plus matching cross-source supports drives the
	// score to the high band
	ing.Ingest(ctx, viewRecord("SPX", "tv", models.BiasBullish, now))
	ing.Ingest(ctx, viewRecord("SPX", "substack", models.BiasBullish, now))
	ing.Ingest(ctx, levelRecord("SPX", "tv", 5000, now))
	ing.Ingest(ctx, levelRecord("SPX", "substack", 5010, now))

	detail, err := q.GetSymbol(ctx, "SPX", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.TradeSetup == "" {
		t.Fatalf("expected a trade setup, state %+v", detail.Confluence)
	}
	if !strings.Contains(detail.TradeSetup, "aligned bullish") {
		t.Fatalf("setup text: %q", detail.TradeSetup)
	}

	// flip one source bearish: alignment breaks, setup disappears
	ing.Ingest(ctx, viewRecord("SPX", "substack", models.BiasBearish, now.Add(time.Hour)))
	detail, err = q.GetSymbol(ctx, "SPX", now)
	if err != nil {
		t.Fatalf("get after flip: %v", err)
	}
	if detail.TradeSetup != "" {
		t.Fatalf("setup should vanish once alignment breaks: %q", detail.TradeSetup)
	}
}

func TestGetSymbolSameInputsSameOutput(t *testing.T) {
	q, ing := newTestQuery(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	ing.Ingest(ctx, viewRecord("SPX", "tv", models.BiasBullish, now))
	ing.Ingest(ctx, levelRecord("SPX", "tv", 5000, now))

	first, err := q.GetSymbol(ctx, "SPX", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := q.GetSymbol(ctx, "SPX", now)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if again.Confluence != first.Confluence {
			t.Fatalf("read-time computation drifted: %+v vs %+v", again.Confluence, first.Confluence)
		}
	}
}
