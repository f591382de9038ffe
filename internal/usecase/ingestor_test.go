package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"Conflux/internal/domain/models"
	"Conflux/internal/repository"
	"Conflux/internal/services/symbols"
	applogger "Conflux/pkg/logger"
)

// stubMetrics counts calls so tests can assert on recording without a
// registry.
type stubMetrics struct {
	mu       sync.Mutex
	ingested int
	rejected map[string]int
	errors   map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{rejected: map[string]int{}, errors: map[string]int{}}
}

func (m *stubMetrics) RecordIngest(source, kind, outcome string) {
	m.mu.Lock()
	m.ingested++
	m.mu.Unlock()
}

func (m *stubMetrics) RecordReject(reason string) {
	m.mu.Lock()
	m.rejected[reason]++
	m.mu.Unlock()
}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *stubMetrics) RecordActiveLevels(symbol string, n int)     {}
func (m *stubMetrics) RecordConfluence(symbol string, score float64) {}
func (m *stubMetrics) RecordLatency(op string, seconds float64)    {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

var testSources = []string{"tv", "substack", "youtube", "discord"}

func newTestIngestor(t *testing.T) (*Ingestor, *repository.MemoryStore, *stubMetrics) {
	t.Helper()
	store := repository.NewMemoryStore()
	m := newStubMetrics()
	ing := NewIngestor(symbols.New(), store, m, testLogger(t), testSources)
	return ing, store, m
}

func levelRecord(symbolText, source string, price float64, at time.Time) *models.ExtractionRecord {
	return &models.ExtractionRecord{
		SymbolText: symbolText,
		Source:     source,
		Kind:       models.KindLevel,
		Level:      &models.LevelFields{Type: models.LevelSupport, Price: price, Confidence: 0.8},
		ObservedAt: at,
	}
}

func viewRecord(symbolText, source string, bias models.Bias, at time.Time) *models.ExtractionRecord {
	return &models.ExtractionRecord{
		SymbolText: symbolText,
		Source:     source,
		Kind:       models.KindView,
		View:       &models.ViewFields{Bias: bias, Confidence: 0.7},
		ObservedAt: at,
	}
}

func TestIngestLevelAndView(t *testing.T) {
	ing, store, m := newTestIngestor(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	outcome, err := ing.Ingest(context.Background(), levelRecord("SPX", "tv", 5000, t0))
	if err != nil {
		t.Fatalf("level ingest: %v", err)
	}
	if outcome != models.OutcomeInserted {
		t.Fatalf("level outcome: got %q", outcome)
	}

	outcome, err = ing.Ingest(context.Background(), viewRecord("SPX", "tv", models.BiasBullish, t0))
	if err != nil {
		t.Fatalf("view ingest: %v", err)
	}
	if outcome != models.OutcomeReplaced {
		t.Fatalf("view outcome: got %q", outcome)
	}

	if n := len(store.LevelsFor("SPX")); n != 1 {
		t.Fatalf("levels stored: %d", n)
	}
	if m.ingested != 2 {
		t.Fatalf("ingest metric: %d", m.ingested)
	}
}

func TestIngestNormalizesAliases(t *testing.T) {
	ing, store, _ := newTestIngestor(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := ing.Ingest(context.Background(), levelRecord("/ES", "tv", 5000, t0)); err != nil {
		t.Fatalf("alias ingest: %v", err)
	}
	if n := len(store.LevelsFor("SPX")); n != 1 {
		t.Fatalf("alias record not stored under SPX")
	}
}

func TestIngestRejections(t *testing.T) {
	ing, _, m := newTestIngestor(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		rec    *models.ExtractionRecord
		reason models.RejectReason
	}{
		{"nil record", nil, models.RejectMissingPayload},
		{"unknown symbol", levelRecord("DOGE", "tv", 1, t0), models.RejectUnknownSymbol},
		{"unknown source", levelRecord("SPX", "random_blog", 5000, t0), models.RejectUnknownSource},
		{"bad kind", &models.ExtractionRecord{SymbolText: "SPX", Source: "tv", Kind: "tweet"}, models.RejectBadKind},
		{"level without payload", &models.ExtractionRecord{SymbolText: "SPX", Source: "tv", Kind: models.KindLevel, ObservedAt: t0}, models.RejectMissingPayload},
		{"negative price", levelRecord("SPX", "tv", -5, t0), models.RejectBadPrice},
		{"view without bias", &models.ExtractionRecord{SymbolText: "SPX", Source: "tv", Kind: models.KindView, View: &models.ViewFields{}, ObservedAt: t0}, models.RejectMissingPayload},
	}
	for _, c := range cases {
		_, err := ing.Ingest(context.Background(), c.rec)
		if err == nil {
			t.Fatalf("%s: expected rejection", c.name)
		}
		reason, ok := models.Rejected(err)
		if !ok {
			t.Fatalf("%s: error is not a rejection: %v", c.name, err)
		}
		if reason != c.reason {
			t.Fatalf("%s: got reason %q, want %q", c.name, reason, c.reason)
		}
	}
	if len(m.rejected) == 0 {
		t.Fatalf("rejections not recorded")
	}
}

func TestIngestBadConfidence(t *testing.T) {
	ing, _, _ := newTestIngestor(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := levelRecord("SPX", "tv", 5000, t0)
	rec.Level.Confidence = 1.5
	_, err := ing.Ingest(context.Background(), rec)
	if reason, ok := models.Rejected(err); !ok || reason != models.RejectBadConfidence {
		t.Fatalf("got %v", err)
	}
}

func TestIngestInvertedRange(t *testing.T) {
	ing, _, _ := newTestIngestor(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := levelRecord("SPX", "tv", 5000, t0)
	rec.Level.PriceUpper = 4900
	_, err := ing.Ingest(context.Background(), rec)
	if reason, ok := models.Rejected(err); !ok || reason != models.RejectBadPrice {
		t.Fatalf("got %v", err)
	}
}

func TestIngestStaleViewIgnored(t *testing.T) {
	ing, _, m := newTestIngestor(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := ing.Ingest(context.Background(), viewRecord("SPX", "tv", models.BiasBullish, t0)); err != nil {
		t.Fatalf("first view: %v", err)
	}
	outcome, err := ing.Ingest(context.Background(), viewRecord("SPX", "tv", models.BiasBearish, t0.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("stale view must not error: %v", err)
	}
	if outcome != models.OutcomeIgnored {
		t.Fatalf("stale view outcome: got %q", outcome)
	}
	if m.errors["stale_write"] != 1 {
		t.Fatalf("stale write not counted: %v", m.errors)
	}
}

func TestIngestIdempotentReplay(t *testing.T) {
	ing, store, _ := newTestIngestor(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := levelRecord("SPX", "tv", 5000, t0)
	if _, err := ing.Ingest(context.Background(), rec); err != nil {
		t.Fatalf("first: %v", err)
	}
	// replaying the identical record merges instead of duplicating
	outcome, err := ing.Ingest(context.Background(), levelRecord("SPX", "tv", 5000, t0))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if outcome != models.OutcomeMerged {
		t.Fatalf("replay outcome: got %q", outcome)
	}
	levels := store.LevelsFor("SPX")
	if len(levels) != 1 {
		t.Fatalf("replay duplicated the level: %d", len(levels))
	}
	if levels[0].Price != 5000 {
		t.Fatalf("replay moved the price: %v", levels[0].Price)
	}
}

func TestIngestConcurrentSymbols(t *testing.T) {
	ing, store, _ := newTestIngestor(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	syms := []string{"SPX", "NDX", "BTC", "NVDA"}
	var wg sync.WaitGroup
	for _, sym := range syms {
		for k := 0; k < 25; k++ {
			wg.Add(1)
			go func(sym string, k int) {
				defer wg.Done()
				// spread prices far enough apart that nothing merges
				price := 1000.0 * float64(k+1)
				if _, err := ing.Ingest(context.Background(), levelRecord(sym, "tv", price, t0)); err != nil {
					t.Errorf("%s: %v", sym, err)
				}
			}(sym, k)
		}
	}
	wg.Wait()

	for _, sym := range syms {
		if n := len(store.LevelsFor(sym)); n != 25 {
			t.Fatalf("%s: got %d levels, want 25", sym, n)
		}
	}
}
