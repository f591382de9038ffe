package usecase

import (
	"context"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	domsvc "Conflux/internal/domain/service"
	"Conflux/internal/services/confluence"
)

// Query is the read side: staleness, confluence and trade setups are all
// recomputed from stored state at call time, so there is no cache to
// invalidate. Each call reads a consistent copy of the symbol's views and
// levels outside any lock.
type Query struct {
	store   domrepo.StateStore
	norm    domsvc.Normalizer
	scorer  domsvc.Scorer
	synth   domsvc.Synthesizer
	th      confluence.ThresholdSet
	metrics domrepo.Metrics
}

func NewQuery(store domrepo.StateStore, norm domsvc.Normalizer, scorer domsvc.Scorer, synth domsvc.Synthesizer, th confluence.ThresholdSet, metrics domrepo.Metrics) *Query {
	return &Query{store: store, norm: norm, scorer: scorer, synth: synth, th: th, metrics: metrics}
}

// ListSymbols returns one summary row per catalog symbol. Symbols with no
// data yet still appear with empty sub-fields.
func (q *Query) ListSymbols(ctx context.Context, now time.Time) []models.SymbolSummary {
	start := time.Now()
	catalog := q.norm.Catalog()
	out := make([]models.SymbolSummary, 0, len(catalog))
	for _, symbol := range catalog {
		views := q.store.ViewsFor(symbol)
		levels := q.store.LevelsFor(symbol)
		state := q.scorer.Score(symbol, views, levels, now)
		q.metrics.RecordConfluence(symbol, state.Score)

		row := models.SymbolSummary{
			Symbol:           symbol,
			Classification:   state.Classification,
			Score:            state.Score,
			Aligned:          state.Aligned,
			ActiveLevelCount: q.countActiveLevels(levels, now),
		}
		if len(views) > 0 {
			row.Sources = make(map[string]models.SourceBrief, len(views))
			for _, v := range views {
				row.Sources[v.Source] = models.SourceBrief{
					Bias:          v.Bias,
					LastUpdatedAt: v.LastUpdatedAt,
					IsStale:       confluence.IsStale(v.LastUpdatedAt, now, q.th.For(v.Source)),
				}
			}
		}
		out = append(out, row)
	}
	q.metrics.RecordLatency("list_symbols", time.Since(start).Seconds())
	return out
}

// GetSymbol returns the full per-symbol picture. Unknown symbols yield
// ErrSymbolNotFound.
func (q *Query) GetSymbol(ctx context.Context, symbolText string, now time.Time) (*models.SymbolDetail, error) {
	start := time.Now()
	symbol, ok := q.norm.Normalize(symbolText)
	if !ok {
		return nil, models.ErrSymbolNotFound
	}

	views := q.store.ViewsFor(symbol)
	levels := q.store.LevelsFor(symbol)
	state := q.scorer.Score(symbol, views, levels, now)
	q.metrics.RecordConfluence(symbol, state.Score)

	detail := &models.SymbolDetail{
		Symbol:     symbol,
		Views:      make(map[string]models.ViewWithStatus, len(views)),
		Levels:     make([]models.LevelWithStatus, 0, len(levels)),
		Confluence: state,
	}
	for _, v := range views {
		detail.Views[v.Source] = models.ViewWithStatus{
			SourceView: v,
			IsStale:    confluence.IsStale(v.LastUpdatedAt, now, q.th.For(v.Source)),
		}
	}
	for _, l := range levels {
		detail.Levels = append(detail.Levels, models.LevelWithStatus{
			PriceLevel: l,
			IsStale:    confluence.IsStale(l.LastConfirmedAt, now, q.th.For(l.Source)),
		})
	}

	if setup, ok := q.synth.Synthesize(state, q.liveViews(views, now), q.liveLevels(levels, now)); ok {
		detail.Confluence.TradeSetup = setup
		detail.TradeSetup = setup
	}

	q.metrics.RecordLatency("get_symbol", time.Since(start).Seconds())
	return detail, nil
}

func (q *Query) countActiveLevels(levels []models.PriceLevel, now time.Time) int {
	n := 0
	for _, l := range levels {
		if confluence.Evaluate(l.LastConfirmedAt, now, q.th.For(l.Source)) != confluence.Expired {
			n++
		}
	}
	return n
}

// liveViews filters out hard-cutoff views so the synthesizer only names
// sources that still count.
func (q *Query) liveViews(views []models.SourceView, now time.Time) []models.SourceView {
	out := make([]models.SourceView, 0, len(views))
	for _, v := range views {
		if confluence.Evaluate(v.LastUpdatedAt, now, q.th.For(v.Source)) != confluence.Expired {
			out = append(out, v)
		}
	}
	return out
}

func (q *Query) liveLevels(levels []models.PriceLevel, now time.Time) []models.PriceLevel {
	out := make([]models.PriceLevel, 0, len(levels))
	for _, l := range levels {
		if confluence.Evaluate(l.LastConfirmedAt, now, q.th.For(l.Source)) != confluence.Expired {
			out = append(out, l)
		}
	}
	return out
}
