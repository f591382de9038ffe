package repository

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	"Conflux/internal/services/confluence"
)

// MemoryStore is the engine's state store: per-symbol price levels with
// tolerance-band dedup and one view snapshot per (symbol, source).
// Reads are guarded by a RWMutex; same-symbol writers are additionally
// serialized upstream so merge decisions never race.
type MemoryStore struct {
	mu        sync.RWMutex
	levels    map[string][]models.PriceLevel // symbol -> levels
	views     map[string]map[string]models.SourceView
	tolerance float64
	floor     float64 // confidence below this is kept but flagged
}

type MemoryStoreOption func(*MemoryStore)

// WithTolerance sets the relative merge-tolerance band.
func WithTolerance(t float64) MemoryStoreOption {
	return func(s *MemoryStore) {
		if t > 0 {
			s.tolerance = t
		}
	}
}

// WithConfidenceFloor sets the low-confidence display floor.
func WithConfidenceFloor(f float64) MemoryStoreOption {
	return func(s *MemoryStore) {
		if f > 0 {
			s.floor = f
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		levels:    make(map[string][]models.PriceLevel),
		views:     make(map[string]map[string]models.SourceView),
		tolerance: 0.015,
		floor:     0.5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyLevel merges l into an existing level of the same (symbol, source,
// type) within the tolerance band, or inserts it. Levels are never deleted,
// only merged or flagged stale downstream.
func (s *MemoryStore) ApplyLevel(l models.PriceLevel) models.IngestOutcome {
	l.LowConfidence = l.Confidence < s.floor

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.levels[l.Symbol]
	for i := range existing {
		e := &existing[i]
		if e.Source != l.Source || e.Type != l.Type {
			continue
		}
		if !confluence.WithinTolerance(e.Mid(), l.Mid(), s.tolerance) {
			continue
		}
		mergeLevel(e, l, s.floor)
		return models.OutcomeMerged
	}

	if l.CreatedAt.IsZero() {
		l.CreatedAt = l.LastConfirmedAt
	}
	s.levels[l.Symbol] = append(existing, l)
	return models.OutcomeInserted
}

// mergeLevel folds the new observation into e, weighting toward the
// higher-confidence one.
func mergeLevel(e *models.PriceLevel, l models.PriceLevel, floor float64) {
	if e.Confidence+l.Confidence > 0 {
		e.Price = (e.Price*e.Confidence + l.Price*l.Confidence) / (e.Confidence + l.Confidence)
		if e.PriceUpper > 0 || l.PriceUpper > 0 {
			e.PriceUpper = (e.PriceUpper*e.Confidence + l.PriceUpper*l.Confidence) / (e.Confidence + l.Confidence)
		}
	}
	if l.Confidence > e.Confidence {
		// the stronger observation wins the narrative fields
		e.Context = l.Context
		e.Direction = l.Direction
		if l.Retracement != "" {
			e.Retracement = l.Retracement
		}
		e.Confidence = l.Confidence
	} else if l.Context != "" && l.Context != e.Context {
		e.Context = e.Context + " | " + l.Context
	}
	if l.LastConfirmedAt.After(e.LastConfirmedAt) {
		e.LastConfirmedAt = l.LastConfirmedAt
	}
	e.LowConfidence = e.Confidence < floor
}

// ApplyView replaces the (symbol, source) snapshot wholesale unless the
// stored one is at least as new; a source's view is its current stance, not
// a history.
func (s *MemoryStore) ApplyView(v models.SourceView) models.IngestOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySource, ok := s.views[v.Symbol]
	if !ok {
		bySource = make(map[string]models.SourceView)
		s.views[v.Symbol] = bySource
	}
	if prev, ok := bySource[v.Source]; ok && !v.LastUpdatedAt.After(prev.LastUpdatedAt) {
		return models.OutcomeIgnored
	}
	bySource[v.Source] = v
	return models.OutcomeReplaced
}

// LevelsFor returns a copy of the symbol's levels sorted by price
// descending.
func (s *MemoryStore) LevelsFor(symbol string) []models.PriceLevel {
	s.mu.RLock()
	src := s.levels[symbol]
	out := make([]models.PriceLevel, len(src))
	copy(out, src)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}

// ViewsFor returns a copy of the symbol's views ordered by source name.
func (s *MemoryStore) ViewsFor(symbol string) []models.SourceView {
	s.mu.RLock()
	bySource := s.views[symbol]
	out := make([]models.SourceView, 0, len(bySource))
	for _, v := range bySource {
		out = append(out, v)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

type storeDump struct {
	Levels map[string][]models.PriceLevel          `json:"levels"`
	Views  map[string]map[string]models.SourceView `json:"views"`
}

// Export serializes the full store for snapshot persistence.
func (s *MemoryStore) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := json.Marshal(storeDump{Levels: s.levels, Views: s.views})
	if err != nil {
		return nil, fmt.Errorf("export state: %w", err)
	}
	return b, nil
}

// Import replaces the store contents with a previously exported snapshot.
func (s *MemoryStore) Import(b []byte) error {
	var d storeDump
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Levels != nil {
		s.levels = d.Levels
	}
	if d.Views != nil {
		s.views = d.Views
	}
	return nil
}

var _ domrepo.StateStore = (*MemoryStore)(nil)
