package models

import "time"

// Requests and responses for the confluence HTTP API. Defined in domain for
// consistency and reuse.

type IngestRequest struct {
	SymbolText string        `json:"symbol_text" validate:"required"`
	Source     string        `json:"source" validate:"required"`
	Kind       string        `json:"kind" validate:"required,oneof=level view"`
	Level      *LevelPayload `json:"level_fields,omitempty"`
	View       *ViewPayload  `json:"view_fields,omitempty"`
	ContentID  string        `json:"content_id"`
	ObservedAt string        `json:"observed_at"` // RFC3339 or unix seconds; empty means now
}

type LevelPayload struct {
	Type        string  `json:"type" validate:"required,oneof=support resistance target invalidation"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	PriceUpper  float64 `json:"price_upper" validate:"omitempty,gt=0"`
	Direction   string  `json:"direction" validate:"omitempty,oneof=bullish_reversal bearish_breakdown neutral"`
	Retracement string  `json:"retracement"`
	Confidence  float64 `json:"confidence" validate:"gte=0,lte=1"`
	Context     string  `json:"context"`
}

type ViewPayload struct {
	Bias       string  `json:"bias" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Notes      string  `json:"notes"`
}

// Record converts the request into a domain ExtractionRecord. observedAt is
// the already-parsed timestamp (callers fall back to their own clock when
// the field is absent).
func (r *IngestRequest) Record(observedAt time.Time) *ExtractionRecord {
	rec := &ExtractionRecord{
		SymbolText: r.SymbolText,
		Source:     r.Source,
		Kind:       RecordKind(r.Kind),
		ContentID:  r.ContentID,
		ObservedAt: observedAt,
	}
	if r.Level != nil {
		rec.Level = &LevelFields{
			Type:        LevelType(r.Level.Type),
			Price:       r.Level.Price,
			PriceUpper:  r.Level.PriceUpper,
			Direction:   Direction(r.Level.Direction),
			Retracement: r.Level.Retracement,
			Confidence:  r.Level.Confidence,
			Context:     r.Level.Context,
		}
	}
	if r.View != nil {
		rec.View = &ViewFields{
			Bias:       Bias(r.View.Bias),
			Confidence: r.View.Confidence,
			Notes:      r.View.Notes,
		}
	}
	return rec
}

type IngestResponse struct {
	Outcome IngestOutcome `json:"outcome"`
}

// SourceBrief summarizes one source's view inside the symbol list.
type SourceBrief struct {
	Bias          Bias      `json:"bias"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	IsStale       bool      `json:"is_stale"`
}

// SymbolSummary is one row of the list_symbols response. Catalog symbols
// with no data yet still appear with empty sub-fields.
type SymbolSummary struct {
	Symbol           string                 `json:"symbol"`
	Sources          map[string]SourceBrief `json:"sources,omitempty"`
	Classification   Classification         `json:"classification"`
	Score            float64                `json:"score"`
	Aligned          bool                   `json:"aligned"`
	ActiveLevelCount int                    `json:"active_level_count"`
}

// ViewWithStatus annotates a stored view with its derived staleness flag.
type ViewWithStatus struct {
	SourceView
	IsStale bool `json:"is_stale"`
}

// LevelWithStatus annotates a stored level with its derived staleness flag.
type LevelWithStatus struct {
	PriceLevel
	IsStale bool `json:"is_stale"`
}

// SymbolDetail is the get_symbol response.
type SymbolDetail struct {
	Symbol     string                    `json:"symbol"`
	Views      map[string]ViewWithStatus `json:"views"`
	Levels     []LevelWithStatus         `json:"levels"`
	Confluence ConfluenceState           `json:"confluence"`
	TradeSetup string                    `json:"trade_setup,omitempty"`
}
