package models

import "time"

// RecordKind distinguishes the two extraction payload shapes.
type RecordKind string

const (
	KindLevel RecordKind = "level"
	KindView  RecordKind = "view"
)

// LevelFields is the level payload of an extraction record, minus
// symbol/source which live on the envelope.
type LevelFields struct {
	Type        LevelType `json:"type"`
	Price       float64   `json:"price"`
	PriceUpper  float64   `json:"price_upper,omitempty"`
	Direction   Direction `json:"direction,omitempty"`
	Retracement string    `json:"retracement,omitempty"`
	Confidence  float64   `json:"confidence"`
	Context     string    `json:"context,omitempty"`
}

// ViewFields is the view payload of an extraction record.
type ViewFields struct {
	Bias       Bias    `json:"bias"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes,omitempty"`
}

// ExtractionRecord is one candidate signal from the Extraction Service.
// SymbolText is a raw mention and must pass normalization before the record
// touches any store.
type ExtractionRecord struct {
	SymbolText string       `json:"symbol_text"`
	Source     string       `json:"source"`
	Kind       RecordKind   `json:"kind"`
	Level      *LevelFields `json:"level_fields,omitempty"`
	View       *ViewFields  `json:"view_fields,omitempty"`
	ContentID  string       `json:"content_id,omitempty"`
	ObservedAt time.Time    `json:"observed_at"`
}

// IngestOutcome describes what a successful ingest did to stored state.
type IngestOutcome string

const (
	OutcomeInserted IngestOutcome = "inserted" // new level stored
	OutcomeMerged   IngestOutcome = "merged"   // folded into an existing level
	OutcomeReplaced IngestOutcome = "replaced" // view snapshot overwritten
	OutcomeIgnored  IngestOutcome = "ignored"  // stale write, silently dropped
)
