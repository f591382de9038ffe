package repository

import (
	"context"

	"Conflux/internal/domain/models"
)

// StateStore holds the engine's levels and views. Implementations must be
// safe for concurrent readers; writers for the same symbol are serialized
// by the caller (one critical section per tracked symbol).
type StateStore interface {
	// ApplyLevel merges or inserts a level already carrying a canonical
	// symbol. Returns OutcomeInserted or OutcomeMerged.
	ApplyLevel(l models.PriceLevel) models.IngestOutcome
	// ApplyView replaces the (symbol, source) view snapshot unless the
	// stored one is at least as new. Returns OutcomeReplaced or
	// OutcomeIgnored.
	ApplyView(v models.SourceView) models.IngestOutcome
	// LevelsFor returns a copy of the symbol's levels sorted by price
	// descending.
	LevelsFor(symbol string) []models.PriceLevel
	// ViewsFor returns a copy of the symbol's views.
	ViewsFor(symbol string) []models.SourceView
	// Export and Import serialize the full store for snapshot persistence.
	Export() ([]byte, error)
	Import(b []byte) error
}

// Snapshotter persists store snapshots across restarts. Failures are
// non-fatal: the engine keeps running memory-only.
type Snapshotter interface {
	Save(ctx context.Context, b []byte) error
	Load(ctx context.Context) ([]byte, bool, error)
}

// RecordStream is an inbound stream of extraction records, e.g. the
// Extraction Service WebSocket feed.
type RecordStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.ExtractionRecord, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Archive receives accepted extraction records for offline analysis.
// Archive failures never fail ingestion.
type Archive interface {
	Archive(ctx context.Context, rec *models.ExtractionRecord) error
	ArchiveBatch(ctx context.Context, recs []*models.ExtractionRecord) error
	Close() error
}

// Metrics is the engine's observability sink.
type Metrics interface {
	RecordIngest(source, kind, outcome string)
	RecordReject(reason string)
	RecordError(kind string)
	RecordActiveLevels(symbol string, n int)
	RecordConfluence(symbol string, score float64)
	RecordLatency(op string, seconds float64)
}
