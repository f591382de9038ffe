package usecase

import (
	"context"
	"sync"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	domsvc "Conflux/internal/domain/service"
	applogger "Conflux/pkg/logger"
)

// Ingestor applies extraction records to the state store. Updates to
// different symbols proceed fully in parallel; updates to the same symbol
// are serialized through a per-symbol mutex built once from the closed
// catalog. Nothing blocking happens inside the critical section, only the
// in-memory merge.
type Ingestor struct {
	norm    domsvc.Normalizer
	store   domrepo.StateStore
	metrics domrepo.Metrics
	archive domrepo.Archive
	logger  *applogger.Logger
	sources map[string]struct{}
	locks   map[string]*sync.Mutex
}

func NewIngestor(norm domsvc.Normalizer, store domrepo.StateStore, metrics domrepo.Metrics, l *applogger.Logger, knownSources []string) *Ingestor {
	locks := make(map[string]*sync.Mutex)
	for _, s := range norm.Catalog() {
		locks[s] = &sync.Mutex{}
	}
	srcs := make(map[string]struct{}, len(knownSources))
	for _, s := range knownSources {
		srcs[s] = struct{}{}
	}
	return &Ingestor{
		norm:    norm,
		store:   store,
		metrics: metrics,
		archive: noopArchive{},
		logger:  l,
		sources: srcs,
		locks:   locks,
	}
}

// SetArchive injects the archive sink (DI sets this when archiving is
// enabled).
func (i *Ingestor) SetArchive(a domrepo.Archive) {
	if a != nil {
		i.archive = a
	}
}

// Ingest validates and applies one record. Rejections return a
// *RejectedRecordError; stale writes return OutcomeIgnored with nil error.
func (i *Ingestor) Ingest(ctx context.Context, rec *models.ExtractionRecord) (models.IngestOutcome, error) {
	start := time.Now()
	if rec == nil {
		return "", i.reject("", models.RejectMissingPayload)
	}
	if rec.Kind != models.KindLevel && rec.Kind != models.KindView {
		return "", i.reject(rec.SymbolText, models.RejectBadKind)
	}
	if len(i.sources) > 0 {
		if _, ok := i.sources[rec.Source]; !ok {
			return "", i.reject(rec.SymbolText, models.RejectUnknownSource)
		}
	}
	symbol, ok := i.norm.Normalize(rec.SymbolText)
	if !ok {
		return "", i.reject(rec.SymbolText, models.RejectUnknownSymbol)
	}
	if rec.ObservedAt.IsZero() {
		rec.ObservedAt = time.Now()
	}

	var outcome models.IngestOutcome
	var err error
	switch rec.Kind {
	case models.KindLevel:
		outcome, err = i.ingestLevel(symbol, rec)
	case models.KindView:
		outcome, err = i.ingestView(symbol, rec)
	}
	if err != nil {
		return "", err
	}

	i.metrics.RecordIngest(rec.Source, string(rec.Kind), string(outcome))
	i.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	i.metrics.RecordActiveLevels(symbol, len(i.store.LevelsFor(symbol)))

	if outcome != models.OutcomeIgnored {
		// archive outside the critical section; failure never fails ingest
		if aerr := i.archive.Archive(ctx, rec); aerr != nil {
			i.metrics.RecordError("archive")
			i.logger.Warn("archive write failed",
				applogger.String("symbol", symbol),
				applogger.Error(aerr),
			)
		}
	}
	return outcome, nil
}

func (i *Ingestor) ingestLevel(symbol string, rec *models.ExtractionRecord) (models.IngestOutcome, error) {
	f := rec.Level
	if f == nil {
		return "", i.reject(rec.SymbolText, models.RejectMissingPayload)
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return "", i.reject(rec.SymbolText, models.RejectBadConfidence)
	}
	if f.Price <= 0 || (f.PriceUpper > 0 && f.PriceUpper < f.Price) {
		return "", i.reject(rec.SymbolText, models.RejectBadPrice)
	}

	level := models.PriceLevel{
		Symbol:          symbol,
		Source:          rec.Source,
		Type:            f.Type,
		Price:           f.Price,
		PriceUpper:      f.PriceUpper,
		Direction:       f.Direction,
		Retracement:     f.Retracement,
		Confidence:      f.Confidence,
		Context:         f.Context,
		CreatedAt:       rec.ObservedAt,
		LastConfirmedAt: rec.ObservedAt,
	}
	if !models.ValidLevelType(level.Type) {
		return "", i.reject(rec.SymbolText, models.RejectMissingPayload)
	}

	mu := i.lockFor(symbol)
	mu.Lock()
	outcome := i.store.ApplyLevel(level)
	mu.Unlock()
	return outcome, nil
}

func (i *Ingestor) ingestView(symbol string, rec *models.ExtractionRecord) (models.IngestOutcome, error) {
	f := rec.View
	if f == nil || f.Bias == "" {
		return "", i.reject(rec.SymbolText, models.RejectMissingPayload)
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return "", i.reject(rec.SymbolText, models.RejectBadConfidence)
	}

	view := models.SourceView{
		Symbol:        symbol,
		Source:        rec.Source,
		Bias:          f.Bias,
		Confidence:    f.Confidence,
		Notes:         f.Notes,
		LastUpdatedAt: rec.ObservedAt,
	}

	mu := i.lockFor(symbol)
	mu.Lock()
	outcome := i.store.ApplyView(view)
	mu.Unlock()

	if outcome == models.OutcomeIgnored {
		i.metrics.RecordError("stale_write")
	}
	return outcome, nil
}

func (i *Ingestor) lockFor(symbol string) *sync.Mutex {
	// catalog is closed, so every normalized symbol has a lock
	return i.locks[symbol]
}

func (i *Ingestor) reject(symbolText string, reason models.RejectReason) error {
	i.metrics.RecordReject(string(reason))
	i.logger.Debug("record rejected",
		applogger.String("symbol_text", symbolText),
		applogger.String("reason", string(reason)),
	)
	return &models.RejectedRecordError{Reason: reason}
}

// noopArchive is the default archive until DI injects a real one.
type noopArchive struct{}

func (noopArchive) Archive(context.Context, *models.ExtractionRecord) error        { return nil }
func (noopArchive) ArchiveBatch(context.Context, []*models.ExtractionRecord) error { return nil }
func (noopArchive) Close() error                                                   { return nil }
