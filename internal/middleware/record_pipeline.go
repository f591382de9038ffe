package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	"Conflux/internal/service/ratelimit"
)

// Proc is the minimal ingest interface the pipeline needs.
type Proc interface {
	Ingest(ctx context.Context, rec *models.ExtractionRecord) (models.IngestOutcome, error)
}

// RecordPipeline sits between the inbound transports and the engine. It
// screens obviously malformed records, throttles noisy sources, and buffers
// briefly when the downstream is unavailable. Rejections coming back from
// the engine are deterministic and are never buffered or retried.
type RecordPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	rate    float64 // records per second per source
	burst   float64
	bufSize int
	bufCh   chan *models.ExtractionRecord
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*RecordPipeline)

// WithSourceRate sets the per-source throttle (records/sec and burst).
func WithSourceRate(rate, burst float64) PipelineOption {
	return func(p *RecordPipeline) {
		if rate > 0 {
			p.rate = rate
		}
		if burst > 0 {
			p.burst = burst
		}
	}
}

// WithBufferSize sets the temporary buffer size used when downstream is
// unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RecordPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewRecordPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RecordPipeline {
	p := &RecordPipeline{
		proc:    proc,
		metrics: metrics,
		limiter: ratelimit.New(),
		rate:    20,
		burst:   40,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.ExtractionRecord, p.bufSize)
	return p
}

// Start launches background flushing of buffered records.
func (p *RecordPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case rec := <-p.bufCh:
				if rec == nil {
					continue
				}
				if _, err := p.proc.Ingest(ctx, rec); err != nil && !isReject(err) {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- rec:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *RecordPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process screens, throttles, and forwards a record downstream.
func (p *RecordPipeline) Process(ctx context.Context, rec *models.ExtractionRecord) error {
	start := time.Now()
	if err := screen(rec); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.limiter.Allow(rec.Source, p.burst, p.rate) {
		// throttled; drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if _, err := p.proc.Ingest(ctx, rec); err != nil {
		if isReject(err) {
			// already counted by the engine
			return nil
		}
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- rec:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// screen catches records not worth handing to the engine at all.
func screen(rec *models.ExtractionRecord) error {
	if rec == nil {
		return fmt.Errorf("record nil")
	}
	if rec.SymbolText == "" {
		return fmt.Errorf("symbol_text empty")
	}
	if rec.Source == "" {
		return fmt.Errorf("source empty")
	}
	if rec.Level == nil && rec.View == nil {
		return fmt.Errorf("no payload")
	}
	return nil
}

func isReject(err error) bool {
	_, ok := models.Rejected(err)
	return ok
}
