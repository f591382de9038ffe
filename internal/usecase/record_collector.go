package usecase

import (
	"context"

	"Conflux/internal/domain/models"
	drepo "Conflux/internal/domain/repository"
	mid "Conflux/internal/middleware"
)

// RecordCollector pulls extraction records off the Extraction Service
// stream and feeds them through the pipeline into the engine.
type RecordCollector struct {
	stream  drepo.RecordStream
	ing     *Ingestor
	metrics drepo.Metrics
	pipe    *mid.RecordPipeline
}

func NewRecordCollector(stream drepo.RecordStream, ing *Ingestor, metrics drepo.Metrics, pipe *mid.RecordPipeline) *RecordCollector {
	return &RecordCollector{stream: stream, ing: ing, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the extraction stream is connected.
func (c *RecordCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *RecordCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	recCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, recCh, errCh)
	return nil
}

func (c *RecordCollector) consume(ctx context.Context, recCh <-chan *models.ExtractionRecord, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				if recCh == nil {
					return
				}
				continue
			}
			if err == nil {
				continue
			}
			c.metrics.RecordError("stream")
			recCh, errCh = c.reestablish(ctx)
			if recCh == nil {
				return
			}
		case rec, ok := <-recCh:
			if !ok {
				// read loop exited; wait for its error on errCh
				recCh = nil
				if errCh == nil {
					return
				}
				continue
			}
			if rec == nil {
				continue
			}
			// a bad record drops; the stream keeps flowing
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, rec)
			} else {
				_, _ = c.ing.Ingest(ctx, rec)
			}
		}
	}
}

// reestablish reconnects the stream and returns fresh read channels. The
// stream's read goroutines exit after a failure, so the old channels are
// closed and a new Read is required.
func (c *RecordCollector) reestablish(ctx context.Context) (<-chan *models.ExtractionRecord, <-chan error) {
	for ctx.Err() == nil {
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			continue
		}
		return c.stream.Read(ctx)
	}
	return nil, nil
}

// Shutdown stops the pipeline and closes the stream.
func (c *RecordCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
