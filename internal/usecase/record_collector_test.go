package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"Conflux/internal/domain/models"
)

// flakyStream fails its first read session, then serves a record after
// reconnecting.
type flakyStream struct {
	reads      int
	reconnects int
	record     *models.ExtractionRecord
	delivered  chan struct{}
}

func (s *flakyStream) Connect(ctx context.Context) error   { return nil }
func (s *flakyStream) Subscribe(ctx context.Context) error { return nil }
func (s *flakyStream) Close() error                        { return nil }
func (s *flakyStream) IsConnected() bool                   { return true }

func (s *flakyStream) Reconnect(ctx context.Context) error {
	s.reconnects++
	return nil
}

func (s *flakyStream) Read(ctx context.Context) (<-chan *models.ExtractionRecord, <-chan error) {
	s.reads++
	records := make(chan *models.ExtractionRecord, 1)
	errs := make(chan error, 1)
	if s.reads == 1 {
		errs <- errors.New("connection reset")
		close(records)
		close(errs)
		return records, errs
	}
	records <- s.record
	go func() {
		<-s.delivered
		close(records)
		close(errs)
	}()
	return records, errs
}

func TestCollectorReconnectResumesConsuming(t *testing.T) {
	ing, store, m := newTestIngestor(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	stream := &flakyStream{
		record:    viewRecord("SPX", "discord", models.BiasBullish, now),
		delivered: make(chan struct{}),
	}
	c := NewRecordCollector(stream, ing, m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if len(store.ViewsFor("SPX")) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("record not ingested after reconnect (reconnects=%d reads=%d)", stream.reconnects, stream.reads)
		case <-time.After(10 * time.Millisecond):
		}
	}
	close(stream.delivered)

	if stream.reconnects != 1 {
		t.Fatalf("reconnects: got %d, want 1", stream.reconnects)
	}
	if stream.reads != 2 {
		t.Fatalf("read sessions: got %d, want 2", stream.reads)
	}
}
