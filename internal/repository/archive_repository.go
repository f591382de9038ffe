package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	pkgkafka "Conflux/pkg/kafka"
)

// ClickHouseArchive appends accepted extraction records to ClickHouse for
// offline analysis. Archive writes are best-effort and sit off the ingest
// critical path.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

func NewClickHouseArchive(db *sql.DB, table string) domrepo.Archive {
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) Archive(ctx context.Context, rec *models.ExtractionRecord) error {
	return a.ArchiveBatch(ctx, []*models.ExtractionRecord{rec})
}

func (a *ClickHouseArchive) ArchiveBatch(ctx context.Context, recs []*models.ExtractionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*6)
	for _, r := range recs {
		if r == nil {
			continue
		}
		payload, err := json.Marshal(r)
		if err != nil {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.ObservedAt,
			r.Source,
			r.SymbolText,
			string(r.Kind),
			r.ContentID,
			string(payload),
		)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (observed_at, source, symbol_text, kind, content_id, payload) VALUES %s",
		a.table, strings.Join(values, ","))
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("archive batch: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) Close() error {
	return nil // client lifetime managed by pkg
}

// KafkaArchive republishes accepted records to a Kafka topic for downstream
// consumers.
type KafkaArchive struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaArchive(producer *pkgkafka.Producer, topic string) domrepo.Archive {
	return &KafkaArchive{producer: producer, topic: topic}
}

func (a *KafkaArchive) Archive(ctx context.Context, rec *models.ExtractionRecord) error {
	if rec == nil {
		return nil
	}
	return a.producer.Publish(ctx, a.topic, []byte(rec.SymbolText), rec)
}

func (a *KafkaArchive) ArchiveBatch(ctx context.Context, recs []*models.ExtractionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(recs))
	for _, r := range recs {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(r.SymbolText), Value: r})
	}
	return a.producer.PublishBatch(ctx, a.topic, msgs)
}

func (a *KafkaArchive) Close() error {
	return a.producer.Close()
}

// NoopArchive discards records; used when archiving is disabled.
type NoopArchive struct{}

func (NoopArchive) Archive(context.Context, *models.ExtractionRecord) error        { return nil }
func (NoopArchive) ArchiveBatch(context.Context, []*models.ExtractionRecord) error { return nil }
func (NoopArchive) Close() error                                                   { return nil }

var _ domrepo.Archive = NoopArchive{}
