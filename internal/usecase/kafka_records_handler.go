package usecase

import (
	"context"
	"encoding/json"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	pkgkafka "Conflux/pkg/kafka"
	"Conflux/pkg/util"
)

// KafkaRecordsHandler consumes extraction records from a Kafka topic and
// feeds them into the engine. Records the engine rejects are dropped here
// rather than retried: a reject is deterministic, so retrying or DLQing it
// would only recycle the same outcome.
type KafkaRecordsHandler struct {
	topic   string
	ing     *Ingestor
	metrics domrepo.Metrics
}

func NewKafkaRecordsHandler(topic string, ing *Ingestor, metrics domrepo.Metrics) *KafkaRecordsHandler {
	return &KafkaRecordsHandler{topic: topic, ing: ing, metrics: metrics}
}

func (h *KafkaRecordsHandler) Topic() string { return h.topic }

// Handle parses one inbound message using the same wire schema as the HTTP
// ingest endpoint.
func (h *KafkaRecordsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.IngestRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err // malformed frame goes through retry/DLQ
	}

	observedAt := util.ParseTimeDefault(req.ObservedAt, time.Now())
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(observedAt).Seconds())

	if _, err := h.ing.Ingest(ctx, req.Record(observedAt)); err != nil {
		if _, rejected := models.Rejected(err); rejected {
			return nil
		}
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaRecordsHandler)(nil)
