package usecase

import (
	"context"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	"Conflux/pkg/queue"
)

const archiveMessageType = "archive_record"

// QueueArchive defers archive writes through the job queue so the ingest
// path never waits on ClickHouse or Kafka.
type QueueArchive struct {
	q queue.QueueService
}

func NewQueueArchive(q queue.QueueService) *QueueArchive {
	return &QueueArchive{q: q}
}

func (a *QueueArchive) Archive(ctx context.Context, rec *models.ExtractionRecord) error {
	if rec == nil {
		return nil
	}
	return a.q.PublishMessage(ctx, archiveMessageType, rec)
}

func (a *QueueArchive) ArchiveBatch(ctx context.Context, recs []*models.ExtractionRecord) error {
	for _, r := range recs {
		if err := a.Archive(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (a *QueueArchive) Close() error { return nil }

var _ domrepo.Archive = (*QueueArchive)(nil)

// ArchiveJob drains queued records into the real archive sink.
type ArchiveJob struct {
	sink domrepo.Archive
}

func NewArchiveJob(sink domrepo.Archive) *ArchiveJob {
	return &ArchiveJob{sink: sink}
}

func (j *ArchiveJob) Name() string { return "archive_record_writer" }
func (j *ArchiveJob) Type() string { return archiveMessageType }

func (j *ArchiveJob) Handle(ctx context.Context, payload interface{}) error {
	rec, err := queue.ParsePayload[models.ExtractionRecord](payload)
	if err != nil {
		return err
	}
	return j.sink.Archive(ctx, rec)
}

var _ queue.Job = (*ArchiveJob)(nil)
