package usecase

import (
	"context"

	applogger "Conflux/pkg/logger"
	"Conflux/pkg/queue"
)

// LogDigestMessageType is the queue message type carrying aggregated log
// batches from the logger's collector.
const LogDigestMessageType = "log_digest"

// LogDigestJob drains aggregated error-log batches off the queue and
// re-emits each unique message as a single line with its repeat count.
type LogDigestJob struct {
	logger *applogger.Logger
}

func NewLogDigestJob(l *applogger.Logger) *LogDigestJob {
	return &LogDigestJob{logger: l}
}

func (j *LogDigestJob) Name() string { return "log_digest_writer" }
func (j *LogDigestJob) Type() string { return LogDigestMessageType }

func (j *LogDigestJob) Handle(ctx context.Context, payload interface{}) error {
	entries, err := queue.ParsePayload[[]applogger.AggregatedLogEntry](payload)
	if err != nil {
		return err
	}
	for _, e := range *entries {
		j.logger.Info("error digest",
			applogger.String("message", e.Message),
			applogger.String("caller", e.Caller),
			applogger.Int("count", e.Count),
		)
	}
	return nil
}

var _ queue.Job = (*LogDigestJob)(nil)
