package worker

// Failed jobs land in a per-source-queue dead letter list (dlq:{queue}) once
// their retry budget is spent: a closing-summary email or report render that
// keeps failing is parked with its payload, attempt count, and last error so
// an operator can inspect and replay it.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps an exhausted job with the context needed to replay it.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // ISO 8601
	Attempts      int             `json:"attempts"`
}

// SendToDLQ parks a job that has spent its retry budget.
func SendToDLQ(ctx context.Context, q queue, queueName string, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queueName,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queueName
	if err := q.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push to DLQ")
		return
	}

	log.Warn().
		Str("queue", queueName).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job parked after exhausting retries")
}

// DLQLength returns the number of parked entries for a queue (monitoring).
func DLQLength(ctx context.Context, rdb *redis.Client, queueName string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queueName).Result()
}
