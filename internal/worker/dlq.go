package worker

// dlq.go
// Events the pool cannot process land in dlq:{queue} for manual inspection.
// The list is capped at dlqMaxEntries; the oldest entries fall off first.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DLQPrefix     = "dlq:"
	dlqMaxEntries = 10000
)

// DLQEntry wraps a failed job with what is needed to replay it by hand.
type DLQEntry struct {
	OriginalQueue string    `json:"original_queue"`
	Type          string    `json:"type,omitempty"`
	Raw           string    `json:"raw"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failed_at"`
}

// SendToDLQ records a failed job. Failures to write are logged only.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, raw, reason string) {
	entry := DLQEntry{
		OriginalQueue: queue,
		Raw:           raw,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
	}
	var job Job
	if json.Unmarshal([]byte(raw), &job) == nil {
		entry.Type = job.Type
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	key := DLQPrefix + queue
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, dlqMaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: failed to push")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("type", entry.Type).
		Str("reason", reason).
		Msg("dlq: job moved to dead letter queue")
}

// DLQLength returns the backlog for queue; /health reports it.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
