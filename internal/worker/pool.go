package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail  = "jobs:email"
	QueueReport = "jobs:report"

	// A job gets this many processing attempts before it is parked in the DLQ.
	maxJobAttempts = 3
)

// Job is the generic envelope for all async tasks. Attempts counts failed
// processing rounds; the envelope is re-enqueued with the incremented count
// until the budget is spent.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts,omitempty"`
}

// queue is the slice of the redis client the job pipeline pushes through.
// *redis.Client implements it.
type queue interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmail pushes a closing-summary email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

// EnqueueReport pushes a daily-report PDF job to Redis.
func (d *Dispatcher) EnqueueReport(ctx context.Context, payload ReportJobPayload) error {
	return d.enqueue(ctx, QueueReport, "report", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers groups the per-queue processors wired at the composition root.
type Handlers struct {
	Email  *EmailWorker
	Report *ReportWorker
}

// StartPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartPool(ctx context.Context, rdb *redis.Client, handlers *Handlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *Handlers, id int) {
	queues := []string{QueueEmail, QueueReport}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, q queue, handlers *Handlers, queueName, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queueName).Err(err).Msg("failed to unmarshal job")
		return
	}

	var err error
	switch queueName {
	case QueueEmail:
		err = handlers.Email.Process(ctx, job.Payload)
	case QueueReport:
		err = handlers.Report.Process(ctx, job.Payload)
	default:
		log.Warn().Str("queue", queueName).Msg("job from unknown queue dropped")
		return
	}
	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts < maxJobAttempts {
		requeue(ctx, q, queueName, job, err)
		return
	}
	SendToDLQ(ctx, q, queueName, job.Type, job.Payload, err.Error(), job.Attempts)
}

// requeue pushes a failed job back onto its queue for another round. When the
// push itself fails the job goes straight to the DLQ so it is never lost.
func requeue(ctx context.Context, q queue, queueName string, job Job, cause error) {
	encoded, err := json.Marshal(job)
	if err != nil {
		SendToDLQ(ctx, q, queueName, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}
	if err := q.LPush(ctx, queueName, encoded).Err(); err != nil {
		SendToDLQ(ctx, q, queueName, job.Type, job.Payload, cause.Error(), job.Attempts)
		return
	}
	log.Warn().
		Str("queue", queueName).
		Str("job_type", job.Type).
		Int("attempt", job.Attempts).
		Err(cause).
		Msg("job failed, requeued")
}
