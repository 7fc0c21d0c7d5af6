package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	pushes map[string][]string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{pushes: make(map[string][]string)}
}

func (f *fakeQueue) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		switch val := v.(type) {
		case []byte:
			f.pushes[key] = append(f.pushes[key], string(val))
		case string:
			f.pushes[key] = append(f.pushes[key], val)
		}
	}
	return redis.NewIntResult(int64(len(f.pushes[key])), nil)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// An email job with no recipient always fails processing without touching SMTP.
func failingEmailJob(t *testing.T, attempts int) string {
	t.Helper()
	job := Job{Type: "email", Payload: mustJSON(t, EmailJobPayload{}), Attempts: attempts}
	raw, err := json.Marshal(job)
	require.NoError(t, err)
	return string(raw)
}

func TestFailedJobIsRequeuedWithIncrementedAttempts(t *testing.T) {
	q := newFakeQueue()
	handlers := &Handlers{Email: NewEmailWorker(nil)}

	processJob(context.Background(), q, handlers, QueueEmail, failingEmailJob(t, 0))

	require.Len(t, q.pushes[QueueEmail], 1, "first failure must requeue, not park")
	assert.Empty(t, q.pushes[DLQPrefix+QueueEmail])

	var requeued Job
	require.NoError(t, json.Unmarshal([]byte(q.pushes[QueueEmail][0]), &requeued))
	assert.Equal(t, 1, requeued.Attempts)
	assert.Equal(t, "email", requeued.Type)
}

func TestExhaustedJobLandsInDLQ(t *testing.T) {
	q := newFakeQueue()
	handlers := &Handlers{Email: NewEmailWorker(nil)}

	processJob(context.Background(), q, handlers, QueueEmail, failingEmailJob(t, maxJobAttempts-1))

	assert.Empty(t, q.pushes[QueueEmail], "spent jobs must not loop forever")
	require.Len(t, q.pushes[DLQPrefix+QueueEmail], 1)

	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(q.pushes[DLQPrefix+QueueEmail][0]), &entry))
	assert.Equal(t, QueueEmail, entry.OriginalQueue)
	assert.Equal(t, "email", entry.JobType)
	assert.Equal(t, maxJobAttempts, entry.Attempts)
	assert.NotEmpty(t, entry.Reason)
	assert.NotEmpty(t, entry.FailedAt)
}

func TestMalformedJobEnvelopeIsDropped(t *testing.T) {
	q := newFakeQueue()
	handlers := &Handlers{Email: NewEmailWorker(nil)}

	processJob(context.Background(), q, handlers, QueueEmail, "{not an envelope")

	assert.Empty(t, q.pushes[QueueEmail])
	assert.Empty(t, q.pushes[DLQPrefix+QueueEmail])
}

func TestUnknownQueueIsDropped(t *testing.T) {
	q := newFakeQueue()
	handlers := &Handlers{Email: NewEmailWorker(nil)}

	processJob(context.Background(), q, handlers, "jobs:mystery", failingEmailJob(t, 0))

	assert.Empty(t, q.pushes)
}
