package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	job Job
	err error
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	results := make(chan outcome, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{
		Workers:    2,
		MaxRetries: 3,
		RetryDelay: 5 * time.Millisecond,
		OnResult:   func(job Job, err error) { results <- outcome{job, err} },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "bookings"}))

	select {
	case res := <-results:
		assert.NoError(t, res.err)
		assert.Equal(t, 2, res.job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	results := make(chan outcome, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		OnResult:   func(job Job, err error) { results <- outcome{job, err} },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-2"}))

	select {
	case res := <-results:
		assert.EqualError(t, res.err, "permanent")
		assert.Equal(t, 2, res.job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
	}
}

func TestQueueRejectsWhenStopped(t *testing.T) {
	q := NewQueue("exports", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "x"}), ErrQueueClosed)

	var wg sync.WaitGroup
	wg.Add(1)
	q = NewQueue("exports", func(context.Context, Job) error { wg.Done(); return nil }, QueueConfig{})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "y"}))
	wg.Wait()
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{ID: "z"}), ErrQueueClosed)
}
