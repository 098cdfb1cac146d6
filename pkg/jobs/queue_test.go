package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := []string{}
	done := make(chan struct{}, 2)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 1, Logger: zap.NewNop()})

	require.ErrorIs(t, q.Enqueue(Job{ID: "early"}), ErrNotRunning)

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	waitFor(t, done, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestQueueCoalescesPendingKeys(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{}, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if job.ID == "blocker" {
			<-release
		}
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "blocker"}))
	require.NoError(t, q.Enqueue(Job{ID: "r1", Key: "refresh"}))
	require.NoError(t, q.Enqueue(Job{ID: "r2", Key: "refresh"}))
	assert.Equal(t, 1, q.Pending())

	close(release)
	waitFor(t, done, 2)
	assert.Equal(t, 0, q.Pending())

	select {
	case <-done:
		t.Fatal("coalesced job should not run")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQueueRetriesFailures(t *testing.T) {
	attempts := make(chan int, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		attempts <- job.Attempt
		if job.Attempt == 0 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))
	assert.Equal(t, 0, <-attempts)
	select {
	case attempt := <-attempts:
		assert.Equal(t, 1, attempt)
	case <-time.After(time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	attempts := make(chan int, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		attempts <- job.Attempt
		if job.Attempt == 0 {
			panic("boom")
		}
		return nil
	}, QueueConfig{Workers: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "panicky"}))
	assert.Equal(t, 0, <-attempts)
	select {
	case attempt := <-attempts:
		assert.Equal(t, 1, attempt)
	case <-time.After(time.Second):
		t.Fatal("panicking job was not retried")
	}
}

func waitFor(t *testing.T, done <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d jobs", i, n)
		}
	}
}
