package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job.Type
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	accepted, err := q.Enqueue(Job{ID: "1", Type: TypeRefreshAllBoards})
	require.NoError(t, err)
	assert.True(t, accepted)

	select {
	case typ := <-done:
		assert.Equal(t, TypeRefreshAllBoards, typ)
	case <-time.After(time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{ID: "1"})
	assert.Error(t, err)
}

func TestQueueDropsDuplicateWaitingKey(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if job.Key == "busy" {
			close(started)
			<-release
		}
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "0", Key: "busy"})
	require.NoError(t, err)
	<-started

	first, err := q.Enqueue(Job{ID: "1", Key: "leaderboard:lb-1"})
	require.NoError(t, err)
	second, err := q.Enqueue(Job{ID: "2", Key: "leaderboard:lb-1"})
	require.NoError(t, err)
	other, err := q.Enqueue(Job{ID: "3", Key: "leaderboard:lb-2"})
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, other)
	close(release)
}

func TestQueueRerunsKeyRequestedWhileRunning(t *testing.T) {
	started := make(chan string, 4)
	release := make(chan struct{})
	var calls int32
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			started <- job.ID
			<-release
			return nil
		}
		started <- job.ID
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "1", Key: "leaderboard:lb-1"})
	require.NoError(t, err)
	assert.Equal(t, "1", <-started)

	followUp, err := q.Enqueue(Job{ID: "2", Key: "leaderboard:lb-1"})
	require.NoError(t, err)
	assert.True(t, followUp)
	coalesced, err := q.Enqueue(Job{ID: "3", Key: "leaderboard:lb-1"})
	require.NoError(t, err)
	assert.False(t, coalesced)

	close(release)
	select {
	case id := <-started:
		assert.Equal(t, "2", id)
	case <-time.After(2 * time.Second):
		t.Fatal("follow-up run not dispatched")
	}

	select {
	case id := <-started:
		t.Fatalf("unexpected extra run %s", id)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "1", Key: "k"})
	require.NoError(t, err)

	select {
	case <-done:
		assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("job not retried")
	}
}
