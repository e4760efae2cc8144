package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MimeLyc/chapter-translator/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waitErr struct{}

func (waitErr) Error() string  { return "model missing" }
func (waitErr) Deferred() bool { return true }

func noop(_ context.Context, _ *TranslationJob, _ progress.Observer) error { return nil }

func waitForStatus(t *testing.T, q *Queue, id string, status Status) *TranslationJob {
	t.Helper()
	var got *TranslationJob
	require.Eventually(t, func() bool {
		job, ok := q.Get(id)
		if !ok || job == nil {
			return false
		}
		got = job
		return job.Status == status
	}, time.Second, 10*time.Millisecond)
	return got
}

func TestQueue_Enqueue_DeduplicatesSameKey(t *testing.T) {
	q := NewQueue(2, nil)

	jobA, createdA := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "ep1|sub1|zh",
	})
	jobB, createdB := q.Enqueue(EnqueueRequest{
		Source:    "cron",
		DedupeKey: "ep1|sub1|zh",
	})

	require.True(t, createdA)
	require.False(t, createdB)
	require.NotNil(t, jobA)
	require.NotNil(t, jobB)
	assert.Equal(t, jobA.ID, jobB.ID)
}

func TestQueue_Enqueue_DerivesKeyFromPayload(t *testing.T) {
	q := NewQueue(1, nil)

	payload := ChapterPayload{PluginID: "novelfull", NovelID: 7, ChapterID: 42}
	job, created := q.Enqueue(EnqueueRequest{Source: "api", Payload: payload})
	require.True(t, created)
	assert.Equal(t, "novelfull|7|42", job.DedupeKey)

	again, created := q.Enqueue(EnqueueRequest{Source: "api", Payload: payload})
	require.False(t, created)
	assert.Equal(t, job.ID, again.ID)
}

func TestQueue_Enqueue_AllowsRetryAfterFailure(t *testing.T) {
	q := NewQueue(1, nil)

	var attempts atomic.Int32
	q.Start(func(_ context.Context, _ *TranslationJob, _ progress.Observer) error {
		if attempts.Add(1) == 1 {
			return assert.AnError
		}
		return nil
	})
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, first)

	failed := waitForStatus(t, q, first.ID, StatusFailed)
	assert.Equal(t, assert.AnError.Error(), failed.Error)

	second, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	waitForStatus(t, q, second.ID, StatusSuccess)
}

func TestQueue_Enqueue_AllowsRetryAfterSuccess(t *testing.T) {
	q := NewQueue(1, nil)
	q.Start(noop)
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "done-key",
	})
	require.True(t, created)
	require.NotNil(t, first)

	waitForStatus(t, q, first.ID, StatusSuccess)

	second, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "done-key",
	})
	require.True(t, created)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestQueue_DeferredErrorParksJob(t *testing.T) {
	q := NewQueue(1, nil)

	var attempts atomic.Int32
	q.Start(func(_ context.Context, _ *TranslationJob, _ progress.Observer) error {
		if attempts.Add(1) == 1 {
			return errors.Join(errors.New("translate"), waitErr{})
		}
		return nil
	})
	defer q.Stop()

	job, created := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "wait-key"})
	require.True(t, created)

	waiting := waitForStatus(t, q, job.ID, StatusWaiting)
	assert.Contains(t, waiting.Error, "model missing")

	// still deduplicated while parked, and re-enqueueing wakes it up
	again, created := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "wait-key"})
	require.False(t, created)
	assert.Equal(t, job.ID, again.ID)

	done := waitForStatus(t, q, job.ID, StatusSuccess)
	assert.Equal(t, 2, done.Attempts)
}

func TestQueue_RequeueWaiting(t *testing.T) {
	q := NewQueue(1, nil)

	var attempts atomic.Int32
	q.Start(func(_ context.Context, _ *TranslationJob, _ progress.Observer) error {
		if attempts.Add(1) == 1 {
			return waitErr{}
		}
		return nil
	})
	defer q.Stop()

	job, _ := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "park"})
	waitForStatus(t, q, job.ID, StatusWaiting)

	assert.Equal(t, 1, q.RequeueWaiting())
	waitForStatus(t, q, job.ID, StatusSuccess)
	assert.Equal(t, 0, q.RequeueWaiting())
}

func TestQueue_ReportsProgress(t *testing.T) {
	q := NewQueue(1, nil)

	release := make(chan struct{})
	q.Start(func(_ context.Context, _ *TranslationJob, report progress.Observer) error {
		report.Observe(progress.Start("started"))
		report.Observe(progress.TaskProgress{IsRunning: true, Progress: progress.Translating, Text: "translating"})
		<-release
		report.Observe(progress.Start("").Finish("done"))
		return nil
	})
	defer q.Stop()

	job, _ := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "p"})

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Progress.Progress == progress.Translating
	}, time.Second, 10*time.Millisecond)
	close(release)

	done := waitForStatus(t, q, job.ID, StatusSuccess)
	assert.Equal(t, progress.Completed, done.Progress.Progress)
	assert.False(t, done.Progress.IsRunning)
}

func TestQueue_StopCancelsRunningJob(t *testing.T) {
	q := NewQueue(1, nil)

	started := make(chan struct{})
	var once sync.Once
	q.Start(func(ctx context.Context, _ *TranslationJob, _ progress.Observer) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	})

	q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "slow"})
	<-started

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestQueue_StopLeavesRunningJobPendingInStore(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(1, store)

	started := make(chan struct{})
	var once sync.Once
	q.Start(func(ctx context.Context, _ *TranslationJob, _ progress.Observer) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	})

	job, _ := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "p1|7|42"})
	<-started
	q.Stop()

	persisted := store.get(job.ID)
	require.NotNil(t, persisted)
	assert.Equal(t, StatusPending, persisted.Status)
	assert.Empty(t, persisted.Error)

	restarted := NewQueue(1, store)
	got, ok := restarted.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status)

	_, created := restarted.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "p1|7|42"})
	assert.False(t, created)

	ran := make(chan string, 1)
	restarted.Start(func(_ context.Context, j *TranslationJob, _ progress.Observer) error {
		ran <- j.ID
		return nil
	})
	defer restarted.Stop()

	select {
	case id := <-ran:
		assert.Equal(t, job.ID, id)
	case <-time.After(time.Second):
		t.Fatal("interrupted job was not run after restart")
	}
}

func TestQueue_List_OrdersByCreation(t *testing.T) {
	q := NewQueue(1, nil)
	a, _ := q.Enqueue(EnqueueRequest{DedupeKey: "a"})
	b, _ := q.Enqueue(EnqueueRequest{DedupeKey: "b"})
	c, _ := q.Enqueue(EnqueueRequest{DedupeKey: "c"})

	list := q.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}
