package cli

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/chapter-translator/internal/config"
)

type fakeScheduler struct {
	called bool
	err    error
}

func (f *fakeScheduler) Schedule() error {
	f.called = true
	return f.err
}

type fakeCron struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

type fakeHTTP struct {
	listenErr    error
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(string) error {
	close(f.listenCalled)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

type fakeWorkers struct {
	mu      sync.Mutex
	stopped bool
}

func (f *fakeWorkers) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func testConfig() *config.Config {
	return &config.Config{HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"}}
}

func TestRunWithComponents_StartsAndStopsEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := &fakeScheduler{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	workers := &fakeWorkers{}

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, testConfig(), scheduler, cronEngine, httpSrv, workers)
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.True(t, scheduler.called)
	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
	assert.True(t, workers.stopped)
}

func TestRunWithComponents_ListenFailureShutsDown(t *testing.T) {
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	httpSrv.listenErr = errors.New("address already in use")
	workers := &fakeWorkers{}

	err := runWithComponents(context.Background(), testConfig(), &fakeScheduler{}, cronEngine, httpSrv, workers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
	assert.True(t, cronEngine.stopped)
	assert.True(t, workers.stopped)
}

func TestRunWithComponents_ScheduleFailure(t *testing.T) {
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	workers := &fakeWorkers{}

	err := runWithComponents(context.Background(), testConfig(),
		&fakeScheduler{err: errors.New("bad cron")}, cronEngine, httpSrv, workers)
	require.Error(t, err)
	assert.False(t, cronEngine.started)
	assert.True(t, workers.stopped)

	select {
	case <-httpSrv.listenCalled:
		t.Fatal("http server must not start")
	default:
	}
}
