package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"fitLadderAPI/internal/localstore"
	"fitLadderAPI/internal/store"
)

var testEpoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock runs timer callbacks synchronously from Advance, in due order,
// without holding its own lock. Time never moves backwards, so an Advance
// blocked in a callback may overlap another.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			if target.After(c.now) {
				c.now = target
			}
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

// Set moves the clock to an absolute time, firing what comes due.
func (c *fakeClock) Set(t time.Time) {
	c.Advance(t.Sub(c.Now()))
}

func (c *fakeClock) ActiveTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

func testKV(t *testing.T) localstore.KV {
	kv, err := localstore.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func testRepository(remote store.RemoteStore) *store.CandidateRepository {
	return store.NewCandidateRepository(remote, store.RepositoryConfig{
		FetchLimit:   200,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	}, testLogger())
}

type writeCall struct {
	at     time.Time
	userID string
	fields map[string]any
}

// recordingWriter captures merges with the fake clock's time. Queued
// errors fail the next calls.
type recordingWriter struct {
	mu     sync.Mutex
	clock  *fakeClock
	calls  []writeCall
	errors []error
}

func (w *recordingWriter) Merge(_ context.Context, id string, fields map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.errors) > 0 {
		err := w.errors[0]
		w.errors = w.errors[1:]
		return err
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	w.calls = append(w.calls, writeCall{at: w.clock.Now(), userID: id, fields: copied})
	return nil
}

func (w *recordingWriter) FailNext(errs ...error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors = append(w.errors, errs...)
}

func (w *recordingWriter) Calls() []writeCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]writeCall, len(w.calls))
	copy(out, w.calls)
	return out
}

// engine wires the services over an in-memory store.
type engine struct {
	clock       *fakeClock
	remote      *store.MemoryStore
	kv          localstore.KV
	sessions    *SessionManager
	queue       *SyncQueue
	limiter     *SubmissionLimiter
	ladder      *LadderService
	submissions *SubmissionService
	users       *UserService
}

func newEngine(t *testing.T, loc *time.Location) *engine {
	if loc == nil {
		loc = time.UTC
	}
	e := &engine{clock: newFakeClock(), remote: store.NewMemoryStore(), kv: testKV(t)}
	repo := testRepository(e.remote)
	e.queue = NewSyncQueue(repo, e.clock, testTracer(), testLogger())
	e.sessions = NewSessionManager(repo, e.queue, e.kv, loc, testLogger())
	e.limiter = NewSubmissionLimiter(e.kv, e.clock, 24*time.Hour, testLogger())
	e.ladder = NewLadderService(repo, e.sessions, e.clock, testTracer(), testLogger(), 50)
	e.submissions = NewSubmissionService(e.sessions, e.limiter, e.queue, e.clock, testTracer(), testLogger())
	e.users = NewUserService(e.sessions, e.queue, e.clock, testLogger())
	return e
}
