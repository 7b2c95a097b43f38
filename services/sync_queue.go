package services

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fitLadderAPI/internal/ladder"
)

const (
	NicknameDelay    = 5 * time.Second
	TestInputsDelay  = 2 * time.Second
	DefaultSyncDelay = 20 * time.Second
	MinWriteInterval = 60 * time.Second

	backgroundWriteTimeout = 10 * time.Second
	userIdleTimeout        = 10 * time.Minute
)

type Classification int

const (
	ClassOther Classification = iota
	ClassNicknameOnly
	ClassTestInputs
)

func (c Classification) Delay() time.Duration {
	switch c {
	case ClassNicknameOnly:
		return NicknameDelay
	case ClassTestInputs:
		return TestInputsDelay
	}
	return DefaultSyncDelay
}

// syncedFields are the only fields whose change schedules a write.
var syncedFields = map[string]bool{
	ladder.FieldScores:      true,
	"record_5km":            true,
	"record_arm_girth":      true,
	ladder.FieldHeight:      true,
	ladder.FieldWeight:      true,
	ladder.FieldAge:         true,
	ladder.FieldGender:      true,
	ladder.FieldNickname:    true,
	ladder.FieldAvatarURL:   true,
	"ladderRank":            true,
	"history":               true,
	ladder.FieldAnonymous:   true,
	"profession":            true,
	"weeklyTrainingHours":   true,
	"trainingYears":         true,
	ladder.FieldTestInputs:  true,
	ladder.FieldCountry:     true,
	"region":                true,
	ladder.FieldCity:        true,
	ladder.FieldDistrict:    true,
	ladder.FieldJobCategory: true,
	ladder.FieldGymName:     true,
	"rpg_class":             true,
}

func IsSyncedField(field string) bool { return syncedFields[field] }

func classify(fields map[string]any) Classification {
	if _, ok := fields[ladder.FieldTestInputs]; ok {
		return ClassTestInputs
	}
	if _, ok := fields[ladder.FieldNickname]; ok && len(fields) == 1 {
		return ClassNicknameOnly
	}
	return ClassOther
}

// Writer is the remote merge the queue drains into.
type Writer interface {
	Merge(ctx context.Context, id string, fields map[string]any) error
}

type WriteIntent struct {
	ID             string
	UserID         string
	Payload        map[string]any
	Classification Classification
	CreatedAt      time.Time
}

type userQueue struct {
	timer   Timer
	pending *WriteIntent
	// lastWrite is when the latest write started.
	lastWrite time.Time
	touched   time.Time
	writing   bool
	done      chan struct{}
	// held is set when a timer fired while a write was in flight.
	held bool
	// synced holds the last value known to be in the remote store per field.
	synced map[string]any
}

// SyncQueue coalesces frequent profile mutations into rate-limited remote
// writes. There is at most one pending timer and one write in flight per
// user, and successive writes for a user start at least MinWriteInterval
// apart.
type SyncQueue struct {
	writer Writer
	clock  Clock
	tracer trace.Tracer
	logger *slog.Logger

	mu      sync.Mutex
	users   map[string]*userQueue
	wg      sync.WaitGroup
	stopped bool
}

func NewSyncQueue(writer Writer, clock Clock, tracer trace.Tracer, logger *slog.Logger) *SyncQueue {
	return &SyncQueue{
		writer: writer,
		clock:  clock,
		tracer: tracer,
		logger: logger,
		users:  make(map[string]*userQueue),
	}
}

func (q *SyncQueue) user(userID string) *userQueue {
	uq, ok := q.users[userID]
	if !ok {
		uq = &userQueue{synced: make(map[string]any)}
		q.users[userID] = uq
	}
	uq.touched = q.clock.Now()
	return uq
}

// Seed records the values a freshly loaded remote document holds so that
// edits reverting to them are not written again. Values the queue already
// wrote take precedence.
func (q *SyncQueue) Seed(userID string, doc map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	uq := q.user(userID)
	for k, v := range doc {
		if !syncedFields[k] {
			continue
		}
		if _, ok := uq.synced[k]; !ok {
			uq.synced[k] = v
		}
	}
}

// Schedule queues the changed fields for a debounced write. Fields outside
// the synced set and values already in the remote store are ignored. It
// reports whether a write is pending afterwards.
func (q *SyncQueue) Schedule(userID string, changed map[string]any) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return false
	}

	uq := q.user(userID)
	fields := make(map[string]any)
	for k, v := range changed {
		if !syncedFields[k] {
			continue
		}
		if prev, ok := uq.synced[k]; ok && reflect.DeepEqual(prev, v) {
			if uq.pending != nil {
				delete(uq.pending.Payload, k)
			}
			continue
		}
		fields[k] = v
	}
	if uq.pending != nil && len(uq.pending.Payload) == 0 {
		q.cancelLocked(uq)
	}
	if len(fields) == 0 {
		return uq.pending != nil
	}

	now := q.clock.Now()
	class := classify(fields)
	if uq.pending == nil {
		uq.pending = &WriteIntent{UserID: userID, Payload: map[string]any{}, CreatedAt: now}
	}
	for k, v := range fields {
		uq.pending.Payload[k] = v
	}
	uq.pending.ID = uuid.NewString()
	uq.pending.Classification = class

	delay := class.Delay()
	if ceiling := q.ceilingLocked(uq, now); ceiling > delay {
		delay = ceiling
	}
	q.armLocked(uq, userID, uq.pending.ID, delay)
	return true
}

// ceilingLocked is how long until the next write may start.
func (q *SyncQueue) ceilingLocked(uq *userQueue, now time.Time) time.Duration {
	if uq.lastWrite.IsZero() {
		return 0
	}
	if elapsed := now.Sub(uq.lastWrite); elapsed < MinWriteInterval {
		return MinWriteInterval - elapsed
	}
	return 0
}

func (q *SyncQueue) armLocked(uq *userQueue, userID, intentID string, delay time.Duration) {
	if uq.timer != nil {
		uq.timer.Stop()
	}
	uq.held = false
	uq.timer = q.clock.AfterFunc(delay, func() { q.fire(userID, intentID) })
}

func (q *SyncQueue) cancelLocked(uq *userQueue) {
	if uq.timer != nil {
		uq.timer.Stop()
		uq.timer = nil
	}
	uq.held = false
	uq.pending = nil
}

// beginLocked marks a write in flight for the user and stamps its start.
func (q *SyncQueue) beginLocked(uq *userQueue) {
	uq.writing = true
	uq.done = make(chan struct{})
	uq.lastWrite = q.clock.Now()
}

// fire drains the pending intent when its timer expires.
func (q *SyncQueue) fire(userID, intentID string) {
	q.mu.Lock()
	uq, ok := q.users[userID]
	if q.stopped || !ok || uq.pending == nil || uq.pending.ID != intentID {
		q.mu.Unlock()
		return
	}
	uq.timer = nil
	if uq.writing {
		// Re-armed by finish once the write in flight completes.
		uq.held = true
		q.mu.Unlock()
		return
	}
	if wait := q.ceilingLocked(uq, q.clock.Now()); wait > 0 {
		q.armLocked(uq, userID, intentID, wait)
		q.mu.Unlock()
		return
	}
	intent := uq.pending
	uq.pending = nil
	q.beginLocked(uq)
	q.wg.Add(1)
	q.mu.Unlock()
	defer q.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), backgroundWriteTimeout)
	defer cancel()
	err := q.write(ctx, intent)
	q.finish(intent, err, true)
	if err != nil {
		syncWrites.WithLabelValues("failed").Inc()
		q.logger.Warn("background profile sync failed", "user", userID, "intent", intent.ID, "error", err)
		return
	}
	syncWrites.WithLabelValues("written").Inc()
}

func (q *SyncQueue) write(ctx context.Context, intent *WriteIntent) error {
	ctx, span := q.tracer.Start(ctx, "SyncQueue.write")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", intent.UserID),
		attribute.Int("fields", len(intent.Payload)),
	)

	if err := q.writer.Merge(ctx, intent.UserID, intent.Payload); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// finish ends the write begun for intent. Failed fields are put back when
// requeue is set, and a timer held back by the write is re-armed.
func (q *SyncQueue) finish(intent *WriteIntent, err error, requeue bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	uq := q.user(intent.UserID)
	uq.writing = false
	if uq.done != nil {
		close(uq.done)
		uq.done = nil
	}
	if err == nil {
		for k, v := range intent.Payload {
			uq.synced[k] = v
		}
	} else if requeue {
		q.requeueLocked(uq, intent.UserID, intent.Payload)
	}
	if uq.held && uq.pending != nil && !q.stopped {
		q.armLocked(uq, intent.UserID, uq.pending.ID, q.ceilingLocked(uq, q.clock.Now()))
	}
	uq.held = false
}

// requeueLocked puts failed fields back without overriding newer values.
// They go out with the next scheduled or immediate write.
func (q *SyncQueue) requeueLocked(uq *userQueue, userID string, payload map[string]any) {
	if uq.pending == nil {
		uq.pending = &WriteIntent{ID: uuid.NewString(), UserID: userID, Payload: map[string]any{}, CreatedAt: q.clock.Now()}
	}
	for k, v := range payload {
		if _, newer := uq.pending.Payload[k]; !newer {
			uq.pending.Payload[k] = v
		}
	}
}

func (q *SyncQueue) requeue(userID string, payload map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requeueLocked(q.user(userID), userID, payload)
}

// WriteNow writes fields immediately, together with anything pending for
// the user, and restarts the write interval. A write already in flight for
// the user completes first.
func (q *SyncQueue) WriteNow(ctx context.Context, userID string, fields map[string]any) error {
	q.mu.Lock()
	uq := q.user(userID)
	for uq.writing {
		done := uq.done
		q.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("immediate write for %s: %w", userID, ctx.Err())
		}
		q.mu.Lock()
		uq = q.user(userID)
	}

	payload := make(map[string]any, len(fields))
	var carried map[string]any
	if uq.pending != nil {
		carried = uq.pending.Payload
		for k, v := range carried {
			payload[k] = v
		}
	}
	for k, v := range fields {
		payload[k] = v
	}
	q.cancelLocked(uq)
	q.beginLocked(uq)
	q.mu.Unlock()

	intent := &WriteIntent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Payload:   payload,
		CreatedAt: q.clock.Now(),
	}
	err := q.write(ctx, intent)
	q.finish(intent, err, false)
	if err != nil {
		if len(carried) > 0 {
			q.requeue(userID, carried)
		}
		return fmt.Errorf("immediate write for %s: %w", userID, err)
	}
	return nil
}

// Pending returns a copy of the queued payload for a user.
func (q *SyncQueue) Pending(userID string) map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()
	uq, ok := q.users[userID]
	if !ok || uq.pending == nil {
		return nil
	}
	out := make(map[string]any, len(uq.pending.Payload))
	for k, v := range uq.pending.Payload {
		out[k] = v
	}
	return out
}

// Stop cancels the timers, writes whatever is still pending and waits for
// in-flight writes.
func (q *SyncQueue) Stop(ctx context.Context) {
	q.mu.Lock()
	q.stopped = true
	var intents []*WriteIntent
	for _, uq := range q.users {
		if uq.timer != nil {
			uq.timer.Stop()
			uq.timer = nil
		}
		if uq.pending != nil && len(uq.pending.Payload) > 0 {
			intents = append(intents, uq.pending)
		}
		uq.pending = nil
		uq.held = false
	}
	q.mu.Unlock()

	q.wg.Wait()
	for _, intent := range intents {
		if err := q.write(ctx, intent); err != nil {
			q.logger.Warn("failed to flush profile sync on shutdown", "user", intent.UserID, "error", err)
		}
	}
}

// Cleanup forgets idle users every minute until ctx is done.
func (q *SyncQueue) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.evict(userIdleTimeout)
		}
	}
}

// evict drops users with nothing pending or in flight whose last activity
// is older than idle. idle is never shorter than MinWriteInterval.
func (q *SyncQueue) evict(idle time.Duration) int {
	idle = max(idle, MinWriteInterval)
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock.Now()
	n := 0
	for id, uq := range q.users {
		if uq.pending != nil || uq.writing || uq.timer != nil {
			continue
		}
		last := uq.touched
		if uq.lastWrite.After(last) {
			last = uq.lastWrite
		}
		if now.Sub(last) > idle {
			delete(q.users, id)
			n++
		}
	}
	return n
}
