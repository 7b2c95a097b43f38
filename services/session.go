package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/internal/localstore"
	"fitLadderAPI/internal/store"
	"fitLadderAPI/internal/user"
)

// UserSession owns one signed-in user's local ladder record. Every change
// goes through its methods.
type UserSession struct {
	mu         sync.Mutex
	submitting sync.Mutex // serializes submissions
	userID     string
	record     *ladder.Record
	location   *time.Location
}

func newUserSession(userID string, record *ladder.Record, loc *time.Location) *UserSession {
	if record == nil {
		record = &ladder.Record{ID: userID, Stats: map[string]any{}, FilterTags: map[string]string{}}
	}
	record.ID = userID
	return &UserSession{userID: userID, record: record, location: loc}
}

func (s *UserSession) UserID() string { return s.userID }

// Snapshot returns a copy of the local record.
func (s *UserSession) Snapshot() *ladder.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

func (s *UserSession) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

func (s *UserSession) SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	s.mu.Lock()
	s.location = loc
	s.mu.Unlock()
}

// Apply mutates the local record and returns the changed document fields.
func (s *UserSession) Apply(req *user.UpdateProfileRequest, now time.Time) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.record
	changed := map[string]any{}
	setString := func(dst *string, v *string, field string) {
		if v != nil && *v != *dst {
			*dst = *v
			changed[field] = *v
		}
	}
	setFloat := func(dst *float64, v *float64, field string) {
		if v != nil && *v != *dst {
			*dst = *v
			changed[field] = *v
		}
	}

	setString(&r.Nickname, req.Nickname, ladder.FieldNickname)
	setString(&r.AvatarURL, req.AvatarURL, ladder.FieldAvatarURL)
	setString(&r.Gender, req.Gender, ladder.FieldGender)
	setString(&r.Country, req.Country, ladder.FieldCountry)
	setString(&r.City, req.City, ladder.FieldCity)
	setString(&r.District, req.District, ladder.FieldDistrict)
	setString(&r.JobCategory, req.JobCategory, ladder.FieldJobCategory)
	setString(&r.GymName, req.GymName, ladder.FieldGymName)
	setFloat(&r.Height, req.Height, ladder.FieldHeight)
	setFloat(&r.Weight, req.Weight, ladder.FieldWeight)

	if req.Age != nil && *req.Age != r.Age {
		r.Age = *req.Age
		changed[ladder.FieldAge] = r.Age
	}
	if req.Anonymous != nil && *req.Anonymous != r.Anonymous {
		r.Anonymous = *req.Anonymous
		changed[ladder.FieldAnonymous] = r.Anonymous
	}
	if req.TestInputs != nil && *req.TestInputs != r.TestInputs {
		r.TestInputs = *req.TestInputs
		changed[ladder.FieldTestInputs] = ladder.EncodeTestInputs(r.TestInputs)
	}
	if req.Scores != nil && *req.Scores != r.Scores {
		r.Scores = *req.Scores
		changed[ladder.FieldScores] = ladder.EncodeScores(r.Scores)
	}
	if req.Touch {
		r.LastActive = now
		changed[ladder.FieldLastActive] = now
	}
	if len(changed) > 0 {
		r.UpdatedAt = now
	}
	return changed
}

// update runs fn with the record locked.
func (s *UserSession) update(fn func(r *ladder.Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.record)
}

// SessionManager hands out one UserSession per signed-in user.
type SessionManager struct {
	mu         sync.Mutex
	sessions   map[string]*UserSession
	repo       *store.CandidateRepository
	queue      *SyncQueue
	kv         localstore.KV
	defaultLoc *time.Location
	logger     *slog.Logger
}

// NewSessionManager builds the manager. A non-nil queue is told what the
// remote store holds for each user loaded from it.
func NewSessionManager(repo *store.CandidateRepository, queue *SyncQueue, kv localstore.KV, defaultLoc *time.Location, logger *slog.Logger) *SessionManager {
	if defaultLoc == nil {
		defaultLoc = time.Local
	}
	return &SessionManager{
		sessions:   make(map[string]*UserSession),
		repo:       repo,
		queue:      queue,
		kv:         kv,
		defaultLoc: defaultLoc,
		logger:     logger,
	}
}

func (m *SessionManager) Lookup(userID string) (*UserSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Open returns the user's session, loading the record from the remote store
// on first use. When the store is unreachable the last local snapshot is
// used instead.
func (m *SessionManager) Open(ctx context.Context, userID string) (*UserSession, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	if s, ok := m.Lookup(userID); ok {
		return s, nil
	}

	record, err := m.repo.Get(ctx, userID)
	fromRemote := err == nil
	switch {
	case err == nil:
		if saveErr := m.saveSnapshot(ctx, record); saveErr != nil {
			m.logger.Warn("failed to save ladder snapshot", "user", userID, "error", saveErr)
		}
	case errors.Is(err, store.ErrNotFound):
		record = nil
	default:
		var doc map[string]any
		found, loadErr := localstore.LoadJSON(ctx, m.kv, localstore.SnapshotKey(userID), &doc)
		if loadErr != nil || !found {
			return nil, fmt.Errorf("failed to open session for %s: %w", userID, err)
		}
		m.logger.Warn("remote read failed, using local snapshot", "user", userID, "error", err)
		record = ladder.FromDocument(userID, doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	if fromRemote && m.queue != nil {
		m.queue.Seed(userID, record.ToDocument())
	}
	s := newUserSession(userID, record, m.defaultLoc)
	m.sessions[userID] = s
	return s, nil
}

// SaveSnapshot persists the session's record as the last-known-good copy.
func (m *SessionManager) SaveSnapshot(ctx context.Context, s *UserSession) error {
	return m.saveSnapshot(ctx, s.Snapshot())
}

func (m *SessionManager) saveSnapshot(ctx context.Context, r *ladder.Record) error {
	return localstore.SaveJSON(ctx, m.kv, localstore.SnapshotKey(r.ID), r.ToDocument())
}
