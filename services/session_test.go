package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/internal/user"
)

func ptr[T any](v T) *T { return &v }

func TestSessionManager_OpenLoadsRemoteRecord(t *testing.T) {
	e := newEngine(t, nil)
	e.remote.Put(ladderRecord("u1", 64))

	s, err := e.sessions.Open(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 64.0, s.Snapshot().LadderScore)

	again, err := e.sessions.Open(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestSessionManager_OpenUnknownUser(t *testing.T) {
	e := newEngine(t, nil)

	s, err := e.sessions.Open(context.Background(), "new")
	require.NoError(t, err)
	r := s.Snapshot()
	assert.Equal(t, "new", r.ID)
	assert.Zero(t, r.LadderScore)
}

func TestSessionManager_RequiresIdentity(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.sessions.Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestSessionManager_FallsBackToSnapshot(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	e.remote.Put(ladderRecord("u1", 72))

	s, err := e.sessions.Open(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, e.sessions.SaveSnapshot(ctx, s))

	// A second process sharing the local store, with the remote down.
	restarted := NewSessionManager(testRepository(e.remote), nil, e.kv, nil, testLogger())
	e.remote.FailNext(errors.New("permission denied"))
	s2, err := restarted.Open(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 72.0, s2.Snapshot().LadderScore)

	e.remote.FailNext(errors.New("permission denied"))
	_, err = restarted.Open(ctx, "never-seen")
	assert.Error(t, err)
}

func TestUserSession_ApplyReportsChangedFields(t *testing.T) {
	e := newEngine(t, nil)
	s, err := e.sessions.Open(context.Background(), "u1")
	require.NoError(t, err)

	changed := s.Apply(&user.UpdateProfileRequest{
		Nickname: ptr("kim"),
		Height:   ptr(181.0),
		Age:      ptr(31),
	}, testEpoch)
	assert.Equal(t, map[string]any{
		ladder.FieldNickname: "kim",
		ladder.FieldHeight:   181.0,
		ladder.FieldAge:      31,
	}, changed)
	assert.Equal(t, testEpoch, s.Snapshot().UpdatedAt)

	changed = s.Apply(&user.UpdateProfileRequest{Nickname: ptr("kim"), Height: ptr(181.0)}, testEpoch)
	assert.Empty(t, changed)

	changed = s.Apply(&user.UpdateProfileRequest{Touch: true}, testEpoch)
	assert.Equal(t, map[string]any{ladder.FieldLastActive: testEpoch}, changed)
}

func TestUserSession_SnapshotIsACopy(t *testing.T) {
	e := newEngine(t, nil)
	s, err := e.sessions.Open(context.Background(), "u1")
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Nickname = "changed"
	snap.Stats["x"] = 1.0

	fresh := s.Snapshot()
	assert.Empty(t, fresh.Nickname)
	assert.NotContains(t, fresh.Stats, "x")
}
