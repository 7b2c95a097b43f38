package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/internal/localstore"
	"fitLadderAPI/internal/user"
)

func TestUserService_UpdateProfileSchedulesWrite(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	r, err := e.users.UpdateProfile(ctx, "u1", &user.UpdateProfileRequest{
		Nickname: ptr("kim"),
		City:     ptr("Seoul"),
		Touch:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kim", r.Nickname)
	assert.Equal(t, testEpoch, r.LastActive)

	assert.Equal(t, map[string]any{ladder.FieldNickname: "kim", ladder.FieldCity: "Seoul"}, e.queue.Pending("u1"))
	assert.Zero(t, e.remote.MergeCount())

	e.clock.Advance(DefaultSyncDelay)
	assert.Equal(t, 1, e.remote.MergeCount())
	doc := e.remote.Document("u1")
	assert.Equal(t, "kim", doc[ladder.FieldNickname])
	assert.NotContains(t, doc, ladder.FieldLastActive)

	var snap map[string]any
	found, err := localstore.LoadJSON(ctx, e.kv, localstore.SnapshotKey("u1"), &snap)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kim", snap[ladder.FieldNickname])
}

func TestUserService_NoChangeNoWrite(t *testing.T) {
	e := newEngine(t, nil)
	e.remote.Put(&ladder.Record{ID: "u1", Nickname: "kim"})

	_, err := e.users.UpdateProfile(context.Background(), "u1", &user.UpdateProfileRequest{Nickname: ptr("kim")})
	require.NoError(t, err)
	assert.Nil(t, e.queue.Pending("u1"))
	assert.Zero(t, e.clock.ActiveTimers())
}

func TestUserService_RevertToRemoteValueWritesNothing(t *testing.T) {
	e := newEngine(t, nil)
	e.remote.Put(&ladder.Record{ID: "u1", Nickname: "kim", Height: 175})
	ctx := context.Background()

	_, err := e.users.UpdateProfile(ctx, "u1", &user.UpdateProfileRequest{Nickname: ptr("lee")})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{ladder.FieldNickname: "lee"}, e.queue.Pending("u1"))

	_, err = e.users.UpdateProfile(ctx, "u1", &user.UpdateProfileRequest{Nickname: ptr("kim")})
	require.NoError(t, err)
	assert.Nil(t, e.queue.Pending("u1"))
	assert.Zero(t, e.clock.ActiveTimers())

	e.clock.Advance(5 * time.Minute)
	assert.Zero(t, e.remote.MergeCount())
}

func TestUserService_RejectsInvalidProfile(t *testing.T) {
	tests := []struct {
		name string
		req  *user.UpdateProfileRequest
	}{
		{"negative age", &user.UpdateProfileRequest{Age: ptr(-1)}},
		{"age too high", &user.UpdateProfileRequest{Age: ptr(151)}},
		{"negative height", &user.UpdateProfileRequest{Height: ptr(-170.0)}},
		{"negative weight", &user.UpdateProfileRequest{Weight: ptr(-1.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, nil)
			_, err := e.users.UpdateProfile(context.Background(), "u1", tt.req)
			assert.ErrorIs(t, err, ErrInvalidProfile)
			assert.Nil(t, e.queue.Pending("u1"))
		})
	}
}
