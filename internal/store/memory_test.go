package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitLadderAPI/internal/ladder"
)

func TestMemoryStoreQueryTop(t *testing.T) {
	s := NewMemoryStore()
	s.Put(&ladder.Record{ID: "a", LadderScore: 50})
	s.Put(&ladder.Record{ID: "b", LadderScore: 90})
	s.PutDocument("c", map[string]any{ladder.FieldLadderScore: "bad"})
	s.Put(&ladder.Record{ID: "d", LadderScore: 70})

	records, err := s.QueryTop(context.Background(), ladder.FieldLadderScore, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "d", records[1].ID)
	assert.Equal(t, "a", records[2].ID)
}

func TestMemoryStoreMergeIsShallow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Merge(ctx, "u", map[string]any{ladder.FieldNickname: "ann", ladder.FieldAge: 30}))
	require.NoError(t, s.Merge(ctx, "u", map[string]any{ladder.FieldAge: 31, ladder.FieldIsVerified: nil}))

	doc := s.Document("u")
	assert.Equal(t, "ann", doc[ladder.FieldNickname])
	assert.Equal(t, 31, doc[ladder.FieldAge])
	assert.Contains(t, doc, ladder.FieldIsVerified)
	assert.Equal(t, 2, s.MergeCount())

	r, err := s.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 31, r.Age)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
