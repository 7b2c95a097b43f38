package ranking

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"fitLadderAPI/internal/ladder"
)

func rankedList(n int) []*ladder.RankedEntry {
	out := make([]*ladder.RankedEntry, n)
	for i := range out {
		out[i] = &ladder.RankedEntry{RecordID: fmt.Sprintf("user-%d", i+1), DisplayRank: i + 1}
	}
	return out
}

func TestPaginateFirstPage(t *testing.T) {
	page := Paginate(rankedList(120), PageRequest{Page: 1, PageSize: 50})
	assert.Len(t, page.Entries, 50)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 120, page.TotalUsers)
	assert.Equal(t, 1, page.DisplayStart)
	assert.Equal(t, 0, page.UserRank)
}

func TestPaginateAutoJumpsOnFirstLoadOnly(t *testing.T) {
	entries := rankedList(120)

	first := Paginate(entries, PageRequest{Page: 1, PageSize: 50, UserID: "user-73", FirstLoad: true})
	assert.True(t, first.AutoJumped)
	assert.Equal(t, 2, first.Page)
	assert.Equal(t, 73, first.UserRank)
	assert.Equal(t, 51, first.DisplayStart)
	assert.Equal(t, "user-51", first.Entries[0].RecordID)

	manual := Paginate(entries, PageRequest{Page: 1, PageSize: 50, UserID: "user-73"})
	assert.False(t, manual.AutoJumped)
	assert.Equal(t, 1, manual.Page)
	assert.Equal(t, 73, manual.UserRank)
}

func TestPaginateNoJumpWhenOnFirstPage(t *testing.T) {
	page := Paginate(rankedList(120), PageRequest{Page: 1, PageSize: 50, UserID: "user-10", FirstLoad: true})
	assert.False(t, page.AutoJumped)
	assert.Equal(t, 1, page.Page)
}

func TestPaginateClampsPastTheEnd(t *testing.T) {
	page := Paginate(rankedList(60), PageRequest{Page: 5, PageSize: 50})
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Entries, 10)
	assert.Equal(t, 51, page.DisplayStart)
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate(nil, PageRequest{Page: 3, PageSize: 50, UserID: "me", FirstLoad: true})
	assert.Empty(t, page.Entries)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 0, page.UserRank)
}

func TestWindow(t *testing.T) {
	entries := rankedList(100)

	w := Window(entries, "user-50", ContextRadius)
	assert.Len(t, w.Entries, 31)
	assert.Equal(t, 35, w.DisplayStart)
	assert.Equal(t, "user-35", w.Entries[0].RecordID)
	assert.Equal(t, "user-65", w.Entries[30].RecordID)

	top := Window(entries, "user-3", ContextRadius)
	assert.Equal(t, 1, top.DisplayStart)
	assert.Len(t, top.Entries, 18)

	unranked := Window(entries, "nobody", ContextRadius)
	assert.Equal(t, 1, unranked.Page)
	assert.Len(t, unranked.Entries, DefaultPageSize)
	assert.Equal(t, 0, unranked.UserRank)
}

func TestPaginationProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("a page is never empty while entries exist", prop.ForAll(
		func(n, page, size int) bool {
			p := Paginate(rankedList(n), PageRequest{Page: page, PageSize: size})
			return len(p.Entries) > 0 && p.Page <= p.TotalPages
		},
		gen.IntRange(1, 400),
		gen.IntRange(1, 20),
		gen.IntRange(1, 60),
	))

	properties.Property("the user's rank matches their position", prop.ForAll(
		func(n, pos int) bool {
			if pos > n {
				pos = n
			}
			entries := rankedList(n)
			p := Paginate(entries, PageRequest{Page: 1, PageSize: 50, UserID: entries[pos-1].RecordID, FirstLoad: true})
			if p.UserRank != pos {
				return false
			}
			return p.Entries[pos-p.DisplayStart].RecordID == entries[pos-1].RecordID
		},
		gen.IntRange(1, 400),
		gen.IntRange(1, 400),
	))

	properties.TestingRun(t)
}
