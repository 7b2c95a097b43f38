package ranking

import (
	"fitLadderAPI/internal/ladder"
)

const (
	DefaultPageSize = 50
	ContextRadius   = 15
)

type PageRequest struct {
	Page      int
	PageSize  int
	UserID    string
	FirstLoad bool
}

// UserRank is the 1-based position of userID in the ranked list, or 0 when
// the user is not ranked.
func UserRank(entries []*ladder.RankedEntry, userID string) int {
	if userID == "" {
		return 0
	}
	for i, e := range entries {
		if e.RecordID == userID {
			return i + 1
		}
	}
	return 0
}

// PageOf returns the page that holds rank.
func PageOf(rank, pageSize int) int {
	if rank <= 0 {
		return 1
	}
	return (rank + pageSize - 1) / pageSize
}

// Paginate cuts one page out of the ranked list. On first load a ranked user
// is taken to their own page. A page past the end is clamped to the last
// page.
func Paginate(entries []*ladder.RankedEntry, req PageRequest) *ladder.Page {
	size := req.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(entries)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}

	rank := UserRank(entries, req.UserID)
	page := req.Page
	if page < 1 {
		page = 1
	}

	autoJumped := false
	if req.FirstLoad && rank > 0 {
		if userPage := PageOf(rank, size); userPage > 1 {
			page = userPage
			autoJumped = true
		}
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := min(start+size, total)

	return &ladder.Page{
		Entries:      entries[start:end],
		UserRank:     rank,
		Page:         page,
		TotalPages:   totalPages,
		TotalUsers:   total,
		DisplayStart: start + 1,
		AutoJumped:   autoJumped,
	}
}

// Window returns the entries within radius ranks of the user. An unranked
// user gets the first page instead.
func Window(entries []*ladder.RankedEntry, userID string, radius int) *ladder.Page {
	rank := UserRank(entries, userID)
	if rank == 0 {
		return Paginate(entries, PageRequest{Page: 1, PageSize: DefaultPageSize})
	}
	start := max(rank-1-radius, 0)
	end := min(rank+radius, len(entries))
	return &ladder.Page{
		Entries:      entries[start:end],
		UserRank:     rank,
		Page:         PageOf(rank, DefaultPageSize),
		TotalPages:   max((len(entries)+DefaultPageSize-1)/DefaultPageSize, 1),
		TotalUsers:   len(entries),
		DisplayStart: start + 1,
	}
}
