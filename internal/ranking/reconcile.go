package ranking

import (
	"reflect"

	"fitLadderAPI/internal/ladder"
)

// Reconcile swaps the current user's fetched entry for a copy carrying the
// fresher local scores, stats and tags. Other records are left alone and
// nothing is inserted when the user is absent from the fetch.
func Reconcile(records []*ladder.Record, local *ladder.Record) []*ladder.Record {
	if local == nil || local.ID == "" {
		return records
	}
	for i, r := range records {
		if r == nil || r.ID != local.ID {
			continue
		}
		if !stale(r, local) {
			return records
		}
		merged := r.Clone()
		fresh := local.Clone()
		merged.Scores = fresh.Scores
		merged.Stats = fresh.Stats
		merged.FilterTags = fresh.FilterTags
		merged.RawScore = fresh.RawScore
		merged.LadderScore = fresh.LadderScore
		merged.IsVerified = fresh.IsVerified

		out := make([]*ladder.Record, len(records))
		copy(out, records)
		out[i] = merged
		return out
	}
	return records
}

func stale(remote, local *ladder.Record) bool {
	return remote.Scores != local.Scores ||
		remote.RawScore != local.RawScore ||
		remote.LadderScore != local.LadderScore ||
		remote.IsVerified != local.IsVerified ||
		!reflect.DeepEqual(remote.Stats, local.Stats) ||
		!reflect.DeepEqual(remote.FilterTags, local.FilterTags)
}
