package ranking

import (
	"math"
	"sort"

	"fitLadderAPI/internal/ladder"
)

type Query struct {
	Metric  Metric
	Filters []Filter
}

type Result struct {
	Metric  Metric               `json:"metric"`
	Entries []*ladder.RankedEntry `json:"-"`
	Steps   []FilterStep          `json:"filters"`
}

// Eligible keeps the records that have a composite score.
func Eligible(records []*ladder.Record) []*ladder.Record {
	out := make([]*ladder.Record, 0, len(records))
	for _, r := range records {
		if r != nil && r.LadderScore > 0 {
			out = append(out, r)
		}
	}
	return out
}

// Rank gates, filters and sorts the records. Ties break on ladder score,
// then on input order. The input is not modified.
func Rank(records []*ladder.Record, q Query) *Result {
	metric := q.Metric
	if _, ok := catalog[metric]; !ok {
		metric = MetricLadderScore
	}

	filtered, steps := ApplyFilters(Eligible(records), q.Filters)

	type keyed struct {
		record *ladder.Record
		key    float64
	}
	rows := make([]keyed, len(filtered))
	for i, r := range filtered {
		rows[i] = keyed{record: r, key: metric.Key(r)}
	}

	asc := metric.Direction() == Ascending
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.key != b.key {
			if asc {
				return a.key < b.key
			}
			return a.key > b.key
		}
		return a.record.LadderScore > b.record.LadderScore
	})

	entries := make([]*ladder.RankedEntry, len(rows))
	for i, row := range rows {
		e := &ladder.RankedEntry{
			RecordID:    row.record.ID,
			SortKey:     row.key,
			DisplayRank: i + 1,
			Record:      row.record,
		}
		if !math.IsInf(row.key, 0) {
			v := row.key
			e.Value = &v
		}
		entries[i] = e
	}
	return &Result{Metric: metric, Entries: entries, Steps: steps}
}
