package ranking

import (
	"time"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/utils"
)

// Filter is one independent predicate in the filter pipeline.
type Filter struct {
	Name string
	Keep func(r *ladder.Record) bool
}

// FilterStep records how many records survived one filter.
type FilterStep struct {
	Name   string `json:"name"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// ApplyFilters runs the filters in order. The input slice is not modified.
func ApplyFilters(records []*ladder.Record, filters []Filter) ([]*ladder.Record, []FilterStep) {
	out := records
	steps := make([]FilterStep, 0, len(filters))
	for _, f := range filters {
		before := len(out)
		kept := make([]*ladder.Record, 0, before)
		for _, r := range out {
			if f.Keep(r) {
				kept = append(kept, r)
			}
		}
		out = kept
		steps = append(steps, FilterStep{Name: f.Name, Before: before, After: len(out)})
	}
	return out, steps
}

// AgeGroupFilter matches the decade bucket. Records without an age fall
// back to their stored tag.
func AgeGroupFilter(group string) Filter {
	return Filter{
		Name: "ageGroup:" + group,
		Keep: func(r *ladder.Record) bool {
			if r.Age > 0 {
				return utils.AgeGroup(r.Age) == group
			}
			return r.Tag(utils.TagAgeGroup) == group
		},
	}
}

// WeeklyActiveFilter keeps records active within the seven days before now.
func WeeklyActiveFilter(now time.Time) Filter {
	cutoff := now.AddDate(0, 0, -7)
	return Filter{
		Name: "weekly",
		Keep: func(r *ladder.Record) bool {
			return !r.LastActive.IsZero() && !r.LastActive.Before(cutoff)
		},
	}
}

func VerifiedFilter() Filter {
	return Filter{
		Name: "verified",
		Keep: func(r *ladder.Record) bool { return r.IsVerified },
	}
}

// RegionFilter keeps records in the same city and district. Without a
// location to compare against nothing matches.
func RegionFilter(city, district string) Filter {
	return Filter{
		Name: "region",
		Keep: func(r *ladder.Record) bool {
			if city == "" || district == "" {
				return false
			}
			return r.City == city && r.District == district
		},
	}
}

func GenderFilter(gender string) Filter {
	return Filter{
		Name: "gender:" + gender,
		Keep: func(r *ladder.Record) bool { return r.Gender == gender },
	}
}

// AgeRangeFilter filters on numeric age brackets such as "20-29" or "70+".
// Records without an age never match. Unknown labels keep everything.
func AgeRangeFilter(label string) Filter {
	bounds := map[string][2]int{
		"under-20": {0, 19},
		"20-29":    {20, 29},
		"30-39":    {30, 39},
		"40-49":    {40, 49},
		"50-59":    {50, 59},
		"60-69":    {60, 69},
		"70+":      {70, 1 << 30},
	}
	b, known := bounds[label]
	return Filter{
		Name: "age:" + label,
		Keep: func(r *ladder.Record) bool {
			if r.Age <= 0 {
				return false
			}
			if !known {
				return true
			}
			return r.Age >= b[0] && r.Age <= b[1]
		},
	}
}

// HeightRangeFilter filters on height brackets. The inner bounds are
// inclusive on both sides.
func HeightRangeFilter(label string) Filter {
	return Filter{
		Name: "height:" + label,
		Keep: func(r *ladder.Record) bool {
			h := r.Height
			if !(h > 0) {
				return false
			}
			switch label {
			case "<160":
				return h < 160
			case "160-170":
				return h >= 160 && h <= 170
			case "170-180":
				return h >= 170 && h <= 180
			case "180-190":
				return h >= 180 && h <= 190
			case ">190":
				return h > 190
			}
			return true
		},
	}
}

func WeightClassFilter(class string) Filter {
	return Filter{
		Name: "weight:" + class,
		Keep: func(r *ladder.Record) bool {
			tag := r.Tag(utils.TagWeightClass)
			if tag == "" {
				tag = utils.WeightClass(r.Weight)
			}
			return tag == class
		},
	}
}

func JobFilter(job string) Filter {
	return Filter{
		Name: "job:" + job,
		Keep: func(r *ladder.Record) bool {
			return r.Tag(utils.TagJob) == job || r.JobCategory == job
		},
	}
}
