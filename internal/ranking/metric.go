package ranking

import (
	"fmt"
	"math"
	"sort"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/utils"
)

type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Metric names a sortable ladder dimension.
type Metric string

const (
	MetricLadderScore  Metric = "ladder_score"
	MetricSBDTotal     Metric = "sbd_total"
	MetricBigFiveTotal Metric = "big_five_total"
	MetricSquat        Metric = "squat"
	MetricBench        Metric = "bench"
	MetricDeadlift     Metric = "deadlift"
	MetricOHP          Metric = "ohp"
	MetricLatPull      Metric = "lat_pull"
	MetricCooper       Metric = "cooper"
	MetricRun5K        Metric = "run_5k"
	MetricVerticalJump Metric = "vertical_jump"
	MetricBroadJump    Metric = "broad_jump"
	MetricSprint100m   Metric = "sprint_100m"
	MetricFFMI         Metric = "ffmi"
	MetricSMM          Metric = "smm"
	MetricSMMPercent   Metric = "smm_percent"
	MetricArmSize      Metric = "arm_size"
	MetricBodyFat      Metric = "body_fat"
	MetricLoginDays    Metric = "login_days"

	MetricScoreStrength       Metric = "score_strength"
	MetricScoreExplosivePower Metric = "score_explosivePower"
	MetricScoreCardio         Metric = "score_cardio"
	MetricScoreMuscleMass     Metric = "score_muscleMass"
	MetricScoreBodyFat        Metric = "score_bodyFat"
)

type extractor func(r *ladder.Record) (float64, bool)

type metricDef struct {
	direction Direction
	extract   extractor
}

func stat(key string) extractor {
	return func(r *ladder.Record) (float64, bool) {
		return ladder.Number(r.Stat(key))
	}
}

// statOrZero mirrors how composite totals treat a missing part.
func statOrZero(r *ladder.Record, key string) float64 {
	v, ok := ladder.Number(r.Stat(key))
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func bigFiveTotal(r *ladder.Record) (float64, bool) {
	return statOrZero(r, utils.StatSBDTotal) + statOrZero(r, utils.StatOHP) + statOrZero(r, utils.StatLatPull), true
}

func smmPercent(r *ladder.Record) (float64, bool) {
	smm := statOrZero(r, utils.StatSMM)
	if smm <= 0 {
		smm = r.TestInputs.SMM
	}
	if smm <= 0 || r.Weight <= 0 {
		return 0, false
	}
	return smm / r.Weight * 100, true
}

func constant(get func(r *ladder.Record) float64) extractor {
	return func(r *ladder.Record) (float64, bool) { return get(r), true }
}

var catalog = map[Metric]metricDef{
	MetricLadderScore:  {Descending, constant(func(r *ladder.Record) float64 { return r.LadderScore })},
	MetricSBDTotal:     {Descending, stat(utils.StatSBDTotal)},
	MetricBigFiveTotal: {Descending, bigFiveTotal},
	MetricSquat:        {Descending, stat(utils.StatSquat)},
	MetricBench:        {Descending, stat(utils.StatBench)},
	MetricDeadlift:     {Descending, stat(utils.StatDeadlift)},
	MetricOHP:          {Descending, stat(utils.StatOHP)},
	MetricLatPull:      {Descending, stat(utils.StatLatPull)},
	MetricCooper:       {Descending, stat(utils.StatCooper)},
	MetricRun5K:        {Ascending, stat(utils.Stat5K)},
	MetricVerticalJump: {Descending, stat(utils.StatVertical)},
	MetricBroadJump:    {Descending, stat(utils.StatBroad)},
	MetricSprint100m:   {Ascending, stat(utils.Stat100m)},
	MetricFFMI:         {Descending, stat(utils.StatFFMI)},
	MetricSMM:          {Descending, stat(utils.StatSMM)},
	MetricSMMPercent:   {Descending, smmPercent},
	MetricArmSize:      {Descending, stat(utils.StatArmSize)},
	MetricBodyFat:      {Ascending, stat(utils.StatBodyFat)},
	MetricLoginDays:    {Descending, stat(utils.StatLoginDays)},

	MetricScoreStrength:       {Descending, constant(func(r *ladder.Record) float64 { return r.Scores.Strength })},
	MetricScoreExplosivePower: {Descending, constant(func(r *ladder.Record) float64 { return r.Scores.ExplosivePower })},
	MetricScoreCardio:         {Descending, constant(func(r *ladder.Record) float64 { return r.Scores.Cardio })},
	MetricScoreMuscleMass:     {Descending, muscleMassKey},
	MetricScoreBodyFat:        {Descending, constant(func(r *ladder.Record) float64 { return r.Scores.BodyFat })},
}

// ParseMetric validates a metric name.
func ParseMetric(name string) (Metric, error) {
	m := Metric(name)
	if _, ok := catalog[m]; !ok {
		return "", fmt.Errorf("unknown metric %q", name)
	}
	return m, nil
}

func (m Metric) Direction() Direction {
	return catalog[m].direction
}

// Key returns the sort key for a record. Invalid values on ascending
// metrics become +Inf so they always sort last. Invalid values on
// descending metrics count as 0.
func (m Metric) Key(r *ladder.Record) float64 {
	def, ok := catalog[m]
	if !ok {
		def = catalog[MetricLadderScore]
	}
	v, valid := def.extract(r)
	valid = valid && !math.IsNaN(v) && !math.IsInf(v, 0)

	if def.direction == Ascending {
		if !valid || v <= 0 {
			return math.Inf(1)
		}
		return v
	}
	if !valid {
		return 0
	}
	return v
}

// Metrics lists every metric in the catalog.
func Metrics() []Metric {
	out := make([]Metric, 0, len(catalog))
	for m := range catalog {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Division names used by the ladder screen.
const (
	DivisionOverall       = "ladderScore"
	DivisionStrength      = "stats_sbdTotal"
	DivisionCardio        = "stats_cooper"
	DivisionExplosive     = "stats_vertical"
	DivisionMuscle        = "stats_ffmi"
	DivisionBodyFat       = "stats_bodyFat"
	DivisionLocalDistrict = "local_district"
	DivisionLoginDays     = "stats_totalLoginDays"
)

// ResolveMetric maps a division and project selection to a metric.
// Unknown divisions fall back to the overall score. A division may also be
// a metric name.
func ResolveMetric(division, project string) Metric {
	switch division {
	case "", DivisionOverall, DivisionLocalDistrict:
		return MetricLadderScore
	case DivisionStrength:
		switch project {
		case "total_five":
			return MetricBigFiveTotal
		case "squat":
			return MetricSquat
		case "bench":
			return MetricBench
		case "deadlift":
			return MetricDeadlift
		case "ohp":
			return MetricOHP
		case "latPull":
			return MetricLatPull
		}
		return MetricSBDTotal
	case DivisionCardio:
		if project == "5k" {
			return MetricRun5K
		}
		return MetricCooper
	case DivisionExplosive:
		switch project {
		case "broad":
			return MetricBroadJump
		case "sprint":
			return MetricSprint100m
		}
		return MetricVerticalJump
	case DivisionMuscle:
		switch project {
		case "smm":
			return MetricSMM
		case "smmPercent":
			return MetricSMMPercent
		case "armSize":
			return MetricArmSize
		}
		return MetricFFMI
	case DivisionBodyFat:
		return MetricBodyFat
	case DivisionLoginDays:
		return MetricLoginDays
	}
	if m, err := ParseMetric(division); err == nil {
		return m
	}
	return MetricLadderScore
}
