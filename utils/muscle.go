package utils

import (
	"strings"
)

// standard maps the score marks 0, 10, ... 100 to the measurement needed
// to reach them.
type standard [11]float64

func linear(base, step float64) standard {
	var s standard
	for i := range s {
		s[i] = base + step*float64(i)
	}
	return s
}

var ageRanges = []struct {
	name     string
	min, max int
}{
	{"10-12", 10, 12},
	{"13-17", 13, 17},
	{"18-30", 18, 30},
	{"31-40", 31, 40},
	{"41-50", 41, 50},
	{"51-60", 51, 60},
	{"61-70", 61, 70},
	{"71-80", 71, 80},
}

var (
	maleSMM = map[string]standard{
		"10-12": linear(6, 2), "13-17": linear(16, 2), "18-30": linear(22, 2), "31-40": linear(20, 2),
		"41-50": linear(18, 2), "51-60": linear(16, 2), "61-70": linear(14, 2), "71-80": linear(12, 2),
	}
	maleSMPercent = map[string]standard{
		"10-12": linear(24, 2), "13-17": linear(26, 2), "18-30": linear(28, 2), "31-40": linear(26, 2),
		"41-50": linear(24, 2), "51-60": linear(22, 2), "61-70": linear(20, 2), "71-80": linear(18, 2),
	}
	femaleSMM = map[string]standard{
		"10-12": linear(8, 1), "13-17": linear(14, 1), "18-30": linear(18, 1), "31-40": linear(17, 1),
		"41-50": linear(16, 1), "51-60": linear(15, 1), "61-70": linear(14, 1), "71-80": linear(12, 1),
	}
	femaleSMPercent = map[string]standard{
		"10-12": linear(18, 2), "13-17": linear(20, 2), "18-30": linear(22, 2), "31-40": linear(20, 2),
		"41-50": linear(18, 2), "51-60": linear(16, 2), "61-70": linear(14, 2), "71-80": linear(12, 2),
	}
)

func muscleAgeRange(age int) string {
	for _, r := range ageRanges {
		if age >= r.min && age <= r.max {
			return r.name
		}
	}
	return ""
}

// IsMale accepts the English and Chinese spellings stored by older clients.
func IsMale(gender string) bool {
	return gender == "男性" || strings.EqualFold(gender, "male")
}

// scoreFromStandard interpolates between the marks. Past the top mark the
// slope of the last band is extended, at half rate beyond 120.
func scoreFromStandard(value float64, s standard) float64 {
	if value >= s[10] {
		slope := 0.0
		if diff := s[10] - s[9]; diff > 0 {
			slope = 10 / diff
		}
		extended := 100 + (value-s[10])*slope
		if extended > 120 {
			extended = 120 + (extended-120)*0.5
		}
		return Round(extended, 2)
	}
	if value <= s[0] {
		return 0
	}
	lower, upper := 0, 10
	for i := 1; i <= 10; i++ {
		if value < s[i] {
			lower, upper = i-1, i
			break
		}
	}
	if s[upper] == s[lower] {
		return float64(upper * 10)
	}
	score := float64(lower*10) + (value-s[lower])/(s[upper]-s[lower])*10
	return Round(score, 2)
}

func honorLock(score float64, verified bool) float64 {
	rounded := Round(score, 2)
	if rounded > UnverifiedCap && !verified {
		return UnverifiedCap
	}
	return rounded
}

// MuscleMassScore recomputes the muscle-mass sub-score from skeletal muscle
// mass, body weight, age and gender. ok is false when an input is missing
// or no standard covers the age.
func MuscleMassScore(smm, weight float64, age int, gender string, verified bool) (float64, bool) {
	if smm <= 0 || weight <= 0 || age <= 0 || gender == "" {
		return 0, false
	}
	band := muscleAgeRange(age)
	if band == "" {
		return 0, false
	}

	smmTable, percentTable := femaleSMM, femaleSMPercent
	if IsMale(gender) {
		smmTable, percentTable = maleSMM, maleSMPercent
	}

	smmScore := Round(scoreFromStandard(smm, smmTable[band])*1.25, 2)
	percentScore := scoreFromStandard(smm/weight*100, percentTable[band])

	final := (honorLock(smmScore, verified) + honorLock(percentScore, verified)) / 2
	return honorLock(final, verified), true
}
