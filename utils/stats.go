package utils

import (
	"fmt"
	"math"
	"strings"

	"fitLadderAPI/internal/ladder"
)

// ThousandPoundClub is 1000 lb expressed in kg.
const ThousandPoundClub = 453.6

// Stat keys written by DeriveStats. Stored with the "stats_" prefix.
const (
	StatSBDTotal     = "sbdTotal"
	StatBigFiveTotal = "bigFiveTotal"
	StatExplosiveAvg = "explosiveAvg"
	Stat1000lbClub   = "is1000lbClub"
	StatSquat        = "squat"
	StatBench        = "bench"
	StatDeadlift     = "deadlift"
	StatOHP          = "ohp"
	StatLatPull      = "latPull"
	StatCooper       = "cooper"
	Stat5K           = "5k"
	Stat100m         = "100m"
	StatVertical     = "vertical"
	StatBroad        = "broad"
	StatBodyFat      = "bodyFat"
	StatSMM          = "smm"
	StatFFMI         = "ffmi"
	StatArmSize      = "armSize"
	StatLoginDays    = "totalLoginDays"
)

// Filter tag keys. Stored with the "filter_" prefix.
const (
	TagAgeGroup       = "ageGroup"
	TagWeightClass    = "weightClass"
	TagHeightClass    = "heightClass"
	TagRegionCity     = "region_city"
	TagRegionDistrict = "region_district"
	TagJob            = "job"
)

func positive(v float64) float64 {
	if v > 0 && !math.IsInf(v, 0) {
		return v
	}
	return 0
}

// DeriveStats computes the denormalized stats the ladder sorts on. Missing
// inputs count as zero.
func DeriveStats(in ladder.TestInputs) map[string]any {
	bench := positive(in.Strength.BenchPress)
	squat := positive(in.Strength.Squat)
	deadlift := positive(in.Strength.Deadlift)
	latPull := positive(in.Strength.LatPulldown)
	ohp := positive(in.Strength.ShoulderPress)

	sbd := bench + squat + deadlift
	bigFive := sbd + latPull + ohp

	var explosive []float64
	for _, v := range []float64{in.Power.Sprint, in.Power.VerticalJump, in.Power.StandingLongJump} {
		if v > 0 {
			explosive = append(explosive, v)
		}
	}
	explosiveAvg := 0.0
	if len(explosive) > 0 {
		sum := 0.0
		for _, v := range explosive {
			sum += v
		}
		explosiveAvg = sum / float64(len(explosive))
	}

	run5k := positive(in.Run5K.Minutes)*60 + positive(in.Run5K.Seconds)

	return map[string]any{
		StatSBDTotal:     Round(sbd, 2),
		StatBigFiveTotal: Round(bigFive, 2),
		StatExplosiveAvg: Round(explosiveAvg, 2),
		Stat1000lbClub:   sbd >= ThousandPoundClub,
		StatSquat:        squat,
		StatBench:        bench,
		StatDeadlift:     deadlift,
		StatOHP:          ohp,
		StatLatPull:      latPull,
		StatCooper:       positive(in.CooperDistance),
		Stat5K:           run5k,
		Stat100m:         positive(in.Power.Sprint),
		StatVertical:     positive(in.Power.VerticalJump),
		StatBroad:        positive(in.Power.StandingLongJump),
		StatBodyFat:      positive(in.BodyFat),
		StatSMM:          positive(in.SMM),
		StatFFMI:         positive(in.FFMI),
		StatArmSize:      positive(in.ArmSize),
	}
}

// AgeGroup buckets an age by decade. Ages outside 0..150 are "unknown".
func AgeGroup(age int) string {
	switch {
	case age < 0 || age > 150:
		return "unknown"
	case age <= 20:
		return "under20"
	case age <= 30:
		return "21to30"
	case age <= 40:
		return "31to40"
	case age <= 50:
		return "41to50"
	case age <= 60:
		return "51to60"
	case age <= 70:
		return "61to70"
	default:
		return "over70"
	}
}

func WeightClass(weight float64) string {
	switch {
	case !(weight > 0):
		return ""
	case weight < 50:
		return "under-50kg"
	case weight >= 110:
		return "110kg+"
	}
	lower := int(weight/10) * 10
	return fmt.Sprintf("%d-%dkg", lower, lower+10)
}

func HeightClass(height float64) string {
	switch {
	case !(height > 0):
		return ""
	case height < 150:
		return "under-150cm"
	case height >= 200:
		return "200cm+"
	}
	lower := int(height/10) * 10
	return fmt.Sprintf("%d-%dcm", lower, lower+9)
}

// DeriveFilterTags computes the denormalized filter tags for a profile.
func DeriveFilterTags(r *ladder.Record) map[string]string {
	ageGroup := "unknown"
	if r.Age > 0 {
		ageGroup = AgeGroup(r.Age)
	}
	return map[string]string{
		TagAgeGroup:       ageGroup,
		TagWeightClass:    WeightClass(r.Weight),
		TagHeightClass:    HeightClass(r.Height),
		TagRegionCity:     strings.TrimSpace(r.City),
		TagRegionDistrict: strings.TrimSpace(r.District),
		TagJob:            strings.TrimSpace(r.JobCategory),
	}
}
