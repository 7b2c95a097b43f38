package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fitLadderAPI/internal/ladder"
)

func TestDeriveStats(t *testing.T) {
	in := ladder.TestInputs{
		Strength: ladder.StrengthInputs{
			BenchPress:    100,
			Squat:         150,
			Deadlift:      210,
			LatPulldown:   80,
			ShoulderPress: 60,
		},
		Power:          ladder.PowerInputs{Sprint: 12.5, VerticalJump: 55, StandingLongJump: 0},
		CooperDistance: 2800,
		Run5K:          ladder.RunInputs{Minutes: 22, Seconds: 30},
		BodyFat:        14.5,
	}

	stats := DeriveStats(in)
	assert.Equal(t, 460.0, stats[StatSBDTotal])
	assert.Equal(t, 600.0, stats[StatBigFiveTotal])
	assert.Equal(t, true, stats[Stat1000lbClub])
	assert.Equal(t, 33.75, stats[StatExplosiveAvg])
	assert.Equal(t, 1350.0, stats[Stat5K])
	assert.Equal(t, 2800.0, stats[StatCooper])
	assert.Equal(t, 0.0, stats[StatBroad])
	assert.Equal(t, 14.5, stats[StatBodyFat])
}

func TestDeriveStatsEmpty(t *testing.T) {
	stats := DeriveStats(ladder.TestInputs{})
	assert.Equal(t, 0.0, stats[StatSBDTotal])
	assert.Equal(t, false, stats[Stat1000lbClub])
	assert.Equal(t, 0.0, stats[StatExplosiveAvg])
	assert.Equal(t, 0.0, stats[Stat5K])
}

func TestAgeGroup(t *testing.T) {
	cases := map[int]string{
		-1:  "unknown",
		0:   "under20",
		20:  "under20",
		21:  "21to30",
		30:  "21to30",
		45:  "41to50",
		70:  "61to70",
		71:  "over70",
		151: "unknown",
	}
	for age, want := range cases {
		assert.Equal(t, want, AgeGroup(age), "age %d", age)
	}
}

func TestWeightAndHeightClass(t *testing.T) {
	assert.Equal(t, "", WeightClass(0))
	assert.Equal(t, "under-50kg", WeightClass(45))
	assert.Equal(t, "70-80kg", WeightClass(72.5))
	assert.Equal(t, "110kg+", WeightClass(120))

	assert.Equal(t, "", HeightClass(0))
	assert.Equal(t, "under-150cm", HeightClass(140))
	assert.Equal(t, "170-179cm", HeightClass(175))
	assert.Equal(t, "200cm+", HeightClass(201))
}

func TestDeriveFilterTags(t *testing.T) {
	tags := DeriveFilterTags(&ladder.Record{
		Age:         27,
		Weight:      82,
		Height:      181,
		City:        " Taipei ",
		District:    "Da'an",
		JobCategory: "engineer",
	})
	assert.Equal(t, map[string]string{
		TagAgeGroup:       "21to30",
		TagWeightClass:    "80-90kg",
		TagHeightClass:    "180-189cm",
		TagRegionCity:     "Taipei",
		TagRegionDistrict: "Da'an",
		TagJob:            "engineer",
	}, tags)

	assert.Equal(t, "unknown", DeriveFilterTags(&ladder.Record{})[TagAgeGroup])
}
