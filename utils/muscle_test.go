package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMale(t *testing.T) {
	assert.True(t, IsMale("male"))
	assert.True(t, IsMale("Male"))
	assert.True(t, IsMale("男性"))
	assert.False(t, IsMale("female"))
	assert.False(t, IsMale(""))
}

func TestMuscleMassScore(t *testing.T) {
	score, ok := MuscleMassScore(32, 80, 25, "male", false)
	assert.True(t, ok)
	assert.InDelta(t, 61.25, score, 1e-9)

	_, ok = MuscleMassScore(0, 80, 25, "male", false)
	assert.False(t, ok, "missing smm")

	_, ok = MuscleMassScore(32, 0, 25, "male", false)
	assert.False(t, ok, "missing weight")

	_, ok = MuscleMassScore(32, 80, 95, "male", false)
	assert.False(t, ok, "no standard for the age")
}

func TestMuscleMassScoreHonorsCap(t *testing.T) {
	unverified, ok := MuscleMassScore(60, 70, 25, "male", false)
	assert.True(t, ok)
	assert.Equal(t, UnverifiedCap, unverified)

	verified, ok := MuscleMassScore(60, 70, 25, "male", true)
	assert.True(t, ok)
	assert.Greater(t, verified, UnverifiedCap)
}

func TestScoreFromStandard(t *testing.T) {
	s := linear(20, 2)
	assert.Equal(t, 0.0, scoreFromStandard(19, s))
	assert.Equal(t, 0.0, scoreFromStandard(20, s))
	assert.Equal(t, 55.0, scoreFromStandard(31, s))
	assert.Equal(t, 100.0, scoreFromStandard(40, s))
	assert.Equal(t, 120.0, scoreFromStandard(44, s))
	assert.Equal(t, 125.0, scoreFromStandard(46, s))
}
