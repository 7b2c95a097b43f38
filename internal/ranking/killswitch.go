package ranking

import (
	"math"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/utils"
)

// suspectMuscleMass is the value an old scoring build wrote for every
// muscle-mass assessment it could not evaluate.
const suspectMuscleMass = 100.0

// muscleMassKey sorts on the stored muscle-mass sub-score, except that a
// stored 100 is recomputed from the raw inputs. If the inputs are not
// enough to recompute it, the record sorts as 0.
//
// TODO: remove once stored muscle-mass scores have been backfilled.
func muscleMassKey(r *ladder.Record) (float64, bool) {
	stored := r.Scores.MuscleMass
	if math.Abs(stored-suspectMuscleMass) > 1e-9 {
		return stored, true
	}

	smm := statOrZero(r, utils.StatSMM)
	if smm <= 0 {
		smm = r.TestInputs.SMM
	}
	score, ok := utils.MuscleMassScore(smm, r.Weight, r.Age, r.Gender, r.IsVerified)
	if !ok {
		return 0, true
	}
	return score, true
}
