package ladder

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Document field names. These are the contract with the stored schema.
const (
	FieldNickname            = "nickname"
	FieldAvatarURL           = "avatarUrl"
	FieldAge                 = "age"
	FieldGender              = "gender"
	FieldHeight              = "height"
	FieldWeight              = "weight"
	FieldCountry             = "country"
	FieldCity                = "city"
	FieldDistrict            = "district"
	FieldJobCategory         = "job_category"
	FieldGymName             = "gym_name"
	FieldAnonymous           = "isAnonymousInLadder"
	FieldLastActive          = "lastActive"
	FieldIsVerified          = "isVerified"
	FieldVerifiedLadderScore = "verifiedLadderScore"
	FieldVerificationStatus  = "verificationStatus"
	FieldVerifiedAt          = "verifiedAt"
	FieldVerificationExpired = "verificationExpiredAt"
	FieldVerificationRequest = "verificationRequestId"
	FieldRawScore            = "rawScore"
	FieldLadderScore         = "ladderScore"
	FieldScores              = "scores"
	FieldTestInputs          = "testInputs"
	FieldLastSubmission      = "lastLadderSubmission"
	FieldUpdatedAt           = "updatedAt"

	StatsPrefix  = "stats_"
	FilterPrefix = "filter_"
)

// Number coerces a stored value to a float. Numeric strings are accepted,
// everything else that is not a number reports false.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// finite returns the number or 0 when it is absent or not finite.
func finite(v any) float64 {
	f, ok := Number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func timestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	if ms, ok := Number(v); ok && ms > 0 {
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}

func submap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// FromDocument decodes a stored document. It never fails: anything of the
// wrong shape decodes to its zero value.
func FromDocument(id string, doc map[string]any) *Record {
	r := &Record{
		ID:          id,
		Nickname:    str(doc[FieldNickname]),
		AvatarURL:   str(doc[FieldAvatarURL]),
		Age:         int(finite(doc[FieldAge])),
		Gender:      str(doc[FieldGender]),
		Height:      finite(doc[FieldHeight]),
		Weight:      finite(doc[FieldWeight]),
		Country:     str(doc[FieldCountry]),
		City:        str(doc[FieldCity]),
		District:    str(doc[FieldDistrict]),
		JobCategory: str(doc[FieldJobCategory]),
		GymName:     str(doc[FieldGymName]),
		Anonymous:   boolean(doc[FieldAnonymous]),
		IsVerified:  boolean(doc[FieldIsVerified]),
		RawScore:    finite(doc[FieldRawScore]),
		LadderScore: finite(doc[FieldLadderScore]),
		Stats:       map[string]any{},
		FilterTags:  map[string]string{},
	}
	r.LastActive, _ = timestamp(doc[FieldLastActive])
	r.LastSubmissionAt, _ = timestamp(doc[FieldLastSubmission])
	r.UpdatedAt, _ = timestamp(doc[FieldUpdatedAt])

	if f, ok := Number(doc[FieldVerifiedLadderScore]); ok {
		r.Verification.VerifiedLadderScore = &f
	}
	r.Verification.Status = str(doc[FieldVerificationStatus])
	r.Verification.RequestID = str(doc[FieldVerificationRequest])
	if t, ok := timestamp(doc[FieldVerifiedAt]); ok {
		r.Verification.VerifiedAt = &t
	}
	if t, ok := timestamp(doc[FieldVerificationExpired]); ok {
		r.Verification.ExpiredAt = &t
	}

	scores := submap(doc[FieldScores])
	r.Scores = AssessmentScores{
		Strength:       finite(scores["strength"]),
		ExplosivePower: finite(scores["explosivePower"]),
		Cardio:         finite(scores["cardio"]),
		MuscleMass:     finite(scores["muscleMass"]),
		BodyFat:        finite(scores["bodyFat"]),
	}
	r.TestInputs = decodeTestInputs(submap(doc[FieldTestInputs]))

	for k, v := range doc {
		switch {
		case strings.HasPrefix(k, StatsPrefix):
			r.Stats[strings.TrimPrefix(k, StatsPrefix)] = v
		case strings.HasPrefix(k, FilterPrefix):
			r.FilterTags[strings.TrimPrefix(k, FilterPrefix)] = str(v)
		}
	}
	return r
}

func decodeTestInputs(m map[string]any) TestInputs {
	strength := submap(m["strength"])
	lift := func(name string) float64 { return finite(submap(strength[name])["max"]) }
	power := submap(m["power"])
	run := submap(m["run_5km"])
	return TestInputs{
		Strength: StrengthInputs{
			BenchPress:    lift("benchPress"),
			Squat:         lift("squat"),
			Deadlift:      lift("deadlift"),
			LatPulldown:   lift("latPulldown"),
			ShoulderPress: lift("shoulderPress"),
		},
		Power: PowerInputs{
			Sprint:           finite(power["sprint"]),
			VerticalJump:     finite(power["verticalJump"]),
			StandingLongJump: finite(power["standingLongJump"]),
		},
		CooperDistance: finite(submap(m["cardio"])["distance"]),
		Run5K: RunInputs{
			Minutes: finite(run["minutes"]),
			Seconds: finite(run["seconds"]),
		},
		BodyFat: finite(submap(m["ffmi"])["bodyFat"]),
		FFMI:    finite(submap(m["ffmi"])["ffmi"]),
		ArmSize: finite(submap(m["armSize"])["arm"]),
		SMM:     finite(submap(m["muscle"])["smm"]),
	}
}

// EncodeTestInputs produces the nested stored shape of the test inputs.
func EncodeTestInputs(t TestInputs) map[string]any {
	best := func(v float64) map[string]any { return map[string]any{"max": v} }
	return map[string]any{
		"strength": map[string]any{
			"benchPress":    best(t.Strength.BenchPress),
			"squat":         best(t.Strength.Squat),
			"deadlift":      best(t.Strength.Deadlift),
			"latPulldown":   best(t.Strength.LatPulldown),
			"shoulderPress": best(t.Strength.ShoulderPress),
		},
		"power": map[string]any{
			"sprint":           t.Power.Sprint,
			"verticalJump":     t.Power.VerticalJump,
			"standingLongJump": t.Power.StandingLongJump,
		},
		"cardio":  map[string]any{"distance": t.CooperDistance},
		"run_5km": map[string]any{"minutes": t.Run5K.Minutes, "seconds": t.Run5K.Seconds},
		"ffmi":    map[string]any{"bodyFat": t.BodyFat, "ffmi": t.FFMI},
		"armSize": map[string]any{"arm": t.ArmSize},
		"muscle":  map[string]any{"smm": t.SMM},
	}
}

func EncodeScores(s AssessmentScores) map[string]any {
	return map[string]any{
		"strength":       s.Strength,
		"explosivePower": s.ExplosivePower,
		"cardio":         s.Cardio,
		"muscleMass":     s.MuscleMass,
		"bodyFat":        s.BodyFat,
	}
}

func optionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// ToDocument encodes the full record. Non-finite stats are written as null.
func (r *Record) ToDocument() map[string]any {
	doc := map[string]any{
		FieldNickname:            r.Nickname,
		FieldAvatarURL:           r.AvatarURL,
		FieldAge:                 r.Age,
		FieldGender:              r.Gender,
		FieldHeight:              r.Height,
		FieldWeight:              r.Weight,
		FieldCountry:             r.Country,
		FieldCity:                r.City,
		FieldDistrict:            r.District,
		FieldJobCategory:         r.JobCategory,
		FieldGymName:             r.GymName,
		FieldAnonymous:           r.Anonymous,
		FieldLastActive:          optionalTime(r.LastActive),
		FieldIsVerified:          r.IsVerified,
		FieldVerificationStatus:  nilIfEmpty(r.Verification.Status),
		FieldVerificationRequest: nilIfEmpty(r.Verification.RequestID),
		FieldVerifiedLadderScore: nil,
		FieldVerifiedAt:          nil,
		FieldVerificationExpired: nil,
		FieldRawScore:            r.RawScore,
		FieldLadderScore:         r.LadderScore,
		FieldScores:              EncodeScores(r.Scores),
		FieldTestInputs:          EncodeTestInputs(r.TestInputs),
		FieldLastSubmission:      optionalTime(r.LastSubmissionAt),
		FieldUpdatedAt:           optionalTime(r.UpdatedAt),
	}
	if v := r.Verification.VerifiedLadderScore; v != nil {
		doc[FieldVerifiedLadderScore] = *v
	}
	if v := r.Verification.VerifiedAt; v != nil {
		doc[FieldVerifiedAt] = *v
	}
	if v := r.Verification.ExpiredAt; v != nil {
		doc[FieldVerificationExpired] = *v
	}
	for k, v := range r.Stats {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = nil
		}
		doc[StatsPrefix+k] = v
	}
	for k, v := range r.FilterTags {
		doc[FilterPrefix+k] = v
	}
	return doc
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// VerificationCleared is the merge payload that wipes every verification
// field on the stored document.
func VerificationCleared() map[string]any {
	return map[string]any{
		FieldIsVerified:          false,
		FieldVerifiedLadderScore: nil,
		FieldVerificationStatus:  nil,
		FieldVerifiedAt:          nil,
		FieldVerificationExpired: nil,
		FieldVerificationRequest: nil,
	}
}
