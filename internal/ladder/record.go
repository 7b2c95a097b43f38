package ladder

import (
	"encoding/json"
	"math"
	"time"
)

// AssessmentScores holds the five sub-scores. A zero value means the
// assessment was never completed.
type AssessmentScores struct {
	Strength       float64 `json:"strength"`
	ExplosivePower float64 `json:"explosivePower"`
	Cardio         float64 `json:"cardio"`
	MuscleMass     float64 `json:"muscleMass"`
	BodyFat        float64 `json:"bodyFat"`
}

func (s AssessmentScores) Values() []float64 {
	return []float64{s.Strength, s.ExplosivePower, s.Cardio, s.MuscleMass, s.BodyFat}
}

type StrengthInputs struct {
	BenchPress    float64 `json:"benchPress"`
	Squat         float64 `json:"squat"`
	Deadlift      float64 `json:"deadlift"`
	LatPulldown   float64 `json:"latPulldown"`
	ShoulderPress float64 `json:"shoulderPress"`
}

type PowerInputs struct {
	Sprint           float64 `json:"sprint"`
	VerticalJump     float64 `json:"verticalJump"`
	StandingLongJump float64 `json:"standingLongJump"`
}

type RunInputs struct {
	Minutes float64 `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

// TestInputs are the raw assessment measurements a user entered.
type TestInputs struct {
	Strength       StrengthInputs `json:"strength"`
	Power          PowerInputs    `json:"power"`
	CooperDistance float64        `json:"cooperDistance"`
	Run5K          RunInputs      `json:"run5k"`
	BodyFat        float64        `json:"bodyFat"`
	FFMI           float64        `json:"ffmi"`
	ArmSize        float64        `json:"armSize"`
	SMM            float64        `json:"smm"`
}

type Verification struct {
	VerifiedLadderScore *float64   `json:"verifiedLadderScore,omitempty"`
	Status              string     `json:"verificationStatus,omitempty"`
	VerifiedAt          *time.Time `json:"verifiedAt,omitempty"`
	ExpiredAt           *time.Time `json:"verificationExpiredAt,omitempty"`
	RequestID           string     `json:"verificationRequestId,omitempty"`
}

func (v Verification) IsZero() bool {
	return v.VerifiedLadderScore == nil && v.Status == "" && v.VerifiedAt == nil &&
		v.ExpiredAt == nil && v.RequestID == ""
}

// Record is one user's ladder document together with the profile fields
// the ladder filters read.
type Record struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender,omitempty"`
	Height      float64   `json:"height"`
	Weight      float64   `json:"weight"`
	Country     string    `json:"country,omitempty"`
	City        string    `json:"city,omitempty"`
	District    string    `json:"district,omitempty"`
	JobCategory string    `json:"jobCategory,omitempty"`
	GymName     string    `json:"gymName,omitempty"`
	Anonymous   bool      `json:"isAnonymousInLadder"`
	LastActive  time.Time `json:"lastActive"`

	IsVerified   bool         `json:"isVerified"`
	Verification Verification `json:"verification"`

	RawScore    float64          `json:"rawScore"`
	LadderScore float64          `json:"ladderScore"`
	Scores      AssessmentScores `json:"scores"`
	TestInputs  TestInputs       `json:"testInputs"`

	// Stats keys carry no "stats_" prefix. Values are whatever the store
	// returned and may be nil, strings or garbage.
	Stats      map[string]any    `json:"-"`
	FilterTags map[string]string `json:"filterTags"`

	LastSubmissionAt time.Time `json:"lastLadderSubmission"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Stats != nil {
		c.Stats = make(map[string]any, len(r.Stats))
		for k, v := range r.Stats {
			c.Stats[k] = v
		}
	}
	if r.FilterTags != nil {
		c.FilterTags = make(map[string]string, len(r.FilterTags))
		for k, v := range r.FilterTags {
			c.FilterTags[k] = v
		}
	}
	if r.Verification.VerifiedLadderScore != nil {
		v := *r.Verification.VerifiedLadderScore
		c.Verification.VerifiedLadderScore = &v
	}
	if r.Verification.VerifiedAt != nil {
		v := *r.Verification.VerifiedAt
		c.Verification.VerifiedAt = &v
	}
	if r.Verification.ExpiredAt != nil {
		v := *r.Verification.ExpiredAt
		c.Verification.ExpiredAt = &v
	}
	return &c
}

// CleanStats returns the stats that are finite numbers or flags, dropping
// everything else.
func (r *Record) CleanStats() map[string]any {
	out := make(map[string]any, len(r.Stats))
	for k, v := range r.Stats {
		if b, ok := v.(bool); ok {
			out[k] = b
			continue
		}
		if f, ok := Number(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			out[k] = f
		}
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	return json.Marshal(struct {
		alias
		Stats map[string]any `json:"stats"`
	}{alias(r), r.CleanStats()})
}

// Stat returns the raw stored stat value.
func (r *Record) Stat(key string) any {
	if r == nil || r.Stats == nil {
		return nil
	}
	return r.Stats[key]
}

func (r *Record) Tag(key string) string {
	if r == nil || r.FilterTags == nil {
		return ""
	}
	return r.FilterTags[key]
}

// ClearVerification drops the verified flag and every piece of
// verification metadata.
func (r *Record) ClearVerification() {
	r.IsVerified = false
	r.Verification = Verification{}
}

// SubmissionState is the per-user daily submission bookkeeping kept in
// the local store.
type SubmissionState struct {
	DailyCount         int       `json:"dailySubmissionCount"`
	LastSubmissionDate string    `json:"lastSubmissionDate"`
	LastSubmissionAt   time.Time `json:"lastSubmissionTime"`
}

// RankedEntry is a record placed in a sorted list.
type RankedEntry struct {
	RecordID    string   `json:"recordId"`
	SortKey     float64  `json:"-"`
	Value       *float64 `json:"value"`
	DisplayRank int      `json:"rank"`
	Record      *Record  `json:"record"`
}

// Page is one rendered window of the ranking.
type Page struct {
	Entries      []*RankedEntry `json:"entries"`
	UserRank     int            `json:"userRank"`
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalUsers   int            `json:"totalUsers"`
	DisplayStart int            `json:"displayStartRank"`
	AutoJumped   bool           `json:"autoJumped"`
}
