package user

import "fitLadderAPI/internal/ladder"

// UpdateProfileRequest is a partial update. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Nickname    *string                  `json:"nickname,omitempty"`
	AvatarURL   *string                  `json:"avatarUrl,omitempty"`
	Age         *int                     `json:"age,omitempty"`
	Gender      *string                  `json:"gender,omitempty"`
	Height      *float64                 `json:"height,omitempty"`
	Weight      *float64                 `json:"weight,omitempty"`
	Country     *string                  `json:"country,omitempty"`
	City        *string                  `json:"city,omitempty"`
	District    *string                  `json:"district,omitempty"`
	JobCategory *string                  `json:"jobCategory,omitempty"`
	GymName     *string                  `json:"gymName,omitempty"`
	Anonymous   *bool                    `json:"isAnonymousInLadder,omitempty"`
	TestInputs  *ladder.TestInputs       `json:"testInputs,omitempty"`
	Scores      *ladder.AssessmentScores `json:"scores,omitempty"`
	Touch       bool                     `json:"touch,omitempty"`
}

type SubmissionStatus struct {
	Remaining      int    `json:"remaining"`
	DailyLimit     int    `json:"dailyLimit"`
	ResetsAt       string `json:"resetsAt"`
	CooldownActive bool   `json:"cooldownActive"`
}
