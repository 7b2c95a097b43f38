package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/internal/localstore"
)

const (
	DailySubmissionLimit = 3
	dateLayout           = "2006-01-02"
	ReasonDailyLimit     = "daily limit reached, resets at local midnight"
)

type LimitDecision struct {
	Allowed        bool
	Reason         string
	Remaining      int
	ResetsAt       time.Time
	CooldownActive bool
}

// SubmissionLimiter enforces the per-user daily submission cap. State is
// kept in the local store and resets on the user's local calendar day.
type SubmissionLimiter struct {
	kv       localstore.KV
	clock    Clock
	cooldown time.Duration
	logger   *slog.Logger
}

func NewSubmissionLimiter(kv localstore.KV, clock Clock, cooldown time.Duration, logger *slog.Logger) *SubmissionLimiter {
	return &SubmissionLimiter{kv: kv, clock: clock, cooldown: cooldown, logger: logger}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// load reads the stored state and normalizes it for today.
func (l *SubmissionLimiter) load(ctx context.Context, userID string, now time.Time) (ladder.SubmissionState, error) {
	var state ladder.SubmissionState
	found, err := localstore.LoadJSON(ctx, l.kv, localstore.SubmissionStateKey(userID), &state)
	if err != nil {
		// Corrupted state is treated as empty rather than locking the user out.
		l.logger.Warn("discarding unreadable submission state", "user", userID, "error", err)
		found = false
	}
	today := now.Format(dateLayout)
	if !found || state.LastSubmissionDate != today {
		state.DailyCount = 0
		state.LastSubmissionDate = today
	}
	if state.DailyCount < 0 || state.DailyCount > DailySubmissionLimit {
		state.DailyCount = 0
	}
	return state, nil
}

// Check reports whether the user may submit now. loc is the user's time
// zone.
func (l *SubmissionLimiter) Check(ctx context.Context, userID string, loc *time.Location) (LimitDecision, error) {
	now := l.clock.Now().In(loc)
	state, err := l.load(ctx, userID, now)
	if err != nil {
		return LimitDecision{}, err
	}

	decision := LimitDecision{
		Allowed:   state.DailyCount < DailySubmissionLimit,
		Remaining: DailySubmissionLimit - state.DailyCount,
		ResetsAt:  nextMidnight(now),
	}
	if !state.LastSubmissionAt.IsZero() && l.cooldown > 0 && now.Sub(state.LastSubmissionAt) < l.cooldown {
		decision.CooldownActive = true
		if decision.Allowed {
			l.logger.Info("legacy cooldown active, daily quota allows submission",
				"user", userID, "since_last", now.Sub(state.LastSubmissionAt), "remaining", decision.Remaining)
		}
	}
	if !decision.Allowed {
		decision.Reason = ReasonDailyLimit
	}
	return decision, nil
}

// Record counts an accepted submission.
func (l *SubmissionLimiter) Record(ctx context.Context, userID string, loc *time.Location) (ladder.SubmissionState, error) {
	now := l.clock.Now().In(loc)
	state, err := l.load(ctx, userID, now)
	if err != nil {
		return state, err
	}
	state.DailyCount = min(state.DailyCount+1, DailySubmissionLimit)
	state.LastSubmissionAt = now
	state.LastSubmissionDate = now.Format(dateLayout)
	if err := localstore.SaveJSON(ctx, l.kv, localstore.SubmissionStateKey(userID), state); err != nil {
		return state, fmt.Errorf("failed to save submission state: %w", err)
	}
	return state, nil
}
