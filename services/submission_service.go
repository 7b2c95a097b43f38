package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/internal/user"
	"fitLadderAPI/utils"
)

const ReasonNotEligible = "complete all five assessments to join the ladder"

type SubmissionOutcome struct {
	Accepted    bool      `json:"accepted"`
	Reason      string    `json:"reason,omitempty"`
	RawScore    float64   `json:"rawScore"`
	LadderScore float64   `json:"ladderScore"`
	Remaining   int       `json:"remaining"`
	ResetsAt    time.Time `json:"resetsAt"`
	Eligible    bool      `json:"eligible"`
}

type SubmissionService struct {
	sessions *SessionManager
	limiter  *SubmissionLimiter
	queue    *SyncQueue
	clock    Clock
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewSubmissionService(sessions *SessionManager, limiter *SubmissionLimiter, queue *SyncQueue, clock Clock, tracer trace.Tracer, logger *slog.Logger) *SubmissionService {
	return &SubmissionService{
		sessions: sessions,
		limiter:  limiter,
		queue:    queue,
		clock:    clock,
		tracer:   tracer,
		logger:   logger,
	}
}

// Submit scores the user's current assessments and publishes the result to
// the ladder. A zero composite or a spent daily quota is a rejected outcome,
// not an error. When the remote write fails the local record keeps the new
// score and ErrSubmissionWrite is returned.
func (s *SubmissionService) Submit(ctx context.Context, userID string) (*SubmissionOutcome, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	ctx, span := s.tracer.Start(ctx, "SubmissionService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	session, err := s.sessions.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	session.submitting.Lock()
	defer session.submitting.Unlock()

	loc := session.Location()
	current := session.Snapshot()
	raw := utils.CalculateLadderScore(current.Scores)
	if raw == 0 {
		submissionsTotal.WithLabelValues("not_eligible").Inc()
		return &SubmissionOutcome{Reason: ReasonNotEligible}, nil
	}

	decision, err := s.limiter.Check(ctx, userID, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to check submission quota: %w", err)
	}
	if !decision.Allowed {
		submissionsTotal.WithLabelValues("daily_limit").Inc()
		return &SubmissionOutcome{
			Reason:    decision.Reason,
			RawScore:  raw,
			Remaining: 0,
			ResetsAt:  decision.ResetsAt,
			Eligible:  true,
		}, nil
	}

	now := s.clock.Now()
	stats := utils.DeriveStats(current.TestInputs)
	var updated *ladder.Record
	session.update(func(r *ladder.Record) {
		r.ClearVerification()
		r.RawScore = raw
		r.LadderScore = utils.ApplyLimitBreak(raw, r.IsVerified)
		if r.Stats == nil {
			r.Stats = map[string]any{}
		}
		for k, v := range stats {
			r.Stats[k] = v
		}
		r.FilterTags = utils.DeriveFilterTags(r)
		r.LastSubmissionAt = now
		r.UpdatedAt = now
		updated = r.Clone()
	})

	payload := submissionPayload(updated, stats)
	span.SetAttributes(attribute.Float64("ladder_score", updated.LadderScore))

	if err := s.queue.WriteNow(ctx, userID, payload); err != nil {
		span.RecordError(err)
		submissionsTotal.WithLabelValues("write_failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrSubmissionWrite, err)
	}

	state, err := s.limiter.Record(ctx, userID, loc)
	if err != nil {
		s.logger.Warn("submission written but quota not recorded", "user", userID, "error", err)
	}
	if err := s.sessions.SaveSnapshot(ctx, session); err != nil {
		s.logger.Warn("failed to save ladder snapshot", "user", userID, "error", err)
	}
	submissionsTotal.WithLabelValues("accepted").Inc()
	s.logger.Info("ladder submission accepted", "user", userID, "raw", raw, "ladder_score", updated.LadderScore)

	return &SubmissionOutcome{
		Accepted:    true,
		RawScore:    raw,
		LadderScore: updated.LadderScore,
		Remaining:   max(DailySubmissionLimit-state.DailyCount, 0),
		ResetsAt:    nextMidnight(now.In(loc)),
		Eligible:    true,
	}, nil
}

func submissionPayload(r *ladder.Record, stats map[string]any) map[string]any {
	payload := ladder.VerificationCleared()
	payload[ladder.FieldLadderScore] = r.LadderScore
	payload[ladder.FieldRawScore] = r.RawScore
	payload[ladder.FieldScores] = ladder.EncodeScores(r.Scores)
	payload[ladder.FieldLastSubmission] = r.LastSubmissionAt
	payload[ladder.FieldUpdatedAt] = r.UpdatedAt
	for k, v := range stats {
		payload[ladder.StatsPrefix+k] = v
	}
	for k, v := range r.FilterTags {
		payload[ladder.FilterPrefix+k] = v
	}
	return payload
}

// Status reports the remaining submissions for the user's local day.
func (s *SubmissionService) Status(ctx context.Context, userID string) (*user.SubmissionStatus, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	session, err := s.sessions.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	decision, err := s.limiter.Check(ctx, userID, session.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to check submission quota: %w", err)
	}
	return &user.SubmissionStatus{
		Remaining:      max(decision.Remaining, 0),
		DailyLimit:     DailySubmissionLimit,
		ResetsAt:       decision.ResetsAt.Format(time.RFC3339),
		CooldownActive: decision.CooldownActive,
	}, nil
}
