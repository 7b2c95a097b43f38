package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/internal/user"
)

type UserService struct {
	sessions *SessionManager
	queue    *SyncQueue
	clock    Clock
	logger   *slog.Logger
}

func NewUserService(sessions *SessionManager, queue *SyncQueue, clock Clock, logger *slog.Logger) *UserService {
	return &UserService{sessions: sessions, queue: queue, clock: clock, logger: logger}
}

// GetProfile returns the user's local ladder record.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*ladder.Record, error) {
	session, err := s.sessions.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

// UpdateProfile applies the change locally and schedules the debounced
// remote write for the fields that need one.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *user.UpdateProfileRequest) (*ladder.Record, error) {
	session, err := s.sessions.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validateProfile(req); err != nil {
		return nil, err
	}

	changed := session.Apply(req, s.clock.Now())
	if len(changed) == 0 {
		return session.Snapshot(), nil
	}
	if s.queue.Schedule(userID, changed) {
		s.logger.Debug("profile write scheduled", "user", userID, "fields", len(changed))
	}
	if err := s.sessions.SaveSnapshot(ctx, session); err != nil {
		s.logger.Warn("failed to save ladder snapshot", "user", userID, "error", err)
	}
	return session.Snapshot(), nil
}

// SetTimezone records the user's local zone for the daily quota.
func (s *UserService) SetTimezone(ctx context.Context, userID string, loc *time.Location) error {
	session, err := s.sessions.Open(ctx, userID)
	if err != nil {
		return err
	}
	session.SetLocation(loc)
	return nil
}

func validateProfile(req *user.UpdateProfileRequest) error {
	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		return fmt.Errorf("%w: age %d out of range", ErrInvalidProfile, *req.Age)
	}
	if req.Height != nil && *req.Height < 0 {
		return fmt.Errorf("%w: negative height", ErrInvalidProfile)
	}
	if req.Weight != nil && *req.Weight < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidProfile)
	}
	return nil
}
