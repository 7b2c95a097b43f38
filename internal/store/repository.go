package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"fitLadderAPI/internal/ladder"
)

const (
	DefaultFetchLimit   = 200
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = time.Second
)

type RepositoryConfig struct {
	FetchLimit   int
	MaxRetries   uint64
	RetryBackoff time.Duration
	// OnRetry is called before each retry. Optional.
	OnRetry func(op string, err error, wait time.Duration)
}

// CandidateRepository fetches the bounded candidate set and point-reads
// records, retrying transient store failures with exponential backoff.
type CandidateRepository struct {
	remote RemoteStore
	cfg    RepositoryConfig
	logger *slog.Logger
}

func NewCandidateRepository(remote RemoteStore, cfg RepositoryConfig, logger *slog.Logger) *CandidateRepository {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &CandidateRepository{remote: remote, cfg: cfg, logger: logger}
}

func (r *CandidateRepository) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.RetryBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = r.cfg.RetryBackoff * 16
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		r.logger.Warn("store call failed, retrying", "op", op, "wait", wait, "error", err)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(op, err, wait)
		}
	})
}

// FetchCandidates returns the top documents by ladder score. Eligibility is
// left to the ranking step.
func (r *CandidateRepository) FetchCandidates(ctx context.Context) ([]*ladder.Record, error) {
	var records []*ladder.Record
	err := r.retry(ctx, "fetch", func() error {
		var err error
		records, err = r.remote.QueryTop(ctx, ladder.FieldLadderScore, r.cfg.FetchLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ladder candidates: %w", err)
	}
	return records, nil
}

func (r *CandidateRepository) Get(ctx context.Context, id string) (*ladder.Record, error) {
	var record *ladder.Record
	err := r.retry(ctx, "get", func() error {
		var err error
		record, err = r.remote.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ladder record %s: %w", id, err)
	}
	return record, nil
}

func (r *CandidateRepository) Merge(ctx context.Context, id string, fields map[string]any) error {
	err := r.retry(ctx, "merge", func() error {
		return r.remote.Merge(ctx, id, fields)
	})
	if err != nil {
		return fmt.Errorf("failed to write ladder record %s: %w", id, err)
	}
	return nil
}
