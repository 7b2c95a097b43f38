package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fitLadderAPI/internal/ladder"
	"fitLadderAPI/internal/ranking"
	"fitLadderAPI/internal/store"
)

const (
	TabTotal    = "total"
	TabWeekly   = "weekly"
	TabVerified = "verified"

	ModePage    = "page"
	ModeContext = "context"
)

// LadderParams is what the ladder screen asks for.
type LadderParams struct {
	Division string
	Project  string
	Tab      string
	AgeGroup string
	Gender   string
	Age      string
	Height   string
	Weight   string
	Job      string
	Page     int
	Mode     string
}

// sameSource reports whether two requests rank the same candidate fetch.
func (p LadderParams) sameSource(o LadderParams) bool {
	return p.Division == o.Division && p.Project == o.Project
}

// sameFilters reports whether two requests rank and filter alike, ignoring
// which page or mode is shown.
func (p LadderParams) sameFilters(o LadderParams) bool {
	p.Page, p.Mode = 0, ""
	o.Page, o.Mode = 0, ""
	return p == o
}

func selected(v string) bool {
	return v != "" && !strings.EqualFold(v, "all")
}

type LadderView struct {
	Metric    ranking.Metric       `json:"metric"`
	Direction string               `json:"direction"`
	Params    LadderParams         `json:"-"`
	Filters   []ranking.FilterStep `json:"filters"`
	FetchedAt time.Time            `json:"fetchedAt"`
	*ladder.Page
}

type view struct {
	gen        uint64
	cancel     context.CancelFunc
	closed     bool
	loaded     bool
	params     LadderParams
	candidates []*ladder.Record
	fetchedAt  time.Time
	last       *LadderView
	busy       int
	used       time.Time
}

// ViewIdleTimeout is how long an unused ladder view is kept.
const ViewIdleTimeout = 30 * time.Minute

// LadderService keeps one ladder view per user. A newer request for a view
// supersedes any request still in flight for it.
type LadderService struct {
	repo     *store.CandidateRepository
	sessions *SessionManager
	clock    Clock
	tracer   trace.Tracer
	logger   *slog.Logger
	pageSize int

	mu    sync.Mutex
	views map[string]*view
}

func NewLadderService(repo *store.CandidateRepository, sessions *SessionManager, clock Clock, tracer trace.Tracer, logger *slog.Logger, pageSize int) *LadderService {
	if pageSize <= 0 {
		pageSize = ranking.DefaultPageSize
	}
	return &LadderService{
		repo:     repo,
		sessions: sessions,
		clock:    clock,
		tracer:   tracer,
		logger:   logger,
		pageSize: pageSize,
		views:    make(map[string]*view),
	}
}

// Load renders the ladder for userID. Candidates are fetched on the first
// load and whenever the division or project changes. Otherwise the cached
// fetch is re-ranked. The first load and any change of filters jump to the
// user's own page.
func (s *LadderService) Load(ctx context.Context, userID string, params LadderParams) (*LadderView, error) {
	return s.load(ctx, userID, params, false)
}

// Refresh re-fetches the candidates for the view's current parameters.
func (s *LadderService) Refresh(ctx context.Context, userID string) (*LadderView, error) {
	s.mu.Lock()
	var params LadderParams
	if v, ok := s.views[userID]; ok {
		params = v.params
	}
	s.mu.Unlock()
	return s.load(ctx, userID, params, true)
}

// Close tears the view down. A fetch still in flight is canceled and its
// result is dropped.
func (s *LadderService) Close(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[userID]
	if !ok {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
	}
	delete(s.views, userID)
}

func (s *LadderService) load(ctx context.Context, userID string, params LadderParams, force bool) (*LadderView, error) {
	ctx, span := s.tracer.Start(ctx, "LadderService.Load")
	defer span.End()

	s.mu.Lock()
	v, ok := s.views[userID]
	if !ok {
		v = &view{}
		s.views[userID] = v
	}
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.busy++
	v.used = s.clock.Now()
	needFetch := force || v.candidates == nil || !v.params.sameSource(params)
	firstLoad := !v.loaded || !v.params.sameFilters(params)
	candidates := v.candidates
	fetchedAt := v.fetchedAt
	s.mu.Unlock()
	defer s.release(v)
	defer cancel()

	if needFetch {
		fetched, err := s.repo.FetchCandidates(fetchCtx)

		s.mu.Lock()
		if stale := s.staleLocked(v, gen); stale != nil {
			s.mu.Unlock()
			return nil, stale
		}
		if err != nil {
			last := v.last
			s.mu.Unlock()
			span.RecordError(err)
			rankingPasses.WithLabelValues(string(ranking.ResolveMetric(params.Division, params.Project)), "fetch_failed").Inc()
			return last, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		v.candidates = fetched
		v.fetchedAt = s.clock.Now()
		candidates, fetchedAt = fetched, v.fetchedAt
		s.mu.Unlock()
	}

	start := time.Now()
	result := s.render(ctx, userID, params, candidates, firstLoad)
	result.FetchedAt = fetchedAt
	rankingDuration.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("metric", string(result.Metric)),
		attribute.Int("candidates", len(candidates)),
		attribute.Int("ranked", result.TotalUsers),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.staleLocked(v, gen); stale != nil {
		return nil, stale
	}
	v.loaded = true
	v.params = params
	v.last = result
	rankingPasses.WithLabelValues(string(result.Metric), "ok").Inc()
	return result, nil
}

func (s *LadderService) release(v *view) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.busy--
	v.used = s.clock.Now()
}

// Cleanup drops idle views every minute until ctx is done.
func (s *LadderService) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evict(ViewIdleTimeout)
		}
	}
}

// evict drops views with no request in flight that were last used more
// than idle ago.
func (s *LadderService) evict(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	n := 0
	for id, v := range s.views {
		if v.busy == 0 && now.Sub(v.used) > idle {
			delete(s.views, id)
			n++
		}
	}
	return n
}

// staleLocked reports why a finished request must be discarded, if it must.
func (s *LadderService) staleLocked(v *view, gen uint64) error {
	if v.closed {
		return ErrViewClosed
	}
	if v.gen != gen {
		return ErrSuperseded
	}
	return nil
}

// render reconciles, filters, sorts and paginates, in that order.
func (s *LadderService) render(ctx context.Context, userID string, params LadderParams, candidates []*ladder.Record, firstLoad bool) *LadderView {
	var local *ladder.Record
	if userID != "" {
		if session, err := s.sessions.Open(ctx, userID); err == nil {
			local = session.Snapshot()
		} else {
			s.logger.Warn("ranking without local record", "user", userID, "error", err)
		}
	}

	records := ranking.Reconcile(candidates, local)
	metric := ranking.ResolveMetric(params.Division, params.Project)
	result := ranking.Rank(records, ranking.Query{
		Metric:  metric,
		Filters: s.filters(params, local),
	})
	for _, step := range result.Steps {
		s.logger.Debug("ladder filter", "user", userID, "filter", step.Name, "before", step.Before, "after", step.After)
	}

	var page *ladder.Page
	if params.Mode == ModeContext {
		page = ranking.Window(result.Entries, userID, ranking.ContextRadius)
	} else {
		page = ranking.Paginate(result.Entries, ranking.PageRequest{
			Page:      params.Page,
			PageSize:  s.pageSize,
			UserID:    userID,
			FirstLoad: firstLoad,
		})
	}
	page.Entries = anonymize(page.Entries, userID)

	return &LadderView{
		Metric:    result.Metric,
		Direction: result.Metric.Direction().String(),
		Params:    params,
		Filters:   result.Steps,
		Page:      page,
	}
}

func (s *LadderService) filters(p LadderParams, local *ladder.Record) []ranking.Filter {
	var filters []ranking.Filter
	if selected(p.AgeGroup) {
		filters = append(filters, ranking.AgeGroupFilter(p.AgeGroup))
	}
	switch p.Tab {
	case TabWeekly:
		filters = append(filters, ranking.WeeklyActiveFilter(s.clock.Now()))
	case TabVerified:
		filters = append(filters, ranking.VerifiedFilter())
	}
	if p.Division == ranking.DivisionLocalDistrict {
		var city, district string
		if local != nil {
			city, district = local.City, local.District
		}
		filters = append(filters, ranking.RegionFilter(city, district))
	}
	if selected(p.Gender) {
		filters = append(filters, ranking.GenderFilter(p.Gender))
	}
	if selected(p.Age) {
		filters = append(filters, ranking.AgeRangeFilter(p.Age))
	}
	if selected(p.Height) {
		filters = append(filters, ranking.HeightRangeFilter(p.Height))
	}
	if selected(p.Weight) {
		filters = append(filters, ranking.WeightClassFilter(p.Weight))
	}
	if selected(p.Job) {
		filters = append(filters, ranking.JobFilter(p.Job))
	}
	return filters
}

// anonymize hides the identity of anonymous entries other than the viewer.
func anonymize(entries []*ladder.RankedEntry, userID string) []*ladder.RankedEntry {
	out := make([]*ladder.RankedEntry, len(entries))
	for i, e := range entries {
		if e.Record == nil || !e.Record.Anonymous || e.RecordID == userID {
			out[i] = e
			continue
		}
		masked := *e
		masked.Record = e.Record.Clone()
		masked.Record.Nickname = ""
		masked.Record.AvatarURL = ""
		out[i] = &masked
	}
	return out
}
