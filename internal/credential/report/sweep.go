package report

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"safeguard/internal/credential/classify"
	credmetrics "safeguard/internal/credential/metrics"
	"safeguard/internal/credential/models"
	"safeguard/internal/credential/service"
	"safeguard/internal/credential/store"
	id "safeguard/pkg/domain"
	dErrors "safeguard/pkg/domain-errors"
	"safeguard/pkg/requestcontext"
)

const defaultPageSize = 200

// SnapshotCache stores the latest snapshot per organization so dashboards
// can read without re-scanning. A miss returns ok=false, not an error.
type SnapshotCache interface {
	Get(ctx context.Context, orgID id.OrgID) (ComplianceSnapshot, bool, error)
	Put(ctx context.Context, orgID id.OrgID, snapshot ComplianceSnapshot) error
}

// Sweep is the externally-scheduled compliance pass over an organization:
// it pages through the record set, expires lapsed cleared records through the
// state machine, classifies every record, and caches the resulting snapshot.
// The sweeper owns no timer; cadence belongs to the caller's scheduler.
type Sweep struct {
	records  store.Store
	service  *service.Service
	cache    SnapshotCache
	logger   *slog.Logger
	metrics  *credmetrics.Metrics
	pageSize int
}

// SweepOption configures the Sweep.
type SweepOption func(*Sweep)

func WithCache(cache SnapshotCache) SweepOption {
	return func(s *Sweep) {
		s.cache = cache
	}
}

func WithLogger(logger *slog.Logger) SweepOption {
	return func(s *Sweep) {
		s.logger = logger
	}
}

func WithMetrics(m *credmetrics.Metrics) SweepOption {
	return func(s *Sweep) {
		s.metrics = m
	}
}

func WithPageSize(size int) SweepOption {
	return func(s *Sweep) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// NewSweep constructs a Sweep over the given store and lifecycle service.
func NewSweep(records store.Store, svc *service.Service, opts ...SweepOption) *Sweep {
	s := &Sweep{
		records:  records,
		service:  svc,
		logger:   slog.Default(),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PriorityBreakdown extends the snapshot with classifier output for the
// whole population.
type PriorityBreakdown struct {
	ComplianceSnapshot
	ByPriority map[classify.Priority]int `json:"by_priority"`
}

// Run executes one sweep for an organization and returns the fresh snapshot.
// Individual expiry transitions that lose races are logged and skipped; the
// sweep keeps a single observation time for the whole pass so its report is
// internally consistent.
func (s *Sweep) Run(ctx context.Context, orgID id.OrgID) (PriorityBreakdown, error) {
	if orgID.IsNil() {
		return PriorityBreakdown{}, dErrors.New(dErrors.CodeBadRequest, "org id is required")
	}
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)
	start := time.Now()

	records, err := s.collect(ctx, orgID)
	if err != nil {
		return PriorityBreakdown{}, err
	}

	s.expireLapsed(ctx, records, now)

	results := s.classifyAll(ctx, records, now)
	breakdown := PriorityBreakdown{
		ComplianceSnapshot: Summarize(records, now),
		ByPriority:         make(map[classify.Priority]int),
	}
	breakdown.OrgID = orgID.String()
	for _, res := range results {
		breakdown.ByPriority[res.Priority]++
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, orgID, breakdown.ComplianceSnapshot); err != nil {
			s.logger.Warn("snapshot cache put failed", "org_id", orgID, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.SweepsRun.Inc()
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	return breakdown, nil
}

// Latest serves the cached snapshot when present, falling back to a fresh
// scan (without the expiry pass) on a miss.
func (s *Sweep) Latest(ctx context.Context, orgID id.OrgID) (ComplianceSnapshot, error) {
	if orgID.IsNil() {
		return ComplianceSnapshot{}, dErrors.New(dErrors.CodeBadRequest, "org id is required")
	}
	if s.cache != nil {
		snapshot, ok, err := s.cache.Get(ctx, orgID)
		if err != nil {
			s.logger.Warn("snapshot cache get failed", "org_id", orgID, "error", err)
		} else if ok {
			if s.metrics != nil {
				s.metrics.SnapshotCacheHits.Inc()
			}
			return snapshot, nil
		}
		if s.metrics != nil {
			s.metrics.SnapshotCacheMisses.Inc()
		}
	}

	now := requestcontext.Now(ctx)
	records, err := s.collect(ctx, orgID)
	if err != nil {
		return ComplianceSnapshot{}, err
	}
	snapshot := Summarize(records, now)
	snapshot.OrgID = orgID.String()
	return snapshot, nil
}

func (s *Sweep) collect(ctx context.Context, orgID id.OrgID) ([]*models.CredentialRecord, error) {
	var all []*models.CredentialRecord
	for offset := 0; ; offset += s.pageSize {
		page, err := s.records.ListByOrg(ctx, orgID, store.ListFilter{}, store.Page{
			Limit:  s.pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan credential records")
		}
		all = append(all, page...)
		if len(page) < s.pageSize {
			return all, nil
		}
	}
}

// expireLapsed pushes cleared records past their expiry into the terminal
// expired status. Conflicts mean another writer got there first; those are
// logged and the in-memory copy is advanced so the snapshot stays accurate.
func (s *Sweep) expireLapsed(ctx context.Context, records []*models.CredentialRecord, now time.Time) {
	for _, record := range records {
		if record.CanMarkExpired(now) != nil {
			continue
		}
		updated, err := s.service.Apply(ctx, record.ID, service.MarkExpired{})
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) || dErrors.HasCode(err, dErrors.CodeIllegalTransition) {
				s.logger.Warn("sweep lost expiry race", "record_id", record.ID, "error", err)
				continue
			}
			s.logger.Error("sweep failed to expire record", "record_id", record.ID, "error", err)
			continue
		}
		*record = *updated
	}
}

// classifyAll classifies records in parallel. Classification is pure, so
// workers share nothing but the input slice and write disjoint indexes.
func (s *Sweep) classifyAll(ctx context.Context, records []*models.CredentialRecord, now time.Time) []classify.Result {
	results := make([]classify.Result, len(records))
	if len(records) == 0 {
		return results
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range records {
		g.Go(func() error {
			results[i] = classify.Classify(records[i], now)
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("classification pass failed", "error", err)
	}
	return results
}
