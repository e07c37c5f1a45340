package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"safeguard/internal/credential/classify"
	credmetrics "safeguard/internal/credential/metrics"
	"safeguard/internal/credential/models"
	"safeguard/internal/credential/store"
	"safeguard/internal/notify"
	id "safeguard/pkg/domain"
	dErrors "safeguard/pkg/domain-errors"
	audit "safeguard/pkg/platform/audit"
	"safeguard/pkg/platform/sentinel"
	"safeguard/pkg/requestcontext"
)

// maxConflictRetries bounds the re-validate-and-retry loop on optimistic
// concurrency conflicts. Each retry re-reads the record and re-runs the
// transition guards; transitions are not assumed idempotent.
const maxConflictRetries = 3

// AuditPublisher receives the trail entry for every successful mutation.
// The implementation is best-effort; a failing trail never rolls back a
// transition.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the credential lifecycle: it loads records, runs
// transition guards, persists with optimistic concurrency, and executes the
// audit/notify effects the pure model transitions describe.
type Service struct {
	records        store.Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	notifier       notify.Notifier
	metrics        *credmetrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithNotifier(notifier notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithMetrics(m *credmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service over the given record store.
func New(records store.Store, opts ...Option) *Service {
	s := &Service{
		records: records,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the optional policy fields for a new record.
type CreateParams struct {
	SubjectID  id.SubjectID
	OrgID      id.OrgID
	Type       models.CredentialType
	CheckLevel models.CheckLevel
	Roles      models.RoleFlags

	RenewalRequired             bool
	GracePeriodDays             int
	NextRenewalDate             *time.Time
	NextAuditDate               *time.Time
	ContinuingEducationRequired bool
}

// CreateRecord opens a new credential record in not_started. Renewals go
// through here too: the superseded record keeps its terminal status and the
// new cycle starts on a fresh record, preserving the trail.
func (s *Service) CreateRecord(ctx context.Context, params CreateParams) (*models.CredentialRecord, error) {
	now := requestcontext.Now(ctx)
	record, err := models.NewCredentialRecord(
		id.RecordID(uuid.New()),
		params.SubjectID,
		params.OrgID,
		params.Type,
		params.CheckLevel,
		params.Roles,
		now,
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	record.RenewalRequired = params.RenewalRequired
	record.GracePeriodDays = params.GracePeriodDays
	record.NextRenewalDate = params.NextRenewalDate
	record.NextAuditDate = params.NextAuditDate
	record.ContinuingEducationRequired = params.ContinuingEducationRequired

	if err := s.records.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create credential record")
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Action:     audit.ActionRecordCreated,
		ActorID:    requestcontext.ActorID(ctx),
		RecordID:   record.ID.String(),
		SubjectID:  record.SubjectID.String(),
		OrgID:      record.OrgID.String(),
		AfterState: record.Status.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return record, nil
}

// Apply runs one lifecycle command against a record. On a concurrent
// modification it re-reads the latest state and re-validates the transition,
// up to maxConflictRetries times; guard failures and validation errors are
// returned without mutation.
func (s *Service) Apply(ctx context.Context, recordID id.RecordID, cmd Command) (*models.CredentialRecord, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record id is required")
	}
	now := requestcontext.Now(ctx)

	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		record, err := s.records.FindByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "credential record not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential record")
		}

		before := record.Status
		action, err := transition(record, cmd, now)
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncrementTransitionRejected(string(dErrors.CodeOf(err)))
			}
			return nil, err
		}
		if err := record.ValidateDates(); err != nil {
			return nil, err
		}

		err = s.records.Save(ctx, record, record.Version)
		if errors.Is(err, sentinel.ErrConcurrentModification) {
			if s.metrics != nil {
				s.metrics.ConflictRetries.Inc()
			}
			s.logger.Warn("transition lost version race, retrying",
				"record_id", recordID,
				"event", cmd.Kind(),
				"attempt", attempt+1,
			)
			continue
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential record not found")
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save credential record")
		}

		s.finishTransition(ctx, record, cmd, action, before, now)
		return record, nil
	}

	return nil, dErrors.New(dErrors.CodeConflict,
		"credential record kept changing concurrently, retry the transition")
}

// GetRecord fetches one record.
func (s *Service) GetRecord(ctx context.Context, recordID id.RecordID) (*models.CredentialRecord, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record id is required")
	}
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential record")
	}
	return record, nil
}

// ListSubjectRecords lists a subject's records, optionally filtered.
func (s *Service) ListSubjectRecords(ctx context.Context, subjectID id.SubjectID, filter store.ListFilter) ([]*models.CredentialRecord, error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}
	records, err := s.records.ListBySubject(ctx, subjectID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credential records")
	}
	return records, nil
}

// Risk classifies one record at the request's observation time.
func (s *Service) Risk(ctx context.Context, recordID id.RecordID) (classify.Result, error) {
	record, err := s.GetRecord(ctx, recordID)
	if err != nil {
		return classify.Result{}, err
	}
	return classify.Classify(record, requestcontext.Now(ctx)), nil
}

// transition dispatches a command to the model's guard and mutation pair and
// names the audit action for the trail.
func transition(record *models.CredentialRecord, cmd Command, now time.Time) (audit.Action, error) {
	switch c := cmd.(type) {
	case StartApplication:
		if err := record.CanStartApplication(); err != nil {
			return "", err
		}
		record.ApplyStartApplication(c.Reference, now)
		return audit.ActionApplicationStarted, nil
	case Submit:
		if err := record.CanSubmit(); err != nil {
			return "", err
		}
		record.ApplySubmit(c.ExternalReference, now)
		return audit.ActionSubmitted, nil
	case Complete:
		if err := record.CanComplete(c.Outcome); err != nil {
			return "", err
		}
		record.ApplyComplete(c.CertificateNumber, c.Outcome, now)
		if c.Outcome == models.OutcomeRejected {
			return audit.ActionRejected, nil
		}
		return audit.ActionCleared, nil
	case Reject:
		if err := record.CanReject(); err != nil {
			return "", err
		}
		record.ApplyReject(c.Reason, now)
		return audit.ActionRejected, nil
	case Cancel:
		if err := record.CanCancel(); err != nil {
			return "", err
		}
		record.ApplyCancel(c.Reason, now)
		return audit.ActionCancelled, nil
	case MarkExpired:
		if err := record.CanMarkExpired(now); err != nil {
			return "", err
		}
		record.ApplyMarkExpired(now)
		return audit.ActionExpired, nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown lifecycle command %q", cmd.Kind())
	}
}

// finishTransition runs the post-save effects: metrics, audit trail, and
// outbound notification. None of them can fail the already-persisted
// transition.
func (s *Service) finishTransition(
	ctx context.Context,
	record *models.CredentialRecord,
	cmd Command,
	action audit.Action,
	before models.CredentialStatus,
	now time.Time,
) {
	if s.metrics != nil {
		s.metrics.IncrementTransitionApplied(cmd.Kind())
	}

	reason := ""
	switch c := cmd.(type) {
	case Reject:
		reason = c.Reason
	case Cancel:
		reason = c.Reason
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp:   now,
		Action:      action,
		ActorID:     requestcontext.ActorID(ctx),
		RecordID:    record.ID.String(),
		SubjectID:   record.SubjectID.String(),
		OrgID:       record.OrgID.String(),
		BeforeState: before.String(),
		AfterState:  record.Status.String(),
		Reason:      reason,
		RequestID:   requestcontext.RequestID(ctx),
	})

	if s.notifier != nil {
		s.notifier.Notify(ctx, notify.CredentialEvent{
			Kind:       cmd.Kind(),
			RecordID:   record.ID.String(),
			SubjectID:  record.SubjectID.String(),
			OrgID:      record.OrgID.String(),
			Status:     record.Status.String(),
			ExpiryDate: record.ExpiryDate,
			OccurredAt: now,
		})
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.Error("audit emit failed", "action", event.Action, "error", err)
	}
}
