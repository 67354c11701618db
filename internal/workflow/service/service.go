// Package service is the workflow orchestrator: the only component allowed to
// change a subject's status. Everything else - structural validation,
// authorization, the audit append, notification fan-out - hangs off its two
// public operations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chrona/internal/auditlog"
	"chrona/internal/identity"
	platformmetrics "chrona/internal/platform/metrics"
	"chrona/internal/workflow/machine"
	"chrona/internal/workflow/models"
	"chrona/internal/workflow/policy"
	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
	"chrona/pkg/platform/sentinel"
	"chrona/pkg/requestcontext"
)

// SubjectStore is the persistence contract the orchestrator needs. Both the
// in-memory and Postgres implementations enforce version-guarded status
// writes.
type SubjectStore interface {
	Create(ctx context.Context, subject *models.Subject) error
	FindByRef(ctx context.Context, ref models.Ref) (*models.Subject, error)
	UpdateStatusIfCurrent(ctx context.Context, subject *models.Subject, expectedVersion int64) error
	SoftDelete(ctx context.Context, ref models.Ref, at time.Time) error
}

// TxRunner makes the status write and the log append one atomic unit.
type TxRunner interface {
	RunInTx(ctx context.Context, ref models.Ref, fn func(ctx context.Context) error) error
}

// Dispatcher receives committed transitions after the transaction closes.
// Fire-and-forget: the orchestrator never waits on delivery.
type Dispatcher interface {
	OnCommitted(entry auditlog.Entry, subject *models.Subject)
	OnSubmitted(subject *models.Subject)
}

// Service wires the state machine, policy, audit log, and dispatcher into the
// two operations the outer application consumes.
type Service struct {
	subjects   SubjectStore
	tx         TxRunner
	actors     identity.Provider
	policy     *policy.Policy
	log        *auditlog.Log
	security   *auditlog.SecurityLog
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *platformmetrics.Metrics
	tracer     trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics wires transition outcome counters.
func WithMetrics(m *platformmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSecurityLog routes authorization denials to a separate audit stream.
func WithSecurityLog(securityLog *auditlog.SecurityLog) Option {
	return func(s *Service) { s.security = securityLog }
}

func New(
	subjects SubjectStore,
	tx TxRunner,
	actors identity.Provider,
	log *auditlog.Log,
	dispatcher Dispatcher,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		subjects:   subjects,
		tx:         tx,
		actors:     actors,
		policy:     policy.New(),
		log:        log,
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     otel.Tracer("chrona/workflow"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitParams describes a new subject entering the workflow.
type SubmitParams struct {
	Kind      models.Kind
	OrgID     id.OrgID
	TeamID    *id.TeamID
	StartDate time.Time
	EndDate   time.Time
	Category  string
	Notes     string
}

// Submit creates a subject in the initial PENDING state and fans out
// APPROVAL_REQUESTED to the scoped approvers.
func (s *Service) Submit(ctx context.Context, actorID id.UserID, params SubmitParams) (*models.Subject, error) {
	if params.Kind != models.KindAttendance && params.Kind != models.KindLeave {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown subject kind")
	}
	if params.EndDate.Before(params.StartDate) {
		return nil, dErrors.New(dErrors.CodeValidation, "end date precedes start date")
	}
	if params.OrgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "organization is required")
	}

	now := requestcontext.Now(ctx)
	subject := &models.Subject{
		ID:        id.NewSubjectID(),
		Kind:      params.Kind,
		OwnerID:   actorID,
		OrgID:     params.OrgID,
		TeamID:    params.TeamID,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Category:  params.Category,
		Notes:     params.Notes,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create subject")
	}

	s.dispatcher.OnSubmitted(subject.Clone())
	return subject, nil
}

// RequestTransition moves a subject to a new status on behalf of an actor.
// Sequence: load, structural validation, authorization, optimistic commit,
// notification fan-out. The returned entry is the appended audit record.
func (s *Service) RequestTransition(ctx context.Context, actorID id.UserID, ref models.Ref, to models.Status, comment string) (*models.Subject, *auditlog.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.RequestTransition",
		trace.WithAttributes(
			attribute.String("subject.kind", string(ref.Kind)),
			attribute.String("subject.id", ref.ID.String()),
			attribute.String("transition.to", string(to)),
		))
	defer span.End()

	actor, err := s.actors.ActorFor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	subject, err := s.subjects.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "subject not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load subject")
	}
	from := subject.Status

	// Structural validity first: cheaper than policy and independent of the
	// actor.
	if err := machine.Validate(from, to); err != nil {
		if s.metrics != nil {
			s.metrics.TransitionsInvalid.Inc()
		}
		span.RecordError(err)
		return nil, nil, err
	}

	if err := s.policy.CanTransition(actor, subject, from, to); err != nil {
		if s.metrics != nil {
			s.metrics.TransitionsDenied.Inc()
		}
		if s.security != nil {
			s.security.Denied(ctx, actorID, ref.Kind, ref.ID, from, to, err.Error())
		}
		span.RecordError(err)
		return nil, nil, err
	}

	updated, entry, err := s.commit(ctx, actorID, ref, from, to, comment)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	if s.metrics != nil {
		s.metrics.TransitionsCommitted.WithLabelValues(string(ref.Kind), string(to)).Inc()
	}
	s.logger.InfoContext(ctx, "transition committed",
		"subject_kind", string(ref.Kind),
		"subject_id", ref.ID.String(),
		"from_status", string(from),
		"to_status", string(to),
		"actor_id", actorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)

	// Dispatch starts only after the commit succeeded, and the caller never
	// waits on it.
	s.dispatcher.OnCommitted(*entry, updated.Clone())
	return updated, entry, nil
}

// commit re-reads the subject inside the transactional unit, applies the new
// status, and appends the log entry. Status write and append either both
// happen or neither does.
func (s *Service) commit(ctx context.Context, actorID id.UserID, ref models.Ref, observed, to models.Status, comment string) (*models.Subject, *auditlog.Entry, error) {
	var (
		updated *models.Subject
		entry   *auditlog.Entry
	)

	err := s.tx.RunInTx(ctx, ref, func(txCtx context.Context) error {
		fresh, err := s.subjects.FindByRef(txCtx, ref)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "subject not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "reload subject")
		}
		if fresh.Status != observed {
			return dErrors.Newf(dErrors.CodeConflict,
				"subject moved from %s to %s while the request was in flight", observed, fresh.Status)
		}

		now := requestcontext.Now(txCtx)
		fresh.Status = to
		fresh.UpdatedAt = now
		switch to {
		case models.StatusApproved, models.StatusRejected:
			approver := actorID
			approvedAt := now
			fresh.ApproverID = &approver
			fresh.ApprovedAt = &approvedAt
		default:
			fresh.ApproverID = nil
			fresh.ApprovedAt = nil
		}

		if err := s.subjects.UpdateStatusIfCurrent(txCtx, fresh, fresh.Version); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "subject changed concurrently, retry with fresh state")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "subject not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist status")
		}

		newEntry := &auditlog.Entry{
			ID:          id.NewEntryID(),
			SubjectKind: ref.Kind,
			SubjectID:   ref.ID,
			OldStatus:   observed,
			NewStatus:   to,
			ActorID:     actorID,
			Comment:     comment,
			Timestamp:   now,
		}
		if err := s.log.Append(txCtx, newEntry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append workflow log")
		}

		updated = fresh
		entry = newEntry
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
			s.metrics.TransitionConflicts.Inc()
		}
		return nil, nil, err
	}
	return updated, entry, nil
}

// History returns a subject's full transition history, oldest first. Replaying
// old/new pairs from PENDING reconstructs the current status.
func (s *Service) History(ctx context.Context, ref models.Ref) ([]auditlog.Entry, error) {
	return s.log.History(ctx, ref.Kind, ref.ID)
}

// Delete soft-deletes a subject. Only the owner may do it, only once the
// subject is terminal, and the workflow log survives.
func (s *Service) Delete(ctx context.Context, actorID id.UserID, ref models.Ref) error {
	subject, err := s.subjects.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subject not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load subject")
	}
	if !subject.Owned(actorID) {
		return dErrors.New(dErrors.CodeForbidden, "only the owner may delete a subject")
	}
	if !subject.Status.Terminal() {
		return dErrors.New(dErrors.CodeValidation, "pending subjects must be cancelled before deletion")
	}
	if err := s.subjects.SoftDelete(ctx, ref, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "soft delete subject")
	}
	return nil
}
