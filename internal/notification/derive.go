package notification

import (
	"context"
	"fmt"

	"chrona/internal/auditlog"
	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
)

// ApproverDirectory resolves the users holding the approve capability for a
// scope. Supplied by the identity collaborator.
type ApproverDirectory interface {
	ApproversFor(ctx context.Context, orgID id.OrgID, teamID *id.TeamID) ([]id.UserID, error)
}

// Deriver maps committed transitions to notification intents. The mapping per
// (kind, new status) is a fixed table; the only external input is the approver
// roster for the subject's scope.
type Deriver struct {
	directory ApproverDirectory
}

func NewDeriver(directory ApproverDirectory) *Deriver {
	return &Deriver{directory: directory}
}

// Derive returns the intents for a committed transition. Zero intents is a
// valid outcome (nobody cares about a cancelled attendance record).
func (d *Deriver) Derive(ctx context.Context, entry auditlog.Entry, subject *models.Subject) ([]Intent, error) {
	switch {
	case subject.Kind == models.KindLeave && entry.NewStatus == models.StatusApproved:
		return []Intent{{Recipient: subject.OwnerID, Type: TypeLeaveApproved}}, nil

	case subject.Kind == models.KindLeave && entry.NewStatus == models.StatusRejected:
		return []Intent{{Recipient: subject.OwnerID, Type: TypeLeaveRejected}}, nil

	case subject.Kind == models.KindLeave && entry.NewStatus == models.StatusCancelled:
		// Approvers learn the request was withdrawn so it leaves their queue.
		return d.approverIntents(ctx, subject, TypeLeaveCancelled)

	case subject.Kind == models.KindAttendance && entry.NewStatus == models.StatusApproved:
		return []Intent{{Recipient: subject.OwnerID, Type: TypeAttendanceApproved}}, nil

	case subject.Kind == models.KindAttendance && entry.NewStatus == models.StatusRejected:
		// The owner hears the verdict; approvers see the record flagged for
		// roster follow-up.
		intents := []Intent{{Recipient: subject.OwnerID, Type: TypeAttendanceRejected}}
		flagged, err := d.approverIntents(ctx, subject, TypeAttendanceFlagged)
		if err != nil {
			return nil, err
		}
		return append(intents, flagged...), nil

	case subject.Kind == models.KindAttendance && entry.NewStatus == models.StatusCancelled:
		return nil, nil
	}
	return nil, nil
}

// DeriveSubmission returns the intents for a freshly created PENDING subject.
// Not a transition, but the initial state still needs approver fan-out.
func (d *Deriver) DeriveSubmission(ctx context.Context, subject *models.Subject) ([]Intent, error) {
	return d.approverIntents(ctx, subject, TypeApprovalRequested)
}

func (d *Deriver) approverIntents(ctx context.Context, subject *models.Subject, typ Type) ([]Intent, error) {
	approvers, err := d.directory.ApproversFor(ctx, subject.OrgID, subject.TeamID)
	if err != nil {
		return nil, fmt.Errorf("resolve approvers: %w", err)
	}
	var intents []Intent
	for _, approver := range approvers {
		if approver == subject.OwnerID {
			// Owners never approve their own subjects, so they are not
			// notified as approvers either.
			continue
		}
		intents = append(intents, Intent{Recipient: approver, Type: typ})
	}
	return intents, nil
}
