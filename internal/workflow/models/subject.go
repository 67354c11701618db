// Package models defines the subjects moving through the approval workflow.
package models

import (
	"time"

	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
)

// Kind tags the subject variant. Attendance records and leave requests share
// one status/approver shape; behavior differs only in notification fan-out.
type Kind string

const (
	KindAttendance Kind = "attendance"
	KindLeave      Kind = "leave"
)

// ParseKind validates a kind tag from its wire form.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindAttendance, KindLeave:
		return Kind(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown subject kind %q", raw)
}

// Status is a subject's lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus validates a status from its wire form.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return Status(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", raw)
}

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Ref addresses a subject without loading it.
type Ref struct {
	Kind Kind
	ID   id.SubjectID
}

// Subject is an attendance record or leave request undergoing approval.
//
// Invariant: Status APPROVED or REJECTED implies ApproverID and ApprovedAt are
// both set; Status PENDING implies both are unset. The orchestrator's commit
// is the only writer allowed to change Status.
type Subject struct {
	ID      id.SubjectID
	Kind    Kind
	OwnerID id.UserID
	OrgID   id.OrgID
	TeamID  *id.TeamID

	// StartDate and EndDate bound the record. Single-day attendance records
	// carry the same date in both.
	StartDate time.Time
	EndDate   time.Time

	// Category is a free-form type label (sick leave, overtime, remote day).
	Category string
	Notes    string

	Status     Status
	ApproverID *id.UserID
	ApprovedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time

	// Version is the optimistic concurrency token. Stores bump it on every
	// successful status write and refuse writes against a stale value.
	Version int64
}

// Owned reports whether the given user owns this subject.
func (s *Subject) Owned(userID id.UserID) bool {
	return s.OwnerID == userID
}

// ApprovalFieldsConsistent checks the approver/timestamp invariant.
func (s *Subject) ApprovalFieldsConsistent() bool {
	switch s.Status {
	case StatusApproved, StatusRejected:
		return s.ApproverID != nil && s.ApprovedAt != nil
	case StatusPending:
		return s.ApproverID == nil && s.ApprovedAt == nil
	}
	return true
}

// Clone returns a deep copy so stores can hand out snapshots without sharing
// pointer fields with callers.
func (s *Subject) Clone() *Subject {
	clone := *s
	if s.TeamID != nil {
		teamID := *s.TeamID
		clone.TeamID = &teamID
	}
	if s.ApproverID != nil {
		approverID := *s.ApproverID
		clone.ApproverID = &approverID
	}
	if s.ApprovedAt != nil {
		approvedAt := *s.ApprovedAt
		clone.ApprovedAt = &approvedAt
	}
	if s.DeletedAt != nil {
		deletedAt := *s.DeletedAt
		clone.DeletedAt = &deletedAt
	}
	return &clone
}
