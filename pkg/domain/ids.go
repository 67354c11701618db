// Package domain defines the strongly typed identifiers shared across the
// workflow engine. Distinct uuid-backed types keep user, organization, and
// subject identifiers from being accidentally interchanged at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "chrona/pkg/domain-errors"
)

type (
	// UserID identifies a user (owner, actor, or notification recipient).
	UserID uuid.UUID
	// OrgID identifies the organization a subject is scoped to.
	OrgID uuid.UUID
	// TeamID identifies a team inside an organization.
	TeamID uuid.UUID
	// SubjectID identifies an attendance record or leave request.
	SubjectID uuid.UUID
	// EntryID identifies a workflow log entry.
	EntryID uuid.UUID
	// NotificationID identifies a persisted notification.
	NotificationID uuid.UUID
)

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id TeamID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id OrgID) String() string          { return uuid.UUID(id).String() }
func (id TeamID) String() string         { return uuid.UUID(id).String() }
func (id SubjectID) String() string      { return uuid.UUID(id).String() }
func (id EntryID) String() string        { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewOrgID returns a fresh random OrgID.
func NewOrgID() OrgID { return OrgID(uuid.New()) }

// NewTeamID returns a fresh random TeamID.
func NewTeamID() TeamID { return TeamID(uuid.New()) }

// NewSubjectID returns a fresh random SubjectID.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewEntryID returns a fresh random EntryID.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

// NewNotificationID returns a fresh random NotificationID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// parseUUID enforces the invariant that identifiers crossing a trust boundary
// are valid, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil uuid")
	}
	return parsed, nil
}

// ParseUserID parses and validates a UserID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}

// ParseOrgID parses and validates an OrgID from its string form.
func ParseOrgID(raw string) (OrgID, error) {
	parsed, err := parseUUID(raw)
	return OrgID(parsed), err
}

// ParseTeamID parses and validates a TeamID from its string form.
func ParseTeamID(raw string) (TeamID, error) {
	parsed, err := parseUUID(raw)
	return TeamID(parsed), err
}

// ParseSubjectID parses and validates a SubjectID from its string form.
func ParseSubjectID(raw string) (SubjectID, error) {
	parsed, err := parseUUID(raw)
	return SubjectID(parsed), err
}
