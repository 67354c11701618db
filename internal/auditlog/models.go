// Package auditlog holds the append-only workflow log. Entries are write-once:
// corrections are modeled as new entries, never edits, and the log outlives the
// subject's visible lifecycle.
package auditlog

import (
	"time"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
)

// Entry records one committed transition: who moved which subject from where
// to where, when, and why. Immutable once created.
type Entry struct {
	ID          id.EntryID
	SubjectKind models.Kind
	SubjectID   id.SubjectID
	OldStatus   models.Status
	NewStatus   models.Status
	ActorID     id.UserID
	Comment     string
	Timestamp   time.Time

	// PrevHash and Hash chain entries per subject. Hash covers this entry's
	// fields plus PrevHash under a keyed MAC, so rewriting history breaks the
	// chain unless the attacker also holds the key.
	PrevHash []byte
	Hash     []byte
}
