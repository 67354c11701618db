package auditlog

import (
	"context"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
)

// Store is the persistence contract for the workflow log. Append-only: no
// update or delete operation exists on purpose.
type Store interface {
	// Append persists one entry. Implementations participate in the caller's
	// transaction when one is carried in ctx, so an entry never exists
	// without its status change.
	Append(ctx context.Context, entry Entry) error
	// History returns a subject's entries oldest first.
	History(ctx context.Context, kind models.Kind, subjectID id.SubjectID) ([]Entry, error)
	// LastHash returns the newest entry's chain hash for a subject, or nil
	// when the subject has no history yet.
	LastHash(ctx context.Context, kind models.Kind, subjectID id.SubjectID) ([]byte, error)
}
