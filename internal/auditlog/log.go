package auditlog

import (
	"context"
	"fmt"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
)

// Log is the write-once workflow audit trail. Append is internal to the
// orchestrator's commit; History is part of the public surface.
type Log struct {
	store Store
	chain *Chain
}

func NewLog(store Store, chain *Chain) *Log {
	return &Log{store: store, chain: chain}
}

// Append seals the entry onto its subject's hash chain and persists it. It
// must run inside the same transactional unit as the status write; the store
// honors a transaction carried in ctx.
func (l *Log) Append(ctx context.Context, entry *Entry) error {
	prevHash, err := l.store.LastHash(ctx, entry.SubjectKind, entry.SubjectID)
	if err != nil {
		return fmt.Errorf("read chain head: %w", err)
	}
	if err := l.chain.Seal(entry, prevHash); err != nil {
		return fmt.Errorf("seal entry: %w", err)
	}
	if err := l.store.Append(ctx, *entry); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// History returns a subject's entries oldest first.
func (l *Log) History(ctx context.Context, kind models.Kind, subjectID id.SubjectID) ([]Entry, error) {
	return l.store.History(ctx, kind, subjectID)
}

// VerifyChain reruns the subject's hash chain. It returns the index of the
// first broken entry, or -1 when the chain is intact.
func (l *Log) VerifyChain(ctx context.Context, kind models.Kind, subjectID id.SubjectID) (int, error) {
	history, err := l.store.History(ctx, kind, subjectID)
	if err != nil {
		return 0, err
	}
	return l.chain.Verify(history)
}
