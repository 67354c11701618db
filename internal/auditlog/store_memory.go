package auditlog

import (
	"context"
	"sync"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
)

type historyKey struct {
	kind      models.Kind
	subjectID id.SubjectID
}

// InMemoryStore keeps per-subject histories in a map guarded by a RWMutex.
// Entries are copied on the way out so callers cannot mutate the log.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[historyKey][]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[historyKey][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := historyKey{kind: entry.SubjectKind, subjectID: entry.SubjectID}
	s.entries[key] = append(s.entries[key], entry)
	return nil
}

func (s *InMemoryStore) History(_ context.Context, kind models.Kind, subjectID id.SubjectID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries[historyKey{kind: kind, subjectID: subjectID}]...), nil
}

func (s *InMemoryStore) LastHash(_ context.Context, kind models.Kind, subjectID id.SubjectID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.entries[historyKey{kind: kind, subjectID: subjectID}]
	if len(history) == 0 {
		return nil, nil
	}
	return history[len(history)-1].Hash, nil
}
