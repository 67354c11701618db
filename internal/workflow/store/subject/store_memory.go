// Package subject persists workflow subjects. Both implementations enforce
// the same optimistic-concurrency contract: a status write against a stale
// version fails with sentinel.ErrConflict and changes nothing.
package subject

import (
	"context"
	"sync"
	"time"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
	"chrona/pkg/platform/sentinel"
)

type memoryKey struct {
	kind models.Kind
	id   id.SubjectID
}

// InMemoryStore keeps subjects in a map guarded by a RWMutex. Snapshots are
// cloned on the way in and out so callers never share pointers with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	subjects map[memoryKey]*models.Subject
}

func New() *InMemoryStore {
	return &InMemoryStore{subjects: make(map[memoryKey]*models.Subject)}
}

func (s *InMemoryStore) Create(_ context.Context, subject *models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey{kind: subject.Kind, id: subject.ID}
	if _, exists := s.subjects[key]; exists {
		return sentinel.ErrConflict
	}
	s.subjects[key] = subject.Clone()
	return nil
}

func (s *InMemoryStore) FindByRef(_ context.Context, ref models.Ref) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.subjects[memoryKey{kind: ref.Kind, id: ref.ID}]
	if !ok || stored.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	return stored.Clone(), nil
}

// UpdateStatusIfCurrent persists the subject's status fields only when the
// stored version still matches expectedVersion. The compare and the write are
// one critical section, which is what makes concurrent commits lose cleanly.
func (s *InMemoryStore) UpdateStatusIfCurrent(_ context.Context, subject *models.Subject, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.subjects[memoryKey{kind: subject.Kind, id: subject.ID}]
	if !ok || stored.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrConflict
	}

	updated := subject.Clone()
	updated.Version = expectedVersion + 1
	s.subjects[memoryKey{kind: subject.Kind, id: subject.ID}] = updated
	subject.Version = updated.Version
	return nil
}

// SoftDelete stamps DeletedAt without touching the workflow log; the audit
// trail outlives the subject's visible lifecycle.
func (s *InMemoryStore) SoftDelete(_ context.Context, ref models.Ref, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.subjects[memoryKey{kind: ref.Kind, id: ref.ID}]
	if !ok || stored.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	stored.DeletedAt = &at
	return nil
}
