package notification

import (
	"context"
	"sync"
	"time"

	id "chrona/pkg/domain"
	"chrona/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications per recipient in a map guarded by a
// RWMutex.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[id.NotificationID]*Notification
	byRcp map[id.UserID][]id.NotificationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[id.NotificationID]*Notification),
		byRcp: make(map[id.UserID][]id.NotificationID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *n
	s.byID[n.ID] = &stored
	s.byRcp[n.Recipient] = append(s.byRcp[n.Recipient], n.ID)
	return nil
}

func (s *InMemoryStore) MarkSent(_ context.Context, notificationID id.NotificationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.Status = DeliverySent
	stored.SentAt = &at
	return nil
}

func (s *InMemoryStore) MarkFailed(_ context.Context, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.Status = DeliveryFailed
	return nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipient id.UserID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRcp[recipient]
	out := make([]Notification, 0, len(ids))
	for _, notificationID := range ids {
		out = append(out, *s.byID[notificationID])
	}
	return out, nil
}
