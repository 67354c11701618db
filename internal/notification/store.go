package notification

import (
	"context"
	"time"

	id "chrona/pkg/domain"
)

// Store persists notifications. It lives outside the workflow transaction on
// purpose: a notification row is created after the commit and updated as
// delivery progresses.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	MarkSent(ctx context.Context, notificationID id.NotificationID, at time.Time) error
	MarkFailed(ctx context.Context, notificationID id.NotificationID) error
	ListByRecipient(ctx context.Context, recipient id.UserID) ([]Notification, error)
}
