// Package notification turns committed transitions into user-facing messages
// and delivers them without ever touching the transition's outcome.
package notification

import (
	"time"

	id "chrona/pkg/domain"
)

// Type names the event a notification describes. Values double as lookup keys
// in the locale catalog.
type Type string

const (
	TypeLeaveApproved      Type = "LEAVE_APPROVED"
	TypeLeaveRejected      Type = "LEAVE_REJECTED"
	TypeLeaveCancelled     Type = "LEAVE_CANCELLED"
	TypeAttendanceApproved Type = "ATTENDANCE_APPROVED"
	TypeAttendanceRejected Type = "ATTENDANCE_REJECTED"
	TypeAttendanceFlagged  Type = "ATTENDANCE_FLAGGED"
	TypeApprovalRequested  Type = "APPROVAL_REQUESTED"
)

// DeliveryStatus tracks a notification through the delivery pipeline.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// Channel hints where a notification should be delivered.
type Channel string

const (
	ChannelInApp Channel = "in-app"
	ChannelEmail Channel = "email"
)

// Intent is the derived instruction to inform one user of one event. It is a
// pure product of a log entry plus subject snapshot; rendering and delivery
// happen later.
type Intent struct {
	Recipient id.UserID
	Type      Type
}

// Notification is the persisted result of dispatching an intent.
type Notification struct {
	ID        id.NotificationID
	Recipient id.UserID
	Type      Type
	Title     string
	Message   string
	Status    DeliveryStatus
	SentAt    *time.Time
	CreatedAt time.Time
}
