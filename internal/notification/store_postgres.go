package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	id "chrona/pkg/domain"
	"chrona/pkg/platform/sentinel"
)

// PostgresStore persists notifications on its own pgx pool. It deliberately
// does not join the workflow transaction: delivery state is a separate atomic
// unit from the commit that caused it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, type, title, message, status, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(n.ID),
		uuid.UUID(n.Recipient),
		string(n.Type),
		n.Title,
		n.Message,
		string(n.Status),
		n.SentAt,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, notificationID id.NotificationID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET status = $1, sent_at = $2 WHERE id = $3
	`, string(DeliverySent), at, uuid.UUID(notificationID))
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, notificationID id.NotificationID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET status = $1 WHERE id = $2
	`, string(DeliveryFailed), uuid.UUID(notificationID))
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipient id.UserID) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_id, type, title, message, status, sent_at, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at ASC
	`, uuid.UUID(recipient))
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n              Notification
			notificationID uuid.UUID
			recipientID    uuid.UUID
			typ            string
			status         string
		)
		if err := rows.Scan(&notificationID, &recipientID, &typ, &n.Title, &n.Message, &status, &n.SentAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = id.NotificationID(notificationID)
		n.Recipient = id.UserID(recipientID)
		n.Type = Type(typ)
		n.Status = DeliveryStatus(status)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
