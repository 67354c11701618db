package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
	txcontext "chrona/pkg/platform/tx"
)

// PostgresStore persists the workflow log in an append-only table and mirrors
// every entry into a transactional outbox row. The relay publishes outbox rows
// to Kafka; the table remains the queryable source for History.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// Entry so the consumer side can deserialize without a schema registry.
type outboxPayload struct {
	ID          string `json:"ID"`
	SubjectKind string `json:"SubjectKind"`
	SubjectID   string `json:"SubjectID"`
	OldStatus   string `json:"OldStatus"`
	NewStatus   string `json:"NewStatus"`
	ActorID     string `json:"ActorID"`
	Comment     string `json:"Comment,omitempty"`
	Timestamp   string `json:"Timestamp"`
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	exec := s.execer(ctx)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO workflow_log (id, subject_kind, subject_id, old_status, new_status, actor_id, comment, created_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(entry.ID),
		string(entry.SubjectKind),
		uuid.UUID(entry.SubjectID),
		string(entry.OldStatus),
		string(entry.NewStatus),
		uuid.UUID(entry.ActorID),
		entry.Comment,
		entry.Timestamp,
		entry.PrevHash,
		entry.Hash,
	)
	if err != nil {
		return fmt.Errorf("insert workflow log entry: %w", err)
	}

	payload := outboxPayload{
		ID:          entry.ID.String(),
		SubjectKind: string(entry.SubjectKind),
		SubjectID:   entry.SubjectID.String(),
		OldStatus:   string(entry.OldStatus),
		NewStatus:   string(entry.NewStatus),
		ActorID:     entry.ActorID.String(),
		Comment:     entry.Comment,
		Timestamp:   entry.Timestamp.Format(time.RFC3339Nano),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.New(),
		"subject",
		uuid.UUID(entry.SubjectID),
		fmt.Sprintf("transition_%s", entry.NewStatus),
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, kind models.Kind, subjectID id.SubjectID) ([]Entry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, subject_kind, subject_id, old_status, new_status, actor_id, comment, created_at, prev_hash, hash
		FROM workflow_log
		WHERE subject_kind = $1 AND subject_id = $2
		ORDER BY created_at ASC, id ASC
	`, string(kind), uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("query workflow log: %w", err)
	}
	defer rows.Close()

	var history []Entry
	for rows.Next() {
		var (
			entry     Entry
			entryID   uuid.UUID
			subjID    uuid.UUID
			actorID   uuid.UUID
			kindRaw   string
			oldStatus string
			newStatus string
		)
		if err := rows.Scan(&entryID, &kindRaw, &subjID, &oldStatus, &newStatus, &actorID,
			&entry.Comment, &entry.Timestamp, &entry.PrevHash, &entry.Hash); err != nil {
			return nil, fmt.Errorf("scan workflow log entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		entry.SubjectKind = models.Kind(kindRaw)
		entry.SubjectID = id.SubjectID(subjID)
		entry.OldStatus = models.Status(oldStatus)
		entry.NewStatus = models.Status(newStatus)
		entry.ActorID = id.UserID(actorID)
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow log: %w", err)
	}
	return history, nil
}

func (s *PostgresStore) LastHash(ctx context.Context, kind models.Kind, subjectID id.SubjectID) ([]byte, error) {
	var hash []byte
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT hash FROM workflow_log
		WHERE subject_kind = $1 AND subject_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, string(kind), uuid.UUID(subjectID)).Scan(&hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last chain hash: %w", err)
	}
	return hash, nil
}
