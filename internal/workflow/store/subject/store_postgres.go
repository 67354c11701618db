package subject

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
	"chrona/pkg/platform/sentinel"
	txcontext "chrona/pkg/platform/tx"
)

// PostgresStore persists subjects in the subjects table. Status writes use a
// version guard in the WHERE clause, so losing an optimistic race is a zero
// rows-affected result, not a silent overwrite.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, subject *models.Subject) error {
	var teamID any
	if subject.TeamID != nil {
		teamID = uuid.UUID(*subject.TeamID)
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO subjects (id, kind, owner_id, org_id, team_id, start_date, end_date, category, notes, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		uuid.UUID(subject.ID),
		string(subject.Kind),
		uuid.UUID(subject.OwnerID),
		uuid.UUID(subject.OrgID),
		teamID,
		subject.StartDate,
		subject.EndDate,
		subject.Category,
		subject.Notes,
		string(subject.Status),
		subject.CreatedAt,
		subject.UpdatedAt,
		subject.Version,
	)
	if err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByRef(ctx context.Context, ref models.Ref) (*models.Subject, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, kind, owner_id, org_id, team_id, start_date, end_date, category, notes,
		       status, approver_id, approved_at, created_at, updated_at, deleted_at, version
		FROM subjects
		WHERE kind = $1 AND id = $2 AND deleted_at IS NULL
	`, string(ref.Kind), uuid.UUID(ref.ID))

	var (
		subject    models.Subject
		subjectID  uuid.UUID
		kind       string
		ownerID    uuid.UUID
		orgID      uuid.UUID
		teamID     *uuid.UUID
		status     string
		approverID *uuid.UUID
		approvedAt *time.Time
		deletedAt  *time.Time
	)
	err := row.Scan(&subjectID, &kind, &ownerID, &orgID, &teamID,
		&subject.StartDate, &subject.EndDate, &subject.Category, &subject.Notes,
		&status, &approverID, &approvedAt,
		&subject.CreatedAt, &subject.UpdatedAt, &deletedAt, &subject.Version)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subject: %w", err)
	}

	subject.ID = id.SubjectID(subjectID)
	subject.Kind = models.Kind(kind)
	subject.OwnerID = id.UserID(ownerID)
	subject.OrgID = id.OrgID(orgID)
	subject.Status = models.Status(status)
	subject.DeletedAt = deletedAt
	if teamID != nil {
		t := id.TeamID(*teamID)
		subject.TeamID = &t
	}
	if approverID != nil {
		a := id.UserID(*approverID)
		subject.ApproverID = &a
	}
	subject.ApprovedAt = approvedAt
	return &subject, nil
}

func (s *PostgresStore) UpdateStatusIfCurrent(ctx context.Context, subject *models.Subject, expectedVersion int64) error {
	var approverID any
	if subject.ApproverID != nil {
		approverID = uuid.UUID(*subject.ApproverID)
	}

	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE subjects
		SET status = $1, approver_id = $2, approved_at = $3, updated_at = $4, version = version + 1
		WHERE kind = $5 AND id = $6 AND version = $7 AND deleted_at IS NULL
	`,
		string(subject.Status),
		approverID,
		subject.ApprovedAt,
		subject.UpdatedAt,
		string(subject.Kind),
		uuid.UUID(subject.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update subject status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost race from a missing row.
		var exists bool
		checkErr := s.execer(ctx).QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM subjects WHERE kind = $1 AND id = $2 AND deleted_at IS NULL)
		`, string(subject.Kind), uuid.UUID(subject.ID)).Scan(&exists)
		if checkErr != nil {
			return fmt.Errorf("check subject existence: %w", checkErr)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}

	subject.Version = expectedVersion + 1
	return nil
}

// SoftDelete hides the subject from loads without deleting its history.
func (s *PostgresStore) SoftDelete(ctx context.Context, ref models.Ref, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE subjects SET deleted_at = $1, updated_at = $1
		WHERE kind = $2 AND id = $3 AND deleted_at IS NULL
	`, at, string(ref.Kind), uuid.UUID(ref.ID))
	if err != nil {
		return fmt.Errorf("soft delete subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
