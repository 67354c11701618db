//go:build integration

package auditlog_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chrona/internal/auditlog"
	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
	"chrona/pkg/testutil/containers"
)

type PostgresLogSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	log      *auditlog.Log
}

func TestPostgresLogSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLogSuite))
}

func (s *PostgresLogSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())

	chain, err := auditlog.NewChain([]byte("integration-chain-key"))
	s.Require().NoError(err)
	s.log = auditlog.NewLog(auditlog.NewPostgres(s.postgres.DB), chain)
}

func (s *PostgresLogSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresLogSuite) newEntry(subjectID id.SubjectID, from, to models.Status) *auditlog.Entry {
	return &auditlog.Entry{
		ID:          id.NewEntryID(),
		SubjectKind: models.KindLeave,
		SubjectID:   subjectID,
		OldStatus:   from,
		NewStatus:   to,
		ActorID:     id.NewUserID(),
		Comment:     "looks fine",
		Timestamp:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresLogSuite) TestAppendChainsEntries() {
	ctx := context.Background()
	subjectID := id.NewSubjectID()

	first := s.newEntry(subjectID, models.StatusPending, models.StatusRejected)
	s.Require().NoError(s.log.Append(ctx, first))
	s.Nil(first.PrevHash, "first entry has no predecessor")
	s.NotEmpty(first.Hash)

	second := s.newEntry(subjectID, models.StatusRejected, models.StatusApproved)
	s.Require().NoError(s.log.Append(ctx, second))
	s.Equal(first.Hash, second.PrevHash, "second entry must chain onto the first")

	history, err := s.log.History(ctx, models.KindLeave, subjectID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(first.ID, history[0].ID)
	s.Equal(second.ID, history[1].ID)
	s.Equal(first.Hash, history[1].PrevHash)

	broken, err := s.log.VerifyChain(ctx, models.KindLeave, subjectID)
	s.Require().NoError(err)
	s.Equal(-1, broken)
}

func (s *PostgresLogSuite) TestChainsAreIndependentPerSubject() {
	ctx := context.Background()
	a := id.NewSubjectID()
	b := id.NewSubjectID()

	entryA := s.newEntry(a, models.StatusPending, models.StatusApproved)
	s.Require().NoError(s.log.Append(ctx, entryA))

	entryB := s.newEntry(b, models.StatusPending, models.StatusCancelled)
	s.Require().NoError(s.log.Append(ctx, entryB))
	s.Nil(entryB.PrevHash, "another subject's entries must not feed this chain")
}

func (s *PostgresLogSuite) TestVerifyChainDetectsTampering() {
	ctx := context.Background()
	subjectID := id.NewSubjectID()

	first := s.newEntry(subjectID, models.StatusPending, models.StatusRejected)
	s.Require().NoError(s.log.Append(ctx, first))
	second := s.newEntry(subjectID, models.StatusRejected, models.StatusApproved)
	s.Require().NoError(s.log.Append(ctx, second))

	// Rewrite history behind the store's back.
	_, err := s.postgres.DB.ExecContext(ctx,
		`UPDATE workflow_log SET comment = 'never happened' WHERE id = $1`,
		uuid.UUID(second.ID))
	s.Require().NoError(err)

	broken, err := s.log.VerifyChain(ctx, models.KindLeave, subjectID)
	s.Require().NoError(err)
	s.Equal(1, broken, "the edited entry should be flagged")
}

func (s *PostgresLogSuite) TestAppendWritesOutboxRow() {
	ctx := context.Background()
	subjectID := id.NewSubjectID()

	entry := s.newEntry(subjectID, models.StatusPending, models.StatusApproved)
	s.Require().NoError(s.log.Append(ctx, entry))

	var (
		aggregateID uuid.UUID
		eventType   string
		payload     []byte
		publishedAt *time.Time
	)
	err := s.postgres.DB.QueryRowContext(ctx, `
		SELECT aggregate_id, event_type, payload, published_at
		FROM outbox
	`).Scan(&aggregateID, &eventType, &payload, &publishedAt)
	s.Require().NoError(err)

	s.Equal(uuid.UUID(subjectID), aggregateID)
	s.Equal("transition_APPROVED", eventType)
	s.Nil(publishedAt, "fresh rows wait for the relay")

	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(payload, &decoded))
	s.Equal(entry.ID.String(), decoded["ID"])
	s.Equal(string(models.StatusApproved), decoded["NewStatus"])
	s.Equal(entry.ActorID.String(), decoded["ActorID"])
}
