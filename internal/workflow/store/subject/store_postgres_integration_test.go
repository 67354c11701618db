//go:build integration

package subject_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chrona/internal/workflow/models"
	"chrona/internal/workflow/store/subject"
	id "chrona/pkg/domain"
	"chrona/pkg/platform/sentinel"
	"chrona/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *subject.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = subject.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func newPendingSubject(kind models.Kind) *models.Subject {
	now := time.Now().UTC().Truncate(time.Microsecond)
	teamID := id.NewTeamID()
	return &models.Subject{
		ID:        id.NewSubjectID(),
		Kind:      kind,
		OwnerID:   id.NewUserID(),
		OrgID:     id.NewOrgID(),
		TeamID:    &teamID,
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
		Category:  "annual leave",
		Notes:     "spring break",
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	sub := newPendingSubject(models.KindLeave)
	s.Require().NoError(s.store.Create(ctx, sub))

	found, err := s.store.FindByRef(ctx, models.Ref{Kind: sub.Kind, ID: sub.ID})
	s.Require().NoError(err)
	s.Equal(sub.ID, found.ID)
	s.Equal(sub.OwnerID, found.OwnerID)
	s.Equal(sub.OrgID, found.OrgID)
	s.Require().NotNil(found.TeamID)
	s.Equal(*sub.TeamID, *found.TeamID)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("annual leave", found.Category)
	s.Equal(int64(1), found.Version)
	s.Nil(found.ApproverID)
	s.Nil(found.ApprovedAt)
	s.True(found.StartDate.Equal(sub.StartDate), "start date should survive the round trip")
}

func (s *PostgresStoreSuite) TestFindByRefUnknownSubject() {
	_, err := s.store.FindByRef(context.Background(), models.Ref{
		Kind: models.KindAttendance,
		ID:   id.NewSubjectID(),
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByRefKindMismatch() {
	ctx := context.Background()
	sub := newPendingSubject(models.KindLeave)
	s.Require().NoError(s.store.Create(ctx, sub))

	// Same id under the wrong kind must not resolve.
	_, err := s.store.FindByRef(ctx, models.Ref{Kind: models.KindAttendance, ID: sub.ID})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateStatusBumpsVersion() {
	ctx := context.Background()
	sub := newPendingSubject(models.KindLeave)
	s.Require().NoError(s.store.Create(ctx, sub))

	approver := id.NewUserID()
	now := time.Now().UTC().Truncate(time.Microsecond)
	sub.Status = models.StatusApproved
	sub.ApproverID = &approver
	sub.ApprovedAt = &now
	sub.UpdatedAt = now

	s.Require().NoError(s.store.UpdateStatusIfCurrent(ctx, sub, 1))
	s.Equal(int64(2), sub.Version)

	found, err := s.store.FindByRef(ctx, models.Ref{Kind: sub.Kind, ID: sub.ID})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)
	s.Equal(int64(2), found.Version)
	s.Require().NotNil(found.ApproverID)
	s.Equal(approver, *found.ApproverID)
	s.Require().NotNil(found.ApprovedAt)
}

func (s *PostgresStoreSuite) TestUpdateStatusStaleVersion() {
	ctx := context.Background()
	sub := newPendingSubject(models.KindAttendance)
	s.Require().NoError(s.store.Create(ctx, sub))

	winner := *sub
	winner.Status = models.StatusApproved
	s.Require().NoError(s.store.UpdateStatusIfCurrent(ctx, &winner, 1))

	loser := *sub
	loser.Status = models.StatusRejected
	err := s.store.UpdateStatusIfCurrent(ctx, &loser, 1)
	s.ErrorIs(err, sentinel.ErrConflict)

	found, err := s.store.FindByRef(ctx, models.Ref{Kind: sub.Kind, ID: sub.ID})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status, "losing write must not overwrite the winner")
}

func (s *PostgresStoreSuite) TestUpdateStatusUnknownSubject() {
	sub := newPendingSubject(models.KindLeave)
	sub.Status = models.StatusApproved
	err := s.store.UpdateStatusIfCurrent(context.Background(), sub, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentStatusWrites verifies that racing commits against the same
// version resolve to exactly one winner at the database level.
func (s *PostgresStoreSuite) TestConcurrentStatusWrites() {
	ctx := context.Background()
	sub := newPendingSubject(models.KindLeave)
	s.Require().NoError(s.store.Create(ctx, sub))

	const goroutines = 16
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			attempt := *sub
			if n%2 == 0 {
				attempt.Status = models.StatusApproved
			} else {
				attempt.Status = models.StatusRejected
			}
			attempt.UpdatedAt = time.Now().UTC()
			err := s.store.UpdateStatusIfCurrent(ctx, &attempt, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one write should win")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should lose the version race")

	found, err := s.store.FindByRef(ctx, models.Ref{Kind: sub.Kind, ID: sub.ID})
	s.Require().NoError(err)
	s.Equal(int64(2), found.Version)
}

func (s *PostgresStoreSuite) TestSoftDeleteHidesSubject() {
	ctx := context.Background()
	sub := newPendingSubject(models.KindLeave)
	s.Require().NoError(s.store.Create(ctx, sub))

	ref := models.Ref{Kind: sub.Kind, ID: sub.ID}
	s.Require().NoError(s.store.SoftDelete(ctx, ref, time.Now().UTC()))

	_, err := s.store.FindByRef(ctx, ref)
	s.ErrorIs(err, sentinel.ErrNotFound)

	// Deleting twice is a not-found, not a silent success.
	err = s.store.SoftDelete(ctx, ref, time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrNotFound)

	// The row itself survives for the audit trail.
	var count int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subjects WHERE id = $1`, uuid.UUID(sub.ID)).Scan(&count))
	s.Equal(1, count)
}
