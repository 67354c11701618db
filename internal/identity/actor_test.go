package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
)

// Justification for unit tests: Actor normalization and the provider's scope
// filtering are pure logic the authorization policy depends on. A permission
// name that survives in mixed case or an approver leaking across teams would
// silently widen access.
type ActorSuite struct {
	suite.Suite
}

func TestActorSuite(t *testing.T) {
	suite.Run(t, new(ActorSuite))
}

// =============================================================================
// Normalization
// =============================================================================

func (s *ActorSuite) TestNormalizeDedupesAndLowercases() {
	actor := Actor{
		UserID:      id.NewUserID(),
		Roles:       []string{" Manager ", "manager", "EMPLOYEE"},
		Permissions: []string{"Workflow:Approve", "workflow:approve", ""},
		Locale:      " DE ",
	}.Normalize()

	s.Equal([]string{"manager", "employee"}, actor.Roles)
	s.Equal([]string{"workflow:approve"}, actor.Permissions)
	s.Equal("de", actor.Locale)
	s.True(actor.HasPermission(PermissionApprove))
}

func (s *ActorSuite) TestHasPermissionIsExact() {
	actor := Actor{Permissions: []string{"workflow:approve"}}
	s.True(actor.HasPermission("workflow:approve"))
	s.False(actor.HasPermission("workflow"))
	s.False(actor.HasPermission("workflow:approve:all"))
}

func (s *ActorSuite) TestMembershipChecks() {
	org := id.NewOrgID()
	team := id.NewTeamID()
	actor := Actor{OrgID: org, TeamIDs: []id.TeamID{team}}

	s.True(actor.InOrg(org))
	s.False(actor.InOrg(id.NewOrgID()))
	s.True(actor.InTeam(team))
	s.False(actor.InTeam(id.NewTeamID()))
}

// =============================================================================
// In-memory provider
// =============================================================================

func (s *ActorSuite) TestActorForUnknownUser() {
	provider := NewInMemoryProvider()
	_, err := provider.ActorFor(context.Background(), id.NewUserID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ActorSuite) TestPutNormalizesOnTheWayIn() {
	provider := NewInMemoryProvider()
	userID := id.NewUserID()
	provider.Put(Actor{UserID: userID, Permissions: []string{"Workflow:Approve"}})

	actor, err := provider.ActorFor(context.Background(), userID)
	s.Require().NoError(err)
	s.True(actor.HasPermission(PermissionApprove))
}

func (s *ActorSuite) TestApproversForScopesByOrgAndTeam() {
	ctx := context.Background()
	provider := NewInMemoryProvider()
	org := id.NewOrgID()
	team := id.NewTeamID()

	orgApprover := id.NewUserID()
	provider.Put(Actor{UserID: orgApprover, OrgID: org, Permissions: []string{PermissionApprove}})

	teamApprover := id.NewUserID()
	provider.Put(Actor{UserID: teamApprover, OrgID: org, TeamIDs: []id.TeamID{team}, Permissions: []string{PermissionApprove}})

	// Holds the capability but sits in another org.
	provider.Put(Actor{UserID: id.NewUserID(), OrgID: id.NewOrgID(), Permissions: []string{PermissionApprove}})

	// In scope but without the capability.
	provider.Put(Actor{UserID: id.NewUserID(), OrgID: org, TeamIDs: []id.TeamID{team}})

	s.Run("org-scoped lookup includes every approver in the org", func() {
		approvers, err := provider.ApproversFor(ctx, org, nil)
		s.Require().NoError(err)
		s.ElementsMatch([]id.UserID{orgApprover, teamApprover}, approvers)
	})

	s.Run("team-scoped lookup requires team membership", func() {
		approvers, err := provider.ApproversFor(ctx, org, &team)
		s.Require().NoError(err)
		s.Equal([]id.UserID{teamApprover}, approvers)
	})
}
