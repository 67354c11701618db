package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
	"chrona/pkg/testutil"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRoster(t *testing.T) {
	owner := id.NewUserID()
	approver := id.NewUserID()
	org := id.NewOrgID()
	team := id.NewTeamID()

	testutil.Given(t, "a roster file with an owner and a team approver", func(t *testing.T) {
		path := writeRoster(t, `[
			{"user_id": "`+owner.String()+`", "email": "owner@example.com", "org_id": "`+org.String()+`", "locale": "DE"},
			{"user_id": "`+approver.String()+`", "email": "approver@example.com", "roles": ["Manager"],
			 "permissions": ["Workflow:Approve"], "org_id": "`+org.String()+`", "team_ids": ["`+team.String()+`"]}
		]`)

		testutil.When(t, "the roster is loaded", func(t *testing.T) {
			provider, addresses, err := LoadRoster(path)
			require.NoError(t, err)

			testutil.Then(t, "both users resolve with normalized capabilities", func(t *testing.T) {
				ctx := context.Background()

				actor, err := provider.ActorFor(ctx, approver)
				require.NoError(t, err)
				assert.True(t, actor.HasPermission(PermissionApprove))
				assert.Equal(t, []string{"manager"}, actor.Roles)
				assert.True(t, actor.InTeam(team))

				plain, err := provider.ActorFor(ctx, owner)
				require.NoError(t, err)
				assert.False(t, plain.HasPermission(PermissionApprove))
			})

			testutil.Then(t, "locale preferences are normalized and served", func(t *testing.T) {
				ctx := context.Background()

				loc, err := provider.LocaleFor(ctx, owner)
				require.NoError(t, err)
				assert.Equal(t, "de", loc)

				loc, err = provider.LocaleFor(ctx, approver)
				require.NoError(t, err)
				assert.Empty(t, loc)
			})

			testutil.Then(t, "the address book serves both emails", func(t *testing.T) {
				ctx := context.Background()

				address, err := addresses.EmailFor(ctx, owner)
				require.NoError(t, err)
				assert.Equal(t, "owner@example.com", address)

				_, err = addresses.EmailFor(ctx, id.NewUserID())
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
			})
		})
	})
}

func TestLoadRosterRejectsBadEntries(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadRoster(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := writeRoster(t, `{"not": "a list"`)
		_, _, err := LoadRoster(path)
		require.Error(t, err)
	})

	t.Run("invalid user id", func(t *testing.T) {
		path := writeRoster(t, `[{"user_id": "nope", "org_id": "`+id.NewOrgID().String()+`"}]`)
		_, _, err := LoadRoster(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "roster entry 0")
	})

	t.Run("invalid team id", func(t *testing.T) {
		path := writeRoster(t, `[{"user_id": "`+id.NewUserID().String()+`",
			"org_id": "`+id.NewOrgID().String()+`", "team_ids": ["bad"]}]`)
		_, _, err := LoadRoster(path)
		require.Error(t, err)
	})
}
