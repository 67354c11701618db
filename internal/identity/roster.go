package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
	"chrona/pkg/platform/sentinel"
)

// rosterEntry is the on-disk shape of one user in the roster file.
type rosterEntry struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	OrgID       string   `json:"org_id"`
	TeamIDs     []string `json:"team_ids,omitempty"`
	Locale      string   `json:"locale,omitempty"`
}

// StaticAddressBook resolves recipient email addresses from a fixed map.
type StaticAddressBook struct {
	mu        sync.RWMutex
	addresses map[id.UserID]string
}

func NewStaticAddressBook() *StaticAddressBook {
	return &StaticAddressBook{addresses: make(map[id.UserID]string)}
}

// Put stores or replaces an address.
func (b *StaticAddressBook) Put(userID id.UserID, address string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses[userID] = address
}

func (b *StaticAddressBook) EmailFor(_ context.Context, userID id.UserID) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	address, ok := b.addresses[userID]
	if !ok || address == "" {
		return "", dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "no address for recipient")
	}
	return address, nil
}

// LoadRoster reads a JSON roster file and returns a populated provider and
// address book. Single-node deployments point CHRONA_ROSTER_FILE at it; a
// production deployment replaces the provider with the directory service.
func LoadRoster(path string) (*InMemoryProvider, *StaticAddressBook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read roster file: %w", err)
	}

	var entries []rosterEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, fmt.Errorf("parse roster file: %w", err)
	}

	provider := NewInMemoryProvider()
	addresses := NewStaticAddressBook()
	for i, entry := range entries {
		userID, err := id.ParseUserID(entry.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
		orgID, err := id.ParseOrgID(entry.OrgID)
		if err != nil {
			return nil, nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
		teamIDs := make([]id.TeamID, 0, len(entry.TeamIDs))
		for _, rawTeam := range entry.TeamIDs {
			teamID, err := id.ParseTeamID(rawTeam)
			if err != nil {
				return nil, nil, fmt.Errorf("roster entry %d: %w", i, err)
			}
			teamIDs = append(teamIDs, teamID)
		}

		provider.Put(Actor{
			UserID:      userID,
			Roles:       entry.Roles,
			Permissions: entry.Permissions,
			OrgID:       orgID,
			TeamIDs:     teamIDs,
			Locale:      entry.Locale,
		})
		if entry.Email != "" {
			addresses.Put(userID, entry.Email)
		}
	}
	return provider, addresses, nil
}
