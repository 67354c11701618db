package identity

import (
	"context"
	"sync"

	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
	"chrona/pkg/platform/sentinel"
)

// Provider resolves the capability bundle for a caller. Backed by the external
// identity store in production; the in-memory implementation serves tests and
// single-node deployments.
type Provider interface {
	ActorFor(ctx context.Context, userID id.UserID) (Actor, error)
}

// InMemoryProvider keeps actors in a map guarded by a RWMutex.
type InMemoryProvider struct {
	mu     sync.RWMutex
	actors map[id.UserID]Actor
}

func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{actors: make(map[id.UserID]Actor)}
}

// Put stores or replaces an actor. The bundle is normalized on the way in.
func (p *InMemoryProvider) Put(actor Actor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actors[actor.UserID] = actor.Normalize()
}

func (p *InMemoryProvider) ActorFor(_ context.Context, userID id.UserID) (Actor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	actor, ok := p.actors[userID]
	if !ok {
		return Actor{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "actor not found")
	}
	return actor, nil
}

// LocaleFor returns the user's notification locale. Unknown users and users
// without a preference return "", which callers treat as the default locale.
func (p *InMemoryProvider) LocaleFor(_ context.Context, userID id.UserID) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.actors[userID].Locale, nil
}

// ApproversFor lists the users holding the approve capability for the given
// scope. Team-scoped subjects require team membership on top of org membership.
func (p *InMemoryProvider) ApproversFor(_ context.Context, orgID id.OrgID, teamID *id.TeamID) ([]id.UserID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var approvers []id.UserID
	for _, actor := range p.actors {
		if !actor.HasPermission(PermissionApprove) || !actor.InOrg(orgID) {
			continue
		}
		if teamID != nil && !actor.InTeam(*teamID) {
			continue
		}
		approvers = append(approvers, actor.UserID)
	}
	return approvers, nil
}
