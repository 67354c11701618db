// Package policy decides whether an actor may perform a transition on a
// subject. Rules are evaluated in order, first match wins; every denial is an
// inspectable error, never a silent no-op.
package policy

import (
	"chrona/internal/identity"
	"chrona/internal/workflow/models"
	dErrors "chrona/pkg/domain-errors"
)

// Policy is stateless; it exists as a type so services can depend on an
// interface and tests can substitute rule sets.
type Policy struct{}

func New() *Policy { return &Policy{} }

// CanTransition returns nil when the actor may perform from->to on subject,
// or a CodeForbidden error naming the actor and the attempted edge.
//
// Rules:
//  1. The owner may cancel their own pending subject, and nothing else.
//  2. A holder of the approve capability scoped to the subject's org (and
//     team, when the subject has one) may approve or reject pending subjects
//     in that scope - but never their own. Self-approval is denied regardless
//     of roles.
//  3. Everything else is denied, including any edge out of a terminal status.
func (p *Policy) CanTransition(actor identity.Actor, subject *models.Subject, from, to models.Status) error {
	deny := func(reason string) error {
		return dErrors.Newf(dErrors.CodeForbidden,
			"actor %s may not transition subject %s from %s to %s: %s",
			actor.UserID, subject.ID, from, to, reason)
	}

	if subject.Owned(actor.UserID) {
		if from == models.StatusPending && to == models.StatusCancelled {
			return nil
		}
		return deny("owners may only cancel pending subjects")
	}

	if from == models.StatusPending && (to == models.StatusApproved || to == models.StatusRejected) {
		if !actor.HasPermission(identity.PermissionApprove) {
			return deny("missing approve capability")
		}
		if !actor.InOrg(subject.OrgID) {
			return deny("approve capability not scoped to subject organization")
		}
		if subject.TeamID != nil && !actor.InTeam(*subject.TeamID) {
			return deny("approve capability not scoped to subject team")
		}
		return nil
	}

	return deny("transition not permitted for this actor")
}
