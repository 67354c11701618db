// Package machine defines the legal status graph for workflow subjects.
// Structural validity is checked before authorization: it is cheaper and
// independent of who is asking.
package machine

import (
	"chrona/internal/workflow/models"
	dErrors "chrona/pkg/domain-errors"
)

// edges lists every legal transition. PENDING is the only non-terminal state,
// so the graph stays a flat table rather than per-state rule sets.
var edges = map[models.Status]map[models.Status]struct{}{
	models.StatusPending: {
		models.StatusApproved:  {},
		models.StatusRejected:  {},
		models.StatusCancelled: {},
	},
}

// Validate returns a CodeInvalidTransition error unless from->to is a legal
// edge. Self-loops are illegal like any other missing edge.
func Validate(from, to models.Status) error {
	if _, ok := edges[from][to]; ok {
		return nil
	}
	return dErrors.Newf(dErrors.CodeInvalidTransition, "no transition from %s to %s", from, to)
}

// Targets returns the statuses reachable from the given status. Used by the
// HTTP layer to describe allowed actions without duplicating the table.
func Targets(from models.Status) []models.Status {
	reachable := edges[from]
	if len(reachable) == 0 {
		return nil
	}
	out := make([]models.Status, 0, len(reachable))
	for _, to := range []models.Status{models.StatusApproved, models.StatusRejected, models.StatusCancelled} {
		if _, ok := reachable[to]; ok {
			out = append(out, to)
		}
	}
	return out
}
