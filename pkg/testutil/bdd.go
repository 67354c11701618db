package testutil

import "testing"

// Given, When, and Then wrap t.Run with a narrative prefix. Roster and
// policy tests read better as scenarios than as flat assertion lists, and
// this stays cheaper than a BDD framework.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
