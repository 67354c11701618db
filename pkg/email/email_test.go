package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreetingName(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{
			name:     "dotted local part uses the first segment",
			address:  "jane.doe@example.com",
			expected: "Jane",
		},
		{
			name:     "plain local part",
			address:  "ahmed@example.com",
			expected: "Ahmed",
		},
		{
			name:     "underscore separator",
			address:  "mei_lin@example.com",
			expected: "Mei",
		},
		{
			name:     "plus tag is a separator",
			address:  "sam+approvals@example.com",
			expected: "Sam",
		},
		{
			name:     "already capitalized stays capitalized",
			address:  "Priya@example.com",
			expected: "Priya",
		},
		{
			name:     "no at sign still derives from the whole string",
			address:  "jordan.reyes",
			expected: "Jordan",
		},
		{
			name:     "only separators falls back",
			address:  "...@example.com",
			expected: "User",
		},
		{
			name:     "empty address falls back",
			address:  "",
			expected: "User",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GreetingName(tt.address))
		})
	}
}
