// Package email derives presentation details from bare addresses. The roster
// stores addresses only, so anything shown to a recipient is computed here.
package email

import (
	"strings"
	"unicode"
)

// GreetingName derives a capitalized given name from the local part of an
// address, splitting on the usual separators ("jane.doe@example.com" yields
// "Jane"). Addresses with an opaque local part fall back to "User" rather
// than greeting someone with a token.
func GreetingName(address string) string {
	local := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		local = address[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User"
	}
	return capitalize(parts[0])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
