package models

import "strings"

// ComposePhone builds the full E.164-style number from a dialing code and
// the raw national digits. A redundant "+<code>" prefix already present in
// the raw value is stripped first so it never gets doubled.
func ComposePhone(countryCode, raw string) string {
	code := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	digits := strings.TrimSpace(raw)
	digits = strings.TrimPrefix(digits, "+"+code)
	digits = strings.TrimPrefix(digits, "+")
	return "+" + code + digits
}
