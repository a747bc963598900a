// Package refdata holds the closed reference lists the registration flow
// validates against: property names, accepted document types, and the
// country list. All of it is static read-only data.
package refdata

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PrimaryCountry is the label the "primary" nationality mode pins a guest
// to, matching the jurisdiction the registration rules were written for.
const PrimaryCountry = "COLOMBIA"

// DefaultPhoneCountryCode is the dialing code pre-filled for new guests.
const DefaultPhoneCountryCode = "57"

// Properties is the closed set of properties a registration may be filed
// for.
var Properties = []string{
	"Casa Verde Santa Marta",
	"Casa Verde Tayrona",
	"Hostal Mirador del Parque",
	"Apartamentos Rodadero Sur",
	"Finca La Esperanza",
	"Cabañas Palomino Beach",
}

// DocumentTypes is the closed set of accepted identity document labels.
var DocumentTypes = []string{
	"Cédula de Ciudadanía",
	"Cédula de Extranjería",
	"Pasaporte",
	"Permiso de Protección Temporal",
}

// IsProperty reports whether name is one of the known properties.
func IsProperty(name string) bool {
	for _, p := range Properties {
		if p == name {
			return true
		}
	}
	return false
}

// IsDocumentType reports whether label is one of the accepted document
// types. Matching is accent- and case-insensitive since extraction services
// tend to return the label without diacritics.
func IsDocumentType(label string) bool {
	folded := FoldLabel(label)
	for _, d := range DocumentTypes {
		if FoldLabel(d) == folded {
			return true
		}
	}
	return false
}

// FoldLabel strips diacritics, trims, and upper-cases a label so that
// "Perú", "PERU " and "peru" all compare equal.
func FoldLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}
