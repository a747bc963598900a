package refdata

// Country is one code/label pair from the closed country list.
type Country struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Countries is the closed country list offered for the "other" nationality
// mode and the origin/destination pickers.
var Countries = []Country{
	{"AR", "Argentina"},
	{"AU", "Australia"},
	{"AT", "Austria"},
	{"BE", "Bélgica"},
	{"BO", "Bolivia"},
	{"BR", "Brasil"},
	{"CA", "Canadá"},
	{"CL", "Chile"},
	{"CN", "China"},
	{"CO", "Colombia"},
	{"KR", "Corea del Sur"},
	{"CR", "Costa Rica"},
	{"CU", "Cuba"},
	{"DK", "Dinamarca"},
	{"EC", "Ecuador"},
	{"SV", "El Salvador"},
	{"ES", "España"},
	{"US", "Estados Unidos"},
	{"FI", "Finlandia"},
	{"FR", "Francia"},
	{"DE", "Alemania"},
	{"GR", "Grecia"},
	{"GT", "Guatemala"},
	{"HN", "Honduras"},
	{"IN", "India"},
	{"ID", "Indonesia"},
	{"IE", "Irlanda"},
	{"IL", "Israel"},
	{"IT", "Italia"},
	{"JP", "Japón"},
	{"MX", "México"},
	{"NI", "Nicaragua"},
	{"NO", "Noruega"},
	{"NZ", "Nueva Zelanda"},
	{"NL", "Países Bajos"},
	{"PA", "Panamá"},
	{"PY", "Paraguay"},
	{"PE", "Perú"},
	{"PL", "Polonia"},
	{"PT", "Portugal"},
	{"GB", "Reino Unido"},
	{"CZ", "República Checa"},
	{"DO", "República Dominicana"},
	{"RU", "Rusia"},
	{"SE", "Suecia"},
	{"CH", "Suiza"},
	{"TR", "Turquía"},
	{"UA", "Ucrania"},
	{"UY", "Uruguay"},
	{"VE", "Venezuela"},
}

// IsCountryLabel reports whether label names a country from the list,
// ignoring case and accents.
func IsCountryLabel(label string) bool {
	folded := FoldLabel(label)
	for _, c := range Countries {
		if FoldLabel(c.Label) == folded {
			return true
		}
	}
	return false
}

// CountryCode returns the ISO code for a label, or "" when the label is not
// in the list.
func CountryCode(label string) string {
	folded := FoldLabel(label)
	for _, c := range Countries {
		if FoldLabel(c.Label) == folded {
			return c.Code
		}
	}
	return ""
}
