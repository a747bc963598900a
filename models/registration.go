package models

import "strings"

// NationalityMode selects how a guest's nationality is sourced: "primary"
// pins it to the primary country, "other" requires a pick from the country
// list.
const (
	NationalityPrimary = "primary"
	NationalityOther   = "other"
)

// ClosureStyle selects which consent-closure artifact finalizes the record.
// The two styles are mutually exclusive product variants.
type ClosureStyle string

const (
	ClosureSwornStatement ClosureStyle = "sworn_statement"
	ClosureSignature      ClosureStyle = "signature"
)

// Consent flag names as they appear in field paths and the wire payload.
const (
	ConsentEntry          = "entry"
	ConsentTransport      = "transport"
	ConsentMigration      = "migration"
	ConsentDataProtection = "dataProtection"
)

type ConsentFlags struct {
	Entry          bool `json:"entry"`
	Transport      bool `json:"transport"`
	Migration      bool `json:"migration"`
	DataProtection bool `json:"dataProtection"`
}

// AllGranted reports whether every consent flag is literally true.
func (c ConsentFlags) AllGranted() bool {
	return c.Entry && c.Transport && c.Migration && c.DataProtection
}

// GuestRecord holds one person's identity, travel, and contact data plus the
// captured ID imagery. Image fields are self-contained data URIs.
type GuestRecord struct {
	FullName         string `json:"fullName"`
	DocumentType     string `json:"documentType"`
	IDNumber         string `json:"idNumber"`
	BirthDate        string `json:"birthDate"` // dd/mm/yyyy
	NationalityMode  string `json:"nationalityMode"`
	Nationality      string `json:"nationality"`
	CountryOfOrigin  string `json:"countryOfOrigin"`
	NextDestination  string `json:"nextDestination"`
	PhoneCountryCode string `json:"phoneCountryCode"`
	Phone            string `json:"phone"`
	CityOfResidence  string `json:"cityOfResidence"`
	FlightNumber     string `json:"flightNumber,omitempty"`
	IDFrontImage     string `json:"idFrontImage"`
	IDBackImage      string `json:"idBackImage,omitempty"`
}

// Normalize applies the field normalizations the record guarantees: the ID
// number loses all whitespace and is upper-cased, country labels are
// upper-cased.
func (g *GuestRecord) Normalize() {
	g.IDNumber = strings.ToUpper(strings.Join(strings.Fields(g.IDNumber), ""))
	g.Nationality = strings.ToUpper(strings.TrimSpace(g.Nationality))
	g.CountryOfOrigin = strings.ToUpper(strings.TrimSpace(g.CountryOfOrigin))
	g.NextDestination = strings.ToUpper(strings.TrimSpace(g.NextDestination))
}

// GuestPatch is a set-if-present update for a GuestRecord. Nil fields leave
// the existing value untouched.
type GuestPatch struct {
	FullName         *string `json:"fullName,omitempty"`
	DocumentType     *string `json:"documentType,omitempty"`
	IDNumber         *string `json:"idNumber,omitempty"`
	BirthDate        *string `json:"birthDate,omitempty"`
	NationalityMode  *string `json:"nationalityMode,omitempty"`
	Nationality      *string `json:"nationality,omitempty"`
	CountryOfOrigin  *string `json:"countryOfOrigin,omitempty"`
	NextDestination  *string `json:"nextDestination,omitempty"`
	PhoneCountryCode *string `json:"phoneCountryCode,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	CityOfResidence  *string `json:"cityOfResidence,omitempty"`
	FlightNumber     *string `json:"flightNumber,omitempty"`
}

// Apply copies every present patch field onto the guest and re-normalizes.
func (p GuestPatch) Apply(g *GuestRecord) {
	setIfPresent(&g.FullName, p.FullName)
	setIfPresent(&g.DocumentType, p.DocumentType)
	setIfPresent(&g.IDNumber, p.IDNumber)
	setIfPresent(&g.BirthDate, p.BirthDate)
	setIfPresent(&g.NationalityMode, p.NationalityMode)
	setIfPresent(&g.Nationality, p.Nationality)
	setIfPresent(&g.CountryOfOrigin, p.CountryOfOrigin)
	setIfPresent(&g.NextDestination, p.NextDestination)
	setIfPresent(&g.PhoneCountryCode, p.PhoneCountryCode)
	setIfPresent(&g.Phone, p.Phone)
	setIfPresent(&g.CityOfResidence, p.CityOfResidence)
	setIfPresent(&g.FlightNumber, p.FlightNumber)
	g.Normalize()
}

func setIfPresent(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// RegistrationRecord is the single shared record for one wizard session: the
// property, contact, consent closure, and every guest being registered.
type RegistrationRecord struct {
	Property       string        `json:"property"`
	ContactEmail   string        `json:"contactEmail"`
	Guests         []GuestRecord `json:"guests"`
	Consents       ConsentFlags  `json:"consents"`
	SwornStatement bool          `json:"swornStatement"`
	SignatureImage string        `json:"signatureImage,omitempty"`
}
