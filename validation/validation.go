// Package validation checks registration records against the jurisdiction
// rules, either one wizard step at a time or as a whole record before
// submission. Validation is pure: it never mutates the record and the same
// input always yields the same result.
package validation

import (
	"fmt"
	"regexp"
	"time"

	"go-guest-registry/models"
	"go-guest-registry/refdata"
)

// Step identifies one ordered wizard step.
type Step int

const (
	StepPropertyContact Step = iota
	StepIDCapture
	StepGuestData
	StepConsent
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepPropertyContact:
		return "property_contact"
	case StepIDCapture:
		return "id_capture"
	case StepGuestData:
		return "guest_data"
	case StepConsent:
		return "consent"
	case StepReview:
		return "review"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Error kinds attached to field paths.
const (
	KindRequired            = "required"
	KindEmail               = "email"
	KindBirthDate           = "birth_date"
	KindPhone               = "phone"
	KindFlightNumber        = "flight_number"
	KindConsent             = "consent"
	KindClosure             = "closure"
	KindDocumentRequired    = "document_required"
	KindUnknownProperty     = "unknown_property"
	KindUnknownDocumentType = "unknown_document_type"
	KindUnknownCountry      = "unknown_country"
	KindNationalityMode     = "nationality_mode"
)

// FieldError is one failed rule, addressed by field path. Guest-scoped
// paths look like "guests[2].birthDate".
type FieldError struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Result is the set of failed rules; empty means valid.
type Result []FieldError

func (r Result) Valid() bool { return len(r) == 0 }

// Has reports whether any error was recorded for the given path.
func (r Result) Has(path string) bool {
	for _, e := range r {
		if e.Path == path {
			return true
		}
	}
	return false
}

// fieldSet is the closed set of field names one step governs, split by
// scope. The table below is the single source of truth for step gating.
type fieldSet struct {
	parent []string
	guest  []string
}

var stepFields = map[Step]fieldSet{
	StepPropertyContact: {parent: []string{"property", "contactEmail"}},
	StepIDCapture:       {guest: []string{"idFrontImage"}},
	StepGuestData: {guest: []string{
		"fullName", "documentType", "idNumber", "birthDate",
		"nationalityMode", "nationality", "countryOfOrigin", "nextDestination",
		"phoneCountryCode", "phone", "cityOfResidence", "flightNumber",
	}},
	StepConsent: {parent: []string{
		"consents.entry", "consents.transport", "consents.migration", "consents.dataProtection",
		"closure",
	}},
	StepReview: {},
}

var (
	emailRe     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	birthDateRe = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	phoneRe     = regexp.MustCompile(`^\d{7,15}$`)
	fullPhoneRe = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	flightRe    = regexp.MustCompile(`^[A-Za-z]{2}\d{3,4}$`)
)

// ValidateStep checks only the fields the given step governs. Guest-scoped
// steps validate the guest at the given index; an out-of-range index yields
// a single error on the guests path.
func ValidateStep(r *models.RegistrationRecord, step Step, guest int, closure models.ClosureStyle) Result {
	fields, ok := stepFields[step]
	if !ok {
		return nil
	}

	var out Result
	for _, name := range fields.parent {
		out = append(out, checkParentField(r, name, closure)...)
	}

	if len(fields.guest) > 0 {
		if guest < 0 || guest >= len(r.Guests) {
			return append(out, FieldError{Path: "guests", Kind: KindRequired})
		}
		g := &r.Guests[guest]
		for _, name := range fields.guest {
			out = append(out, checkGuestField(g, guest, name)...)
		}
	}
	return out
}

// ValidateAll checks the complete record: every parent field, every guest,
// and the cross-field composed-phone grammar.
func ValidateAll(r *models.RegistrationRecord, closure models.ClosureStyle) Result {
	var out Result

	for _, name := range stepFields[StepPropertyContact].parent {
		out = append(out, checkParentField(r, name, closure)...)
	}
	for _, name := range stepFields[StepConsent].parent {
		out = append(out, checkParentField(r, name, closure)...)
	}

	if len(r.Guests) == 0 {
		return append(out, FieldError{Path: "guests", Kind: KindRequired})
	}

	for i := range r.Guests {
		g := &r.Guests[i]
		for _, name := range stepFields[StepIDCapture].guest {
			out = append(out, checkGuestField(g, i, name)...)
		}
		for _, name := range stepFields[StepGuestData].guest {
			out = append(out, checkGuestField(g, i, name)...)
		}

		// Cross-field: the composed number must satisfy the full grammar
		// even when both halves pass their own checks.
		if phoneRe.MatchString(g.Phone) && g.PhoneCountryCode != "" {
			if !fullPhoneRe.MatchString(models.ComposePhone(g.PhoneCountryCode, g.Phone)) {
				out = append(out, FieldError{Path: guestPath(i, "phone"), Kind: KindPhone})
			}
		}
	}
	return out
}

func guestPath(i int, field string) string {
	return fmt.Sprintf("guests[%d].%s", i, field)
}

func checkParentField(r *models.RegistrationRecord, name string, closure models.ClosureStyle) Result {
	switch name {
	case "property":
		if r.Property == "" {
			return Result{{Path: name, Kind: KindRequired}}
		}
		if !refdata.IsProperty(r.Property) {
			return Result{{Path: name, Kind: KindUnknownProperty}}
		}
	case "contactEmail":
		if r.ContactEmail == "" {
			return Result{{Path: name, Kind: KindRequired}}
		}
		if !emailRe.MatchString(r.ContactEmail) {
			return Result{{Path: name, Kind: KindEmail}}
		}
	case "consents.entry":
		if !r.Consents.Entry {
			return Result{{Path: name, Kind: KindConsent}}
		}
	case "consents.transport":
		if !r.Consents.Transport {
			return Result{{Path: name, Kind: KindConsent}}
		}
	case "consents.migration":
		if !r.Consents.Migration {
			return Result{{Path: name, Kind: KindConsent}}
		}
	case "consents.dataProtection":
		if !r.Consents.DataProtection {
			return Result{{Path: name, Kind: KindConsent}}
		}
	case "closure":
		switch closure {
		case models.ClosureSignature:
			if r.SignatureImage == "" {
				return Result{{Path: "signatureImage", Kind: KindClosure}}
			}
		default:
			if !r.SwornStatement {
				return Result{{Path: "swornStatement", Kind: KindClosure}}
			}
		}
	}
	return nil
}

func checkGuestField(g *models.GuestRecord, i int, name string) Result {
	path := guestPath(i, name)

	switch name {
	case "fullName":
		if g.FullName == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
	case "documentType":
		if g.DocumentType == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
		if !refdata.IsDocumentType(g.DocumentType) {
			return Result{{Path: path, Kind: KindUnknownDocumentType}}
		}
	case "idNumber":
		if g.IDNumber == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
	case "birthDate":
		if g.BirthDate == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
		if !validBirthDate(g.BirthDate, time.Now()) {
			return Result{{Path: path, Kind: KindBirthDate}}
		}
	case "nationalityMode":
		if g.NationalityMode != models.NationalityPrimary && g.NationalityMode != models.NationalityOther {
			return Result{{Path: path, Kind: KindNationalityMode}}
		}
	case "nationality":
		if g.Nationality == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
		switch g.NationalityMode {
		case models.NationalityPrimary:
			if refdata.FoldLabel(g.Nationality) != refdata.PrimaryCountry {
				return Result{{Path: path, Kind: KindUnknownCountry}}
			}
		case models.NationalityOther:
			if !refdata.IsCountryLabel(g.Nationality) {
				return Result{{Path: path, Kind: KindUnknownCountry}}
			}
		}
	case "countryOfOrigin":
		if g.CountryOfOrigin == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
	case "nextDestination":
		if g.NextDestination == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
	case "phoneCountryCode":
		if g.PhoneCountryCode == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
	case "phone":
		if g.Phone == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
		if !phoneRe.MatchString(g.Phone) {
			return Result{{Path: path, Kind: KindPhone}}
		}
	case "cityOfResidence":
		if g.CityOfResidence == "" {
			return Result{{Path: path, Kind: KindRequired}}
		}
	case "flightNumber":
		if g.FlightNumber != "" && !flightRe.MatchString(g.FlightNumber) {
			return Result{{Path: path, Kind: KindFlightNumber}}
		}
	case "idFrontImage":
		if g.IDFrontImage == "" {
			return Result{{Path: path, Kind: KindDocumentRequired}}
		}
	}
	return nil
}

// validBirthDate accepts dd/mm/yyyy strings naming a real calendar date
// with year in [1900, current year] and a computed age of at least 14.
func validBirthDate(s string, now time.Time) bool {
	if !birthDateRe.MatchString(s) {
		return false
	}
	var day, month, year int
	if _, err := fmt.Sscanf(s, "%02d/%02d/%04d", &day, &month, &year); err != nil {
		return false
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 || year > now.Year() {
		return false
	}

	// time.Date normalizes overflow (31/02 becomes 02/03 or 03/03), so a
	// round-trip mismatch means the date never existed.
	born := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if born.Year() != year || born.Month() != time.Month(month) || born.Day() != day {
		return false
	}

	age := now.Year() - year
	if int(now.Month()) < month || (int(now.Month()) == month && now.Day() < day) {
		age--
	}
	return age >= 14
}
