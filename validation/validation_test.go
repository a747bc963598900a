package validation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-guest-registry/models"
	"go-guest-registry/refdata"
)

func validGuest() models.GuestRecord {
	return models.GuestRecord{
		FullName:         "MARIA FERNANDA LOPEZ",
		DocumentType:     "Cédula de Ciudadanía",
		IDNumber:         "1032456789",
		BirthDate:        birthDateYearsAgo(30),
		NationalityMode:  models.NationalityPrimary,
		Nationality:      refdata.PrimaryCountry,
		CountryOfOrigin:  "COLOMBIA",
		NextDestination:  "COLOMBIA",
		PhoneCountryCode: "57",
		Phone:            "3001234567",
		CityOfResidence:  "Santa Marta",
		IDFrontImage:     "data:image/jpeg;base64,Zm9v",
	}
}

func validRecord() models.RegistrationRecord {
	return models.RegistrationRecord{
		Property:     refdata.Properties[0],
		ContactEmail: "host@example.com",
		Guests:       []models.GuestRecord{validGuest()},
		Consents: models.ConsentFlags{
			Entry: true, Transport: true, Migration: true, DataProtection: true,
		},
		SwornStatement: true,
	}
}

func birthDateYearsAgo(years int) string {
	d := time.Now().AddDate(-years, 0, -1)
	return fmt.Sprintf("%02d/%02d/%04d", d.Day(), int(d.Month()), d.Year())
}

func TestValidateAllAcceptsCompleteRecord(t *testing.T) {
	r := validRecord()
	res := ValidateAll(&r, models.ClosureSwornStatement)
	require.True(t, res.Valid(), "unexpected errors: %v", res)
}

func TestBirthDateRules(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"adult", birthDateYearsAgo(30), true},
		{"just over fourteen", birthDateYearsAgo(15), true},
		{"under fourteen", birthDateYearsAgo(10), false},
		{"impossible calendar date", "31/02/2000", false},
		{"year before 1900", "01/01/1899", false},
		{"future year", fmt.Sprintf("01/01/%d", time.Now().Year()+1), false},
		{"wrong format", "1990-05-12", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			r.Guests[0].BirthDate = tt.value
			res := ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement)
			if tt.valid {
				require.False(t, res.Has("guests[0].birthDate"), "unexpected errors: %v", res)
			} else {
				require.True(t, res.Has("guests[0].birthDate"))
			}
		})
	}
}

func TestPhoneCrossFieldGrammar(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		phone string
		valid bool
	}{
		{"colombian mobile", "57", "3001234567", true},
		{"us number", "1", "2125551234", true},
		{"too many digits composed", "57", "123456789012345", false},
		{"leading zero code", "0", "3001234567", false},
		{"too short", "57", "123456", false},
		{"letters", "57", "30012345ab", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			r.Guests[0].PhoneCountryCode = tt.code
			r.Guests[0].Phone = tt.phone
			res := ValidateAll(&r, models.ClosureSwornStatement)
			if tt.valid {
				require.True(t, res.Valid(), "unexpected errors: %v", res)
			} else {
				require.True(t, res.Has("guests[0].phone"), "expected phone error, got: %v", res)
			}
		})
	}
}

func TestFrontImageRequiredRegardlessOfOtherFields(t *testing.T) {
	r := validRecord()
	r.Guests[0].IDFrontImage = ""
	res := ValidateStep(&r, StepIDCapture, 0, models.ClosureSwornStatement)
	require.Len(t, res, 1)
	require.Equal(t, "guests[0].idFrontImage", res[0].Path)
	require.Equal(t, KindDocumentRequired, res[0].Kind)
}

func TestFlightNumberOptionalButChecked(t *testing.T) {
	r := validRecord()
	r.Guests[0].FlightNumber = ""
	require.True(t, ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement).Valid())

	r.Guests[0].FlightNumber = "AV8402"
	require.True(t, ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement).Valid())

	r.Guests[0].FlightNumber = "AVIANCA-8402"
	res := ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement)
	require.True(t, res.Has("guests[0].flightNumber"))
}

func TestNationalityModes(t *testing.T) {
	r := validRecord()

	r.Guests[0].NationalityMode = models.NationalityOther
	r.Guests[0].Nationality = "PERU"
	require.True(t, ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement).Valid())

	r.Guests[0].Nationality = "ATLANTIS"
	require.True(t, ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement).Has("guests[0].nationality"))

	r.Guests[0].NationalityMode = models.NationalityPrimary
	r.Guests[0].Nationality = "PERU"
	require.True(t, ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement).Has("guests[0].nationality"))

	r.Guests[0].NationalityMode = "somewhere"
	require.True(t, ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement).Has("guests[0].nationalityMode"))
}

func TestConsentAndClosureStep(t *testing.T) {
	r := validRecord()
	r.Consents.Migration = false
	res := ValidateStep(&r, StepConsent, 0, models.ClosureSwornStatement)
	require.True(t, res.Has("consents.migration"))
	require.False(t, res.Has("consents.entry"))

	r = validRecord()
	r.SwornStatement = false
	res = ValidateStep(&r, StepConsent, 0, models.ClosureSwornStatement)
	require.True(t, res.Has("swornStatement"))

	// same record closes fine under the signature variant
	r.SignatureImage = "data:image/png;base64,Zm9v"
	res = ValidateStep(&r, StepConsent, 0, models.ClosureSignature)
	require.True(t, res.Valid(), "unexpected errors: %v", res)

	r.SignatureImage = ""
	res = ValidateStep(&r, StepConsent, 0, models.ClosureSignature)
	require.True(t, res.Has("signatureImage"))
}

func TestPropertyAndEmailStep(t *testing.T) {
	r := validRecord()
	r.Property = "No Such Property"
	res := ValidateStep(&r, StepPropertyContact, 0, models.ClosureSwornStatement)
	require.True(t, res.Has("property"))

	r = validRecord()
	r.ContactEmail = "not-an-email"
	res = ValidateStep(&r, StepPropertyContact, 0, models.ClosureSwornStatement)
	require.True(t, res.Has("contactEmail"))
}

func TestValidateStepOutOfRangeGuest(t *testing.T) {
	r := validRecord()
	res := ValidateStep(&r, StepIDCapture, 5, models.ClosureSwornStatement)
	require.True(t, res.Has("guests"))
}

func TestValidationIsPure(t *testing.T) {
	r := validRecord()
	before := fmt.Sprintf("%+v", r)
	_ = ValidateAll(&r, models.ClosureSwornStatement)
	_ = ValidateStep(&r, StepGuestData, 0, models.ClosureSwornStatement)
	require.Equal(t, before, fmt.Sprintf("%+v", r))
}
