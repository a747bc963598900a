package wizard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-guest-registry/models"
	"go-guest-registry/refdata"
	"go-guest-registry/validation"
)

func birthDateYearsAgo(years int) string {
	d := time.Now().AddDate(-years, 0, -1)
	return fmt.Sprintf("%02d/%02d/%04d", d.Day(), int(d.Month()), d.Year())
}

func fillGuest(t *testing.T, s *Session, i int) {
	t.Helper()
	str := func(v string) *string { return &v }
	require.NoError(t, s.SetGuestImages(i, "data:image/jpeg;base64,Zm9v", ""))
	require.NoError(t, s.PatchGuest(i, models.GuestPatch{
		FullName:        str("CARLOS ANDRES RUIZ"),
		DocumentType:    str("Cédula de Ciudadanía"),
		IDNumber:        str("79 456 123"),
		BirthDate:       str(birthDateYearsAgo(28)),
		Phone:           str("3011234567"),
		CityOfResidence: str("Bogotá"),
	}))
}

func readySession(t *testing.T) *Session {
	t.Helper()
	s := NewSession("test-session", models.ClosureSwornStatement)
	require.NoError(t, s.SetProperty(refdata.Properties[0]))
	require.NoError(t, s.SetContactEmail("host@example.com"))
	fillGuest(t, s, 0)
	for _, c := range []string{models.ConsentEntry, models.ConsentTransport, models.ConsentMigration, models.ConsentDataProtection} {
		require.NoError(t, s.GrantConsent(c))
	}
	require.NoError(t, s.SetSwornStatement(true))
	return s
}

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession("abc", models.ClosureSwornStatement)
	require.Equal(t, validation.StepPropertyContact, s.Step)
	require.Equal(t, 0, s.ActiveGuest)
	require.Equal(t, PhaseCollecting, s.Phase)
	require.Len(t, s.Record.Guests, 1)
	require.Equal(t, models.NationalityPrimary, s.Record.Guests[0].NationalityMode)
	require.Equal(t, refdata.PrimaryCountry, s.Record.Guests[0].Nationality)
	require.Equal(t, refdata.DefaultPhoneCountryCode, s.Record.Guests[0].PhoneCountryCode)
}

func TestAdvanceBlocksOnInvalidStep(t *testing.T) {
	s := NewSession("abc", models.ClosureSwornStatement)

	res, err := s.Advance()
	require.NoError(t, err)
	require.False(t, res.Valid())
	require.Equal(t, validation.StepPropertyContact, s.Step)

	require.NoError(t, s.SetProperty(refdata.Properties[0]))
	require.NoError(t, s.SetContactEmail("host@example.com"))
	res, err = s.Advance()
	require.NoError(t, err)
	require.True(t, res.Valid())
	require.Equal(t, validation.StepIDCapture, s.Step)
}

func TestAdvanceThroughAllSteps(t *testing.T) {
	s := readySession(t)
	for want := validation.StepIDCapture; want <= validation.StepReview; want++ {
		res, err := s.Advance()
		require.NoError(t, err)
		require.True(t, res.Valid(), "step %s: %v", s.Step.String(), res)
		require.Equal(t, want, s.Step)
	}

	// advancing past review stays on review
	res, err := s.Advance()
	require.NoError(t, err)
	require.True(t, res.Valid())
	require.Equal(t, validation.StepReview, s.Step)
}

func TestRetreatNeverValidates(t *testing.T) {
	s := NewSession("abc", models.ClosureSwornStatement)
	s.Step = validation.StepGuestData

	require.NoError(t, s.Retreat())
	require.Equal(t, validation.StepIDCapture, s.Step)
	require.NoError(t, s.Retreat())
	require.NoError(t, s.Retreat())
	require.Equal(t, validation.StepPropertyContact, s.Step)
}

func TestAddGuestFocusesNewGuestAtCapture(t *testing.T) {
	s := readySession(t)
	s.Step = validation.StepReview

	require.NoError(t, s.AddGuest())
	require.Equal(t, len(s.Record.Guests)-1, s.ActiveGuest)
	require.Equal(t, 2, len(s.Record.Guests))
	require.Equal(t, validation.StepIDCapture, s.Step)
	require.Equal(t, refdata.PrimaryCountry, s.Record.Guests[1].Nationality)
}

func TestEditGuestKeepsData(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.AddGuest())
	fillGuest(t, s, 1)

	require.NoError(t, s.EditGuest(0))
	require.Equal(t, 0, s.ActiveGuest)
	require.Equal(t, validation.StepIDCapture, s.Step)
	require.Equal(t, "CARLOS ANDRES RUIZ", s.Record.Guests[0].FullName)

	require.Error(t, s.EditGuest(7))
	require.Error(t, s.EditGuest(-1))
}

func TestReturnToReview(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.AddGuest())
	require.NoError(t, s.ReturnToReview())
	require.Equal(t, 0, s.ActiveGuest)
	require.Equal(t, validation.StepReview, s.Step)
}

func TestPatchGuestNormalizes(t *testing.T) {
	s := NewSession("abc", models.ClosureSwornStatement)
	str := func(v string) *string { return &v }
	require.NoError(t, s.PatchGuest(0, models.GuestPatch{
		IDNumber:    str(" 79 456 123 "),
		Nationality: str("peru"),
	}))
	require.Equal(t, "79456123", s.Record.Guests[0].IDNumber)
	require.Equal(t, "PERU", s.Record.Guests[0].Nationality)
}

func TestGrantConsentNeverUnsets(t *testing.T) {
	s := NewSession("abc", models.ClosureSwornStatement)
	require.NoError(t, s.GrantConsent(models.ConsentEntry))
	require.True(t, s.Record.Consents.Entry)
	require.Error(t, s.GrantConsent("nonsense"))
	require.True(t, s.Record.Consents.Entry)
}

func TestClosureStyleGating(t *testing.T) {
	sworn := NewSession("a", models.ClosureSwornStatement)
	require.NoError(t, sworn.SetSwornStatement(true))
	require.Error(t, sworn.SetSignature("data:image/png;base64,Zm9v"))

	sig := NewSession("b", models.ClosureSignature)
	require.NoError(t, sig.SetSignature("data:image/png;base64,Zm9v"))
	require.Error(t, sig.SetSwornStatement(true))
}

func TestExtractionLifecycle(t *testing.T) {
	s := readySession(t)
	gen, guest, front, back, err := s.BeginExtraction()
	require.NoError(t, err)
	require.Equal(t, s.Generation, gen)
	require.Equal(t, 0, guest)
	require.NotEmpty(t, front)
	require.Empty(t, back)
	require.True(t, s.Extracting)

	// re-entrant trigger is refused while one call is in flight
	_, _, _, _, err = s.BeginExtraction()
	require.Error(t, err)

	applied := s.ApplyExtraction(gen, guest, models.ExtractedFields{FullName: "JOHN DOE"})
	require.True(t, applied)
	require.False(t, s.Extracting)
	require.Equal(t, "JOHN DOE", s.Record.Guests[0].FullName)
}

func TestExtractionMergeLeavesAbsentFieldsAlone(t *testing.T) {
	s := readySession(t)
	before := s.Record.Guests[0]

	gen, guest, _, _, err := s.BeginExtraction()
	require.NoError(t, err)
	require.True(t, s.ApplyExtraction(gen, guest, models.ExtractedFields{FullName: "JOHN DOE"}))

	after := s.Record.Guests[0]
	require.Equal(t, "JOHN DOE", after.FullName)
	after.FullName = before.FullName
	require.Equal(t, before, after)
}

func TestExtractionNationalityFlipsMode(t *testing.T) {
	s := readySession(t)
	gen, guest, _, _, err := s.BeginExtraction()
	require.NoError(t, err)
	require.True(t, s.ApplyExtraction(gen, guest, models.ExtractedFields{NationalityLabel: "Perú"}))
	require.Equal(t, models.NationalityOther, s.Record.Guests[0].NationalityMode)
	require.Equal(t, "PERÚ", s.Record.Guests[0].Nationality)
}

func TestStaleExtractionDiscardedAfterReset(t *testing.T) {
	s := readySession(t)
	gen, guest, _, _, err := s.BeginExtraction()
	require.NoError(t, err)

	s.Reset()
	require.False(t, s.ApplyExtraction(gen, guest, models.ExtractedFields{FullName: "JOHN DOE"}))
	require.Empty(t, s.Record.Guests[0].FullName)
}

func TestStaleExtractionDiscardedAfterGuestSwitch(t *testing.T) {
	s := readySession(t)
	gen, guest, _, _, err := s.BeginExtraction()
	require.NoError(t, err)

	require.NoError(t, s.AddGuest()) // focus moved to the new guest
	require.False(t, s.ApplyExtraction(gen, guest, models.ExtractedFields{FullName: "JOHN DOE"}))
	require.NotEqual(t, "JOHN DOE", s.Record.Guests[0].FullName)
	require.False(t, s.Extracting, "slot must be released even when the result is dropped")
}

func TestExtractionRequiresFrontImage(t *testing.T) {
	s := NewSession("abc", models.ClosureSwornStatement)
	_, _, _, _, err := s.BeginExtraction()
	require.Error(t, err)
	require.Contains(t, err.Error(), "front image")
}

func TestSubmissionLifecycle(t *testing.T) {
	s := readySession(t)
	gen, res, err := s.BeginSubmission()
	require.NoError(t, err)
	require.True(t, res.Valid())
	require.Equal(t, PhaseSubmitting, s.Phase)

	// re-entrant submit refused
	_, _, err = s.BeginSubmission()
	require.Error(t, err)

	ok := s.CompleteSubmission(gen, models.SubmissionOutcome{Accepted: true, StatusCode: 200, Body: []byte(`{"ok":true}`)})
	require.True(t, ok)
	require.Equal(t, PhaseSubmitted, s.Phase)
	require.JSONEq(t, `{"ok":true}`, string(s.LastOutcome.Body))
}

func TestAbortSubmissionReleasesSlot(t *testing.T) {
	s := readySession(t)
	gen, res, err := s.BeginSubmission()
	require.NoError(t, err)
	require.True(t, res.Valid())

	// stale generation leaves the in-flight slot alone
	s.AbortSubmission(gen - 1)
	require.Equal(t, PhaseSubmitting, s.Phase)

	s.AbortSubmission(gen)
	require.Equal(t, PhaseCollecting, s.Phase)

	// the slot is free again
	_, res, err = s.BeginSubmission()
	require.NoError(t, err)
	require.True(t, res.Valid())
}

func TestSubmissionFailureReturnsToReview(t *testing.T) {
	s := readySession(t)
	gen, _, err := s.BeginSubmission()
	require.NoError(t, err)

	record := s.Record
	ok := s.CompleteSubmission(gen, models.SubmissionOutcome{Accepted: false, StatusCode: 502, Error: "bad gateway"})
	require.True(t, ok)
	require.Equal(t, PhaseCollecting, s.Phase)
	require.Equal(t, validation.StepReview, s.Step)
	require.Equal(t, "bad gateway", s.ErrorNote)
	require.Equal(t, record, s.Record, "record must survive a rejected submission")
}

func TestSubmissionBlockedByValidation(t *testing.T) {
	s := readySession(t)
	s.Record.ContactEmail = "nope"
	_, res, err := s.BeginSubmission()
	require.NoError(t, err)
	require.False(t, res.Valid())
	require.Equal(t, PhaseCollecting, s.Phase)
}

func TestStaleSubmissionOutcomeDiscarded(t *testing.T) {
	s := readySession(t)
	gen, _, err := s.BeginSubmission()
	require.NoError(t, err)

	s.Reset()
	require.False(t, s.CompleteSubmission(gen, models.SubmissionOutcome{Accepted: true}))
	require.Equal(t, PhaseCollecting, s.Phase)
}

func TestResetClearsEverything(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.AddGuest())
	gen := s.Generation
	s.Reset()

	require.Equal(t, gen+1, s.Generation)
	require.Equal(t, validation.StepPropertyContact, s.Step)
	require.Equal(t, 0, s.ActiveGuest)
	require.Len(t, s.Record.Guests, 1)
	require.False(t, s.Record.Consents.AllGranted())
	require.False(t, s.Record.SwornStatement)
}

func TestMutationsRefusedAfterSubmit(t *testing.T) {
	s := readySession(t)
	gen, _, err := s.BeginSubmission()
	require.NoError(t, err)
	require.True(t, s.CompleteSubmission(gen, models.SubmissionOutcome{Accepted: true, StatusCode: 200}))

	require.Error(t, s.SetProperty("x"))
	require.Error(t, s.AddGuest())
	_, err = s.Advance()
	require.Error(t, err)

	// record retained for receipt display
	require.Equal(t, refdata.Properties[0], s.Record.Property)

	// explicit restart still works from the terminal state
	s.Reset()
	require.Equal(t, PhaseCollecting, s.Phase)
}
