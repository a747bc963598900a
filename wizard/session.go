// Package wizard drives one registration session: ordered steps, the guest
// currently in focus, validation gating on every forward move, and the
// extraction/submission lifecycles. A Session is the only mutator of its
// RegistrationRecord; everything external (extraction, submission) talks to
// it through begin/complete pairs keyed by generation so stale results from
// an abandoned run can never land on fresh state.
package wizard

import (
	"fmt"
	"log/slog"

	"go-guest-registry/models"
	"go-guest-registry/refdata"
	"go-guest-registry/validation"
)

// Phase is the coarse session state around the ordered steps.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
)

// Session is the whole wizard state. All fields are exported so a session
// snapshot serializes to JSON for the session storage and back.
type Session struct {
	ID           string                    `json:"id"`
	Generation   int                       `json:"generation"`
	Step         validation.Step           `json:"step"`
	ActiveGuest  int                       `json:"active_guest"`
	Phase        Phase                     `json:"phase"`
	Closure      models.ClosureStyle       `json:"closure"`
	Record       models.RegistrationRecord `json:"record"`
	Extracting   bool                      `json:"extracting"`
	ErrorNote    string                    `json:"error_note,omitempty"`
	LastErrors   validation.Result         `json:"last_errors,omitempty"`
	LastOutcome  *models.SubmissionOutcome `json:"last_outcome,omitempty"`
	ReceiptToken string                    `json:"receipt_token,omitempty"`
}

// DefaultGuest returns a fresh guest pre-filled the way a new sub-record
// starts: primary nationality pinned to the primary country and the default
// dialing code.
func DefaultGuest() models.GuestRecord {
	return models.GuestRecord{
		NationalityMode:  models.NationalityPrimary,
		Nationality:      refdata.PrimaryCountry,
		CountryOfOrigin:  refdata.PrimaryCountry,
		NextDestination:  refdata.PrimaryCountry,
		PhoneCountryCode: refdata.DefaultPhoneCountryCode,
	}
}

// NewSession creates a session at the first step with one default guest.
func NewSession(id string, closure models.ClosureStyle) *Session {
	if closure == "" {
		closure = models.ClosureSwornStatement
	}
	return &Session{
		ID:          id,
		Generation:  1,
		Step:        validation.StepPropertyContact,
		ActiveGuest: 0,
		Phase:       PhaseCollecting,
		Closure:     closure,
		Record: models.RegistrationRecord{
			Guests: []models.GuestRecord{DefaultGuest()},
		},
	}
}

// Reset reinitializes the session to its starting state. The generation
// bump invalidates every in-flight external result.
func (s *Session) Reset() {
	slog.Info("Resetting wizard session", "session_id", s.ID, "generation", s.Generation)
	s.Generation++
	s.Step = validation.StepPropertyContact
	s.ActiveGuest = 0
	s.Phase = PhaseCollecting
	s.Record = models.RegistrationRecord{Guests: []models.GuestRecord{DefaultGuest()}}
	s.Extracting = false
	s.ErrorNote = ""
	s.LastErrors = nil
	s.LastOutcome = nil
	s.ReceiptToken = ""
}

// Advance validates the current step for the active guest and moves one
// step forward when it passes. On failure the session stays put and the
// field errors are returned, never dropped.
func (s *Session) Advance() (validation.Result, error) {
	if err := s.requireCollecting(); err != nil {
		return nil, err
	}

	res := validation.ValidateStep(&s.Record, s.Step, s.ActiveGuest, s.Closure)
	s.LastErrors = res
	if !res.Valid() {
		slog.Debug("Step validation failed", "session_id", s.ID, "step", s.Step.String(), "errors", len(res))
		return res, nil
	}

	if s.Step < validation.StepReview {
		s.Step++
	}
	slog.Debug("Advanced to step", "session_id", s.ID, "step", s.Step.String())
	return nil, nil
}

// Retreat moves one step back without validating.
func (s *Session) Retreat() error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	if s.Step > validation.StepPropertyContact {
		s.Step--
	}
	return nil
}

// AddGuest appends a default guest, focuses it, and forces the session back
// to the ID-capture step: every new guest re-enters through capture. The
// append happens before the index move so ActiveGuest never points past the
// end of the slice.
func (s *Session) AddGuest() error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	s.Record.Guests = append(s.Record.Guests, DefaultGuest())
	s.ActiveGuest = len(s.Record.Guests) - 1
	s.Step = validation.StepIDCapture
	slog.Info("Guest added", "session_id", s.ID, "guest_index", s.ActiveGuest, "guest_count", len(s.Record.Guests))
	return nil
}

// EditGuest focuses an existing guest and re-enters at the ID-capture step.
// Captured images and data stay until overwritten.
func (s *Session) EditGuest(i int) error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.Record.Guests) {
		return fmt.Errorf("guest index %d out of range (have %d guests)", i, len(s.Record.Guests))
	}
	s.ActiveGuest = i
	s.Step = validation.StepIDCapture
	return nil
}

// ReturnToReview refocuses the first guest and jumps to the review step.
func (s *Session) ReturnToReview() error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	s.ActiveGuest = 0
	s.Step = validation.StepReview
	return nil
}

// --- field updates -----------------------------------------------------------

func (s *Session) SetProperty(name string) error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	s.Record.Property = name
	return nil
}

func (s *Session) SetContactEmail(email string) error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	s.Record.ContactEmail = email
	return nil
}

// PatchGuest applies a set-if-present update to one guest.
func (s *Session) PatchGuest(i int, patch models.GuestPatch) error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.Record.Guests) {
		return fmt.Errorf("guest index %d out of range (have %d guests)", i, len(s.Record.Guests))
	}
	patch.Apply(&s.Record.Guests[i])
	return nil
}

// SetGuestImages stores the captured ID imagery for one guest. Empty
// arguments leave the corresponding side untouched.
func (s *Session) SetGuestImages(i int, front, back string) error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.Record.Guests) {
		return fmt.Errorf("guest index %d out of range (have %d guests)", i, len(s.Record.Guests))
	}
	if front != "" {
		s.Record.Guests[i].IDFrontImage = front
	}
	if back != "" {
		s.Record.Guests[i].IDBackImage = back
	}
	return nil
}

// GrantConsent sets one named consent flag to true. Consents are never
// silently unset; only Reset clears them.
func (s *Session) GrantConsent(name string) error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	switch name {
	case models.ConsentEntry:
		s.Record.Consents.Entry = true
	case models.ConsentTransport:
		s.Record.Consents.Transport = true
	case models.ConsentMigration:
		s.Record.Consents.Migration = true
	case models.ConsentDataProtection:
		s.Record.Consents.DataProtection = true
	default:
		return fmt.Errorf("unknown consent flag: %s", name)
	}
	return nil
}

// SetSwornStatement records the sworn-statement closure artifact.
func (s *Session) SetSwornStatement(affirmed bool) error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	if s.Closure != models.ClosureSwornStatement {
		return fmt.Errorf("session closes with %s, not a sworn statement", s.Closure)
	}
	s.Record.SwornStatement = affirmed
	return nil
}

// SetSignature records the signature-image closure artifact.
func (s *Session) SetSignature(image string) error {
	if err := s.requireCollecting(); err != nil {
		return err
	}
	if s.Closure != models.ClosureSignature {
		return fmt.Errorf("session closes with %s, not a signature", s.Closure)
	}
	s.Record.SignatureImage = image
	return nil
}

// --- extraction lifecycle ----------------------------------------------------

// BeginExtraction reserves the single extraction slot and hands out the
// (generation, guest) key the result must be applied with, plus the images
// to send. Fails when a call is already in flight or the active guest has
// no front image yet.
func (s *Session) BeginExtraction() (gen int, guest int, front string, back string, err error) {
	if err := s.requireCollecting(); err != nil {
		return 0, 0, "", "", err
	}
	if s.Extracting {
		return 0, 0, "", "", fmt.Errorf("extraction already in flight")
	}
	g := &s.Record.Guests[s.ActiveGuest]
	if g.IDFrontImage == "" {
		return 0, 0, "", "", fmt.Errorf("front image required before extraction")
	}
	s.Extracting = true
	return s.Generation, s.ActiveGuest, g.IDFrontImage, g.IDBackImage, nil
}

// ApplyExtraction merges extracted fields onto the guest the call was
// started for. Fields absent from the response never overwrite existing
// values. The result is discarded when the session has since been reset or
// the focus moved to another guest; the return value reports whether the
// merge happened.
func (s *Session) ApplyExtraction(gen, guest int, f models.ExtractedFields) bool {
	if gen == s.Generation {
		s.Extracting = false
	}
	if gen != s.Generation || s.Phase != PhaseCollecting || guest != s.ActiveGuest {
		slog.Info("Discarding stale extraction result",
			"session_id", s.ID, "result_generation", gen, "generation", s.Generation,
			"result_guest", guest, "active_guest", s.ActiveGuest)
		return false
	}

	g := &s.Record.Guests[guest]
	if f.FullName != "" {
		g.FullName = f.FullName
	}
	if f.DocumentType != "" {
		g.DocumentType = f.DocumentType
	}
	if f.IdentificationNumber != "" {
		g.IDNumber = f.IdentificationNumber
	}
	if f.BirthdateDDMMYYYY != "" {
		g.BirthDate = f.BirthdateDDMMYYYY
	}
	if f.NationalityLabel != "" {
		// the service reports what it saw; the mode follows the label
		g.NationalityMode = models.NationalityOther
		g.Nationality = f.NationalityLabel
	}
	g.Normalize()

	slog.Info("Extraction result merged", "session_id", s.ID, "guest_index", guest)
	return true
}

// AbortExtraction releases the extraction slot after a failed or abandoned
// call for the given generation.
func (s *Session) AbortExtraction(gen int) {
	if gen == s.Generation {
		s.Extracting = false
	}
}

// --- submission lifecycle ----------------------------------------------------

// BeginSubmission validates the whole record and moves the session to
// SUBMITTING. A validation failure keeps the session where it is and
// returns the field errors.
func (s *Session) BeginSubmission() (int, validation.Result, error) {
	switch s.Phase {
	case PhaseSubmitting:
		return 0, nil, fmt.Errorf("submission already in flight")
	case PhaseSubmitted:
		return 0, nil, fmt.Errorf("session already submitted")
	}

	res := validation.ValidateAll(&s.Record, s.Closure)
	s.LastErrors = res
	if !res.Valid() {
		return 0, res, nil
	}

	s.Phase = PhaseSubmitting
	s.ErrorNote = ""
	slog.Info("Submission started", "session_id", s.ID, "guest_count", len(s.Record.Guests))
	return s.Generation, nil, nil
}

// AbortSubmission releases the submission slot for the given generation
// without landing an outcome, e.g. when the delivery never started.
func (s *Session) AbortSubmission(gen int) {
	if gen == s.Generation && s.Phase == PhaseSubmitting {
		s.Phase = PhaseCollecting
	}
}

// CompleteSubmission lands the sink's outcome. Accepted outcomes make the
// session terminal; rejected ones put it back on the review step with the
// error annotation, record intact. Outcomes from a stale generation are
// dropped.
func (s *Session) CompleteSubmission(gen int, outcome models.SubmissionOutcome) bool {
	if gen != s.Generation {
		slog.Info("Discarding stale submission outcome", "session_id", s.ID, "result_generation", gen, "generation", s.Generation)
		return false
	}
	if s.Phase != PhaseSubmitting {
		return false
	}

	out := outcome
	s.LastOutcome = &out
	if outcome.Accepted {
		s.Phase = PhaseSubmitted
		slog.Info("Submission accepted", "session_id", s.ID, "status_code", outcome.StatusCode, "warning", outcome.Warning != "")
	} else {
		s.Phase = PhaseCollecting
		s.Step = validation.StepReview
		s.ErrorNote = outcome.Error
		slog.Warn("Submission rejected", "session_id", s.ID, "status_code", outcome.StatusCode, "error", outcome.Error)
	}
	return true
}

func (s *Session) requireCollecting() error {
	switch s.Phase {
	case PhaseSubmitting:
		return fmt.Errorf("submission in flight")
	case PhaseSubmitted:
		return fmt.Errorf("session already submitted")
	}
	return nil
}
