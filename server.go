package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-guest-registry/images"
	"go-guest-registry/models"
	"go-guest-registry/refdata"
	"go-guest-registry/validation"
	"go-guest-registry/wizard"
)

const ErrorInternal = "error:internal"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_SESSION_RETRIEVAL = "failed to get session from storage"
const ERR_SESSION_SAVE = "failed to save session to storage"
const ERR_SESSION_CREATION = "failed to create session"
const ERR_INVALID_GUEST_INDEX = "invalid guest index"
const ERR_EXTRACTION = "extraction failed"
const ERR_SESSION_REMOVAL = "failed to remove session from storage"
const ERR_SUBMISSION = "submission failed"

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	sessionStorage SessionStorage
	orchestrator   *Orchestrator
	metrics        *Metrics
	closureStyle   models.ClosureStyle
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		err := json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		if err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/refdata", handleRefData).Methods(http.MethodGet)

	router.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		handleCreateSession(state, w, r)
	})
	router.HandleFunc("/api/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetSession(state, w, r)
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/session/{id}/details", func(w http.ResponseWriter, r *http.Request) {
		handleSetDetails(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/advance", func(w http.ResponseWriter, r *http.Request) {
		handleAdvance(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/back", func(w http.ResponseWriter, r *http.Request) {
		handleBack(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/review", func(w http.ResponseWriter, r *http.Request) {
		handleReturnToReview(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/guests", func(w http.ResponseWriter, r *http.Request) {
		handleAddGuest(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/guests/{index}/edit", func(w http.ResponseWriter, r *http.Request) {
		handleEditGuest(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/guests/{index}/patch", func(w http.ResponseWriter, r *http.Request) {
		handlePatchGuest(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/guests/{index}/images", func(w http.ResponseWriter, r *http.Request) {
		handleCaptureImages(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/consents", func(w http.ResponseWriter, r *http.Request) {
		handleGrantConsents(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/closure", func(w http.ResponseWriter, r *http.Request) {
		handleClosure(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/extract", func(w http.ResponseWriter, r *http.Request) {
		handleExtract(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/submit", func(w http.ResponseWriter, r *http.Request) {
		handleSubmit(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/reset", func(w http.ResponseWriter, r *http.Request) {
		handleReset(state, w, r)
	})
	router.HandleFunc("/api/session/{id}/close", func(w http.ResponseWriter, r *http.Request) {
		handleClose(state, w, r)
	})

	router.Handle("/metrics", promhttp.HandlerFor(state.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	slog.Debug("Registered all API routes")

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

// SessionResponse is the uniform reply of every session operation: the full
// session snapshot plus, when a validation gate failed, the field errors.
type SessionResponse struct {
	Session *wizard.Session   `json:"session"`
	Errors  validation.Result `json:"errors,omitempty"`
}

type RefDataResponse struct {
	Properties              []string          `json:"properties"`
	DocumentTypes           []string          `json:"document_types"`
	Countries               []refdata.Country `json:"countries"`
	PrimaryCountry          string            `json:"primary_country"`
	DefaultPhoneCountryCode string            `json:"default_phone_country_code"`
	ConsentNames            []string          `json:"consent_names"`
}

func handleRefData(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Serving reference data")
	response := RefDataResponse{
		Properties:              refdata.Properties,
		DocumentTypes:           refdata.DocumentTypes,
		Countries:               refdata.Countries,
		PrimaryCountry:          refdata.PrimaryCountry,
		DefaultPhoneCountryCode: refdata.DefaultPhoneCountryCode,
		ConsentNames: []string{
			models.ConsentEntry,
			models.ConsentTransport,
			models.ConsentMigration,
			models.ConsentDataProtection,
		},
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func handleCreateSession(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to create a new session")

	sessionId := GenerateSessionId()
	if sessionId == "" {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_SESSION_CREATION, fmt.Errorf("failed to generate session ID"))
		return
	}

	session := wizard.NewSession(sessionId, state.closureStyle)
	if err := state.sessionStorage.SaveSession(session); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_SESSION_SAVE, err)
		return
	}
	state.metrics.SessionsStarted.Inc()

	if err := writeJSON(w, http.StatusOK, SessionResponse{Session: session}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Session created successfully", "session_id", sessionId)
}

func handleGetSession(state *ServerState, w http.ResponseWriter, r *http.Request) {
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}
	if err := writeJSON(w, http.StatusOK, SessionResponse{Session: session}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

type DetailsRequest struct {
	Property *string `json:"property,omitempty"`
	Email    *string `json:"email,omitempty"`
}

func handleSetDetails(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	var request DetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode details request", err)
		return
	}

	if request.Property != nil {
		if err := session.SetProperty(*request.Property); err != nil {
			respondWithErr(w, http.StatusConflict, "invalid state", "failed to set property", err)
			return
		}
	}
	if request.Email != nil {
		if err := session.SetContactEmail(*request.Email); err != nil {
			respondWithErr(w, http.StatusConflict, "invalid state", "failed to set contact email", err)
			return
		}
	}

	saveAndRespond(state, w, session, nil)
}

func handleAdvance(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	res, err := session.Advance()
	if err != nil {
		respondWithErr(w, http.StatusConflict, "invalid state", "failed to advance", err)
		return
	}

	saveAndRespond(state, w, session, res)
}

func handleBack(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	if err := session.Retreat(); err != nil {
		respondWithErr(w, http.StatusConflict, "invalid state", "failed to go back", err)
		return
	}

	saveAndRespond(state, w, session, nil)
}

func handleReturnToReview(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	if err := session.ReturnToReview(); err != nil {
		respondWithErr(w, http.StatusConflict, "invalid state", "failed to return to review", err)
		return
	}

	saveAndRespond(state, w, session, nil)
}

func handleAddGuest(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	if err := session.AddGuest(); err != nil {
		respondWithErr(w, http.StatusConflict, "invalid state", "failed to add guest", err)
		return
	}

	saveAndRespond(state, w, session, nil)
}

func handleEditGuest(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}
	index, ok := guestIndex(w, r)
	if !ok {
		return
	}

	if err := session.EditGuest(index); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_GUEST_INDEX, err)
		return
	}

	saveAndRespond(state, w, session, nil)
}

func handlePatchGuest(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}
	index, ok := guestIndex(w, r)
	if !ok {
		return
	}

	var patch models.GuestPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode guest patch", err)
		return
	}

	if err := session.PatchGuest(index, patch); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_GUEST_INDEX, err)
		return
	}

	saveAndRespond(state, w, session, nil)
}

type CaptureRequest struct {
	Front string `json:"front,omitempty"`
	Back  string `json:"back,omitempty"`
}

// handleCaptureImages runs each uploaded side through the compression
// pipeline before storing it. Compression failure falls back to the original
// image and never blocks the capture.
func handleCaptureImages(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}
	index, ok := guestIndex(w, r)
	if !ok {
		return
	}

	var request CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode capture request", err)
		return
	}

	front, err := compressDataURI(request.Front)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to read front image", err)
		return
	}
	back, err := compressDataURI(request.Back)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to read back image", err)
		return
	}

	if err := session.SetGuestImages(index, front, back); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_GUEST_INDEX, err)
		return
	}

	saveAndRespond(state, w, session, nil)
}

func compressDataURI(uri string) (string, error) {
	if uri == "" {
		return "", nil
	}
	p, err := images.FromDataURI(uri)
	if err != nil {
		return "", err
	}
	compressed, ok := images.Compress(p, images.DefaultMaxWidth, images.DefaultQuality)
	if !ok {
		slog.Warn("Image compression failed, keeping original", "bytes", len(p.Data))
	}
	return compressed.DataURI(), nil
}

type ConsentsRequest struct {
	Consents []string `json:"consents"`
}

func handleGrantConsents(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	var request ConsentsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode consents request", err)
		return
	}

	for _, name := range request.Consents {
		if err := session.GrantConsent(name); err != nil {
			respondWithErr(w, http.StatusBadRequest, "invalid request", "unknown consent flag", err)
			return
		}
	}

	saveAndRespond(state, w, session, nil)
}

type ClosureRequest struct {
	SwornStatement *bool   `json:"sworn_statement,omitempty"`
	Signature      *string `json:"signature,omitempty"`
}

func handleClosure(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	var request ClosureRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode closure request", err)
		return
	}

	if request.SwornStatement != nil {
		if err := session.SetSwornStatement(*request.SwornStatement); err != nil {
			respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to set sworn statement", err)
			return
		}
	}
	if request.Signature != nil {
		if err := session.SetSignature(*request.Signature); err != nil {
			respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to set signature", err)
			return
		}
	}

	saveAndRespond(state, w, session, nil)
}

func handleExtract(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	slog.Info("Received request to run ID extraction", "session_id", session.ID, "guest_index", session.ActiveGuest)

	if err := state.orchestrator.RunExtraction(r.Context(), session); err != nil {
		respondWithErr(w, http.StatusBadGateway, ERR_EXTRACTION, ERR_EXTRACTION, err)
		return
	}

	saveAndRespond(state, w, session, nil)
}

func handleSubmit(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	slog.Info("Received request to submit registration", "session_id", session.ID, "guest_count", len(session.Record.Guests))

	res, err := state.orchestrator.Submit(r.Context(), session)
	if err != nil {
		respondWithErr(w, http.StatusConflict, "invalid state", ERR_SUBMISSION, err)
		return
	}

	saveAndRespond(state, w, session, res)
}

func handleReset(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	session.Reset()
	saveAndRespond(state, w, session, nil)
}

// handleClose drops the stored snapshot once the session is done with, either
// after the receipt has been shown or because the guest walked away. Without
// it abandoned sessions would sit in storage until the TTL (or forever, on
// the in-memory variant).
func handleClose(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}
	session, ok := loadSession(state, w, r)
	if !ok {
		return
	}

	if session.Extracting || session.Phase == wizard.PhaseSubmitting {
		respondWithErr(w, http.StatusConflict, "call in flight", ERR_SESSION_REMOVAL, fmt.Errorf("session %s has a call in flight", session.ID))
		return
	}

	slog.Info("Closing session", "session_id", session.ID, "phase", session.Phase)
	if err := state.sessionStorage.RemoveSession(session.ID); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_SESSION_REMOVAL, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// -----------------------------------------------------------------------------------

func loadSession(state *ServerState, w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	sessionId := mux.Vars(r)["id"]
	session, err := state.sessionStorage.LoadSession(sessionId)
	if err != nil {
		respondWithErr(w, http.StatusNotFound, "session not found", ERR_SESSION_RETRIEVAL, err)
		return nil, false
	}
	return session, true
}

func guestIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["index"]
	index, err := strconv.Atoi(raw)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_GUEST_INDEX, err)
		return 0, false
	}
	return index, true
}

func saveAndRespond(state *ServerState, w http.ResponseWriter, session *wizard.Session, errors validation.Result) {
	if err := state.sessionStorage.SaveSession(session); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_SESSION_SAVE, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, SessionResponse{Session: session, Errors: errors}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func GenerateSessionId() string {
	sessionId := make([]byte, 16)
	if _, err := rand.Read(sessionId); err != nil {
		slog.Error("failed to generate session ID", "error", err)
		return ""
	}
	hexId := fmt.Sprintf("%x", sessionId)
	slog.Debug("Session ID generated successfully", "session_id", hexId)
	return hexId
}

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// helpers ------------

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}
