package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-guest-registry/extraction"
	"go-guest-registry/images"
	"go-guest-registry/models"
)

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8091,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

const testBaseURL = "http://localhost:8091"

type fakeExtractor struct {
	fields models.ExtractedFields
	err    error
}

func (f fakeExtractor) Extract(ctx context.Context, req models.ExtractionRequest) (models.ExtractedFields, error) {
	if f.err != nil {
		return models.ExtractedFields{}, f.err
	}
	return f.fields, nil
}

func startTestServer(t *testing.T, storage SessionStorage, extractor extraction.Extractor, sinkURL string) *Server {
	t.Helper()

	receipts, err := NewHmacReceiptCreator("test-secret", time.Hour)
	require.NoError(t, err)

	metrics := NewMetrics()
	sink := NewHTTPSinkClient(sinkURL, 2*time.Second)
	testState := &ServerState{
		sessionStorage: storage,
		orchestrator:   NewOrchestrator(storage, extractor, sink, receipts, metrics),
		metrics:        metrics,
		closureStyle:   models.ClosureSwornStatement,
	}

	srv, err := NewServer(testState, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, SessionResponse) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader([]byte("{}"))
	}

	resp, err := http.Post(url, "application/json", body)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var sr SessionResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(raw, &sr), "body: %s", raw)
	}
	return resp, sr
}

func sessionURL(id, op string) string {
	if op == "" {
		return fmt.Sprintf("%s/api/session/%s", testBaseURL, id)
	}
	return fmt.Sprintf("%s/api/session/%s/%s", testBaseURL, id, op)
}

func createSession(t *testing.T) string {
	t.Helper()
	resp, sr := postJSON(t, testBaseURL+"/api/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, sr.Session)
	require.NotEmpty(t, sr.Session.ID)
	return sr.Session.ID
}

// testImageDataURI renders a small JPEG and returns it as a data URI, so the
// capture endpoint's compression pipeline has something real to decode.
func testImageDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	p, err := images.FromBytes(buf.Bytes())
	require.NoError(t, err)
	return p.DataURI()
}

func testBirthDateYearsAgo(years int) string {
	d := time.Now().AddDate(-years, 0, -1)
	return fmt.Sprintf("%02d/%02d/%04d", d.Day(), int(d.Month()), d.Year())
}

// fillCompleteSession walks a fresh session through every step so it is
// ready to submit.
func fillCompleteSession(t *testing.T, id string) {
	t.Helper()
	str := func(v string) *string { return &v }
	affirmed := true

	resp, _ := postJSON(t, sessionURL(id, "details"), DetailsRequest{
		Property: str("Casa Verde Santa Marta"),
		Email:    str("host@example.com"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, sessionURL(id, "guests/0/images"), CaptureRequest{Front: testImageDataURI(t)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, sessionURL(id, "guests/0/patch"), models.GuestPatch{
		FullName:        str("CARLOS ANDRES RUIZ"),
		DocumentType:    str("Cédula de Ciudadanía"),
		IDNumber:        str("79456123"),
		BirthDate:       str(testBirthDateYearsAgo(28)),
		Phone:           str("3011234567"),
		CityOfResidence: str("Bogotá"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, sessionURL(id, "consents"), ConsentsRequest{Consents: []string{
		models.ConsentEntry,
		models.ConsentTransport,
		models.ConsentMigration,
		models.ConsentDataProtection,
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, sessionURL(id, "closure"), ClosureRequest{SwornStatement: &affirmed})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
