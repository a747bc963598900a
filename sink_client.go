package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go-guest-registry/models"
	"go-guest-registry/payload"
)

// The downstream workflow engine reports a generic 500 when a run has
// already completed and its respond node never fires. Bodies carrying this
// marker mean the submission actually landed.
const BenignFailureMarker = "Unused Respond to Webhook node"

// SinkClient delivers one submission document to the downstream automation
// endpoint and classifies the response.
type SinkClient interface {
	Send(ctx context.Context, doc payload.Document) models.SubmissionOutcome
}

type HTTPSinkClient struct {
	url    string
	client *http.Client
}

func NewHTTPSinkClient(url string, timeout time.Duration) *HTTPSinkClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSinkClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the document and maps the response onto a SubmissionOutcome:
// any 2xx is success (structured bodies pass through as-is, anything else is
// wrapped raw), a non-2xx carrying the benign marker is success with a
// preserved warning, and every other non-2xx or transport error is a
// rejection that leaves the record intact for retry.
func (c *HTTPSinkClient) Send(ctx context.Context, doc payload.Document) models.SubmissionOutcome {
	body, err := payload.Marshal(doc)
	if err != nil {
		slog.Error("Failed to marshal submission document", "error", err)
		return models.SubmissionOutcome{Error: "failed to marshal submission document: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.SubmissionOutcome{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Info("Sending submission to sink", "url", c.url, "clients", len(doc.Clients), "bytes", len(body))
	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("Sink request failed", "error", err)
		return models.SubmissionOutcome{Error: err.Error()}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close sink response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Failed to read sink response body", "error", err)
		return models.SubmissionOutcome{StatusCode: resp.StatusCode, Error: err.Error()}
	}

	return classifyResponse(resp.StatusCode, raw)
}

func classifyResponse(status int, raw []byte) models.SubmissionOutcome {
	if status >= 200 && status < 300 {
		if json.Valid(raw) && len(bytes.TrimSpace(raw)) > 0 {
			return models.SubmissionOutcome{Accepted: true, StatusCode: status, Body: raw}
		}
		wrapped, _ := json.Marshal(map[string]string{"raw": string(raw)})
		return models.SubmissionOutcome{Accepted: true, StatusCode: status, Body: wrapped}
	}

	if strings.Contains(string(raw), BenignFailureMarker) {
		slog.Warn("Sink reported a benign failure, treating as accepted", "status_code", status)
		return models.SubmissionOutcome{
			Accepted:   true,
			StatusCode: status,
			Body:       json.RawMessage(`{"ok":true}`),
			Warning:    strings.TrimSpace(string(raw)),
		}
	}

	slog.Error("Sink rejected submission", "status_code", status, "body", string(raw))
	errText := strings.TrimSpace(string(raw))
	if errText == "" {
		errText = fmt.Sprintf("sink returned status %d", status)
	}
	return models.SubmissionOutcome{
		StatusCode: status,
		Error:      errText,
	}
}
