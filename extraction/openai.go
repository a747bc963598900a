package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-guest-registry/models"
)

// Config for the vision extraction client. The endpoint speaks the
// OpenAI-compatible chat/completions protocol.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

// Client calls a vision-capable chat model with the ID images and parses the
// structured JSON it returns.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

const systemPrompt = `You are an expert OCR data extraction specialist with advanced capabilities in analyzing identity documents from both front and back sides.

You will extract the following fields from the provided ID document images:
- full_name
- document_type: Identify the type of document (e.g., "Cédula de Ciudadanía", "Pasaporte", "Cédula de Extranjería").
- identification_number: Find the main identification number on the document. It might be labeled as "No.", "DOCUMENTO", "NÚMERO", etc.
- birthdate_ddmmyyyy: The birthdate in dd/mm/yyyy format.
- nationality_label: The nationality of the person.

Examine both the front and back of the document to gather all required information. The back of the document may contain critical information not visible on the front.

Pay close attention to the 'nationality_label'. If the nationality is not explicitly written, you must deduce it from the context of the document. Analyze visual cues such as flags, logos, symbols, or the issuing country of the document to determine the nationality, and return it as an upper-case label. For example, if the document is a "Cédula de Ciudadanía" from "República de Colombia", the nationality is "COLOMBIA".

Never output null. If a field cannot be read, omit it. Return ONLY JSON that matches the provided schema.`

// Extract sends the front (and, when present, back) image to the model and
// returns whatever fields it could read. The audit artifacts are always
// filled: ocr_raw_json defaults to the model's full content and
// ocr_confidence_json to "{}" when the model does not supply them.
func (c *Client) Extract(ctx context.Context, req models.ExtractionRequest) (models.ExtractedFields, error) {
	rid := uuid.New().String()
	start := time.Now()

	slog.Info("Starting ID extraction",
		"req_id", rid,
		"model", c.cfg.Model,
		"has_back_image", req.BackImage != "")

	schema := BuildFieldsJSONSchema()
	userContent := []map[string]any{
		{"type": "text", "text": "Use the following as the primary source of information about the ID document."},
		{"type": "image_url", "image_url": map[string]any{"url": req.FrontImage}},
	}
	if req.BackImage != "" {
		userContent = append(userContent, map[string]any{
			"type": "image_url", "image_url": map[string]any{"url": req.BackImage},
		})
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userContent},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		slog.Error("Extraction request failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return models.ExtractedFields{}, fmt.Errorf("extraction failed: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("extraction failed: decode response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return models.ExtractedFields{}, fmt.Errorf("extraction failed: no choices in response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	if err := ValidateJSONAgainstSchema(schema, content); err != nil {
		slog.Error("Extraction output failed schema validation",
			"req_id", rid, "error", err, "content", string(content))
		return models.ExtractedFields{}, fmt.Errorf("extraction failed: %w", err)
	}

	var out models.ExtractedFields
	if err := json.Unmarshal(content, &out); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("extraction failed: unmarshal fields: %w", err)
	}
	if out.OCRRawJSON == "" {
		out.OCRRawJSON = string(content)
	}
	if out.OCRConfidenceJSON == "" {
		out.OCRConfidenceJSON = "{}"
	}

	slog.Info("ID extraction finished",
		"req_id", rid,
		"empty", out.Empty(),
		"has_name", out.FullName != "",
		"has_nationality", out.NationalityLabel != "",
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close extraction response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction service status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
