package extraction

// BuildFieldsJSONSchema returns the JSON-Schema the model's output must
// match. Sent with the request as an output constraint and used locally to
// validate before anything is merged into a guest record. Every identity
// field is optional; the audit artifacts must be present even if empty.
func BuildFieldsJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"full_name":             map[string]any{"type": "string"},
			"document_type":         map[string]any{"type": "string"},
			"identification_number": map[string]any{"type": "string"},
			"birthdate_ddmmyyyy":    map[string]any{"type": "string", "pattern": `^\d{2}/\d{2}/\d{4}$`},
			"nationality_label":     map[string]any{"type": "string"},
			"ocr_raw_json":          map[string]any{"type": "string"},
			"ocr_confidence_json":   map[string]any{"type": "string"},
		},
		"required": []string{},
	}
}
