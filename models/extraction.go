package models

// ExtractionRequest carries one mandatory and one optional ID image, both as
// base64 data URIs.
type ExtractionRequest struct {
	FrontImage string `json:"front_image"`
	BackImage  string `json:"back_image,omitempty"`
}

// ExtractedFields is what the structured-extraction service returns for an
// ID document. Every identity field is optional: an empty value means the
// service could not read it and the record must be left untouched. The raw
// and confidence artifacts are always present for audit, "{}" when empty.
type ExtractedFields struct {
	FullName             string `json:"full_name,omitempty"`
	DocumentType         string `json:"document_type,omitempty"`
	IdentificationNumber string `json:"identification_number,omitempty"`
	BirthdateDDMMYYYY    string `json:"birthdate_ddmmyyyy,omitempty"`
	NationalityLabel     string `json:"nationality_label,omitempty"`
	OCRRawJSON           string `json:"ocr_raw_json"`
	OCRConfidenceJSON    string `json:"ocr_confidence_json"`
}

// Empty reports whether the service returned no usable identity field.
func (f ExtractedFields) Empty() bool {
	return f.FullName == "" && f.DocumentType == "" && f.IdentificationNumber == "" &&
		f.BirthdateDDMMYYYY == "" && f.NationalityLabel == ""
}
