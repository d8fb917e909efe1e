// Package protocol provides the wire types for sector dumps and sector reports.
// This package is designed to be importable without pulling in server or reader dependencies.
package protocol

// TagEventInput is a tag-discovery event as delivered by a mobile NFC plugin or
// posted to POST /api/v1/sectors. MifareData maps each sector key to either the
// sector's hex blocks or a failure marker string such as "Auth Failed".
type TagEventInput struct {
	// UID is the tag's unique identifier in hex format (e.g., "04:AB:CD:EF")
	// Optional; normalized with ParseUID when present.
	UID string `json:"uid,omitempty"`

	// Type is the tag type string (e.g., "MIFARE Classic 1K"). Optional.
	Type string `json:"type,omitempty"`

	MifareData SectorMap `json:"mifareData"`
}

// ClassifySectorRequest asks for the classification of a single sector.
type ClassifySectorRequest struct {
	Key    string   `json:"key,omitempty"`
	Blocks []string `json:"blocks"`
}

// SectorReportPayload is the classified form of a tag event.
type SectorReportPayload struct {
	ID        string                `json:"id"`
	UID       string                `json:"uid,omitempty"`
	Type      string                `json:"type,omitempty"`
	Source    string                `json:"source"`    // "http-api", "websocket", "reader"
	ScannedAt string                `json:"scannedAt"` // RFC3339 format
	Sectors   []SectorResultPayload `json:"sectors"`
	Summary   map[string]int        `json:"summary"` // classified sectors per kind, plus "authFailed"
}

// SectorResultPayload is the outcome for one sector.
type SectorResultPayload struct {
	Key    string `json:"key"`
	Status string `json:"status"` // SectorStatusOK or SectorStatusAuthFailed
	Kind   string `json:"kind,omitempty"`
	Line   string `json:"line"`

	UID              string `json:"uid,omitempty"`
	ManufacturerText string `json:"manufacturerText,omitempty"`
	Text             string `json:"text,omitempty"`
	HexPreview       string `json:"hexPreview,omitempty"`
	FailureMarker    string `json:"failureMarker,omitempty"`
}

// Sector statuses
const (
	SectorStatusOK         = "ok"
	SectorStatusAuthFailed = "authFailed"
)

// ErrorResponse is returned by the HTTP API on failure.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// Error codes for ErrorResponse
const (
	ErrCodeInvalidUID     = "INVALID_UID"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeMalformedHex   = "MALFORMED_HEX"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
