package protocol

// WebSocket message type constants
const (
	WSTypeSectorReport     = "sectorReport"
	WSTypeReaderStatus     = "readerStatus"
	WSTypeClassifySector   = "classifySector"
	WSTypeClassifyDump     = "classifyDump"
	WSTypeClassifyResponse = "classifyResponse"
	WSTypeError            = "error"
)

// WebSocketMessage is the generic message envelope for WebSocket communication.
type WebSocketMessage struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WebSocketResponse is for responses to WebSocket requests.
type WebSocketResponse struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReaderStatusPayload is broadcast when the live reader loop changes state.
type ReaderStatusPayload struct {
	Reader      string `json:"reader"`
	Connected   bool   `json:"connected"`
	CardPresent bool   `json:"cardPresent"`
	Message     string `json:"message,omitempty"`
}
