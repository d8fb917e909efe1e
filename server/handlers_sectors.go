package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/nedpals/davi-sector-agent/nfc"
	"github.com/nedpals/davi-sector-agent/protocol"
)

// SectorHandler answers classification requests from WebSocket clients.
type SectorHandler struct {
	strictHex  bool
	classifier *nfc.Classifier
	server     HandlerServer
}

// NewSectorHandler creates a new sector handler.
func NewSectorHandler(strictHex bool, classifier *nfc.Classifier) *SectorHandler {
	if classifier == nil {
		classifier = nfc.DefaultClassifier
	}
	return &SectorHandler{strictHex: strictHex, classifier: classifier}
}

// Register implements ServerHandler interface.
func (h *SectorHandler) Register(server HandlerServer) {
	h.server = server
	server.Handle(protocol.WSTypeClassifySector, h.handleClassifySector)
	server.Handle(protocol.WSTypeClassifyDump, h.handleClassifyDump)
}

// handleClassifySector classifies a single sector's blocks.
func (h *SectorHandler) handleClassifySector(ctx context.Context, client *Client, req WebsocketRequest) error {
	var body protocol.ClassifySectorRequest
	if err := json.Unmarshal(req.Payload, &body); err != nil {
		client.SendError(req.ID, protocol.ErrCodeInvalidRequest, "Failed to parse classify request")
		return err
	}

	if h.strictHex {
		for _, block := range body.Blocks {
			if err := nfc.ValidateHexBlock(block); err != nil {
				client.SendError(req.ID, protocol.ErrCodeMalformedHex, err.Error())
				return err
			}
		}
	}

	key := body.Key
	if key == "" {
		key = nfc.SectorKey(0)
	}
	line := nfc.SectorLine{
		Key:            key,
		Authenticated:  true,
		Classification: h.classifier.Classify(nfc.SectorBlocks(body.Blocks)),
	}
	return client.SendResponse(req.ID, protocol.WSTypeClassifyResponse, nfc.ToSectorResultPayload(line))
}

// handleClassifyDump classifies a whole tag event for the requesting client only.
func (h *SectorHandler) handleClassifyDump(ctx context.Context, client *Client, req WebsocketRequest) error {
	event, err := protocol.DecodeTagEvent(bytes.NewReader(req.Payload))
	if err != nil {
		client.SendError(req.ID, protocol.ErrCodeInvalidRequest, "Failed to parse tag event: "+err.Error())
		return err
	}

	dump, err := nfc.ConvertTagEvent(event)
	if err != nil {
		client.SendError(req.ID, errorCodeFor(err), err.Error())
		return err
	}

	report, err := h.server.Decode(dump, SourceWebSocket)
	if err != nil {
		client.SendError(req.ID, errorCodeFor(err), err.Error())
		return err
	}
	return client.SendResponse(req.ID, protocol.WSTypeClassifyResponse, report)
}

// handleSectorsInput handles POST /api/v1/sectors. The body is a tag event or
// a bare sector map; the report is broadcast and returned.
func (s *Server) handleSectorsInput(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	event, err := protocol.DecodeTagEvent(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.sendSectorsError(w, http.StatusBadRequest, protocol.ErrCodeInvalidRequest,
			"Failed to parse request body: "+err.Error())
		return
	}

	dump, err := nfc.ConvertTagEvent(event)
	if err != nil {
		s.sendSectorsError(w, http.StatusBadRequest, errorCodeFor(err), err.Error())
		return
	}

	report, err := s.Publish(dump, SourceHTTP)
	if err != nil {
		code := errorCodeFor(err)
		status := http.StatusBadRequest
		if code == protocol.ErrCodeInternalError {
			status = http.StatusInternalServerError
		}
		s.sendSectorsError(w, status, code, err.Error())
		return
	}

	log.Printf("[%s] Sector dump received: UID=%s, sectors=%d", SourceHTTP, report.UID, len(report.Sectors))
	json.NewEncoder(w).Encode(report)
}

// sendSectorsError sends an error response for the sectors endpoint.
func (s *Server) sendSectorsError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Success:   false,
		Error:     message,
		ErrorCode: errorCode,
	})
}

// errorCodeFor maps nfc errors onto wire error codes.
func errorCodeFor(err error) string {
	switch nfc.GetErrorCode(err) {
	case nfc.ErrCodeMalformedHex:
		return protocol.ErrCodeMalformedHex
	case nfc.ErrCodeInvalidUID:
		return protocol.ErrCodeInvalidUID
	case nfc.ErrCodeInvalidData:
		return protocol.ErrCodeInvalidRequest
	}
	return protocol.ErrCodeInternalError
}
