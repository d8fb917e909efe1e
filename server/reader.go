package server

import (
	"context"
	"log"
	"time"

	"github.com/nedpals/davi-sector-agent/nfc"
	"github.com/nedpals/davi-sector-agent/protocol"
)

// DefaultPollInterval is used when a ReaderHandler is created without one.
const DefaultPollInterval = 500 * time.Millisecond

// ReaderHandler polls a live reader and publishes a report for every new card.
type ReaderHandler struct {
	reader   nfc.SectorReader
	interval time.Duration

	// lastUID is only meaningful while present is set.
	present    bool
	lastUID    string
	lastStatus protocol.ReaderStatusPayload
	hasStatus  bool
}

// NewReaderHandler creates a new reader handler.
func NewReaderHandler(reader nfc.SectorReader, interval time.Duration) *ReaderHandler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ReaderHandler{reader: reader, interval: interval}
}

// Register implements ServerHandler interface.
func (h *ReaderHandler) Register(server HandlerServer) {
	server.StartLifecycle(func(ctx context.Context) error {
		log.Printf("Polling %s every %v", h.reader, h.interval)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			h.poll(ctx, server)

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
}

// poll reads the presented card once. A card that stays on the reader is
// only published the first time it is seen; any failed read counts as the
// card leaving.
func (h *ReaderHandler) poll(ctx context.Context, server HandlerServer) {
	dump, err := h.reader.DumpSectors(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		h.present = false
		h.lastUID = ""
		if nfc.IsNoCardError(err) {
			h.setStatus(server, protocol.ReaderStatusPayload{
				Reader:    h.reader.String(),
				Connected: true,
			})
			return
		}

		if h.setStatus(server, protocol.ReaderStatusPayload{
			Reader:  h.reader.String(),
			Message: err.Error(),
		}) {
			log.Printf("Reader error: %v", err)
		}
		return
	}

	h.setStatus(server, protocol.ReaderStatusPayload{
		Reader:      h.reader.String(),
		Connected:   true,
		CardPresent: true,
	})

	if h.present && dump.UID == h.lastUID {
		return
	}
	h.present = true
	h.lastUID = dump.UID

	if _, err := server.Publish(dump, SourceReader); err != nil {
		log.Printf("Failed to publish dump for %s: %v", dump.UID, err)
		return
	}
	log.Printf("[%s] Card %s read, %d sector(s)", SourceReader, dump.UID, len(dump.Sectors))
}

// setStatus broadcasts status when it differs from the last one sent and
// reports whether it did.
func (h *ReaderHandler) setStatus(server HandlerServer, status protocol.ReaderStatusPayload) bool {
	if h.hasStatus && h.lastStatus == status {
		return false
	}
	h.lastStatus = status
	h.hasStatus = true
	server.BroadcastReaderStatus(status)
	return true
}
