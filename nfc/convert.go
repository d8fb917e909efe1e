package nfc

import (
	"time"

	"github.com/nedpals/davi-sector-agent/protocol"
)

// ConvertTagEvent converts a wire tag event into a SectorDump, keeping the
// sector order of the event. The UID is normalized when present.
func ConvertTagEvent(event *protocol.TagEventInput) (*SectorDump, error) {
	if event == nil {
		return nil, Errorf(ErrCodeInvalidData, "ConvertTagEvent", "empty tag event")
	}

	dump := &SectorDump{Type: event.Type}
	if event.UID != "" {
		uid, err := protocol.ParseUID(event.UID)
		if err != nil {
			return nil, WrapError(ErrCodeInvalidUID, "ConvertTagEvent", "invalid UID", err)
		}
		dump.UID = uid
	}

	seen := make(map[string]bool, len(event.MifareData))
	for _, sector := range event.MifareData {
		if seen[sector.Key] {
			return nil, Errorf(ErrCodeInvalidData, "ConvertTagEvent", "duplicate sector key %q", sector.Key)
		}
		seen[sector.Key] = true

		if sector.Authenticated {
			dump.Add(sector.Key, Authenticated(SectorBlocks(sector.Blocks)))
		} else {
			dump.Add(sector.Key, AuthFailed(sector.FailureMarker))
		}
	}
	return dump, nil
}

// ToTagEvent converts a dump read from a live reader into the wire format.
func ToTagEvent(dump *SectorDump) protocol.TagEventInput {
	event := protocol.TagEventInput{UID: dump.UID, Type: dump.Type}
	for _, entry := range dump.Sectors {
		if blocks, ok := entry.State.Blocks(); ok {
			event.MifareData = append(event.MifareData, protocol.SectorInput{
				Key:           entry.Key,
				Authenticated: true,
				Blocks:        []string(blocks),
			})
			continue
		}
		event.MifareData = append(event.MifareData, protocol.SectorInput{
			Key:           entry.Key,
			FailureMarker: entry.State.FailureMarker(),
		})
	}
	return event
}

// ToSectorResultPayload converts a single sector line.
func ToSectorResultPayload(line SectorLine) protocol.SectorResultPayload {
	payload := protocol.SectorResultPayload{
		Key:  line.Key,
		Line: line.Line(),
	}
	if !line.Authenticated {
		payload.Status = protocol.SectorStatusAuthFailed
		payload.FailureMarker = line.FailureMarker
		return payload
	}

	payload.Status = protocol.SectorStatusOK
	payload.Kind = string(line.Classification.Kind())
	switch c := line.Classification.(type) {
	case ManufacturerBlock:
		payload.UID = c.UID
		payload.ManufacturerText = c.ManufacturerText
	case NDEFText:
		payload.Text = c.Text
	case PlainText:
		payload.Text = c.Text
	case RawDump:
		payload.HexPreview = c.HexPreview
	}
	return payload
}

// ToSectorReportPayload converts a report for HTTP and WebSocket clients.
func ToSectorReportPayload(id, source string, scannedAt time.Time, report SectorReport) protocol.SectorReportPayload {
	payload := protocol.SectorReportPayload{
		ID:        id,
		UID:       report.UID,
		Type:      report.Type,
		Source:    source,
		ScannedAt: scannedAt.Format(time.RFC3339),
		Sectors:   make([]protocol.SectorResultPayload, 0, len(report.Sectors)),
		Summary:   make(map[string]int),
	}
	for _, line := range report.Sectors {
		payload.Sectors = append(payload.Sectors, ToSectorResultPayload(line))
	}
	for kind, n := range report.CountByKind() {
		payload.Summary[string(kind)] = n
	}
	if failed := report.FailedSectors(); failed > 0 {
		payload.Summary[protocol.SectorStatusAuthFailed] = failed
	}
	return payload
}
