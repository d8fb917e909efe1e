package server

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nedpals/davi-sector-agent/nfc"
	"github.com/nedpals/davi-sector-agent/protocol"
)

type fakeResult struct {
	dump *nfc.SectorDump
	err  error
}

// fakeReader returns its results in order and repeats the last one.
type fakeReader struct {
	results []fakeResult
	calls   int
	mu      sync.Mutex
}

func (r *fakeReader) DumpSectors(ctx context.Context) (*nfc.SectorDump, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	r.calls++
	return r.results[i].dump, r.results[i].err
}

func (r *fakeReader) String() string { return "fake" }

func noCard() error { return nfc.NewNoCardError("DumpSectors", "fake") }

func cardDump(uid string) *nfc.SectorDump {
	dump := &nfc.SectorDump{UID: uid, Type: nfc.CardTypeMifareClassic1K}
	dump.Add("sector_0", nfc.Authenticated(nfc.SectorBlocks{manufacturerBlock, zeroBlock, zeroBlock}))
	return dump
}

// recordingServer is a HandlerServer that records what handlers publish.
type recordingServer struct {
	published  []string
	statuses   []protocol.ReaderStatusPayload
	lifecycles []LifecycleFunc
}

func (s *recordingServer) Handle(string, HandlerFunc) error { return nil }

func (s *recordingServer) StartLifecycle(start LifecycleFunc) {
	s.lifecycles = append(s.lifecycles, start)
}

func (s *recordingServer) Decode(dump *nfc.SectorDump, source string) (*protocol.SectorReportPayload, error) {
	return &protocol.SectorReportPayload{UID: dump.UID, Source: source}, nil
}

func (s *recordingServer) Publish(dump *nfc.SectorDump, source string) (*protocol.SectorReportPayload, error) {
	s.published = append(s.published, dump.UID)
	return s.Decode(dump, source)
}

func (s *recordingServer) BroadcastReaderStatus(status protocol.ReaderStatusPayload) {
	s.statuses = append(s.statuses, status)
}

func TestReaderHandler_Poll(t *testing.T) {
	reader := &fakeReader{results: []fakeResult{
		{err: noCard()},
		{dump: cardDump("04:AA:BB:CC")},
		{dump: cardDump("04:AA:BB:CC")},
		{dump: cardDump("04:11:22:33")},
		{err: noCard()},
		{dump: cardDump("04:11:22:33")},
	}}
	server := &recordingServer{}
	h := NewReaderHandler(reader, 0)

	for range reader.results {
		h.poll(context.Background(), server)
	}

	want := []string{"04:AA:BB:CC", "04:11:22:33", "04:11:22:33"}
	if len(server.published) != len(want) {
		t.Fatalf("Expected %d publishes, got %v", len(want), server.published)
	}
	for i := range want {
		if server.published[i] != want[i] {
			t.Errorf("Publish %d = %q, want %q", i, server.published[i], want[i])
		}
	}

	// idle, present, idle, present
	if len(server.statuses) != 4 {
		t.Fatalf("Expected 4 status changes, got %+v", server.statuses)
	}
	if server.statuses[0].CardPresent || !server.statuses[0].Connected {
		t.Errorf("Unexpected idle status %+v", server.statuses[0])
	}
	if !server.statuses[1].CardPresent || server.statuses[1].Reader != "fake" {
		t.Errorf("Unexpected present status %+v", server.statuses[1])
	}
}

func TestReaderHandler_ReaderError(t *testing.T) {
	readErr := nfc.NewReadError("DumpSectors", errors.New("reader unplugged"))
	reader := &fakeReader{results: []fakeResult{{err: readErr}, {err: readErr}}}
	server := &recordingServer{}
	h := NewReaderHandler(reader, 0)

	h.poll(context.Background(), server)
	h.poll(context.Background(), server)

	if len(server.published) != 0 {
		t.Errorf("Expected nothing published, got %v", server.published)
	}
	if len(server.statuses) != 1 {
		t.Fatalf("Expected a single status for a repeated error, got %+v", server.statuses)
	}
	if server.statuses[0].Connected || server.statuses[0].Message == "" {
		t.Errorf("Expected disconnected status with message, got %+v", server.statuses[0])
	}
}

func TestReaderHandler_CardReturnsAfterReadError(t *testing.T) {
	readErr := nfc.NewReadError("DumpSectors", errors.New("card removed mid-read"))
	reader := &fakeReader{results: []fakeResult{
		{dump: cardDump("04:AA:BB:CC")},
		{err: readErr},
		{dump: cardDump("04:AA:BB:CC")},
	}}
	server := &recordingServer{}
	h := NewReaderHandler(reader, 0)

	for range reader.results {
		h.poll(context.Background(), server)
	}

	if len(server.published) != 2 {
		t.Errorf("Expected the card to be published again, got %v", server.published)
	}
}

func TestReaderHandler_EmptyUID(t *testing.T) {
	reader := &fakeReader{results: []fakeResult{
		{dump: cardDump("")},
		{dump: cardDump("")},
		{dump: cardDump("")},
		{err: noCard()},
		{dump: cardDump("")},
	}}
	server := &recordingServer{}
	h := NewReaderHandler(reader, 0)

	for range reader.results {
		h.poll(context.Background(), server)
	}

	if len(server.published) != 2 {
		t.Errorf("Expected one publish per presentation, got %v", server.published)
	}
}

func TestReaderHandler_Register(t *testing.T) {
	reader := &fakeReader{results: []fakeResult{{dump: cardDump("04:AA:BB:CC")}}}
	server := &recordingServer{}
	h := NewReaderHandler(reader, 0)
	if h.interval != DefaultPollInterval {
		t.Errorf("Expected default interval, got %v", h.interval)
	}

	h.Register(server)
	if len(server.lifecycles) != 1 {
		t.Fatalf("Expected one lifecycle, got %d", len(server.lifecycles))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := server.lifecycles[0](ctx); err != nil {
		t.Errorf("Expected nil error on cancel, got %v", err)
	}
	// The first poll runs before the context is checked
	if len(server.published) != 1 {
		t.Errorf("Expected one publish, got %v", server.published)
	}
}
