package nfc

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ebfe/scard"
)

// cardTransmitter is the part of *scard.Card used to talk to a card.
type cardTransmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// PCSCSectorReader dumps MIFARE Classic cards through a PC/SC reader.
type PCSCSectorReader struct {
	readerName string
	opts       ReaderOptions

	ctx   *scard.Context
	ctxMu sync.Mutex
}

// NewPCSCSectorReader creates a PC/SC reader. An empty readerName selects the
// first contactless reader at dump time.
func NewPCSCSectorReader(readerName string, opts ReaderOptions) *PCSCSectorReader {
	return &PCSCSectorReader{readerName: readerName, opts: opts}
}

func (r *PCSCSectorReader) String() string {
	if r.readerName == "" {
		return "pcsc:auto"
	}
	return "pcsc:" + r.readerName
}

// ensureContext ensures we have a valid PC/SC context
func (r *PCSCSectorReader) ensureContext() (*scard.Context, error) {
	r.ctxMu.Lock()
	defer r.ctxMu.Unlock()

	if r.ctx != nil {
		if _, err := r.ctx.ListReaders(); err == nil {
			return r.ctx, nil
		}
		// Context is invalid, release it
		r.ctx.Release()
		r.ctx = nil
	}

	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("failed to establish PC/SC context: %w", err)
	}
	r.ctx = ctx
	return ctx, nil
}

// Close releases the PC/SC context.
func (r *PCSCSectorReader) Close() error {
	r.ctxMu.Lock()
	defer r.ctxMu.Unlock()

	if r.ctx != nil {
		err := r.ctx.Release()
		r.ctx = nil
		return err
	}
	return nil
}

// DumpSectors connects to the presented card and reads every sector.
func (r *PCSCSectorReader) DumpSectors(ctx context.Context) (*SectorDump, error) {
	sctx, err := r.ensureContext()
	if err != nil {
		return nil, err
	}

	readerName := r.readerName
	if readerName == "" {
		readers, err := sctx.ListReaders()
		if err != nil {
			return nil, fmt.Errorf("failed to list readers: %w", err)
		}
		readers = filterContactlessReaders(readers)
		if len(readers) == 0 {
			return nil, fmt.Errorf("no PC/SC readers found")
		}
		readerName = readers[0]
	}

	present, err := isCardPresent(sctx, readerName)
	if err != nil {
		return nil, fmt.Errorf("failed to check card presence: %w", err)
	}
	if !present {
		return nil, NewNoCardError("DumpSectors", readerName)
	}

	card, err := sctx.Connect(readerName, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to reader %s: %w", readerName, err)
	}
	defer card.Disconnect(scard.LeaveCard)

	status, err := card.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get card status: %w", err)
	}

	return dumpPCSCCard(ctx, card, status.Atr, r.opts)
}

// dumpPCSCCard reads the UID and every sector from an already connected card.
func dumpPCSCCard(ctx context.Context, card cardTransmitter, atr []byte, opts ReaderOptions) (*SectorDump, error) {
	uid, err := pcscGetUID(card)
	if err != nil {
		return nil, err
	}

	is4K := isClassic4KATR(atr)
	dump := &SectorDump{UID: uid, Type: CardTypeMifareClassic1K}
	if is4K {
		dump.Type = CardTypeMifareClassic4K
	}

	access := &pcscSectorAccess{card: card}
	entries, err := dumpClassicSectors(ctx, access, opts.sectorCount(is4K), opts.keys())
	if err != nil {
		return nil, err
	}
	dump.Sectors = entries
	return dump, nil
}

// pcscSectorAccess drives a Classic card with PC/SC pseudo-APDUs.
type pcscSectorAccess struct {
	card cardTransmitter
}

func (a *pcscSectorAccess) authenticate(trailerBlock int, key [6]byte, keyType byte) error {
	if err := a.transmit(LoadKeyAPDU(0x00, key)); err != nil {
		return err
	}
	return a.transmit(MIFAREAuthAPDU(byte(trailerBlock), keyType, 0x00))
}

func (a *pcscSectorAccess) readBlock(block int) ([]byte, error) {
	resp, err := a.card.Transmit(ReadBinaryAPDU(byte(block), BlockSize))
	if err != nil {
		return nil, err
	}
	parsed, err := ParseAPDUResponse(resp)
	if err != nil {
		return nil, err
	}
	if !parsed.IsSuccess() {
		return nil, parsed.Error()
	}
	if len(parsed.Data) != BlockSize {
		return nil, fmt.Errorf("short block read: %d bytes", len(parsed.Data))
	}
	return parsed.Data, nil
}

// transmit sends cmd and maps a non-success status word to an auth error.
// Transport failures are returned as-is so the dump can abort.
func (a *pcscSectorAccess) transmit(cmd []byte) error {
	resp, err := a.card.Transmit(cmd)
	if err != nil {
		return err
	}
	parsed, err := ParseAPDUResponse(resp)
	if err != nil {
		return err
	}
	if !parsed.IsSuccess() {
		return NewAuthError("transmit", "", parsed.Error())
	}
	return nil
}

func pcscGetUID(card cardTransmitter) (string, error) {
	resp, err := card.Transmit(GetUIDAPDU())
	if err != nil {
		return "", NewReadError("GetUID", err)
	}
	parsed, err := ParseAPDUResponse(resp)
	if err != nil {
		return "", NewReadError("GetUID", err)
	}
	if !parsed.IsSuccess() {
		return "", NewReadError("GetUID", parsed.Error())
	}
	return strings.ToUpper(BytesToHex(parsed.Data)), nil
}

// isClassic4KATR checks the PC/SC standard card name bytes in the ATR.
// Classic 4K is 00 02, Classic 1K is 00 01.
func isClassic4KATR(atr []byte) bool {
	if len(atr) < 15 {
		return false
	}
	return atr[13] == 0x00 && atr[14] == 0x02
}

// isCardPresent checks if a card is present in the reader using GetStatusChange
// with a zero timeout to avoid blocking.
func isCardPresent(ctx *scard.Context, readerName string) (bool, error) {
	readerStates := []scard.ReaderState{
		{
			Reader:       readerName,
			CurrentState: scard.StateUnaware,
		},
	}

	err := ctx.GetStatusChange(readerStates, 0)
	if err != nil {
		// Timeout is expected - it means no state change, check current state
		errLower := strings.ToLower(err.Error())
		if !strings.Contains(errLower, "timeout") {
			return false, err
		}
	}

	return (readerStates[0].EventState & scard.StatePresent) != 0, nil
}

func listPCSCReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("failed to establish PC/SC context: %w", err)
	}
	defer ctx.Release()

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("failed to list PC/SC readers: %w", err)
	}
	readers = filterContactlessReaders(readers)
	if len(readers) == 0 {
		log.Printf("No contactless PC/SC readers found")
	}
	return readers, nil
}

// filterContactlessReaders drops the SAM and contact slots that many dual
// readers expose next to their PICC interface.
func filterContactlessReaders(readers []string) []string {
	var out []string
	for _, name := range readers {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "sam") || strings.Contains(lower, "contact reader") {
			continue
		}
		out = append(out, name)
	}
	return out
}
