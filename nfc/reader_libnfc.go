package nfc

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
)

// LibnfcSectorReader dumps MIFARE Classic cards through libnfc and libfreefare.
type LibnfcSectorReader struct {
	connection string
	opts       ReaderOptions
}

// NewLibnfcSectorReader creates a libnfc reader. An empty connection string
// lets libnfc pick the first device.
func NewLibnfcSectorReader(connection string, opts ReaderOptions) *LibnfcSectorReader {
	return &LibnfcSectorReader{connection: connection, opts: opts}
}

func (r *LibnfcSectorReader) String() string {
	if r.connection == "" {
		return "libnfc:auto"
	}
	return "libnfc:" + r.connection
}

// DumpSectors opens the device, selects the first Classic tag and reads every sector.
func (r *LibnfcSectorReader) DumpSectors(ctx context.Context) (*SectorDump, error) {
	dev, err := nfc.Open(r.connection)
	if err != nil {
		return nil, fmt.Errorf("failed to open NFC device %q: %w", r.connection, err)
	}
	defer dev.Close()

	if err := dev.InitiatorInit(); err != nil {
		return nil, fmt.Errorf("failed to initialize NFC device: %w", err)
	}

	tags, err := freefare.GetTags(dev)
	if err != nil {
		return nil, NewReadError("GetTags", err)
	}

	for _, tag := range tags {
		classic, ok := tag.(freefare.ClassicTag)
		if !ok {
			log.Printf("Skipping non-Classic tag %s", tag.UID())
			continue
		}
		return r.dumpClassicTag(ctx, classic)
	}

	return nil, NewNoCardError("DumpSectors", dev.String())
}

func (r *LibnfcSectorReader) dumpClassicTag(ctx context.Context, tag freefare.ClassicTag) (*SectorDump, error) {
	if err := tag.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to tag: %w", err)
	}
	access := &freefareSectorAccess{tag: tag}
	defer func() {
		if access.connected() {
			tag.Disconnect()
		}
	}()

	is4K := tag.Type() == freefare.Classic4k
	dump := &SectorDump{UID: strings.ToUpper(tag.UID()), Type: CardTypeMifareClassic1K}
	if is4K {
		dump.Type = CardTypeMifareClassic4K
	}

	entries, err := dumpClassicSectors(ctx, access, r.opts.sectorCount(is4K), r.opts.keys())
	if err != nil {
		return nil, err
	}
	dump.Sectors = entries
	return dump, nil
}

// freefareClassic is the part of freefare.ClassicTag used for dumping.
type freefareClassic interface {
	Connect() error
	Disconnect() error
	Authenticate(block byte, key [6]byte, keyType int) error
	ReadBlock(block byte) ([16]byte, error)
}

// freefareSectorAccess adapts a freefare Classic tag to sectorAccess.
type freefareSectorAccess struct {
	tag          freefareClassic
	disconnected bool
}

func (a *freefareSectorAccess) connected() bool { return !a.disconnected }

func (a *freefareSectorAccess) authenticate(trailerBlock int, key [6]byte, keyType byte) error {
	if a.disconnected {
		if err := a.tag.Connect(); err != nil {
			return fmt.Errorf("failed to reconnect to tag: %w", err)
		}
		a.disconnected = false
	}

	ffKeyType := int(freefare.KeyA)
	if keyType == MIFAREKeyB {
		ffKeyType = int(freefare.KeyB)
	}

	if err := a.tag.Authenticate(byte(trailerBlock), key, ffKeyType); err != nil {
		// A failed authentication halts the card; it has to be reselected
		// before the next attempt.
		if derr := a.tag.Disconnect(); derr == nil {
			a.disconnected = true
		}
		return NewAuthError("Authenticate", "", err)
	}
	return nil
}

func (a *freefareSectorAccess) readBlock(block int) ([]byte, error) {
	data, err := a.tag.ReadBlock(byte(block))
	if err != nil {
		return nil, err
	}
	return data[:], nil
}

func listLibnfcDevices() ([]string, error) {
	devices, err := nfc.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list libnfc devices: %w", err)
	}
	return devices, nil
}
