package nfc

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
)

// Reader drivers
const (
	DriverPCSC   = "pcsc"
	DriverLibnfc = "libnfc"
)

// Card type names reported in dumps
const (
	CardTypeMifareClassic1K = "MIFARE Classic 1K"
	CardTypeMifareClassic4K = "MIFARE Classic 4K"
)

// Sector counts for the Classic layouts
const (
	Classic1KSectors = 16
	Classic4KSectors = 40
)

// DefaultKeys are tried, in order, with key A then key B on every sector.
var DefaultKeys = [][6]byte{
	{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, // Factory default
	{0xD3, 0xF7, 0xD3, 0xF7, 0xD3, 0xF7}, // NFC Forum public key
	{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5}, // MAD key
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, // Zero key
}

// SectorReader produces a SectorDump from the card currently presented to a reader.
type SectorReader interface {
	DumpSectors(ctx context.Context) (*SectorDump, error)
	String() string
}

// ReaderOptions controls how a SectorReader walks a card.
type ReaderOptions struct {
	// Sectors is the number of sectors to read. Zero means the card's full layout.
	Sectors int
	// Keys are tried in order. Empty means DefaultKeys.
	Keys [][6]byte
}

func (o ReaderOptions) keys() [][6]byte {
	if len(o.Keys) == 0 {
		return DefaultKeys
	}
	return o.Keys
}

func (o ReaderOptions) sectorCount(is4K bool) int {
	limit := Classic1KSectors
	if is4K {
		limit = Classic4KSectors
	}
	if o.Sectors > 0 && o.Sectors < limit {
		return o.Sectors
	}
	return limit
}

// ParseKey decodes a 12 hex digit MIFARE key.
func ParseKey(s string) ([6]byte, error) {
	var key [6]byte
	s = strings.NewReplacer(":", "", " ", "", "-", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("invalid key %q: %w", s, err)
	}
	if len(b) != len(key) {
		return key, fmt.Errorf("invalid key %q: want 6 bytes, got %d", s, len(b))
	}
	copy(key[:], b)
	return key, nil
}

// NewSectorReader creates the reader for driver. device selects the PC/SC
// reader name or libnfc connection string; empty picks the first one found.
func NewSectorReader(driver, device string, opts ReaderOptions) (SectorReader, error) {
	switch driver {
	case DriverPCSC, "":
		return NewPCSCSectorReader(device, opts), nil
	case DriverLibnfc:
		return NewLibnfcSectorReader(device, opts), nil
	default:
		return nil, Errorf(ErrCodeNotSupported, "NewSectorReader", "unknown reader driver %q", driver)
	}
}

// ListDevices lists the readers available for driver.
func ListDevices(driver string) ([]string, error) {
	switch driver {
	case DriverPCSC, "":
		return listPCSCReaders()
	case DriverLibnfc:
		return listLibnfcDevices()
	default:
		return nil, Errorf(ErrCodeNotSupported, "ListDevices", "unknown reader driver %q", driver)
	}
}

// sectorAccess is the per-driver primitive set needed to dump a Classic card.
type sectorAccess interface {
	authenticate(trailerBlock int, key [6]byte, keyType byte) error
	readBlock(block int) ([]byte, error)
}

// sectorBlockRange returns the first block and the trailer block of sector.
func sectorBlockRange(sector int) (first, trailer int) {
	if sector >= 32 {
		// Large sectors (32-39) have 16 blocks each
		first = 128 + (sector-32)*16
		return first, first + 15
	}
	first = sector * 4
	return first, first + 3
}

// dumpClassicSectors authenticates and reads every block of each sector,
// including the trailer. Sectors where no key works are recorded as AuthFailed;
// transport errors abort the dump.
func dumpClassicSectors(ctx context.Context, access sectorAccess, sectors int, keys [][6]byte) ([]SectorEntry, error) {
	entries := make([]SectorEntry, 0, sectors)

	for sector := 0; sector < sectors; sector++ {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		key := SectorKey(sector)
		first, trailer := sectorBlockRange(sector)

		if err := authenticateSector(access, trailer, keys); err != nil {
			if !IsAuthError(err) {
				return entries, err
			}
			entries = append(entries, SectorEntry{Key: key, State: AuthFailed(DefaultAuthFailedMarker)})
			continue
		}

		blocks := make(SectorBlocks, 0, trailer-first+1)
		for block := first; block <= trailer; block++ {
			data, err := access.readBlock(block)
			if err != nil {
				return entries, NewReadError("dumpClassicSectors", fmt.Errorf("block %d: %w", block, err))
			}
			blocks = append(blocks, strings.ToUpper(BytesToHex(data)))
		}
		entries = append(entries, SectorEntry{Key: key, State: Authenticated(blocks)})
	}

	return entries, nil
}

func authenticateSector(access sectorAccess, trailer int, keys [][6]byte) error {
	var lastErr error
	for _, key := range keys {
		for _, keyType := range []byte{MIFAREKeyA, MIFAREKeyB} {
			err := access.authenticate(trailer, key, keyType)
			if err == nil {
				return nil
			}
			if !IsAuthError(err) {
				return err
			}
			lastErr = err
		}
	}
	log.Printf("No key accepted for trailer block %d", trailer)
	return NewAuthError("authenticateSector", fmt.Sprintf("block %d", trailer), lastErr)
}
