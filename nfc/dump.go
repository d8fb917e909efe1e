package nfc

import (
	"fmt"
	"strconv"
)

// SectorAuthState is what a reader produced for one sector: either the blocks
// read after a successful authentication, or a failure marker.
type SectorAuthState struct {
	blocks  SectorBlocks
	failure string
	authed  bool
}

// DefaultAuthFailedMarker is the marker used when a reader gives no reason.
const DefaultAuthFailedMarker = "Auth Failed"

// Authenticated wraps the blocks of a sector that was read successfully.
func Authenticated(blocks SectorBlocks) SectorAuthState {
	return SectorAuthState{blocks: blocks, authed: true}
}

// AuthFailed marks a sector that could not be authenticated.
func AuthFailed(marker string) SectorAuthState {
	if marker == "" {
		marker = DefaultAuthFailedMarker
	}
	return SectorAuthState{failure: marker}
}

// Blocks returns the sector blocks and true if the sector was authenticated.
func (s SectorAuthState) Blocks() (SectorBlocks, bool) {
	return s.blocks, s.authed
}

// FailureMarker returns the reader's failure marker, or "" for authenticated sectors.
func (s SectorAuthState) FailureMarker() string {
	if s.authed {
		return ""
	}
	return s.failure
}

// IsAuthenticated reports whether the sector carries blocks.
func (s SectorAuthState) IsAuthenticated() bool { return s.authed }

// SectorEntry pairs a sector key (e.g. "sector_1") with its state.
type SectorEntry struct {
	Key   string
	State SectorAuthState
}

// SectorDump is every sector read from one tag, in the reader's enumeration order.
type SectorDump struct {
	UID     string
	Type    string
	Sectors []SectorEntry
}

// Add appends a sector entry.
func (d *SectorDump) Add(key string, state SectorAuthState) {
	d.Sectors = append(d.Sectors, SectorEntry{Key: key, State: state})
}

// Validate checks every authenticated block with ValidateHexBlock and returns
// the first failure, annotated with the sector key.
func (d *SectorDump) Validate() error {
	for _, entry := range d.Sectors {
		blocks, ok := entry.State.Blocks()
		if !ok {
			continue
		}
		for i, block := range blocks {
			if err := ValidateHexBlock(block); err != nil {
				return &NFCError{
					Code:    ErrCodeMalformedHex,
					Op:      "SectorDump.Validate",
					Sector:  entry.Key,
					Message: fmt.Sprintf("block %d", i),
					Cause:   err,
				}
			}
		}
	}
	return nil
}

// SectorKey returns the key used for sector n, matching the "sector_<n>" keys
// produced by mobile tag readers.
func SectorKey(n int) string {
	return "sector_" + strconv.Itoa(n)
}
