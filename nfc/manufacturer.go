package nfc

// Offsets inside a sector-zero manufacturer block.
const (
	manufacturerBCCOffset  = 4
	manufacturerDataOffset = 8
)

// BlockCheckCharacter returns the XOR of the first four bytes of block.
// block must hold at least four bytes.
func BlockCheckCharacter(block []byte) byte {
	return block[0] ^ block[1] ^ block[2] ^ block[3]
}

// IsManufacturerBlock reports whether block looks like a UID block: 16 bytes,
// a non-zero first byte and a BCC at offset 4 matching the first four bytes.
func IsManufacturerBlock(block []byte) bool {
	if len(block) != BlockSize || block[0] == 0 {
		return false
	}
	return BlockCheckCharacter(block) == block[manufacturerBCCOffset]
}

// detectManufacturerBlock takes the UID straight from the source hex so the
// reader's casing is preserved. Bytes 5..7 (SAK/ATQA) are not inspected.
func detectManufacturerBlock(v sectorView) (Classification, bool) {
	if !IsManufacturerBlock(v.block0) {
		return nil, false
	}
	return ManufacturerBlock{
		UID:              v.block0Hex[:UIDHexLength],
		ManufacturerText: v.codec.ExtractReadableASCII(v.block0[manufacturerDataOffset:BlockSize]),
	}, true
}
