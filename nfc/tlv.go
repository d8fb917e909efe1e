package nfc

// TLVNDEF is the NDEF Message TLV type.
const TLVNDEF = 0x03

// ScanNDEFMessage finds the first offset in data holding an NDEF Message TLV
// whose declared length is non-zero and ends inside data.
//
// This is a heuristic byte scan, not a TLV walk: it does not skip preceding
// TLVs, so an unrelated 0x03 byte with a plausible length wins over a later
// real message. Known tag layouts rely on this leftmost behaviour.
func ScanNDEFMessage(data []byte) (offset int, found bool) {
	for i := 0; i < len(data)-2; i++ {
		if data[i] != TLVNDEF {
			continue
		}
		length := int(data[i+1])
		if length > 0 && i+1+length < len(data) {
			return i, true
		}
	}
	return -1, false
}
