package nfc

// NDEF record layout constants for a short, ID-less Well Known record.
const (
	ndefTypeText       = 0x54 // 'T'
	textStatusLangMask = 0x3F
	textStatusUTF16    = 0x80

	// Offsets relative to the start of the NDEF Message TLV.
	tlvRecordHeaderOffset = 2
	tlvTypeLengthOffset   = 3
	tlvPayloadLenOffset   = 4
	tlvTypeOffset         = 5
)

// TextRecord is an NDEF Text record decoded from sector bytes.
type TextRecord struct {
	Header   byte
	Language string
	UTF16    bool // status bit; the text is always rendered as printable ASCII
	Text     string
}

// DecodeTextRecordAt decodes the single Text record inside the NDEF Message TLV
// starting at msgStart. It returns false when the record type is not 'T'.
//
// Offsets are derived from the record's own length fields and are not checked
// against the declared TLV length, so a malformed record may pick up bytes from
// the rest of the sector. Reads past the end of data see no byte: the type
// check fails, a missing status byte counts as zero and the text is clamped.
func DecodeTextRecordAt(data []byte, msgStart int, codec ByteCodec) (TextRecord, bool) {
	if codec == nil {
		codec = DefaultCodec
	}
	recordType, ok := byteAt(data, msgStart+tlvTypeOffset)
	if !ok || recordType != ndefTypeText {
		return TextRecord{}, false
	}

	header, _ := byteAt(data, msgStart+tlvRecordHeaderOffset)
	typeLength, _ := byteAt(data, msgStart+tlvTypeLengthOffset)
	payloadLength, _ := byteAt(data, msgStart+tlvPayloadLenOffset)

	payloadPos := msgStart + tlvTypeOffset + int(typeLength)
	status, _ := byteAt(data, payloadPos)
	langLength := int(status & textStatusLangMask)

	langStart := payloadPos + 1
	textStart := langStart + langLength
	textLength := int(payloadLength) - 1 - langLength

	return TextRecord{
		Header:   header,
		Language: codec.BytesToString(clampedSlice(data, langStart, textStart)),
		UTF16:    status&textStatusUTF16 != 0,
		Text:     codec.BytesToString(clampedSlice(data, textStart, textStart+textLength)),
	}, true
}

func detectNDEFText(v sectorView) (Classification, bool) {
	msgStart, found := ScanNDEFMessage(v.stream)
	if !found {
		return nil, false
	}
	record, ok := DecodeTextRecordAt(v.stream, msgStart, v.codec)
	if !ok {
		return nil, false
	}
	return NDEFText{Text: record.Text}, true
}

func byteAt(data []byte, i int) (byte, bool) {
	if i < 0 || i >= len(data) {
		return 0, false
	}
	return data[i], true
}

func clampedSlice(data []byte, start, end int) []byte {
	if start < 0 {
		start = 0
	}
	if end > len(data) {
		end = len(data)
	}
	if start >= end {
		return nil
	}
	return data[start:end]
}
