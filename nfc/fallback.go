package nfc

import (
	"strings"
	"unicode"
)

// minPrintableChars is the smallest amount of non-whitespace text that is
// reported as PlainText rather than a raw dump.
const minPrintableChars = 3

func extractFallback(v sectorView) (Classification, bool) {
	raw := v.codec.BytesToString(v.stream)
	if len(stripWhitespace(raw)) < minPrintableChars {
		return RawDump{HexPreview: v.block0Hex}, true
	}
	return PlainText{Text: raw}, true
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
