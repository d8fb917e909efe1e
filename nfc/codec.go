package nfc

import "strings"

// ByteCodec converts between the hex strings produced by tag readers and raw bytes.
// Implementations must be stateless so a single value can be shared freely.
type ByteCodec interface {
	HexToBytes(hex string) []byte
	BytesToString(b []byte) string
	BytesToHex(b []byte) string
	ExtractReadableASCII(b []byte) string
}

// HexCodec is the default ByteCodec.
type HexCodec struct{}

// DefaultCodec is shared by the package-level helpers and the default classifier.
var DefaultCodec ByteCodec = HexCodec{}

const hexDigits = "0123456789abcdef"

// HexToBytes consumes two characters per byte. It does not reject malformed input:
// a pair decodes as its leading run of hex digits ("1g" is 0x01) or 0x00 when
// it starts with a non-hex character, and an odd trailing character is decoded
// on its own. Use ValidateHexBlock to detect either case.
func (HexCodec) HexToBytes(hex string) []byte {
	out := make([]byte, 0, (len(hex)+1)/2)
	for i := 0; i < len(hex); i += 2 {
		end := i + 2
		if end > len(hex) {
			end = len(hex)
		}
		v, ok := parseHexPair(hex[i:end])
		if !ok {
			v = 0
		}
		out = append(out, v)
	}
	return out
}

// BytesToString keeps only printable ASCII (0x20..0x7E) and drops everything else.
func (HexCodec) BytesToString(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c >= 32 && c <= 126 {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// BytesToHex renders each byte as two lowercase hex digits.
func (HexCodec) BytesToHex(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0F]
	}
	return string(out)
}

// ExtractReadableASCII returns the printable characters of b, or a parenthesized
// hex dump when there are none. The result is never empty for non-empty input.
func (c HexCodec) ExtractReadableASCII(b []byte) string {
	if s := c.BytesToString(b); s != "" {
		return s
	}
	return "(Hex: " + c.BytesToHex(b) + ")"
}

// HexToBytes decodes hex with DefaultCodec.
func HexToBytes(hex string) []byte { return DefaultCodec.HexToBytes(hex) }

// BytesToString filters b to printable ASCII with DefaultCodec.
func BytesToString(b []byte) string { return DefaultCodec.BytesToString(b) }

// BytesToHex encodes b with DefaultCodec.
func BytesToHex(b []byte) string { return DefaultCodec.BytesToHex(b) }

// ExtractReadableASCII renders b with DefaultCodec.
func ExtractReadableASCII(b []byte) string { return DefaultCodec.ExtractReadableASCII(b) }

// ValidateHexBlock reports whether block is exactly BlockHexLength hex digits.
// It returns an *NFCError with ErrCodeMalformedHex otherwise.
func ValidateHexBlock(block string) error {
	if len(block) != BlockHexLength {
		return Errorf(ErrCodeMalformedHex, "ValidateHexBlock", "block has %d hex characters, want %d", len(block), BlockHexLength)
	}
	for i := 0; i < len(block); i++ {
		if hexValue(block[i]) < 0 {
			return Errorf(ErrCodeMalformedHex, "ValidateHexBlock", "invalid hex character %q at offset %d", block[i], i)
		}
	}
	return nil
}

// parseHexPair reads the leading hex digits of s. It reports false when s does
// not start with one.
func parseHexPair(s string) (byte, bool) {
	var v, n int
	for ; n < len(s); n++ {
		d := hexValue(s[n])
		if d < 0 {
			break
		}
		v = v<<4 | d
	}
	return byte(v), n > 0
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
