package nfc

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestPCSCCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  []byte
		want string
	}{
		{"get uid", GetUIDAPDU(), "ffca000000"},
		{"load key", LoadKeyAPDU(0x00, factoryKey), "ff82000006ffffffffffff"},
		{"auth key A", MIFAREAuthAPDU(3, MIFAREKeyA, 0x00), "ff860000050100036000"},
		{"auth key B", MIFAREAuthAPDU(63, MIFAREKeyB, 0x01), "ff8600000501003f6101"},
		{"read block", ReadBinaryAPDU(4, BlockSize), "ffb0000410"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hex.EncodeToString(tt.cmd); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseAPDUResponse(t *testing.T) {
	resp, err := ParseAPDUResponse([]byte{0x04, 0xAA, 0x90, 0x00})
	if err != nil {
		t.Fatalf("ParseAPDUResponse failed: %v", err)
	}
	if !resp.IsSuccess() || resp.Error() != nil {
		t.Errorf("Expected success, got %s", resp.Status)
	}
	if !bytes.Equal(resp.Data, []byte{0x04, 0xAA}) {
		t.Errorf("Unexpected data %X", resp.Data)
	}

	resp, err = ParseAPDUResponse([]byte{0x63, 0x00})
	if err != nil {
		t.Fatalf("ParseAPDUResponse failed: %v", err)
	}
	if resp.IsSuccess() {
		t.Error("Expected 6300 to be a failure")
	}
	if resp.Error() == nil || resp.Error().Error() != "APDU status 6300" {
		t.Errorf("Unexpected error %v", resp.Error())
	}
	if len(resp.Data) != 0 {
		t.Errorf("Expected no data, got %X", resp.Data)
	}

	if _, err := ParseAPDUResponse([]byte{0x90}); err == nil {
		t.Error("Expected error for a one-byte response")
	}
}
