package nfc

import (
	"errors"
	"fmt"
)

// PC/SC part 3 pseudo-APDUs understood by contactless readers (ACR122U and
// friends) for MIFARE Classic access.
const (
	pcscClass = 0xFF

	insGetData     = 0xCA
	insLoadKey     = 0x82
	insGeneralAuth = 0x86
	insReadBinary  = 0xB0
)

// MIFARE Classic key selectors, as used by the general authenticate command.
const (
	MIFAREKeyA = 0x60
	MIFAREKeyB = 0x61
)

// StatusWord is the SW1SW2 trailer of a response.
type StatusWord uint16

// StatusOK is 90 00.
const StatusOK StatusWord = 0x9000

func (sw StatusWord) String() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

// APDUResponse is a response split into its data and status word.
type APDUResponse struct {
	Data   []byte
	Status StatusWord
}

func (r APDUResponse) IsSuccess() bool {
	return r.Status == StatusOK
}

// Error returns nil for 90 00 and a status error otherwise.
func (r APDUResponse) Error() error {
	if r.IsSuccess() {
		return nil
	}
	return fmt.Errorf("APDU status %s", r.Status)
}

func ParseAPDUResponse(raw []byte) (APDUResponse, error) {
	n := len(raw)
	if n < 2 {
		return APDUResponse{}, errors.New("response too short")
	}
	return APDUResponse{
		Data:   raw[:n-2],
		Status: StatusWord(raw[n-2])<<8 | StatusWord(raw[n-1]),
	}, nil
}

// pcscCommand builds a case 1-4 short APDU in the reader class. le < 0 omits
// the Le byte.
func pcscCommand(ins, p1, p2 byte, data []byte, le int) []byte {
	cmd := make([]byte, 0, 5+len(data)+1)
	cmd = append(cmd, pcscClass, ins, p1, p2)
	if len(data) > 0 {
		cmd = append(cmd, byte(len(data)))
		cmd = append(cmd, data...)
	}
	if le >= 0 {
		cmd = append(cmd, byte(le))
	}
	return cmd
}

// GetUIDAPDU asks the reader for the UID of the card in the field.
func GetUIDAPDU() []byte {
	return pcscCommand(insGetData, 0x00, 0x00, nil, 0)
}

// LoadKeyAPDU stores key in the reader's volatile key slot.
func LoadKeyAPDU(slot byte, key [6]byte) []byte {
	return pcscCommand(insLoadKey, 0x00, slot, key[:], -1)
}

// MIFAREAuthAPDU authenticates block with the key in slot.
func MIFAREAuthAPDU(block, keyType, slot byte) []byte {
	return pcscCommand(insGeneralAuth, 0x00, 0x00, []byte{0x01, 0x00, block, keyType, slot}, -1)
}

// ReadBinaryAPDU reads length bytes of block.
func ReadBinaryAPDU(block, length byte) []byte {
	return pcscCommand(insReadBinary, 0x00, block, nil, int(length))
}
