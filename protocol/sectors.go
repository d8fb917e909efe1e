package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNoSectorData is returned by DecodeTagEvent for a tag event without
// mifareData, such as an NTAG or ISO-DEP tag reported by the plugin.
var ErrNoSectorData = errors.New("tag event carries no mifareData")

// eventKeys are the top-level keys that mark an object as a tag event rather
// than a bare sector map.
var eventKeys = []string{"uid", "type"}

// SectorInput is one entry of a SectorMap. Exactly one of Blocks or
// FailureMarker is meaningful, as told by Authenticated.
type SectorInput struct {
	Key           string
	Authenticated bool
	Blocks        []string
	FailureMarker string
}

// SectorMap is the mifareData object of a tag event. It keeps the keys in
// document order, since that is the order the plugin enumerated the sectors in.
type SectorMap []SectorInput

// UnmarshalJSON decodes an object whose values are either an array of hex
// strings (authenticated sector) or a failure marker. Any value that is not an
// array is a failure marker: strings are kept as-is, null leaves the marker
// empty and other JSON values keep their compact JSON text.
func (m *SectorMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("mifareData: expected object, got %v", tok)
	}

	var out SectorMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("mifareData.%s: %w", key, err)
		}
		entry, err := decodeSectorValue(key, raw)
		if err != nil {
			return err
		}
		out = append(out, entry)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

func decodeSectorValue(key string, raw json.RawMessage) (SectorInput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return SectorInput{}, fmt.Errorf("mifareData.%s: empty value", key)
	}

	switch trimmed[0] {
	case '[':
		var blocks []string
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return SectorInput{}, fmt.Errorf("mifareData.%s: blocks must be hex strings: %w", key, err)
		}
		return SectorInput{Key: key, Authenticated: true, Blocks: blocks}, nil
	case '"':
		var marker string
		if err := json.Unmarshal(trimmed, &marker); err != nil {
			return SectorInput{}, fmt.Errorf("mifareData.%s: %w", key, err)
		}
		return SectorInput{Key: key, FailureMarker: marker}, nil
	case 'n':
		return SectorInput{Key: key}, nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return SectorInput{}, fmt.Errorf("mifareData.%s: %w", key, err)
		}
		return SectorInput{Key: key, FailureMarker: buf.String()}, nil
	}
}

// MarshalJSON writes the map back as an object in its original key order.
func (m SectorMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var value []byte
		if entry.Authenticated {
			blocks := entry.Blocks
			if blocks == nil {
				blocks = []string{}
			}
			value, err = json.Marshal(blocks)
		} else {
			value, err = json.Marshal(entry.FailureMarker)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeTagEvent reads either a full tag event ({"uid":..., "mifareData":{...}})
// or a bare mifareData object from r. An object carrying uid or type but no
// mifareData is a tag event for a card without sector data and yields
// ErrNoSectorData.
func DecodeTagEvent(r io.Reader) (*TagEventInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag event: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid tag event: %w", err)
	}

	if _, ok := fields["mifareData"]; ok {
		var event TagEventInput
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("invalid tag event: %w", err)
		}
		return &event, nil
	}
	for _, key := range eventKeys {
		if _, ok := fields[key]; ok {
			return nil, ErrNoSectorData
		}
	}

	var sectors SectorMap
	if err := json.Unmarshal(data, &sectors); err != nil {
		return nil, fmt.Errorf("invalid sector map: %w", err)
	}
	return &TagEventInput{MifareData: sectors}, nil
}
