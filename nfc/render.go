package nfc

// Render formats a classification as a single display line.
func Render(c Classification) string {
	if c == nil {
		return Incomplete{}.String()
	}
	return c.String()
}

func (m ManufacturerBlock) String() string {
	return "[Manufacturer] UID:" + m.UID + " | Data:" + m.ManufacturerText
}

func (n NDEFText) String() string { return "[NDEF] " + n.Text }

func (p PlainText) String() string { return "[Text] " + p.Text }

func (r RawDump) String() string { return "[Raw] " + r.HexPreview + "..." }

func (Incomplete) String() string { return "Incomplete data" }
