package nfc

// Sector layout constants for the MIFARE Classic 1K data model.
const (
	BlockSize        = 16
	BlockHexLength   = BlockSize * 2
	SectorDataBlocks = 3 // blocks inspected by the classifier
	UIDHexLength     = 8
)

// SectorBlocks is the ordered hex content of one authenticated sector.
// Only the first SectorDataBlocks entries are inspected; a trailing sector
// trailer block is ignored.
type SectorBlocks []string

// Kind identifies a Classification variant.
type Kind string

const (
	KindManufacturer Kind = "manufacturer"
	KindNDEFText     Kind = "ndef"
	KindPlainText    Kind = "text"
	KindRaw          Kind = "raw"
	KindIncomplete   Kind = "incomplete"
)

// Classification is the result of classifying a sector. It is one of
// ManufacturerBlock, NDEFText, PlainText, RawDump or Incomplete.
type Classification interface {
	Kind() Kind
	String() string
}

// ManufacturerBlock is a sector-zero UID block with a valid BCC.
type ManufacturerBlock struct {
	UID              string
	ManufacturerText string
}

// NDEFText is the text of an NDEF Text record found inside the sector.
type NDEFText struct {
	Text string
}

// PlainText is the printable content of the sector.
type PlainText struct {
	Text string
}

// RawDump is returned when nothing printable was found. HexPreview holds the
// block 0 hex as read.
type RawDump struct {
	HexPreview string
}

// Incomplete is returned for sectors with fewer than SectorDataBlocks blocks.
type Incomplete struct{}

func (ManufacturerBlock) Kind() Kind { return KindManufacturer }
func (NDEFText) Kind() Kind          { return KindNDEFText }
func (PlainText) Kind() Kind         { return KindPlainText }
func (RawDump) Kind() Kind           { return KindRaw }
func (Incomplete) Kind() Kind        { return KindIncomplete }

// sectorView holds the decoded buffers shared by every strategy.
type sectorView struct {
	block0Hex string
	block0    []byte
	stream    []byte
	codec     ByteCodec
}

// strategy inspects a sector and reports a classification when it recognizes it.
type strategy func(v sectorView) (Classification, bool)

// Classifier runs its strategies in order and returns the first match.
// A zero Classifier behaves like DefaultClassifier.
type Classifier struct {
	codec      ByteCodec
	strategies []strategy
}

// NewClassifier builds a classifier using codec and the standard strategy chain:
// manufacturer block, NDEF Text record, printable-text fallback.
func NewClassifier(codec ByteCodec) *Classifier {
	if codec == nil {
		codec = DefaultCodec
	}
	return &Classifier{
		codec: codec,
		strategies: []strategy{
			detectManufacturerBlock,
			detectNDEFText,
			extractFallback,
		},
	}
}

// DefaultClassifier uses DefaultCodec.
var DefaultClassifier = NewClassifier(DefaultCodec)

// Classify maps blocks to exactly one Classification. It never fails.
func (c *Classifier) Classify(blocks SectorBlocks) Classification {
	if len(blocks) < SectorDataBlocks {
		return Incomplete{}
	}
	if c == nil || len(c.strategies) == 0 {
		c = DefaultClassifier
	}

	block0Hex := blocks[0]
	v := sectorView{
		block0Hex: block0Hex,
		block0:    c.codec.HexToBytes(block0Hex),
		stream:    c.codec.HexToBytes(blocks[0] + blocks[1] + blocks[2]),
		codec:     c.codec,
	}

	for _, detect := range c.strategies {
		if result, ok := detect(v); ok {
			return result
		}
	}

	// extractFallback always matches; this is only reached with a custom chain.
	return RawDump{HexPreview: block0Hex}
}

// ClassifySector classifies blocks with DefaultClassifier.
func ClassifySector(blocks SectorBlocks) Classification {
	return DefaultClassifier.Classify(blocks)
}
