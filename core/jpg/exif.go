package jpg

import (
	"bytes"
	"encoding/binary"

	"github.com/ankit-chaubey/web-image-meta/core"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// EXIFHeader prefixes the TIFF block inside an APP1 payload.
var EXIFHeader = []byte("Exif\x00\x00")

const (
	tagOrientation = 0x0112
	typeShort      = 3
	tiffMagic      = 42
)

// IsEXIF reports whether an APP1 payload carries EXIF.
func IsEXIF(payload []byte) bool {
	return len(payload) > len(EXIFHeader) && bytes.HasPrefix(payload, EXIFHeader)
}

// ParseOrientation reads the Orientation entry of IFD0 from an APP1 EXIF
// payload. Other entries are skipped unread. ok is false when IFD0 has no
// Orientation entry; a malformed TIFF block is a ParseError.
func ParseOrientation(payload []byte) (orientation uint16, ok bool, err error) {
	if !IsEXIF(payload) {
		return 0, false, core.Parsef("APP1 payload is not EXIF")
	}
	c := core.NewCursor(payload[len(EXIFHeader):], binary.LittleEndian)

	bom, err := c.Bytes(2)
	if err != nil {
		return 0, false, core.Parsef("truncated TIFF header")
	}
	switch string(bom) {
	case "II":
		c.SetOrder(binary.LittleEndian)
	case "MM":
		c.SetOrder(binary.BigEndian)
	default:
		return 0, false, core.Parsef("unknown TIFF byte order %q", bom)
	}
	magic, err := c.Uint16()
	if err != nil {
		return 0, false, core.Parsef("truncated TIFF header")
	}
	if magic != tiffMagic {
		return 0, false, core.Parsef("bad TIFF magic %d", magic)
	}
	ifd0, err := c.Uint32()
	if err != nil {
		return 0, false, core.Parsef("truncated TIFF header")
	}
	if ifd0 < 8 || uint64(ifd0) > uint64(c.Len()) {
		return 0, false, core.Parsef("IFD0 offset %d outside TIFF block of %d bytes", ifd0, c.Len())
	}
	if err := c.Seek(int(ifd0)); err != nil {
		return 0, false, err
	}
	count, err := c.Uint16()
	if err != nil {
		return 0, false, core.Parsef("truncated IFD0 entry count")
	}
	for i := 0; i < int(count); i++ {
		entry, err := c.Bytes(12)
		if err != nil {
			return 0, false, core.Parsef("IFD0 entry %d of %d runs past TIFF block", i, count)
		}
		order := c.Order()
		if order.Uint16(entry[0:2]) != tagOrientation {
			continue
		}
		typ := order.Uint16(entry[2:4])
		n := order.Uint32(entry[4:8])
		if typ != typeShort || n < 1 {
			return 0, false, core.Parsef("orientation entry has type %d count %d", typ, n)
		}
		return order.Uint16(entry[8:10]), true, nil
	}
	return 0, false, nil
}

// MinimalEXIF builds an APP1 payload whose IFD0 holds only Orientation.
func MinimalEXIF(orientation uint16) []byte {
	le := binary.LittleEndian
	b := make([]byte, 0, len(EXIFHeader)+26)
	b = append(b, EXIFHeader...)
	b = append(b, 'I', 'I')
	b = le.AppendUint16(b, tiffMagic)
	b = le.AppendUint32(b, 8)
	b = le.AppendUint16(b, 1)
	b = le.AppendUint16(b, tagOrientation)
	b = le.AppendUint16(b, typeShort)
	b = le.AppendUint32(b, 1)
	b = le.AppendUint16(b, orientation)
	b = le.AppendUint16(b, 0)
	b = le.AppendUint32(b, 0) // no IFD1
	return b
}

// ─── goexif inspection ─────────────────────────────────────────────────────

// Field is one decoded EXIF tag for display.
type Field struct {
	Name  string
	Value string
}

// WalkEXIF decodes every tag of an APP1 EXIF payload with goexif, for
// viewing. Editing never depends on it.
func WalkEXIF(payload []byte) ([]Field, error) {
	if !IsEXIF(payload) {
		return nil, core.Parsef("APP1 payload is not EXIF")
	}
	x, err := exif.Decode(bytes.NewReader(payload[len(EXIFHeader):]))
	if err != nil {
		return nil, core.WrapParse(err, "decode EXIF")
	}
	w := &walker{}
	if err := x.Walk(w); err != nil {
		return nil, core.WrapParse(err, "walk EXIF")
	}
	return w.fields, nil
}

type walker struct {
	fields []Field
}

func (w *walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	// Remove surrounding quotes from string values
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	w.fields = append(w.fields, Field{Name: string(name), Value: val})
	return nil
}
