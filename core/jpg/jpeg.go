// Package jpg edits the marker-segment structure of JPEG files without
// touching the entropy-coded image data.
package jpg

import (
	"encoding/binary"
	"fmt"

	"github.com/ankit-chaubey/web-image-meta/core"
)

// Marker codes (the byte following 0xFF).
const (
	TEM   byte = 0x01
	SOF0  byte = 0xC0
	DHT   byte = 0xC4
	SOF15 byte = 0xCF
	RST0  byte = 0xD0
	RST7  byte = 0xD7
	SOI   byte = 0xD8
	EOI   byte = 0xD9
	SOS   byte = 0xDA
	DQT   byte = 0xDB
	DNL   byte = 0xDC
	DRI   byte = 0xDD
	APP0  byte = 0xE0
	APP1  byte = 0xE1
	APP2  byte = 0xE2
	APP13 byte = 0xED
	APP14 byte = 0xEE
	APP15 byte = 0xEF
	COM   byte = 0xFE
)

// MaxPayload is the largest payload a length-prefixed segment can carry:
// the 16-bit length counts its own two bytes.
const MaxPayload = 0xFFFF - 2

// Class tags what a segment is for.
type Class int

const (
	ClassStructural Class = iota
	ClassAppMetadata
	ClassComment
	ClassScanData
)

func (c Class) String() string {
	switch c {
	case ClassStructural:
		return "structural"
	case ClassAppMetadata:
		return "app-metadata"
	case ClassComment:
		return "comment"
	case ClassScanData:
		return "scan-data"
	}
	return "unknown"
}

// Segment is one marker segment of a JPEG stream.
//
// Raw holds the exact source bytes, including any 0xFF fill bytes before
// the marker; for SOS it runs to the end of the buffer so the entropy-coded
// data, restart markers, EOI and trailing bytes travel with it. Joining the
// Raw of every scanned segment reproduces the input.
type Segment struct {
	Marker  byte
	Offset  int
	Payload []byte // after the length field; nil for standalone markers
	Raw     []byte
	Class   Class
}

// Standalone reports whether marker m has no length field.
func Standalone(m byte) bool {
	return (m >= RST0 && m <= EOI) || m == TEM
}

// Classify returns the class of marker m.
func Classify(m byte) Class {
	switch {
	case m == COM:
		return ClassComment
	case m >= APP0 && m <= APP15:
		return ClassAppMetadata
	case m == SOS:
		return ClassScanData
	}
	return ClassStructural
}

// MarkerName returns a short name for logging.
func MarkerName(m byte) string {
	switch {
	case m == SOI:
		return "SOI"
	case m == EOI:
		return "EOI"
	case m == SOS:
		return "SOS"
	case m == DQT:
		return "DQT"
	case m == DHT:
		return "DHT"
	case m == DRI:
		return "DRI"
	case m == DNL:
		return "DNL"
	case m == COM:
		return "COM"
	case m == TEM:
		return "TEM"
	case m >= RST0 && m <= RST7:
		return fmt.Sprintf("RST%d", m-RST0)
	case m >= APP0 && m <= APP15:
		return fmt.Sprintf("APP%d", m-APP0)
	case m >= SOF0 && m <= SOF15:
		return fmt.Sprintf("SOF%d", m-SOF0)
	}
	return fmt.Sprintf("0x%02X", m)
}

// Scan splits data into segments from SOI up to and including SOS.
// A buffer without SOI is InvalidFormat; truncation, including a buffer
// that ends before SOS or EOI, is a ParseError.
func Scan(data []byte) ([]Segment, error) {
	if !core.IsJPEG(data) {
		return nil, core.InvalidFormatf("not a valid JPEG file")
	}
	segs := []Segment{{Marker: SOI, Raw: data[:2], Class: ClassStructural}}

	c := core.NewCursor(data, binary.BigEndian)
	if err := c.Seek(2); err != nil {
		return nil, err
	}
	for c.Remaining() > 0 {
		start := c.Pos()
		b, _ := c.Byte()
		if b != 0xFF {
			return nil, core.Parsef("invalid marker byte 0x%02X at offset %d", b, start)
		}
		marker := byte(0xFF)
		for marker == 0xFF {
			m, err := c.Byte()
			if err != nil {
				return nil, core.Parsef("truncated marker at offset %d", start)
			}
			marker = m
		}
		if marker == 0x00 {
			return nil, core.Parsef("stuffed byte outside scan data at offset %d", start)
		}

		if Standalone(marker) {
			seg := Segment{Marker: marker, Offset: start, Raw: data[start:c.Pos()], Class: Classify(marker)}
			if marker == EOI {
				seg.Raw = data[start:]
				return append(segs, seg), nil
			}
			segs = append(segs, seg)
			continue
		}

		length, err := c.Uint16()
		if err != nil {
			return nil, core.Parsef("truncated length of %s at offset %d", MarkerName(marker), start)
		}
		if length < 2 {
			return nil, core.Parsef("invalid length %d of %s at offset %d", length, MarkerName(marker), start)
		}
		payload, err := c.Bytes(int(length) - 2)
		if err != nil {
			return nil, core.Parsef("%s at offset %d extends past end of data", MarkerName(marker), start)
		}

		seg := Segment{Marker: marker, Offset: start, Payload: payload, Raw: data[start:c.Pos()], Class: Classify(marker)}
		if marker == SOS {
			seg.Raw = data[start:]
			return append(segs, seg), nil
		}
		segs = append(segs, seg)
	}
	return nil, core.Parsef("missing SOS or EOI marker")
}

// NewSegment serialises a length-prefixed segment.
func NewSegment(marker byte, payload []byte) (Segment, error) {
	if len(payload) > MaxPayload {
		return Segment{}, core.InvalidFormatf("%s payload of %d bytes exceeds %d", MarkerName(marker), len(payload), MaxPayload)
	}
	raw := make([]byte, 0, 4+len(payload))
	raw = append(raw, 0xFF, marker)
	raw = binary.BigEndian.AppendUint16(raw, uint16(len(payload)+2))
	raw = append(raw, payload...)
	return Segment{Marker: marker, Offset: -1, Payload: raw[4:], Raw: raw, Class: Classify(marker)}, nil
}

// Join concatenates the raw bytes of segs.
func Join(segs []Segment) []byte {
	n := 0
	for _, s := range segs {
		n += len(s.Raw)
	}
	out := make([]byte, 0, n)
	for _, s := range segs {
		out = append(out, s.Raw...)
	}
	return out
}
