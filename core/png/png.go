// Package png edits the chunk structure of PNG files: whitelist cleaning
// and tEXt/zTXt/iTXt text chunks. Image data is copied, never decoded.
package png

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/ankit-chaubey/web-image-meta/core"
)

// Chunk types the engine refers to by name.
const (
	TypeIHDR = "IHDR"
	TypePLTE = "PLTE"
	TypeIDAT = "IDAT"
	TypeIEND = "IEND"
	TypeTEXT = "tEXt"
	TypeZTXT = "zTXt"
	TypeITXT = "iTXt"
)

// maxChunkLength is the PNG limit on a chunk's data length (2^31-1).
const maxChunkLength = 1<<31 - 1

// Chunk is one length/type/data/CRC record. Raw holds its exact source
// bytes.
type Chunk struct {
	Type   string
	Offset int
	Data   []byte
	CRC    uint32
	Raw    []byte
}

// File is a scanned PNG: the chunks from IHDR to IEND and whatever bytes
// follow IEND, which are never interpreted.
type File struct {
	Chunks  []Chunk
	Trailer []byte
}

// Scan verifies the signature and reads every chunk through IEND,
// checking each CRC.
func Scan(data []byte) (*File, error) {
	if !core.IsPNG(data) {
		return nil, core.InvalidFormatf("not a valid PNG file")
	}
	c := core.NewCursor(data, binary.BigEndian)
	if err := c.Seek(len(core.PNGSignature)); err != nil {
		return nil, err
	}

	f := &File{}
	for {
		if c.Remaining() == 0 {
			return nil, core.Parsef("IEND chunk not found")
		}
		start := c.Pos()
		length, err := c.Uint32()
		if err != nil {
			return nil, core.Parsef("truncated chunk length at offset %d", start)
		}
		if length > maxChunkLength {
			return nil, core.Parsef("chunk length %d at offset %d exceeds 2^31-1", length, start)
		}
		typ, err := c.Bytes(4)
		if err != nil {
			return nil, core.Parsef("truncated chunk type at offset %d", start)
		}
		if !validType(typ) {
			return nil, core.Parsef("invalid chunk type %q at offset %d", typ, start)
		}
		body, err := c.Bytes(int(length))
		if err != nil {
			return nil, core.Parsef("%s chunk at offset %d extends past end of data", typ, start)
		}
		stored, err := c.Uint32()
		if err != nil {
			return nil, core.Parsef("truncated CRC of %s chunk at offset %d", typ, start)
		}
		if sum := checksum(typ, body); sum != stored {
			return nil, core.Parsef("CRC mismatch in %s chunk at offset %d: stored %08x, computed %08x", typ, start, stored, sum)
		}

		ch := Chunk{Type: string(typ), Offset: start, Data: body, CRC: stored, Raw: data[start:c.Pos()]}
		f.Chunks = append(f.Chunks, ch)
		if ch.Type == TypeIEND {
			f.Trailer = c.Rest()
			return f, nil
		}
	}
}

func validType(typ []byte) bool {
	for _, b := range typ {
		if (b < 'A' || b > 'Z') && (b < 'a' || b > 'z') {
			return false
		}
	}
	return true
}

// checksum is the CRC-32 of type and data.
func checksum(typ, data []byte) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, typ)
	return crc32.Update(crc, crc32.IEEETable, data)
}

// NewChunk serialises a chunk of type typ.
func NewChunk(typ string, data []byte) Chunk {
	raw := make([]byte, 0, 12+len(data))
	raw = binary.BigEndian.AppendUint32(raw, uint32(len(data)))
	raw = append(raw, typ...)
	raw = append(raw, data...)
	crc := checksum([]byte(typ), data)
	raw = binary.BigEndian.AppendUint32(raw, crc)
	return Chunk{Type: typ, Offset: -1, Data: raw[8 : 8+len(data)], CRC: crc, Raw: raw}
}

// Has reports whether f contains a chunk of type typ.
func (f *File) Has(typ string) bool {
	for _, c := range f.Chunks {
		if c.Type == typ {
			return true
		}
	}
	return false
}

// Types lists the chunk types in order.
func (f *File) Types() []string {
	types := make([]string, len(f.Chunks))
	for i, c := range f.Chunks {
		types[i] = c.Type
	}
	return types
}
