package jpg

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ankit-chaubey/web-image-meta/core"
	"github.com/rwcarlsen/goexif/exif"
)

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value [4]byte
}

func shortEntry(order byteOrder, tag, v uint16) ifdEntry {
	e := ifdEntry{tag: tag, typ: 3, count: 1}
	order.PutUint16(e.value[:2], v)
	return e
}

// asciiEntry holds up to three characters inline.
func asciiEntry(tag uint16, s string) ifdEntry {
	e := ifdEntry{tag: tag, typ: 2, count: uint32(len(s) + 1)}
	copy(e.value[:], s)
	return e
}

// exifPayload builds an APP1 payload with one IFD0.
func exifPayload(order byteOrder, entries ...ifdEntry) []byte {
	b := append([]byte{}, EXIFHeader...)
	if order == binary.BigEndian {
		b = append(b, 'M', 'M')
	} else {
		b = append(b, 'I', 'I')
	}
	b = order.AppendUint16(b, 42)
	b = order.AppendUint32(b, 8)
	b = order.AppendUint16(b, uint16(len(entries)))
	for _, e := range entries {
		b = order.AppendUint16(b, e.tag)
		b = order.AppendUint16(b, e.typ)
		b = order.AppendUint32(b, e.count)
		b = append(b, e.value[:]...)
	}
	return order.AppendUint32(b, 0)
}

func TestParseOrientation(t *testing.T) {
	le, be := binary.LittleEndian, binary.BigEndian
	tests := []struct {
		name    string
		payload []byte
		want    uint16
		ok      bool
	}{
		{"little endian", exifPayload(le, asciiEntry(0x010F, "Can"), shortEntry(le, 0x0112, 6)), 6, true},
		{"big endian", exifPayload(be, shortEntry(be, 0x0112, 3), asciiEntry(0x0110, "X1")), 3, true},
		{"no orientation", exifPayload(le, asciiEntry(0x010F, "Can")), 0, false},
		{"empty ifd", exifPayload(be), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseOrientation(tt.payload)
			if err != nil {
				t.Fatalf("ParseOrientation failed: %v", err)
			}
			if got != tt.want || ok != tt.ok {
				t.Fatalf("got (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseOrientation_Malformed(t *testing.T) {
	le := binary.LittleEndian
	good := exifPayload(le, shortEntry(le, 0x0112, 6))

	badOrder := append([]byte{}, good...)
	copy(badOrder[6:], "XX")
	badMagic := append([]byte{}, good...)
	le.PutUint16(badMagic[8:], 43)
	badOffset := append([]byte{}, good...)
	le.PutUint32(badOffset[10:], 5000)
	overCount := append([]byte{}, good...)
	le.PutUint16(overCount[14:], 40)
	wrongType := exifPayload(le, ifdEntry{tag: 0x0112, typ: 4, count: 1})

	tests := []struct {
		name    string
		payload []byte
	}{
		{"not exif", []byte("http://ns.adobe.com/xap/1.0/\x00")},
		{"truncated header", good[:9]},
		{"bad byte order", badOrder},
		{"bad magic", badMagic},
		{"offset past end", badOffset},
		{"entries past end", overCount},
		{"orientation not short", wrongType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseOrientation(tt.payload)
			if core.KindOf(err) != core.ParseError {
				t.Fatalf("err = %v, want ParseError", err)
			}
		})
	}
}

func TestMinimalEXIF(t *testing.T) {
	payload := MinimalEXIF(6)
	if len(payload) != 32 {
		t.Fatalf("len = %d, want 32", len(payload))
	}
	if !bytes.HasPrefix(payload, []byte("Exif\x00\x00II*\x00")) {
		t.Fatalf("unexpected header % x", payload[:10])
	}
	o, ok, err := ParseOrientation(payload)
	if err != nil || !ok || o != 6 {
		t.Fatalf("ParseOrientation(MinimalEXIF(6)) = %d, %v, %v", o, ok, err)
	}

	x, err := exif.Decode(bytes.NewReader(payload[len(EXIFHeader):]))
	if err != nil {
		t.Fatalf("goexif decode failed: %v", err)
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		t.Fatalf("goexif: no orientation: %v", err)
	}
	if v, err := tag.Int(0); err != nil || v != 6 {
		t.Fatalf("goexif orientation = %d, %v", v, err)
	}
}

func TestWalkEXIF(t *testing.T) {
	le := binary.LittleEndian
	fields, err := WalkEXIF(exifPayload(le, asciiEntry(0x010F, "Can"), shortEntry(le, 0x0112, 8)))
	if err != nil {
		t.Fatalf("WalkEXIF failed: %v", err)
	}
	got := map[string]string{}
	for _, f := range fields {
		got[f.Name] = f.Value
	}
	if got["Make"] != "Can" {
		t.Errorf("Make = %q, want Can", got["Make"])
	}
	if got["Orientation"] != "8" {
		t.Errorf("Orientation = %q, want 8", got["Orientation"])
	}
	if _, err := WalkEXIF([]byte("nope")); core.KindOf(err) != core.ParseError {
		t.Errorf("non-EXIF err = %v, want ParseError", err)
	}
}
