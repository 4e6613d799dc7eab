package jpg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/ankit-chaubey/web-image-meta/core"
	"github.com/ankit-chaubey/web-image-meta/core/validate"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

var jfif = rawSegment(APP0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"))

func adobeSegment() []byte {
	return rawSegment(APP14, []byte("Adobe\x00\x64\x00\x00\x00\x00\x01"))
}

func iccSegment(seq, total byte, data string) []byte {
	p := append([]byte{}, ICCSignature...)
	p = append(p, seq, total)
	return rawSegment(APP2, append(p, data...))
}

func fullMetadataJPEG(t *testing.T, orientation uint16) []byte {
	t.Helper()
	le := binary.LittleEndian
	return withSegments(baseJPEG(t),
		jfif,
		rawSegment(APP1, exifPayload(le,
			asciiEntry(0x010F, "Can"),
			asciiEntry(0x0110, "EOS"),
			shortEntry(le, 0x0112, orientation),
		)),
		rawSegment(APP1, []byte("http://ns.adobe.com/xap/1.0/\x00<x:xmpmeta/>")),
		iccSegment(1, 2, "first-half"),
		iccSegment(2, 2, "second-half"),
		rawSegment(APP13, []byte("Photoshop 3.0\x008BIM\x04\x04\x00\x00\x00\x00\x00\x00")),
		adobeSegment(),
		rawSegment(APP14, []byte("NotAdobe")),
		rawSegment(APP0+3, []byte("vendor")),
		rawSegment(COM, []byte("camera comment")),
	)
}

// app1Fields decodes the EXIF APP1 of data with goexif.
func app1Fields(t *testing.T, data []byte) map[string]*tiff.Tag {
	t.Helper()
	segs, err := Scan(data)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	for _, s := range segs {
		if s.Marker != APP1 {
			continue
		}
		x, err := exif.Decode(bytes.NewReader(s.Payload[len(EXIFHeader):]))
		if err != nil {
			t.Fatalf("goexif decode failed: %v", err)
		}
		w := tagCollector{}
		if err := x.Walk(w); err != nil {
			t.Fatalf("walk failed: %v", err)
		}
		return w
	}
	return nil
}

type tagCollector map[string]*tiff.Tag

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c[string(name)] = tag
	return nil
}

func TestCleanMetadata_KeepsOnlyDisplayCritical(t *testing.T) {
	data := fullMetadataJPEG(t, 6)
	cleaned, err := CleanMetadata(data)
	if err != nil {
		t.Fatalf("CleanMetadata failed: %v", err)
	}
	if len(cleaned) >= len(data) {
		t.Fatalf("cleaned %d bytes, original %d", len(cleaned), len(data))
	}

	want := []byte{SOI, APP0, APP1, APP2, APP2, APP14, DQT, SOF0, DHT, SOS}
	if got := markers(t, cleaned); !bytes.Equal(got, want) {
		t.Fatalf("markers = % X, want % X", got, want)
	}

	tags := app1Fields(t, cleaned)
	if len(tags) != 1 {
		t.Fatalf("cleaned EXIF has %d tags, want only Orientation", len(tags))
	}
	o, ok := tags["Orientation"]
	if !ok {
		t.Fatalf("Orientation missing from cleaned EXIF")
	}
	if v, _ := o.Int(0); v != 6 {
		t.Fatalf("Orientation = %d, want 6", v)
	}

	if _, ok, _ := ReadComment(cleaned); ok {
		t.Errorf("comment survived cleaning")
	}
	profile, ok, err := ICCProfile(mustScan(t, cleaned))
	if err != nil || !ok || string(profile) != "first-halfsecond-half" {
		t.Errorf("ICC profile = %q, %v, %v", profile, ok, err)
	}
}

func TestCleanMetadata_PhotoshopScenario(t *testing.T) {
	le := binary.LittleEndian
	data := withSegments(baseJPEG(t),
		rawSegment(APP1, exifPayload(le, asciiEntry(0x0131, "GIM"), shortEntry(le, 0x0112, 3))),
		rawSegment(APP13, []byte("Photoshop 3.0\x00")),
	)
	cleaned, err := CleanMetadata(data)
	if err != nil {
		t.Fatalf("CleanMetadata failed: %v", err)
	}
	if countMarker(t, cleaned, APP13) != 0 {
		t.Errorf("APP13 survived")
	}
	o, ok, err := ReadOrientation(cleaned)
	if err != nil || !ok || o != 3 {
		t.Fatalf("orientation = %d, %v, %v; want 3", o, ok, err)
	}
	if tags := app1Fields(t, cleaned); len(tags) != 1 {
		t.Errorf("cleaned EXIF has %d tags, want 1", len(tags))
	}
}

func TestCleanMetadata_DropsEXIFWithoutOrientation(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"no orientation", exifPayload(binary.BigEndian, asciiEntry(0x010F, "Can"))},
		{"out of range", exifPayload(binary.LittleEndian, shortEntry(binary.LittleEndian, 0x0112, 9))},
		{"malformed", []byte("Exif\x00\x00XX\x00\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, err := CleanMetadata(withSegments(baseJPEG(t), rawSegment(APP1, tt.payload)))
			if err != nil {
				t.Fatalf("CleanMetadata failed: %v", err)
			}
			if countMarker(t, cleaned, APP1) != 0 {
				t.Fatalf("APP1 survived")
			}
		})
	}
}

func TestCleanMetadata_IncompleteICCDropped(t *testing.T) {
	tests := []struct {
		name string
		segs [][]byte
	}{
		{"missing fragment", [][]byte{iccSegment(1, 3, "a"), iccSegment(3, 3, "c")}},
		{"total mismatch", [][]byte{iccSegment(1, 2, "a"), iccSegment(2, 3, "b")}},
		{"duplicate", [][]byte{iccSegment(1, 2, "a"), iccSegment(1, 2, "a")}},
		{"zero sequence", [][]byte{iccSegment(0, 1, "a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, err := CleanMetadata(withSegments(baseJPEG(t), tt.segs...))
			if err != nil {
				t.Fatalf("CleanMetadata failed: %v", err)
			}
			if n := countMarker(t, cleaned, APP2); n != 0 {
				t.Fatalf("%d APP2 segments survived", n)
			}
		})
	}
}

func TestCleanMetadata_Idempotent(t *testing.T) {
	inputs := map[string][]byte{
		"plain":    baseJPEG(t),
		"full":     fullMetadataJPEG(t, 6),
		"big exif": withSegments(baseJPEG(t), rawSegment(APP1, exifPayload(binary.BigEndian, shortEntry(binary.BigEndian, 0x0112, 8)))),
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			once, err := CleanMetadata(data)
			if err != nil {
				t.Fatalf("first clean failed: %v", err)
			}
			twice, err := CleanMetadata(once)
			if err != nil {
				t.Fatalf("second clean failed: %v", err)
			}
			if !bytes.Equal(once, twice) {
				t.Fatalf("clean is not idempotent: %d vs %d bytes", len(once), len(twice))
			}
		})
	}
}

func TestCleanMetadata_UndecodableOutput(t *testing.T) {
	data := []byte{0xFF, SOI}
	data = append(data, jfif...)
	data = append(data, 0xFF, EOI)
	_, err := CleanMetadata(data)
	if !errors.Is(err, core.ErrParse) {
		t.Fatalf("err = %v, want ParseError", err)
	}
}

func TestCleanMetadata_HeaderValidation(t *testing.T) {
	e := New(Options{Validator: validate.Validator{Level: validate.LevelHeader}})
	data := fullMetadataJPEG(t, 1)
	cleaned, err := e.CleanMetadata(data)
	if err != nil {
		t.Fatalf("CleanMetadata failed: %v", err)
	}
	want, err := CleanMetadata(data)
	if err != nil {
		t.Fatalf("CleanMetadata failed: %v", err)
	}
	if !bytes.Equal(cleaned, want) {
		t.Fatalf("validation level changed the output")
	}
}

func TestComment_RoundTrip(t *testing.T) {
	base := baseJPEG(t)
	comments := []string{
		"Test comment",
		"",
		"special chars: 日本語 émojis 🎯",
		strings.Repeat("x", MaxPayload),
	}
	for _, c := range comments {
		out, err := WriteComment(base, c)
		if err != nil {
			t.Fatalf("WriteComment(%d bytes) failed: %v", len(c), err)
		}
		got, ok, err := ReadComment(out)
		if err != nil || !ok {
			t.Fatalf("ReadComment = %v, %v", ok, err)
		}
		if got != c {
			t.Fatalf("round trip mismatch for %d-byte comment", len(c))
		}
		if delta := len(out) - len(base); delta != EstimateTextComment(c) {
			t.Fatalf("delta %d, estimate %d", delta, EstimateTextComment(c))
		}
	}
}

func TestWriteComment_ReplacesExistingBeforeSOS(t *testing.T) {
	data := withSegments(baseJPEG(t), rawSegment(COM, []byte("one")), jfif, rawSegment(COM, []byte("two")))
	out, err := WriteComment(data, "three")
	if err != nil {
		t.Fatalf("WriteComment failed: %v", err)
	}
	m := markers(t, out)
	if countMarker(t, out, COM) != 1 {
		t.Fatalf("markers = % X, want exactly one COM", m)
	}
	if m[len(m)-2] != COM || m[len(m)-1] != SOS {
		t.Fatalf("COM is not immediately before SOS: % X", m)
	}
	if got, _, _ := ReadComment(out); got != "three" {
		t.Fatalf("comment = %q, want three", got)
	}
}

func TestWriteComment_TooLong(t *testing.T) {
	_, err := WriteComment(baseJPEG(t), strings.Repeat("x", MaxPayload+1))
	if !errors.Is(err, core.ErrInvalidFormat) {
		t.Fatalf("err = %v, want InvalidFormat", err)
	}
}

func TestReadComment(t *testing.T) {
	base := baseJPEG(t)
	if _, ok, err := ReadComment(base); err != nil || ok {
		t.Fatalf("plain JPEG: ok=%v err=%v, want no comment", ok, err)
	}
	lossy := withSegments(base, rawSegment(COM, []byte{'f', 0xFF, 'o'}), rawSegment(COM, []byte("second")))
	got, ok, err := ReadComment(lossy)
	if err != nil || !ok {
		t.Fatalf("ReadComment = %v, %v", ok, err)
	}
	if got != "f\uFFFDo" {
		t.Fatalf("comment = %q, want first comment with replacement", got)
	}
	if _, _, err := ReadComment([]byte("GIF89a")); !errors.Is(err, core.ErrInvalidFormat) {
		t.Fatalf("GIF err = %v, want InvalidFormat", err)
	}
}

func TestReadComment_LossyPerSubpart(t *testing.T) {
	tests := []struct {
		payload []byte
		want    string
	}{
		{[]byte("a\xff\xfeb"), "a\uFFFD\uFFFDb"},
		{[]byte("x\xe6\x97y"), "x\uFFFDy"},
		{[]byte("\xed\xa0\x80"), "\uFFFD\uFFFD\uFFFD"},
		{[]byte("end\xf0\x9f\x8e"), "end\uFFFD"},
		{[]byte("ok 日本"), "ok 日本"},
	}
	for _, tt := range tests {
		data := withSegments(baseJPEG(t), rawSegment(COM, tt.payload))
		got, ok, err := ReadComment(data)
		if err != nil || !ok {
			t.Fatalf("ReadComment(% x) = %v, %v", tt.payload, ok, err)
		}
		if got != tt.want {
			t.Errorf("ReadComment(% x) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}

func TestReadComment_TruncatedContainer(t *testing.T) {
	data := withSegments([]byte{0xFF, SOI}, jfif, rawSegment(COM, []byte("hello")))
	if _, _, err := ReadComment(data); !errors.Is(err, core.ErrParse) {
		t.Fatalf("ReadComment err = %v, want ParseError", err)
	}
	if _, _, err := ReadOrientation(data); !errors.Is(err, core.ErrParse) {
		t.Fatalf("ReadOrientation err = %v, want ParseError", err)
	}
}

func TestReadOrientation_NoEXIF(t *testing.T) {
	if _, ok, err := ReadOrientation(baseJPEG(t)); err != nil || ok {
		t.Fatalf("ok=%v err=%v, want no orientation", ok, err)
	}
}

func mustScan(t *testing.T, data []byte) []Segment {
	t.Helper()
	segs, err := Scan(data)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return segs
}
