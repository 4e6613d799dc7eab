package core

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// FormatID enumerates every recognised format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtGIF  FormatID = "gif"
	FmtWebP FormatID = "webp"
	FmtTIFF FormatID = "tiff"
	FmtBMP  FormatID = "bmp"

	FmtUnknown FormatID = "unknown"
)

// Signatures of the two editable formats.
var (
	JPEGSignature = []byte{0xFF, 0xD8}
	PNGSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".jpe":  FmtJPEG,
	".png":  FmtPNG,
	".gif":  FmtGIF,
	".webp": FmtWebP,
	".tiff": FmtTIFF,
	".tif":  FmtTIFF,
	".bmp":  FmtBMP,
}

// IsJPEG reports whether b starts with SOI and is long enough to hold
// at least one more marker.
func IsJPEG(b []byte) bool {
	return len(b) >= 4 && bytes.HasPrefix(b, JPEGSignature)
}

// IsPNG reports whether b starts with the 8-byte PNG signature.
func IsPNG(b []byte) bool {
	return bytes.HasPrefix(b, PNGSignature)
}

// Detect identifies an in-memory buffer by magic bytes only.
func Detect(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	case IsPNG(b):
		return FmtPNG
	case bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a")):
		return FmtGIF
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FmtWebP
	case bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) ||
		bytes.HasPrefix(b, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FmtTIFF
	case b[0] == 0x42 && b[1] == 0x4D:
		return FmtBMP
	}
	return FmtUnknown
}

// DetectFormat returns the FormatID for the given file, first by reading
// magic bytes and falling back to extension.
func DetectFormat(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, IOErr(err, "open "+path)
	}
	defer f.Close()

	buf := make([]byte, 16)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return FmtUnknown, IOErr(err, "read "+path)
	}

	if id := Detect(buf[:n]); id != FmtUnknown {
		return id, nil
	}

	dot := strings.LastIndex(path, ".")
	if dot >= 0 {
		if id, ok := extMap[strings.ToLower(path[dot:])]; ok {
			return id, nil
		}
	}
	return FmtUnknown, nil
}

// Editable reports whether the byte editors support id.
func Editable(id FormatID) bool {
	return id == FmtJPEG || id == FmtPNG
}
