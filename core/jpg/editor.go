package jpg

import (
	"log/slog"

	"github.com/ankit-chaubey/web-image-meta/core"
	"github.com/ankit-chaubey/web-image-meta/core/validate"
)

// Options configure an Editor. The zero value validates with a full
// image/jpeg decode and logs nothing.
type Options struct {
	Validator validate.Validator
	Logger    *slog.Logger
}

// Editor rewrites JPEG buffers. It holds no per-call state and is safe
// for concurrent use.
type Editor struct {
	validator validate.Validator
	log       *slog.Logger
}

// New returns an Editor.
func New(opts Options) *Editor {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Editor{validator: opts.Validator, log: log}
}

var std = New(Options{})

// CleanMetadata strips metadata with the default Editor.
func CleanMetadata(data []byte) ([]byte, error) { return std.CleanMetadata(data) }

// ReadComment reads the first COM segment with the default Editor.
func ReadComment(data []byte) (string, bool, error) { return std.ReadComment(data) }

// WriteComment replaces all comments with the default Editor.
func WriteComment(data []byte, comment string) ([]byte, error) {
	return std.WriteComment(data, comment)
}

// ReadOrientation returns the EXIF orientation of a JPEG.
func ReadOrientation(data []byte) (uint16, bool, error) { return std.ReadOrientation(data) }

// EstimateTextComment is the exact number of bytes WriteComment adds to a
// file that has no comment yet: marker, length field and payload.
func EstimateTextComment(comment string) int {
	return 4 + len(comment)
}

// CleanMetadata keeps the structural segments, APP0, ICC profiles and
// Adobe APP14, replaces the first EXIF APP1 with an Orientation-only
// block (or drops it when there is no orientation) and drops everything
// else. Segments are never reordered.
func (e *Editor) CleanMetadata(data []byte) ([]byte, error) {
	segs, err := Scan(data)
	if err != nil {
		return nil, err
	}

	icc := collectICC(segs)
	keepICC := icc.complete()
	if icc.total > 0 && !keepICC {
		e.log.Debug("dropping incomplete ICC profile", "error", icc.check())
	}

	out := make([]byte, 0, len(data))
	exifDone := false
	for _, s := range segs {
		keep := false
		switch {
		case s.Marker == APP0:
			keep = true
		case s.Marker == APP1:
			if exifDone || !IsEXIF(s.Payload) {
				break
			}
			o, ok, err := ParseOrientation(s.Payload)
			if err != nil {
				e.log.Debug("dropping malformed EXIF", "offset", s.Offset, "error", err)
				break
			}
			if !ok || o < 1 || o > 8 {
				break
			}
			seg, err := NewSegment(APP1, MinimalEXIF(o))
			if err != nil {
				return nil, err
			}
			out = append(out, seg.Raw...)
			exifDone = true
			e.log.Debug("replaced EXIF", "offset", s.Offset, "orientation", o,
				"before", len(s.Raw), "after", len(seg.Raw))
			continue
		case s.Marker == APP2:
			keep = keepICC && IsICC(s.Payload)
		case s.Marker == APP14:
			keep = IsAdobe(s.Payload)
		case s.Class == ClassAppMetadata || s.Class == ClassComment:
		default:
			keep = true
		}
		if !keep {
			e.log.Debug("dropped segment", "marker", MarkerName(s.Marker), "offset", s.Offset, "bytes", len(s.Raw))
			continue
		}
		out = append(out, s.Raw...)
	}

	if err := e.validator.JPEG(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadComment decodes the first COM payload as UTF-8, replacing invalid
// sequences. ok is false when there is no comment.
func (e *Editor) ReadComment(data []byte) (comment string, ok bool, err error) {
	segs, err := Scan(data)
	if err != nil {
		return "", false, err
	}
	for _, s := range segs {
		if s.Marker == COM {
			return core.LossyUTF8(s.Payload), true, nil
		}
	}
	return "", false, nil
}

// WriteComment removes every COM segment and inserts one holding comment
// immediately before SOS. Comments longer than MaxPayload bytes are
// rejected.
func (e *Editor) WriteComment(data []byte, comment string) ([]byte, error) {
	if len(comment) > MaxPayload {
		return nil, core.InvalidFormatf("comment of %d bytes exceeds %d", len(comment), MaxPayload)
	}
	segs, err := Scan(data)
	if err != nil {
		return nil, err
	}
	com, err := NewSegment(COM, []byte(comment))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(data)+len(com.Raw))
	inserted := false
	for _, s := range segs {
		if s.Marker == COM {
			e.log.Debug("removed comment", "offset", s.Offset, "bytes", len(s.Raw))
			continue
		}
		if !inserted && (s.Marker == SOS || s.Marker == EOI) {
			out = append(out, com.Raw...)
			inserted = true
		}
		out = append(out, s.Raw...)
	}
	if !inserted {
		out = append(out, com.Raw...)
	}

	if err := e.validator.JPEG(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadOrientation parses the first EXIF APP1. ok is false when there is
// no EXIF or no Orientation entry.
func (e *Editor) ReadOrientation(data []byte) (uint16, bool, error) {
	segs, err := Scan(data)
	if err != nil {
		return 0, false, err
	}
	for _, s := range segs {
		if s.Marker == APP1 && IsEXIF(s.Payload) {
			return ParseOrientation(s.Payload)
		}
	}
	return 0, false, nil
}
