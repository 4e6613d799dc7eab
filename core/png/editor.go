package png

import (
	"fmt"
	"log/slog"

	"github.com/ankit-chaubey/web-image-meta/core"
	"github.com/ankit-chaubey/web-image-meta/core/validate"
)

// keepChunks is the whitelist CleanChunks retains.
var keepChunks = map[string]bool{
	"IHDR": true,
	"PLTE": true,
	"IDAT": true,
	"IEND": true,
	"tRNS": true,
	"gAMA": true,
	"cHRM": true,
	"sRGB": true,
	"iCCP": true,
	"sBIT": true,
	"pHYs": true,
}

// Kept reports whether CleanChunks retains chunks of type typ.
func Kept(typ string) bool { return keepChunks[typ] }

// Options configure an Editor. The zero value validates with a full
// image/png decode, caps inflation at core.DefaultMaxInflateBytes and
// logs nothing.
type Options struct {
	Validator       validate.Validator
	Logger          *slog.Logger
	MaxInflateBytes int64
}

// Editor rewrites PNG buffers. It holds no per-call state.
type Editor struct {
	validator  validate.Validator
	log        *slog.Logger
	maxInflate int64
}

// New returns an Editor.
func New(opts Options) *Editor {
	e := &Editor{validator: opts.Validator, log: opts.Logger, maxInflate: opts.MaxInflateBytes}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	if e.maxInflate <= 0 {
		e.maxInflate = core.DefaultMaxInflateBytes
	}
	return e
}

var std = New(Options{})

// CleanChunks drops non-whitelisted chunks with the default Editor.
func CleanChunks(data []byte) ([]byte, error) { return std.CleanChunks(data) }

// ReadTextChunks decodes every text chunk with the default Editor.
func ReadTextChunks(data []byte) ([]TextChunk, error) { return std.ReadTextChunks(data) }

// AddTextChunk appends a tEXt chunk with the default Editor.
func AddTextChunk(data []byte, keyword, text string) ([]byte, error) {
	return std.AddTextChunk(data, keyword, text)
}

// AddInternationalTextChunk appends an iTXt chunk with the default Editor.
func AddInternationalTextChunk(data []byte, keyword, lang, translated, text string, compress bool) ([]byte, error) {
	return std.AddInternationalTextChunk(data, keyword, lang, translated, text, compress)
}

// EstimateTextChunk is the exact number of bytes AddTextChunk adds:
// length, type, null separator and CRC around keyword and text.
func EstimateTextChunk(keyword, text string) int {
	return 13 + len(keyword) + len(text)
}

// CleanChunks keeps only whitelisted chunks, in their original order,
// and drops anything after IEND.
func (e *Editor) CleanChunks(data []byte) ([]byte, error) {
	f, err := Scan(data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data))
	out = append(out, core.PNGSignature...)
	for _, c := range f.Chunks {
		if !keepChunks[c.Type] {
			e.log.Debug("dropped chunk", "type", c.Type, "offset", c.Offset, "bytes", len(c.Raw))
			continue
		}
		out = append(out, c.Raw...)
	}
	if len(f.Trailer) > 0 {
		e.log.Debug("dropped trailing bytes", "bytes", len(f.Trailer))
	}

	if err := e.validator.PNG(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadTextChunks decodes tEXt, zTXt and iTXt chunks in file order. One
// malformed chunk fails the whole call.
func (e *Editor) ReadTextChunks(data []byte) ([]TextChunk, error) {
	f, err := Scan(data)
	if err != nil {
		return nil, err
	}
	var texts []TextChunk
	for _, c := range f.Chunks {
		var (
			t   TextChunk
			err error
		)
		switch c.Type {
		case TypeTEXT:
			t, err = DecodeText(c.Data)
		case TypeZTXT:
			t, err = DecodeCompressedText(c.Data, e.maxInflate)
		case TypeITXT:
			t, err = DecodeInternationalText(c.Data, e.maxInflate)
		default:
			continue
		}
		if err != nil {
			return nil, &core.Error{Kind: core.ParseError, Msg: fmt.Sprintf("%s chunk at offset %d", c.Type, c.Offset), Err: err}
		}
		texts = append(texts, t)
	}
	return texts, nil
}

// AddTextChunk inserts an uncompressed tEXt chunk immediately before
// IEND. Existing chunks with the same keyword are left in place.
func (e *Editor) AddTextChunk(data []byte, keyword, text string) ([]byte, error) {
	body, err := EncodeText(keyword, text)
	if err != nil {
		return nil, err
	}
	return e.insertBeforeIEND(data, NewChunk(TypeTEXT, body))
}

// AddInternationalTextChunk inserts an iTXt chunk immediately before IEND.
func (e *Editor) AddInternationalTextChunk(data []byte, keyword, lang, translated, text string, compress bool) ([]byte, error) {
	body, err := EncodeInternationalText(keyword, lang, translated, text, compress)
	if err != nil {
		return nil, err
	}
	return e.insertBeforeIEND(data, NewChunk(TypeITXT, body))
}

func (e *Editor) insertBeforeIEND(data []byte, chunk Chunk) ([]byte, error) {
	f, err := Scan(data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data)+len(chunk.Raw))
	out = append(out, core.PNGSignature...)
	for _, c := range f.Chunks {
		if c.Type == TypeIEND {
			out = append(out, chunk.Raw...)
			e.log.Debug("inserted chunk", "type", chunk.Type, "offset", len(out)-len(chunk.Raw), "bytes", len(chunk.Raw))
		}
		out = append(out, c.Raw...)
	}
	out = append(out, f.Trailer...)

	if err := e.validator.PNG(out); err != nil {
		return nil, err
	}
	return out, nil
}
