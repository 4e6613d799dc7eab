package png

import (
	"bytes"
	"compress/zlib"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ankit-chaubey/web-image-meta/core"
	"golang.org/x/text/encoding/charmap"
)

// TextKind is the chunk type a text entry came from.
type TextKind int

const (
	KindText          TextKind = iota // tEXt
	KindCompressed                    // zTXt
	KindInternational                 // iTXt
)

func (k TextKind) String() string {
	switch k {
	case KindText:
		return TypeTEXT
	case KindCompressed:
		return TypeZTXT
	case KindInternational:
		return TypeITXT
	}
	return "unknown"
}

// TextChunk is a decoded keyword/text pair.
type TextChunk struct {
	Keyword string
	Text    string
	Kind    TextKind
	// Language and TranslatedKeyword are set for iTXt only.
	Language          string
	TranslatedKeyword string
	// Compressed is true for zTXt and for iTXt with the compression flag.
	Compressed bool
}

// MaxKeywordLength is the PNG limit on keyword length.
const MaxKeywordLength = 79

// ValidateKeyword accepts 1-79 printable ASCII characters without
// leading, trailing or consecutive spaces.
func ValidateKeyword(keyword string) error {
	if len(keyword) == 0 || len(keyword) > MaxKeywordLength {
		return core.InvalidFormatf("keyword must be 1-%d characters, got %d", MaxKeywordLength, len(keyword))
	}
	for i := 0; i < len(keyword); i++ {
		if b := keyword[i]; b < 0x20 || b > 0x7E {
			return core.InvalidFormatf("keyword %q contains non-Latin character at byte %d", keyword, i)
		}
	}
	if keyword[0] == ' ' || keyword[len(keyword)-1] == ' ' {
		return core.InvalidFormatf("keyword %q has leading or trailing space", keyword)
	}
	if strings.Contains(keyword, "  ") {
		return core.InvalidFormatf("keyword %q has consecutive spaces", keyword)
	}
	return nil
}

// ─── decoding ────────────────────────────────────────────────────────────────

func decodeLatin1(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// ISO 8859-1 maps every byte; not reached in practice.
		return core.LossyUTF8(b)
	}
	return string(s)
}

// latin1Text keeps valid UTF-8 as is and reads anything else as Latin-1.
func latin1Text(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return decodeLatin1(b)
}

// splitKeyword cuts data at the first null byte.
func splitKeyword(data []byte) (string, []byte, error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", nil, core.Parsef("missing null separator after keyword")
	}
	if i == 0 || i > MaxKeywordLength {
		return "", nil, core.Parsef("keyword length %d outside 1-%d", i, MaxKeywordLength)
	}
	return decodeLatin1(data[:i]), data[i+1:], nil
}

func inflate(b []byte, limit int64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, core.WrapParse(err, "inflate text")
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, core.WrapParse(err, "inflate text")
	}
	if int64(len(out)) > limit {
		return nil, core.Parsef("inflated text exceeds %d bytes", limit)
	}
	return out, nil
}

// DecodeText parses tEXt data: keyword, null, text.
func DecodeText(data []byte) (TextChunk, error) {
	keyword, rest, err := splitKeyword(data)
	if err != nil {
		return TextChunk{}, err
	}
	return TextChunk{Keyword: keyword, Text: latin1Text(rest), Kind: KindText}, nil
}

// DecodeCompressedText parses zTXt data: keyword, null, method byte,
// zlib stream. limit caps the inflated size.
func DecodeCompressedText(data []byte, limit int64) (TextChunk, error) {
	keyword, rest, err := splitKeyword(data)
	if err != nil {
		return TextChunk{}, err
	}
	if len(rest) < 1 {
		return TextChunk{}, core.Parsef("missing compression method")
	}
	if rest[0] != 0 {
		return TextChunk{}, core.Parsef("unknown compression method %d", rest[0])
	}
	text, err := inflate(rest[1:], limit)
	if err != nil {
		return TextChunk{}, err
	}
	return TextChunk{Keyword: keyword, Text: latin1Text(text), Kind: KindCompressed, Compressed: true}, nil
}

// DecodeInternationalText parses iTXt data: keyword, null, compression
// flag, compression method, language tag, null, translated keyword, null,
// UTF-8 text.
func DecodeInternationalText(data []byte, limit int64) (TextChunk, error) {
	keyword, rest, err := splitKeyword(data)
	if err != nil {
		return TextChunk{}, err
	}
	if len(rest) < 2 {
		return TextChunk{}, core.Parsef("missing compression fields")
	}
	flag, method := rest[0], rest[1]
	if flag > 1 {
		return TextChunk{}, core.Parsef("invalid compression flag %d", flag)
	}
	if flag == 1 && method != 0 {
		return TextChunk{}, core.Parsef("unknown compression method %d", method)
	}
	rest = rest[2:]

	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return TextChunk{}, core.Parsef("missing null separator after language tag")
	}
	lang := string(rest[:i])
	rest = rest[i+1:]

	i = bytes.IndexByte(rest, 0)
	if i < 0 {
		return TextChunk{}, core.Parsef("missing null separator after translated keyword")
	}
	translated := core.LossyUTF8(rest[:i])
	text := rest[i+1:]

	if flag == 1 {
		if text, err = inflate(text, limit); err != nil {
			return TextChunk{}, err
		}
	}
	return TextChunk{
		Keyword:           keyword,
		Text:              core.LossyUTF8(text),
		Kind:              KindInternational,
		Language:          lang,
		TranslatedKeyword: translated,
		Compressed:        flag == 1,
	}, nil
}

// ─── encoding ────────────────────────────────────────────────────────────────

func deflate(text string) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := io.WriteString(w, text); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeText builds tEXt data. text is written as its UTF-8 bytes.
func EncodeText(keyword, text string) ([]byte, error) {
	if err := ValidateKeyword(keyword); err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(keyword)+1+len(text))
	b = append(b, keyword...)
	b = append(b, 0)
	b = append(b, text...)
	return b, nil
}

// EncodeCompressedText builds zTXt data.
func EncodeCompressedText(keyword, text string) ([]byte, error) {
	if err := ValidateKeyword(keyword); err != nil {
		return nil, err
	}
	z, err := deflate(text)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(keyword)+2+len(z))
	b = append(b, keyword...)
	b = append(b, 0, 0)
	b = append(b, z...)
	return b, nil
}

// EncodeInternationalText builds iTXt data, deflating text when compress
// is set.
func EncodeInternationalText(keyword, lang, translated, text string, compress bool) ([]byte, error) {
	if err := ValidateKeyword(keyword); err != nil {
		return nil, err
	}
	if strings.IndexByte(lang, 0) >= 0 || strings.IndexByte(translated, 0) >= 0 {
		return nil, core.InvalidFormatf("language tag and translated keyword must not contain null bytes")
	}
	body := []byte(text)
	var flag byte
	if compress {
		z, err := deflate(text)
		if err != nil {
			return nil, err
		}
		body, flag = z, 1
	}
	b := make([]byte, 0, len(keyword)+len(lang)+len(translated)+5+len(body))
	b = append(b, keyword...)
	b = append(b, 0, flag, 0)
	b = append(b, lang...)
	b = append(b, 0)
	b = append(b, translated...)
	b = append(b, 0)
	b = append(b, body...)
	return b, nil
}
