// Package image connects the JPEG and PNG byte editors to files on disk.
package image

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/ankit-chaubey/web-image-meta/core"
	"github.com/ankit-chaubey/web-image-meta/core/jpg"
	"github.com/ankit-chaubey/web-image-meta/core/png"
	"github.com/ankit-chaubey/web-image-meta/core/validate"
)

// ──────────────────────────────────────────────────────────────────────────────
// Handler
// ──────────────────────────────────────────────────────────────────────────────

// Options are shared by both editors.
type Options struct {
	Validator       validate.Validator
	Logger          *slog.Logger
	MaxInflateBytes int64
}

// Handler implements core.Handler for JPEG and PNG.
type Handler struct {
	format core.FormatID
	jpeg   *jpg.Editor
	png    *png.Editor
	log    *slog.Logger
}

// New returns a Handler for the given format.
func New(format core.FormatID, opts Options) (*Handler, error) {
	if !core.Editable(format) {
		return nil, core.InvalidFormatf("unsupported image format: %s", format)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		format: format,
		jpeg:   jpg.New(jpg.Options{Validator: opts.Validator, Logger: log}),
		png:    png.New(png.Options{Validator: opts.Validator, Logger: log, MaxInflateBytes: opts.MaxInflateBytes}),
		log:    log,
	}, nil
}

// ForFile detects the format of path and returns a Handler for it.
func ForFile(path string, opts Options) (*Handler, error) {
	id, err := core.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return New(id, opts)
}

func (h *Handler) Info() core.FormatInfo {
	return formatInfo[h.format]
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtJPEG: {
		Name:           "JPEG",
		Extensions:     []string{".jpg", ".jpeg", ".jpe"},
		MIMETypes:      []string{"image/jpeg"},
		EditableFields: []string{"Comment"},
		Notes:          "Strip keeps JFIF, ICC, Adobe and EXIF orientation. Edit replaces the COM comment.",
	},
	core.FmtPNG: {
		Name:           "PNG",
		Extensions:     []string{".png"},
		MIMETypes:      []string{"image/png"},
		EditableFields: []string{"any tEXt keyword"},
		Notes:          "Strip keeps IHDR, PLTE, IDAT, IEND, tRNS, gAMA, cHRM, sRGB, iCCP, sBIT, pHYs. Edit appends tEXt chunks.",
	},
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.IOErr(err, "read "+path)
	}
	return data, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return core.IOErr(err, "write "+path)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// View
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	m := &core.Metadata{FilePath: path, Format: formatInfo[h.format].Name, Size: len(data)}
	switch h.format {
	case core.FmtJPEG:
		err = viewJPEG(data, m, h.log)
	case core.FmtPNG:
		err = h.viewPNG(data, m)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ─── JPEG ────────────────────────────────────────────────────────────────────

func viewJPEG(data []byte, m *core.Metadata, log *slog.Logger) error {
	segs, err := jpg.Scan(data)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(segs))
	exifSeen := false
	commentSeen := false
	for _, s := range segs {
		names = append(names, jpg.MarkerName(s.Marker))
		switch {
		case s.Marker == jpg.COM && !commentSeen:
			commentSeen = true
			comment, _, _ := jpg.ReadComment(data)
			m.Fields = append(m.Fields, core.MetaField{Key: "Comment", Value: comment, Category: "JPEG COM", Editable: true})
		case s.Marker == jpg.APP1 && jpg.IsEXIF(s.Payload) && !exifSeen:
			exifSeen = true
			if o, ok, err := jpg.ParseOrientation(s.Payload); err == nil && ok {
				m.Fields = append(m.Fields, core.MetaField{Key: "Orientation", Value: fmt.Sprint(o), Category: "Orientation"})
			}
			fields, err := jpg.WalkEXIF(s.Payload)
			if err != nil {
				log.Warn("EXIF not decodable", "error", err)
				continue
			}
			for _, f := range fields {
				m.Fields = append(m.Fields, core.MetaField{Key: f.Name, Value: f.Value, Category: "EXIF"})
			}
		case s.Marker == jpg.APP14 && jpg.IsAdobe(s.Payload):
			m.Fields = append(m.Fields, core.MetaField{Key: "AdobeTransform", Value: fmt.Sprint(s.Payload[11]), Category: "Adobe"})
		}
	}

	profile, ok, err := jpg.ICCProfile(segs)
	switch {
	case err != nil:
		m.Fields = append(m.Fields, core.MetaField{Key: "ICCProfile", Value: "invalid: " + err.Error(), Category: "ICC"})
	case ok:
		m.Fields = append(m.Fields, core.MetaField{Key: "ICCProfile", Value: fmt.Sprintf("%d bytes", len(profile)), Category: "ICC"})
	}
	m.Fields = append(m.Fields, core.MetaField{Key: "Segments", Value: strings.Join(names, " "), Category: "Structure"})
	return nil
}

// ─── PNG ─────────────────────────────────────────────────────────────────────

func (h *Handler) viewPNG(data []byte, m *core.Metadata) error {
	f, err := png.Scan(data)
	if err != nil {
		return err
	}
	texts, err := h.png.ReadTextChunks(data)
	if err != nil {
		return err
	}
	for _, t := range texts {
		m.Fields = append(m.Fields, core.MetaField{
			Key:      t.Keyword,
			Value:    t.Text,
			Category: "PNG " + t.Kind.String(),
			Editable: t.Kind == png.KindText,
		})
	}
	m.Fields = append(m.Fields, core.MetaField{Key: "Chunks", Value: strings.Join(f.Types(), " "), Category: "Structure"})
	if len(f.Trailer) > 0 {
		m.Fields = append(m.Fields, core.MetaField{Key: "Trailer", Value: fmt.Sprintf("%d bytes", len(f.Trailer)), Category: "Structure"})
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Edit
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Edit(path string, outPath string, opts core.EditOptions) (*core.Report, error) {
	if len(opts.Set) == 0 {
		return nil, core.InvalidFormatf("nothing to edit")
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	out := core.ResolveOutPath(path, outPath)
	r := &core.Report{FilePath: path, OutPath: out, Before: len(data)}

	keys := make([]string, 0, len(opts.Set))
	for k := range opts.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if h.format == core.FmtJPEG {
		for _, k := range keys {
			if k != "Comment" {
				return nil, core.InvalidFormatf("JPEG field %q is not editable; supported: Comment", k)
			}
		}
	}

	if opts.DryRun {
		r.Estimated = true
		r.After = len(data)
		for _, k := range keys {
			switch h.format {
			case core.FmtJPEG:
				r.After += jpg.EstimateTextComment(opts.Set[k])
			case core.FmtPNG:
				r.After += png.EstimateTextChunk(k, opts.Set[k])
			}
		}
		return r, nil
	}

	result := data
	for _, k := range keys {
		switch h.format {
		case core.FmtJPEG:
			result, err = h.jpeg.WriteComment(result, opts.Set[k])
		case core.FmtPNG:
			result, err = h.png.AddTextChunk(result, k, opts.Set[k])
		}
		if err != nil {
			return nil, fmt.Errorf("edit %s: %w", path, err)
		}
	}
	if err := writeFile(out, result); err != nil {
		return nil, err
	}
	r.After, r.Written = len(result), true
	return r, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Strip
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Strip(path string, outPath string, opts core.StripOptions) (*core.Report, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var cleaned []byte
	switch h.format {
	case core.FmtJPEG:
		cleaned, err = h.jpeg.CleanMetadata(data)
	case core.FmtPNG:
		cleaned, err = h.png.CleanChunks(data)
	}
	if err != nil {
		return nil, fmt.Errorf("strip %s: %w", path, err)
	}

	out := core.ResolveOutPath(path, outPath)
	r := &core.Report{FilePath: path, OutPath: out, Before: len(data), After: len(cleaned)}
	if opts.DryRun {
		return r, nil
	}
	if err := writeFile(out, cleaned); err != nil {
		return nil, err
	}
	r.Written = true
	h.log.Info("stripped", "file", path, "out", out, "saved", -r.Delta())
	return r, nil
}
