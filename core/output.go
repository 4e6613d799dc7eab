package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout}
}

// PrintMetadata renders a Metadata struct to the configured output.
func (p *Printer) PrintMetadata(m *Metadata) {
	if p.JSON {
		p.printJSON(m)
		return
	}
	p.printText(m)
}

func (p *Printer) printText(m *Metadata) {
	fmt.Fprintf(p.Writer, "File  : %s\n", m.FilePath)
	fmt.Fprintf(p.Writer, "Format: %s (%d bytes)\n", m.Format, m.Size)
	if len(m.Fields) == 0 {
		fmt.Fprintln(p.Writer, "(no metadata found)")
		return
	}
	fmt.Fprintln(p.Writer)

	// Group by category, keeping first-seen order
	groups := make(map[string][]MetaField)
	var order []string
	for _, f := range m.Fields {
		if _, ok := groups[f.Category]; !ok {
			order = append(order, f.Category)
		}
		groups[f.Category] = append(groups[f.Category], f)
	}

	for _, cat := range order {
		fmt.Fprintf(p.Writer, "── %s ──\n", cat)
		for _, f := range groups[cat] {
			edit := ""
			if f.Editable && p.Verbose {
				edit = " [editable]"
			}
			fmt.Fprintf(p.Writer, "  %-30s %s%s\n", f.Key+":", f.Value, edit)
		}
		fmt.Fprintln(p.Writer)
	}
}

func (p *Printer) printJSON(m *Metadata) {
	type jsonField struct {
		Key      string `json:"key"`
		Value    string `json:"value"`
		Category string `json:"category"`
		Editable bool   `json:"editable"`
	}
	type jsonOutput struct {
		FilePath string      `json:"file"`
		Format   string      `json:"format"`
		Size     int         `json:"size"`
		Fields   []jsonField `json:"fields"`
	}

	out := jsonOutput{FilePath: m.FilePath, Format: m.Format, Size: m.Size, Fields: []jsonField{}}
	for _, f := range m.Fields {
		out.Fields = append(out.Fields, jsonField(f))
	}
	p.encode(out)
}

// PrintReport renders the size effect of a strip or edit.
func (p *Printer) PrintReport(r *Report) {
	if p.JSON {
		p.encode(struct {
			File      string `json:"file"`
			Out       string `json:"out,omitempty"`
			Before    int    `json:"before"`
			After     int    `json:"after"`
			Delta     int    `json:"delta"`
			Estimated bool   `json:"estimated"`
			Written   bool   `json:"written"`
		}{r.FilePath, r.OutPath, r.Before, r.After, r.Delta(), r.Estimated, r.Written})
		return
	}
	verb := "would be"
	if r.Written {
		verb = "written to " + r.OutPath + ","
	}
	approx := ""
	if r.Estimated {
		approx = "~"
	}
	fmt.Fprintf(p.Writer, "✓ %s %s %s%d → %s%d bytes (%+d)\n", r.FilePath, verb, approx, r.Before, approx, r.After, r.Delta())
}

// PrintValue prints a single named result, e.g. an estimate or a comment.
func (p *Printer) PrintValue(key string, value any) {
	if p.JSON {
		p.encode(map[string]any{key: value})
		return
	}
	fmt.Fprintf(p.Writer, "%s: %v\n", key, value)
}

func (p *Printer) encode(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ Error: "+msg)
}

// ParseKV parses a "Key=Value" string. The key is trimmed; the value is
// kept verbatim so text chunks can carry surrounding spaces.
func ParseKV(s string) (key, value string, ok bool) {
	idx := strings.Index(s, "=")
	if idx < 1 {
		return "", "", false
	}
	return strings.TrimSpace(s[:idx]), s[idx+1:], true
}

// ResolveOutPath returns dst if non-empty, otherwise src (in-place).
func ResolveOutPath(src, dst string) string {
	if dst == "" {
		return src
	}
	return dst
}
