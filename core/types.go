// Package core defines the shared types, errors, byte cursor, format
// detection and configuration for web-image-meta.
package core

// MetaField represents a single metadata key-value pair.
type MetaField struct {
	Key      string // Canonical field name (e.g. "Comment", "Orientation", "Author")
	Value    string // String representation of the value
	Category string // Category label (e.g. "EXIF", "JPEG COM", "PNG tEXt")
	Editable bool   // Whether this field can be written back
}

// Metadata holds all metadata extracted from a single file.
type Metadata struct {
	FilePath string
	Format   string // "JPEG" or "PNG"
	Size     int
	Fields   []MetaField
}

// Get returns the value of the first field named key.
func (m *Metadata) Get(key string) (string, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// StripOptions controls a strip operation.
type StripOptions struct {
	// DryRun computes the cleaned size without writing.
	DryRun bool
}

// EditOptions holds field changes for an edit operation.
type EditOptions struct {
	// Set is a map of Key → Value. JPEG accepts "Comment"; PNG adds one
	// tEXt chunk per entry, in key order.
	Set map[string]string
	// DryRun reports the estimated size without writing.
	DryRun bool
}

// Report describes the size effect of a strip or edit.
type Report struct {
	FilePath string
	OutPath  string
	Before   int
	After    int
	// Estimated is true when After was computed by the estimators
	// rather than by producing the bytes.
	Estimated bool
	Written   bool
}

// Delta is After minus Before.
func (r *Report) Delta() int { return r.After - r.Before }

// FormatInfo describes what a format handler supports.
type FormatInfo struct {
	Name           string
	Extensions     []string
	MIMETypes      []string
	EditableFields []string
	Notes          string
}

// Handler is the file-level interface over the byte editors.
type Handler interface {
	// View reads and returns all discoverable metadata from path.
	View(path string) (*Metadata, error)
	// Edit writes new fields into path, saving to outPath.
	// outPath == "" means in-place edit.
	Edit(path string, outPath string, opts EditOptions) (*Report, error)
	// Strip removes metadata from path, saving to outPath.
	Strip(path string, outPath string, opts StripOptions) (*Report, error)
	// Info returns format capabilities.
	Info() FormatInfo
}
