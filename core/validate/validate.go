// Package validate re-decodes rewritten JPEG and PNG buffers so that no
// caller receives bytes that claim to be an image but do not decode.
package validate

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"

	"github.com/ankit-chaubey/web-image-meta/core"
	"github.com/gen2brain/jpegli"
)

// Level selects how much of the image is decoded.
type Level int

const (
	// LevelFull decodes every pixel.
	LevelFull Level = iota
	// LevelHeader decodes only the headers (dimensions, color model).
	LevelHeader
)

// Backend selects the JPEG decoder.
type Backend string

const (
	BackendStd    Backend = "std"
	BackendJpegli Backend = "jpegli"
)

// Validator decodes buffers with the configured level and backend.
// The zero value does a full decode with image/jpeg.
type Validator struct {
	Level       Level
	JPEGBackend Backend
	Logger      *slog.Logger
}

// FromConfig builds a Validator from the CLI configuration.
func FromConfig(cfg core.Config, log *slog.Logger) Validator {
	v := Validator{JPEGBackend: BackendStd, Logger: log}
	if cfg.Validation == "header" {
		v.Level = LevelHeader
	}
	if cfg.JPEGDecoder == string(BackendJpegli) {
		v.JPEGBackend = BackendJpegli
	}
	return v
}

type decodeFuncs struct {
	config func(io.Reader) (image.Config, error)
	full   func(io.Reader) (image.Image, error)
}

func (v Validator) jpegFuncs() decodeFuncs {
	if v.JPEGBackend == BackendJpegli {
		return decodeFuncs{config: jpegli.DecodeConfig, full: jpegli.Decode}
	}
	return decodeFuncs{config: jpeg.DecodeConfig, full: jpeg.Decode}
}

// JPEG checks that data decodes as a JPEG. Failures are ParseErrors.
func (v Validator) JPEG(data []byte) error {
	return v.check("jpeg", data, v.jpegFuncs())
}

// PNG checks that data decodes as a PNG. Failures are ParseErrors.
func (v Validator) PNG(data []byte) error {
	return v.check("png", data, decodeFuncs{config: png.DecodeConfig, full: png.Decode})
}

func (v Validator) check(format string, data []byte, fns decodeFuncs) error {
	if v.Logger != nil {
		v.Logger.Debug("validating output", "format", format, "bytes", len(data),
			"full", v.Level == LevelFull, "backend", v.JPEGBackend)
	}
	if v.Level == LevelHeader {
		cfg, err := fns.config(bytes.NewReader(data))
		if err != nil {
			return core.WrapParse(err, "output does not decode as "+format)
		}
		if cfg.Width == 0 || cfg.Height == 0 {
			return core.Parsef("output %s has invalid dimensions %dx%d", format, cfg.Width, cfg.Height)
		}
		return nil
	}
	img, err := fns.full(bytes.NewReader(data))
	if err != nil {
		return core.WrapParse(err, "output does not decode as "+format)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return core.Parsef("output %s has invalid dimensions %dx%d", format, b.Dx(), b.Dy())
	}
	return nil
}
