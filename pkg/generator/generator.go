// Package generator writes rendered covers to disk.
//
// All output follows one pipeline: the caller renders an image.Image first,
// then the format is chosen from the file extension and encoded with imaging.
package generator

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/xob0t/covercard/pkg/template"
)

// PlainSuffix is appended to the cover's base name for the plain crop.
const PlainSuffix = "_plain"

// JPEGQuality is used for .jpg and .jpeg output.
const JPEGQuality = 95

// Generate writes img to output. The format is inferred from the extension:
//   - ".png" → PNG
//   - ".jpg", ".jpeg" → JPEG
func Generate(output string, img image.Image) error {
	format, err := formatFor(filepath.Ext(output))
	if err != nil {
		return err
	}
	return writeFile(output, img, format)
}

// Encode writes img to w in the format named by ext (".png", ".jpg", ".jpeg").
func Encode(w io.Writer, ext string, img image.Image) error {
	format, err := formatFor(ext)
	if err != nil {
		return err
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(JPEGQuality))
}

// SiblingPath inserts suffix before the extension: cover.png → cover_plain.png.
func SiblingPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// WriteArtifacts writes the composed cover to path and the plain crop to its
// sibling. It returns both paths.
func WriteArtifacts(path string, c template.Composition) (cover, plain string, err error) {
	if c.Cover == nil || c.Plain == nil {
		return "", "", fmt.Errorf("write artifacts: composition is incomplete")
	}
	cover = path
	plain = SiblingPath(path, PlainSuffix)
	if err := Generate(cover, c.Cover); err != nil {
		return "", "", err
	}
	if err := Generate(plain, c.Plain); err != nil {
		return cover, "", err
	}
	return cover, plain, nil
}

func formatFor(ext string) (imaging.Format, error) {
	switch strings.ToLower(ext) {
	case ".png":
		return imaging.PNG, nil
	case ".jpg", ".jpeg":
		return imaging.JPEG, nil
	default:
		return 0, fmt.Errorf("unsupported format %q: use .png, .jpg or .jpeg", ext)
	}
}
