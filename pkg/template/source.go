// source.go — Source photo loading. Decoding honours EXIF orientation and
// drops alpha so the rest of the pipeline works on opaque pixels.
package template

import (
	"io"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/xob0t/covercard/pkg/geometry"
)

// LoadSource decodes the image at path. The absolute path is its identity.
func LoadSource(path string) (*SourceImage, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	id := path
	if abs, err := filepath.Abs(path); err == nil {
		id = abs
	}
	return &SourceImage{ID: id, Image: geometry.Opaque(img)}, nil
}

// DecodeSource decodes an image stream and tags it with id.
func DecodeSource(id string, r io.Reader) (*SourceImage, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Source: id, Err: err}
	}
	return &SourceImage{ID: id, Image: geometry.Opaque(img)}, nil
}

func (s *SourceImage) check() error {
	if s == nil || s.Image == nil {
		id := ""
		if s != nil {
			id = s.ID
		}
		return &DecodeError{Source: id, Err: ErrNoSource}
	}
	if b := s.Image.Bounds(); b.Empty() {
		return &DecodeError{Source: s.ID, Err: ErrNoSource}
	}
	return nil
}
