// geometry.go — Aspect-ratio cropping and fixed-size resampling.
// Crops never scale; scaling is always a separate Lanczos resize so every
// source resolution lands on the same canvas.

// Package geometry crops and resizes source photos for the cover canvas.
package geometry

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Aspect is a width:height ratio expressed in integers.
type Aspect struct {
	W int
	H int
}

var (
	// Portrait is the 9:16 story canvas ratio.
	Portrait = Aspect{W: 9, H: 16}
	// Square is the 1:1 inset ratio.
	Square = Aspect{W: 1, H: 1}
)

// Target returns the largest w×h region with ratio a that fits inside
// width×height, trimming only the longer axis. Neither side drops below one
// pixel for a non-empty input.
func (a Aspect) Target(width, height int) (int, int) {
	if a.W <= 0 || a.H <= 0 {
		return width, height
	}
	// Compare width/height against a.W/a.H without floats.
	if width*a.H > height*a.W {
		return min(max(height*a.W/a.H, 1), width), height
	}
	return width, min(max(width*a.H/a.W, 1), height)
}

// CropToAspect cuts the centered region of img that matches a. The crop
// offset along the trimmed axis is (dimension - target) / 2.
func CropToAspect(img image.Image, a Aspect) *image.NRGBA {
	b := img.Bounds()
	w, h := a.Target(b.Dx(), b.Dy())
	left := (b.Dx() - w) / 2
	top := (b.Dy() - h) / 2
	rect := image.Rect(left, top, left+w, top+h).Add(b.Min)
	return imaging.Crop(img, rect)
}

// CropToSquare is CropToAspect with a 1:1 ratio.
func CropToSquare(img image.Image) *image.NRGBA {
	return CropToAspect(img, Square)
}

// Resize resamples img to exactly width×height with a Lanczos filter.
func Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Opaque returns a copy of img with every alpha value forced to 255,
// keeping the straight (non-premultiplied) colour channels.
func Opaque(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// Fill returns a new opaque canvas of the given size.
func Fill(width, height int, c color.Color) *image.NRGBA {
	return imaging.New(width, height, c)
}
