// filter.go — Background blur and darkening overlay.
// The blur runs on a half-size copy and is scaled back up; that softening is
// part of the look and must not be replaced with a full-resolution blur.

// Package filter implements the background blur and darken passes.
package filter

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

const (
	// MaxStrength is the upper bound of the blur slider.
	MaxStrength = 100
	// DefaultDarkenAlpha is the black overlay opacity applied to the background.
	DefaultDarkenAlpha uint8 = 100
)

// Func is the signature of a blur pass. Renderers accept one so callers can
// swap or instrument it.
type Func func(img image.Image, strength int) *image.NRGBA

// Radius maps a 0..100 strength to a 0..10 blur radius.
func Radius(strength int) float64 {
	return float64(clamp(strength, 0, MaxStrength)) / 10
}

// Blur softens img by strength (0..100). Strength 0 returns an unfiltered copy.
func Blur(img image.Image, strength int) *image.NRGBA {
	radius := Radius(strength)
	if radius <= 0 {
		return imaging.Clone(img)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	sw, sh := max(w/2, 1), max(h/2, 1)

	small := imaging.Resize(img, sw, sh, imaging.Lanczos)
	small = imaging.Blur(small, radius)
	return imaging.Resize(small, w, h, imaging.Lanczos)
}

// Darken composites black at the given alpha over img and returns an opaque
// result: out = src*(1-a) + black*a.
func Darken(img image.Image, alpha uint8) *image.NRGBA {
	out := imaging.Clone(img)
	if alpha > 0 {
		overlay := image.NewUniform(color.NRGBA{A: alpha})
		draw.Draw(out, out.Bounds(), overlay, image.Point{}, draw.Over)
	}
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
