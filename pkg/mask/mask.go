// mask.go — Rounded-rectangle alpha masks and masked pasting.
// Coverage is binary (0 or 255) and sampled at pixel centres so corners
// stay crisp at the fixed output scale.

// Package mask builds rounded alpha masks and pastes images through them.
package mask

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Rounded returns a size×size mask that is opaque inside a square with
// corners of the given radius.
func Rounded(size, radius int) *image.Alpha {
	return RoundedRect(size, size, radius)
}

// RoundedRect returns a w×h rounded-rectangle mask. The radius is clamped to
// half of the shorter side.
func RoundedRect(w, h, radius int) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, max(w, 0), max(h, 0)))
	if w <= 0 || h <= 0 {
		return m
	}
	r := float64(min(max(radius, 0), w/2, h/2))
	fw, fh := float64(w), float64(h)

	for y := 0; y < h; y++ {
		py := float64(y) + 0.5
		row := m.Pix[y*m.Stride : y*m.Stride+w]
		for x := 0; x < w; x++ {
			if inside(float64(x)+0.5, py, fw, fh, r) {
				row[x] = 0xff
			}
		}
	}
	return m
}

// inside reports whether (px, py) lies within the rounded rect [0,w]×[0,h].
func inside(px, py, w, h, r float64) bool {
	if r <= 0 {
		return true
	}
	cx := math.Min(math.Max(px, r), w-r)
	cy := math.Min(math.Max(py, r), h-r)
	dx, dy := px-cx, py-cy
	return dx*dx+dy*dy <= r*r
}

// PasteMasked composites src onto dst with its top-left at `at`, weighted by
// m. Destination pixels where m is zero are left untouched.
func PasteMasked(dst draw.Image, src image.Image, m image.Image, at image.Point) {
	sb := src.Bounds()
	rect := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	draw.DrawMask(dst, rect, src, sb.Min, m, m.Bounds().Min, draw.Over)
}

// Plate returns a size×size uniform source of colour c, used as the
// translucent backing behind the inset.
func Plate(size int, c color.Color) *image.NRGBA {
	p := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(p, p.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return p
}
