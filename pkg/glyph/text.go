// text.go — Anchored text drawing. Text is measured with the face metrics
// and the anchor refers to the top of the ascender, not the baseline.

// Package glyph draws text and the vector UI chrome of the cover card.
package glyph

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Align selects how a text anchor is interpreted.
type Align int

const (
	// AlignCenter centres the measured box on the anchor.
	AlignCenter Align = iota
	// AlignLeft puts the box's top-left corner at the anchor.
	AlignLeft
)

// ParseAlign accepts "center"/"centre" and "left". Empty means center.
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "center", "centre":
		return AlignCenter, nil
	case "left":
		return AlignLeft, nil
	default:
		return AlignCenter, fmt.Errorf("unknown text alignment %q", s)
	}
}

func (a Align) String() string {
	if a == AlignLeft {
		return "left"
	}
	return "center"
}

// Measure returns the pixel width and height of text's ink box.
func Measure(face font.Face, text string) (int, int) {
	bounds, _ := font.BoundString(face, text)
	return (bounds.Max.X - bounds.Min.X).Ceil(), (bounds.Max.Y - bounds.Min.Y).Ceil()
}

// DrawText draws text anchored at (x, y) using align.
func DrawText(dst draw.Image, text string, x, y int, face font.Face, col color.Color, align Align) {
	if text == "" || face == nil {
		return
	}
	if align == AlignCenter {
		w, h := Measure(face, text)
		x -= w / 2
		y -= h / 2
	}
	drawString(dst, text, x, y+face.Metrics().Ascent.Ceil(), face, col)
}

// DrawTextCentered is DrawText with AlignCenter.
func DrawTextCentered(dst draw.Image, text string, x, y int, face font.Face, col color.Color) {
	DrawText(dst, text, x, y, face, col, AlignCenter)
}

// DrawTextLeft is DrawText with AlignLeft.
func DrawTextLeft(dst draw.Image, text string, x, y int, face font.Face, col color.Color) {
	DrawText(dst, text, x, y, face, col, AlignLeft)
}

// drawString draws text with its baseline at y.
func drawString(dst draw.Image, text string, x, y int, face font.Face, col color.Color) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}
