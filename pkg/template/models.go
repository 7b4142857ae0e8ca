// Package template composes cover cards: a cached blurred background, a
// rounded photo inset, two text lines and the player glyphs.
package template

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/xob0t/covercard/pkg/filter"
	"github.com/xob0t/covercard/pkg/glyph"
)

// Defaults used when a field is left empty.
const (
	DefaultTitle  = "TAU MICH AUF"
	DefaultArtist = "NIKLAS DEE"
	DefaultBlur   = 60
)

// ── Inputs ──

// SourceImage is a decoded, read-only photo plus its identity.
type SourceImage struct {
	ID    string
	Image image.Image
}

// RenderRequest describes one cover. Only SourceID and Blur affect the
// cacheable background.
type RenderRequest struct {
	SourceID string
	Title    string
	Artist   string
	Blur     int // 0..100
}

// CacheKey identifies the background a request needs.
type CacheKey struct {
	SourceID string
	Blur     int
}

// CacheKey returns the background identity of r.
func (r RenderRequest) CacheKey() CacheKey {
	return CacheKey{SourceID: r.SourceID, Blur: r.Blur}
}

// WithDefaults fills empty text and clamps Blur into 0..100.
func (r RenderRequest) WithDefaults() RenderRequest {
	if strings.TrimSpace(r.Title) == "" {
		r.Title = DefaultTitle
	}
	if strings.TrimSpace(r.Artist) == "" {
		r.Artist = DefaultArtist
	}
	r.Blur = min(max(r.Blur, 0), filter.MaxStrength)
	return r
}

// ── Outputs ──

// Composition holds both artifacts of one render.
type Composition struct {
	Cover *image.NRGBA // background + inset + text + glyphs
	Plain *image.NRGBA // effect-free 9:16 crop
}

// cachedBackground is the single cache slot: the blurred and darkened canvas
// for one (source, blur) pair.
type cachedBackground struct {
	key    CacheKey
	raster *image.NRGBA
}

// Stats counts background cache activity.
type Stats struct {
	Renders          int
	BackgroundBuilds int
	BackgroundHits   int
}

// ── Layout ──

// Layout holds every fixed measurement of the cover card, in canvas pixels
// unless noted.
type Layout struct {
	Width  int
	Height int

	DarkenAlpha uint8

	InsetScale   float64 // fraction of canvas width
	InsetAnchor  float64 // fraction of canvas height
	InsetOffset  int     // added to the anchor; negative lifts the inset
	CornerRadius int
	ShadowPad    int
	ShadowAlpha  uint8

	ArtistGap  int // inset bottom → artist line
	TitleGap   int // artist line → title line
	ArtistSize float64
	TitleSize  float64

	ProgressGap      int // title line → progress bar
	ControlsGap      int // progress bar → transport controls
	ProgressFraction float64

	Align     glyph.Align
	TextColor color.NRGBA // text, progress bar and transport glyphs
}

// DefaultLayout returns the 1080×1920 story layout.
func DefaultLayout() Layout {
	return Layout{
		Width:            1080,
		Height:           1920,
		DarkenAlpha:      filter.DefaultDarkenAlpha,
		InsetScale:       0.7,
		InsetAnchor:      0.3,
		InsetOffset:      -20,
		CornerRadius:     40,
		ShadowPad:        10,
		ShadowAlpha:      64,
		ArtistGap:        128,
		TitleGap:         80,
		ArtistSize:       60,
		TitleSize:        45,
		ProgressGap:      100,
		ControlsGap:      80,
		ProgressFraction: glyph.DefaultProgress,
		Align:            glyph.AlignCenter,
		TextColor:        glyph.White,
	}
}

// Validate rejects layouts that leave the 9:16 canvas.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("layout: canvas %dx%d must be positive", l.Width, l.Height)
	}
	if l.Width*16 != l.Height*9 {
		return fmt.Errorf("layout: canvas %dx%d is not 9:16", l.Width, l.Height)
	}
	if l.InsetScale <= 0 || l.InsetScale > 1 {
		return fmt.Errorf("layout: inset scale %.2f out of range", l.InsetScale)
	}
	if l.TextColor.A == 0 {
		return fmt.Errorf("layout: text color is fully transparent")
	}
	if !l.Inset().In(image.Rect(0, 0, l.Width, l.Height)) {
		return fmt.Errorf("layout: inset %v leaves the canvas", l.Inset())
	}
	return nil
}

// Inset returns the square photo placement.
func (l Layout) Inset() image.Rectangle {
	size := int(float64(l.Width) * l.InsetScale)
	x := (l.Width - size) / 2
	y := int(float64(l.Height)*l.InsetAnchor) + l.InsetOffset
	return image.Rect(x, y, x+size, y+size)
}

// ArtistY is the anchor line of the artist name.
func (l Layout) ArtistY() int { return l.Inset().Max.Y + l.ArtistGap }

// TitleY is the anchor line of the title.
func (l Layout) TitleY() int { return l.ArtistY() + l.TitleGap }

// ProgressY is the top of the progress bar.
func (l Layout) ProgressY() int { return l.TitleY() + l.ProgressGap }

// ControlsY is the centre line of the transport controls.
func (l Layout) ControlsY() int { return l.ProgressY() + l.ControlsGap }

// TextX is the horizontal anchor for both text lines.
func (l Layout) TextX() int {
	if l.Align == glyph.AlignLeft {
		return l.Inset().Min.X
	}
	return l.Width / 2
}
