// renderer.go — Cover composition engine. Layers are applied in order:
// background (cached) -> shadow plate -> inset -> text -> glyphs.
// The renderer is not safe for concurrent use; callers serialize renders.
package template

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"

	"github.com/xob0t/covercard/pkg/filter"
	"github.com/xob0t/covercard/pkg/geometry"
	"github.com/xob0t/covercard/pkg/glyph"
	"github.com/xob0t/covercard/pkg/mask"
)

// Renderer builds cover cards and owns the background cache slot.
type Renderer struct {
	layout Layout
	blur   filter.Func
	faces  *glyph.FaceCache
	logger *slog.Logger

	cache *cachedBackground
	stats Stats
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLayout replaces the default layout.
func WithLayout(l Layout) Option {
	return func(r *Renderer) { r.layout = l }
}

// WithAlign sets the text alignment mode.
func WithAlign(a glyph.Align) Option {
	return func(r *Renderer) { r.layout.Align = a }
}

// WithTextColor sets the color of text and glyphs.
func WithTextColor(c color.NRGBA) Option {
	return func(r *Renderer) { r.layout.TextColor = c }
}

// WithBlur replaces the blur pass, e.g. to count invocations.
func WithBlur(fn filter.Func) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.blur = fn
		}
	}
}

// WithFonts sets the font resolver. Faces are memoized per size.
func WithFonts(fr *glyph.FontResolver) Option {
	return func(r *Renderer) { r.faces = glyph.NewFaceCache(fr) }
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRenderer creates a renderer with the default layout, blur and fonts.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		layout: DefaultLayout(),
		blur:   filter.Blur,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.faces == nil {
		r.faces = glyph.NewFaceCache(glyph.NewFontResolver())
	}
	if err := r.layout.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Layout returns the active layout.
func (r *Renderer) Layout() Layout { return r.layout }

// Stats returns cache counters.
func (r *Renderer) Stats() Stats { return r.stats }

// Invalidate empties the background cache slot.
func (r *Renderer) Invalidate() { r.cache = nil }

// Cached reports the key held by the cache slot, if any.
func (r *Renderer) Cached() (CacheKey, bool) {
	if r.cache == nil {
		return CacheKey{}, false
	}
	return r.cache.key, true
}

// Compose renders the cover and the plain crop for one request.
func (r *Renderer) Compose(req RenderRequest, src *SourceImage) (Composition, error) {
	cover, err := r.Render(req, src)
	if err != nil {
		return Composition{}, err
	}
	plain, err := r.RenderPlain(src)
	if err != nil {
		return Composition{}, err
	}
	return Composition{Cover: cover, Plain: plain}, nil
}

// Render produces a fresh cover card. The cached background is copied before
// anything is drawn on it.
func (r *Renderer) Render(req RenderRequest, src *SourceImage) (*image.NRGBA, error) {
	if err := src.check(); err != nil {
		return nil, err
	}
	req = req.WithDefaults()
	req.SourceID = src.ID
	r.stats.Renders++

	canvas := imaging.Clone(r.background(req, src))

	inset := r.layout.Inset()
	r.drawInset(canvas, src, inset)
	r.drawText(canvas, req)
	r.drawGlyphs(canvas, inset)
	return canvas, nil
}

// RenderPlain crops and scales the source to the canvas with no effects.
func (r *Renderer) RenderPlain(src *SourceImage) (*image.NRGBA, error) {
	if err := src.check(); err != nil {
		return nil, err
	}
	crop := geometry.CropToAspect(src.Image, geometry.Portrait)
	return geometry.Resize(crop, r.layout.Width, r.layout.Height), nil
}

// background returns the blurred, darkened canvas for req, rebuilding and
// replacing the cache slot only when (source, blur) changed.
func (r *Renderer) background(req RenderRequest, src *SourceImage) *image.NRGBA {
	key := req.CacheKey()
	if r.cache != nil && r.cache.key == key {
		r.stats.BackgroundHits++
		return r.cache.raster
	}

	crop := geometry.CropToAspect(src.Image, geometry.Portrait)
	bg := geometry.Resize(crop, r.layout.Width, r.layout.Height)
	if req.Blur > 0 {
		bg = r.blur(bg, req.Blur)
	}
	bg = filter.Darken(bg, r.layout.DarkenAlpha)

	r.cache = &cachedBackground{key: key, raster: bg}
	r.stats.BackgroundBuilds++
	r.logger.Debug("background rebuilt",
		slog.String("source", key.SourceID),
		slog.Int("blur", key.Blur),
	)
	return bg
}

// drawInset pastes the shadow plate and then the rounded photo square.
func (r *Renderer) drawInset(canvas *image.NRGBA, src *SourceImage, inset image.Rectangle) {
	l := r.layout
	size := inset.Dx()

	pad := l.ShadowPad
	plateSize := size + 2*pad
	plate := mask.Plate(plateSize, color.NRGBA{A: l.ShadowAlpha})
	mask.PasteMasked(canvas, plate, mask.Rounded(plateSize, l.CornerRadius+pad), inset.Min.Sub(image.Pt(pad, pad)))

	square := geometry.Resize(geometry.CropToSquare(src.Image), size, size)
	mask.PasteMasked(canvas, square, mask.Rounded(size, l.CornerRadius), inset.Min)
}

func (r *Renderer) drawText(canvas *image.NRGBA, req RenderRequest) {
	l := r.layout
	x := l.TextX()
	if face := r.face(l.ArtistSize); face != nil {
		glyph.DrawText(canvas, strings.ToUpper(req.Artist), x, l.ArtistY(), face, l.TextColor, l.Align)
	}
	if face := r.face(l.TitleSize); face != nil {
		glyph.DrawText(canvas, req.Title, x, l.TitleY(), face, l.TextColor, l.Align)
	}
}

func (r *Renderer) drawGlyphs(canvas *image.NRGBA, inset image.Rectangle) {
	l := r.layout
	glyph.DrawProgress(canvas, inset.Min.X, inset.Max.X, l.ProgressY(), l.ProgressFraction, l.TextColor)
	glyph.DrawTransport(canvas, l.Width/2, l.ControlsY(), l.TextColor)
}

// face resolves a font size, logging the fallback once per size.
func (r *Renderer) face(size float64) font.Face {
	face, err := r.faces.Face(size)
	if err != nil {
		var warn *glyph.FontResolutionWarning
		if errors.As(err, &warn) {
			r.logger.Warn("font fallback in use",
				slog.Float64("size", size),
				slog.Int("attempts", warn.Attempts),
			)
		} else {
			r.logger.Error("font unavailable, skipping text", slog.Any("error", err))
		}
	}
	return face
}
