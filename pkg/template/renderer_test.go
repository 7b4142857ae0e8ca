package template

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xob0t/covercard/pkg/filter"
	"github.com/xob0t/covercard/pkg/geometry"
	"github.com/xob0t/covercard/pkg/glyph"
)

func testSource(id string, w, h int) *SourceImage {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 3), B: uint8((x + y) / 5), A: 255})
		}
	}
	return &SourceImage{ID: id, Image: img}
}

type blurCounter struct{ calls int }

func (c *blurCounter) blur(img image.Image, strength int) *image.NRGBA {
	c.calls++
	return filter.Blur(img, strength)
}

func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *blurCounter) {
	t.Helper()
	counter := &blurCounter{}
	fonts := &glyph.FontResolver{ReadFile: func(string) ([]byte, error) { return nil, os.ErrNotExist }}
	base := []Option{
		WithBlur(counter.blur),
		WithFonts(fonts),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	r, err := NewRenderer(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRenderer returned error: %v", err)
	}
	return r, counter
}

func TestRenderRoundTripHitsCache(t *testing.T) {
	r, counter := newTestRenderer(t)
	src := testSource("photo.jpg", 2000, 3000)
	req := RenderRequest{SourceID: src.ID, Title: "TAU MICH AUF", Artist: "NIKLAS DEE", Blur: 60}

	first, err := r.Render(req, src)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if got := first.Bounds(); got != image.Rect(0, 0, 1080, 1920) {
		t.Fatalf("unexpected bounds %v", got)
	}
	firstBG := append([]byte(nil), r.cache.raster.Pix...)

	req.Blur = 60
	second, err := r.Render(req, src)
	if err != nil {
		t.Fatalf("second Render returned error: %v", err)
	}
	if counter.calls != 1 {
		t.Fatalf("expected 1 blur invocation across 2 renders, got %d", counter.calls)
	}
	if !bytes.Equal(firstBG, r.cache.raster.Pix) {
		t.Fatal("cached background changed between renders")
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Fatal("identical requests should produce identical covers")
	}
	stats := r.Stats()
	if stats.BackgroundBuilds != 1 || stats.BackgroundHits != 1 || stats.Renders != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestTextChangesNeverRebuildBackground(t *testing.T) {
	r, counter := newTestRenderer(t)
	src := testSource("a", 300, 500)

	for _, title := range []string{"one", "two", "three"} {
		if _, err := r.Render(RenderRequest{Title: title, Artist: "x", Blur: 40}, src); err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
	}
	if counter.calls != 1 {
		t.Fatalf("text-only edits must not re-run the blur, got %d calls", counter.calls)
	}
}

func TestBlurOrSourceChangeRebuildsBackground(t *testing.T) {
	r, counter := newTestRenderer(t)
	a := testSource("a", 300, 500)
	b := testSource("b", 300, 500)

	steps := []struct {
		src   *SourceImage
		blur  int
		calls int
	}{
		{a, 60, 1},
		{a, 60, 1},
		{a, 30, 2},
		{b, 30, 3},
		{a, 60, 4}, // single slot: the first entry was evicted
	}
	for i, step := range steps {
		if _, err := r.Render(RenderRequest{Blur: step.blur}, step.src); err != nil {
			t.Fatalf("step %d: Render returned error: %v", i, err)
		}
		if counter.calls != step.calls {
			t.Fatalf("step %d: expected %d blur calls, got %d", i, step.calls, counter.calls)
		}
		key, ok := r.Cached()
		if !ok || key != (CacheKey{SourceID: step.src.ID, Blur: step.blur}) {
			t.Fatalf("step %d: unexpected cache key %+v", i, key)
		}
	}
}

func TestZeroBlurSkipsFilter(t *testing.T) {
	r, counter := newTestRenderer(t)
	if _, err := r.Render(RenderRequest{Blur: 0}, testSource("a", 90, 160)); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if counter.calls != 0 {
		t.Fatalf("blur 0 should not invoke the filter, got %d calls", counter.calls)
	}
}

func TestInvalidateForcesRebuild(t *testing.T) {
	r, counter := newTestRenderer(t)
	src := testSource("a", 90, 160)
	req := RenderRequest{Blur: 20}
	if _, err := r.Render(req, src); err != nil {
		t.Fatal(err)
	}
	r.Invalidate()
	if _, ok := r.Cached(); ok {
		t.Fatal("expected empty cache slot after Invalidate")
	}
	if _, err := r.Render(req, src); err != nil {
		t.Fatal(err)
	}
	if counter.calls != 2 {
		t.Fatalf("expected rebuild after Invalidate, got %d calls", counter.calls)
	}
}

func TestRenderFailureKeepsCache(t *testing.T) {
	r, counter := newTestRenderer(t)
	src := testSource("a", 90, 160)
	if _, err := r.Render(RenderRequest{Blur: 50}, src); err != nil {
		t.Fatal(err)
	}

	_, err := r.Render(RenderRequest{Blur: 50}, &SourceImage{ID: "broken"})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}

	if _, err := r.Render(RenderRequest{Blur: 50}, src); err != nil {
		t.Fatal(err)
	}
	if counter.calls != 1 {
		t.Fatalf("stale entry should survive a failed render, got %d calls", counter.calls)
	}
}

func TestRenderNilSource(t *testing.T) {
	r, _ := newTestRenderer(t)
	if _, err := r.Render(RenderRequest{}, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := r.RenderPlain(nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestComposeProducesPlainCrop(t *testing.T) {
	r, _ := newTestRenderer(t)
	out, err := r.Compose(RenderRequest{Blur: 10}, testSource("a", 400, 300))
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	for name, img := range map[string]*image.NRGBA{"cover": out.Cover, "plain": out.Plain} {
		if img.Bounds() != image.Rect(0, 0, 1080, 1920) {
			t.Fatalf("%s: unexpected bounds %v", name, img.Bounds())
		}
	}
	if bytes.Equal(out.Cover.Pix, out.Plain.Pix) {
		t.Fatal("plain crop should carry no effects")
	}
}

func TestComposeExtremeStripFillsCanvas(t *testing.T) {
	r, _ := newTestRenderer(t)
	out, err := r.Compose(RenderRequest{Blur: 60}, testSource("strip", 100, 1))
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	for name, img := range map[string]*image.NRGBA{"cover": out.Cover, "plain": out.Plain} {
		if img.Bounds() != image.Rect(0, 0, 1080, 1920) {
			t.Fatalf("%s: unexpected bounds %v", name, img.Bounds())
		}
	}
}

func TestInsetShadowAndCorners(t *testing.T) {
	r, _ := newTestRenderer(t)
	img := image.NewNRGBA(image.Rect(0, 0, 300, 300))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	src := &SourceImage{ID: "grey", Image: geometry.Opaque(img)}

	cover, err := r.Render(RenderRequest{Blur: 0}, src)
	if err != nil {
		t.Fatal(err)
	}
	inset := r.Layout().Inset()
	bg := r.cache.raster.NRGBAAt(5, 5)

	if cover.NRGBAAt(5, 5) != bg {
		t.Fatal("pixels away from the inset must match the background")
	}
	// The rounded corner lies outside both masks.
	if got := cover.NRGBAAt(inset.Min.X, inset.Min.Y); got != bg {
		t.Fatalf("inset corner %v should show the background %v", got, bg)
	}
	// The padding band shows the background darkened by the plate.
	band := cover.NRGBAAt(inset.Min.X-5, inset.Min.Y+inset.Dy()/2)
	if band.R >= bg.R || band.A != 255 {
		t.Fatalf("shadow band %v should be darker than background %v", band, bg)
	}
	centre := cover.NRGBAAt(inset.Min.X+inset.Dx()/2, inset.Min.Y+inset.Dy()/2)
	if centre.R < 195 {
		t.Fatalf("inset centre %v should show the undarkened photo", centre)
	}
}

func TestAlignmentModesDiffer(t *testing.T) {
	src := testSource("a", 120, 200)
	req := RenderRequest{Title: "Title", Artist: "Artist", Blur: 0}

	center, _ := newTestRenderer(t)
	left, _ := newTestRenderer(t, WithAlign(glyph.AlignLeft))

	a, err := center.Render(req, src)
	if err != nil {
		t.Fatal(err)
	}
	b, err := left.Render(req, src)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("left and centre alignment should draw text differently")
	}
	if got := left.Layout().TextX(); got != left.Layout().Inset().Min.X {
		t.Fatalf("left alignment should anchor at the inset edge, got %d", got)
	}
}

func TestDefaultLayoutGeometry(t *testing.T) {
	l := DefaultLayout()
	if err := l.Validate(); err != nil {
		t.Fatalf("default layout invalid: %v", err)
	}
	if got := l.Inset(); got != image.Rect(162, 556, 918, 1312) {
		t.Fatalf("unexpected inset %v", got)
	}
	if l.ArtistY() != 1440 || l.TitleY() != 1520 || l.ProgressY() != 1620 || l.ControlsY() != 1700 {
		t.Fatalf("unexpected text/glyph lines %d %d %d %d", l.ArtistY(), l.TitleY(), l.ProgressY(), l.ControlsY())
	}

	l.Height = 1080
	if err := l.Validate(); err == nil {
		t.Fatal("non 9:16 canvas should be rejected")
	}
}

func TestRequestDefaults(t *testing.T) {
	req := RenderRequest{Title: "  ", Blur: 250}.WithDefaults()
	if req.Title != DefaultTitle || req.Artist != DefaultArtist || req.Blur != 100 {
		t.Fatalf("unexpected defaults %+v", req)
	}
	if (RenderRequest{SourceID: "a", Title: "x", Blur: 3}).CacheKey() != (RenderRequest{SourceID: "a", Title: "y", Blur: 3}).CacheKey() {
		t.Fatal("text must not be part of the cache key")
	}
}

func TestLoadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, testSource("x", 30, 20).Image); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := LoadSource(path)
	if err != nil {
		t.Fatalf("LoadSource returned error: %v", err)
	}
	if !filepath.IsAbs(src.ID) || src.Image.Bounds().Dx() != 30 {
		t.Fatalf("unexpected source %q %v", src.ID, src.Image.Bounds())
	}

	_, err = LoadSource(filepath.Join(dir, "missing.png"))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}

	_, err = DecodeSource("garbage", strings.NewReader("not an image"))
	if !errors.As(err, &decodeErr) || decodeErr.Source != "garbage" {
		t.Fatalf("expected DecodeError for garbage, got %v", err)
	}
}
