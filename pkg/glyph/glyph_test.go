package glyph_test

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/xob0t/covercard/pkg/glyph"
)

var white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

func blank(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func lit(img *image.NRGBA, x, y int) bool {
	return img.NRGBAAt(x, y).R > 128
}

func inkBounds(img *image.NRGBA) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).R > 0 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestResolveFirstLoadableCandidate(t *testing.T) {
	var probed []string
	r := &glyph.FontResolver{
		Candidates: []string{"missing.ttf", "broken.ttf", "good.ttf", "later.ttf"},
		Dirs:       []string{"", "/fonts"},
		ReadFile: func(path string) ([]byte, error) {
			probed = append(probed, path)
			switch path {
			case "broken.ttf":
				return []byte("not a font"), nil
			case filepath.Join("/fonts", "good.ttf"):
				return goregular.TTF, nil
			}
			return nil, os.ErrNotExist
		},
	}

	face, err := r.Resolve(32)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if face == nil {
		t.Fatal("expected face")
	}
	want := []string{
		"missing.ttf", filepath.Join("/fonts", "missing.ttf"),
		"broken.ttf", filepath.Join("/fonts", "broken.ttf"),
		"good.ttf", filepath.Join("/fonts", "good.ttf"),
	}
	if len(probed) != len(want) {
		t.Fatalf("probed %v, want %v", probed, want)
	}
	for i := range want {
		if probed[i] != want[i] {
			t.Fatalf("probe %d = %q, want %q", i, probed[i], want[i])
		}
	}
}

func TestResolveFallsBackWithWarning(t *testing.T) {
	r := &glyph.FontResolver{
		Candidates: []string{"a.ttf", "b.ttf"},
		Dirs:       []string{"", "/x", "/y"},
		ReadFile:   func(string) ([]byte, error) { return nil, os.ErrNotExist },
	}
	face, err := r.Resolve(40)
	if face == nil {
		t.Fatal("fallback face must never be nil")
	}
	var warn *glyph.FontResolutionWarning
	if !errors.As(err, &warn) {
		t.Fatalf("expected FontResolutionWarning, got %v", err)
	}
	if warn.Attempts != 6 {
		t.Fatalf("expected 6 attempts, got %d", warn.Attempts)
	}
	if !errors.Is(err, glyph.ErrFontUnavailable) {
		t.Fatal("warning should unwrap to ErrFontUnavailable")
	}
}

func TestProbeReportsEveryCandidate(t *testing.T) {
	r := &glyph.FontResolver{
		Candidates: []string{"a.ttf", "b.ttf"},
		Dirs:       []string{""},
		ReadFile: func(path string) ([]byte, error) {
			if path == "b.ttf" {
				return goregular.TTF, nil
			}
			return nil, os.ErrNotExist
		},
	}
	attempts := r.Probe()
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Err == nil || attempts[1].Err != nil {
		t.Fatalf("unexpected probe results: %+v", attempts)
	}
}

func TestFaceCacheResolvesOncePerSize(t *testing.T) {
	reads := 0
	r := &glyph.FontResolver{
		Candidates: []string{"a.ttf"},
		Dirs:       []string{""},
		ReadFile: func(string) ([]byte, error) {
			reads++
			return nil, os.ErrNotExist
		},
	}
	cache := glyph.NewFaceCache(r)

	if _, err := cache.Face(60); err == nil {
		t.Fatal("first lookup should surface the fallback warning")
	}
	if _, err := cache.Face(60); err != nil {
		t.Fatalf("cached lookup should be silent, got %v", err)
	}
	if _, err := cache.Face(45); err == nil {
		t.Fatal("new size should resolve again")
	}
	if reads != 2 {
		t.Fatalf("expected 2 filesystem probes, got %d", reads)
	}
}

func TestParseAlign(t *testing.T) {
	cases := map[string]glyph.Align{"": glyph.AlignCenter, "center": glyph.AlignCenter, "Left": glyph.AlignLeft}
	for in, want := range cases {
		got, err := glyph.ParseAlign(in)
		if err != nil || got != want {
			t.Fatalf("ParseAlign(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := glyph.ParseAlign("right"); err == nil {
		t.Fatal("expected error for unsupported alignment")
	}
}

func TestDrawTextAlignment(t *testing.T) {
	face, _ := (&glyph.FontResolver{ReadFile: func(string) ([]byte, error) { return nil, os.ErrNotExist }}).Resolve(40)

	centered := blank(400, 200)
	glyph.DrawText(centered, "HELLO", 200, 100, face, white, glyph.AlignCenter)
	ink := inkBounds(centered)
	if ink.Empty() {
		t.Fatal("expected centred text ink")
	}
	mid := (ink.Min.X + ink.Max.X) / 2
	if mid < 190 || mid > 210 {
		t.Fatalf("centred text midpoint %d, want ~200 (ink %v)", mid, ink)
	}

	left := blank(400, 200)
	glyph.DrawText(left, "HELLO", 50, 40, face, white, glyph.AlignLeft)
	ink = inkBounds(left)
	if ink.Min.X < 48 || ink.Min.X > 56 {
		t.Fatalf("left text should start near x=50, ink %v", ink)
	}
	if ink.Min.Y < 40 {
		t.Fatalf("left text should hang below its anchor, ink %v", ink)
	}
}

func TestDrawProgressPlacesDot(t *testing.T) {
	img := blank(1080, 200)
	glyph.DrawProgress(img, 162, 918, 100, glyph.DefaultProgress, white)

	if !lit(img, 162, 101) || !lit(img, 918, 101) {
		t.Fatal("bar endpoints not drawn")
	}
	span := 918 - 162
	dot := 162 + int(float64(span)*0.3)
	if !lit(img, dot, 101-glyph.DotRadius+2) {
		t.Fatal("progress dot not drawn above the bar")
	}
	if lit(img, 162+100, 101-glyph.DotRadius+2) {
		t.Fatal("bar should be thin away from the dot")
	}
}

func TestDrawTransportShapes(t *testing.T) {
	img := blank(1080, 300)
	glyph.DrawTransport(img, 540, 150, white)

	spacing := 1080 / 6
	if !lit(img, 540-spacing, 150) {
		t.Fatal("previous triangle missing")
	}
	if !lit(img, 540+spacing, 150) {
		t.Fatal("next triangle missing")
	}
	// Ring edge is lit, the area between the ring and the pause bars is not.
	if !lit(img, 540+glyph.RingRadius-1, 150) {
		t.Fatal("ring missing")
	}
	if lit(img, 540+25, 150) {
		t.Fatal("ring interior should stay empty")
	}
	if !lit(img, 540-glyph.PauseBarOffset, 150) || !lit(img, 540+glyph.PauseBarOffset, 150) {
		t.Fatal("pause bars missing")
	}
	if lit(img, 540, 150) {
		t.Fatal("gap between pause bars should stay empty")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"", glyph.White, false},
		{"#ffffff", glyph.White, false},
		{"ff8000", color.NRGBA{R: 255, G: 128, A: 255}, false},
		{"#10203040", color.NRGBA{R: 16, G: 32, B: 48, A: 64}, false},
		{"#fff", color.NRGBA{}, true},
		{"#gg0000", color.NRGBA{}, true},
	}
	for _, tc := range tests {
		got, err := glyph.ParseColor(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if err == nil && got != tc.want {
			t.Fatalf("ParseColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if got := glyph.HexColor(color.NRGBA{R: 1, G: 2, B: 3, A: 255}); got != "#010203" {
		t.Fatalf("HexColor = %q", got)
	}
}
