// fonts.go — Font resolution over ordered candidate files with an embedded
// fallback. Every failed candidate collapses to "unavailable" and the walk
// moves on; only when all of them fail does the Go Bold font take over.
package glyph

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// DefaultCandidates lists font files tried in order.
var DefaultCandidates = []string{
	"GOTHICB.TTF", "GOTH.TTF", "arial.ttf", "arialbd.ttf",
	"GOTHIC.TTF", "impact.ttf", "IMPACT.TTF",
}

// DefaultDirs lists directories searched for each candidate. The empty entry
// means the working directory.
var DefaultDirs = []string{
	"",
	"C:/Windows/Fonts/",
	"/usr/share/fonts/",
	"/System/Library/Fonts/",
}

// ErrFontUnavailable marks a candidate that could not be read or parsed.
var ErrFontUnavailable = errors.New("font unavailable")

// FontResolutionWarning reports that no candidate loaded and the embedded
// fallback face was used instead. It never aborts rendering.
type FontResolutionWarning struct {
	Size     float64
	Attempts int
}

func (w *FontResolutionWarning) Error() string {
	return fmt.Sprintf("no font candidate loaded after %d attempts at size %.0f, using embedded fallback", w.Attempts, w.Size)
}

func (w *FontResolutionWarning) Unwrap() error { return ErrFontUnavailable }

// FontResolver walks Candidates × Dirs and returns the first face that loads.
// It performs no caching; see FaceCache.
type FontResolver struct {
	Candidates []string
	Dirs       []string
	// Fallback is the TTF/OTF data used when every candidate fails.
	// Defaults to Go Bold.
	Fallback []byte
	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
	DPI      float64
}

// NewFontResolver returns a resolver over the default candidate lists.
func NewFontResolver() *FontResolver {
	return &FontResolver{
		Candidates: DefaultCandidates,
		Dirs:       DefaultDirs,
	}
}

// Attempt records one probed candidate path.
type Attempt struct {
	Path string
	Err  error
}

// Resolve returns a face at size. When no candidate loads it returns the
// fallback face together with a *FontResolutionWarning.
func (r *FontResolver) Resolve(size float64) (font.Face, error) {
	attempts := 0
	for _, path := range r.paths() {
		attempts++
		parsed, err := r.load(path)
		if err != nil {
			continue
		}
		face, err := r.newFace(parsed, size)
		if err != nil {
			continue
		}
		return face, nil
	}

	face, err := r.fallbackFace(size)
	if err != nil {
		return nil, err
	}
	return face, &FontResolutionWarning{Size: size, Attempts: attempts}
}

// Probe tries every candidate path and reports each outcome without stopping
// at the first success.
func (r *FontResolver) Probe() []Attempt {
	paths := r.paths()
	out := make([]Attempt, 0, len(paths))
	for _, path := range paths {
		_, err := r.load(path)
		out = append(out, Attempt{Path: path, Err: err})
	}
	return out
}

func (r *FontResolver) paths() []string {
	candidates := r.Candidates
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	dirs := r.Dirs
	if len(dirs) == 0 {
		dirs = []string{""}
	}
	out := make([]string, 0, len(candidates)*len(dirs))
	for _, name := range candidates {
		for _, dir := range dirs {
			if dir == "" {
				out = append(out, name)
				continue
			}
			out = append(out, filepath.Join(dir, name))
		}
	}
	return out
}

func (r *FontResolver) load(path string) (*opentype.Font, error) {
	read := r.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFontUnavailable, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrFontUnavailable, path, err)
	}
	return parsed, nil
}

func (r *FontResolver) fallbackFace(size float64) (font.Face, error) {
	data := r.Fallback
	if len(data) == 0 {
		data = gobold.TTF
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fallback font: %w", err)
	}
	return r.newFace(parsed, size)
}

func (r *FontResolver) newFace(parsed *opentype.Font, size float64) (font.Face, error) {
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 72
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// FaceCache memoizes resolved faces per size. Warnings are returned only on
// the call that populated an entry.
type FaceCache struct {
	resolver *FontResolver
	mu       sync.Mutex
	faces    map[float64]font.Face
}

// NewFaceCache wraps resolver with per-size memoization.
func NewFaceCache(resolver *FontResolver) *FaceCache {
	if resolver == nil {
		resolver = NewFontResolver()
	}
	return &FaceCache{resolver: resolver, faces: make(map[float64]font.Face)}
}

// Face returns the cached face for size, resolving it on first use.
func (c *FaceCache) Face(size float64) (font.Face, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if face, ok := c.faces[size]; ok {
		return face, nil
	}
	face, err := c.resolver.Resolve(size)
	if face == nil {
		return nil, err
	}
	c.faces[size] = face
	return face, err
}
