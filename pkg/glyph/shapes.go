// shapes.go — Progress bar and transport controls drawn with
// golang.org/x/image/vector. Geometry is fixed; only positions vary.
package glyph

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

// Glyph geometry in canvas pixels.
const (
	BarHeight      = 2
	DotRadius      = 8
	TriangleSize   = 25
	RingRadius     = 40
	RingWidth      = 3
	PauseBarWidth  = 6
	PauseBarHeight = RingRadius
	PauseBarOffset = 8
	// DefaultProgress is the playhead position along the bar.
	DefaultProgress = 0.3
)

// kappa approximates a quarter circle with a cubic Bézier.
const kappa = 0.5522847498

// DrawProgress draws a horizontal bar from startX to endX at y and a dot at
// startX + (endX-startX)*fraction.
func DrawProgress(dst draw.Image, startX, endX, y int, fraction float64, col color.Color) {
	fill(dst, image.Rect(startX, y, endX+1, y+BarHeight+1), col)

	cx := startX + int(float64(endX-startX)*fraction)
	cy := y + BarHeight/2
	p := newPath(dst, image.Rect(cx-DotRadius-1, cy-DotRadius-1, cx+DotRadius+1, cy+DotRadius+1))
	p.circle(float32(cx), float32(cy), DotRadius, false)
	p.paint(dst, col)
}

// DrawTransport draws previous, pause and next controls centred on centerX,
// spaced a sixth of the canvas width apart.
func DrawTransport(dst draw.Image, centerX, y int, col color.Color) {
	spacing := dst.Bounds().Dx() / 6
	half := float32(TriangleSize / 2)
	fy := float32(y)

	prev := centerX - spacing
	p := newPath(dst, image.Rect(prev-TriangleSize, y-TriangleSize-1, prev+TriangleSize, y+TriangleSize+1))
	p.triangle(
		float32(prev)-half, fy,
		float32(prev)+half, fy-TriangleSize,
		float32(prev)+half, fy+TriangleSize,
	)
	p.paint(dst, col)

	next := centerX + spacing
	p = newPath(dst, image.Rect(next-TriangleSize, y-TriangleSize-1, next+TriangleSize, y+TriangleSize+1))
	p.triangle(
		float32(next)+half, fy,
		float32(next)-half, fy-TriangleSize,
		float32(next)-half, fy+TriangleSize,
	)
	p.paint(dst, col)

	// Ring: outer contour one way, inner contour the other, leaving a hole.
	p = newPath(dst, image.Rect(centerX-RingRadius-1, y-RingRadius-1, centerX+RingRadius+1, y+RingRadius+1))
	p.circle(float32(centerX), fy, RingRadius, false)
	p.circle(float32(centerX), fy, RingRadius-RingWidth, true)
	p.paint(dst, col)

	for _, dx := range []int{-PauseBarOffset, PauseBarOffset} {
		bx := centerX + dx
		fill(dst, image.Rect(bx-PauseBarWidth/2, y-PauseBarHeight/2, bx+PauseBarWidth/2+1, y+PauseBarHeight/2+1), col)
	}
}

func fill(dst draw.Image, rect image.Rectangle, col color.Color) {
	draw.Draw(dst, rect.Intersect(dst.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}

// path rasterizes shapes inside a clip box; callers use canvas coordinates.
type path struct {
	r   *vector.Rasterizer
	box image.Rectangle
}

func newPath(dst draw.Image, box image.Rectangle) *path {
	box = box.Intersect(dst.Bounds())
	return &path{r: vector.NewRasterizer(max(box.Dx(), 1), max(box.Dy(), 1)), box: box}
}

func (p *path) local(x, y float32) (float32, float32) {
	return x - float32(p.box.Min.X), y - float32(p.box.Min.Y)
}

func (p *path) moveTo(x, y float32) { p.r.MoveTo(p.local(x, y)) }

func (p *path) lineTo(x, y float32) { p.r.LineTo(p.local(x, y)) }

func (p *path) cubeTo(x1, y1, x2, y2, x, y float32) {
	bx, by := p.local(x1, y1)
	cx, cy := p.local(x2, y2)
	ex, ey := p.local(x, y)
	p.r.CubeTo(bx, by, cx, cy, ex, ey)
}

func (p *path) paint(dst draw.Image, col color.Color) {
	if p.box.Empty() {
		return
	}
	p.r.Draw(dst, p.box, image.NewUniform(col), image.Point{})
}

func (p *path) triangle(x0, y0, x1, y1, x2, y2 float32) {
	p.moveTo(x0, y0)
	p.lineTo(x1, y1)
	p.lineTo(x2, y2)
	p.r.ClosePath()
}

// circle adds a closed circular path built from four cubic arcs.
func (p *path) circle(cx, cy, radius float32, reverse bool) {
	k := radius * kappa
	p.moveTo(cx+radius, cy)
	if !reverse {
		p.cubeTo(cx+radius, cy+k, cx+k, cy+radius, cx, cy+radius)
		p.cubeTo(cx-k, cy+radius, cx-radius, cy+k, cx-radius, cy)
		p.cubeTo(cx-radius, cy-k, cx-k, cy-radius, cx, cy-radius)
		p.cubeTo(cx+k, cy-radius, cx+radius, cy-k, cx+radius, cy)
	} else {
		p.cubeTo(cx+radius, cy-k, cx+k, cy-radius, cx, cy-radius)
		p.cubeTo(cx-k, cy-radius, cx-radius, cy-k, cx-radius, cy)
		p.cubeTo(cx-radius, cy+k, cx-k, cy+radius, cx, cy+radius)
		p.cubeTo(cx+k, cy+radius, cx+radius, cy+k, cx+radius, cy)
	}
	p.r.ClosePath()
}
