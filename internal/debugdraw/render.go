// Package debugdraw renders a frame snapshot as a picture of the broad
// phase: index cells, unit and bullet hitboxes, bullet sweeps and resolved
// contacts.
package debugdraw

import (
	"image"
	"image/color"
	"io"
	"sync"

	"collision-pipeline/internal/geom"
	"collision-pipeline/internal/sim"

	"github.com/fogleman/gg"
)

// Palette
var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorPlayArea   = color.RGBA{20, 20, 40, 255}
	colorNode       = color.RGBA{60, 60, 90, 255}
	colorSweep      = color.RGBA{255, 255, 255, 70}
	colorContact    = color.RGBA{255, 220, 0, 255}
	colorBullet     = color.RGBA{240, 240, 240, 255}

	teamColors = []color.RGBA{
		{231, 76, 60, 255},
		{52, 152, 219, 255},
		{46, 204, 113, 255},
		{155, 89, 182, 255},
	}
)

// Options configures a Renderer.
type Options struct {
	Width  int
	Height int

	DrawIndex  bool
	DrawSweeps bool
}

// DefaultOptions draws everything on an 800x800 canvas.
var DefaultOptions = Options{
	Width:      800,
	Height:     800,
	DrawIndex:  true,
	DrawSweeps: true,
}

// Renderer draws snapshots onto a reused gg context. Safe for concurrent
// use; renders are serialized.
type Renderer struct {
	mu   sync.Mutex
	opts Options
	dc   *gg.Context

	// world to pixel transform of the current render
	origin geom.Rect
	scale  float64
}

// NewRenderer creates a renderer. Zero sizes fall back to DefaultOptions.
func NewRenderer(opts Options) *Renderer {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultOptions.Width, DefaultOptions.Height
	}
	return &Renderer{
		opts: opts,
		dc:   gg.NewContext(opts.Width, opts.Height),
	}
}

// WritePNG renders snap and encodes it as PNG to w.
func (r *Renderer) WritePNG(w io.Writer, snap *sim.FrameSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draw(snap)
	return r.dc.EncodePNG(w)
}

// Render draws snap and returns a copy of the canvas.
func (r *Renderer) Render(snap *sim.FrameSnapshot) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draw(snap)
	src := r.dc.Image().(*image.RGBA)
	out := image.NewRGBA(src.Rect)
	copy(out.Pix, src.Pix)
	return out
}

func (r *Renderer) draw(snap *sim.FrameSnapshot) {
	dc := r.dc
	w, h := float64(r.opts.Width), float64(r.opts.Height)

	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	if snap.Bounds.W <= 0 || snap.Bounds.H <= 0 {
		return
	}
	r.origin = snap.Bounds
	r.scale = min(w/snap.Bounds.W, h/snap.Bounds.H)

	r.fillRect(snap.Bounds, colorPlayArea)

	if r.opts.DrawIndex {
		dc.SetColor(colorNode)
		dc.SetLineWidth(1)
		for _, n := range snap.IndexNodes {
			x, y := r.toPixel(n.X, n.Y)
			dc.DrawRectangle(x, y, n.W*r.scale, n.H*r.scale)
			dc.Stroke()
		}
	}

	for i := range snap.Units {
		u := &snap.Units[i]
		r.fillRect(geom.Centered(u.X, u.Y, u.Size, u.Size), teamColor(u.Team))
	}

	if r.opts.DrawSweeps {
		dc.SetColor(colorSweep)
		dc.SetLineWidth(1)
		for i := range snap.Bullets {
			b := &snap.Bullets[i]
			x0, y0 := r.toPixel(b.LastX, b.LastY)
			x1, y1 := r.toPixel(b.X, b.Y)
			dc.DrawLine(x0, y0, x1, y1)
			dc.Stroke()
		}
	}

	for i := range snap.Bullets {
		b := &snap.Bullets[i]
		r.fillRect(geom.Centered(b.X, b.Y, b.Size, b.Size), colorBullet)
	}

	dc.SetColor(colorContact)
	for _, c := range snap.Contacts {
		x, y := r.toPixel(c.X, c.Y)
		dc.DrawCircle(x, y, 3)
		dc.Fill()
	}
}

func (r *Renderer) toPixel(x, y float64) (float64, float64) {
	return (x - r.origin.X) * r.scale, (y - r.origin.Y) * r.scale
}

func (r *Renderer) fillRect(box geom.Rect, c color.Color) {
	x, y := r.toPixel(box.X, box.Y)
	// at least one pixel so small entities stay visible
	w, h := max(box.W*r.scale, 1), max(box.H*r.scale, 1)

	r.dc.SetColor(c)
	r.dc.DrawRectangle(x, y, w, h)
	r.dc.Fill()
}

func teamColor(team int) color.RGBA {
	if team < 0 {
		team = -team
	}
	return teamColors[team%len(teamColors)]
}
