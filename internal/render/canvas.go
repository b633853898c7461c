package render

import (
	"bufio"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	gtfont "github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Named colours used by the graph renderer.
var (
	colorWhite      = color.RGBA{255, 255, 255, 255}
	colorBlack      = color.RGBA{0, 0, 0, 255}
	colorEdge       = color.RGBA{0, 0, 0, 128}
	colorLightBlue  = color.RGBA{173, 216, 230, 230}
	colorLightCoral = color.RGBA{240, 128, 128, 230}
	colorLightGreen = color.RGBA{144, 238, 144, 230}
	colorOrange     = color.RGBA{255, 165, 0, 230}
	colorGray       = color.RGBA{128, 128, 128, 230}
)

// canvas is an RGBA image with the few primitives the renderers need.
type canvas struct {
	img *image.RGBA
}

func newCanvas(w, h int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)
	return &canvas{img: img}
}

func (c *canvas) bounds() image.Rectangle { return c.img.Bounds() }

func (c *canvas) fill(z *vector.Rasterizer, col color.Color) {
	z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *canvas) rasterizer() *vector.Rasterizer {
	b := c.img.Bounds()
	return vector.NewRasterizer(b.Dx(), b.Dy())
}

// circle fills a disc centred on (cx, cy).
func (c *canvas) circle(cx, cy, r float64, col color.Color) {
	const segments = 48
	z := c.rasterizer()
	z.MoveTo(float32(cx+r), float32(cy))
	for i := 1; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		z.LineTo(float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a)))
	}
	z.ClosePath()
	c.fill(z, col)
}

// line strokes a segment of the given width.
func (c *canvas) line(x0, y0, x1, y1, width float64, col color.Color) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2

	z := c.rasterizer()
	z.MoveTo(float32(x0+nx), float32(y0+ny))
	z.LineTo(float32(x1+nx), float32(y1+ny))
	z.LineTo(float32(x1-nx), float32(y1-ny))
	z.LineTo(float32(x0-nx), float32(y0-ny))
	z.ClosePath()
	c.fill(z, col)
}

// text draws l with its baseline starting at (x, y).
func (c *canvas) text(l label, x, y int, col color.Color) {
	if l.shaped != nil {
		c.glyphs(l.shaped, float32(x), float32(y), col)
		return
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: l.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(l.text)
}

// centredText draws l centred on (cx, cy).
func (c *canvas) centredText(l label, cx, cy int, col color.Color) {
	c.text(l, cx-l.width/2, cy+(l.ascent-l.descent)/2, col)
}

// glyphs fills the outlines of a shaped line. Bitmap and colour glyphs are
// skipped.
func (c *canvas) glyphs(line *shapedLine, x, y float32, col color.Color) {
	z := c.rasterizer()
	for _, g := range line.glyphs {
		outline, ok := line.face.GlyphData(g.id).(gtfont.GlyphOutline)
		if !ok {
			continue
		}
		ox, oy, k := x+g.x, y+g.y, line.scale
		for _, seg := range outline.Segments {
			a := seg.Args
			switch seg.Op {
			case ot.SegmentOpMoveTo:
				z.ClosePath()
				z.MoveTo(ox+a[0].X*k, oy-a[0].Y*k)
			case ot.SegmentOpLineTo:
				z.LineTo(ox+a[0].X*k, oy-a[0].Y*k)
			case ot.SegmentOpQuadTo:
				z.QuadTo(ox+a[0].X*k, oy-a[0].Y*k, ox+a[1].X*k, oy-a[1].Y*k)
			case ot.SegmentOpCubeTo:
				z.CubeTo(ox+a[0].X*k, oy-a[0].Y*k, ox+a[1].X*k, oy-a[1].Y*k, ox+a[2].X*k, oy-a[2].Y*k)
			}
		}
		z.ClosePath()
	}
	c.fill(z, col)
}

// measure returns the advance width, ascent and descent of s in pixels.
func measure(face font.Face, s string) (width, ascent, descent int) {
	m := face.Metrics()
	return font.MeasureString(face, s).Ceil(), m.Ascent.Ceil(), m.Descent.Ceil()
}

// savePNG encodes img to path, creating parent directories.
func savePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
