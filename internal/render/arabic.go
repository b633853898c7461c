package render

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"
)

// textRun is one directional run of a line, runes in logical order.
type textRun struct {
	text []rune
	rtl  bool
}

// visualRuns splits s into bidi runs ordered left to right for display in
// a right-to-left paragraph.
func visualRuns(s string) []textRun {
	var p bidi.Paragraph
	if _, err := p.SetString(s, bidi.DefaultDirection(bidi.RightToLeft)); err != nil {
		return []textRun{{text: []rune(s), rtl: true}}
	}
	order, err := p.Order()
	if err != nil {
		return []textRun{{text: []rune(s), rtl: true}}
	}

	runs := make([]textRun, 0, order.NumRuns())
	for i := 0; i < order.NumRuns(); i++ {
		run := order.Run(i)
		runs = append(runs, textRun{text: []rune(run.String()), rtl: run.Direction() == bidi.RightToLeft})
	}
	// Runs come in logical order; the paragraph is right-to-left.
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs
}

// visualOrder returns s with its runs in display order and right-to-left
// runs reversed. It is used when no Arabic font is available for shaping.
func visualOrder(s string) string {
	var out []rune
	for _, run := range visualRuns(s) {
		if run.rtl {
			for i := len(run.text) - 1; i >= 0; i-- {
				out = append(out, run.text[i])
			}
			continue
		}
		out = append(out, run.text...)
	}
	return string(out)
}

// shaper lays Arabic text out with HarfBuzz so letters take their joined
// forms and lam-alef ligatures from the font.
type shaper struct {
	face *gtfont.Face

	mu sync.Mutex
	hb shaping.HarfbuzzShaper
}

func newShaper(data []byte) (*shaper, error) {
	face, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &shaper{face: face}, nil
}

// placedGlyph is a glyph offset from the start of the baseline, in pixels
// with y growing down.
type placedGlyph struct {
	id   gtfont.GID
	x, y float32
}

// shapedLine is a single line of glyphs in visual order.
type shapedLine struct {
	face   *gtfont.Face
	scale  float32 // pixels per font unit
	glyphs []placedGlyph

	width, ascent, descent int
}

func (s *shaper) shape(text string, size float64) shapedLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	px := fixed.Int26_6(size * 64)
	line := shapedLine{face: s.face, scale: float32(px.Ceil()) / float32(s.face.Upem())}

	var pen, ascent, descent fixed.Int26_6
	for _, run := range visualRuns(text) {
		in := shaping.Input{
			Text:      run.text,
			RunStart:  0,
			RunEnd:    len(run.text),
			Direction: di.DirectionLTR,
			Face:      s.face,
			Size:      px,
			Script:    language.Latin,
		}
		if run.rtl {
			in.Direction = di.DirectionRTL
			in.Script = language.Arabic
		}

		out := s.hb.Shape(in)
		for _, g := range out.Glyphs {
			line.glyphs = append(line.glyphs, placedGlyph{
				id: g.GlyphID,
				x:  float32(pen+g.XOffset) / 64,
				y:  -float32(g.YOffset) / 64,
			})
			pen += g.Advance
		}
		ascent = max(ascent, out.LineBounds.Ascent)
		descent = max(descent, -out.LineBounds.Descent)
	}

	line.width = pen.Ceil()
	line.ascent = ascent.Ceil()
	line.descent = descent.Ceil()
	return line
}
