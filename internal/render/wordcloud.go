package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

const (
	titleSize = 12.0
	titlePad  = 6
)

var wordPalette = []color.RGBA{
	{68, 1, 84, 255},
	{59, 82, 139, 255},
	{33, 145, 140, 255},
	{94, 201, 98, 255},
	{253, 231, 37, 255},
	{49, 104, 142, 255},
	{53, 183, 121, 255},
	{72, 40, 120, 255},
}

// WordCloud draws entity frequencies as a word cloud PNG and, optionally,
// an HTML word cloud.
type WordCloud struct {
	width  int
	height int
	html   bool
	fonts  *Fonts
	logger *slog.Logger
}

// NewWordCloud creates a word cloud renderer.
func NewWordCloud(cfg config.RenderConfig, fonts *Fonts, logger *slog.Logger) *WordCloud {
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = 800, 400
	}
	return &WordCloud{
		width:  w,
		height: h,
		html:   cfg.WordCloudHTML,
		fonts:  fonts,
		logger: logger.With("component", "wordcloud"),
	}
}

func (wc *WordCloud) Name() string { return "wordcloud" }

func (wc *WordCloud) Supports(types.Language) bool { return true }

type wordFreq struct {
	Text  string
	Count int
}

// frequencies sums occurrences per entity, most frequent first.
func frequencies(rows []types.EntityCount) []wordFreq {
	sum := make(map[string]int)
	for _, r := range rows {
		e := strings.TrimSpace(r.Entity)
		if e == "" {
			continue
		}
		sum[e] += r.Occurrences
	}
	out := make([]wordFreq, 0, len(sum))
	for t, c := range sum {
		out = append(out, wordFreq{Text: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// Render writes <slug>_wordcloud.png (and .html) beside the CSV. A CSV
// without entities produces nothing.
func (wc *WordCloud) Render(csvPath string) ([]string, error) {
	rows, err := loadRows("wordcloud", csvPath)
	if err != nil {
		return nil, err
	}
	words := frequencies(rows)
	if len(words) == 0 {
		wc.logger.Info("no entities, skipping word cloud", "csv", csvPath)
		return nil, nil
	}

	base := filepath.Join(filepath.Dir(csvPath), slugOf(csvPath)+"_wordcloud")
	pngPath := base + ".png"

	img, placed, err := wc.draw(rows[0].Link, words)
	if err != nil {
		return nil, &types.RenderError{Artifact: "wordcloud", Path: pngPath, Err: err}
	}
	if err := savePNG(pngPath, img); err != nil {
		return nil, &types.RenderError{Artifact: "wordcloud", Path: pngPath, Err: err}
	}
	wc.logger.Info("word cloud saved", "path", pngPath, "words", len(words), "placed", placed)
	paths := []string{pngPath}

	if wc.html {
		htmlPath := base + ".html"
		if err := wc.renderHTML(htmlPath, slugOf(csvPath), words); err != nil {
			return paths, &types.RenderError{Artifact: "wordcloud_html", Path: htmlPath, Err: err}
		}
		paths = append(paths, htmlPath)
	}
	return paths, nil
}

// draw writes title in the top-left corner and lays words out below it,
// largest first, along an Archimedean spiral from the centre. A word that
// does not fit is retried smaller and skipped when it reaches the minimum
// size.
func (wc *WordCloud) draw(title string, words []wordFreq) (image.Image, int, error) {
	c := newCanvas(wc.width, wc.height)
	bounds := c.bounds()

	if title != "" {
		l, err := wc.fonts.Label(title, titleSize)
		if err != nil {
			return nil, 0, err
		}
		c.text(l, titlePad, titlePad+l.ascent, colorBlack)
		bounds.Min.Y += l.ascent + l.descent + 2*titlePad
	}

	maxSize := float64(bounds.Dy()) / 4
	const minSize = 10.0
	top := float64(words[0].Count)
	if top <= 0 {
		top = 1
	}

	var occupied []image.Rectangle
	placed := 0

	for i, w := range words {
		size := minSize + (maxSize-minSize)*math.Sqrt(float64(w.Count)/top)

		for ; size >= minSize; size *= 0.85 {
			l, err := wc.fonts.Label(w.Text, math.Round(size))
			if err != nil {
				return nil, placed, err
			}
			rect, ok := spiralPlace(bounds, occupied, l.width, l.ascent+l.descent)
			if !ok {
				continue
			}
			occupied = append(occupied, rect)
			c.text(l, rect.Min.X, rect.Min.Y+l.ascent, wordPalette[i%len(wordPalette)])
			placed++
			break
		}
	}
	return c.img, placed, nil
}

// spiralPlace finds the first w×h rectangle on a spiral from the centre of
// bounds that stays inside bounds and overlaps none of occupied.
func spiralPlace(bounds image.Rectangle, occupied []image.Rectangle, w, h int) (image.Rectangle, bool) {
	if w > bounds.Dx() || h > bounds.Dy() {
		return image.Rectangle{}, false
	}
	halfW, halfH := float64(bounds.Dx())/2, float64(bounds.Dy())/2
	cx, cy := float64(bounds.Min.X)+halfW, float64(bounds.Min.Y)+halfH
	aspect := float64(bounds.Dx()) / float64(bounds.Dy())
	maxR := math.Hypot(halfW, halfH)

	for t := 0.0; ; t += 0.1 {
		r := 2 * t
		if r > maxR*1.2 {
			return image.Rectangle{}, false
		}
		x := int(cx + r*aspect*math.Cos(t)/1.5 - float64(w)/2)
		y := int(cy + r*math.Sin(t)/1.5 - float64(h)/2)
		rect := image.Rect(x, y, x+w, y+h)
		if !rect.In(bounds) {
			continue
		}
		free := true
		for _, o := range occupied {
			if rect.Overlaps(o) {
				free = false
				break
			}
		}
		if free {
			return rect, true
		}
	}
}

func (wc *WordCloud) renderHTML(path, title string, words []wordFreq) error {
	data := make([]opts.WordCloudData, 0, len(words))
	for _, w := range words {
		data = append(data, opts.WordCloudData{Name: w.Text, Value: w.Count})
	}

	cloud := charts.NewWordCloud()
	cloud.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", wc.width),
			Height: fmt.Sprintf("%dpx", wc.height),
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	cloud.AddSeries("entities", data).
		SetSeriesOptions(charts.WithWorldCloudChartOpts(opts.WordCloudChart{
			SizeRange: []float32{14, 80},
			Shape:     "circle",
		}))

	return renderPage(path, cloud)
}

// renderPage writes charts into a single HTML page.
func renderPage(path string, chart components.Charter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	page := components.NewPage()
	page.SetLayout(components.PageNoneLayout)
	page.AddCharts(chart)
	if err := page.Render(f); err != nil {
		return err
	}
	return f.Close()
}
