package render

import (
	"encoding/xml"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/storage"
	"github.com/IshaanNene/entitymap/internal/types"
)

const link = "https://example.org/en/artists/Jane_Doe.aspx"

var sampleRows = []types.EntityCount{
	{Link: link, Entity: "1923", Label: "Date", Occurrences: 1},
	{Link: link, Entity: "Egypt", Label: "Country", Occurrences: 2},
	{Link: link, Entity: "John Smith", Label: "Person", Occurrences: 2},
	{Link: link, Entity: "Bronze", Label: "Material", Occurrences: 3},
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, rows []types.EntityCount) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "QM Collections", "Jane_Doe.csv")
	require.NoError(t, storage.WriteEntityCSV(path, rows))
	return path
}

func testFonts(t *testing.T) *Fonts {
	t.Helper()
	f, err := LoadFonts("", "", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestVisualOrder(t *testing.T) {
	runs := visualRuns("\u0642\u0637\u0631")
	require.Len(t, runs, 1)
	assert.True(t, runs[0].rtl)

	assert.Equal(t, "\u0631\u0637\u0642", visualOrder("\u0642\u0637\u0631"))
}

func TestShaperLaysOutGlyphs(t *testing.T) {
	s, err := newShaper(goregular.TTF)
	require.NoError(t, err)

	line := s.shape("abc", 20)
	require.Len(t, line.glyphs, 3)
	assert.Greater(t, line.width, 0)
	assert.Greater(t, line.ascent, 0)
	assert.Less(t, line.glyphs[0].x, line.glyphs[2].x)

	c := newCanvas(100, 50)
	c.text(label{shaped: &line, width: line.width, ascent: line.ascent, descent: line.descent}, 10, 35, colorBlack)
	assert.True(t, hasInk(c.img, c.img.Bounds()))
}

func TestLabelShapesArabic(t *testing.T) {
	f := testFonts(t)
	l, err := f.Label("\u0642\u0637\u0631", 20)
	require.NoError(t, err)
	assert.Nil(t, l.shaped)
	assert.Equal(t, "\u0631\u0637\u0642", l.text)

	f.arabic, err = newShaper(goregular.TTF)
	require.NoError(t, err)
	l, err = f.Label("\u0642\u0637\u0631", 20)
	require.NoError(t, err)
	require.NotNil(t, l.shaped)
	assert.NotEmpty(t, l.shaped.glyphs)

	l, err = f.Label("Egypt", 20)
	require.NoError(t, err)
	assert.Nil(t, l.shaped)
	assert.Equal(t, "Egypt", l.text)
}

// hasInk reports whether any pixel of r is not white.
func hasInk(img image.Image, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if cr, cg, cb, _ := img.At(x, y).RGBA(); cr != 0xffff || cg != 0xffff || cb != 0xffff {
				return true
			}
		}
	}
	return false
}

func TestBuildHubGraph(t *testing.T) {
	rows := append([]types.EntityCount{}, sampleRows...)
	rows = append(rows, types.EntityCount{Link: "other", Entity: "1923", Label: "Date", Occurrences: 3})

	g := buildHubGraph(rows)
	assert.Equal(t, []string{"Date", "Country", "Person", "Material"}, g.Hubs)
	require.Len(t, g.Leaves["Date"], 1)
	assert.Equal(t, 4, g.Leaves["Date"][0].Weight)
	assert.Equal(t, 4, g.Occurrences["1923"])
}

func TestHubColor(t *testing.T) {
	assert.Equal(t, colorLightBlue, HubColor("Date"))
	assert.Equal(t, colorOrange, HubColor("Country"))
	assert.Equal(t, colorGray, HubColor("Material"))
}

func TestGraphRendererWritesArtifacts(t *testing.T) {
	csvPath := writeCSV(t, sampleRows)
	paths, err := NewGraphRenderer(testFonts(t), testLogger()).Render(csvPath)
	require.NoError(t, err)
	require.Len(t, paths, 5)

	dir := filepath.Join(filepath.Dir(csvPath), "Jane_Doe_graphs")
	for _, name := range []string{"Date_graph.png", "Country_graph.png", "Person_graph.png", "Material_graph.png", GEXFName} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	raw, err := os.ReadFile(filepath.Join(dir, GEXFName))
	require.NoError(t, err)
	var doc gexfDoc
	require.NoError(t, xml.Unmarshal(raw, &doc))
	assert.Equal(t, "1.2", doc.Version)
	assert.Len(t, doc.Graph.Nodes, 8)
	assert.Len(t, doc.Graph.Edges, 4)
	assert.Equal(t, "Hub", doc.Graph.Nodes[0].Values[2].Value)
	assert.Equal(t, "Date", doc.Graph.Nodes[4].Values[2].Value)
	assert.Equal(t, 3.0, doc.Graph.Edges[3].Weight)
}

func TestWordCloudRender(t *testing.T) {
	csvPath := writeCSV(t, sampleRows)
	cfg := config.DefaultConfig().Render
	cfg.WordCloudHTML = true

	paths, err := NewWordCloud(cfg, testFonts(t), testLogger()).Render(csvPath)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.True(t, strings.HasSuffix(paths[0], "Jane_Doe_wordcloud.png"))

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 400), img.Bounds())
	assert.True(t, hasInk(img, image.Rect(0, 0, 400, 18)), "page link title missing")

	html, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(html), "Bronze")
}

func TestWordCloudArabic(t *testing.T) {
	rows := []types.EntityCount{
		{Link: link, Entity: "الدوحة", Label: "مدينة", Occurrences: 2},
		{Link: link, Entity: "قطر", Label: "دولة", Occurrences: 1},
	}
	paths, err := NewWordCloud(config.DefaultConfig().Render, testFonts(t), testLogger()).Render(writeCSV(t, rows))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.FileExists(t, paths[0])
}

func TestWordCloudEmptyCSV(t *testing.T) {
	paths, err := NewWordCloud(config.DefaultConfig().Render, testFonts(t), testLogger()).Render(writeCSV(t, nil))
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRenderMissingCSV(t *testing.T) {
	_, err := NewGraphRenderer(testFonts(t), testLogger()).Render(filepath.Join(t.TempDir(), "nope.csv"))
	var re *types.RenderError
	assert.ErrorAs(t, err, &re)
}

func TestSpiralPlaceAvoidsOverlap(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)
	var occupied []image.Rectangle
	for i := 0; i < 4; i++ {
		r, ok := spiralPlace(bounds, occupied, 40, 20)
		require.True(t, ok)
		assert.True(t, r.In(bounds))
		for _, o := range occupied {
			assert.False(t, r.Overlaps(o))
		}
		occupied = append(occupied, r)
	}
	_, ok := spiralPlace(bounds, nil, 300, 20)
	assert.False(t, ok)
}

func TestInteractive(t *testing.T) {
	v := NewInteractive(testLogger())
	assert.True(t, v.Supports(types.English))
	assert.False(t, v.Supports(types.Arabic))

	csvPath := writeCSV(t, sampleRows)
	paths, err := v.Render(csvPath)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(filepath.Dir(csvPath), "Jane_Doe_graphs", InteractiveName), paths[0])

	html, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(html), "John Smith")
}

func TestPageName(t *testing.T) {
	assert.Equal(t, "Jane Doe", PageName(link))
	assert.Equal(t, "Ali Baba", PageName("https://example.org/en/encyclopedia/Ali_Baba/"))
	assert.Equal(t, "Unknown", PageName(""))
}

func TestNetworkRender(t *testing.T) {
	other := []types.EntityCount{
		{Link: "https://example.org/en/artists/Omar_Khayyam.aspx", Entity: "Egypt", Label: "Country", Occurrences: 1},
	}
	out := filepath.Join(t.TempDir(), "network.html")
	err := NewNetwork(testLogger()).Render([]string{writeCSV(t, sampleRows), writeCSV(t, other)}, out)
	require.NoError(t, err)

	d := buildNetwork(append(append([]types.EntityCount{}, sampleRows...), other...))
	assert.Equal(t, []string{PageCategory, "Date", "Country", "Person", "Material"}, d.Categories)
	assert.Len(t, d.Nodes, 6)
	assert.Len(t, d.Links, 5)

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Omar Khayyam")
}

func TestNetworkNoRows(t *testing.T) {
	err := NewNetwork(testLogger()).Render([]string{writeCSV(t, nil)}, filepath.Join(t.TempDir(), "n.html"))
	assert.ErrorIs(t, err, types.ErrNoPages)
}

func TestAdapters(t *testing.T) {
	cfg := config.DefaultConfig().Render
	names := []string{}
	for _, a := range Adapters(cfg, testFonts(t), testLogger()) {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"wordcloud", "graphs", "interactive"}, names)
}
