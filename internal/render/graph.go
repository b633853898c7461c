package render

import (
	"image/color"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"

	"github.com/IshaanNene/entitymap/internal/types"
)

// hubColors maps hub labels to their node colour; other labels are gray.
var hubColors = map[string]color.RGBA{
	"Date":    colorLightBlue,
	"Person":  colorLightCoral,
	"Place":   colorLightGreen,
	"Country": colorOrange,
}

// HubColor returns the node colour for a hub label.
func HubColor(label string) color.RGBA {
	if c, ok := hubColors[label]; ok {
		return c
	}
	return colorGray
}

// GEXFName is the file name of the graph export inside <slug>_graphs.
const GEXFName = "enhanced_graph_with_attributes.gexf"

// GraphRenderer draws one star graph per label and exports the whole
// label/entity graph as GEXF.
type GraphRenderer struct {
	width  int
	height int
	fonts  *Fonts
	logger *slog.Logger
}

// NewGraphRenderer creates a GraphRenderer.
func NewGraphRenderer(fonts *Fonts, logger *slog.Logger) *GraphRenderer {
	return &GraphRenderer{
		width:  1200,
		height: 1000,
		fonts:  fonts,
		logger: logger.With("component", "graph_renderer"),
	}
}

func (g *GraphRenderer) Name() string { return "graphs" }

func (g *GraphRenderer) Supports(types.Language) bool { return true }

// Render writes <Label>_graph.png per hub and the GEXF file into
// <slug>_graphs beside the CSV.
func (g *GraphRenderer) Render(csvPath string) ([]string, error) {
	rows, err := loadRows("graphs", csvPath)
	if err != nil {
		return nil, err
	}
	graph := buildHubGraph(rows)
	dir := graphDir(csvPath)

	var paths []string
	for _, hub := range graph.Hubs {
		path := filepath.Join(dir, hub+"_graph.png")
		if err := g.drawHub(path, hub, graph.Leaves[hub]); err != nil {
			return paths, &types.RenderError{Artifact: "graph", Path: path, Err: err}
		}
		paths = append(paths, path)
	}

	gexfPath := filepath.Join(dir, GEXFName)
	if err := writeGEXF(gexfPath, graph); err != nil {
		return paths, &types.RenderError{Artifact: "gexf", Path: gexfPath, Err: err}
	}
	paths = append(paths, gexfPath)

	g.logger.Info("graphs saved", "dir", dir, "hubs", len(graph.Hubs))
	return paths, nil
}

// drawHub places the hub in the centre and its leaves evenly on a ring,
// with the edge weight written at the middle of each edge.
func (g *GraphRenderer) drawHub(path, hub string, leaves []leaf) error {
	c := newCanvas(g.width, g.height)
	col := HubColor(hub)

	cx, cy := float64(g.width)/2, float64(g.height)/2+20
	ring := math.Min(cx, cy) * 0.72
	const hubR, leafR = 46.0, 36.0

	type point struct{ x, y float64 }
	pos := make([]point, len(leaves))
	for i := range leaves {
		a := 2*math.Pi*float64(i)/float64(len(leaves)) - math.Pi/2
		pos[i] = point{cx + ring*math.Cos(a), cy + ring*math.Sin(a)}
	}

	for _, p := range pos {
		c.line(cx, cy, p.x, p.y, 1.5, colorEdge)
	}
	c.circle(cx, cy, hubR, col)
	for _, p := range pos {
		c.circle(p.x, p.y, leafR, col)
	}

	for i, l := range leaves {
		mx, my := (cx+pos[i].x)/2, (cy+pos[i].y)/2
		if err := g.drawLabel(c, strconv.Itoa(l.Weight), 11, mx, my); err != nil {
			return err
		}
		if err := g.drawLabel(c, l.Entity, 14, pos[i].x, pos[i].y); err != nil {
			return err
		}
	}
	if err := g.drawLabel(c, hub, 14, cx, cy); err != nil {
		return err
	}
	if err := g.drawLabel(c, hub+" Graph", 26, float64(g.width)/2, 40); err != nil {
		return err
	}

	return savePNG(path, c.img)
}

func (g *GraphRenderer) drawLabel(c *canvas, text string, size, x, y float64) error {
	l, err := g.fonts.Label(text, size)
	if err != nil {
		return err
	}
	c.centredText(l, int(x), int(y), colorBlack)
	return nil
}
