package render

import (
	"log/slog"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/IshaanNene/entitymap/internal/types"
)

// InteractiveName is the file name of the interactive view inside
// <slug>_graphs.
const InteractiveName = "interactive_graph.html"

// Interactive writes a force-directed HTML graph of labels and entities.
type Interactive struct {
	logger *slog.Logger
}

// NewInteractive creates an Interactive renderer.
func NewInteractive(logger *slog.Logger) *Interactive {
	return &Interactive{logger: logger.With("component", "interactive_graph")}
}

func (v *Interactive) Name() string { return "interactive" }

// Supports is true for English pages only.
func (v *Interactive) Supports(lang types.Language) bool { return lang == types.English }

func (v *Interactive) Render(csvPath string) ([]string, error) {
	rows, err := loadRows("interactive", csvPath)
	if err != nil {
		return nil, err
	}
	g := buildHubGraph(rows)
	path := filepath.Join(graphDir(csvPath), InteractiveName)

	categories := make([]*opts.GraphCategory, 0, len(g.Hubs))
	catIndex := make(map[string]int, len(g.Hubs))
	for i, hub := range g.Hubs {
		categories = append(categories, &opts.GraphCategory{Name: hub})
		catIndex[hub] = i
	}

	maxWeight := 1
	for _, n := range g.Occurrences {
		if n > maxWeight {
			maxWeight = n
		}
	}

	var nodes []opts.GraphNode
	seen := make(map[string]bool)
	for _, hub := range g.Hubs {
		nodes = append(nodes, opts.GraphNode{Name: hub, SymbolSize: 40, Category: catIndex[hub]})
		seen[hub] = true
	}
	var links []opts.GraphLink
	for _, hub := range g.Hubs {
		for _, l := range g.Leaves[hub] {
			if !seen[l.Entity] {
				size := 10 + 20*float32(g.Occurrences[l.Entity])/float32(maxWeight)
				nodes = append(nodes, opts.GraphNode{Name: l.Entity, SymbolSize: size, Category: catIndex[hub]})
				seen[l.Entity] = true
			}
			links = append(links, opts.GraphLink{Source: hub, Target: l.Entity, Value: float32(l.Weight)})
		}
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "100vh",
		}),
		charts.WithTitleOpts(opts.Title{Title: slugOf(csvPath)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	graph.AddSeries("entities", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:             "force",
			Force:              &opts.GraphForce{Repulsion: 800, EdgeLength: 120},
			Roam:               opts.Bool(true),
			Categories:         categories,
			FocusNodeAdjacency: opts.Bool(true),
			Draggable:          opts.Bool(true),
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
	)

	if err := renderPage(path, graph); err != nil {
		return nil, &types.RenderError{Artifact: "interactive", Path: path, Err: err}
	}
	v.logger.Info("interactive graph saved", "path", path, "nodes", len(nodes), "links", len(links))
	return []string{path}, nil
}
