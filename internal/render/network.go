package render

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/IshaanNene/entitymap/internal/types"
)

// PageCategory is the category name of page nodes in the network.
const PageCategory = "Page"

// Network links every page of a collection to the entities found on it.
type Network struct {
	logger *slog.Logger
}

// NewNetwork creates a Network renderer.
func NewNetwork(logger *slog.Logger) *Network {
	return &Network{logger: logger.With("component", "network")}
}

// PageName names a page node after the last URL segment, without its
// extension and with underscores as spaces.
func PageName(link string) string {
	if link == "" {
		return "Unknown"
	}
	path := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	seg := path[strings.LastIndex(path, "/")+1:]
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	if i := strings.Index(seg, "."); i >= 0 {
		seg = seg[:i]
	}
	name := strings.TrimSpace(strings.ReplaceAll(seg, "_", " "))
	if name == "" {
		return "Unknown"
	}
	return name
}

// networkData is the node and link set of a collection network.
type networkData struct {
	Categories []string
	Nodes      []opts.GraphNode
	Links      []opts.GraphLink
}

func buildNetwork(rows []types.EntityCount) networkData {
	var d networkData
	catIndex := map[string]int{PageCategory: 0}
	d.Categories = []string{PageCategory}
	seen := make(map[string]bool)

	for _, r := range rows {
		if _, ok := catIndex[r.Label]; !ok {
			catIndex[r.Label] = len(d.Categories)
			d.Categories = append(d.Categories, r.Label)
		}
		page := PageName(r.Link)
		if !seen[page] {
			d.Nodes = append(d.Nodes, opts.GraphNode{Name: page, SymbolSize: 24, Category: 0})
			seen[page] = true
		}
		if !seen[r.Entity] {
			d.Nodes = append(d.Nodes, opts.GraphNode{Name: r.Entity, SymbolSize: 12, Category: catIndex[r.Label]})
			seen[r.Entity] = true
		}
		d.Links = append(d.Links, opts.GraphLink{Source: page, Target: r.Entity, Value: float32(r.Occurrences)})
	}
	return d
}

// Render reads every CSV and writes the combined network to out.
func (n *Network) Render(csvPaths []string, out string) error {
	var rows []types.EntityCount
	for _, p := range csvPaths {
		r, err := loadRows("network", p)
		if err != nil {
			return err
		}
		rows = append(rows, r...)
	}
	if len(rows) == 0 {
		return &types.RenderError{Artifact: "network", Path: out, Err: types.ErrNoPages}
	}

	d := buildNetwork(rows)
	categories := make([]*opts.GraphCategory, len(d.Categories))
	for i, c := range d.Categories {
		categories[i] = &opts.GraphCategory{Name: c}
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "100vh",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Collection Network"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	graph.AddSeries("network", d.Nodes, d.Links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:             "force",
			Force:              &opts.GraphForce{Repulsion: 300, EdgeLength: 150},
			Roam:               opts.Bool(true),
			Categories:         categories,
			FocusNodeAdjacency: opts.Bool(true),
			Draggable:          opts.Bool(true),
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
	)

	if err := renderPage(out, graph); err != nil {
		return &types.RenderError{Artifact: "network", Path: out, Err: err}
	}
	n.logger.Info("collection network saved",
		"path", out,
		"pages", len(csvPaths),
		"nodes", len(d.Nodes),
		"links", len(d.Links),
	)
	return nil
}
