// Package render turns a page's entity CSV into word clouds, hub graphs,
// GEXF exports and interactive HTML views.
package render

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/storage"
	"github.com/IshaanNene/entitymap/internal/types"
)

// Adapter produces artifacts from one entity CSV.
type Adapter interface {
	// Name identifies the adapter in logs and metrics.
	Name() string

	// Supports reports whether the adapter runs for pages in lang.
	Supports(lang types.Language) bool

	// Render writes the artifacts and returns their paths.
	Render(csvPath string) ([]string, error)
}

// Adapters returns the adapters enabled in cfg, in render order.
func Adapters(cfg config.RenderConfig, fonts *Fonts, logger *slog.Logger) []Adapter {
	var out []Adapter
	if cfg.WordCloud {
		out = append(out, NewWordCloud(cfg, fonts, logger))
	}
	if cfg.Graphs {
		out = append(out, NewGraphRenderer(fonts, logger))
	}
	if cfg.Interactive {
		out = append(out, NewInteractive(logger))
	}
	return out
}

// slugOf returns the CSV file name without its extension.
func slugOf(csvPath string) string {
	return strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
}

// graphDir is the folder that holds a page's graph artifacts.
func graphDir(csvPath string) string {
	return filepath.Join(filepath.Dir(csvPath), slugOf(csvPath)+"_graphs")
}

func loadRows(artifact, csvPath string) ([]types.EntityCount, error) {
	rows, err := storage.ReadEntityCSV(csvPath)
	if err != nil {
		return nil, &types.RenderError{Artifact: artifact, Path: csvPath, Err: err}
	}
	return rows, nil
}

// leaf is an entity attached to a hub with its summed weight.
type leaf struct {
	Entity string
	Weight int
}

// hubGraph has one hub per distinct label and one leaf per distinct entity
// under it. Hubs and leaves keep first-appearance order.
type hubGraph struct {
	Hubs        []string
	Leaves      map[string][]leaf
	Occurrences map[string]int
	EntityLabel map[string]string
}

func buildHubGraph(rows []types.EntityCount) *hubGraph {
	g := &hubGraph{
		Leaves:      make(map[string][]leaf),
		Occurrences: make(map[string]int),
		EntityLabel: make(map[string]string),
	}
	index := make(map[[2]string]int)

	for _, r := range rows {
		if _, ok := g.Leaves[r.Label]; !ok {
			g.Hubs = append(g.Hubs, r.Label)
			g.Leaves[r.Label] = nil
		}
		key := [2]string{r.Label, r.Entity}
		if i, ok := index[key]; ok {
			g.Leaves[r.Label][i].Weight += r.Occurrences
		} else {
			index[key] = len(g.Leaves[r.Label])
			g.Leaves[r.Label] = append(g.Leaves[r.Label], leaf{Entity: r.Entity, Weight: r.Occurrences})
		}
		g.Occurrences[r.Entity] += r.Occurrences
		g.EntityLabel[r.Entity] = r.Label
	}
	return g
}
