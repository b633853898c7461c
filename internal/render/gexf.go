package render

import (
	"bufio"
	"encoding/xml"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Meta    gexfMeta  `xml:"meta"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfMeta struct {
	LastModified string `xml:"lastmodifieddate,attr"`
	Creator      string `xml:"creator"`
}

type gexfGraph struct {
	DefaultEdgeType string         `xml:"defaultedgetype,attr"`
	Mode            string         `xml:"mode,attr"`
	Attributes      gexfAttributes `xml:"attributes"`
	Nodes           []gexfNode     `xml:"nodes>node"`
	Edges           []gexfEdge     `xml:"edges>edge"`
}

type gexfAttributes struct {
	Class string          `xml:"class,attr"`
	Mode  string          `xml:"mode,attr"`
	Attrs []gexfAttribute `xml:"attribute"`
}

type gexfAttribute struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfNode struct {
	ID     string         `xml:"id,attr"`
	Label  string         `xml:"label,attr"`
	Values []gexfAttValue `xml:"attvalues>attvalue"`
}

type gexfAttValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfEdge struct {
	ID     string  `xml:"id,attr"`
	Source string  `xml:"source,attr"`
	Target string  `xml:"target,attr"`
	Weight float64 `xml:"weight,attr"`
}

// Attribute ids of the node attributes.
const (
	attrLabel       = "0"
	attrOccurrences = "1"
	attrType        = "2"
)

func gexfFromGraph(g *hubGraph) gexfDoc {
	doc := gexfDoc{
		XMLNS:   "http://www.gexf.net/1.2draft",
		Version: "1.2",
		Meta: gexfMeta{
			LastModified: time.Now().Format("2006-01-02"),
			Creator:      "entitymap",
		},
		Graph: gexfGraph{
			DefaultEdgeType: "undirected",
			Mode:            "static",
			Attributes: gexfAttributes{
				Class: "node",
				Mode:  "static",
				Attrs: []gexfAttribute{
					{ID: attrLabel, Title: "label", Type: "string"},
					{ID: attrOccurrences, Title: "occurrences", Type: "integer"},
					{ID: attrType, Title: "type", Type: "string"},
				},
			},
		},
	}

	node := func(id string, occurrences int, kind string) gexfNode {
		return gexfNode{
			ID:    id,
			Label: id,
			Values: []gexfAttValue{
				{For: attrLabel, Value: id},
				{For: attrOccurrences, Value: strconv.Itoa(occurrences)},
				{For: attrType, Value: kind},
			},
		}
	}

	seen := make(map[string]bool)
	for _, hub := range g.Hubs {
		doc.Graph.Nodes = append(doc.Graph.Nodes, node(hub, 0, "Hub"))
		seen[hub] = true
	}
	edgeID := 0
	for _, hub := range g.Hubs {
		for _, l := range g.Leaves[hub] {
			if !seen[l.Entity] {
				doc.Graph.Nodes = append(doc.Graph.Nodes, node(l.Entity, g.Occurrences[l.Entity], g.EntityLabel[l.Entity]))
				seen[l.Entity] = true
			}
			doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
				ID:     strconv.Itoa(edgeID),
				Source: hub,
				Target: l.Entity,
				Weight: float64(l.Weight),
			})
			edgeID++
		}
	}
	return doc
}

// writeGEXF exports the hub graph as GEXF 1.2.
func writeGEXF(path string, g *hubGraph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(gexfFromGraph(g)); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
