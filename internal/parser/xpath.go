package parser

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// scopeHTML narrows page to the outer HTML of every node matching expr,
// concatenated in document order. Script and style elements inside the
// matches are dropped.
func scopeHTML(page, expr string) (string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return "", fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	if len(nodes) == 0 {
		return "", fmt.Errorf("xpath %q matched nothing", expr)
	}

	var b strings.Builder
	for _, node := range nodes {
		stripNonText(node)
		if err := html.Render(&b, node); err != nil {
			return "", err
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func stripNonText(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && (c.DataAtom == atom.Script || c.DataAtom == atom.Style || c.DataAtom == atom.Noscript) {
			n.RemoveChild(c)
		} else {
			stripNonText(c)
		}
		c = next
	}
}
