package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/entitymap/internal/types"
)

// PageLink is an absolute URL found in an <a href> on a page.
type PageLink struct {
	URL     string
	Matches bool // URL contains the path filter
}

// ExtractLinks returns the distinct links of a fetched page, resolved
// against the requested URL, in document order.
func ExtractLinks(resp *types.Response, pathFilter string) ([]PageLink, error) {
	pageURL := resp.FinalURL
	if resp.Request != nil {
		pageURL = resp.Request.URLString()
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{Source: pageURL, Err: err}
	}
	return extractLinks(doc, pageURL, pathFilter), nil
}

// extractLinks finds all <a href> links in the document.
func extractLinks(doc *goquery.Document, baseURL, pathFilter string) []PageLink {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []PageLink

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists {
			return
		}

		href = strings.TrimSpace(href)
		if href == "" ||
			strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "data:") {
			return
		}

		parsedHref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsedHref)

		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		resolved.Fragment = ""

		absURL := resolved.String()
		if !seen[absURL] {
			seen[absURL] = true
			links = append(links, PageLink{
				URL:     absURL,
				Matches: strings.Contains(absURL, pathFilter),
			})
		}
	})

	return links
}
