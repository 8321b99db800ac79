package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/mimic/pkg/types"
)

// parseDocument reads head-level metadata from rendered HTML.
func parseDocument(rawHTML string) (types.DocumentInfo, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return types.DocumentInfo{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return types.DocumentInfo{
		Title:       extractTitle(doc),
		Description: extractMetaDescription(doc),
		Lang:        extractLang(doc),
	}, nil
}

// extractTitle extracts the page title from the document
func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if title != "" {
				return
			}
		}
	}
	traverse(doc)
	return title
}

// extractMetaDescription extracts the meta description, falling back to
// the Open Graph description.
func extractMetaDescription(doc *html.Node) string {
	var description, ogDescription string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var name, content string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "name", "property":
					name = strings.ToLower(attr.Val)
				case "content":
					content = strings.TrimSpace(attr.Val)
				}
			}
			switch {
			case name == "description" && content != "":
				description = content
				return
			case name == "og:description" && ogDescription == "":
				ogDescription = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if description != "" {
				return
			}
		}
	}
	traverse(doc)
	if description != "" {
		return description
	}
	return ogDescription
}

// extractLang returns the lang attribute of the root element.
func extractLang(doc *html.Node) string {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && n.Data == "html" {
			for _, attr := range n.Attr {
				if attr.Key == "lang" {
					return strings.TrimSpace(attr.Val)
				}
			}
		}
	}
	return ""
}
