package duckduckgo

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/poiesic/weave/core"
	"golang.org/x/net/html"
)

// parseLiteResults walks a DuckDuckGo Lite results page. Each hit is an
// anchor with class "result-link" followed by a td with class
// "result-snippet".
func parseLiteResults(htmlContent string, maxResults int) ([]*core.WebSource, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	var results []*core.WebSource
	var current *core.WebSource

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "a" && hasClass(n, "result-link") {
				if current != nil && current.URL != "" {
					results = append(results, current)
					if len(results) >= maxResults {
						return
					}
				}
				current = &core.WebSource{Title: textContent(n)}
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						current.URL = cleanRedirectURL(attr.Val)
						break
					}
				}
			}
			if n.Data == "td" && hasClass(n, "result-snippet") && current != nil {
				current.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if len(results) >= maxResults {
				return
			}
			traverse(c)
		}
	}

	traverse(doc)

	if current != nil && current.URL != "" && len(results) < maxResults {
		results = append(results, current)
	}

	return results, nil
}

// cleanRedirectURL extracts the destination from DuckDuckGo's redirect link.
func cleanRedirectURL(rawURL string) string {
	if idx := strings.Index(rawURL, "uddg="); idx != -1 {
		encoded := rawURL[idx+5:]
		if ampIdx := strings.Index(encoded, "&"); ampIdx != -1 {
			encoded = encoded[:ampIdx]
		}
		if decoded, err := url.QueryUnescape(encoded); err == nil {
			return decoded
		}
	}
	return rawURL
}

// hasClass checks if an HTML node carries a specific CSS class.
func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// textContent recursively extracts the text content of a node.
func textContent(n *html.Node) string {
	var text strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			text.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.TrimSpace(text.String())
}
