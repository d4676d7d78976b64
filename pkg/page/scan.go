package page

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parse parses an HTML listing page into a document tree.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// ParseString parses an HTML listing page held in memory.
func ParseString(s string) (*html.Node, error) {
	return Parse(strings.NewReader(s))
}

// FindMemberImages walks the document and returns an Element for every <img>
// carrying the member marker class, in document order. The page is scanned
// once; images inserted later are not managed.
func FindMemberImages(doc *html.Node) []Element {
	var elements []Element

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" && hasMarkerClass(n) {
			elements = append(elements, NewHTMLElement(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return elements
}

func hasMarkerClass(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == MarkerClass {
				return true
			}
		}
	}
	return false
}
