// Package page provides the managed-image data model and listing-page
// scanning for the progressive loading pipeline.
package page

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Attributes and markers consumed by the pipeline.
const (
	// AttrDeferredSource holds the real image URL while loading is deferred.
	AttrDeferredSource = "data-deferred-src"

	// MarkerClass selects candidate images during the initial page scan.
	MarkerClass = "member-image"
)

// Visual-state marker classes toggled on each element. A style-injection
// collaborator supplies the matching CSS rules; the pipeline only adds and
// removes class names.
const (
	ClassLoading = "loading"
	ClassLoaded  = "loaded"
	ClassError   = "error"
)

// Element is the mutable view of a page image the pipeline operates on.
type Element interface {
	// Source returns the current src attribute ("" if absent).
	Source() string

	// SetSource replaces the src attribute.
	SetSource(src string)

	// Attr returns the value of the named attribute ("" if absent).
	Attr(name string) string

	// SetAttr sets the named attribute, replacing any existing value.
	SetAttr(name, value string)

	// AddClass adds a class name unless already present.
	AddClass(name string)

	// RemoveClass removes a class name if present.
	RemoveClass(name string)
}

// HTMLElement adapts an html.Node <img> element to the Element interface.
// Loads settle on arbitrary goroutines, so attribute access is guarded.
type HTMLElement struct {
	mu   sync.Mutex
	node *html.Node
}

// NewHTMLElement wraps a parsed <img> node.
func NewHTMLElement(node *html.Node) *HTMLElement {
	return &HTMLElement{node: node}
}

// Node returns the underlying parse-tree node.
func (e *HTMLElement) Node() *html.Node {
	return e.node
}

// Source returns the src attribute.
func (e *HTMLElement) Source() string {
	return e.Attr("src")
}

// SetSource replaces the src attribute.
func (e *HTMLElement) SetSource(src string) {
	e.SetAttr("src", src)
}

// Attr returns the value of the named attribute ("" if absent).
func (e *HTMLElement) Attr(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets the named attribute, replacing any existing value.
func (e *HTMLElement) SetAttr(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, a := range e.node.Attr {
		if a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// AddClass adds a class name unless already present.
func (e *HTMLElement) AddClass(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	classes := e.classListLocked()
	for _, c := range classes {
		if c == name {
			return
		}
	}
	e.setAttrLocked("class", strings.Join(append(classes, name), " "))
}

// RemoveClass removes a class name if present.
func (e *HTMLElement) RemoveClass(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	classes := e.classListLocked()
	kept := classes[:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	e.setAttrLocked("class", strings.Join(kept, " "))
}

// HasClass reports whether the class list contains name.
func (e *HTMLElement) HasClass(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range e.classListLocked() {
		if c == name {
			return true
		}
	}
	return false
}

func (e *HTMLElement) classListLocked() []string {
	for _, a := range e.node.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func (e *HTMLElement) setAttrLocked(name, value string) {
	for i, a := range e.node.Attr {
		if a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}
