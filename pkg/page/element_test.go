package page

import (
	"strings"
	"testing"
)

// parseImg extracts the first member image element from an HTML snippet.
func parseImg(t *testing.T, snippet string) *HTMLElement {
	t.Helper()

	doc, err := ParseString(snippet)
	if err != nil {
		t.Fatalf("Failed to parse snippet: %v", err)
	}

	elements := FindMemberImages(doc)
	if len(elements) == 0 {
		t.Fatal("No member image found in snippet")
	}

	el, ok := elements[0].(*HTMLElement)
	if !ok {
		t.Fatalf("Expected *HTMLElement, got %T", elements[0])
	}
	return el
}

func TestHTMLElement_SourceRoundTrip(t *testing.T) {
	el := parseImg(t, `<img class="member-image" src="https://example.test/a.png">`)

	if el.Source() != "https://example.test/a.png" {
		t.Errorf("Source() = %q, want original src", el.Source())
	}

	el.SetSource("data:image/svg+xml;base64,AAAA")
	if el.Source() != "data:image/svg+xml;base64,AAAA" {
		t.Errorf("Source() = %q after SetSource", el.Source())
	}
}

func TestHTMLElement_Attr(t *testing.T) {
	el := parseImg(t, `<img class="member-image" src="x.png" width="200">`)

	if el.Attr("width") != "200" {
		t.Errorf("Attr(width) = %q, want 200", el.Attr("width"))
	}
	if el.Attr("missing") != "" {
		t.Errorf("Attr(missing) = %q, want empty", el.Attr("missing"))
	}

	el.SetAttr("data-deferred-src", "x.png")
	if el.Attr("data-deferred-src") != "x.png" {
		t.Error("SetAttr did not store new attribute")
	}

	el.SetAttr("width", "300")
	if el.Attr("width") != "300" {
		t.Error("SetAttr did not replace existing attribute")
	}
}

func TestHTMLElement_Classes(t *testing.T) {
	el := parseImg(t, `<img class="member-image" src="x.png">`)

	el.AddClass(ClassLoading)
	if !el.HasClass(ClassLoading) {
		t.Error("AddClass did not add loading class")
	}
	if !el.HasClass(MarkerClass) {
		t.Error("AddClass dropped existing marker class")
	}

	// Adding twice must not duplicate.
	el.AddClass(ClassLoading)
	if strings.Count(el.Attr("class"), ClassLoading) != 1 {
		t.Errorf("Class list has duplicates: %q", el.Attr("class"))
	}

	el.RemoveClass(ClassLoading)
	if el.HasClass(ClassLoading) {
		t.Error("RemoveClass did not remove loading class")
	}

	// Removing an absent class is a no-op.
	el.RemoveClass("absent")
	if !el.HasClass(MarkerClass) {
		t.Error("RemoveClass of absent class disturbed other classes")
	}
}
