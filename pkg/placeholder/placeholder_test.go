package placeholder

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerate_DataURI(t *testing.T) {
	uri := Generate(140, 140)

	if !strings.HasPrefix(uri, "data:image/svg+xml;base64,") {
		t.Errorf("Expected SVG data URI prefix, got %q", uri[:min(40, len(uri))])
	}

	payload := strings.TrimPrefix(uri, "data:image/svg+xml;base64,")
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("Payload is not valid base64: %v", err)
	}

	svg := string(decoded)
	if !strings.Contains(svg, `width="140"`) || !strings.Contains(svg, `height="140"`) {
		t.Errorf("SVG missing dimensions: %s", svg)
	}
	if !strings.Contains(svg, "<rect") || !strings.Contains(svg, "<circle") {
		t.Errorf("SVG missing background or glyph: %s", svg)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(200, 100)
	b := Generate(200, 100)

	if a != b {
		t.Error("Generate should be deterministic for equal dimensions")
	}
}

func TestGenerate_DimensionFallback(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"zero dimensions", 0, 0},
		{"negative width", -5, 100},
		{"negative height", 100, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri := Generate(tt.width, tt.height)

			payload := strings.TrimPrefix(uri, "data:image/svg+xml;base64,")
			decoded, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				t.Fatalf("Payload is not valid base64: %v", err)
			}

			svg := string(decoded)
			if !strings.Contains(svg, `width="140"`) && !strings.Contains(svg, `height="140"`) {
				t.Errorf("Expected 140 fallback for invalid dimensions, got %s", svg)
			}
		})
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
