// Package placeholder synthesizes inline placeholder images for deferred
// and failed loads.
package placeholder

import (
	"encoding/base64"
	"fmt"
)

// Placeholder colors: flat background with a generic avatar glyph.
const (
	backgroundFill = "#e9ebee"
	glyphFill      = "#c3c8cf"
)

// Generate returns a width×height placeholder as an embeddable SVG data URI.
// It is pure and deterministic and has no failure mode; non-positive
// dimensions fall back to 140×140.
func Generate(width, height int) string {
	if width <= 0 {
		width = 140
	}
	if height <= 0 {
		height = 140
	}

	// Avatar glyph proportions relative to the placeholder box: a head circle
	// above a shoulder arc, centered horizontally.
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 100 100">`+
			`<rect width="100" height="100" fill="%s"/>`+
			`<circle cx="50" cy="38" r="16" fill="%s"/>`+
			`<path d="M 20 88 Q 20 62 50 62 Q 80 62 80 88 Z" fill="%s"/>`+
			`</svg>`,
		width, height, backgroundFill, glyphFill, glyphFill,
	)

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}
