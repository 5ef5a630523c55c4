// Package layout turns a string into positioned glyphs using the shaping
// tables of a font, so that cursive scripts keep their native joins and
// kerning when drawn glyph by glyph.
package layout

import (
	"github.com/dmitrijs2005/docusigner/internal/fonts"
	"seehuhn.de/go/sfnt/glyph"
)

// Glyph is one shaped glyph in points. Text holds the source characters
// the glyph stands for, in input order. YOffset grows downward, so a
// renderer with an upward Y axis subtracts it.
type Glyph struct {
	GID      glyph.ID
	Text     string
	XAdvance float64
	XOffset  float64
	YOffset  float64
}

// Layout shapes text with face at size points. It is a pure function of
// its inputs.
func Layout(face *fonts.Face, text string, size float64) []Glyph {
	if text == "" {
		return nil
	}

	scale := size / face.UnitsPerEm()
	shaped := face.Shape(text)

	out := make([]Glyph, 0, len(shaped))
	for _, g := range shaped {
		out = append(out, Glyph{
			GID:      g.GID,
			Text:     string(g.Text),
			XAdvance: float64(g.Advance) * scale,
			XOffset:  float64(g.XOffset) * scale,
			YOffset:  -float64(g.YOffset) * scale,
		})
	}
	return out
}

// Width is the total advance of a laid out run.
func Width(glyphs []Glyph) float64 {
	var w float64
	for _, g := range glyphs {
		w += g.XAdvance
	}
	return w
}

// Text concatenates the source characters of a laid out run.
func Text(glyphs []Glyph) string {
	n := 0
	for _, g := range glyphs {
		n += len(g.Text)
	}
	b := make([]byte, 0, n)
	for _, g := range glyphs {
		b = append(b, g.Text...)
	}
	return string(b)
}
