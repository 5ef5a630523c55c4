package fonts

import (
	"bytes"
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/glyph"
)

// Face is one embeddable font program: the raw file bytes, for embedding
// in PDF output, and the parsed tables, for shaping and metrics.
type Face struct {
	Name string
	Data []byte
	Info *sfnt.Font

	mu       sync.Mutex
	layouter *sfnt.Layouter
}

// ParseFace parses a TrueType or OpenType font file.
func ParseFace(name string, data []byte) (*Face, error) {
	info, err := sfnt.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}

	layouter, err := info.NewLayouter(language.Und, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("font %s layouter: %w", name, err)
	}

	return &Face{Name: name, Data: data, Info: info, layouter: layouter}, nil
}

// Shape runs the font's GSUB/GPOS tables over text. The returned slice is
// owned by the caller. A layouter keeps scratch state, so calls on one face
// are serialized.
func (f *Face) Shape(text string) []glyph.Info {
	f.mu.Lock()
	defer f.mu.Unlock()

	seq := f.layouter.Layout(text)
	out := make([]glyph.Info, len(seq))
	for i, g := range seq {
		g.Text = append([]rune(nil), g.Text...)
		out[i] = g
	}
	return out
}

// UnitsPerEm is the size of the design grid.
func (f *Face) UnitsPerEm() float64 {
	return float64(f.Info.UnitsPerEm)
}

// GlyphWidth is the horizontal advance of gid in design units.
func (f *Face) GlyphWidth(gid glyph.ID) float64 {
	return float64(f.Info.GlyphWidth(gid))
}
