package pdfstamp

import (
	"bytes"
	"fmt"

	"github.com/dmitrijs2005/docusigner/internal/layout"
)

// run is one laid out field ready to draw, in PDF user space.
type run struct {
	font    string
	size    float64
	r, g, b float64
	x       float64
	anchorY float64
	glyphs  []layout.Glyph
}

// draw emits one text object for the run. Each glyph gets its own text
// matrix so shaping offsets are honoured exactly: glyphs sit at
// (x + xOffset, anchorY - yOffset) and the pen advances by xAdvance.
func (r *run) draw(buf *bytes.Buffer) {
	if len(r.glyphs) == 0 {
		return
	}

	buf.WriteString("BT\n")
	fmt.Fprintf(buf, "/%s %s Tf\n", r.font, num(r.size))
	fmt.Fprintf(buf, "%s %s %s rg\n", num(r.r), num(r.g), num(r.b))

	x := r.x
	for _, g := range r.glyphs {
		fmt.Fprintf(buf, "1 0 0 1 %s %s Tm <%04X> Tj\n", num(x+g.XOffset), num(r.anchorY-g.YOffset), uint16(g.GID))
		x += g.XAdvance
	}
	buf.WriteString("ET\n")
}
