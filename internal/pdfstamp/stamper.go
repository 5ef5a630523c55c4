// Package pdfstamp burns text placements onto the pages of an existing
// PDF. Glyphs come from the layout engine and are drawn one by one with an
// embedded copy of the face they were shaped with. Output is written as an
// incremental update: the source bytes are kept verbatim and the changed
// pages, new content streams and fonts are appended after them.
package pdfstamp

import (
	"bytes"
	"fmt"
	"math"

	"github.com/digitorus/pdf"
	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/fonts"
	"github.com/dmitrijs2005/docusigner/internal/layout"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"seehuhn.de/go/sfnt/glyph"
)

// fontResourcePrefix names the font resources added to pages.
const fontResourcePrefix = "DSF"

// Stamper is safe for concurrent use; all per-document state lives in
// the call to Stamp.
type Stamper struct {
	fonts *fonts.Registry
}

func NewStamper(reg *fonts.Registry) *Stamper {
	return &Stamper{fonts: reg}
}

// pageJob collects everything drawn on one page.
type pageJob struct {
	page      pdf.Value
	height    float64
	fontNames map[*embeddedFont]string
	fontOrder []*embeddedFont
	taken     map[string]bool
	content   bytes.Buffer
}

func newPageJob(page pdf.Value) *pageJob {
	_, h := pageSize(page)
	job := &pageJob{page: page, height: h, fontNames: map[*embeddedFont]string{}, taken: map[string]bool{}}
	for _, k := range inherited(page, "Resources").Key("Font").Keys() {
		job.taken[k] = true
	}
	return job
}

// fontName returns the page resource name bound to f, choosing a name not
// already used by the page.
func (j *pageJob) fontName(f *embeddedFont) string {
	if n, ok := j.fontNames[f]; ok {
		return n
	}
	for i := 1; ; i++ {
		n := fmt.Sprintf("%s%d", fontResourcePrefix, i)
		if !j.taken[n] {
			j.taken[n] = true
			j.fontNames[f] = n
			j.fontOrder = append(j.fontOrder, f)
			return n
		}
	}
}

// ValidateFields checks placements against a document with pages pages.
func ValidateFields(fields []models.Field, pages int) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields", common.ErrInvalidInput)
	}
	for i, f := range fields {
		if !finiteNonNegative(f.X) || !finiteNonNegative(f.Y) {
			return fmt.Errorf("%w: field %d: coordinates must be finite and non-negative", common.ErrInvalidInput, i)
		}
		if f.Page < 1 || f.Page > pages {
			return renderErr(i, "page %d out of range (1-%d)", f.Page, pages)
		}
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Stamp draws fields onto src in order and returns the new file. Fields
// later in the slice are drawn on top of earlier ones. Either every field
// is stamped or an error is returned and nothing is produced.
func (s *Stamper) Stamp(src []byte, fields []models.Field) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, renderErr(-1, "corrupt pdf: %v", p)
		}
	}()

	doc, err := open(src)
	if err != nil {
		return nil, err
	}
	if err := ValidateFields(fields, doc.numPage()); err != nil {
		return nil, err
	}

	w, err := newIncrementalWriter(doc)
	if err != nil {
		return nil, renderErr(-1, "%w", err)
	}

	var (
		order    []int
		jobs     = map[int]*pageJob{}
		embedded = map[*fonts.Face]*embeddedFont{}
		fontList []*embeddedFont
	)

	for i, f := range fields {
		job, ok := jobs[f.Page]
		if !ok {
			page, err := doc.page(f.Page)
			if err != nil {
				return nil, renderErr(i, "%w", err)
			}
			job = newPageJob(page)
			jobs[f.Page] = job
			order = append(order, f.Page)
		}

		face, err := s.fonts.Lookup(f.Style())
		if err != nil {
			return nil, renderErr(i, "%w", err)
		}
		ef, ok := embedded[face]
		if !ok {
			ef = &embeddedFont{face: face, ref: w.alloc(), used: map[glyph.ID]string{}}
			embedded[face] = ef
			fontList = append(fontList, ef)
		}

		size := f.EffectiveFontSize()
		glyphs := layout.Layout(face, f.Content, size)
		for _, g := range glyphs {
			ef.use(g.GID, g.Text)
		}

		r, g, b := f.Color.RGB()
		rn := run{
			font:    job.fontName(ef),
			size:    size,
			r:       r,
			g:       g,
			b:       b,
			x:       f.X,
			anchorY: job.height - f.Y,
			glyphs:  glyphs,
		}
		rn.draw(&job.content)
	}

	save := w.alloc()
	if err := w.writeStream(save, "", []byte("q\n")); err != nil {
		return nil, renderErr(-1, "%w", err)
	}

	for _, n := range order {
		if err := s.writePage(w, jobs[n], save); err != nil {
			return nil, renderErr(-1, "page %d: %w", n, err)
		}
	}

	for _, ef := range fontList {
		if err := ef.embed(w); err != nil {
			return nil, renderErr(-1, "embed font %s: %w", ef.face.Name, err)
		}
	}

	out, err = w.finish()
	if err != nil {
		return nil, renderErr(-1, "%w", err)
	}
	return out, nil
}

// writePage appends the overlay stream and rewrites the page object so its
// content is wrapped as [q, original..., Q overlay] and its resources
// carry the added fonts.
func (s *Stamper) writePage(w *incrementalWriter, job *pageJob, save ref) error {
	overlay := w.alloc()
	data := append([]byte("Q\nq\n"), job.content.Bytes()...)
	data = append(data, "Q\n"...)
	if err := w.writeStream(overlay, "", data); err != nil {
		return err
	}

	page := job.page
	self := refOf(page)

	var buf bytes.Buffer
	buf.WriteString("<<")
	writeEntries(&buf, page, self.id, map[string]bool{"Contents": true, "Resources": true})

	buf.WriteString(" /Contents [")
	buf.WriteString(save.String())
	contents := page.Key("Contents")
	switch contents.Kind() {
	case pdf.Stream:
		buf.WriteString(" " + refOf(contents).String())
	case pdf.Array:
		owner := refOf(contents).id
		for i := 0; i < contents.Len(); i++ {
			c := contents.Index(i)
			if c.IsNull() {
				continue
			}
			buf.WriteByte(' ')
			writeValue(&buf, c, owner)
		}
	}
	buf.WriteString(" " + overlay.String() + "]")

	res := inherited(page, "Resources")
	resOwner := refOf(res).id
	buf.WriteString(" /Resources <<")
	if res.Kind() == pdf.Dict {
		writeEntries(&buf, res, resOwner, map[string]bool{"Font": true})
	}
	buf.WriteString(" /Font <<")
	existing := res.Key("Font")
	if existing.Kind() == pdf.Dict {
		writeEntries(&buf, existing, refOf(existing).id, nil)
	}
	for _, ef := range job.fontOrder {
		fmt.Fprintf(&buf, " /%s %s", job.fontNames[ef], ef.ref)
	}
	buf.WriteString(" >> >> >>")

	return w.writeObject(self, buf.Bytes())
}
