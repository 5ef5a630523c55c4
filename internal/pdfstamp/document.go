package pdfstamp

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/digitorus/pdf"
)

// Default page size (US Letter) for pages with no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// document is a parsed source PDF. It is scoped to one stamping call.
type document struct {
	data []byte
	r    *pdf.Reader
}

// Inspect reports the page count of a PDF, failing when the bytes do not
// parse or the document has no pages.
func Inspect(data []byte) (pages int, err error) {
	doc, err := open(data)
	if err != nil {
		return 0, err
	}
	return doc.r.NumPage(), nil
}

func open(data []byte) (doc *document, err error) {
	// The reader panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, renderErr(-1, "corrupt pdf: %v", p)
		}
	}()

	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\n\f\r "), []byte("%PDF-")) {
		return nil, renderErr(-1, "not a pdf")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, renderErr(-1, "corrupt pdf: %w", err)
	}
	if !r.Trailer().Key("Encrypt").IsNull() {
		return nil, renderErr(-1, "encrypted documents are not supported")
	}
	if r.NumPage() < 1 {
		return nil, renderErr(-1, "document has no pages")
	}

	return &document{data: data, r: r}, nil
}

func (d *document) numPage() int {
	return d.r.NumPage()
}

// page returns the page dictionary for a 1-based page number.
func (d *document) page(n int) (pdf.Value, error) {
	if n < 1 || n > d.r.NumPage() {
		return pdf.Value{}, fmt.Errorf("page %d out of range (1-%d)", n, d.r.NumPage())
	}
	v := d.r.Page(n).V
	ptr := v.GetPtr()
	if v.IsNull() || ptr.GetID() == 0 {
		return pdf.Value{}, errors.New("page object not found")
	}
	return v, nil
}

// inherited looks key up on the page and then up the Parent chain.
func inherited(page pdf.Value, key string) pdf.Value {
	for v, depth := page, 0; !v.IsNull() && depth < 64; v, depth = v.Key("Parent"), depth+1 {
		if x := v.Key(key); !x.IsNull() {
			return x
		}
	}
	return pdf.Value{}
}

// pageSize returns width and height from the (possibly inherited) MediaBox.
func pageSize(page pdf.Value) (w, h float64) {
	box := inherited(page, "MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return defaultPageWidth, defaultPageHeight
	}
	w = box.Index(2).Float64() - box.Index(0).Float64()
	h = box.Index(3).Float64() - box.Index(1).Float64()
	if w <= 0 || h <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return w, h
}
