package pdfstamp

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/mattetti/filebuffer"
)

type xrefEntry struct {
	ref
	offset int64
}

// incrementalWriter appends objects to a copy of the source file and closes
// the revision with a cross-reference section of the same kind as the
// source (table or stream) that chains to the previous one through /Prev.
// The original bytes are never modified.
type incrementalWriter struct {
	doc     *document
	out     *filebuffer.Buffer
	size    int64
	next    uint32
	entries []xrefEntry
}

func newIncrementalWriter(doc *document) (*incrementalWriter, error) {
	w := &incrementalWriter{doc: doc, out: filebuffer.New([]byte{})}

	if err := w.write(doc.data); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(doc.data, []byte("\n")) {
		if err := w.write([]byte("\n")); err != nil {
			return nil, err
		}
	}

	size := doc.r.Trailer().Key("Size").Int64()
	if size <= 0 {
		size = doc.r.XrefInformation.ItemCount
	}
	if size <= 0 {
		return nil, errors.New("cannot determine object count")
	}
	w.next = uint32(size)

	return w, nil
}

func (w *incrementalWriter) write(p []byte) error {
	n, err := w.out.Write(p)
	w.size += int64(n)
	return err
}

func (w *incrementalWriter) alloc() ref {
	r := ref{id: w.next}
	w.next++
	return r
}

// writeObject writes body as object r. Rewriting an existing object keeps
// its number and generation.
func (w *incrementalWriter) writeObject(r ref, body []byte) error {
	w.entries = append(w.entries, xrefEntry{ref: r, offset: w.size})

	if err := w.write([]byte(fmt.Sprintf("%d %d obj\n", r.id, r.gen))); err != nil {
		return err
	}
	if err := w.write(body); err != nil {
		return err
	}
	return w.write([]byte("\nendobj\n"))
}

// writeStream writes a Flate compressed stream object. extra holds
// additional dictionary entries.
func (w *incrementalWriter) writeStream(r ref, extra string, data []byte) error {
	z, err := deflate(data)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Length %d /Filter /FlateDecode%s >>\nstream\n", len(z), extra)
	buf.Write(z)
	buf.WriteString("\nendstream")

	return w.writeObject(r, buf.Bytes())
}

func deflate(data []byte) ([]byte, error) {
	var b bytes.Buffer
	zw := zlib.NewWriter(&b)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// finish writes the cross-reference section and trailer and returns the
// complete file.
func (w *incrementalWriter) finish() ([]byte, error) {
	xrefStart := w.size

	var err error
	switch w.doc.r.XrefInformation.Type {
	case "stream":
		err = w.writeXrefStream(xrefStart)
	default:
		err = w.writeXrefTable(xrefStart)
	}
	if err != nil {
		return nil, fmt.Errorf("write xref: %w", err)
	}

	return w.out.Buff.Bytes(), nil
}

// subsections groups the sorted entries into runs of consecutive numbers.
func subsections(entries []xrefEntry) [][]xrefEntry {
	sorted := append([]xrefEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	var out [][]xrefEntry
	for i, e := range sorted {
		if i > 0 && e.id == sorted[i-1].id+1 {
			out[len(out)-1] = append(out[len(out)-1], e)
			continue
		}
		out = append(out, []xrefEntry{e})
	}
	return out
}

// trailerEntries are the keys shared by table trailers and xref streams.
func (w *incrementalWriter) trailerEntries(buf *bytes.Buffer) error {
	t := w.doc.r.Trailer()

	root := refOf(t.Key("Root"))
	if root.id == 0 {
		return errors.New("trailer has no Root")
	}
	fmt.Fprintf(buf, " /Size %d /Root %s", w.next, root)

	if info := t.Key("Info"); !info.IsNull() {
		if r := refOf(info); r.id != 0 {
			fmt.Fprintf(buf, " /Info %s", r)
		}
	}
	if id := t.Key("ID"); id.Len() == 2 {
		buf.WriteString(" /ID [")
		writeHexString(buf, id.Index(0).RawString())
		writeHexString(buf, id.Index(1).RawString())
		buf.WriteString("]")
	}
	fmt.Fprintf(buf, " /Prev %d", w.doc.r.XrefInformation.StartPos)
	return nil
}

func (w *incrementalWriter) writeXrefTable(start int64) error {
	var buf bytes.Buffer
	buf.WriteString("xref\n")
	for _, sub := range subsections(w.entries) {
		fmt.Fprintf(&buf, "%d %d\n", sub[0].id, len(sub))
		for _, e := range sub {
			fmt.Fprintf(&buf, "%010d %05d n\r\n", e.offset, e.gen)
		}
	}

	buf.WriteString("trailer\n<<")
	if err := w.trailerEntries(&buf); err != nil {
		return err
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", start)

	return w.write(buf.Bytes())
}

func (w *incrementalWriter) writeXrefStream(start int64) error {
	self := w.alloc()
	w.entries = append(w.entries, xrefEntry{ref: self, offset: start})

	var rows bytes.Buffer
	var index bytes.Buffer
	for _, sub := range subsections(w.entries) {
		fmt.Fprintf(&index, " %d %d", sub[0].id, len(sub))
		for _, e := range sub {
			rows.WriteByte(1)
			var off [4]byte
			binary.BigEndian.PutUint32(off[:], uint32(e.offset))
			rows.Write(off[:])
			rows.WriteByte(byte(e.gen))
		}
	}

	z, err := deflate(rows.Bytes())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /W [1 4 1] /Index [%s ]", self.id, index.String())
	if err := w.trailerEntries(&buf); err != nil {
		return err
	}
	fmt.Fprintf(&buf, " /Filter /FlateDecode /Length %d >>\nstream\n", len(z))
	buf.Write(z)
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", start)

	return w.write(buf.Bytes())
}
