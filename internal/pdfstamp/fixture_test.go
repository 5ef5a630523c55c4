package pdfstamp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const helloContent = "BT /F1 12 Tf 72 720 Td (Hello) Tj ET"

// fixtureObjects is a two page document. Page 1 inherits MediaBox and
// Resources from the page tree; page 2 carries its own and already uses
// the resource name DSF1.
func fixtureObjects() []string {
	return []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 5 0 R] /Count 2 /MediaBox [0 0 612 792] /Resources << /Font << /F1 6 0 R >> >> >>",
		"<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(helloContent), helloContent),
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 400] /Contents [4 0 R] /Resources << /Font << /DSF1 6 0 R >> >> >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		"<< /Producer (fixture) >>",
	}
}

func writeBody(buf *bytes.Buffer, objs []string) []int {
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	return offsets
}

// tablePDF builds the fixture with a classic cross-reference table.
func tablePDF() []byte {
	objs := fixtureObjects()
	var buf bytes.Buffer
	offsets := writeBody(&buf, objs)

	start := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 7 0 R /ID [<0102> <0304>] >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, start)
	return buf.Bytes()
}

// streamPDF builds the fixture with an uncompressed cross-reference stream.
func streamPDF() []byte {
	objs := fixtureObjects()
	var buf bytes.Buffer
	offsets := writeBody(&buf, objs)

	self := len(objs) + 1
	start := buf.Len()

	var rows bytes.Buffer
	row := func(typ byte, off int, gen byte) {
		rows.WriteByte(typ)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(off))
		rows.Write(b[:])
		rows.WriteByte(gen)
	}
	row(0, 0, 255)
	for _, off := range offsets {
		row(1, off, 0)
	}
	row(1, start, 0)

	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 1] /Index [0 %d] /Root 1 0 R /Info 7 0 R /Length %d >>\nstream\n",
		self, self+1, self+1, rows.Len())
	buf.Write(rows.Bytes())
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", start)
	return buf.Bytes()
}
