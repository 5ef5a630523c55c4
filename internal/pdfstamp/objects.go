package pdfstamp

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/digitorus/pdf"
)

type ref struct {
	id  uint32
	gen uint16
}

func (r ref) String() string {
	return fmt.Sprintf("%d %d R", r.id, r.gen)
}

func refOf(v pdf.Value) ref {
	p := v.GetPtr()
	return ref{id: p.GetID(), gen: p.GetGen()}
}

// num formats a coordinate or size with at most four decimals.
func num(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	r := math.Round(f*1e4) / 1e4
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func isRegularNameChar(c byte) bool {
	if c < '!' || c > '~' {
		return false
	}
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%', '#':
		return false
	}
	return true
}

func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isRegularNameChar(c) {
			buf.WriteByte(c)
		} else {
			fmt.Fprintf(buf, "#%02X", c)
		}
	}
}

func writeHexString(buf *bytes.Buffer, s string) {
	buf.WriteByte('<')
	buf.WriteString(hex.EncodeToString([]byte(s)))
	buf.WriteByte('>')
}

// writeValue serializes v. owner is the object number of the indirect
// object v was read from: a value whose pointer differs from owner was
// reached through a reference and is written as one.
func writeValue(buf *bytes.Buffer, v pdf.Value, owner uint32) {
	if r := refOf(v); r.id != 0 && r.id != owner {
		buf.WriteString(r.String())
		return
	}

	switch v.Kind() {
	case pdf.Null:
		buf.WriteString("null")
	case pdf.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case pdf.Integer:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case pdf.Real:
		buf.WriteString(num(v.Float64()))
	case pdf.String:
		writeHexString(buf, v.RawString())
	case pdf.Name:
		writeName(buf, v.Name())
	case pdf.Array:
		buf.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeValue(buf, v.Index(i), owner)
		}
		buf.WriteByte(']')
	case pdf.Dict:
		writeDict(buf, v, owner, nil)
	default:
		// A direct stream cannot occur in a valid file.
		buf.WriteString("null")
	}
}

func writeDict(buf *bytes.Buffer, v pdf.Value, owner uint32, skip map[string]bool) {
	buf.WriteString("<<")
	writeEntries(buf, v, owner, skip)
	buf.WriteString(" >>")
}

// writeEntries serializes the entries of a dictionary, skipping the keys
// in skip.
func writeEntries(buf *bytes.Buffer, v pdf.Value, owner uint32, skip map[string]bool) {
	for _, k := range v.Keys() {
		if skip[k] {
			continue
		}
		buf.WriteByte(' ')
		writeName(buf, k)
		buf.WriteByte(' ')
		writeValue(buf, v.Key(k), owner)
	}
}
