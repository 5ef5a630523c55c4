package pdfstamp

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dmitrijs2005/docusigner/internal/fonts"
	"golang.org/x/text/encoding/unicode"
	"seehuhn.de/go/sfnt/glyph"
)

// embeddedFont is a face embedded whole as a composite (Type0) font with
// Identity-H encoding, so content streams address glyphs by glyph id.
type embeddedFont struct {
	face *fonts.Face
	ref  ref
	used map[glyph.ID]string
}

func (f *embeddedFont) use(gid glyph.ID, text string) {
	if _, ok := f.used[gid]; !ok || f.used[gid] == "" {
		f.used[gid] = text
	}
}

func (f *embeddedFont) baseFont() string {
	name := strings.Map(func(r rune) rune {
		if r > ' ' && r < 0x7f && isRegularNameChar(byte(r)) {
			return r
		}
		return -1
	}, f.face.Info.PostScriptName())
	if name == "" {
		name = "DocuSignerFont"
	}
	return name
}

// pdfUnits converts design units to glyph space (1000 per em).
func (f *embeddedFont) pdfUnits(v float64) float64 {
	return math.Round(v * 1000 / f.face.UnitsPerEm())
}

func (f *embeddedFont) usedGIDs() []glyph.ID {
	gids := make([]glyph.ID, 0, len(f.used))
	for gid := range f.used {
		gids = append(gids, gid)
	}
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })
	return gids
}

// embed writes the font program, descriptor, CID font, ToUnicode map and
// the Type0 font itself.
func (f *embeddedFont) embed(w *incrementalWriter) error {
	info := f.face.Info
	isGlyf := info.IsGlyf()
	name := f.baseFont()

	fileRef := w.alloc()
	descRef := w.alloc()
	cidRef := w.alloc()
	toUniRef := w.alloc()

	extra := fmt.Sprintf(" /Length1 %d", len(f.face.Data))
	fileKey := "FontFile2"
	if !isGlyf {
		extra = " /Subtype /OpenType"
		fileKey = "FontFile3"
	}
	if err := w.writeStream(fileRef, extra, f.face.Data); err != nil {
		return err
	}

	ascent := f.pdfUnits(float64(info.Ascent))
	descent := f.pdfUnits(float64(info.Descent))
	var desc bytes.Buffer
	desc.WriteString("<< /Type /FontDescriptor /FontName ")
	writeName(&desc, name)
	fmt.Fprintf(&desc, " /Flags 4 /FontBBox [0 %s 1000 %s] /ItalicAngle 0 /Ascent %s /Descent %s /CapHeight %s /StemV 80 /%s %s >>",
		num(descent), num(ascent), num(ascent), num(descent), num(ascent), fileKey, fileRef)
	if err := w.writeObject(descRef, desc.Bytes()); err != nil {
		return err
	}

	subtype := "CIDFontType2"
	if !isGlyf {
		subtype = "CIDFontType0"
	}
	var cid bytes.Buffer
	fmt.Fprintf(&cid, "<< /Type /Font /Subtype /%s /BaseFont ", subtype)
	writeName(&cid, name)
	fmt.Fprintf(&cid, " /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor %s", descRef)
	fmt.Fprintf(&cid, " /DW %s /W [", num(f.pdfUnits(f.face.GlyphWidth(0))))
	for _, gid := range f.usedGIDs() {
		fmt.Fprintf(&cid, " %d [%s]", gid, num(f.pdfUnits(f.face.GlyphWidth(gid))))
	}
	cid.WriteString(" ]")
	if isGlyf {
		cid.WriteString(" /CIDToGIDMap /Identity")
	}
	cid.WriteString(" >>")
	if err := w.writeObject(cidRef, cid.Bytes()); err != nil {
		return err
	}

	cmap, err := f.toUnicode()
	if err != nil {
		return err
	}
	if err := w.writeStream(toUniRef, "", cmap); err != nil {
		return err
	}

	var t0 bytes.Buffer
	t0.WriteString("<< /Type /Font /Subtype /Type0 /BaseFont ")
	writeName(&t0, name)
	fmt.Fprintf(&t0, " /Encoding /Identity-H /DescendantFonts [%s] /ToUnicode %s >>", cidRef, toUniRef)
	return w.writeObject(f.ref, t0.Bytes())
}

const (
	cmapHeader = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
`
	cmapFooter = `endcmap
CMapName currentdict /CIDInit /ProcSet findresource exch defineresource pop
end
end
`
	bfcharChunk = 100
)

// toUnicode maps every used glyph back to the characters it was shaped
// from, so the stamped text can be extracted and searched.
func (f *embeddedFont) toUnicode() ([]byte, error) {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()

	type pair struct {
		gid  glyph.ID
		utf8 string
	}
	var pairs []pair
	for _, gid := range f.usedGIDs() {
		if t := f.used[gid]; t != "" {
			pairs = append(pairs, pair{gid, t})
		}
	}

	var buf bytes.Buffer
	buf.WriteString(cmapHeader)
	for start := 0; start < len(pairs); start += bfcharChunk {
		end := min(start+bfcharChunk, len(pairs))
		fmt.Fprintf(&buf, "%d beginbfchar\n", end-start)
		for _, p := range pairs[start:end] {
			u16, err := enc.Bytes([]byte(p.utf8))
			if err != nil {
				return nil, fmt.Errorf("encode %q: %w", p.utf8, err)
			}
			fmt.Fprintf(&buf, "<%04X> <%s>\n", uint16(p.gid), strings.ToUpper(hex.EncodeToString(u16)))
		}
		buf.WriteString("endbfchar\n")
	}
	buf.WriteString(cmapFooter)

	return buf.Bytes(), nil
}
