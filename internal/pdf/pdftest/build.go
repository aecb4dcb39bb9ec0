// Package pdftest builds minimal text PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Build returns a valid PDF with one Helvetica text line per page
func Build(pages ...string) []byte {
	if len(pages) == 0 {
		pages = []string{""}
	}
	streams := make([]string, 0, len(pages))
	for _, text := range pages {
		streams = append(streams, fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escape(text)))
	}
	return BuildStreams(streams...)
}

// BuildLines returns a one-page PDF laying out lines top to bottom with
// relative Td moves, the way most generators emit running text
func BuildLines(lines ...string) []byte {
	var b strings.Builder
	b.WriteString("BT /F1 12 Tf 72 720 Td")
	for i, line := range lines {
		if i > 0 {
			b.WriteString(" 0 -14 Td")
		}
		fmt.Fprintf(&b, " (%s) Tj", escape(line))
	}
	b.WriteString(" ET")
	return BuildStreams(b.String())
}

// BuildStreams returns a valid PDF with one page per raw content stream.
// Font /F1 (Helvetica) is available on every page.
func BuildStreams(streams ...string) []byte {
	if len(streams) == 0 {
		streams = []string{""}
	}

	var objects []string
	kids := make([]string, 0, len(streams))
	for i := range streams {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(streams)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, stream := range streams {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
