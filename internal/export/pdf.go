package export

import (
	"bytes"
	"fmt"
	"strings"
)

// Minimal PDF generation: one embedded Type1 Helvetica font, A4 pages, one
// text line per show-text operator. The output carries a correct xref table
// and trailer, so any conforming reader can open it.

const (
	pdfPageWidth  = 595 // A4 in points
	pdfPageHeight = 842
	pdfMargin     = 72
	pdfFontSize   = 11
	pdfLeading    = 14
)

// buildPDF lays the given lines out onto as many pages as needed and returns
// the serialized document.
func buildPDF(lines []string) []byte {
	pages := paginate(lines, (pdfPageHeight-2*pdfMargin)/pdfLeading)

	// Object numbering is fixed up front: 1 catalog, 2 page tree, 3 font,
	// then a page/content pair per page.
	numPages := len(pages)
	pageObj := func(i int) int { return 4 + 2*i }
	contentObj := func(i int) int { return 5 + 2*i }
	total := 3 + 2*numPages

	bodies := make([]string, total+1)

	kids := make([]string, numPages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}

	bodies[1] = "<< /Type /Catalog /Pages 2 0 R >>"
	bodies[2] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), numPages)
	bodies[3] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

	for i, pageLines := range pages {
		bodies[pageObj(i)] = fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			pdfPageWidth, pdfPageHeight, contentObj(i))

		stream := contentStream(pageLines)
		bodies[contentObj(i)] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream",
			len(stream), stream)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, total+1)
	for n := 1; n <= total; n++ {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, bodies[n])
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", total+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= total; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		total+1, xrefOffset)

	return buf.Bytes()
}

func contentStream(lines []string) string {
	var b strings.Builder
	b.WriteString("BT\n")
	fmt.Fprintf(&b, "/F1 %d Tf\n", pdfFontSize)
	fmt.Fprintf(&b, "%d TL\n", pdfLeading)
	fmt.Fprintf(&b, "%d %d Td\n", pdfMargin, pdfPageHeight-pdfMargin)
	for _, line := range lines {
		fmt.Fprintf(&b, "(%s) Tj\nT*\n", escapePDFText(line))
	}
	b.WriteString("ET")
	return b.String()
}

func paginate(lines []string, perPage int) [][]string {
	if len(lines) == 0 {
		return [][]string{{}}
	}
	var pages [][]string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}

// escapePDFText escapes string delimiters and drops characters the standard
// Helvetica encoding cannot represent.
func escapePDFText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r >= 32 && r < 127:
			b.WriteRune(r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
