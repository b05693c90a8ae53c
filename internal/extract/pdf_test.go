package extract

import (
	"bytes"
	"fmt"
	"testing"
)

// buildPDF assembles a minimal but structurally valid PDF with the given
// number of empty pages, computing xref offsets from the actual buffer.
func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()
	var buf bytes.Buffer
	offsets := make([]int, 0, pages+2)

	write := func(s string) {
		buf.WriteString(s)
	}
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		write(body)
	}

	write("%PDF-1.4\n")
	object("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	object(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", kids, pages))
	for i := 0; i < pages; i++ {
		object(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n", 3+i))
	}

	xrefStart := buf.Len()
	write(fmt.Sprintf("xref\n0 %d\n", len(offsets)+1))
	write("0000000000 65535 f \n")
	for _, off := range offsets {
		write(fmt.Sprintf("%010d 00000 n \n", off))
	}
	write(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefStart))
	return buf.Bytes()
}

func TestPDFPageCount(t *testing.T) {
	raw := buildPDF(t, 3)
	e := NewPDF()
	pages, err := e.PageCount(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if pages != 3 {
		t.Fatalf("pages = %d, want 3", pages)
	}
}

func TestPDFPageCountRejectsGarbage(t *testing.T) {
	raw := []byte("this is definitely not a pdf file")
	e := NewPDF()
	if _, err := e.PageCount(bytes.NewReader(raw), int64(len(raw))); err == nil {
		t.Fatalf("expected garbage input to fail")
	}
}

func TestPDFTextRejectsGarbage(t *testing.T) {
	raw := []byte{0x00, 0x01, 0x02, 0x03}
	e := NewPDF()
	if _, err := e.Text(bytes.NewReader(raw), int64(len(raw))); err == nil {
		t.Fatalf("expected garbage input to fail")
	}
}

func TestPDFTextEmptyDocumentIsAnError(t *testing.T) {
	// Pages exist but carry no content streams, so no text comes back.
	raw := buildPDF(t, 2)
	e := NewPDF()
	if _, err := e.Text(bytes.NewReader(raw), int64(len(raw))); err == nil {
		t.Fatalf("expected text extraction on empty pages to fail")
	}
}

func TestNormalizeTextCollapsesBlankLines(t *testing.T) {
	in := "first line\r\n\r\n  second line  \n\n\nthird"
	want := "first line\nsecond line\nthird"
	if got := normalizeText(in); got != want {
		t.Fatalf("normalizeText = %q, want %q", got, want)
	}
}
