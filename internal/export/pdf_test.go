package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode"
)

var generated = time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC)

// pdfText is s as it appears in an uncompressed content stream drawn with a
// UTF-8 font: UTF-16BE with string delimiters escaped.
func pdfText(s string) string {
	var b []byte
	for _, r := range s {
		b = append(b, byte(r>>8), byte(r))
	}
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`).Replace(string(b))
}

func TestWritePDF_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	doc := PDFDocument{
		Title:        "Invoices Report",
		Columns:      []string{"Invoice ID", "Patient", "Total"},
		GeneratedAt:  generated,
		Uncompressed: true,
	}
	if err := WritePDF(&buf, doc); err != nil {
		t.Fatalf("WritePDF() error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "%PDF-") {
		t.Fatalf("expected PDF header, got %q", out[:min(len(out), 16)])
	}
	if !strings.Contains(out, pdfText("Invoices Report")) {
		t.Error("expected title in document")
	}
	if !strings.Contains(out, pdfText("Generated on: Mar 1, 2024 2:05 PM")) {
		t.Error("expected generation timestamp in document")
	}
	if !strings.Contains(out, pdfText("Invoice ID")) {
		t.Error("expected table header in document")
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "%%EOF") {
		t.Error("expected PDF trailer")
	}
}

func TestRenderPDF_Orientation(t *testing.T) {
	narrow, err := renderPDF(PDFDocument{Title: "t", Columns: []string{"A", "B"}, GeneratedAt: generated})
	if err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
	if w, h := narrow.GetPageSize(); w > h {
		t.Errorf("expected portrait for 2 columns, got %vx%v", w, h)
	}

	wide, err := renderPDF(PDFDocument{Title: "t", Columns: []string{"A", "B", "C", "D", "E", "F"}, GeneratedAt: generated})
	if err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
	if w, h := wide.GetPageSize(); w < h {
		t.Errorf("expected landscape for 6 columns, got %vx%v", w, h)
	}
}

func TestRenderPDF_Paginates(t *testing.T) {
	rows := make([][]string, 200)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i + 1), "Patient name", "Rs. 1,000.00"}
	}
	pdf, err := renderPDF(PDFDocument{Title: "Long", Columns: []string{"#", "Patient", "Amount"}, Rows: rows, GeneratedAt: generated})
	if err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
	if pdf.PageCount() < 2 {
		t.Errorf("expected multiple pages, got %d", pdf.PageCount())
	}
}

func TestRenderPDF_LongCells(t *testing.T) {
	long := strings.Repeat("consultation notes ", 40)
	rows := [][]string{
		{"1", long, "Rs. 5.00"},
		{"2", strings.Repeat("x", 300), "Rs. 5.00"},
	}
	if _, err := renderPDF(PDFDocument{Title: "Notes", Columns: []string{"ID", "Details", "Other"}, Rows: rows, GeneratedAt: generated}); err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
}

func TestRenderPDF_RowTallerThanPage(t *testing.T) {
	rows := [][]string{
		{"1", strings.Repeat("word ", 3000)},
		{"2", "after"},
	}
	var buf bytes.Buffer
	pdf, err := renderPDF(PDFDocument{Title: "Notes", Columns: []string{"ID", "Details"}, Rows: rows, GeneratedAt: generated, Uncompressed: true})
	if err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
	_, pageH := pdf.GetPageSize()
	if y := pdf.GetY(); y > pageH-pdfMargin {
		t.Errorf("table ends at y=%.1f, below the bottom margin %.1f", y, pageH-pdfMargin)
	}
	if pdf.PageCount() < 2 {
		t.Errorf("expected the row to span several pages, got %d", pdf.PageCount())
	}
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	out := buf.String()
	if got := strings.Count(out, pdfText("word")); got != 3000 {
		t.Errorf("expected every word drawn once, got %d", got)
	}
	if !strings.Contains(out, pdfText("after")) {
		t.Error("expected the following row to be drawn")
	}
}

func TestTableWriter_MovesHeaderWithFirstRow(t *testing.T) {
	pdf, err := renderPDF(PDFDocument{Title: "t", GeneratedAt: generated})
	if err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
	tw := &tableWriter{pdf: pdf, fonts: newFontSet(nil), columns: []string{"Notes"}}
	tw.layout(nil)
	tw.setStyle("B", pdfFontSize)
	headerH := blockHeight(lineCount(tw.wrap(tw.columns)))

	// the header fits at the foot of page 1 but no row line fits under it
	pdf.SetY(tw.bottom() - headerH - pdfLineHeight)
	tw.begin([][]string{{"first"}})
	if pdf.PageCount() != 2 {
		t.Fatalf("expected header on page 2, got %d pages", pdf.PageCount())
	}
	if y, want := pdf.GetY(), pdfMargin+headerH; y-want > 0.01 || want-y > 0.01 {
		t.Errorf("expected header at the top of page 2, y=%.2f want %.2f", y, want)
	}
}

func TestTableWriter_FirstRowStartsUnderHeader(t *testing.T) {
	pdf, err := renderPDF(PDFDocument{Title: "t", GeneratedAt: generated})
	if err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
	tw := &tableWriter{pdf: pdf, fonts: newFontSet(nil), columns: []string{"Notes"}}
	tw.layout(nil)
	tw.setStyle("B", pdfFontSize)
	headerH := blockHeight(lineCount(tw.wrap(tw.columns)))

	// room for two of the row's six lines under the header on page 1
	pdf.SetY(tw.bottom() - 2*pdfCellPad - 2.5*pdfLineHeight - headerH)
	tw.begin([][]string{{"x"}})
	if pdf.PageCount() != 1 {
		t.Fatalf("expected header on page 1, got %d pages", pdf.PageCount())
	}
	tw.row([]string{"a\nb\nc\nd\ne\nf"}, false)

	if pdf.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", pdf.PageCount())
	}
	// four lines remain for page 2, so two were drawn under the header on page 1
	if y, want := pdf.GetY(), pdfMargin+headerH+blockHeight(4); y-want > 0.01 || want-y > 0.01 {
		t.Errorf("expected the row to continue on page 2, y=%.2f want %.2f", y, want)
	}
}

func TestTableWriter_LongTitleStaysOnPage(t *testing.T) {
	pdf, err := renderPDF(PDFDocument{Title: strings.Repeat("Quarterly ", 600), Columns: []string{"A"}, GeneratedAt: generated})
	if err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
	_, pageH := pdf.GetPageSize()
	if pdf.PageCount() < 2 || pdf.GetY() > pageH-pdfMargin {
		t.Errorf("expected title to wrap onto more pages, got %d pages ending at y=%.1f", pdf.PageCount(), pdf.GetY())
	}
}

func TestRenderPDF_NonLatinText(t *testing.T) {
	cells := []string{"Łódź", "Иван Петров", "Ελλάδα", "Škoda Ćevapi"}
	var buf bytes.Buffer
	err := WritePDF(&buf, PDFDocument{
		Title:        "Patients",
		Columns:      []string{"City", "Name", "Country", "Notes"},
		Rows:         [][]string{cells},
		GeneratedAt:  generated,
		Uncompressed: true,
	})
	if err != nil {
		t.Fatalf("WritePDF() error: %v", err)
	}
	out := buf.String()
	for _, c := range cells {
		if !strings.Contains(out, pdfText(c)) {
			t.Errorf("expected %q in document", c)
		}
	}
}

func TestRenderPDF_MissingGlyphs(t *testing.T) {
	rows := [][]string{{"1", "ශ්‍රී ලංකා"}, {"2", "தமிழ்"}}
	_, err := renderPDF(PDFDocument{Title: "Patients", Columns: []string{"ID", "Name"}, Rows: rows, GeneratedAt: generated})
	if !errors.Is(err, ErrMissingGlyphs) {
		t.Fatalf("expected ErrMissingGlyphs, got %v", err)
	}
	if !strings.Contains(err.Error(), "U+0BA4") || !strings.Contains(err.Error(), "EXPORT_PDF_FONTS") {
		t.Errorf("expected missing runes and a hint in %q", err)
	}
}

func TestFontSet_FallsBackPerWord(t *testing.T) {
	latin := &Font{Name: "latin", hasRune: func(r rune) bool { return r < 0x250 }}
	sinhala := &Font{Name: "sinhala", hasRune: func(r rune) bool { return unicode.Is(unicode.Sinhala, r) }}
	set := newFontSet([]*Font{latin, sinhala})

	if got := set.pick("Colombo"); got != 0 {
		t.Errorf("pick(Colombo) = %d, want 0", got)
	}
	if got := set.pick("ශ්‍රී"); got != 1 {
		t.Errorf("pick(Sinhala) = %d, want 1", got)
	}
	if err := set.err(); err != nil {
		t.Errorf("expected full coverage, got %v", err)
	}

	if set.fonts[0].Covers('\U0001F600') {
		t.Error("runes outside the BMP cannot be drawn")
	}

	if got := set.pick("Colomboශ"); got != 0 {
		t.Errorf("mixed word should use the closest font, got %d", got)
	}
	if err := set.err(); err == nil {
		t.Error("expected a word no single font covers to be reported")
	}
}

func TestTableWriter_ColumnWidthsFillPage(t *testing.T) {
	pdf, err := renderPDF(PDFDocument{Title: "t", GeneratedAt: generated})
	if err != nil {
		t.Fatalf("renderPDF() error: %v", err)
	}
	tw := &tableWriter{pdf: pdf, fonts: newFontSet(nil), columns: []string{"ID", "Details"}}
	tw.layout([][]string{{"1", strings.Repeat("very long text ", 50)}})

	pageW, _ := pdf.GetPageSize()
	usable := pageW - 2*pdfMargin
	var sum float64
	for _, w := range tw.widths {
		sum += w
	}
	if diff := sum - usable; diff > 0.01 || diff < -0.01 {
		t.Errorf("expected widths to sum to %.2f, got %.2f", usable, sum)
	}
}
