package export

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
)

// PDFDocument is everything rendered into a table report.
type PDFDocument struct {
	Title       string
	Columns     []string
	Rows        [][]string
	GeneratedAt time.Time
	// Fonts are tried in order for each word; nil means DefaultFont.
	Fonts []*Font
	// Uncompressed leaves page streams readable; used by tests and debugging.
	Uncompressed bool
}

const (
	pdfMargin     = 12.0
	pdfFontSize   = 9.0
	pdfLineHeight = 4.6
	pdfCellPad    = 1.6
)

var (
	headerFill = [3]int{41, 128, 185}
	stripeFill = [3]int{245, 245, 245}
	gridColor  = [3]int{200, 200, 200}
)

// WritePDF renders doc as a paginated table report and writes it to w.
func WritePDF(w io.Writer, doc PDFDocument) error {
	pdf, err := renderPDF(doc)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	return nil
}

func renderPDF(doc PDFDocument) (*fpdf.Fpdf, error) {
	orientation := "P"
	if len(doc.Columns) > 5 {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetCompression(!doc.Uncompressed)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetCreator("catms-export", false)
	pdf.SetTitle(doc.Title, true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)

	fonts := newFontSet(doc.Fonts)
	for i, f := range fonts.fonts {
		pdf.AddUTF8FontFromBytes(fonts.family(i), "", f.regular)
		pdf.AddUTF8FontFromBytes(fonts.family(i), "B", f.bold)
	}
	pdf.AddPage()

	t := &tableWriter{pdf: pdf, fonts: fonts, columns: doc.Columns}
	pageW, _ := pdf.GetPageSize()
	usable := pageW - 2*pdfMargin

	pdf.SetTextColor(33, 37, 41)
	t.setStyle("B", 16)
	t.paragraph(doc.Title, usable, 7)
	pdf.SetTextColor(90, 90, 90)
	t.setStyle("", 10)
	t.paragraph("Generated on: "+doc.GeneratedAt.Format("Jan 2, 2006 3:04 PM"), usable, 6)
	pdf.Ln(3)

	if len(doc.Columns) > 0 {
		t.layout(doc.Rows)
		t.begin(doc.Rows)
		for i, row := range doc.Rows {
			t.row(row, i%2 == 1)
		}
	}

	if err := fonts.err(); err != nil {
		return nil, err
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf render: %w", err)
	}
	return pdf, nil
}

// span is a run of text drawn with one font.
type span struct {
	text string
	font int
}

type textLine []span

type tableWriter struct {
	pdf     *fpdf.Fpdf
	fonts   *fontSet
	columns []string
	widths  []float64

	style string
	size  float64

	headerH    float64
	rowsOnPage int
}

func (t *tableWriter) setStyle(style string, size float64) {
	t.style, t.size = style, size
}

func (t *tableWriter) measure(s string, font int) float64 {
	t.pdf.SetFont(t.fonts.family(font), t.style, t.size)
	return t.pdf.GetStringWidth(s)
}

// layout sizes columns in proportion to their widest content, capped so one
// long free-text column cannot starve the others.
func (t *tableWriter) layout(rows [][]string) {
	pageW, _ := t.pdf.GetPageSize()
	usable := pageW - 2*pdfMargin
	limit := usable * 0.35
	pad := 2 * t.pdf.GetCellMargin()

	natural := make([]float64, len(t.columns))
	t.setStyle("B", pdfFontSize)
	for i, c := range t.columns {
		natural[i] = t.lineWidth(c) + pad
	}
	t.setStyle("", pdfFontSize)
	for _, row := range rows {
		for i := range t.columns {
			if i >= len(row) {
				break
			}
			if w := t.lineWidth(row[i]) + pad; w > natural[i] {
				natural[i] = w
			}
		}
	}

	var sum float64
	for i := range natural {
		if natural[i] > limit {
			natural[i] = limit
		}
		sum += natural[i]
	}
	t.widths = make([]float64, len(natural))
	for i := range natural {
		t.widths[i] = usable * natural[i] / sum
	}
}

// lineWidth is the width of text set on a single line.
func (t *tableWriter) lineWidth(text string) float64 {
	var w float64
	for i, word := range strings.Fields(text) {
		f := t.fonts.pick(word)
		if i > 0 {
			w += t.measure(" ", f)
		}
		w += t.measure(word, f)
	}
	return w
}

// paragraph writes text across the page in lines of height h.
func (t *tableWriter) paragraph(text string, width, h float64) {
	for _, line := range t.wrapText(text, width) {
		if t.pdf.GetY()+h > t.bottom() {
			t.pdf.AddPage()
		}
		t.drawText(pdfMargin, t.pdf.GetY(), h, line)
		t.pdf.SetY(t.pdf.GetY() + h)
	}
}

func (t *tableWriter) bottom() float64 {
	_, pageH := t.pdf.GetPageSize()
	return pageH - pdfMargin
}

// begin draws the first header, moving to a new page first when not even
// one line of the first row would fit under it.
func (t *tableWriter) begin(rows [][]string) {
	t.setStyle("B", pdfFontSize)
	t.headerH = blockHeight(lineCount(t.wrap(t.columns)))
	if len(rows) > 0 && t.pdf.GetY()+t.headerH+blockHeight(1) > t.bottom() {
		t.pdf.AddPage()
	}
	t.header()
}

func (t *tableWriter) header() {
	t.setStyle("B", pdfFontSize)
	t.pdf.SetTextColor(255, 255, 255)
	t.pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	lines := t.wrap(t.columns)
	t.drawLines(lines, blockHeight(lineCount(lines)), true)
	t.setStyle("", pdfFontSize)
	t.pdf.SetTextColor(33, 37, 41)
	t.rowsOnPage = 0
}

func (t *tableWriter) newPage() {
	t.pdf.AddPage()
	t.header()
}

// row draws one record. A row that does not fit moves to the next page when
// it fits there whole; a row taller than a page is split across pages with
// the header repeated.
func (t *tableWriter) row(cells []string, striped bool) {
	t.setStyle("", pdfFontSize)
	lines := t.wrap(cells)
	n := lineCount(lines)

	body := t.bottom() - pdfMargin - t.headerH
	if t.rowsOnPage > 0 && t.pdf.GetY()+blockHeight(n) > t.bottom() && blockHeight(n) <= body {
		t.newPage()
	}

	fresh := t.rowsOnPage == 0
	for start := 0; start < n; {
		room := int((t.bottom() - t.pdf.GetY() - 2*pdfCellPad) / pdfLineHeight)
		if room < 1 {
			if !fresh {
				t.newPage()
				fresh = true
				continue
			}
			room = 1
		}
		end := min(n, start+room)

		if striped {
			t.pdf.SetFillColor(stripeFill[0], stripeFill[1], stripeFill[2])
		} else {
			t.pdf.SetFillColor(255, 255, 255)
		}
		t.drawLines(sliceLines(lines, start, end), blockHeight(end-start), true)

		start = end
		if start < n {
			t.newPage()
			fresh = true
		}
	}
	t.rowsOnPage++
}

func (t *tableWriter) drawLines(lines [][]textLine, h float64, fill bool) {
	t.pdf.SetDrawColor(gridColor[0], gridColor[1], gridColor[2])
	x0, y := t.pdf.GetX(), t.pdf.GetY()
	x := x0
	style := "D"
	if fill {
		style = "FD"
	}
	margin := t.pdf.GetCellMargin()
	for i, w := range t.widths {
		t.pdf.Rect(x, y, w, h, style)
		for j, line := range lines[i] {
			t.drawText(x+margin, y+pdfCellPad+float64(j)*pdfLineHeight, pdfLineHeight, line)
		}
		x += w
	}
	t.pdf.SetXY(x0, y+h)
}

// drawText sets line in a box of height h whose top-left corner is x, y.
func (t *tableWriter) drawText(x, y, h float64, line textLine) {
	for _, s := range line {
		t.pdf.SetFont(t.fonts.family(s.font), t.style, t.size)
		_, size := t.pdf.GetFontSize()
		t.pdf.Text(x, y+0.5*h+0.3*size, s.text)
		x += t.pdf.GetStringWidth(s.text)
	}
}

// wrap breaks each cell into lines that fit its column.
func (t *tableWriter) wrap(cells []string) [][]textLine {
	margin := t.pdf.GetCellMargin()
	out := make([][]textLine, len(t.widths))
	for i, w := range t.widths {
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		out[i] = t.wrapText(text, w-2*margin)
	}
	return out
}

func (t *tableWriter) wrapText(text string, width float64) []textLine {
	var lines []textLine
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		var cur textLine
		var curW float64
		for _, word := range strings.Fields(para) {
			f := t.fonts.pick(word)
			ww := t.measure(word, f)
			if len(cur) > 0 {
				if sep := t.measure(" ", f); curW+sep+ww <= width {
					cur = appendWord(cur, " "+word, f)
					curW += sep + ww
					continue
				}
				lines = append(lines, cur)
				cur, curW = nil, 0
			}
			// break words longer than a whole line
			for ww > width && utf8.RuneCountInString(word) > 1 {
				head, tail := t.cut(word, f, width)
				lines = append(lines, textLine{{text: head, font: f}})
				word = tail
				ww = t.measure(word, f)
			}
			cur = textLine{{text: word, font: f}}
			curW = ww
		}
		lines = append(lines, cur)
	}
	if len(lines) == 0 {
		lines = []textLine{nil}
	}
	return lines
}

// cut splits word at the longest rune prefix no wider than width, keeping
// at least one rune on each side.
func (t *tableWriter) cut(word string, font int, width float64) (string, string) {
	runes := []rune(word)
	n := len(runes) - 1
	for n > 1 && t.measure(string(runes[:n]), font) > width {
		n--
	}
	return string(runes[:n]), string(runes[n:])
}

func appendWord(line textLine, text string, font int) textLine {
	if last := len(line) - 1; last >= 0 && line[last].font == font {
		line[last].text += text
		return line
	}
	return append(line, span{text: text, font: font})
}

func sliceLines(lines [][]textLine, start, end int) [][]textLine {
	out := make([][]textLine, len(lines))
	for i, col := range lines {
		if start < len(col) {
			out[i] = col[start:min(end, len(col))]
		}
	}
	return out
}

func lineCount(lines [][]textLine) int {
	n := 1
	for _, l := range lines {
		if len(l) > n {
			n = len(l)
		}
	}
	return n
}

func blockHeight(lines int) float64 {
	return float64(lines)*pdfLineHeight + 2*pdfCellPad
}
