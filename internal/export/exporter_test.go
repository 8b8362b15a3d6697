package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	// 23:30 UTC is already the next day in Colombo; filenames follow UTC.
	return time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
}

func newTestExporter() *Exporter {
	return NewExporter(
		WithClock(fixedClock),
		WithLocation(time.FixedZone("LKT", 5*3600+1800)),
		WithoutCompression(),
	)
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": CSV, "csv": CSV, "CSV": CSV, " pdf ": PDF}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseFormat("xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExporter_CSV(t *testing.T) {
	e := newTestExporter()
	f, err := e.Export(Request{
		DataType: Payments,
		Rows:     []Record{{"payment_id": 1, "amount": 1500.0}, {"payment_id": 2}},
		Filename: "march-payments",
	}, CSV)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if f.Name != "march-payments_2024-03-01.csv" {
		t.Errorf("unexpected file name %q", f.Name)
	}
	if f.ContentType != "text/csv; charset=utf-8" || f.RowCount != 2 {
		t.Errorf("unexpected file metadata: %+v", f)
	}

	records, err := csv.NewReader(bytes.NewReader(f.Data)).ReadAll()
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[1][3] != "Rs. 1,500.00" || records[2][3] != "Rs. 0.00" {
		t.Errorf("unexpected amount cells %q %q", records[1][3], records[2][3])
	}
}

func TestExporter_PDFDefaults(t *testing.T) {
	e := newTestExporter()
	f, err := e.Export(Request{DataType: AuditLogs}, PDF)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if f.Name != "auditLogs_2024-03-01.pdf" {
		t.Errorf("unexpected file name %q", f.Name)
	}
	if f.ContentType != "application/pdf" || f.RowCount != 0 {
		t.Errorf("unexpected file metadata: %+v", f)
	}
	out := string(f.Data)
	if !strings.HasPrefix(out, "%PDF-") || !strings.Contains(out, pdfText("Audit Logs Report")) {
		t.Error("expected PDF containing the default title")
	}
	// generation time is shown in the export location
	if !strings.Contains(out, pdfText("Mar 2, 2024 5:00 AM")) {
		t.Error("expected localized generation timestamp")
	}
}

func TestExporter_PDFTitle(t *testing.T) {
	f, err := newTestExporter().Export(Request{DataType: Invoices, Title: "Outstanding Invoices", Filename: "due"}, PDF)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if !strings.Contains(string(f.Data), pdfText("Outstanding Invoices")) {
		t.Error("expected custom title")
	}
	if f.Name != "due_2024-03-01.pdf" {
		t.Errorf("unexpected file name %q", f.Name)
	}
}

func TestExporter_UnknownTypePassesThrough(t *testing.T) {
	_, err := newTestExporter().Export(Request{DataType: "wards"}, CSV)
	if !errors.Is(err, ErrUnknownDataType) {
		t.Fatalf("expected ErrUnknownDataType, got %v", err)
	}
	if errors.Is(err, ErrExportFailed) {
		t.Error("unknown type must not be reported as an export failure")
	}
}

func TestExporter_UnsupportedFormat(t *testing.T) {
	_, err := newTestExporter().Export(Request{DataType: Users}, Format("xlsx"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExporter_CSVFailureWrapsExportFailed(t *testing.T) {
	_, err := newTestExporter().CSV("bad", []string{"A", "B"}, [][]string{{"1"}})
	if !errors.Is(err, ErrExportFailed) {
		t.Fatalf("expected ErrExportFailed, got %v", err)
	}
}

func TestExporter_PDFMissingGlyphs(t *testing.T) {
	rows := []Record{{"invoice_id": 7, "Patient": map[string]any{"full_name": "ශ්‍රී ලංකා"}}}
	_, err := newTestExporter().Export(Request{DataType: Invoices, Rows: rows}, PDF)
	if !errors.Is(err, ErrMissingGlyphs) || !errors.Is(err, ErrExportFailed) {
		t.Fatalf("expected ErrMissingGlyphs wrapped in ErrExportFailed, got %v", err)
	}
}

func TestExporter_WithPDFFonts(t *testing.T) {
	wide := &Font{Name: "wide", regular: dejaVuSans, bold: dejaVuSansBold, hasRune: func(rune) bool { return true }}
	e := NewExporter(WithClock(fixedClock), WithoutCompression(), WithPDFFonts(wide))
	rows := []Record{{"invoice_id": 7, "Patient": map[string]any{"full_name": "ලංකා"}}}
	f, err := e.Export(Request{DataType: Invoices, Rows: rows}, PDF)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if f.RowCount != 1 {
		t.Errorf("expected 1 row, got %d", f.RowCount)
	}
}

func TestSanitizeBase(t *testing.T) {
	tests := map[string]string{
		"invoices":       "invoices",
		"../etc/passwd":  ".._etc_passwd",
		`a:b*c?"d"<e>|f`: "a_b_c__d__e__f",
		"  ":             "export",
		"..":             "export",
	}
	for in, want := range tests {
		if got := sanitizeBase(in); got != want {
			t.Errorf("sanitizeBase(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSaveToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	f := &File{Name: "patients_2024-03-01.csv", Data: []byte("a,b\r\n")}

	path, err := SaveToDir(dir, f)
	if err != nil {
		t.Fatalf("SaveToDir() error: %v", err)
	}
	if path != filepath.Join(dir, f.Name) {
		t.Errorf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "a,b\r\n" {
		t.Errorf("unexpected file content %q (%v)", data, err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the export in %s, found %d entries", dir, len(entries))
	}
}

func TestSaveToDir_Unwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := SaveToDir(filepath.Join(blocker, "sub"), &File{Name: "x.csv"})
	if !errors.Is(err, ErrExportFailed) {
		t.Fatalf("expected ErrExportFailed, got %v", err)
	}
}
