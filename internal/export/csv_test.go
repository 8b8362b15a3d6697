package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
)

func TestWriteCSV_RoundTripAppointments(t *testing.T) {
	rows := []Record{
		{"appointment_id": 1, "Patient": map[string]any{"full_name": "Kamala Silva"}, "Doctor": map[string]any{"full_name": "Dr. Fernando", "specialization": "Cardiology"}, "appointment_date": "2024-01-05"},
		{"appointment_id": 2, "Patient": map[string]any{"full_name": "Ruwan Jayasuriya"}, "Doctor": nil, "appointment_date": "2024-01-06"},
		{"appointment_id": 3, "Patient": map[string]any{"full_name": "Perera, Nimal"}, "Doctor": map[string]any{"full_name": "Dr. \"Sam\" Gunawardena"}, "reason": "follow-up\nbring reports"},
	}
	p, err := Project(Appointments, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, p.Columns, p.Rows); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 1 header + 3 rows, got %d records", len(records))
	}
	if records[0][2] != "Doctor" {
		t.Errorf("expected Doctor header, got %q", records[0][2])
	}
	if records[2][2] != NotAvailable {
		t.Errorf("expected null Doctor to export as %q, got %q", NotAvailable, records[2][2])
	}
	if records[3][1] != "Perera, Nimal" {
		t.Errorf("comma cell not preserved: %q", records[3][1])
	}
	if records[3][2] != `Dr. "Sam" Gunawardena` {
		t.Errorf("quote cell not preserved: %q", records[3][2])
	}
	if records[3][7] != "follow-up\nbring reports" {
		t.Errorf("newline cell not preserved: %q", records[3][7])
	}
}

func TestWriteCSV_Quoting(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []string{"Name", "Note"}, [][]string{{`a "quoted", value`, "plain"}})
	if err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	want := "Name,Note\r\n\"a \"\"quoted\"\", value\",plain\r\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []string{"A", "B"}, nil); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	if buf.String() != "A,B\r\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteCSV_RowWidthMismatch(t *testing.T) {
	err := WriteCSV(&bytes.Buffer{}, []string{"A", "B"}, [][]string{{"only one"}})
	if err == nil || !strings.Contains(err.Error(), "row 0") {
		t.Fatalf("expected row width error, got %v", err)
	}
}
