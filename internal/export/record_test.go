package export

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecordLookup(t *testing.T) {
	r := Record{
		"invoice_id": json.Number("7"),
		"Patient":    map[string]any{"full_name": "Nimal Perera", "phone": nil},
		"Doctor":     nil,
		"note":       "plain",
	}

	tests := []struct {
		path string
		ok   bool
	}{
		{"invoice_id", true},
		{"Patient.full_name", true},
		{"Patient.phone", false},
		{"Patient.email", false},
		{"Doctor.full_name", false},
		{"Branch.name", false},
		{"note.inner", false},
	}
	for _, tt := range tests {
		if _, ok := r.Lookup(tt.path); ok != tt.ok {
			t.Errorf("Lookup(%q): expected ok=%v, got %v", tt.path, tt.ok, ok)
		}
	}
}

func TestFormatterText(t *testing.T) {
	var f Formatter
	r := Record{
		"name":   "Kamala",
		"blank":  "   ",
		"id":     json.Number("42"),
		"ratio":  float64(2.5),
		"active": true,
	}

	tests := map[string]string{
		"name":    "Kamala",
		"blank":   NotAvailable,
		"missing": NotAvailable,
		"id":      "42",
		"ratio":   "2.5",
		"active":  "Yes",
	}
	for path, want := range tests {
		if got := f.Text(r, path); got != want {
			t.Errorf("Text(%q): expected %q, got %q", path, want, got)
		}
	}
}

func TestFormatterDate(t *testing.T) {
	colombo := time.FixedZone("LKT", 5*3600+1800)
	f := Formatter{Location: colombo}

	r := Record{
		"date_only":  "2024-01-05",
		"late_utc":   "2024-01-05T20:00:00Z",
		"pg_stamp":   "2024-03-01 08:15:00",
		"local_late": "2024-01-05T22:00:00",
		"pg_late":    "2024-01-05 21:00:00",
		"epoch_ms":   json.Number("1704412800000"),
		"garbage":    "next tuesday",
		"empty":      "",
		"time_value": time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
	}

	tests := map[string]string{
		"date_only":  "Jan 5, 2024",
		"late_utc":   "Jan 6, 2024",
		"pg_stamp":   "Mar 1, 2024",
		"local_late": "Jan 5, 2024",
		"pg_late":    "Jan 5, 2024",
		"epoch_ms":   "Jan 5, 2024",
		"garbage":    NotAvailable,
		"empty":      NotAvailable,
		"missing":    NotAvailable,
		"time_value": "Feb 29, 2024",
	}
	for path, want := range tests {
		if got := f.Date(r, path); got != want {
			t.Errorf("Date(%q): expected %q, got %q", path, want, got)
		}
	}
}

func TestFormatterMoney(t *testing.T) {
	var f Formatter
	r := Record{
		"amount": json.Number("1234.5"),
		"text":   "2500",
		"bad":    "abc",
	}

	tests := map[string]string{
		"amount":  "Rs. 1,234.50",
		"text":    "Rs. 2,500.00",
		"bad":     "Rs. 0.00",
		"missing": "Rs. 0.00",
	}
	for path, want := range tests {
		if got := f.Money(r, path); got != want {
			t.Errorf("Money(%q): expected %q, got %q", path, want, got)
		}
	}
}

func TestFormatterFlag(t *testing.T) {
	var f Formatter
	r := Record{
		"on":       true,
		"off":      false,
		"str":      "true",
		"num":      float64(0),
		"json_one": json.Number("1"),
		"json_off": json.Number("0"),
		"int":      int64(1),
		"odd":      "maybe",
	}

	tests := map[string]string{
		"on":       "Active",
		"off":      "Inactive",
		"str":      "Active",
		"num":      "Inactive",
		"json_one": "Active",
		"json_off": "Inactive",
		"int":      "Active",
		"odd":      NotAvailable,
		"missing":  NotAvailable,
	}
	for path, want := range tests {
		if got := f.Flag(r, path, "Active", "Inactive"); got != want {
			t.Errorf("Flag(%q): expected %q, got %q", path, want, got)
		}
	}
}
