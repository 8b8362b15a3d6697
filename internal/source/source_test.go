package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/margalk/catms/internal/export"
	"github.com/margalk/catms/internal/platform/auth"
)

func TestDecodeRows_Array(t *testing.T) {
	rows, err := DecodeRows(strings.NewReader(`[{"invoice_id": 7, "Patient": {"full_name": "Nimal Perera"}}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["invoice_id"] != json.Number("7") {
		t.Errorf("expected json.Number 7, got %#v", rows[0]["invoice_id"])
	}
	if v, ok := rows[0].Lookup("Patient.full_name"); !ok || v != "Nimal Perera" {
		t.Errorf("unexpected nested lookup: %v %v", v, ok)
	}
}

func TestDecodeRows_NumericFlag(t *testing.T) {
	rows, err := DecodeRows(strings.NewReader(`[{"user_id": 1, "is_active": 1}, {"user_id": 2, "is_active": 0}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := export.Project(export.Users, rows)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	status := -1
	for i, c := range p.Columns {
		if c == "Status" {
			status = i
		}
	}
	if status < 0 {
		t.Fatal("users has no Status column")
	}
	if got := p.Rows[0][status]; got != "Active" {
		t.Errorf("expected Active, got %q", got)
	}
	if got := p.Rows[1][status]; got != "Inactive" {
		t.Errorf("expected Inactive, got %q", got)
	}
}

func TestDecodeRows_Envelopes(t *testing.T) {
	for _, body := range []string{
		`{"data": [{"a": 1}, {"a": 2}]}`,
		`{"rows": [{"a": 1}, {"a": 2}], "count": 2}`,
		`{"success": true, "data": {"items": [{"a": 1}, {"a": 2}]}}`,
	} {
		rows, err := DecodeRows(strings.NewReader(body))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", body, err)
			continue
		}
		if len(rows) != 2 {
			t.Errorf("%s: expected 2 rows, got %d", body, len(rows))
		}
	}
}

func TestDecodeRows_Invalid(t *testing.T) {
	for _, body := range []string{`"nope"`, `{"message": "ok"}`, `[1, 2]`, `{`} {
		if _, err := DecodeRows(strings.NewReader(body)); err == nil {
			t.Errorf("%s: expected error", body)
		}
	}
}

func TestDecodeRows_Null(t *testing.T) {
	rows, err := DecodeRows(strings.NewReader(`null`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil rows, got %#v", rows)
	}
}

func TestRESTFetcher_FetchRows(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [{"log_id": 1}, {"log_id": 2}]}`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL+"/api/", "service-token", 0)
	rows, err := f.FetchRows(context.Background(), export.AuditLogs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
	if gotPath != "/api/audit-logs" {
		t.Errorf("expected /api/audit-logs, got %s", gotPath)
	}
	if gotAuth != "Bearer service-token" {
		t.Errorf("expected service token, got %q", gotAuth)
	}
}

func TestRESTFetcher_ForwardsCallerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx := context.WithValue(context.Background(), auth.TokenKey, "caller-token")
	f := NewRESTFetcher(srv.URL, "service-token", 0)
	if _, err := f.FetchRows(ctx, export.Patients); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer caller-token" {
		t.Errorf("expected caller token, got %q", gotAuth)
	}
}

func TestRESTFetcher_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewRESTFetcher(srv.URL, "", 0).FetchRows(context.Background(), export.Invoices)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRESTFetcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database offline", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRESTFetcher(srv.URL, "", 0).FetchRows(context.Background(), export.Invoices)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "database offline") {
		t.Errorf("expected upstream body in error, got %v", err)
	}
}

func TestRESTFetcher_UnknownType(t *testing.T) {
	_, err := NewRESTFetcher("http://127.0.0.1:1", "", 0).FetchRows(context.Background(), export.DataType("wards"))
	if !errors.Is(err, export.ErrUnknownDataType) {
		t.Fatalf("expected ErrUnknownDataType, got %v", err)
	}
}

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	if err := os.WriteFile(path, []byte(`[{"payment_id": 3}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	rows, err := FileFetcher{Path: path}.FetchRows(context.Background(), export.Payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}
}

// fakeRows serves pre-encoded JSON documents as a single-column result.
type fakeRows struct {
	docs []string
	i    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.docs)
}
func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*[]byte)) = []byte(r.docs[r.i-1])
	return nil
}
func (r *fakeRows) Values() ([]any, error) { return []any{r.docs[r.i-1]}, nil }
func (r *fakeRows) RawValues() [][]byte    { return [][]byte{[]byte(r.docs[r.i-1])} }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

type fakeDB struct {
	rows    *fakeRows
	lastSQL string
}

func (d *fakeDB) Query(_ context.Context, sql string, _ ...interface{}) (pgx.Rows, error) {
	d.lastSQL = sql
	return d.rows, nil
}

func TestPGFetcher_FetchRows(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{docs: []string{
		`{"appointment_id": 1, "Patient": {"full_name": "Kamala Silva"}, "Doctor": null}`,
		`{"appointment_id": 2, "Patient": null, "Doctor": {"full_name": "Dr. Fernando"}}`,
	}}}
	f := &PGFetcher{db: db}

	rows, err := f.FetchRows(context.Background(), export.Appointments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !strings.Contains(db.lastSQL, "FROM appointments") {
		t.Errorf("unexpected query: %s", db.lastSQL)
	}
	if _, ok := rows[0].Lookup("Doctor.full_name"); ok {
		t.Error("expected null Doctor to be absent")
	}
}

func TestPGFetcher_QueriesCoverRegistry(t *testing.T) {
	for _, dt := range export.Types() {
		if _, ok := rowQueries[dt]; !ok {
			t.Errorf("missing query for %s", dt)
		}
	}
}

func TestPGFetcher_UnknownType(t *testing.T) {
	f := &PGFetcher{db: &fakeDB{rows: &fakeRows{}}}
	if _, err := f.FetchRows(context.Background(), "wards"); !errors.Is(err, export.ErrUnknownDataType) {
		t.Fatalf("expected ErrUnknownDataType, got %v", err)
	}
}
