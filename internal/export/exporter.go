package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrExportFailed wraps any failure while serializing a file.
	ErrExportFailed = errors.New("export failed")
	// ErrUnsupportedFormat is returned for a format other than csv or pdf.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Format is an output file format.
type Format string

const (
	CSV Format = "csv"
	PDF Format = "pdf"
)

// ParseFormat accepts "csv" or "pdf" in any case; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case PDF:
		return PDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of files in format f.
func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Request is one export action over rows already held in memory.
type Request struct {
	DataType DataType
	Rows     []Record
	Filename string
	Title    string
}

// File is a finished export, ready to be saved or streamed.
type File struct {
	Name        string
	ContentType string
	Format      Format
	RowCount    int
	Data        []byte
}

// Exporter projects and serializes export requests.
type Exporter struct {
	registry  *Registry
	formatter Formatter
	now       func() time.Time
	compress  bool
	fonts     []*Font
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLocation sets the zone used for dates and the generation timestamp.
func WithLocation(loc *time.Location) Option {
	return func(e *Exporter) { e.formatter.Location = loc }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithRegistry replaces the default data type registry.
func WithRegistry(r *Registry) Option {
	return func(e *Exporter) { e.registry = r }
}

// WithoutCompression writes PDF page streams uncompressed.
func WithoutCompression() Option {
	return func(e *Exporter) { e.compress = false }
}

// WithPDFFonts adds fonts tried after DefaultFont for words it cannot draw,
// such as Sinhala or Tamil names.
func WithPDFFonts(fonts ...*Font) Option {
	return func(e *Exporter) { e.fonts = append(e.fonts, fonts...) }
}

// NewExporter returns an Exporter using the default registry and local time.
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{
		registry: Default,
		now:      time.Now,
		compress: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the exporter dispatches on.
func (e *Exporter) Registry() *Registry { return e.registry }

// Project shapes rows with the exporter's registry and formatter.
func (e *Exporter) Project(dt DataType, rows []Record) (*Projection, error) {
	return e.registry.Project(e.formatter, dt, rows)
}

// Export projects req and serializes it in format f. Unknown data types and
// formats are returned as is; serializer failures wrap ErrExportFailed.
func (e *Exporter) Export(req Request, f Format) (*File, error) {
	if _, err := ParseFormat(string(f)); err != nil {
		return nil, err
	}
	ds, err := e.registry.Lookup(req.DataType)
	if err != nil {
		return nil, err
	}
	p, err := e.registry.Project(e.formatter, req.DataType, req.Rows)
	if err != nil {
		return nil, err
	}

	base := req.Filename
	if strings.TrimSpace(base) == "" {
		base = string(req.DataType)
	}
	if f == PDF {
		title := req.Title
		if strings.TrimSpace(title) == "" {
			title = ds.Name + " Report"
		}
		return e.PDF(title, p.Columns, p.Rows, base)
	}
	return e.CSV(base, p.Columns, p.Rows)
}

// CSV serializes columns and rows to "{filename}_{YYYY-MM-DD}.csv".
func (e *Exporter) CSV(filename string, columns []string, rows [][]string) (*File, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, columns, rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return &File{
		Name:        e.fileName(filename, CSV),
		ContentType: CSV.ContentType(),
		Format:      CSV,
		RowCount:    len(rows),
		Data:        buf.Bytes(),
	}, nil
}

// PDF serializes a titled table to "{filename}_{YYYY-MM-DD}.pdf".
func (e *Exporter) PDF(title string, columns []string, rows [][]string, filename string) (*File, error) {
	var buf bytes.Buffer
	doc := PDFDocument{
		Title:        title,
		Columns:      columns,
		Rows:         rows,
		GeneratedAt:  e.now().In(e.formatter.location()),
		Fonts:        append([]*Font{DefaultFont()}, e.fonts...),
		Uncompressed: !e.compress,
	}
	if err := WritePDF(&buf, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return &File{
		Name:        e.fileName(filename, PDF),
		ContentType: PDF.ContentType(),
		Format:      PDF,
		RowCount:    len(rows),
		Data:        buf.Bytes(),
	}, nil
}

// fileName stamps base with the current UTC calendar date.
func (e *Exporter) fileName(base string, f Format) string {
	return fmt.Sprintf("%s_%s.%s", sanitizeBase(base), e.now().UTC().Format("2006-01-02"), f)
}

func sanitizeBase(base string) string {
	base = strings.TrimSpace(base)
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." || base == ".." {
		return "export"
	}
	return base
}

// SaveToDir writes f into dir through a temporary file so that a failed
// write never leaves a partial export behind. It returns the final path.
func SaveToDir(dir string, f *File) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrExportFailed, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+f.Name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: write %s: %v", ErrExportFailed, f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: close %s: %v", ErrExportFailed, f.Name, err)
	}

	final := filepath.Join(dir, f.Name)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: rename %s: %v", ErrExportFailed, f.Name, err)
	}
	return final, nil
}
