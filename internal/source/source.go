// Package source fetches the records that exports are built from. The clinic
// REST API is the usual source; the Postgres fetcher reads the same shapes
// straight from the database for offline reports.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/margalk/catms/internal/export"
)

var (
	// ErrUnauthorized means the upstream rejected the caller's credentials.
	ErrUnauthorized = export.ErrSourceUnauthorized
	// ErrUpstream wraps any other failure to obtain rows.
	ErrUpstream = export.ErrSourceUnavailable
)

// Fetcher returns the current rows of one data type.
type Fetcher interface {
	FetchRows(ctx context.Context, dt export.DataType) ([]export.Record, error)
}

// envelopeKeys are the wrapper fields the clinic API uses around lists.
var envelopeKeys = []string{"data", "rows", "items", "results"}

// DecodeRows reads a JSON array of objects, or an object wrapping one under
// data, rows, items or results.
func DecodeRows(r io.Reader) ([]export.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return decodeRaw(raw)
}

func decodeRaw(raw json.RawMessage) ([]export.Record, error) {
	var rows []export.Record
	if err := unmarshalNumbers(raw, &rows); err == nil {
		if rows == nil {
			rows = []export.Record{}
		}
		return rows, nil
	}

	var env map[string]json.RawMessage
	if err := unmarshalNumbers(raw, &env); err != nil {
		return nil, fmt.Errorf("decode rows: expected a JSON array or object")
	}
	for _, key := range envelopeKeys {
		if inner, ok := env[key]; ok {
			return decodeRaw(inner)
		}
	}
	return nil, fmt.Errorf("decode rows: no list found in response object")
}

func unmarshalNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// FileFetcher serves rows from a JSON file regardless of the requested type.
type FileFetcher struct {
	Path string
}

func (f FileFetcher) FetchRows(_ context.Context, _ export.DataType) ([]export.Record, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open rows file: %w", err)
	}
	defer fh.Close()
	return DecodeRows(fh)
}
