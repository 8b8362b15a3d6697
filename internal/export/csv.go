package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes columns as the header row followed by rows, quoting per
// RFC 4180 with CRLF line endings.
func WriteCSV(w io.Writer, columns []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("csv row %d: %d cells for %d columns", i, len(row), len(columns))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return nil
}
