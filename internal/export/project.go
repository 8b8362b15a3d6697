package export

// Projection is the tabular form of a set of records: a header and one row
// of display cells per record. Every row has len(Columns) cells.
type Projection struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Project shapes rows of type dt using the default registry and formatter.
func Project(dt DataType, rows []Record) (*Projection, error) {
	return Default.Project(Formatter{}, dt, rows)
}

// Project shapes rows of type dt. The input rows are only read.
func (r *Registry) Project(f Formatter, dt DataType, rows []Record) (*Projection, error) {
	ds, err := r.Lookup(dt)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(ds.Columns))
	copy(columns, ds.Columns)

	out := make([][]string, 0, len(rows))
	for _, rec := range rows {
		if rec == nil {
			rec = Record{}
		}
		out = append(out, fit(ds.Project(f, rec), len(columns)))
	}
	return &Projection{Columns: columns, Rows: out}, nil
}

// fit pads or trims cells to width so a misbehaving projector cannot break
// the header/row length invariant.
func fit(cells []string, width int) []string {
	if len(cells) == width {
		return cells
	}
	out := make([]string, width)
	for i := range out {
		if i < len(cells) {
			out[i] = cells[i]
		} else {
			out[i] = NotAvailable
		}
	}
	return out
}
