package export

import (
	"errors"
	"fmt"
)

// ErrUnknownDataType is returned for a data type outside the registry. It
// signals a caller bug and is never converted into a fallback value.
var ErrUnknownDataType = errors.New("unknown data type")

// DataType names one exportable category of clinic data.
type DataType string

const (
	Appointments DataType = "appointments"
	Invoices     DataType = "invoices"
	AuditLogs    DataType = "auditLogs"
	Patients     DataType = "patients"
	Users        DataType = "users"
	Payments     DataType = "payments"
)

// Projector maps one record to display cells, in column order.
type Projector func(f Formatter, r Record) []string

// Dataset is the column layout and projector for one data type.
type Dataset struct {
	Type     DataType  `json:"type"`
	Name     string    `json:"name"`
	Endpoint string    `json:"endpoint"`
	Columns  []string  `json:"columns"`
	Project  Projector `json:"-"`
}

// Registry holds the known data types in a stable order.
type Registry struct {
	order []DataType
	sets  map[DataType]Dataset
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[DataType]Dataset)}
}

// Register adds ds, replacing an existing dataset of the same type.
func (r *Registry) Register(ds Dataset) {
	if _, ok := r.sets[ds.Type]; !ok {
		r.order = append(r.order, ds.Type)
	}
	r.sets[ds.Type] = ds
}

// Lookup returns the dataset for dt or ErrUnknownDataType.
func (r *Registry) Lookup(dt DataType) (Dataset, error) {
	ds, ok := r.sets[dt]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataType, string(dt))
	}
	return ds, nil
}

// Datasets returns every registered dataset in registration order.
func (r *Registry) Datasets() []Dataset {
	out := make([]Dataset, 0, len(r.order))
	for _, dt := range r.order {
		out = append(out, r.sets[dt])
	}
	return out
}

// ParseDataType validates s against the default registry.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(s)
	if _, err := Default.Lookup(dt); err != nil {
		return "", err
	}
	return dt, nil
}

// Types lists the data types of the default registry.
func Types() []DataType {
	out := make([]DataType, 0, len(Default.order))
	out = append(out, Default.order...)
	return out
}
