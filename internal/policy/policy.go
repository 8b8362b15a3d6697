// Package policy holds the export allow-lists: which staff roles may export
// each category of clinic data.
package policy

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/margalk/catms/internal/export"
)

// Policy maps a data type to the roles allowed to export it.
type Policy struct {
	Exports map[export.DataType][]string `yaml:"exports"`
}

// Default mirrors the clinic's staff roles.
func Default() *Policy {
	return &Policy{Exports: map[export.DataType][]string{
		export.Appointments: {"admin", "doctor", "receptionist"},
		export.Patients:     {"admin", "doctor", "receptionist"},
		export.Invoices:     {"admin", "accountant", "receptionist"},
		export.Payments:     {"admin", "accountant", "receptionist"},
		export.AuditLogs:    {"admin"},
		export.Users:        {"admin"},
	}}
}

// Load reads a YAML policy file. Data types missing from the file keep the
// default allow-list; unknown data types are rejected.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export policy: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML policy document.
func Parse(data []byte) (*Policy, error) {
	var file Policy
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse export policy: %w", err)
	}

	p := Default()
	for dt, roles := range file.Exports {
		if _, err := export.ParseDataType(string(dt)); err != nil {
			return nil, fmt.Errorf("export policy: %w", err)
		}
		p.Exports[dt] = roles
	}
	return p, nil
}

// Allowed returns the roles allowed to export dt; nil for unknown types.
func (p *Policy) Allowed(dt export.DataType) []string {
	if p == nil {
		return nil
	}
	return p.Exports[dt]
}

// Types returns the data types that role may export, sorted.
func (p *Policy) Types(role string) []export.DataType {
	var out []export.DataType
	for dt, roles := range p.Exports {
		for _, r := range roles {
			if r == role {
				out = append(out, dt)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
