// Package mapping binds spreadsheet columns to canonical profile fields.
package mapping

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/venture-galaxy/matchmaker/internal/normalize"
)

// ValidationError reports a mapping that cannot be used for an import.
// It is returned to the caller; it never aborts the process.
type ValidationError struct {
	Missing   []string `json:"missing,omitempty"`   // required fields with no column
	Unknown   []string `json:"unknown,omitempty"`   // assignments naming a field outside the catalog
	Unmatched []string `json:"unmatched,omitempty"` // assignments naming no existing column
	Conflicts []string `json:"conflicts,omitempty"` // columns assigned to more than one field
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown fields: "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Unmatched) > 0 {
		parts = append(parts, "no such column: "+strings.Join(e.Unmatched, ", "))
	}
	if len(e.Conflicts) > 0 {
		parts = append(parts, "column assigned twice: "+strings.Join(e.Conflicts, ", "))
	}
	return "mapping: " + strings.Join(parts, "; ")
}

func (e *ValidationError) empty() bool {
	return len(e.Missing)+len(e.Unknown)+len(e.Unmatched)+len(e.Conflicts) == 0
}

// Mapping is a confirmed column assignment for one import session.
// It is read-only after New returns.
type Mapping struct {
	headers  []string
	fields   []Field
	columns  map[string]int
	byColumn map[int]string
}

// New validates assignments (field key -> header name or zero-based column
// index) against headers and the field catalog. Empty assignments leave the
// field unmapped.
func New(headers []string, fields []Field, assignments map[string]string) (*Mapping, error) {
	m := &Mapping{
		headers:  append([]string(nil), headers...),
		fields:   fields,
		columns:  make(map[string]int),
		byColumn: make(map[int]string),
	}

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Key] = true
	}

	verr := &ValidationError{}

	keys := make([]string, 0, len(assignments))
	for k := range assignments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		target := strings.TrimSpace(assignments[key])
		if target == "" {
			continue
		}
		if !known[key] {
			verr.Unknown = append(verr.Unknown, key)
			continue
		}
		col, ok := resolveColumn(m.headers, target)
		if !ok {
			verr.Unmatched = append(verr.Unmatched, fmt.Sprintf("%s=%q", key, target))
			continue
		}
		if other, taken := m.byColumn[col]; taken {
			verr.Conflicts = append(verr.Conflicts, fmt.Sprintf("%q (%s, %s)", m.headers[col], other, key))
			continue
		}
		m.columns[key] = col
		m.byColumn[col] = key
	}

	for _, f := range fields {
		if _, ok := m.columns[f.Key]; f.Required && !ok {
			verr.Missing = append(verr.Missing, f.Key)
		}
	}

	if !verr.empty() {
		return nil, verr
	}
	return m, nil
}

// resolveColumn finds target as an exact header, a folded header match, or a
// column index.
func resolveColumn(headers []string, target string) (int, bool) {
	for i, h := range headers {
		if strings.TrimSpace(h) == target {
			return i, true
		}
	}
	folded := normalize.Fold(target)
	if folded != "" {
		for i, h := range headers {
			if normalize.Fold(h) == folded {
				return i, true
			}
		}
	}
	if idx, err := strconv.Atoi(target); err == nil && idx >= 0 && idx < len(headers) {
		return idx, true
	}
	return 0, false
}

// Headers returns the header row the mapping was built against.
func (m *Mapping) Headers() []string {
	return append([]string(nil), m.headers...)
}

// Column returns the column index feeding field.
func (m *Mapping) Column(field string) (int, bool) {
	col, ok := m.columns[field]
	return col, ok
}

// HeaderFor returns the header that produced field.
func (m *Mapping) HeaderFor(field string) (string, bool) {
	col, ok := m.columns[field]
	if !ok {
		return "", false
	}
	return m.headers[col], true
}

// FieldFor returns the field fed by the column named header.
func (m *Mapping) FieldFor(header string) (string, bool) {
	for i, h := range m.headers {
		if h == header {
			key, ok := m.byColumn[i]
			return key, ok
		}
	}
	return "", false
}

// Extract pulls the mapped fields out of a data row. Unmapped fields are left
// out so the normalizer applies its defaults; short rows yield blank cells.
func (m *Mapping) Extract(row []string) normalize.Record {
	rec := make(normalize.Record, len(m.columns))
	for key, col := range m.columns {
		if col < len(row) {
			rec[key] = row[col]
		} else {
			rec[key] = ""
		}
	}
	return rec
}

// Assignments returns field key -> header name for every mapped field.
func (m *Mapping) Assignments() map[string]string {
	out := make(map[string]string, len(m.columns))
	for key, col := range m.columns {
		out[key] = m.headers[col]
	}
	return out
}

// Suggest proposes assignments by comparing folded headers against each
// field's key, label and aliases. The first matching header wins and a
// header is never suggested twice.
func Suggest(headers []string, fields []Field) map[string]string {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = normalize.Fold(h)
	}

	used := make(map[int]bool)
	out := make(map[string]string)
	for _, f := range fields {
		names := append([]string{f.Key, f.Label}, f.Aliases...)
		for _, name := range names {
			want := normalize.Fold(name)
			if col := indexOf(folded, want, used); col >= 0 {
				out[f.Key] = headers[col]
				used[col] = true
				break
			}
		}
	}
	return out
}

func indexOf(folded []string, want string, used map[int]bool) int {
	if want == "" {
		return -1
	}
	for i, f := range folded {
		if f == want && !used[i] {
			return i
		}
	}
	return -1
}

// File is a saved mapping.
type File struct {
	Target string            `yaml:"target"`
	Fields map[string]string `yaml:"fields"`
}

// LoadFile reads a YAML mapping file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: read file %s", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "mapping: parse file")
	}
	if f.Fields == nil {
		f.Fields = map[string]string{}
	}
	return &f, nil
}

// WriteFile saves assignments as a YAML mapping file.
func WriteFile(path, target string, assignments map[string]string) error {
	data, err := yaml.Marshal(File{Target: target, Fields: assignments})
	if err != nil {
		return eris.Wrap(err, "mapping: encode file")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "mapping: write file %s", path)
	}
	return nil
}
