// Package fields extracts business-identity fields from document text.
package fields

import (
	"encoding/json"
	"fmt"
)

// Key names one field of the closed extraction vocabulary
type Key string

// Field keys. The set is closed: no component introduces keys outside it.
const (
	CompanyName   Key = "company_name"
	OrgNumber     Key = "org_number"
	Address       Key = "address"
	PostCode      Key = "post_code"
	City          Key = "city"
	NACECode      Key = "nace_code"
	Turnover      Key = "turnover"
	Homepage      Key = "homepage"
	EmployeeCount Key = "employee_count"
	Email         Key = "email"
)

// Keys lists the vocabulary in its canonical order
var Keys = []Key{
	CompanyName,
	OrgNumber,
	Address,
	PostCode,
	City,
	NACECode,
	Turnover,
	Homepage,
	EmployeeCount,
	Email,
}

var knownKeys = func() map[Key]bool {
	m := make(map[Key]bool, len(Keys))
	for _, k := range Keys {
		m[k] = true
	}
	return m
}()

// ParseKey validates a raw key string against the vocabulary
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !knownKeys[k] {
		return "", fmt.Errorf("unknown field key: %q", s)
	}
	return k, nil
}

// FieldMap holds one string per vocabulary key. Missing data is an empty
// string, never an absent entry, so writers can apply a uniform skip-if-empty rule.
type FieldMap struct {
	values map[Key]string
}

// NewFieldMap returns a map with every key present and empty
func NewFieldMap() FieldMap {
	values := make(map[Key]string, len(Keys))
	for _, k := range Keys {
		values[k] = ""
	}
	return FieldMap{values: values}
}

// Get returns the value for key, or "" for keys outside the vocabulary
func (m FieldMap) Get(key Key) string {
	return m.values[key]
}

// Set stores value under key. Keys outside the vocabulary are ignored.
func (m FieldMap) Set(key Key, value string) {
	if !knownKeys[key] || m.values == nil {
		return
	}
	m.values[key] = value
}

// IsEmpty reports whether every field is empty
func (m FieldMap) IsEmpty() bool {
	for _, k := range Keys {
		if m.values[k] != "" {
			return false
		}
	}
	return true
}

// Clone returns an independent copy
func (m FieldMap) Clone() FieldMap {
	out := NewFieldMap()
	for _, k := range Keys {
		out.values[k] = m.values[k]
	}
	return out
}

// Merge overlays the non-empty values of override on top of base. Keys the
// override cannot supply keep the base value.
func Merge(base, override FieldMap) FieldMap {
	out := base.Clone()
	for _, k := range Keys {
		if v := override.Get(k); v != "" {
			out.values[k] = v
		}
	}
	return out
}

// MarshalJSON emits every key, empty values included
func (m FieldMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(Keys))
	for _, k := range Keys {
		out[string(k)] = m.values[k]
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a flat object of known keys
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = NewFieldMap()
	for k, v := range raw {
		key, err := ParseKey(k)
		if err != nil {
			return err
		}
		m.values[key] = v
	}
	return nil
}
