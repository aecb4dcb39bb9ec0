package registry

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/a3tai/pdf-excel-mapper/internal/fields"
)

// Record is the registry's response document. Its shape is not enforced:
// values are reached through dotted accessor paths and any absent or
// mistyped path reads as the empty string.
type Record map[string]any

// decodeRecord parses a JSON object keeping numbers verbatim
func decodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Lookup walks a dotted path such as "forretningsadresse.postnummer".
// Arrays of scalars are joined with ", ".
func (r Record) Lookup(path string) string {
	if r == nil || path == "" {
		return ""
	}

	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = obj[part]
		if !ok {
			return ""
		}
	}
	return scalarString(cur)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalarString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// Binding maps one field to an accessor path in the record
type Binding struct {
	Key  fields.Key
	Path string
}

// Projection is the ordered field → path table applied to a Record
type Projection []Binding

// DefaultProjection follows the Enhetsregisteret entity document
var DefaultProjection = Projection{
	{Key: fields.CompanyName, Path: "navn"},
	{Key: fields.OrgNumber, Path: "organisasjonsnummer"},
	{Key: fields.Address, Path: "forretningsadresse.adresse"},
	{Key: fields.PostCode, Path: "forretningsadresse.postnummer"},
	{Key: fields.City, Path: "forretningsadresse.poststed"},
	{Key: fields.NACECode, Path: "naeringskode1.kode"},
	{Key: fields.Homepage, Path: "hjemmeside"},
	{Key: fields.EmployeeCount, Path: "antallAnsatte"},
}

// Project builds a FieldMap from the record; unreachable paths stay empty
func (p Projection) Project(rec Record) fields.FieldMap {
	out := fields.NewFieldMap()
	for _, b := range p {
		out.Set(b.Key, rec.Lookup(b.Path))
	}
	return out
}

// SummaryPaths locates the legal name and the primary activity description
type SummaryPaths struct {
	Name     string
	Activity string
}

// DefaultSummaryPaths follows the Enhetsregisteret entity document
var DefaultSummaryPaths = SummaryPaths{
	Name:     "navn",
	Activity: "naeringskode1.beskrivelse",
}

// SummarySeparator joins the name and activity description
const SummarySeparator = " – "

// Summarize joins name and activity, omitting whichever side is absent
func (s SummaryPaths) Summarize(rec Record) string {
	parts := make([]string, 0, 2)
	if name := rec.Lookup(s.Name); name != "" {
		parts = append(parts, name)
	}
	if activity := rec.Lookup(s.Activity); activity != "" {
		parts = append(parts, activity)
	}
	return strings.Join(parts, SummarySeparator)
}
