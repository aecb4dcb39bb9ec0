// Package template writes field values into fixed cells of a spreadsheet template.
package template

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/pdf-excel-mapper/internal/fields"
)

// ErrEmptyTemplate is returned when no template bytes are supplied
var ErrEmptyTemplate = errors.New("template is empty")

// Cell binds a field to a cell address such as "B14"
type Cell struct {
	Key     fields.Key
	Address string
}

// DefaultCells is the layout of the supplied company template
var DefaultCells = []Cell{
	{Key: fields.CompanyName, Address: "B14"},
	{Key: fields.OrgNumber, Address: "B15"},
	{Key: fields.Address, Address: "B16"},
	{Key: fields.PostCode, Address: "B17"},
	{Key: fields.NACECode, Address: "B18"},
	{Key: fields.Turnover, Address: "B19"},
	{Key: fields.Homepage, Address: "B21"},
	{Key: fields.EmployeeCount, Address: "B22"},
}

// CellsWithOverrides returns DefaultCells with the addresses of the given
// keys replaced; keys without a default cell are appended in sorted order.
// An empty address removes the mapping.
func CellsWithOverrides(overrides map[string]string) ([]Cell, error) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	replaced := make(map[fields.Key]string, len(overrides))
	var extra []Cell
	for _, k := range keys {
		key, err := fields.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("template: %w", err)
		}
		replaced[key] = overrides[k]
		if !hasDefaultCell(key) && overrides[k] != "" {
			extra = append(extra, Cell{Key: key, Address: overrides[k]})
		}
	}

	out := make([]Cell, 0, len(DefaultCells)+len(extra))
	for _, c := range DefaultCells {
		if addr, ok := replaced[c.Key]; ok {
			if addr == "" {
				continue
			}
			c.Address = addr
		}
		out = append(out, c)
	}
	return append(out, extra...), nil
}

func hasDefaultCell(key fields.Key) bool {
	for _, c := range DefaultCells {
		if c.Key == key {
			return true
		}
	}
	return false
}

// Notes describes the free-text summary cell
type Notes struct {
	Cell  string
	Label string
}

// DefaultNotes is the summary cell of the supplied company template
var DefaultNotes = Notes{
	Cell:  "B10",
	Label: "Kort info om företaget:",
}

// Text renders the notes cell value: label, newline, summary
func (n Notes) Text(summary string) string {
	if n.Label == "" {
		return summary
	}
	return n.Label + "\n" + summary
}

// Config selects the target sheet and cell layout
type Config struct {
	// Sheet is the worksheet to write; empty means the active sheet
	Sheet string
	Cells []Cell
	Notes Notes
}

// Writer fills templates. It keeps only the validated layout and is safe for concurrent use.
type Writer struct {
	sheet string
	cells []Cell
	notes Notes
}

// NewWriter validates every cell address of cfg. Nil Cells or an empty
// notes cell fall back to the defaults.
func NewWriter(cfg Config) (*Writer, error) {
	cells := cfg.Cells
	if cells == nil {
		cells = DefaultCells
	}
	notes := cfg.Notes
	if notes.Cell == "" {
		notes.Cell = DefaultNotes.Cell
		if notes.Label == "" {
			notes.Label = DefaultNotes.Label
		}
	}

	seen := make(map[fields.Key]bool, len(cells))
	normalized := make([]Cell, 0, len(cells))
	for _, c := range cells {
		if _, err := fields.ParseKey(string(c.Key)); err != nil {
			return nil, fmt.Errorf("template: %w", err)
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("template: duplicate cell mapping for field %q", c.Key)
		}
		seen[c.Key] = true

		addr, err := normalizeAddress(c.Address)
		if err != nil {
			return nil, fmt.Errorf("template: field %q: %w", c.Key, err)
		}
		normalized = append(normalized, Cell{Key: c.Key, Address: addr})
	}

	addr, err := normalizeAddress(notes.Cell)
	if err != nil {
		return nil, fmt.Errorf("template: notes cell: %w", err)
	}
	notes.Cell = addr

	return &Writer{sheet: cfg.Sheet, cells: normalized, notes: notes}, nil
}

func normalizeAddress(addr string) (string, error) {
	addr = strings.ToUpper(strings.TrimSpace(addr))
	if _, _, err := excelize.CellNameToCoordinates(addr); err != nil {
		return "", fmt.Errorf("invalid cell address %q: %w", addr, err)
	}
	return addr, nil
}

// Cells returns a copy of the layout
func (w *Writer) Cells() []Cell {
	return append([]Cell(nil), w.cells...)
}

// Write opens an independent workbook from tmpl, writes every non-empty
// mapped field and, when summary is non-empty, the notes cell. Cells of
// empty fields keep the template's content. tmpl itself is never modified.
func (w *Writer) Write(tmpl []byte, fm fields.FieldMap, summary string) ([]byte, error) {
	if len(tmpl) == 0 {
		return nil, fmt.Errorf("template: %w", ErrEmptyTemplate)
	}

	f, err := excelize.OpenReader(bytes.NewReader(tmpl))
	if err != nil {
		return nil, fmt.Errorf("template: failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := w.targetSheet(f)
	if err != nil {
		return nil, err
	}

	for _, c := range w.cells {
		v := fm.Get(c.Key)
		if v == "" {
			continue
		}
		if err := f.SetCellStr(sheet, c.Address, v); err != nil {
			return nil, fmt.Errorf("template: failed to write %s!%s: %w", sheet, c.Address, err)
		}
	}

	if summary != "" {
		if err := f.SetCellStr(sheet, w.notes.Cell, w.notes.Text(summary)); err != nil {
			return nil, fmt.Errorf("template: failed to write notes %s!%s: %w", sheet, w.notes.Cell, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("template: failed to save workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *Writer) targetSheet(f *excelize.File) (string, error) {
	if w.sheet != "" {
		idx, err := f.GetSheetIndex(w.sheet)
		if err != nil || idx < 0 {
			return "", fmt.Errorf("template: sheet %q not found", w.sheet)
		}
		return w.sheet, nil
	}

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return "", errors.New("template: workbook has no active sheet")
	}
	return sheet, nil
}
