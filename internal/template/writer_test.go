package template

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/pdf-excel-mapper/internal/fields"
)

// buildTemplate returns a workbook with a title, a prefilled mapped cell
// and a prefilled notes cell
func buildTemplate(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetCellStr("Sheet1", "A1", "Company report"))
	require.NoError(t, f.SetCellStr("Sheet1", "A14", "Company name"))
	require.NoError(t, f.SetCellStr("Sheet1", "B14", "placeholder"))
	require.NoError(t, f.SetCellStr("Sheet1", "B16", "keep me"))
	require.NoError(t, f.SetCellStr("Sheet1", "B10", "old notes"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func readCell(t *testing.T, data []byte, sheet, cell string) string {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(sheet, cell)
	require.NoError(t, err)
	return v
}

func TestWriter_WritesNonEmptyFields(t *testing.T) {
	w, err := NewWriter(Config{})
	require.NoError(t, err)

	tmpl := buildTemplate(t)
	fm := fields.NewFieldMap()
	fm.Set(fields.CompanyName, "Acme AS")
	fm.Set(fields.OrgNumber, "123-456-789")
	fm.Set(fields.EmployeeCount, "17")

	out, err := w.Write(tmpl, fm, "")
	require.NoError(t, err)

	assert.Equal(t, "Acme AS", readCell(t, out, "Sheet1", "B14"))
	assert.Equal(t, "123-456-789", readCell(t, out, "Sheet1", "B15"))
	assert.Equal(t, "17", readCell(t, out, "Sheet1", "B22"))

	// empty fields leave the template content alone
	assert.Equal(t, "keep me", readCell(t, out, "Sheet1", "B16"))
	assert.Equal(t, "", readCell(t, out, "Sheet1", "B17"))

	// unmapped cells are untouched
	assert.Equal(t, "Company report", readCell(t, out, "Sheet1", "A1"))
	assert.Equal(t, "Company name", readCell(t, out, "Sheet1", "A14"))

	// no summary, notes untouched
	assert.Equal(t, "old notes", readCell(t, out, "Sheet1", "B10"))
}

func TestWriter_Notes(t *testing.T) {
	w, err := NewWriter(Config{})
	require.NoError(t, err)

	out, err := w.Write(buildTemplate(t), fields.NewFieldMap(), "Acme AS – Software consulting")
	require.NoError(t, err)

	assert.Equal(t, "Kort info om företaget:\nAcme AS – Software consulting", readCell(t, out, "Sheet1", "B10"))
	assert.Equal(t, "placeholder", readCell(t, out, "Sheet1", "B14"))
}

func TestWriter_DoesNotMutateTemplate(t *testing.T) {
	w, err := NewWriter(Config{})
	require.NoError(t, err)

	tmpl := buildTemplate(t)
	original := append([]byte(nil), tmpl...)

	fm := fields.NewFieldMap()
	fm.Set(fields.CompanyName, "First AS")
	first, err := w.Write(tmpl, fm, "first")
	require.NoError(t, err)

	fm.Set(fields.CompanyName, "Second AS")
	second, err := w.Write(tmpl, fm, "")
	require.NoError(t, err)

	assert.Equal(t, original, tmpl)
	assert.Equal(t, "First AS", readCell(t, first, "Sheet1", "B14"))
	assert.Equal(t, "Second AS", readCell(t, second, "Sheet1", "B14"))
	// the second run starts from the pristine template, not the first output
	assert.Equal(t, "old notes", readCell(t, second, "Sheet1", "B10"))
	assert.Equal(t, "placeholder", readCell(t, tmpl, "Sheet1", "B14"))
}

func TestWriter_ActiveAndNamedSheets(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	idx, err := f.NewSheet("Report")
	require.NoError(t, err)
	f.SetActiveSheet(idx)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	tmpl := buf.Bytes()

	fm := fields.NewFieldMap()
	fm.Set(fields.CompanyName, "Acme AS")

	w, err := NewWriter(Config{})
	require.NoError(t, err)
	out, err := w.Write(tmpl, fm, "")
	require.NoError(t, err)
	assert.Equal(t, "Acme AS", readCell(t, out, "Report", "B14"))
	assert.Equal(t, "", readCell(t, out, "Data", "B14"))

	w, err = NewWriter(Config{Sheet: "Data"})
	require.NoError(t, err)
	out, err = w.Write(tmpl, fm, "")
	require.NoError(t, err)
	assert.Equal(t, "Acme AS", readCell(t, out, "Data", "B14"))

	w, err = NewWriter(Config{Sheet: "Missing"})
	require.NoError(t, err)
	_, err = w.Write(tmpl, fm, "")
	assert.ErrorContains(t, err, `sheet "Missing" not found`)
}

func TestWriter_CustomLayout(t *testing.T) {
	w, err := NewWriter(Config{
		Cells: []Cell{{Key: fields.City, Address: " c3 "}},
		Notes: Notes{Cell: "D1", Label: "About:"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Cell{{Key: fields.City, Address: "C3"}}, w.Cells())

	fm := fields.NewFieldMap()
	fm.Set(fields.City, "Oslo")
	fm.Set(fields.CompanyName, "not mapped")

	out, err := w.Write(buildTemplate(t), fm, "summary")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", readCell(t, out, "Sheet1", "C3"))
	assert.Equal(t, "placeholder", readCell(t, out, "Sheet1", "B14"))
	assert.Equal(t, "About:\nsummary", readCell(t, out, "Sheet1", "D1"))
}

func TestNewWriter_InvalidLayout(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad address", Config{Cells: []Cell{{Key: fields.City, Address: "14B"}}}},
		{"unknown key", Config{Cells: []Cell{{Key: "vat", Address: "B1"}}}},
		{"duplicate key", Config{Cells: []Cell{{Key: fields.City, Address: "B1"}, {Key: fields.City, Address: "B2"}}}},
		{"bad notes cell", Config{Notes: Notes{Cell: "notes"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWriter(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestWriter_MalformedTemplate(t *testing.T) {
	w, err := NewWriter(Config{})
	require.NoError(t, err)

	_, err = w.Write(nil, fields.NewFieldMap(), "")
	assert.ErrorIs(t, err, ErrEmptyTemplate)

	_, err = w.Write([]byte("this is not a workbook"), fields.NewFieldMap(), "")
	assert.ErrorContains(t, err, "failed to open workbook")
}

func TestCellsWithOverrides(t *testing.T) {
	cells, err := CellsWithOverrides(map[string]string{
		"company_name": "C3",
		"homepage":     "",
		"email":        "B23",
	})
	require.NoError(t, err)

	byKey := make(map[fields.Key]string, len(cells))
	for _, c := range cells {
		byKey[c.Key] = c.Address
	}
	assert.Equal(t, "C3", byKey[fields.CompanyName])
	assert.Equal(t, "B15", byKey[fields.OrgNumber])
	assert.Equal(t, "B23", byKey[fields.Email])
	_, ok := byKey[fields.Homepage]
	assert.False(t, ok)
	assert.Len(t, cells, len(DefaultCells))

	_, err = CellsWithOverrides(map[string]string{"ceo": "A1"})
	assert.Error(t, err)
}
