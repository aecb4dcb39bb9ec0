package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-excel-mapper/internal/fields"
	"github.com/a3tai/pdf-excel-mapper/internal/pdf/pdftest"
	"github.com/a3tai/pdf-excel-mapper/internal/registry"
)

func writePDF(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Build(lines...), 0o644))
	return path
}

func TestExtractFields(t *testing.T) {
	path := writePDF(t, "Company Name: Acme AS", "Org Number: 123-456-789")

	result := extractFields(context.Background(), path, nil, true)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, "Acme AS", result.Fields.Get(fields.CompanyName))
	assert.Equal(t, "123-456-789", result.Fields.Get(fields.OrgNumber))
	assert.ElementsMatch(t, []fields.Key{fields.CompanyName, fields.OrgNumber}, result.Matched)
	assert.Contains(t, result.Text, "Acme AS")
	assert.Nil(t, result.Registry)
}

func TestExtractFields_WithLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enheter/123456789", r.URL.Path)
		_, _ = w.Write([]byte(`{"navn": "Acme AS", "naeringskode1": {"beskrivelse": "Software consulting"}}`))
	}))
	defer srv.Close()

	resolver := registry.NewResolver(registry.DefaultStrategies(registry.NewClient(srv.URL, 2*time.Second)))
	path := writePDF(t, "Company Name: Acme", "Org Number: 123-456-789")

	result := extractFields(context.Background(), path, resolver, false)

	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Registry)
	assert.Equal(t, registry.StatusFound, result.Registry.Status)
	assert.Equal(t, "Acme AS – Software consulting", result.Registry.Summary)
	assert.Empty(t, result.Text)
}

func TestExtractFields_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	result := extractFields(context.Background(), path, nil, false)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestOutputResults(t *testing.T) {
	fm := fields.NewFieldMap()
	fm.Set(fields.CompanyName, "Acme AS")
	result := &FieldExtractionResult{
		FilePath: "/tmp/profile.pdf",
		Success:  true,
		Pages:    1,
		Fields:   fm,
		Matched:  []fields.Key{fields.CompanyName},
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, outputResults(&buf, "text", result))
		assert.Contains(t, buf.String(), "Matched 1 of 10 fields")
		assert.Contains(t, buf.String(), "Acme AS")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, outputResults(&buf, "json", result))
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, true, decoded["success"])
		assert.Equal(t, "Acme AS", decoded["fields"].(map[string]any)["company_name"])
	})

	t.Run("failure", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, outputResults(&buf, "text", &FieldExtractionResult{Error: "boom"}))
		assert.Contains(t, buf.String(), "Field extraction failed: boom")
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, outputResults(&bytes.Buffer{}, "xml", result))
	})
}
