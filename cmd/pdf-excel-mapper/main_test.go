package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-excel-mapper/internal/config"
)

const testVersion = "1.2.3"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WorkDirectory = t.TempDir()
	cfg.Registry.URL = ""
	return cfg
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	output := captureStdout(t, printVersion)

	for _, expected := range []string{
		"PDF Excel Mapper",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestBuildApp(t *testing.T) {
	a, err := buildApp(testConfig(t), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, a.handler)
	require.NotNil(t, a.mcp)

	srv := httptest.NewServer(a.router(discardLogger()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestBuildApp_InvalidOverrides(t *testing.T) {
	t.Run("unknown pattern field", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Patterns = map[string]string{"shoe_size": `Shoe[:\s]+(\d+)`}
		_, err := buildApp(cfg, discardLogger())
		assert.Error(t, err)
	})

	t.Run("bad cell address", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Template.Cells = map[string]string{"company_name": "not a cell"}
		_, err := buildApp(cfg, discardLogger())
		assert.Error(t, err)
	})
}

func TestRunServerMode_Shutdown(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServerMode(ctx, srv, discardLogger()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServerMode_ListenError(t *testing.T) {
	srv := &http.Server{Addr: "256.0.0.1:bad", Handler: http.NotFoundHandler()}

	err := runServerMode(context.Background(), srv, discardLogger())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to serve http"))
}
