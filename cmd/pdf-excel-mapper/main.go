package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/pdf-excel-mapper/internal/config"
	"github.com/a3tai/pdf-excel-mapper/internal/fields"
	"github.com/a3tai/pdf-excel-mapper/internal/httpapi"
	"github.com/a3tai/pdf-excel-mapper/internal/logging"
	"github.com/a3tai/pdf-excel-mapper/internal/mcp"
	"github.com/a3tai/pdf-excel-mapper/internal/metrics"
	"github.com/a3tai/pdf-excel-mapper/internal/pdf"
	"github.com/a3tai/pdf-excel-mapper/internal/pipeline"
	"github.com/a3tai/pdf-excel-mapper/internal/registry"
	"github.com/a3tai/pdf-excel-mapper/internal/template"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 10 * time.Second

// app holds the wired components shared by both modes
type app struct {
	handler  *httpapi.Handler
	mcp      *mcp.Server
	registry *prometheus.Registry
}

// buildApp wires config into the pipeline and its transports
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	patterns, err := cfg.FieldPatterns()
	if err != nil {
		return nil, err
	}
	extractor, err := fields.NewExtractor(patterns)
	if err != nil {
		return nil, err
	}

	layout, err := cfg.TemplateLayout()
	if err != nil {
		return nil, err
	}
	writer, err := template.NewWriter(layout)
	if err != nil {
		return nil, err
	}

	var strategies []registry.Strategy
	if cfg.RegistryEnabled() {
		strategies = registry.DefaultStrategies(registry.NewClient(cfg.Registry.URL, cfg.Registry.Timeout))
	} else {
		logger.Warn("registry disabled, document values are used as-is")
	}
	resolver := registry.NewResolver(strategies,
		registry.WithLogger(logger),
		registry.WithRecorder(m),
	)

	docs, err := pdf.NewService(cfg.MaxFileSize, cfg.WorkDirectory)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(m),
	}
	if cfg.Summary.DocumentExcerpt {
		opts = append(opts, pipeline.WithDocumentExcerpt(cfg.Summary.MaxSentences))
	}
	pipe := pipeline.New(docs.Reader(), extractor, resolver, writer, opts...)

	server, err := mcp.NewServer(cfg, docs, pipe, resolver, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}

	return &app{
		handler:  httpapi.New(pipe, cfg.MaxFileSize, logger),
		mcp:      server,
		registry: reg,
	}, nil
}

// router mounts the upload API, metrics and the MCP HTTP transport
func (a *app) router(logger *slog.Logger) http.Handler {
	return httpapi.NewRouter(a.handler, logger,
		httpapi.WithMetrics(a.registry),
		httpapi.WithMCP(a.mcp.HTTPHandler()),
	)
}

// runServerMode serves HTTP until ctx is cancelled, then drains
// in-flight requests
func runServerMode(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runStdioMode serves MCP on stdin/stdout; the parent process controls
// our lifecycle
func runStdioMode(ctx context.Context, a *app) error {
	return a.mcp.Run(ctx)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.IsServerMode() {
		srv := &http.Server{
			Addr:              cfg.Address(),
			Handler:           a.router(logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return runServerMode(ctx, srv, logger)
	}
	return runStdioMode(ctx, a)
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := logging.New(cfg.LogLevel)
	logger.Debug("starting with configuration", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF Excel Mapper\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
