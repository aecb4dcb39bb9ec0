package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/pdf-excel-mapper/internal/config"
	"github.com/a3tai/pdf-excel-mapper/internal/descriptions"
	"github.com/a3tai/pdf-excel-mapper/internal/pdf"
	"github.com/a3tai/pdf-excel-mapper/internal/pipeline"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	docs      *pdf.Service
	pipeline  *pipeline.Pipeline
	resolver  pipeline.Resolver
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, docs *pdf.Service, pipe *pipeline.Pipeline, resolver pipeline.Resolver, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if docs == nil {
		return nil, fmt.Errorf("document service cannot be nil")
	}
	if pipe == nil || resolver == nil {
		return nil, fmt.Errorf("pipeline and resolver cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		docs:      docs,
		pipeline:  pipe,
		resolver:  resolver,
		logger:    logger,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_extract_fields",
		mcp.WithDescription(descriptions.PDFExtractFieldsDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, relative to the work directory"),
		),
	), s.handleExtractFields)

	s.mcpServer.AddTool(mcp.NewTool(
		"registry_lookup",
		mcp.WithDescription(descriptions.RegistryLookupDescription),
		mcp.WithString("org_number",
			mcp.Description("Organisation number; separators are ignored"),
		),
		mcp.WithString("name",
			mcp.Description("Company name, used when no organisation number matches"),
		),
	), s.handleRegistryLookup)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_fill_template",
		mcp.WithDescription(descriptions.PDFFillTemplateDescription),
		mcp.WithString("pdf_path",
			mcp.Required(),
			mcp.Description("Path to the company PDF"),
		),
		mcp.WithString("template_path",
			mcp.Required(),
			mcp.Description("Path to the .xlsx template"),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the filled workbook (default: <template>_updated.xlsx)"),
		),
	), s.handleFillTemplate)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription(descriptions.PDFValidateFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	), s.handleValidateFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"mapper_server_info",
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

// Handler functions
func (s *Server) handleExtractFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := s.docs.LoadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.pipeline.ExtractDocument(ctx, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"path":    path,
		"fields":  res.Fields,
		"matched": res.Matched,
	})
}

func (s *Server) handleRegistryLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	orgNumber := optionalString(args, "org_number")
	name := optionalString(args, "name")
	if orgNumber == "" && name == "" {
		return mcp.NewToolResultError("org_number or name is required"), nil
	}

	resolution := s.resolver.Resolve(ctx, orgNumber, name)

	out := map[string]any{
		"status":   resolution.Status,
		"strategy": resolution.Strategy,
		"trusted":  resolution.Trusted,
		"summary":  resolution.Summary,
	}
	if resolution.Fields != nil {
		out["fields"] = resolution.Fields
	}
	if resolution.Err != nil {
		out["error"] = resolution.Err.Error()
	}
	return jsonResult(out)
}

func (s *Server) handleFillTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pdfPath, err := request.RequireString("pdf_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	templatePath, err := request.RequireString("template_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath := optionalString(request.GetArguments(), "output_path")
	if outputPath == "" {
		outputPath = DefaultOutputPath(templatePath)
	}
	if err := s.docs.CheckOutput(outputPath, templatePath, pdfPath); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	document, err := s.docs.LoadFile(pdfPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tmpl, err := s.docs.LoadFile(templatePath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.pipeline.Run(ctx, pipeline.Input{Document: document, Template: tmpl})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	written, err := s.docs.WriteOutput(outputPath, res.Workbook)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Info("template filled", "request_id", res.RequestID, "output", written)

	return jsonResult(map[string]any{
		"output_path": written,
		"request_id":  res.RequestID,
		"fields":      res.Fields,
		"summary":     res.Summary,
		"source":      res.Source,
		"trusted":     res.Trusted,
	})
}

func (s *Server) handleValidateFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.docs.ValidateFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d pages, %d bytes)", path, result.Pages, result.Size)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", path, result.Message)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

func (s *Server) formatServerInfo() string {
	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Work Directory: %s\n", s.docs.Directory())
	text += fmt.Sprintf("Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	if s.config.RegistryEnabled() {
		text += fmt.Sprintf("Registry: %s (timeout %s)\n", s.config.Registry.URL, s.config.Registry.Timeout)
	} else {
		text += "Registry: disabled\n"
	}

	if layout, err := s.config.TemplateLayout(); err == nil {
		sheet := layout.Sheet
		if sheet == "" {
			sheet = "(active sheet)"
		}
		text += fmt.Sprintf("\nTemplate sheet: %s\n", sheet)
		for _, c := range layout.Cells {
			text += fmt.Sprintf("  %s -> %s\n", c.Key, c.Address)
		}
		text += fmt.Sprintf("  notes -> %s\n", layout.Notes.Cell)
	}

	text += "\nAvailable Tools:\n"
	for _, tool := range descriptions.Tools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}
	return text
}

// DefaultOutputPath places the filled workbook next to the template
func DefaultOutputPath(templatePath string) string {
	ext := filepath.Ext(templatePath)
	return strings.TrimSuffix(templatePath, ext) + "_updated.xlsx"
}

func optionalString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// HTTPHandler exposes the tools over the streamable HTTP transport
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// Run serves MCP over standard I/O until stdin closes
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("starting MCP server in stdio mode", "work_directory", s.docs.Directory())

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
