package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/a3tai/pdf-excel-mapper/internal/config"
	"github.com/a3tai/pdf-excel-mapper/internal/fields"
	"github.com/a3tai/pdf-excel-mapper/internal/pdf"
	"github.com/a3tai/pdf-excel-mapper/internal/registry"
)

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	verbose      = flag.Bool("verbose", false, "Include the extracted document text")
	lookup       = flag.Bool("lookup", false, "Resolve the company in the business registry")
	registryURL  = flag.String("registry-url", registry.DefaultBaseURL, "Business registry base URL")
	help         = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	var resolver *registry.Resolver
	if *lookup {
		client := registry.NewClient(*registryURL, registry.DefaultTimeout)
		resolver = registry.NewResolver(registry.DefaultStrategies(client))
	}

	result := extractFields(context.Background(), pdfPath, resolver, *verbose)

	if err := outputResults(os.Stdout, *outputFormat, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
	if !result.Success {
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("PDF Extract Fields - Show the company fields the mapper reads from a PDF")
	fmt.Println()
	fmt.Println("Runs the same label patterns as the mapper server against one file, so a")
	fmt.Println("document layout can be checked before filling templates from it.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -verbose       Include the extracted document text")
	fmt.Println("  -lookup        Resolve the company in the business registry")
	fmt.Println("  -registry-url  Registry base URL (default: " + registry.DefaultBaseURL + ")")
	fmt.Println("  -help          Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf_extract_fields acme-profile.pdf")
	fmt.Println("  pdf_extract_fields -format json -lookup acme-profile.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  pdf_extract_fields [OPTIONS] <pdf_file>")
}

// FieldExtractionResult is the outcome for one file
type FieldExtractionResult struct {
	FilePath       string               `json:"file_path"`
	Success        bool                 `json:"success"`
	Pages          int                  `json:"pages,omitempty"`
	Fields         fields.FieldMap      `json:"fields,omitempty"`
	Matched        []fields.Key         `json:"matched,omitempty"`
	Registry       *registry.Resolution `json:"registry,omitempty"`
	Text           string               `json:"text,omitempty"`
	Error          string               `json:"error,omitempty"`
	ExtractionTime string               `json:"extraction_time,omitempty"`
}

func extractFields(ctx context.Context, pdfPath string, resolver *registry.Resolver, withText bool) *FieldExtractionResult {
	start := time.Now()

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		absPath = pdfPath
	}
	result := &FieldExtractionResult{FilePath: absPath}

	doc, err := pdf.NewReader(config.DefaultMaxFileSize).ReadFile(absPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	extractor := fields.MustNewExtractor(fields.DefaultPatterns)
	result.Success = true
	result.Pages = doc.Pages
	result.Fields = extractor.Extract(doc.Text)
	result.Matched = extractor.Matched(doc.Text)
	if withText {
		result.Text = doc.Text
	}

	if resolver != nil {
		res := resolver.Resolve(ctx, result.Fields.Get(fields.OrgNumber), result.Fields.Get(fields.CompanyName))
		result.Registry = &res
	}

	result.ExtractionTime = time.Since(start).String()
	return result
}

func outputResults(w io.Writer, format string, result *FieldExtractionResult) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		return outputText(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputText(w io.Writer, result *FieldExtractionResult) error {
	if !result.Success {
		_, err := fmt.Fprintf(w, "❌ Field extraction failed: %s\n", result.Error)
		return err
	}

	fmt.Fprintf(w, "File: %s (%d pages)\n", result.FilePath, result.Pages)
	if len(result.Matched) == 0 {
		fmt.Fprintln(w, "⚠️  No labelled fields detected in the PDF")
	} else {
		fmt.Fprintf(w, "📊 Matched %d of %d fields\n", len(result.Matched), len(fields.Keys))
	}
	fmt.Fprintln(w)

	for _, key := range fields.Keys {
		value := result.Fields.Get(key)
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "  %-16s %s\n", key, value)
	}

	if r := result.Registry; r != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Registry: %s", r.Status)
		if r.Strategy != "" {
			fmt.Fprintf(w, " (%s)", r.Strategy)
		}
		fmt.Fprintln(w)
		if r.Summary != "" {
			fmt.Fprintf(w, "  %s\n", r.Summary)
		}
		if r.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", r.Err)
		}
	}

	if result.Text != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "TEXT:")
		fmt.Fprintln(w, result.Text)
	}
	return nil
}
