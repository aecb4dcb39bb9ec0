package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdf-excel-mapper/internal/fields"
	"github.com/a3tai/pdf-excel-mapper/internal/registry"
	"github.com/a3tai/pdf-excel-mapper/internal/template"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "PDF_EXCEL"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is passed
var ErrVersionRequested = errors.New("version requested")

// RegistryConfig configures the company registry client
type RegistryConfig struct {
	// URL is the API root; empty disables registry enrichment
	URL     string
	Timeout time.Duration
}

// TemplateConfig selects the sheet and cells written into the template
type TemplateConfig struct {
	Sheet      string
	NotesCell  string
	NotesLabel string
	// Cells overrides the default field → address layout
	Cells map[string]string
}

// SummaryConfig controls the notes text when the registry has none
type SummaryConfig struct {
	DocumentExcerpt bool
	MaxSentences    int
}

// Config holds all configuration for the mapper
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// WorkDirectory confines the files MCP tools may read and write
	WorkDirectory string
	ConfigFile    string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum upload size in bytes

	Registry RegistryConfig
	Template TemplateConfig
	Summary  SummaryConfig
	// Patterns overrides the default field → label expression table
	Patterns map[string]string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio,
		Host:          DefaultHost,
		Port:          DefaultPort,
		WorkDirectory: currentDir,
		Version:       "1.0.0",
		ServerName:    "pdf-excel-mapper",
		LogLevel:      DefaultLogLevel,
		MaxFileSize:   DefaultMaxFileSize,
		Registry: RegistryConfig{
			URL:     registry.DefaultBaseURL,
			Timeout: registry.DefaultTimeout,
		},
		Template: TemplateConfig{
			NotesCell:  template.DefaultNotes.Cell,
			NotesLabel: template.DefaultNotes.Label,
		},
		Summary: SummaryConfig{
			MaxSentences: fields.DefaultSummarySentences,
		},
	}
}

// LoadFromFlags parses command line flags, environment and the optional
// config file, and returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", file, err)
		}
	}

	populateConfigFromViper(cfg)

	if cfg.WorkDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.WorkDirectory); err == nil {
			cfg.WorkDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// PDF_EXCEL_REGISTRY_URL= disables the registry
	viper.AllowEmptyEnv(true)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.WorkDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("config", "")

	viper.SetDefault("registry.url", cfg.Registry.URL)
	viper.SetDefault("registry.timeout", cfg.Registry.Timeout)
	viper.SetDefault("template.sheet", cfg.Template.Sheet)
	viper.SetDefault("template.notes_cell", cfg.Template.NotesCell)
	viper.SetDefault("template.notes_label", cfg.Template.NotesLabel)
	viper.SetDefault("summary.document_excerpt", cfg.Summary.DocumentExcerpt)
	viper.SetDefault("summary.max_sentences", cfg.Summary.MaxSentences)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for the HTTP upload API")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.WorkDirectory, "Directory MCP tools may read documents and templates from")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum upload size in bytes")
	pflag.String("config", "", "Config file (YAML, JSON or TOML) with registry, template and pattern settings")
	pflag.String("registry-url", cfg.Registry.URL, "Company registry API root (empty disables lookups)")
	pflag.Duration("registry-timeout", cfg.Registry.Timeout, "Timeout for a single registry request")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
	_ = viper.BindPFlag("config", pflag.Lookup("config"))
	_ = viper.BindPFlag("registry.url", pflag.Lookup("registry-url"))
	_ = viper.BindPFlag("registry.timeout", pflag.Lookup("registry-timeout"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Excel Mapper - fills a spreadsheet template from a company PDF\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                     # MCP stdio mode, current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081           # HTTP upload API\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config=mapper.yaml --registry-url= # custom layout, no registry\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PDF_EXCEL_MODE              Run mode\n")
		fmt.Fprintf(os.Stderr, "  PDF_EXCEL_HOST              Server host\n")
		fmt.Fprintf(os.Stderr, "  PDF_EXCEL_PORT              Server port\n")
		fmt.Fprintf(os.Stderr, "  PDF_EXCEL_DIR               Work directory\n")
		fmt.Fprintf(os.Stderr, "  PDF_EXCEL_LOGLEVEL          Log level\n")
		fmt.Fprintf(os.Stderr, "  PDF_EXCEL_MAXFILESIZE       Maximum upload size\n")
		fmt.Fprintf(os.Stderr, "  PDF_EXCEL_REGISTRY_URL      Registry API root\n")
		fmt.Fprintf(os.Stderr, "  PDF_EXCEL_REGISTRY_TIMEOUT  Registry request timeout\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.WorkDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.ConfigFile = viper.GetString("config")

	cfg.Registry.URL = viper.GetString("registry.url")
	cfg.Registry.Timeout = viper.GetDuration("registry.timeout")
	cfg.Template.Sheet = viper.GetString("template.sheet")
	cfg.Template.NotesCell = viper.GetString("template.notes_cell")
	cfg.Template.NotesLabel = viper.GetString("template.notes_label")
	cfg.Template.Cells = viper.GetStringMapString("template.cells")
	cfg.Summary.DocumentExcerpt = viper.GetBool("summary.document_excerpt")
	cfg.Summary.MaxSentences = viper.GetInt("summary.max_sentences")
	cfg.Patterns = viper.GetStringMapString("fields.patterns")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.WorkDirectory == "" {
		return errors.New("work directory cannot be empty")
	}

	if _, err := os.Stat(c.WorkDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.WorkDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create work directory %s: %w", c.WorkDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access work directory %s: %w", c.WorkDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.Registry.URL != "" && !strings.HasPrefix(c.Registry.URL, "http://") && !strings.HasPrefix(c.Registry.URL, "https://") {
		return fmt.Errorf("registry url must be http or https: %s", c.Registry.URL)
	}
	if c.Registry.Timeout <= 0 {
		return errors.New("registry timeout must be positive")
	}

	if c.Summary.MaxSentences < 0 {
		return errors.New("summary max sentences cannot be negative")
	}

	if _, err := c.FieldPatterns(); err != nil {
		return fmt.Errorf("fields.patterns: %w", err)
	}
	if _, err := c.TemplateLayout(); err != nil {
		return err
	}

	return nil
}

// FieldPatterns returns the default patterns with configured overrides applied
func (c *Config) FieldPatterns() ([]fields.Pattern, error) {
	patterns, err := fields.PatternsWithOverrides(c.Patterns)
	if err != nil {
		return nil, err
	}
	// compile once to surface bad expressions at startup
	if _, err := fields.NewExtractor(patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// TemplateLayout returns the template writer configuration
func (c *Config) TemplateLayout() (template.Config, error) {
	cells, err := template.CellsWithOverrides(c.Template.Cells)
	if err != nil {
		return template.Config{}, err
	}
	layout := template.Config{
		Sheet: c.Template.Sheet,
		Cells: cells,
		Notes: template.Notes{Cell: c.Template.NotesCell, Label: c.Template.NotesLabel},
	}
	if _, err := template.NewWriter(layout); err != nil {
		return template.Config{}, err
	}
	return layout, nil
}

// RegistryEnabled reports whether registry enrichment is configured
func (c *Config) RegistryEnabled() bool {
	return c.Registry.URL != ""
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, WorkDirectory: %s, LogLevel: %s, MaxFileSize: %d, Registry: %s}",
		c.Mode, c.Host, c.Port, c.WorkDirectory, c.LogLevel, c.MaxFileSize, c.Registry.URL)
}

// IsServerMode returns true if the mapper serves the HTTP upload API
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the mapper runs as an MCP stdio server
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
