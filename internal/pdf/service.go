package pdf

import (
	"errors"
	"fmt"
	"os"

	"github.com/a3tai/pdf-excel-mapper/internal/pdf/security"
)

// ErrOutputIsInput is returned when an output path resolves to an input file
var ErrOutputIsInput = errors.New("output path must differ from the input files")

// Service handles file-based document access for tool callers, confining
// every path to the configured directory
type Service struct {
	maxFileSize   int64
	reader        *Reader
	validator     *Validator
	pathValidator *security.PathValidator
}

// NewService creates a new PDF service rooted at configuredDirectory
func NewService(maxFileSize int64, configuredDirectory string) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		reader:        NewReader(maxFileSize),
		validator:     NewValidator(maxFileSize),
		pathValidator: pathValidator,
	}, nil
}

// Reader returns the in-memory extractor used by the pipeline
func (s *Service) Reader() *Reader {
	return s.reader
}

// Directory returns the configured work directory
func (s *Service) Directory() string {
	return s.pathValidator.Root()
}

// ReadDocument extracts the text layer of a PDF under the work directory
func (s *Service) ReadDocument(path string) (*Document, error) {
	resolved, err := s.pathValidator.ResolveInput(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.reader.ReadFile(resolved)
}

// ValidateFile checks whether a file under the work directory is a readable PDF
func (s *Service) ValidateFile(path string) (*ValidationResult, error) {
	data, err := s.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return s.validator.Check(data), nil
}

// LoadFile reads any input file (document or template) under the work
// directory, bounded by the maximum file size
func (s *Service) LoadFile(path string) ([]byte, error) {
	resolved, err := s.pathValidator.ResolveInput(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > s.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), s.maxFileSize)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	return data, nil
}

// WriteOutput stores data at path under the work directory
func (s *Service) WriteOutput(path string, data []byte) (string, error) {
	resolved, err := s.pathValidator.ResolveOutput(path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o600); err != nil {
		return "", fmt.Errorf("cannot write output: %w", err)
	}
	return resolved, nil
}

// CheckOutput fails with ErrOutputIsInput when writing to path would
// overwrite one of the given input files. Inputs that cannot be resolved
// are ignored; loading them reports the problem.
func (s *Service) CheckOutput(path string, inputs ...string) error {
	out, err := s.pathValidator.ResolveOutput(path)
	if err != nil {
		return fmt.Errorf("security validation failed: %w", err)
	}
	outInfo, outErr := os.Stat(out)

	for _, input := range inputs {
		resolved, err := s.pathValidator.ResolveInput(input)
		if err != nil {
			continue
		}
		if resolved == out {
			return fmt.Errorf("%w: %s", ErrOutputIsInput, path)
		}
		// hard links and case-insensitive file systems
		if outErr == nil {
			if inInfo, err := os.Stat(resolved); err == nil && os.SameFile(inInfo, outInfo) {
				return fmt.Errorf("%w: %s", ErrOutputIsInput, path)
			}
		}
	}
	return nil
}
