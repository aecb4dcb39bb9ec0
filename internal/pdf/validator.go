package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEmptyDocument is returned when no document bytes are supplied
var ErrEmptyDocument = errors.New("document is empty")

var pdfHeader = []byte("%PDF-")

// Validator handles PDF structural validation
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// Validate checks size, header and cross-reference structure, and
// returns the page count
func (v *Validator) Validate(data []byte) (*ValidationResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if int64(len(data)) > v.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", len(data), v.maxFileSize)
	}
	if !bytes.HasPrefix(data, pdfHeader) {
		return nil, fmt.Errorf("invalid PDF file: missing %%PDF header")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF file: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("invalid PDF file: failed to determine page count: %w", err)
	}

	return &ValidationResult{
		Valid: true,
		Pages: ctx.PageCount,
		Size:  int64(len(data)),
	}, nil
}

// Check runs Validate and folds the error into the result
func (v *Validator) Check(data []byte) *ValidationResult {
	res, err := v.Validate(data)
	if err != nil {
		return &ValidationResult{
			Valid:   false,
			Size:    int64(len(data)),
			Message: err.Error(),
		}
	}
	return res
}
