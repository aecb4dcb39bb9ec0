package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a document has no extractable text layer
var ErrNoText = errors.New("no text content could be extracted from PDF")

// Reader handles PDF text extraction
type Reader struct {
	maxFileSize int64
	maxTextSize int
	validator   *Validator
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
		validator:   NewValidator(maxFileSize),
	}
}

// ReadFile extracts the text layer of a PDF file on disk
func (r *Reader) ReadFile(path string) (*Document, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, fmt.Errorf("file is not a PDF: %s", path)
	}
	if fileInfo.Size() > r.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), r.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	return r.Extract(data)
}

// Extract validates an in-memory PDF and returns its text layer
func (r *Reader) Extract(data []byte) (*Document, error) {
	info, err := r.validator.Validate(data)
	if err != nil {
		return nil, err
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	text, err := r.extractTextContent(pdfReader)
	if err != nil {
		return nil, err
	}

	return &Document{
		Text:  text,
		Pages: info.Pages,
		Size:  int64(len(data)),
	}, nil
}

// ExtractText is Extract returning only the text
func (r *Reader) ExtractText(data []byte) (string, error) {
	doc, err := r.Extract(data)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// extractTextContent concatenates the laid-out lines of every page.
// Pages that fail to decode are skipped.
func (r *Reader) extractTextContent(pdfReader *pdf.Reader) (string, error) {
	var builder strings.Builder
	totalLength := 0

	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		content, ok := r.pageText(pdfReader, pageNum)
		if !ok || content == "" {
			continue
		}

		if totalLength+len(content) > r.maxTextSize {
			builder.WriteString(truncateUTF8(content, r.maxTextSize-totalLength))
			break
		}

		builder.WriteString(content)
		totalLength += len(content)
	}

	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// pageText recovers from decoder panics on malformed content streams
func (r *Reader) pageText(pdfReader *pdf.Reader, pageNum int) (content string, ok bool) {
	defer func() {
		if recover() != nil {
			content, ok = "", false
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return "", false
	}

	return layoutText(page.Content().Text), true
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
