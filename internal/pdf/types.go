package pdf

// Document is the text layer of an uploaded PDF
type Document struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
	Size  int64  `json:"size"`
}

// ValidationResult reports whether bytes form a readable PDF
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Pages   int    `json:"pages,omitempty"`
	Size    int64  `json:"size"`
	Message string `json:"message,omitempty"`
}
