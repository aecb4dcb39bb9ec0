package fields

import "strings"

// DefaultSummarySentences bounds excerpt summaries
const DefaultSummarySentences = 4

// Summarize keeps the first maxSentences ". "-separated sentences of text.
func Summarize(text string, maxSentences int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if maxSentences <= 0 {
		maxSentences = DefaultSummarySentences
	}

	// Collapse layout whitespace from the PDF text layer first
	text = strings.Join(strings.Fields(text), " ")

	sentences := strings.Split(text, ". ")
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.TrimSpace(strings.Join(sentences, ". "))
}
