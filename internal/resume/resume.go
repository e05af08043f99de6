// Package resume extracts plain text from the candidate's resume PDF so the
// generator can reference it when drafting outreach and cover notes.
package resume

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxChars caps extracted text; anything past this adds nothing to a prompt.
const maxChars = 8000

// ExtractText reads the PDF at path and returns its text content with
// whitespace collapsed.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening resume %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting resume text: %w", err)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading resume text: %w", err)
	}

	text := strings.Join(strings.Fields(string(raw)), " ")
	if len(text) > maxChars {
		cut := strings.LastIndex(text[:maxChars], " ")
		if cut <= 0 {
			cut = maxChars
		}
		text = text[:cut]
	}
	return text, nil
}
