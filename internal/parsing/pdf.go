package parsing

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractTextFromPDF returns the plain text of a PDF along with its page
// count. Page boundaries are not preserved in the returned text; downstream
// page numbers are estimated from chunk position.
func ExtractTextFromPDF(pdfData []byte) (string, int, error) {
	reader := bytes.NewReader(pdfData)
	pdfReader, err := pdf.NewReader(reader, int64(len(pdfData)))
	if err != nil {
		return "", 0, fmt.Errorf("error creating PDF reader: %w", err)
	}

	b, err := pdfReader.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("could not read content of pdf: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", 0, fmt.Errorf("could not read content of pdf: %w", err)
	}

	return buf.String(), pdfReader.NumPage(), nil
}

// IsPDF checks if the provided filename has a .pdf extension
// (case-insensitive).
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
