package rag

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astramind/astramind/pkg/chunk"
	"github.com/dslipak/pdf"
)

// chunkFile extracts the text of a file and splits it into word-boundary
// chunks of at most maxChunkSize characters. Supported: .pdf, .txt, .md.
func chunkFile(path string, maxChunkSize int) ([]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := pdfToText(path)
		if err != nil {
			return nil, fmt.Errorf("failed to extract PDF text: %w", err)
		}
		return chunk.SplitText(text, maxChunkSize), nil
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return chunk.SplitText(string(content), maxChunkSize), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func pdfToText(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}
