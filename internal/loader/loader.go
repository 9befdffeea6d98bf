// Package loader converts uploaded files into plain-text units ready for chunking.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stackmint/docqa/internal/domain"
)

// Load reads the file at path and returns its content as one or more text
// units, dispatching on the file extension. The supported set is closed:
// pdf, docx, html and plain text. Anything else is an UnsupportedFormatError.
func Load(path string) ([]domain.Unit, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return loadText(path)
	case ".pdf":
		return loadPDF(path)
	case ".docx":
		return loadDOCX(path)
	case ".html", ".htm":
		return loadHTML(path)
	default:
		return nil, domain.NewUnsupportedFormat(ext)
	}
}

// Supported reports whether the extension (with leading dot) can be loaded.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".txt", ".pdf", ".docx", ".html", ".htm":
		return true
	}
	return false
}

func loadText(path string) ([]domain.Unit, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	return []domain.Unit{{
		Text:     string(data),
		Metadata: sourceMetadata(path),
	}}, nil
}

func sourceMetadata(path string) map[string]string {
	return map[string]string{domain.MetaSource: filepath.Base(path)}
}
