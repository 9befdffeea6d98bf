package loader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/stackmint/docqa/internal/domain"
)

// documentXML mirrors the parts of word/document.xml we care about.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

// loadDOCX opens the file as a ZIP archive and extracts the paragraph text of
// word/document.xml. The whole document is returned as a single unit.
func loadDOCX(path string) ([]domain.Unit, error) {
	reader, err := zip.OpenReader(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	defer reader.Close()

	text, err := extractDocumentXML(&reader.Reader)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("no text extracted from docx %q", path)
	}

	return []domain.Unit{{Text: text, Metadata: sourceMetadata(path)}}, nil
}

func extractDocumentXML(reader *zip.Reader) (string, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open word/document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read word/document.xml: %w", err)
		}

		return parseDocumentXML(content)
	}
	return "", fmt.Errorf("docx archive is missing word/document.xml")
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse word/document.xml: %w", err)
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, t := range run.Text {
				b.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
