package loader

import (
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"

	"github.com/stackmint/docqa/internal/domain"
)

// loadPDF extracts one unit per page so page provenance survives chunking.
func loadPDF(path string) ([]domain.Unit, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var units []domain.Unit
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		if text == "" {
			continue
		}

		md := sourceMetadata(path)
		md[domain.MetaPage] = strconv.Itoa(i)
		units = append(units, domain.Unit{Text: text, Metadata: md})
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("no text extracted from pdf %q", path)
	}
	return units, nil
}
