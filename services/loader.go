package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"tutor-genai-service/internal/logger"
	"tutor-genai-service/utils"
)

// LoadDocument converts a file into an ordered sequence of text units:
// one per page for PDFs, one for the whole file for plain text. It never
// mutates the source file; deleting it after a successful load is the
// caller's job.
func LoadDocument(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document path %s: %w", path, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("stat document %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".txt":
		return loadText(path)
	default:
		return nil, fmt.Errorf("document %s: %w (use .pdf or .txt)", path, utils.ErrUnsupportedFormat)
	}
}

func loadPDF(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract pdf page", "path", path, "page", i, "error", err)
			continue
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no text extracted from pdf %s", path)
	}
	return pages, nil
}

func loadText(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file %s: %w", path, err)
	}
	return []string{string(content)}, nil
}
