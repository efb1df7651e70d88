package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"

	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/rag/chunker"
)

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".rtf", ".odt":
		return commonModels.DOCX
	case ".txt":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

func extractText(path string, contentType commonModels.DocType) ([]chunker.Page, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX, commonModels.TXT:
		return extractdocxTxtRtf(path)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func extractPDF(path string) ([]chunker.Page, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []chunker.Page
	numPages := f.NumPage()
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// a bad page should not sink the whole document
			logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, chunker.Page{
			Number: i,
			Text:   content,
		})
	}
	return pages, nil
}

// extractdocxTxtRtf reads a .odt, .docx, .rtf or plaintext file. These
// formats carry no page boundaries, so all content lands on page 1.
func extractdocxTxtRtf(path string) ([]chunker.Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}

	return []chunker.Page{
		{
			Number: 1,
			Text:   text,
		},
	}, nil
}

// protectExtract guards against pdf pages whose content streams hang the
// parser.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(config.PageExtractTimeout):
		return "", errors.New("page extraction timeout")
	}
}
