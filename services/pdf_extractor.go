package services

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor parses lecture PDFs into page-aligned documents using
// ledongthuc/pdf (MIT license).
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// sanitizePDF fixes common PDF issues like trailing garbage data.
// Many PDFs downloaded from web have HTML or other data appended after %%EOF;
// this truncates the content at the last valid %%EOF marker.
func sanitizePDF(content []byte) []byte {
	if len(content) == 0 {
		return content
	}
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}

	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)
	if lastEOF == -1 {
		// No %%EOF found, let the parser complain
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}

	if pdfEnd < len(content) {
		extraBytes := len(content) - pdfEnd
		if extraBytes > 10 {
			log.Printf("[PDF] Removing %d bytes of trailing garbage after %%EOF", extraBytes)
			return content[:pdfEnd]
		}
	}
	return content
}

// GetPageCount returns the number of pages without extracting any text
func (p *PDFExtractor) GetPageCount(content []byte) (int, error) {
	if len(content) == 0 {
		return 0, fmt.Errorf("empty PDF content")
	}
	content = sanitizePDF(content)

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return pdfReader.NumPage(), nil
}

// ExtractDocument extracts per-page text from PDF bytes. Pages whose text
// cannot be read stay in the document with empty text so page numbering is
// preserved for the chunker.
func (p *PDFExtractor) ExtractDocument(content []byte) (*ParsedDocument, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty PDF content")
	}
	content = sanitizePDF(content)

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return nil, ErrEmptyDocument
	}
	log.Printf("[PDF] Processing PDF with %d pages", numPages)

	doc := &ParsedDocument{
		TotalPages: numPages,
		Pages:      make([]Page, numPages),
	}

	totalChars := 0
	for i := 1; i <= numPages; i++ {
		doc.Pages[i-1] = Page{PageNumber: i}

		page := pdfReader.Page(i)
		if page.V.IsNull() {
			log.Printf("[PDF] Page %d is null, keeping empty", i)
			continue
		}

		text := extractPageText(page, i)
		doc.Pages[i-1].Text = text
		totalChars += len(text)
	}

	// A near-empty extraction usually means a scanned, image-only PDF
	if totalChars < 50 {
		return nil, fmt.Errorf("insufficient text extracted from PDF (only %d characters), the file may be scanned and need OCR", totalChars)
	}

	log.Printf("[PDF] Extracted %d characters across %d pages", totalChars, numPages)
	return doc, nil
}

// extractPageText prefers row extraction for structure and falls back to
// plain text.
func extractPageText(page pdf.Page, pageNum int) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		log.Printf("[PDF] Row extraction failed for page %d, trying plain text: %v", pageNum, err)
		text, plainErr := page.GetPlainText(nil)
		if plainErr != nil {
			log.Printf("[PDF] Plain text extraction also failed for page %d: %v", pageNum, plainErr)
			return ""
		}
		return strings.TrimSpace(text)
	}

	var builder strings.Builder
	for _, row := range rows {
		var rowText strings.Builder
		for _, word := range row.Content {
			rowText.WriteString(word.S)
		}
		line := strings.TrimSpace(rowText.String())
		if line != "" {
			builder.WriteString(line)
			builder.WriteString("\n")
		}
	}
	return strings.TrimSpace(builder.String())
}
