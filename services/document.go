package services

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned when a parsed document carries no pages.
	// A zero-page lecture is always an upstream parsing failure, so the
	// chunker rejects it instead of producing an empty chunk.
	ErrEmptyDocument = errors.New("parsed document has no pages")
	// ErrInvalidChunkSize is returned for a non-positive target chunk size
	ErrInvalidChunkSize = errors.New("target chunk size must be positive")
	// ErrNoInput is returned when a merger receives an empty result list
	ErrNoInput = errors.New("no results provided for merging")
)

// Page is a single page of text from the upstream parser
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// ParsedDocument is the page-aligned text of a lecture material, produced by
// the upstream parser and immutable from then on.
type ParsedDocument struct {
	TotalPages int    `json:"total_pages"`
	Pages      []Page `json:"pages"`
}

// ParseDocumentJSON decodes a stored parsed document and checks its shape
func ParseDocumentJSON(data []byte) (*ParsedDocument, error) {
	var doc ParsedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode parsed document: %w", err)
	}
	if len(doc.Pages) != doc.TotalPages {
		return nil, fmt.Errorf("parsed document page count mismatch: total_pages=%d, pages=%d",
			doc.TotalPages, len(doc.Pages))
	}
	return &doc, nil
}

// Chunk is a contiguous, page-aligned slice of a document processed as one
// unit of generation work. Chunks partition the document's pages exactly.
type Chunk struct {
	ChunkID     int    `json:"chunk_id"`
	TotalChunks int    `json:"total_chunks"`
	StartPage   int    `json:"start_page"`
	EndPage     int    `json:"end_page"`
	Pages       []Page `json:"pages"`
}

// ContentJSON serializes the chunk's pages for inclusion in a prompt
func (c Chunk) ContentJSON() (string, error) {
	type pageContent struct {
		Page    int    `json:"page"`
		Content string `json:"content"`
	}
	formatted := make([]pageContent, len(c.Pages))
	for i, page := range c.Pages {
		formatted[i] = pageContent{Page: page.PageNumber, Content: page.Text}
	}
	data, err := json.Marshal(formatted)
	if err != nil {
		return "", fmt.Errorf("failed to serialize chunk content: %w", err)
	}
	return string(data), nil
}

// ContextLine describes the chunk's position for multi-chunk prompts
func (c Chunk) ContextLine() string {
	return fmt.Sprintf("This is chunk %d of %d from the lecture material, covering pages %d to %d.",
		c.ChunkID+1, c.TotalChunks, c.StartPage, c.EndPage)
}
