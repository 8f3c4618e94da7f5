package services

import (
	"log"
	"math"
)

// PageChunker splits a parsed document into contiguous, balanced page chunks.
// The splitter avoids a fragment chunk far smaller than its siblings: a tail
// below a quarter of the target size triggers redistribution into one fewer
// chunk, so chunk sizes never differ by more than one page.
type PageChunker struct {
	targetSize int
}

// NewPageChunker returns a chunker for the given target chunk size in pages
func NewPageChunker(targetSize int) (*PageChunker, error) {
	if targetSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	return &PageChunker{targetSize: targetSize}, nil
}

// ComputeChunkSizes returns the page count of each chunk for a document of
// totalPages pages. The sizes always sum to totalPages.
func (c *PageChunker) ComputeChunkSizes(totalPages int) []int {
	if totalPages <= 0 {
		return nil
	}
	if totalPages <= c.targetSize {
		return []int{totalPages}
	}

	numChunks := int(math.Ceil(float64(totalPages) / float64(c.targetSize)))

	// A small remainder chunk gets folded into its siblings instead of
	// standing alone. A remainder of zero also folds: exact multiples
	// prefer fewer, larger chunks.
	remainder := totalPages % c.targetSize
	if float64(remainder) < 0.25*float64(c.targetSize) && numChunks > 1 {
		newSize := int(math.Ceil(float64(totalPages) / float64(numChunks-1)))
		if (numChunks-1)*newSize >= totalPages {
			numChunks--
		}
	}

	base := totalPages / numChunks
	extra := totalPages % numChunks
	sizes := make([]int, numChunks)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

// Split partitions the document's pages into chunks following
// ComputeChunkSizes. Page order is preserved and every page appears in
// exactly one chunk.
func (c *PageChunker) Split(doc *ParsedDocument) ([]Chunk, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, ErrEmptyDocument
	}

	sizes := c.ComputeChunkSizes(len(doc.Pages))
	chunks := make([]Chunk, len(sizes))
	offset := 0
	for i, size := range sizes {
		pages := doc.Pages[offset : offset+size]
		chunks[i] = Chunk{
			ChunkID:     i,
			TotalChunks: len(sizes),
			StartPage:   pages[0].PageNumber,
			EndPage:     pages[len(pages)-1].PageNumber,
			Pages:       pages,
		}
		offset += size
	}

	log.Printf("[CHUNKER] Split %d pages into %d chunks (target %d)",
		len(doc.Pages), len(chunks), c.targetSize)
	return chunks, nil
}
