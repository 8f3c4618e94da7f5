package services

import (
	"testing"
)

func makeDocument(totalPages int) *ParsedDocument {
	pages := make([]Page, totalPages)
	for i := range pages {
		pages[i] = Page{PageNumber: i + 1, Text: "page content"}
	}
	return &ParsedDocument{TotalPages: totalPages, Pages: pages}
}

func TestComputeChunkSizes(t *testing.T) {
	tests := []struct {
		name       string
		totalPages int
		targetSize int
		want       []int
	}{
		{"single page", 1, 40, []int{1}},
		{"exactly target", 40, 40, []int{40}},
		{"just over target stays single", 41, 40, []int{41}},
		{"small remainder redistributed", 90, 40, []int{30, 30, 30}},
		// A zero remainder folds too: exact multiples prefer fewer,
		// larger chunks over an even split at the target size.
		{"exact multiple folds", 80, 40, []int{80}},
		{"larger exact multiple folds", 120, 40, []int{60, 60}},
		{"large remainder kept", 70, 40, []int{35, 35}},
		{"tiny tail folded", 81, 40, []int{41, 40}},
		{"three chunks balanced", 100, 40, []int{34, 33, 33}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := NewPageChunker(tt.targetSize)
			if err != nil {
				t.Fatalf("NewPageChunker(%d) failed: %v", tt.targetSize, err)
			}
			got := chunker.ComputeChunkSizes(tt.totalPages)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v chunks, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d: got size %d, want %d (full: %v)", i, got[i], tt.want[i], got)
				}
			}
		})
	}
}

func TestComputeChunkSizesProperties(t *testing.T) {
	chunker, err := NewPageChunker(40)
	if err != nil {
		t.Fatal(err)
	}
	for totalPages := 1; totalPages <= 500; totalPages++ {
		sizes := chunker.ComputeChunkSizes(totalPages)
		sum := 0
		min, max := sizes[0], sizes[0]
		for _, s := range sizes {
			sum += s
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		if sum != totalPages {
			t.Errorf("totalPages=%d: sizes %v sum to %d", totalPages, sizes, sum)
		}
		if max-min > 1 {
			t.Errorf("totalPages=%d: unbalanced sizes %v", totalPages, sizes)
		}
	}
}

func TestSplit(t *testing.T) {
	chunker, err := NewPageChunker(40)
	if err != nil {
		t.Fatal(err)
	}

	doc := makeDocument(90)
	chunks, err := chunker.Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	nextPage := 1
	for i, chunk := range chunks {
		if chunk.ChunkID != i {
			t.Errorf("chunk %d: ChunkID = %d", i, chunk.ChunkID)
		}
		if chunk.TotalChunks != 3 {
			t.Errorf("chunk %d: TotalChunks = %d, want 3", i, chunk.TotalChunks)
		}
		if chunk.StartPage != nextPage {
			t.Errorf("chunk %d: StartPage = %d, want %d", i, chunk.StartPage, nextPage)
		}
		for _, page := range chunk.Pages {
			if page.PageNumber != nextPage {
				t.Errorf("chunk %d: page %d out of order, want %d", i, page.PageNumber, nextPage)
			}
			nextPage++
		}
		if chunk.EndPage != chunk.Pages[len(chunk.Pages)-1].PageNumber {
			t.Errorf("chunk %d: EndPage = %d does not match last page", i, chunk.EndPage)
		}
	}
	if nextPage != 91 {
		t.Errorf("pages covered up to %d, want 90", nextPage-1)
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	chunker, err := NewPageChunker(40)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := chunker.Split(&ParsedDocument{}); err != ErrEmptyDocument {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := chunker.Split(nil); err != ErrEmptyDocument {
		t.Errorf("expected ErrEmptyDocument for nil document, got %v", err)
	}
}

func TestNewPageChunkerInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1, -40} {
		if _, err := NewPageChunker(size); err != ErrInvalidChunkSize {
			t.Errorf("NewPageChunker(%d): expected ErrInvalidChunkSize, got %v", size, err)
		}
	}
}

func TestParseDocumentJSON(t *testing.T) {
	data := []byte(`{"total_pages":2,"pages":[{"page_number":1,"text":"a"},{"page_number":2,"text":"b"}]}`)
	doc, err := ParseDocumentJSON(data)
	if err != nil {
		t.Fatalf("ParseDocumentJSON failed: %v", err)
	}
	if doc.TotalPages != 2 || len(doc.Pages) != 2 {
		t.Errorf("unexpected document: %+v", doc)
	}

	if _, err := ParseDocumentJSON([]byte(`{"total_pages":3,"pages":[]}`)); err == nil {
		t.Error("expected error for page count mismatch")
	}
	if _, err := ParseDocumentJSON([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
