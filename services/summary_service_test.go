package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/studyaid/lecture-jobs/services/llm"
)

// fakeClient scripts gateway responses for service tests
type fakeClient struct {
	mu             sync.Mutex
	simpleResponse string
	simpleErr      error
	jsonResponses  []string
	jsonErr        error
	jsonCalls      int
	lastUserPrompt string
}

func (f *fakeClient) SimpleCompletion(ctx context.Context, systemPrompt, userPrompt string, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUserPrompt = userPrompt
	if f.simpleErr != nil {
		return "", f.simpleErr
	}
	return f.simpleResponse, nil
}

func (f *fakeClient) JSONCompletion(ctx context.Context, systemPrompt, userPrompt string, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUserPrompt = userPrompt
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	idx := f.jsonCalls
	f.jsonCalls++
	if idx >= len(f.jsonResponses) {
		idx = len(f.jsonResponses) - 1
	}
	return f.jsonResponses[idx], nil
}

func testSummaries() []Summary {
	return []Summary{
		{
			Metadata: SummaryMetadata{Model: "gpt-4o", CreatedAt: "2025-01-01T00:00:00Z"},
			Overview: "First section overview.",
			Keywords: []Keyword{
				{Keyword: "recursion", Description: "first definition", Relevance: 0.9},
				{Keyword: "stack", Description: "call stacks", Relevance: 0.7},
			},
			Topics:               []Topic{{Title: "Intro"}},
			AdditionalReferences: []string{"CLRS ch.4", "SICP"},
		},
		{
			Metadata: SummaryMetadata{Model: "gpt-4o-mini", CreatedAt: "2025-01-01T01:00:00Z"},
			Overview: "Second section overview.",
			Keywords: []Keyword{
				{Keyword: "recursion", Description: "duplicate, later chunk", Relevance: 0.5},
				{Keyword: "memoization", Description: "caching results", Relevance: 0.8},
			},
			Topics:               []Topic{{Title: "Dynamic Programming"}},
			AdditionalReferences: []string{"SICP", "Knuth vol.1"},
		},
	}
}

func TestMergeSummaries(t *testing.T) {
	client := &fakeClient{simpleResponse: "Consolidated overview."}
	svc := NewSummaryService(nil, client, nil, nil, OrchestratorConfig{}, "English", "latest")

	merged, err := svc.MergeSummaries(context.Background(), testSummaries())
	if err != nil {
		t.Fatalf("MergeSummaries failed: %v", err)
	}

	if merged.Overview != "Consolidated overview." {
		t.Errorf("overview = %q, want regenerated text", merged.Overview)
	}
	if merged.Metadata.Model != "gpt-4o" {
		t.Errorf("metadata model = %q, want first summary's model", merged.Metadata.Model)
	}
	if merged.Metadata.CreatedAt == "2025-01-01T00:00:00Z" {
		t.Error("merged metadata should carry a fresh timestamp")
	}

	keywords := make([]string, len(merged.Keywords))
	for i, kw := range merged.Keywords {
		keywords[i] = kw.Keyword
	}
	want := []string{"recursion", "stack", "memoization"}
	if len(keywords) != len(want) {
		t.Fatalf("keywords = %v, want %v", keywords, want)
	}
	for i := range want {
		if keywords[i] != want[i] {
			t.Errorf("keyword %d = %q, want %q", i, keywords[i], want[i])
		}
	}
	// First occurrence wins for duplicates
	if merged.Keywords[0].Description != "first definition" {
		t.Errorf("duplicate keyword kept later occurrence: %q", merged.Keywords[0].Description)
	}

	if len(merged.Topics) != 2 || merged.Topics[0].Title != "Intro" || merged.Topics[1].Title != "Dynamic Programming" {
		t.Errorf("topics not concatenated in order: %+v", merged.Topics)
	}

	wantRefs := []string{"CLRS ch.4", "SICP", "Knuth vol.1"}
	if len(merged.AdditionalReferences) != len(wantRefs) {
		t.Fatalf("references = %v, want %v", merged.AdditionalReferences, wantRefs)
	}
	for i := range wantRefs {
		if merged.AdditionalReferences[i] != wantRefs[i] {
			t.Errorf("reference %d = %q, want %q", i, merged.AdditionalReferences[i], wantRefs[i])
		}
	}
}

func TestMergeSummariesOverviewFallback(t *testing.T) {
	client := &fakeClient{simpleErr: errors.New("gateway unavailable")}
	svc := NewSummaryService(nil, client, nil, nil, OrchestratorConfig{}, "English", "latest")

	merged, err := svc.MergeSummaries(context.Background(), testSummaries())
	if err != nil {
		t.Fatalf("merge must not fail when overview regeneration fails: %v", err)
	}
	want := "First section overview.\n\nSecond section overview."
	if merged.Overview != want {
		t.Errorf("fallback overview = %q, want %q", merged.Overview, want)
	}
}

func TestMergeSummariesSingleInput(t *testing.T) {
	client := &fakeClient{}
	svc := NewSummaryService(nil, client, nil, nil, OrchestratorConfig{}, "English", "latest")

	single := testSummaries()[:1]
	merged, err := svc.MergeSummaries(context.Background(), single)
	if err != nil {
		t.Fatalf("MergeSummaries failed: %v", err)
	}
	if merged.Overview != single[0].Overview {
		t.Errorf("single summary should pass through unchanged")
	}
	if client.jsonCalls != 0 || client.lastUserPrompt != "" {
		t.Error("single summary must not trigger a gateway call")
	}
}

func TestMergeSummariesEmpty(t *testing.T) {
	svc := NewSummaryService(nil, &fakeClient{}, nil, nil, OrchestratorConfig{}, "English", "latest")
	if _, err := svc.MergeSummaries(context.Background(), nil); !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}

func TestGenerateSummaryMultiChunk(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "summarize_lecture", "v1.yaml", `
model: gpt-4o
temperature: 0.2
max_tokens: 4096
system: You are a lecture summarizer.
user: "Summarize in {language}: {lecture_content}"
`)

	chunkSummary := Summary{
		Metadata: SummaryMetadata{Model: "gpt-4o", CreatedAt: "2025-01-01T00:00:00Z"},
		Overview: "Chunk overview.",
		Keywords: []Keyword{{Keyword: "entropy", Relevance: 0.9}},
		Topics:   []Topic{{Title: "Information Theory"}},
	}
	raw, err := json.Marshal(chunkSummary)
	if err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{
		jsonResponses:  []string{string(raw)},
		simpleResponse: "Whole document overview.",
	}
	chunker, err := NewPageChunker(40)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewSummaryService(nil, client, llm.NewPromptStore(dir), chunker,
		OrchestratorConfig{MaxConcurrent: 2}, "English", "latest")

	merged, err := svc.GenerateSummary(context.Background(), makeDocument(90), "")
	if err != nil {
		t.Fatalf("GenerateSummary failed: %v", err)
	}
	if client.jsonCalls != 3 {
		t.Errorf("expected 3 chunk calls for 90 pages, got %d", client.jsonCalls)
	}
	if merged.Overview != "Whole document overview." {
		t.Errorf("overview = %q", merged.Overview)
	}
	// Duplicate keywords across chunks collapse to one
	if len(merged.Keywords) != 1 {
		t.Errorf("expected deduplicated keywords, got %d", len(merged.Keywords))
	}
	if len(merged.Topics) != 3 {
		t.Errorf("expected one topic per chunk, got %d", len(merged.Topics))
	}
	if !strings.Contains(client.lastUserPrompt, "English") {
		t.Error("language placeholder not rendered into prompt")
	}
}

func TestGenerateSummarySingleChunkOmitsContext(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "summarize_lecture", "v1.yaml", `
model: gpt-4o
temperature: 0.2
max_tokens: 4096
system: You are a lecture summarizer.
user: "Summarize in {language}: {lecture_content}"
`)

	raw, _ := json.Marshal(Summary{
		Metadata: SummaryMetadata{Model: "gpt-4o", CreatedAt: "2025-01-01T00:00:00Z"},
		Overview: "Short doc overview.",
	})
	client := &fakeClient{jsonResponses: []string{string(raw)}}
	chunker, err := NewPageChunker(40)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewSummaryService(nil, client, llm.NewPromptStore(dir), chunker,
		OrchestratorConfig{MaxConcurrent: 2}, "English", "latest")

	merged, err := svc.GenerateSummary(context.Background(), makeDocument(10), "")
	if err != nil {
		t.Fatalf("GenerateSummary failed: %v", err)
	}
	if client.jsonCalls != 1 {
		t.Errorf("expected a single chunk call, got %d", client.jsonCalls)
	}
	if strings.Contains(client.lastUserPrompt, "This is chunk") {
		t.Error("single-chunk prompt must not carry chunk context")
	}
	if merged.Overview != "Short doc overview." {
		t.Errorf("overview = %q", merged.Overview)
	}
}
