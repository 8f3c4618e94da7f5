package llm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemplate(t *testing.T, dir, job, name, content string) {
	t.Helper()
	jobDir := filepath.Join(dir, job)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const sampleTemplate = `model: test-model
temperature: 0.5
max_tokens: 1024
system: You are a test assistant.
user: "Summarize in {language}: {lecture_content}"
`

func TestResolveLatestPicksHighestVersion(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "summarize_lecture", "v1.yaml", sampleTemplate)
	writeTemplate(t, dir, "summarize_lecture", "v2.yaml", sampleTemplate)
	writeTemplate(t, dir, "summarize_lecture", "v10.yaml", sampleTemplate)
	writeTemplate(t, dir, "summarize_lecture", "notes.yaml", "ignored")

	store := NewPromptStore(dir)
	path, err := store.Resolve("summarize_lecture", "latest")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(path) != "v10.yaml" {
		t.Errorf("latest resolved to %s, want v10.yaml", filepath.Base(path))
	}

	// Empty selector behaves like latest
	path, err = store.Resolve("summarize_lecture", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(path) != "v10.yaml" {
		t.Errorf("empty selector resolved to %s, want v10.yaml", filepath.Base(path))
	}
}

func TestResolveExplicitVersion(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "generate_quiz", "v1.yaml", sampleTemplate)
	writeTemplate(t, dir, "generate_quiz", "v2.yaml", sampleTemplate)

	store := NewPromptStore(dir)
	path, err := store.Resolve("generate_quiz", "1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(path) != "v1.yaml" {
		t.Errorf("resolved to %s, want v1.yaml", filepath.Base(path))
	}
}

func TestResolveMissingVersion(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "generate_quiz", "v1.yaml", sampleTemplate)

	store := NewPromptStore(dir)
	_, err := store.Resolve("generate_quiz", "7")
	if !errors.Is(err, ErrPromptVersionNotFound) {
		t.Errorf("expected ErrPromptVersionNotFound, got %v", err)
	}
}

func TestResolveEmptyJobDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "generate_exam"), 0o755); err != nil {
		t.Fatal(err)
	}

	store := NewPromptStore(dir)
	_, err := store.Resolve("generate_exam", "latest")
	if !errors.Is(err, ErrNoPromptVersions) {
		t.Errorf("expected ErrNoPromptVersions, got %v", err)
	}
}

func TestLoadParsesAndCaches(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "summarize_lecture", "v1.yaml", sampleTemplate)

	store := NewPromptStore(dir)
	template, err := store.Load("summarize_lecture", "latest")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if template.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", template.Model)
	}
	if template.Temperature != 0.5 {
		t.Errorf("Temperature = %v, want 0.5", template.Temperature)
	}
	if template.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", template.MaxTokens)
	}

	// A second load returns the cached instance even if the file changes
	writeTemplate(t, dir, "summarize_lecture", "v1.yaml", "model: changed\nuser: x\n")
	again, err := store.Load("summarize_lecture", "latest")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if again != template {
		t.Error("expected the cached template instance")
	}
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	template := &PromptTemplate{
		System: `You teach the course "{course_name}".`,
		User:   "Summarize in {language}: {lecture_content}",
	}

	got := template.Render(map[string]string{
		"language":        "English",
		"lecture_content": "pages here",
	})
	want := "Summarize in English: pages here"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}

	sys := template.RenderSystem(map[string]string{"course_name": "Biology 101"})
	if sys != `You teach the course "Biology 101".` {
		t.Errorf("RenderSystem() = %q", sys)
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	template := &PromptTemplate{User: "Count: {count}, other: {missing}"}
	got := template.Render(map[string]string{"count": "3"})
	if got != "Count: 3, other: {missing}" {
		t.Errorf("Render() = %q", got)
	}
}
