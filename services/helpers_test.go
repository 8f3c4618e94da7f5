package services

import (
	"os"
	"path/filepath"
	"testing"
)

// writePromptFile drops a prompt template under dir/<job>/<name> for tests
// that exercise the prompt store.
func writePromptFile(t *testing.T, dir, job, name, content string) {
	t.Helper()
	jobDir := filepath.Join(dir, job)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		t.Fatalf("failed to create prompt dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write prompt file: %v", err)
	}
}
