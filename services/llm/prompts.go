package llm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoPromptVersions is returned when a job's prompt directory has no
	// versioned template files.
	ErrNoPromptVersions = errors.New("no prompt template versions found")
	// ErrPromptVersionNotFound is returned when an explicitly requested
	// version file does not exist.
	ErrPromptVersionNotFound = errors.New("prompt template version not found")
)

var promptFilePattern = regexp.MustCompile(`^v(\d+)\.yaml$`)

// PromptTemplate is a versioned prompt definition for one job. The user
// template carries {language} and content placeholders substituted at call
// time.
type PromptTemplate struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
}

// Render substitutes placeholder values into the user template
func (t *PromptTemplate) Render(values map[string]string) string {
	return substitute(t.User, values)
}

// RenderSystem substitutes placeholder values into the system template
func (t *PromptTemplate) RenderSystem(values map[string]string) string {
	return substitute(t.System, values)
}

func substitute(text string, values map[string]string) string {
	for key, value := range values {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text
}

// PromptStore resolves and caches versioned prompt templates. Templates live
// under <dir>/<job>/vN.yaml; version "latest" picks the highest N present.
type PromptStore struct {
	dir string

	mu    sync.Mutex
	cache map[string]*PromptTemplate
}

// NewPromptStore creates a prompt store rooted at dir
func NewPromptStore(dir string) *PromptStore {
	return &PromptStore{
		dir:   dir,
		cache: make(map[string]*PromptTemplate),
	}
}

// Resolve returns the template file path for a job and version selector
func (s *PromptStore) Resolve(job, version string) (string, error) {
	jobDir := filepath.Join(s.dir, job)

	if version == "" || version == "latest" {
		entries, err := os.ReadDir(jobDir)
		if err != nil {
			return "", fmt.Errorf("failed to list prompt directory %s: %w", jobDir, err)
		}

		var versions []int
		for _, entry := range entries {
			m := promptFilePattern.FindStringSubmatch(entry.Name())
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			versions = append(versions, n)
		}

		if len(versions) == 0 {
			return "", fmt.Errorf("%w in %s", ErrNoPromptVersions, jobDir)
		}

		sort.Ints(versions)
		latest := versions[len(versions)-1]
		return filepath.Join(jobDir, fmt.Sprintf("v%d.yaml", latest)), nil
	}

	path := filepath.Join(jobDir, fmt.Sprintf("v%s.yaml", version))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s version %s", ErrPromptVersionNotFound, job, version)
	}
	return path, nil
}

// Load resolves, parses, and caches the template for a job and version
func (s *PromptStore) Load(job, version string) (*PromptTemplate, error) {
	path, err := s.Resolve(job, version)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[path]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template %s: %w", path, err)
	}

	var template PromptTemplate
	if err := yaml.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", path, err)
	}

	s.cache[path] = &template
	return &template, nil
}
