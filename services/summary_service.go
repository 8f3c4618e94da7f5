package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services/llm"
	"github.com/studyaid/lecture-jobs/utils"
)

const (
	overviewMergeSystemPrompt = "You are an expert at consolidating document summaries. Merge the given summaries into a single coherent and natural summary."

	overviewMergeUserPrompt = `The following are summaries of several sections of a long document. Merge them into one coherent, natural overview of the whole document.
Keep the style and tone consistent, remove duplicated content, and include every important point.
The result must be a single consolidated overview.

Section summaries:

%s`
)

// SummaryMetadata records which model produced a summary and when
type SummaryMetadata struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
}

// PageSpan locates content inside the source document
type PageSpan struct {
	StartPage int `json:"start_page"`
	EndPage   int `json:"end_page"`
}

// Keyword is a notable term extracted from the material
type Keyword struct {
	Keyword     string   `json:"keyword"`
	Description string   `json:"description"`
	Relevance   float64  `json:"relevance"`
	PageRange   PageSpan `json:"page_range"`
}

// Topic is a section of the material, possibly with nested sub-topics
type Topic struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PageRange   PageSpan `json:"page_range"`
	SubTopics   []Topic  `json:"sub_topics"`
}

// Summary is the structured summary of a lecture
type Summary struct {
	Metadata             SummaryMetadata `json:"metadata"`
	Overview             string          `json:"overview"`
	Keywords             []Keyword       `json:"keywords"`
	Topics               []Topic         `json:"topics"`
	AdditionalReferences []string        `json:"additional_references"`
}

// CompletionClient is the slice of the inference client the generation
// services need. *llm.Client satisfies it.
type CompletionClient interface {
	SimpleCompletion(ctx context.Context, systemPrompt, userPrompt string, options ...llm.Option) (string, error)
	JSONCompletion(ctx context.Context, systemPrompt, userPrompt string, options ...llm.Option) (string, error)
}

// SummaryService generates and persists lecture summaries
type SummaryService struct {
	db       *gorm.DB
	client   CompletionClient
	prompts  *llm.PromptStore
	chunker  *PageChunker
	orchCfg  OrchestratorConfig
	language string
	version  string
}

func NewSummaryService(db *gorm.DB, client CompletionClient, prompts *llm.PromptStore, chunker *PageChunker, orchCfg OrchestratorConfig, language, promptVersion string) *SummaryService {
	return &SummaryService{
		db:       db,
		client:   client,
		prompts:  prompts,
		chunker:  chunker,
		orchCfg:  orchCfg,
		language: language,
		version:  promptVersion,
	}
}

// generateChunkSummary summarizes one chunk through the inference gateway
func (s *SummaryService) generateChunkSummary(ctx context.Context, chunk Chunk, template *llm.PromptTemplate, language string) (Summary, error) {
	var summary Summary

	content, err := chunk.ContentJSON()
	if err != nil {
		return summary, err
	}

	userMessage := template.Render(map[string]string{
		"language":        language,
		"lecture_content": content,
	})
	if chunk.TotalChunks > 1 {
		userMessage = chunk.ContextLine() + "\n\n" + userMessage
	}

	log.Printf("[SUMMARY] Processing chunk %d/%d (pages %d-%d)",
		chunk.ChunkID+1, chunk.TotalChunks, chunk.StartPage, chunk.EndPage)

	raw, err := s.client.JSONCompletion(ctx, template.System, userMessage,
		llm.WithModel(template.Model),
		llm.WithTemperature(template.Temperature),
		llm.WithMaxTokens(template.MaxTokens))
	if err != nil {
		return summary, fmt.Errorf("inference failed for chunk %d: %w", chunk.ChunkID, err)
	}

	if err := utils.ExtractJSONTo(raw, &summary); err != nil {
		return summary, fmt.Errorf("invalid summary JSON for chunk %d: %w", chunk.ChunkID, err)
	}

	if summary.Metadata.Model == "" {
		summary.Metadata.Model = template.Model
	}
	if summary.Metadata.CreatedAt == "" {
		summary.Metadata.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return summary, nil
}

// MergeSummaries collapses per-chunk summaries into one document summary.
// Keywords and references are deduplicated keeping the first occurrence,
// topics are concatenated in chunk order, and the overview is re-synthesized
// through the gateway with plain concatenation as the fallback.
func (s *SummaryService) MergeSummaries(ctx context.Context, summaries []Summary) (Summary, error) {
	if len(summaries) == 0 {
		return Summary{}, ErrNoInput
	}
	if len(summaries) == 1 {
		return summaries[0], nil
	}

	merged := Summary{
		Metadata: SummaryMetadata{
			Model:     summaries[0].Metadata.Model,
			CreatedAt: time.Now().Format(time.RFC3339),
		},
	}

	overviews := make([]string, len(summaries))
	for i, summary := range summaries {
		overviews[i] = summary.Overview
	}
	merged.Overview = s.consolidateOverview(ctx, merged.Metadata.Model, overviews)

	seenKeywords := make(map[string]bool)
	seenReferences := make(map[string]bool)
	for _, summary := range summaries {
		for _, keyword := range summary.Keywords {
			if seenKeywords[keyword.Keyword] {
				continue
			}
			seenKeywords[keyword.Keyword] = true
			merged.Keywords = append(merged.Keywords, keyword)
		}
		merged.Topics = append(merged.Topics, summary.Topics...)
		for _, ref := range summary.AdditionalReferences {
			if seenReferences[ref] {
				continue
			}
			seenReferences[ref] = true
			merged.AdditionalReferences = append(merged.AdditionalReferences, ref)
		}
	}

	return merged, nil
}

// consolidateOverview asks the gateway to rewrite the per-chunk overviews as
// one narrative. Failures fall back to joining the parts, never to failing
// the merge.
func (s *SummaryService) consolidateOverview(ctx context.Context, model string, overviews []string) string {
	overviewsJSON, err := json.Marshal(overviews)
	if err != nil {
		return joinOverviews(overviews)
	}

	log.Printf("[SUMMARY] Regenerating consolidated overview from %d chunks", len(overviews))
	consolidated, err := s.client.SimpleCompletion(ctx,
		overviewMergeSystemPrompt,
		fmt.Sprintf(overviewMergeUserPrompt, string(overviewsJSON)),
		llm.WithModel(model),
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(1024))
	if err != nil {
		log.Printf("[SUMMARY] Overview regeneration failed, concatenating instead: %v", err)
		return joinOverviews(overviews)
	}
	return consolidated
}

func joinOverviews(overviews []string) string {
	joined := ""
	for i, part := range overviews {
		if i > 0 {
			joined += "\n\n"
		}
		joined += part
	}
	return joined
}

// GenerateSummary chunks the document, summarizes each chunk in parallel and
// merges the results. An empty language falls back to the configured default.
func (s *SummaryService) GenerateSummary(ctx context.Context, doc *ParsedDocument, language string) (Summary, error) {
	if language == "" {
		language = s.language
	}

	template, err := s.prompts.Load("summarize_lecture", s.version)
	if err != nil {
		return Summary{}, err
	}

	chunks, err := s.chunker.Split(doc)
	if err != nil {
		return Summary{}, err
	}

	summaries, err := ProcessChunks(ctx, chunks, s.orchCfg,
		func(ctx context.Context, chunk Chunk) (Summary, error) {
			return s.generateChunkSummary(ctx, chunk, template, language)
		})
	if err != nil {
		return Summary{}, err
	}

	return s.MergeSummaries(ctx, summaries)
}

// SummarizeLecturePayload identifies the lecture to summarize
type SummarizeLecturePayload struct {
	LectureID uint   `json:"lecture_id" validate:"required"`
	CourseID  uint   `json:"course_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	Language  string `json:"language,omitempty"`
}

// SummarizeLecture runs the full summarization job for a lecture: loads its
// parsed text, generates the merged summary and persists it with status
// transitions.
func (s *SummaryService) SummarizeLecture(ctx context.Context, payload SummarizeLecturePayload) error {
	var lecture model.Lecture
	if err := s.db.WithContext(ctx).First(&lecture, payload.LectureID).Error; err != nil {
		return fmt.Errorf("failed to load lecture %d: %w", payload.LectureID, err)
	}

	if err := s.updateStatus(ctx, lecture.ID, model.SummaryStatusInProgress); err != nil {
		return err
	}

	summary, err := s.summarizeLecture(ctx, &lecture, payload.Language)
	if err != nil {
		if statusErr := s.updateStatus(ctx, lecture.ID, model.SummaryStatusFailed); statusErr != nil {
			log.Printf("[SUMMARY] Failed to mark lecture %d as failed: %v", lecture.ID, statusErr)
		}
		return err
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}
	err = s.db.WithContext(ctx).Model(&model.Lecture{}).
		Where("id = ?", lecture.ID).
		Updates(map[string]interface{}{
			"summary":        summaryJSON,
			"summary_status": model.SummaryStatusCompleted,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to persist summary for lecture %d: %w", lecture.ID, err)
	}

	LogCourseActivity(s.db, payload.CourseID, payload.UserID, "update", "lecture", map[string]interface{}{
		"action":     "generate_summary",
		"lecture_id": lecture.ID,
	})

	log.Printf("[SUMMARY] Successfully summarized lecture %d", lecture.ID)
	return nil
}

func (s *SummaryService) summarizeLecture(ctx context.Context, lecture *model.Lecture, language string) (Summary, error) {
	if len(lecture.ParsedText) == 0 {
		return Summary{}, fmt.Errorf("lecture %d has no parsed text", lecture.ID)
	}
	doc, err := ParseDocumentJSON(lecture.ParsedText)
	if err != nil {
		return Summary{}, err
	}
	return s.GenerateSummary(ctx, doc, language)
}

func (s *SummaryService) updateStatus(ctx context.Context, lectureID uint, status model.SummaryStatus) error {
	err := s.db.WithContext(ctx).Model(&model.Lecture{}).
		Where("id = ?", lectureID).
		Update("summary_status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update summary status for lecture %d: %w", lectureID, err)
	}
	log.Printf("[SUMMARY] Lecture %d summary status -> %s", lectureID, status)
	return nil
}
