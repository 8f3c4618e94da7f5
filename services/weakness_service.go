package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services/llm"
	"github.com/studyaid/lecture-jobs/utils"
)

// WeaknessAnalysis is the accumulated learning-weakness state of a course.
// Weaknesses and suggestions grow incrementally as graded quizzes and exams
// feed new mistakes into the analysis.
type WeaknessAnalysis struct {
	Weaknesses  string `json:"weaknesses"`
	Suggestions string `json:"suggestions"`
	AnalyzedAt  string `json:"analyzed_at"`
}

// MergeText appends new text to existing text with a space. Either side may
// be empty.
func MergeText(existing, incoming string) string {
	if existing == "" {
		return incoming
	}
	if incoming == "" {
		return existing
	}
	return existing + " " + incoming
}

// MergeWeaknessAnalysis folds a new analysis into the stored one. Malformed
// stored state falls back to the incoming analysis alone; the merge never
// fails. The result always carries a fresh timestamp.
func MergeWeaknessAnalysis(existing []byte, incoming WeaknessAnalysis) WeaknessAnalysis {
	analyzedAt := time.Now().Format(time.RFC3339)

	if len(existing) > 0 {
		var stored WeaknessAnalysis
		if err := json.Unmarshal(existing, &stored); err != nil {
			log.Printf("[WEAKNESS] Malformed stored analysis, using new analysis only: %v", err)
			incoming.AnalyzedAt = analyzedAt
			return incoming
		}
		return WeaknessAnalysis{
			Weaknesses:  MergeText(stored.Weaknesses, incoming.Weaknesses),
			Suggestions: MergeText(stored.Suggestions, incoming.Suggestions),
			AnalyzedAt:  analyzedAt,
		}
	}

	incoming.AnalyzedAt = analyzedAt
	return incoming
}

// incorrectItem is one wrong (or essay-graded) answer feeding the analysis
type incorrectItem struct {
	Question     string
	Explanation  string
	QuestionType string

	IsTrueAnswer      *bool
	Choices           datatypes.JSON
	AnswerIndices     datatypes.JSON
	CorrectTextAnswer string

	SelectedBool    *bool
	SelectedIndices datatypes.JSON
	UserTextAnswer  string

	EssayCriteriaAnalysis datatypes.JSON
	SourceTitle           string
}

// userAnswerText flattens whichever answer form the user gave
func (it incorrectItem) userAnswerText() string {
	if it.UserTextAnswer != "" {
		return it.UserTextAnswer
	}
	if it.SelectedBool != nil {
		return strconv.FormatBool(*it.SelectedBool)
	}
	return choicesByIndices(it.Choices, it.SelectedIndices)
}

// correctAnswerText flattens the correct answer of a non-essay question
func (it incorrectItem) correctAnswerText() string {
	if it.CorrectTextAnswer != "" {
		return it.CorrectTextAnswer
	}
	if it.IsTrueAnswer != nil {
		return strconv.FormatBool(*it.IsTrueAnswer)
	}
	return choicesByIndices(it.Choices, it.AnswerIndices)
}

func choicesByIndices(choicesJSON, indicesJSON datatypes.JSON) string {
	var choices []string
	var indices []int
	if err := json.Unmarshal(choicesJSON, &choices); err != nil {
		return ""
	}
	if err := json.Unmarshal(indicesJSON, &indices); err != nil {
		return ""
	}
	selected := []string{}
	for _, idx := range indices {
		if idx >= 0 && idx < len(choices) {
			selected = append(selected, choices[idx])
		}
	}
	return strings.Join(selected, ", ")
}

// FormatIncorrectItems renders the wrong answers as compact prompt lines,
// headed by the source quiz or exam title.
func FormatIncorrectItems(items []incorrectItem, sourceType string) string {
	if len(items) == 0 {
		return ""
	}

	lines := []string{fmt.Sprintf("[%s: %s]", sourceType, items[0].SourceTitle)}
	for i, item := range items {
		if item.QuestionType == string(QuestionEssay) {
			analysis := ""
			if len(item.EssayCriteriaAnalysis) > 0 {
				var parsed EssayCriteriaAnalysis
				if err := json.Unmarshal(item.EssayCriteriaAnalysis, &parsed); err != nil {
					analysis = "grading analysis unavailable"
				} else {
					analysis = parsed.Analysis
				}
			}
			lines = append(lines, fmt.Sprintf("Question %d|Question: %s|Learning goal: %s|Answer evaluation: %s",
				i+1, item.Question, item.Explanation, analysis))
			continue
		}
		lines = append(lines, fmt.Sprintf("Question %d|Question: %s|Student answer: %s|Correct answer: %s|Explanation: %s",
			i+1, item.Question, item.userAnswerText(), item.correctAnswerText(), item.Explanation))
	}
	return strings.Join(lines, "\n\n")
}

// WeaknessService maintains the per-course weakness analysis
type WeaknessService struct {
	db      *gorm.DB
	client  CompletionClient
	prompts *llm.PromptStore
	version string
}

func NewWeaknessService(db *gorm.DB, client CompletionClient, prompts *llm.PromptStore, promptVersion string) *WeaknessService {
	return &WeaknessService{db: db, client: client, prompts: prompts, version: promptVersion}
}

// WeaknessAnalysisPayload identifies the graded attempt that triggered the
// analysis. Exactly one of QuizID or ExamID is set.
type WeaknessAnalysisPayload struct {
	CourseID uint   `json:"course_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	QuizID   uint   `json:"quiz_id,omitempty"`
	ExamID   uint   `json:"exam_id,omitempty"`
}

// AnalyzeCourseWeakness runs the incremental analysis job: gathers the new
// incorrect answers, asks the gateway for an analysis of them alone, and
// appends the result to the course's stored analysis.
func (s *WeaknessService) AnalyzeCourseWeakness(ctx context.Context, payload WeaknessAnalysisPayload) error {
	if payload.QuizID == 0 && payload.ExamID == 0 {
		return fmt.Errorf("weakness analysis needs a quiz_id or exam_id")
	}

	var items []incorrectItem
	var sourceType string
	var err error
	if payload.QuizID != 0 {
		sourceType = "Quiz"
		items, err = s.incorrectQuizItems(ctx, payload.QuizID, payload.UserID)
	} else {
		sourceType = "Exam"
		items, err = s.incorrectExamItems(ctx, payload.ExamID, payload.UserID)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Printf("[WEAKNESS] No new incorrect items for course %d, skipping analysis", payload.CourseID)
		return nil
	}

	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, payload.CourseID).Error; err != nil {
		return fmt.Errorf("failed to load course %d: %w", payload.CourseID, err)
	}

	log.Printf("[WEAKNESS] Analyzing %d incorrect items for course %d (source: %s)",
		len(items), course.ID, sourceType)

	incoming, err := s.analyzeNewWeakness(ctx, course.Name, FormatIncorrectItems(items, sourceType))
	if err != nil {
		return err
	}

	merged := MergeWeaknessAnalysis(course.WeaknessAnalysis, incoming)
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to serialize weakness analysis: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", course.ID).
		Update("weakness_analysis", mergedJSON).Error
	if err != nil {
		return fmt.Errorf("failed to persist weakness analysis for course %d: %w", course.ID, err)
	}

	LogCourseActivity(s.db, course.ID, payload.UserID, "update", "course", map[string]interface{}{
		"action":  "weakness_analysis",
		"source":  sourceType,
		"quiz_id": payload.QuizID,
		"exam_id": payload.ExamID,
	})

	log.Printf("[WEAKNESS] Incremental weakness analysis completed for course %d", course.ID)
	return nil
}

func (s *WeaknessService) analyzeNewWeakness(ctx context.Context, courseName, formattedItems string) (WeaknessAnalysis, error) {
	var analysis WeaknessAnalysis

	template, err := s.prompts.Load("generate_course_weakness_analysis", s.version)
	if err != nil {
		return analysis, err
	}

	system := template.RenderSystem(map[string]string{"course_name": courseName})
	user := template.Render(map[string]string{
		"course_name":         courseName,
		"new_incorrect_items": formattedItems,
	})

	raw, err := s.client.JSONCompletion(ctx, system, user,
		llm.WithModel(template.Model),
		llm.WithTemperature(template.Temperature),
		llm.WithMaxTokens(template.MaxTokens))
	if err != nil {
		return analysis, fmt.Errorf("weakness analysis inference failed: %w", err)
	}
	if err := utils.ExtractJSONTo(raw, &analysis); err != nil {
		return analysis, fmt.Errorf("invalid weakness analysis JSON: %w", err)
	}
	return analysis, nil
}

// incorrectQuizItems returns a user's wrong quiz answers plus every graded
// essay, graded essays always carrying useful analysis text.
func (s *WeaknessService) incorrectQuizItems(ctx context.Context, quizID uint, userID string) ([]incorrectItem, error) {
	var items []incorrectItem
	err := s.db.WithContext(ctx).
		Table("quiz_items qi").
		Select(`qi.question, qi.explanation, qi.question_type,
			qi.is_true_answer, qi.choices, qi.answer_indices,
			qi.text_answer AS correct_text_answer,
			qr.selected_bool, qr.selected_indices,
			qr.text_answer AS user_text_answer,
			qr.essay_criteria_analysis,
			q.title AS source_title`).
		Joins("JOIN quiz_responses qr ON qi.id = qr.question_id").
		Joins("JOIN quizzes q ON qi.quiz_id = q.id").
		Where("q.id = ? AND qr.user_id = ?", quizID, userID).
		Where("qi.deleted_at IS NULL AND qr.deleted_at IS NULL").
		Where(`(qi.question_type IN ('true_or_false', 'multiple_choice', 'short_answer') AND qr.is_correct = FALSE)
			OR (qi.question_type = 'essay' AND qr.essay_criteria_analysis IS NOT NULL)`).
		Order("qi.display_order").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load incorrect items for quiz %d: %w", quizID, err)
	}
	return items, nil
}

func (s *WeaknessService) incorrectExamItems(ctx context.Context, examID uint, userID string) ([]incorrectItem, error) {
	var items []incorrectItem
	err := s.db.WithContext(ctx).
		Table("exam_items ei").
		Select(`ei.question, ei.explanation, ei.question_type,
			ei.is_true_answer, ei.choices, ei.answer_indices,
			ei.text_answer AS correct_text_answer,
			er.selected_bool, er.selected_indices,
			er.text_answer AS user_text_answer,
			er.essay_criteria_analysis,
			e.title AS source_title`).
		Joins("JOIN exam_responses er ON ei.id = er.question_id").
		Joins("JOIN exams e ON ei.exam_id = e.id").
		Where("e.id = ? AND er.user_id = ?", examID, userID).
		Where("ei.deleted_at IS NULL AND er.deleted_at IS NULL").
		Where(`(ei.question_type IN ('true_or_false', 'multiple_choice', 'short_answer') AND er.is_correct = FALSE)
			OR (ei.question_type = 'essay' AND er.essay_criteria_analysis IS NOT NULL)`).
		Order("ei.display_order").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load incorrect items for exam %d: %w", examID, err)
	}
	return items, nil
}
