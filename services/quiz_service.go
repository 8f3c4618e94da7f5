package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services/llm"
	"github.com/studyaid/lecture-jobs/utils"
)

// QuizService generates quizzes over lecture material
type QuizService struct {
	db       *gorm.DB
	client   CompletionClient
	prompts  *llm.PromptStore
	chunker  *PageChunker
	orchCfg  OrchestratorConfig
	language string
	version  string
}

func NewQuizService(db *gorm.DB, client CompletionClient, prompts *llm.PromptStore, chunker *PageChunker, orchCfg OrchestratorConfig, language, promptVersion string) *QuizService {
	return &QuizService{
		db:       db,
		client:   client,
		prompts:  prompts,
		chunker:  chunker,
		orchCfg:  orchCfg,
		language: language,
		version:  promptVersion,
	}
}

// GenerateQuizPayload identifies the quiz to fill and the requested mix
type GenerateQuizPayload struct {
	QuizID    uint           `json:"quiz_id" validate:"required"`
	LectureID uint           `json:"lecture_id" validate:"required"`
	CourseID  uint           `json:"course_id" validate:"required"`
	UserID    string         `json:"user_id" validate:"required"`
	Title     string         `json:"title,omitempty"`
	Language  string         `json:"language,omitempty"`
	Counts    QuestionCounts `json:"question_counts"`
}

// GenerateQuestions produces the requested question mix over the document.
// Counts are split per-type across chunks, each chunk is generated in
// parallel, and the merged pool is shuffled.
func (s *QuizService) GenerateQuestions(ctx context.Context, doc *ParsedDocument, counts QuestionCounts, language string) ([]Question, error) {
	if language == "" {
		language = s.language
	}
	if counts.Total() == 0 {
		counts.MultipleChoice = 3
		log.Printf("[QUIZ] No question counts requested, defaulting to %d multiple choice", counts.MultipleChoice)
	}

	template, err := s.prompts.Load("generate_quiz", s.version)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunker.Split(doc)
	if err != nil {
		return nil, err
	}
	perChunk := counts.Distribute(len(chunks))

	sets, err := ProcessChunks(ctx, chunks, s.orchCfg,
		func(ctx context.Context, chunk Chunk) ([]Question, error) {
			return generateChunkQuestions(ctx, s.client, template, chunk, perChunk[chunk.ChunkID], language, "QUIZ")
		})
	if err != nil {
		return nil, err
	}

	return MergeQuestions(sets)
}

// generateChunkQuestions runs one generation call for a chunk. Shared between
// quizzes and exams; kind only changes the logging tag and which envelope key
// the response carries.
func generateChunkQuestions(ctx context.Context, client CompletionClient, template *llm.PromptTemplate, chunk Chunk, counts QuestionCounts, language, kind string) ([]Question, error) {
	content, err := chunk.ContentJSON()
	if err != nil {
		return nil, err
	}

	userMessage := template.Render(map[string]string{
		"language":              language,
		"lecture_content":       content,
		"true_or_false_count":   strconv.Itoa(counts.TrueOrFalse),
		"multiple_choice_count": strconv.Itoa(counts.MultipleChoice),
		"short_answer_count":    strconv.Itoa(counts.ShortAnswer),
		"essay_count":           strconv.Itoa(counts.Essay),
	})
	if chunk.TotalChunks > 1 {
		userMessage = chunk.ContextLine() + "\n\n" + userMessage
	}

	log.Printf("[%s] Processing chunk %d/%d (pages %d-%d), requesting %d questions",
		kind, chunk.ChunkID+1, chunk.TotalChunks, chunk.StartPage, chunk.EndPage, counts.Total())

	raw, err := client.JSONCompletion(ctx, template.System, userMessage,
		llm.WithModel(template.Model),
		llm.WithTemperature(template.Temperature),
		llm.WithMaxTokens(template.MaxTokens))
	if err != nil {
		return nil, fmt.Errorf("inference failed for chunk %d: %w", chunk.ChunkID, err)
	}

	var generated struct {
		QuizQuestions []Question `json:"quiz_questions"`
		ExamQuestions []Question `json:"exam_questions"`
	}
	if err := utils.ExtractJSONTo(raw, &generated); err != nil {
		return nil, fmt.Errorf("invalid question JSON for chunk %d: %w", chunk.ChunkID, err)
	}

	questions := generated.QuizQuestions
	if len(questions) == 0 {
		questions = generated.ExamQuestions
	}
	log.Printf("[%s] Generated %d questions for chunk %d/%d",
		kind, len(questions), chunk.ChunkID+1, chunk.TotalChunks)
	return questions, nil
}

// GenerateQuiz runs the full quiz generation job: generates the question
// pool, replaces the quiz's items and marks the quiz ready.
func (s *QuizService) GenerateQuiz(ctx context.Context, payload GenerateQuizPayload) error {
	var quiz model.Quiz
	if err := s.db.WithContext(ctx).First(&quiz, payload.QuizID).Error; err != nil {
		return fmt.Errorf("failed to load quiz %d: %w", payload.QuizID, err)
	}

	var lecture model.Lecture
	if err := s.db.WithContext(ctx).First(&lecture, payload.LectureID).Error; err != nil {
		return fmt.Errorf("failed to load lecture %d: %w", payload.LectureID, err)
	}
	doc, err := ParseDocumentJSON(lecture.ParsedText)
	if err != nil {
		return err
	}

	questions, err := s.GenerateQuestions(ctx, doc, payload.Counts, payload.Language)
	if err != nil {
		if statusErr := s.db.WithContext(ctx).Model(&quiz).
			Update("status", model.QuizStatusFailed).Error; statusErr != nil {
			log.Printf("[QUIZ] Failed to mark quiz %d as failed: %v", quiz.ID, statusErr)
		}
		return err
	}

	title := payload.Title
	if title == "" {
		title = "Quiz on " + time.Now().Format("2006-01-02 15:04")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&model.Quiz{}).Where("id = ?", quiz.ID).Updates(map[string]interface{}{
			"title":                 title,
			"status":                model.QuizStatusNotStarted,
			"contents_generated_at": &now,
		}).Error; err != nil {
			return err
		}

		// Replace any items from a previous generation run
		if err := tx.Unscoped().Where("quiz_id = ?", quiz.ID).Delete(&model.QuizItem{}).Error; err != nil {
			return err
		}

		items := make([]model.QuizItem, len(questions))
		for i, question := range questions {
			item, err := quizItemFromQuestion(quiz.ID, i, question)
			if err != nil {
				return err
			}
			items[i] = item
		}
		if len(items) == 0 {
			log.Printf("[QUIZ] No questions generated for quiz %d", quiz.ID)
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return fmt.Errorf("failed to persist quiz %d items: %w", quiz.ID, err)
	}

	LogCourseActivity(s.db, payload.CourseID, payload.UserID, "update", "quiz", map[string]interface{}{
		"action":     "generate_quiz",
		"quiz_id":    quiz.ID,
		"lecture_id": payload.LectureID,
		"questions":  len(questions),
	})

	log.Printf("[QUIZ] Successfully generated %d questions for quiz %d", len(questions), quiz.ID)
	return nil
}

// quizItemFromQuestion maps a generated question onto the flat item row
func quizItemFromQuestion(quizID uint, order int, question Question) (model.QuizItem, error) {
	item := model.QuizItem{
		QuizID:       quizID,
		QuestionType: string(question.Type),
		Question:     question.Question,
		Explanation:  question.Explanation,
		Points:       question.Points,
		DisplayOrder: order,
	}

	switch question.Type {
	case QuestionTrueOrFalse:
		answer := question.BoolAnswer
		item.IsTrueAnswer = &answer
	case QuestionMultipleChoice:
		choices, err := json.Marshal(question.ChoiceTexts())
		if err != nil {
			return item, fmt.Errorf("failed to serialize choices: %w", err)
		}
		indices, err := json.Marshal(question.CorrectIndices())
		if err != nil {
			return item, fmt.Errorf("failed to serialize answer indices: %w", err)
		}
		item.Choices = datatypes.JSON(choices)
		item.AnswerIndices = datatypes.JSON(indices)
	case QuestionShortAnswer, QuestionEssay:
		item.TextAnswer = question.TextAnswer
	default:
		return item, fmt.Errorf("unknown question type %q", question.Type)
	}
	return item, nil
}
