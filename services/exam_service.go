package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services/llm"
)

const (
	defaultQuestionPoints = 10.0
	defaultEssayPoints    = 20.0
)

// ExamService generates mock exams over lecture material. Exams are quizzes
// with points attached to every question, so most of the machinery is shared
// with QuizService.
type ExamService struct {
	db       *gorm.DB
	client   CompletionClient
	prompts  *llm.PromptStore
	chunker  *PageChunker
	orchCfg  OrchestratorConfig
	language string
	version  string
}

func NewExamService(db *gorm.DB, client CompletionClient, prompts *llm.PromptStore, chunker *PageChunker, orchCfg OrchestratorConfig, language, promptVersion string) *ExamService {
	return &ExamService{
		db:       db,
		client:   client,
		prompts:  prompts,
		chunker:  chunker,
		orchCfg:  orchCfg,
		language: language,
		version:  promptVersion,
	}
}

// GenerateExamPayload identifies the exam to fill and the requested mix
type GenerateExamPayload struct {
	ExamID    uint           `json:"exam_id" validate:"required"`
	LectureID uint           `json:"lecture_id" validate:"required"`
	CourseID  uint           `json:"course_id" validate:"required"`
	UserID    string         `json:"user_id" validate:"required"`
	Title     string         `json:"title,omitempty"`
	Language  string         `json:"language,omitempty"`
	Counts    QuestionCounts `json:"question_counts"`
}

// GenerateQuestions produces the exam question pool. Questions missing a
// point value get the standard weighting: 10 points, 20 for essays.
func (s *ExamService) GenerateQuestions(ctx context.Context, doc *ParsedDocument, counts QuestionCounts, language string) ([]Question, error) {
	if language == "" {
		language = s.language
	}
	if counts.Total() == 0 {
		counts = QuestionCounts{TrueOrFalse: 3, MultipleChoice: 3, ShortAnswer: 3, Essay: 3}
		log.Printf("[EXAM] No question counts requested, defaulting to 3 of each type")
	}

	template, err := s.prompts.Load("generate_exam", s.version)
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
			return generateChunkQuestions(ctx, s.client, template, chunk, perChunk[chunk.ChunkID], language, "EXAM")
		})
	if err != nil {
		return nil, err
	}

	questions, err := MergeQuestions(sets)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].Points == 0 {
			if questions[i].Type == QuestionEssay {
				questions[i].Points = defaultEssayPoints
			} else {
				questions[i].Points = defaultQuestionPoints
			}
		}
	}
	return questions, nil
}

// GenerateExam runs the full exam generation job
func (s *ExamService) GenerateExam(ctx context.Context, payload GenerateExamPayload) error {
	var exam model.Exam
	if err := s.db.WithContext(ctx).First(&exam, payload.ExamID).Error; err != nil {
		return fmt.Errorf("failed to load exam %d: %w", payload.ExamID, err)
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
		if statusErr := s.db.WithContext(ctx).Model(&exam).
			Update("status", model.ExamStatusFailed).Error; statusErr != nil {
			log.Printf("[EXAM] Failed to mark exam %d as failed: %v", exam.ID, statusErr)
		}
		return err
	}

	title := payload.Title
	if title == "" {
		title = "Exam on " + time.Now().Format("2006-01-02 15:04")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&model.Exam{}).Where("id = ?", exam.ID).Updates(map[string]interface{}{
			"title":                 title,
			"status":                model.ExamStatusNotStarted,
			"contents_generated_at": &now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("exam_id = ?", exam.ID).Delete(&model.ExamItem{}).Error; err != nil {
			return err
		}

		items := make([]model.ExamItem, len(questions))
		for i, question := range questions {
			item, err := examItemFromQuestion(exam.ID, i, question)
			if err != nil {
				return err
			}
			items[i] = item
		}
		if len(items) == 0 {
			log.Printf("[EXAM] No questions generated for exam %d", exam.ID)
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return fmt.Errorf("failed to persist exam %d items: %w", exam.ID, err)
	}

	LogCourseActivity(s.db, payload.CourseID, payload.UserID, "update", "exam", map[string]interface{}{
		"action":     "generate_exam",
		"exam_id":    exam.ID,
		"lecture_id": payload.LectureID,
		"questions":  len(questions),
	})

	log.Printf("[EXAM] Successfully generated %d questions for exam %d", len(questions), exam.ID)
	return nil
}

func examItemFromQuestion(examID uint, order int, question Question) (model.ExamItem, error) {
	item := model.ExamItem{
		ExamID:       examID,
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
