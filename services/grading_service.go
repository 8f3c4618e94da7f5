package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services/llm"
	"github.com/studyaid/lecture-jobs/utils"
)

// scoreEpsilon is the tolerance when comparing the reported score against
// the per-criterion sum.
const scoreEpsilon = 0.01

// ScoringCriterion is one rubric entry of an essay evaluation
type ScoringCriterion struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	MaxPoints    float64 `json:"max_points"`
	EarnedPoints float64 `json:"earned_points"`
}

// EssayCriteriaAnalysis is the structured evaluation of an essay answer
type EssayCriteriaAnalysis struct {
	Criteria []ScoringCriterion `json:"criteria"`
	Analysis string             `json:"analysis"`
}

// EssayGradingResult is the gateway's response for one essay
type EssayGradingResult struct {
	Score            float64               `json:"score"`
	CriteriaAnalysis EssayCriteriaAnalysis `json:"essay_criteria_analysis"`
}

// GradingService grades essay answers for quizzes and exams
type GradingService struct {
	db      *gorm.DB
	client  CompletionClient
	prompts *llm.PromptStore
	version string
}

func NewGradingService(db *gorm.DB, client CompletionClient, prompts *llm.PromptStore, promptVersion string) *GradingService {
	return &GradingService{db: db, client: client, prompts: prompts, version: promptVersion}
}

// essayQuestion is the grading view of a quiz or exam item
type essayQuestion struct {
	QuestionID  uint
	Question    string
	ModelAnswer string
	Explanation string
	Points      float64
}

// GradeEssay evaluates one answer against the rubric prompt. When the
// per-criterion points disagree with the reported score beyond the
// tolerance, the criterion sum wins. Gateway failures are not surfaced
// here; callers apply the fail-open policy.
func (s *GradingService) GradeEssay(ctx context.Context, template *llm.PromptTemplate, question essayQuestion, studentAnswer string) (EssayGradingResult, error) {
	var result EssayGradingResult

	userMessage := template.Render(map[string]string{
		"question":       question.Question,
		"model_answer":   question.ModelAnswer,
		"explanation":    question.Explanation,
		"student_answer": studentAnswer,
		"max_points":     strconv.FormatFloat(question.Points, 'f', -1, 64),
	})

	raw, err := s.client.JSONCompletion(ctx, template.System, userMessage,
		llm.WithModel(template.Model),
		llm.WithTemperature(template.Temperature),
		llm.WithMaxTokens(template.MaxTokens))
	if err != nil {
		return result, fmt.Errorf("essay grading failed for question %d: %w", question.QuestionID, err)
	}
	if err := utils.ExtractJSONTo(raw, &result); err != nil {
		return result, fmt.Errorf("invalid grading JSON for question %d: %w", question.QuestionID, err)
	}

	// The model occasionally reports a score that disagrees with its own
	// rubric; the per-criterion sum is authoritative.
	criteriaTotal := 0.0
	for _, criterion := range result.CriteriaAnalysis.Criteria {
		criteriaTotal += criterion.EarnedPoints
	}
	if math.Abs(criteriaTotal-result.Score) > scoreEpsilon {
		log.Printf("[GRADING] Score mismatch for question %d: criteria total %.2f, reported %.2f",
			question.QuestionID, criteriaTotal, result.Score)
		result.Score = criteriaTotal
	}
	return result, nil
}

// failOpenResult awards full points when grading itself failed, so a system
// error never penalizes the student.
func failOpenResult(maxPoints float64) EssayGradingResult {
	return EssayGradingResult{
		Score: maxPoints,
		CriteriaAnalysis: EssayCriteriaAnalysis{
			Criteria: []ScoringCriterion{
				{
					Name:         "System error compensation",
					Description:  "Full points awarded because of a grading system error",
					MaxPoints:    maxPoints,
					EarnedPoints: maxPoints,
				},
			},
			Analysis: "A system error occurred during grading, so full points were awarded. If you would like an accurate evaluation, please report the error.",
		},
	}
}

func emptyAnswerResult() EssayGradingResult {
	return EssayGradingResult{
		Score: 0,
		CriteriaAnalysis: EssayCriteriaAnalysis{
			Criteria: []ScoringCriterion{},
			Analysis: "An empty answer is scored as 0 points.",
		},
	}
}

// gradeOne applies the per-question policy: skip already-graded answers,
// zero empty answers without a gateway call, and fail open on gateway
// errors. The returned score is the question's contribution to the total;
// persist stores the outcome, fail-open results included.
func (s *GradingService) gradeOne(ctx context.Context, template *llm.PromptTemplate, question essayQuestion, answer string, alreadyGraded bool, persist func(EssayGradingResult) error) (float64, error) {
	if alreadyGraded {
		log.Printf("[GRADING] Question %d already graded, skipping", question.QuestionID)
		return 0, nil
	}

	if strings.TrimSpace(answer) == "" {
		log.Printf("[GRADING] Empty answer for question %d, scoring 0", question.QuestionID)
		result := emptyAnswerResult()
		if err := persist(result); err != nil {
			return 0, err
		}
		return 0, nil
	}

	result, err := s.GradeEssay(ctx, template, question, answer)
	if err != nil {
		log.Printf("[GRADING] Question %d grading failed, awarding full %.1f points: %v",
			question.QuestionID, question.Points, err)
		result = failOpenResult(question.Points)
	}
	if err := persist(result); err != nil {
		return 0, err
	}
	log.Printf("[GRADING] Question %d scored %.2f/%.1f", question.QuestionID, result.Score, question.Points)
	return result.Score, nil
}

// GradeQuizEssayPayload identifies the quiz attempt to grade
type GradeQuizEssayPayload struct {
	QuizID   uint   `json:"quiz_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	CourseID uint   `json:"course_id,omitempty"`
}

// GradeQuizEssays grades every essay question of a quiz for one user,
// accumulates the scores into the quiz result and marks the quiz graded.
func (s *GradingService) GradeQuizEssays(ctx context.Context, payload GradeQuizEssayPayload) error {
	template, err := s.prompts.Load("grade_quiz_essay", s.version)
	if err != nil {
		return err
	}

	var items []model.QuizItem
	err = s.db.WithContext(ctx).
		Where("quiz_id = ? AND question_type = ?", payload.QuizID, string(QuestionEssay)).
		Order("display_order").
		Find(&items).Error
	if err != nil {
		return fmt.Errorf("failed to load essay items for quiz %d: %w", payload.QuizID, err)
	}
	if len(items) == 0 {
		log.Printf("[GRADING] No essay questions found for quiz %d", payload.QuizID)
		return nil
	}
	log.Printf("[GRADING] Grading %d essay questions for quiz %d, user %s", len(items), payload.QuizID, payload.UserID)

	total := 0.0
	for _, item := range items {
		var response model.QuizResponse
		err := s.db.WithContext(ctx).
			Where("question_id = ? AND user_id = ?", item.ID, payload.UserID).
			First(&response).Error
		if err != nil {
			log.Printf("[GRADING] Quiz response not found for question %d, user %s: %v", item.ID, payload.UserID, err)
			continue
		}

		question := essayQuestion{
			QuestionID:  item.ID,
			Question:    item.Question,
			ModelAnswer: item.TextAnswer,
			Explanation: item.Explanation,
			Points:      item.Points,
		}
		alreadyGraded := response.Score != nil && len(response.EssayCriteriaAnalysis) > 0

		score, err := s.gradeOne(ctx, template, question, response.TextAnswer, alreadyGraded,
			func(result EssayGradingResult) error {
				return s.persistQuizScore(ctx, item.ID, payload.UserID, result)
			})
		if err != nil {
			return err
		}
		total += score
	}

	if err := s.addQuizResultScore(ctx, payload.QuizID, payload.UserID, total); err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(&model.Quiz{}).
		Where("id = ?", payload.QuizID).
		Update("status", model.QuizStatusGraded).Error
	if err != nil {
		return fmt.Errorf("failed to mark quiz %d graded: %w", payload.QuizID, err)
	}

	log.Printf("[GRADING] Quiz %d graded for user %s, essay score added: %.2f", payload.QuizID, payload.UserID, total)
	return nil
}

func (s *GradingService) persistQuizScore(ctx context.Context, questionID uint, userID string, result EssayGradingResult) error {
	analysisJSON, err := json.Marshal(result.CriteriaAnalysis)
	if err != nil {
		return fmt.Errorf("failed to serialize criteria analysis: %w", err)
	}
	err = s.db.WithContext(ctx).Model(&model.QuizResponse{}).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		Updates(map[string]interface{}{
			"score":                   result.Score,
			"essay_criteria_analysis": analysisJSON,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to persist score for question %d: %w", questionID, err)
	}
	return nil
}

func (s *GradingService) addQuizResultScore(ctx context.Context, quizID uint, userID string, additional float64) error {
	res := s.db.WithContext(ctx).Model(&model.QuizResult{}).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Update("score", gorm.Expr("COALESCE(score, 0) + ?", additional))
	if res.Error != nil {
		return fmt.Errorf("failed to update quiz result for quiz %d: %w", quizID, res.Error)
	}
	if res.RowsAffected == 0 {
		log.Printf("[GRADING] Quiz result not found for quiz %d, user %s", quizID, userID)
	}
	return nil
}

// GradeExamEssayPayload identifies the exam attempt to grade
type GradeExamEssayPayload struct {
	ExamID   uint   `json:"exam_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	CourseID uint   `json:"course_id,omitempty"`
}

// GradeExamEssays mirrors GradeQuizEssays for exams
func (s *GradingService) GradeExamEssays(ctx context.Context, payload GradeExamEssayPayload) error {
	template, err := s.prompts.Load("grade_exam_essay", s.version)
	if err != nil {
		return err
	}

	var items []model.ExamItem
	err = s.db.WithContext(ctx).
		Where("exam_id = ? AND question_type = ?", payload.ExamID, string(QuestionEssay)).
		Order("display_order").
		Find(&items).Error
	if err != nil {
		return fmt.Errorf("failed to load essay items for exam %d: %w", payload.ExamID, err)
	}
	if len(items) == 0 {
		log.Printf("[GRADING] No essay questions found for exam %d", payload.ExamID)
		return nil
	}
	log.Printf("[GRADING] Grading %d essay questions for exam %d, user %s", len(items), payload.ExamID, payload.UserID)

	total := 0.0
	for _, item := range items {
		var response model.ExamResponse
		err := s.db.WithContext(ctx).
			Where("question_id = ? AND user_id = ?", item.ID, payload.UserID).
			First(&response).Error
		if err != nil {
			log.Printf("[GRADING] Exam response not found for question %d, user %s: %v", item.ID, payload.UserID, err)
			continue
		}

		question := essayQuestion{
			QuestionID:  item.ID,
			Question:    item.Question,
			ModelAnswer: item.TextAnswer,
			Explanation: item.Explanation,
			Points:      item.Points,
		}
		alreadyGraded := response.Score != nil && len(response.EssayCriteriaAnalysis) > 0

		score, err := s.gradeOne(ctx, template, question, response.TextAnswer, alreadyGraded,
			func(result EssayGradingResult) error {
				return s.persistExamScore(ctx, item.ID, payload.UserID, result)
			})
		if err != nil {
			return err
		}
		total += score
	}

	if err := s.addExamResultScore(ctx, payload.ExamID, payload.UserID, total); err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(&model.Exam{}).
		Where("id = ?", payload.ExamID).
		Update("status", model.ExamStatusGraded).Error
	if err != nil {
		return fmt.Errorf("failed to mark exam %d graded: %w", payload.ExamID, err)
	}

	log.Printf("[GRADING] Exam %d graded for user %s, essay score added: %.2f", payload.ExamID, payload.UserID, total)
	return nil
}

func (s *GradingService) persistExamScore(ctx context.Context, questionID uint, userID string, result EssayGradingResult) error {
	analysisJSON, err := json.Marshal(result.CriteriaAnalysis)
	if err != nil {
		return fmt.Errorf("failed to serialize criteria analysis: %w", err)
	}
	err = s.db.WithContext(ctx).Model(&model.ExamResponse{}).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		Updates(map[string]interface{}{
			"score":                   result.Score,
			"essay_criteria_analysis": analysisJSON,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to persist score for question %d: %w", questionID, err)
	}
	return nil
}

func (s *GradingService) addExamResultScore(ctx context.Context, examID uint, userID string, additional float64) error {
	res := s.db.WithContext(ctx).Model(&model.ExamResult{}).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Update("score", gorm.Expr("COALESCE(score, 0) + ?", additional))
	if res.Error != nil {
		return fmt.Errorf("failed to update exam result for exam %d: %w", examID, res.Error)
	}
	if res.RowsAffected == 0 {
		log.Printf("[GRADING] Exam result not found for exam %d, user %s", examID, userID)
	}
	return nil
}
