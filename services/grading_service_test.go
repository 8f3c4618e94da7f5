package services

import (
	"context"
	"errors"
	"testing"

	"github.com/studyaid/lecture-jobs/services/llm"
)

func gradingTemplate() *llm.PromptTemplate {
	return &llm.PromptTemplate{
		Model:       "gpt-4o",
		Temperature: 0.1,
		MaxTokens:   2048,
		System:      "You grade essays.",
		User:        "Grade {student_answer} against {model_answer} for question {question} out of {max_points} points. {explanation}",
	}
}

func TestGradeEssayReconcilesScore(t *testing.T) {
	// Reported score 8.0 disagrees with the rubric sum 6.0
	client := &fakeClient{jsonResponses: []string{`{
		"score": 8.0,
		"essay_criteria_analysis": {
			"criteria": [
				{"name": "Coverage", "description": "covers main points", "max_points": 5.0, "earned_points": 4.0},
				{"name": "Clarity", "description": "clear writing", "max_points": 5.0, "earned_points": 2.0}
			],
			"analysis": "Decent coverage, unclear structure."
		}
	}`}}
	svc := NewGradingService(nil, client, nil, "latest")

	result, err := svc.GradeEssay(context.Background(), gradingTemplate(),
		essayQuestion{QuestionID: 1, Question: "Explain normalization", Points: 10}, "my answer")
	if err != nil {
		t.Fatalf("GradeEssay failed: %v", err)
	}
	if result.Score != 6.0 {
		t.Errorf("score = %v, want criteria sum 6.0", result.Score)
	}
}

func TestGradeEssayKeepsConsistentScore(t *testing.T) {
	client := &fakeClient{jsonResponses: []string{`{
		"score": 7.0,
		"essay_criteria_analysis": {
			"criteria": [
				{"name": "Coverage", "description": "", "max_points": 10.0, "earned_points": 7.0}
			],
			"analysis": "Good."
		}
	}`}}
	svc := NewGradingService(nil, client, nil, "latest")

	result, err := svc.GradeEssay(context.Background(), gradingTemplate(),
		essayQuestion{QuestionID: 1, Points: 10}, "answer")
	if err != nil {
		t.Fatalf("GradeEssay failed: %v", err)
	}
	if result.Score != 7.0 {
		t.Errorf("score = %v, want 7.0 untouched", result.Score)
	}
}

func TestGradeOneSkipsAlreadyGraded(t *testing.T) {
	client := &fakeClient{}
	svc := NewGradingService(nil, client, nil, "latest")

	persisted := false
	score, err := svc.gradeOne(context.Background(), gradingTemplate(),
		essayQuestion{QuestionID: 3, Points: 20}, "answer", true,
		func(EssayGradingResult) error { persisted = true; return nil })
	if err != nil {
		t.Fatalf("gradeOne failed: %v", err)
	}
	if score != 0 {
		t.Errorf("already-graded question contributed %v, want 0", score)
	}
	if persisted || client.jsonCalls != 0 {
		t.Error("already-graded question must not call the gateway or persist")
	}
}

func TestGradeOneEmptyAnswer(t *testing.T) {
	client := &fakeClient{}
	svc := NewGradingService(nil, client, nil, "latest")

	var stored EssayGradingResult
	score, err := svc.gradeOne(context.Background(), gradingTemplate(),
		essayQuestion{QuestionID: 4, Points: 20}, "   \n\t ", false,
		func(result EssayGradingResult) error { stored = result; return nil })
	if err != nil {
		t.Fatalf("gradeOne failed: %v", err)
	}
	if score != 0 || stored.Score != 0 {
		t.Errorf("empty answer scored %v, stored %v, want 0", score, stored.Score)
	}
	if len(stored.CriteriaAnalysis.Criteria) != 0 {
		t.Errorf("empty answer should have no criteria: %+v", stored.CriteriaAnalysis)
	}
	if stored.CriteriaAnalysis.Analysis == "" {
		t.Error("empty answer analysis text missing")
	}
	if client.jsonCalls != 0 {
		t.Error("empty answer must not call the gateway")
	}
}

func TestGradeOneFailsOpenOnGatewayError(t *testing.T) {
	client := &fakeClient{jsonErr: errors.New("inference timeout")}
	svc := NewGradingService(nil, client, nil, "latest")

	var stored EssayGradingResult
	score, err := svc.gradeOne(context.Background(), gradingTemplate(),
		essayQuestion{QuestionID: 5, Points: 20}, "a real answer", false,
		func(result EssayGradingResult) error { stored = result; return nil })
	if err != nil {
		t.Fatalf("gradeOne must not surface gateway errors: %v", err)
	}
	if score != 20 || stored.Score != 20 {
		t.Errorf("fail-open score = %v (stored %v), want full 20", score, stored.Score)
	}
	if len(stored.CriteriaAnalysis.Criteria) != 1 {
		t.Fatalf("fail-open should carry one synthetic criterion: %+v", stored.CriteriaAnalysis)
	}
	criterion := stored.CriteriaAnalysis.Criteria[0]
	if criterion.MaxPoints != 20 || criterion.EarnedPoints != 20 {
		t.Errorf("synthetic criterion points = %+v, want full", criterion)
	}
}

func TestGradeOneMalformedResponseFailsOpen(t *testing.T) {
	client := &fakeClient{jsonResponses: []string{`this is not grading output`}}
	svc := NewGradingService(nil, client, nil, "latest")

	score, err := svc.gradeOne(context.Background(), gradingTemplate(),
		essayQuestion{QuestionID: 6, Points: 10}, "answer", false,
		func(EssayGradingResult) error { return nil })
	if err != nil {
		t.Fatalf("gradeOne failed: %v", err)
	}
	if score != 10 {
		t.Errorf("malformed grading output should fail open, got %v", score)
	}
}

func TestGradeOnePersistErrorSurfaces(t *testing.T) {
	client := &fakeClient{jsonErr: errors.New("down")}
	svc := NewGradingService(nil, client, nil, "latest")

	dbErr := errors.New("db write failed")
	_, err := svc.gradeOne(context.Background(), gradingTemplate(),
		essayQuestion{QuestionID: 7, Points: 10}, "answer", false,
		func(EssayGradingResult) error { return dbErr })
	if !errors.Is(err, dbErr) {
		t.Errorf("persist errors must surface, got %v", err)
	}
}
