package services

import (
	"encoding/json"
	"testing"
)

func TestQuestionCountsDistribute(t *testing.T) {
	tests := []struct {
		name        string
		counts      QuestionCounts
		totalChunks int
		want        []QuestionCounts
	}{
		{
			name:        "remainder to earliest chunks",
			counts:      QuestionCounts{MultipleChoice: 10},
			totalChunks: 3,
			want: []QuestionCounts{
				{MultipleChoice: 4},
				{MultipleChoice: 3},
				{MultipleChoice: 3},
			},
		},
		{
			name:        "each type independent",
			counts:      QuestionCounts{TrueOrFalse: 2, MultipleChoice: 5, ShortAnswer: 1, Essay: 3},
			totalChunks: 2,
			want: []QuestionCounts{
				{TrueOrFalse: 1, MultipleChoice: 3, ShortAnswer: 1, Essay: 2},
				{TrueOrFalse: 1, MultipleChoice: 2, ShortAnswer: 0, Essay: 1},
			},
		},
		{
			name:        "single chunk keeps everything",
			counts:      QuestionCounts{TrueOrFalse: 4, Essay: 2},
			totalChunks: 1,
			want:        []QuestionCounts{{TrueOrFalse: 4, Essay: 2}},
		},
		{
			name:        "more chunks than questions",
			counts:      QuestionCounts{Essay: 2},
			totalChunks: 4,
			want: []QuestionCounts{
				{Essay: 1},
				{Essay: 1},
				{},
				{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.counts.Distribute(tt.totalChunks)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d chunk counts, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestQuestionCountsDistributeConservation(t *testing.T) {
	counts := QuestionCounts{TrueOrFalse: 7, MultipleChoice: 13, ShortAnswer: 5, Essay: 2}
	for chunks := 1; chunks <= 10; chunks++ {
		distributed := counts.Distribute(chunks)
		var sum QuestionCounts
		for _, c := range distributed {
			sum.TrueOrFalse += c.TrueOrFalse
			sum.MultipleChoice += c.MultipleChoice
			sum.ShortAnswer += c.ShortAnswer
			sum.Essay += c.Essay
		}
		if sum != counts {
			t.Errorf("chunks=%d: distribution sums to %+v, want %+v", chunks, sum, counts)
		}
	}
}

func TestQuestionUnmarshalVariants(t *testing.T) {
	// Quiz wire form uses "type"
	var tf Question
	if err := json.Unmarshal([]byte(`{"type":"true_or_false","question":"Is the sky blue?","answer":true,"explanation":"Rayleigh scattering"}`), &tf); err != nil {
		t.Fatalf("true/false decode failed: %v", err)
	}
	if tf.Type != QuestionTrueOrFalse || !tf.BoolAnswer {
		t.Errorf("unexpected true/false question: %+v", tf)
	}

	// Exam wire form uses "question_type" and points
	var mc Question
	err := json.Unmarshal([]byte(`{
		"question_type":"multiple_choice",
		"question":"Pick the primes",
		"options":[
			{"text":"4","is_correct":false},
			{"text":"5","is_correct":true},
			{"text":"7","is_correct":true}
		],
		"explanation":"5 and 7 are prime",
		"points":10.0
	}`), &mc)
	if err != nil {
		t.Fatalf("multiple choice decode failed: %v", err)
	}
	if mc.Type != QuestionMultipleChoice || mc.Points != 10.0 {
		t.Errorf("unexpected multiple choice question: %+v", mc)
	}
	indices := mc.CorrectIndices()
	if len(indices) != 2 || indices[0] != 1 || indices[1] != 2 {
		t.Errorf("correct indices = %v, want [1 2]", indices)
	}
	texts := mc.ChoiceTexts()
	if len(texts) != 3 || texts[0] != "4" {
		t.Errorf("choice texts = %v", texts)
	}

	var essay Question
	if err := json.Unmarshal([]byte(`{"question_type":"essay","question":"Discuss entropy.","answer":"Model answer","explanation":"","points":20.0}`), &essay); err != nil {
		t.Fatalf("essay decode failed: %v", err)
	}
	if essay.Type != QuestionEssay || essay.TextAnswer != "Model answer" || essay.Points != 20.0 {
		t.Errorf("unexpected essay question: %+v", essay)
	}

	var sa Question
	if err := json.Unmarshal([]byte(`{"type":"short_answer","question":"Name the capital of France.","answer":"Paris","explanation":""}`), &sa); err != nil {
		t.Fatalf("short answer decode failed: %v", err)
	}
	if sa.TextAnswer != "Paris" {
		t.Errorf("short answer = %q", sa.TextAnswer)
	}
}

func TestQuestionUnmarshalErrors(t *testing.T) {
	cases := map[string]string{
		"unknown type":        `{"type":"matching","question":"?"}`,
		"missing type":        `{"question":"?"}`,
		"wrong answer kind":   `{"type":"true_or_false","question":"?","answer":"yes"}`,
		"no options":          `{"type":"multiple_choice","question":"?","options":[]}`,
		"missing text answer": `{"type":"essay","question":"?"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var q Question
			if err := json.Unmarshal([]byte(raw), &q); err == nil {
				t.Errorf("expected decode error for %s", raw)
			}
		})
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	original := Question{
		Type:        QuestionMultipleChoice,
		Question:    "Pick one",
		Explanation: "because",
		Options: []ChoiceOption{
			{Text: "a", IsCorrect: true},
			{Text: "b", IsCorrect: false},
		},
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Question
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != original.Type || len(decoded.Options) != 2 || !decoded.Options[0].IsCorrect {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestMergeQuestions(t *testing.T) {
	setA := []Question{
		{Type: QuestionTrueOrFalse, Question: "a1"},
		{Type: QuestionEssay, Question: "a2"},
	}
	setB := []Question{
		{Type: QuestionShortAnswer, Question: "b1"},
	}

	merged, err := MergeQuestions([][]Question{setA, setB})
	if err != nil {
		t.Fatalf("MergeQuestions failed: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("merged %d questions, want 3", len(merged))
	}
	seen := map[string]bool{}
	for _, q := range merged {
		seen[q.Question] = true
	}
	for _, want := range []string{"a1", "a2", "b1"} {
		if !seen[want] {
			t.Errorf("question %q lost in merge", want)
		}
	}
}

func TestMergeQuestionsSinglePassthrough(t *testing.T) {
	set := []Question{
		{Type: QuestionTrueOrFalse, Question: "q1"},
		{Type: QuestionEssay, Question: "q2"},
	}
	merged, err := MergeQuestions([][]Question{set})
	if err != nil {
		t.Fatalf("MergeQuestions failed: %v", err)
	}
	for i := range set {
		if merged[i].Question != set[i].Question {
			t.Errorf("single set reordered at %d: %+v", i, merged)
		}
	}
}

func TestMergeQuestionsEmpty(t *testing.T) {
	if _, err := MergeQuestions(nil); err != ErrNoInput {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}
