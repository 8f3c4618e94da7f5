package services

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// QuestionType discriminates the question variants
type QuestionType string

const (
	QuestionTrueOrFalse    QuestionType = "true_or_false"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
)

// ChoiceOption is one option of a multiple-choice question
type ChoiceOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is one generated question of any variant. Variant-specific fields
// are populated according to Type: BoolAnswer for true/false, Options for
// multiple choice, TextAnswer for short answer and essay.
type Question struct {
	Type        QuestionType
	Question    string
	Explanation string
	Points      float64

	BoolAnswer bool
	Options    []ChoiceOption
	TextAnswer string
}

// questionEnvelope is the wire form of a question. Quiz generations tag the
// variant with "type"; exam generations use "question_type" and carry points.
type questionEnvelope struct {
	Type         QuestionType    `json:"type,omitempty"`
	QuestionType QuestionType    `json:"question_type,omitempty"`
	Question     string          `json:"question"`
	Explanation  string          `json:"explanation"`
	Points       float64         `json:"points,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Options      []ChoiceOption  `json:"options,omitempty"`
}

// UnmarshalJSON decodes either wire form and validates the variant payload
func (q *Question) UnmarshalJSON(data []byte) error {
	var env questionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	qType := env.Type
	if qType == "" {
		qType = env.QuestionType
	}

	parsed := Question{
		Type:        qType,
		Question:    env.Question,
		Explanation: env.Explanation,
		Points:      env.Points,
	}

	switch qType {
	case QuestionTrueOrFalse:
		if err := json.Unmarshal(env.Answer, &parsed.BoolAnswer); err != nil {
			return fmt.Errorf("true/false question needs a boolean answer: %w", err)
		}
	case QuestionMultipleChoice:
		if len(env.Options) == 0 {
			return fmt.Errorf("multiple choice question has no options: %q", env.Question)
		}
		parsed.Options = env.Options
	case QuestionShortAnswer, QuestionEssay:
		if err := json.Unmarshal(env.Answer, &parsed.TextAnswer); err != nil {
			return fmt.Errorf("%s question needs a text answer: %w", qType, err)
		}
	case "":
		return fmt.Errorf("question is missing its type: %q", env.Question)
	default:
		return fmt.Errorf("unknown question type %q", qType)
	}

	*q = parsed
	return nil
}

// MarshalJSON emits the quiz wire form. Exam persistence goes through the
// database rows, not this encoding.
func (q Question) MarshalJSON() ([]byte, error) {
	env := questionEnvelope{
		Type:        q.Type,
		Question:    q.Question,
		Explanation: q.Explanation,
		Points:      q.Points,
	}
	switch q.Type {
	case QuestionTrueOrFalse:
		answer, _ := json.Marshal(q.BoolAnswer)
		env.Answer = answer
	case QuestionMultipleChoice:
		env.Options = q.Options
	case QuestionShortAnswer, QuestionEssay:
		answer, _ := json.Marshal(q.TextAnswer)
		env.Answer = answer
	}
	return json.Marshal(env)
}

// CorrectIndices returns the positions of the correct options
func (q Question) CorrectIndices() []int {
	indices := []int{}
	for i, opt := range q.Options {
		if opt.IsCorrect {
			indices = append(indices, i)
		}
	}
	return indices
}

// ChoiceTexts returns the option texts in order
func (q Question) ChoiceTexts() []string {
	texts := make([]string, len(q.Options))
	for i, opt := range q.Options {
		texts[i] = opt.Text
	}
	return texts
}

// QuestionCounts is the requested number of questions per variant
type QuestionCounts struct {
	TrueOrFalse    int `json:"true_or_false_count"`
	MultipleChoice int `json:"multiple_choice_count"`
	ShortAnswer    int `json:"short_answer_count"`
	Essay          int `json:"essay_count"`
}

// Total returns the overall number of requested questions
func (c QuestionCounts) Total() int {
	return c.TrueOrFalse + c.MultipleChoice + c.ShortAnswer + c.Essay
}

// Distribute splits the counts across totalChunks as evenly as possible.
// Each type is distributed independently; remainders go to the earliest
// chunks, so the per-chunk totals of every type sum exactly to the request.
func (c QuestionCounts) Distribute(totalChunks int) []QuestionCounts {
	if totalChunks <= 0 {
		return nil
	}

	distributed := make([]QuestionCounts, totalChunks)
	spread := func(total int, assign func(i int, n int)) {
		base := total / totalChunks
		remainder := total % totalChunks
		for i := 0; i < totalChunks; i++ {
			n := base
			if i < remainder {
				n++
			}
			assign(i, n)
		}
	}
	spread(c.TrueOrFalse, func(i, n int) { distributed[i].TrueOrFalse = n })
	spread(c.MultipleChoice, func(i, n int) { distributed[i].MultipleChoice = n })
	spread(c.ShortAnswer, func(i, n int) { distributed[i].ShortAnswer = n })
	spread(c.Essay, func(i, n int) { distributed[i].Essay = n })
	return distributed
}

// MergeQuestions pools per-chunk question lists and shuffles the pool so
// questions from different chunks are interleaved. A single list passes
// through untouched.
func MergeQuestions(sets [][]Question) ([]Question, error) {
	if len(sets) == 0 {
		return nil, ErrNoInput
	}
	if len(sets) == 1 {
		return sets[0], nil
	}

	var pool []Question
	for _, set := range sets {
		pool = append(pool, set...)
	}
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool, nil
}
