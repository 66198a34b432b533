package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lshigami/Tamarin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response   string
	err        error
	configured bool
	lastPrompt string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func (f *fakeLLM) Configured() bool {
	return f.configured
}

func uintPtr(v uint) *uint { return &v }

func mcqQuestion() *model.Question {
	return &model.Question{
		ID:           1,
		QuestionType: model.QuestionTypeMCQ,
		Points:       2,
		Explanation:  "B is the definition.",
		Choices: []model.Choice{
			{ID: 10, ChoiceText: "A", IsCorrect: false},
			{ID: 11, ChoiceText: "B", IsCorrect: true},
			{ID: 12, ChoiceText: "C", IsCorrect: false},
		},
	}
}

func TestEvaluateMCQCorrect(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})
	grade, err := s.Evaluate(context.Background(), mcqQuestion(), &model.StudentAnswer{SelectedChoiceID: uintPtr(11)})

	require.NoError(t, err)
	assert.True(t, grade.IsCorrect)
	assert.Equal(t, 2.0, grade.Points)
	assert.Contains(t, grade.Feedback, "Correct!")
}

func TestEvaluateMCQIncorrect(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})
	grade, err := s.Evaluate(context.Background(), mcqQuestion(), &model.StudentAnswer{SelectedChoiceID: uintPtr(10)})

	require.NoError(t, err)
	assert.False(t, grade.IsCorrect)
	assert.Zero(t, grade.Points)
	assert.Contains(t, grade.Feedback, "Incorrect.")
}

func TestEvaluateMCQInvalidChoice(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})
	grade, err := s.Evaluate(context.Background(), mcqQuestion(), &model.StudentAnswer{SelectedChoiceID: uintPtr(99)})

	require.NoError(t, err)
	assert.False(t, grade.IsCorrect)
	assert.Equal(t, "Invalid choice selection.", grade.Feedback)
}

func TestEvaluateMCQNoSelection(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})
	grade, err := s.Evaluate(context.Background(), mcqQuestion(), &model.StudentAnswer{})

	require.NoError(t, err)
	assert.Equal(t, "No answer provided.", grade.Feedback)
}

func TestEvaluateEmptyTextAnswer(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{configured: true})
	question := &model.Question{QuestionType: model.QuestionTypeShortAnswer, Points: 1}

	grade, err := s.Evaluate(context.Background(), question, &model.StudentAnswer{AnswerText: "   "})
	require.NoError(t, err)
	assert.False(t, grade.IsCorrect)
	assert.Zero(t, grade.Points)
	assert.Equal(t, "No answer provided.", grade.Feedback)
}

func shortAnswerQuestion() *model.Question {
	// Ten keywords, no stop words.
	return &model.Question{
		QuestionType: model.QuestionTypeShortAnswer,
		Points:       2,
		Metadata: model.QuestionMetadata{
			ExpectedAnswer: "alpha beta gamma delta epsilon zeta eta theta iota kappa",
		},
	}
}

func TestShortAnswerFullPointsAtSeventyPercent(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})

	// Exactly 7 of 10 keywords present.
	grade, err := s.Evaluate(context.Background(), shortAnswerQuestion(), &model.StudentAnswer{
		AnswerText: "alpha beta gamma delta epsilon zeta eta",
	})
	require.NoError(t, err)
	assert.True(t, grade.IsCorrect)
	assert.Equal(t, 2.0, grade.Points)
	assert.Equal(t, "Good answer!", grade.Feedback)
}

func TestShortAnswerHalfPointsAtFortyPercent(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})

	grade, err := s.Evaluate(context.Background(), shortAnswerQuestion(), &model.StudentAnswer{
		AnswerText: "alpha beta gamma delta",
	})
	require.NoError(t, err)
	assert.True(t, grade.IsCorrect)
	assert.Equal(t, 1.0, grade.Points)
	assert.Equal(t, "Partially correct.", grade.Feedback)
}

func TestShortAnswerZeroBelowThreshold(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})

	grade, err := s.Evaluate(context.Background(), shortAnswerQuestion(), &model.StudentAnswer{
		AnswerText: "alpha gamma iota",
	})
	require.NoError(t, err)
	assert.False(t, grade.IsCorrect)
	assert.Zero(t, grade.Points)
}

func TestShortAnswerStopWordsOnlyExpectedAnswer(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})
	question := &model.Question{
		QuestionType: model.QuestionTypeShortAnswer,
		Points:       1,
		Metadata:     model.QuestionMetadata{ExpectedAnswer: "the and or"},
	}

	grade, err := s.Evaluate(context.Background(), question, &model.StudentAnswer{AnswerText: "anything"})
	require.NoError(t, err)
	assert.False(t, grade.IsCorrect)
	assert.Zero(t, grade.Points)
}

func longAnswerQuestion() *model.Question {
	return &model.Question{
		QuestionType: model.QuestionTypeLongAnswer,
		Points:       3,
		Metadata: model.QuestionMetadata{
			KeyPoints: []string{"mitochondria", "osmosis", "photosynthesis", "diffusion", "enzyme"},
		},
	}
}

func TestLongAnswerTiers(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})
	ctx := context.Background()

	tests := []struct {
		name      string
		answer    string
		isCorrect bool
		points    float64
	}{
		{"four of five key points", "mitochondria osmosis photosynthesis diffusion", true, 3.0},
		{"three of five key points", "mitochondria osmosis photosynthesis", true, 3.0 * 0.7},
		{"one of five key points", "only mitochondria matter", true, 3.0 * 0.3},
		{"no key points", "unrelated rambling", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grade, err := s.Evaluate(ctx, longAnswerQuestion(), &model.StudentAnswer{AnswerText: tt.answer})
			require.NoError(t, err)
			assert.Equal(t, tt.isCorrect, grade.IsCorrect)
			assert.InDelta(t, tt.points, grade.Points, 1e-9)
		})
	}
}

func TestLongAnswerNoKeyPointsFeedback(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})
	grade, err := s.Evaluate(context.Background(), longAnswerQuestion(), &model.StudentAnswer{AnswerText: "nothing relevant"})

	require.NoError(t, err)
	assert.Equal(t, "Answer does not cover any key points.", grade.Feedback)
}

func TestLLMGradingPath(t *testing.T) {
	llm := &fakeLLM{configured: true, response: "Score: 1.5\nFeedback: Solid coverage of the expected answer."}
	s := NewAnswerEvaluatorService(llm)

	grade, err := s.Evaluate(context.Background(), shortAnswerQuestion(), &model.StudentAnswer{AnswerText: "alpha"})
	require.NoError(t, err)
	assert.True(t, grade.IsCorrect)
	assert.Equal(t, 1.5, grade.Points)
	assert.Equal(t, "Solid coverage of the expected answer.", grade.Feedback)
}

func TestLLMGradingClampsScore(t *testing.T) {
	llm := &fakeLLM{configured: true, response: "Score: 99\nFeedback: Overenthusiastic grader."}
	s := NewAnswerEvaluatorService(llm)

	grade, err := s.Evaluate(context.Background(), shortAnswerQuestion(), &model.StudentAnswer{AnswerText: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, grade.Points)
}

func TestLLMFailureFallsBackToHeuristic(t *testing.T) {
	llm := &fakeLLM{configured: true, err: errors.New("rate limited")}
	s := NewAnswerEvaluatorService(llm)

	grade, err := s.Evaluate(context.Background(), shortAnswerQuestion(), &model.StudentAnswer{
		AnswerText: "alpha beta gamma delta epsilon zeta eta",
	})
	require.NoError(t, err)
	assert.True(t, grade.IsCorrect)
	assert.Equal(t, 2.0, grade.Points)
}

func TestEvaluateUnknownQuestionType(t *testing.T) {
	s := NewAnswerEvaluatorService(&fakeLLM{})
	question := &model.Question{QuestionType: "true_false", Points: 1}

	_, err := s.Evaluate(context.Background(), question, &model.StudentAnswer{AnswerText: "yes"})
	require.Error(t, err)
}

func TestParseScoreAndFeedback(t *testing.T) {
	score, feedback, err := parseScoreAndFeedback("Score: 2.5\nFeedback: Well argued.")
	require.NoError(t, err)
	assert.Equal(t, "2.5", score)
	assert.Equal(t, "Well argued.", feedback)

	score, _, err = parseScoreAndFeedback("Score: 3 out of 4\nFeedback: ok")
	require.NoError(t, err)
	assert.Equal(t, "3", score)

	_, _, err = parseScoreAndFeedback("no structured output at all")
	require.Error(t, err)
}
