package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/lshigami/Tamarin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleMaterial = strings.Repeat("The cell is the basic structural unit of all organisms. ", 5)

func TestGenerateUnconfigured(t *testing.T) {
	g := NewQuestionGeneratorService(&fakeLLM{configured: false})

	_, err := g.Generate(context.Background(), sampleMaterial, model.TestTypeMCQ, 3, "medium", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrServiceUnconfigured)
}

func TestGenerateInsufficientContent(t *testing.T) {
	g := NewQuestionGeneratorService(&fakeLLM{configured: true})

	_, err := g.Generate(context.Background(), "too short", model.TestTypeMCQ, 3, "medium", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInsufficientContent)
}

func TestGenerateParsesWellFormedResponse(t *testing.T) {
	response := `[
  {
    "question_text": "What is the basic structural unit of organisms?",
    "question_type": "mcq",
    "choices": [
      {"text": "The cell", "is_correct": true},
      {"text": "The atom", "is_correct": false},
      {"text": "The organ", "is_correct": false},
      {"text": "The tissue", "is_correct": false}
    ],
    "explanation": "Cells are the smallest structural unit.",
    "difficulty": "medium"
  }
]`
	g := NewQuestionGeneratorService(&fakeLLM{configured: true, response: response})

	questions, err := g.Generate(context.Background(), sampleMaterial, model.TestTypeMCQ, 1, "medium", "")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, model.QuestionTypeMCQ, questions[0].QuestionType)
	require.Len(t, questions[0].Choices, 4)
	assert.True(t, questions[0].Choices[0].IsCorrect)
}

func TestGenerateStripsPreambleAndRepairsTruncation(t *testing.T) {
	response := `Sure! Here are your questions:
[
  {"question_text": "Summarize the cell theory.", "question_type": "short_answer", "correct_answer": "All organisms are made of cells."}`
	g := NewQuestionGeneratorService(&fakeLLM{configured: true, response: response})

	questions, err := g.Generate(context.Background(), sampleMaterial, model.TestTypeShortAnswer, 1, "medium", "")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "All organisms are made of cells.", questions[0].CorrectAnswer)
}

func TestGenerateDropsInvalidItems(t *testing.T) {
	response := `[
  {"question_text": "Valid short answer?", "question_type": "short_answer", "correct_answer": "Yes."},
  {"question_type": "short_answer", "correct_answer": "missing question text"},
  {"question_text": "MCQ without a correct choice", "question_type": "mcq", "choices": [{"text": "A", "is_correct": false}]},
  {"question_text": "Long answer without key points", "question_type": "long_answer"}
]`
	g := NewQuestionGeneratorService(&fakeLLM{configured: true, response: response})

	questions, err := g.Generate(context.Background(), sampleMaterial, model.TestTypeMixed, 4, "medium", "")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Valid short answer?", questions[0].QuestionText)
}

func TestGenerateFallsBackOnLLMError(t *testing.T) {
	g := NewQuestionGeneratorService(&fakeLLM{configured: true, err: errors.New("network down")})

	questions, err := g.Generate(context.Background(), sampleMaterial, model.TestTypeMixed, 5, "medium", "")
	require.NoError(t, err)
	require.Len(t, questions, 5)

	types := map[string]bool{}
	for _, q := range questions {
		assert.NotEmpty(t, q.QuestionText)
		types[q.QuestionType] = true
	}
	// Mixed fallback cycles through all three shapes.
	assert.True(t, types[model.QuestionTypeMCQ])
	assert.True(t, types[model.QuestionTypeShortAnswer])
	assert.True(t, types[model.QuestionTypeLongAnswer])
}

func TestGenerateFallsBackOnMalformedJSON(t *testing.T) {
	g := NewQuestionGeneratorService(&fakeLLM{configured: true, response: "[{not json at all"})

	questions, err := g.Generate(context.Background(), sampleMaterial, model.TestTypeMCQ, 2, "medium", "")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	for _, q := range questions {
		assert.Equal(t, model.QuestionTypeMCQ, q.QuestionType)
	}
}

func TestParseGeneratedQuestionsMalformed(t *testing.T) {
	_, err := parseGeneratedQuestions("I could not produce questions, sorry.")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrResponseMalformed)
}

func TestFallbackQuestionsNeverEmptyForKnownTypes(t *testing.T) {
	for _, testType := range []string{
		model.TestTypeMCQ, model.TestTypeShortAnswer, model.TestTypeLongAnswer, model.TestTypeMixed,
	} {
		questions := fallbackQuestions(testType, 3)
		assert.Len(t, questions, 3, "type %s", testType)
	}
}

func TestTruncateOnRuneBoundary(t *testing.T) {
	s := "a語語語"

	assert.Equal(t, s, truncateOnRuneBoundary(s, len(s)))
	assert.Equal(t, "a語", truncateOnRuneBoundary(s, 4))
	// Byte 5 is mid-rune, so the cut backs up to the previous boundary.
	assert.Equal(t, "a語", truncateOnRuneBoundary(s, 5))
	assert.Equal(t, "", truncateOnRuneBoundary("語", 2))
}

func TestGenerateTruncatesOversizedMaterialToValidUTF8(t *testing.T) {
	// One leading byte misaligns every following 3-byte rune against the
	// byte limit, so a naive slice would cut mid-rune.
	material := "a" + strings.Repeat("語", maxContextChars)
	llm := &fakeLLM{configured: true, response: "[]"}
	g := NewQuestionGeneratorService(llm)

	_, err := g.Generate(context.Background(), material, model.TestTypeMCQ, 1, "medium", "")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(llm.lastPrompt))
	assert.Less(t, len(llm.lastPrompt), len(material))
}

func TestBuildGenerationPromptMentionsFormat(t *testing.T) {
	prompt := buildGenerationPrompt(sampleMaterial, model.TestTypeMCQ, 4, "hard", "Focus on chapter 2")

	assert.Contains(t, prompt, "create 4 hard level mcq questions")
	assert.Contains(t, prompt, "Focus on chapter 2")
	assert.Contains(t, prompt, `"question_type": "mcq"`)
	assert.Contains(t, prompt, "Return ONLY a valid JSON array")
}
