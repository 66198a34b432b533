package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/lshigami/Tamarin/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	// minMaterialChars is the smallest extracted text worth prompting over.
	minMaterialChars = 100
	// maxContextChars bounds how much material text goes into the prompt.
	// Oversized input is truncated, never rejected.
	maxContextChars = 15000
)

// GeneratedChoice is one option of a generated multiple-choice question.
type GeneratedChoice struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// GeneratedQuestion is the output contract the model is asked to honor. The
// type-specific fields are populated according to QuestionType.
type GeneratedQuestion struct {
	QuestionText       string            `json:"question_text"`
	QuestionType       string            `json:"question_type"`
	Choices            []GeneratedChoice `json:"choices,omitempty"`
	CorrectAnswer      string            `json:"correct_answer,omitempty"`
	KeyPoints          []string          `json:"key_points,omitempty"`
	EvaluationCriteria string            `json:"evaluation_criteria,omitempty"`
	Explanation        string            `json:"explanation,omitempty"`
	Difficulty         string            `json:"difficulty,omitempty"`
}

// QuestionGeneratorService turns material text into question records via the
// LLM, with canned fallbacks when the model call or its output goes wrong.
type QuestionGeneratorService interface {
	Generate(ctx context.Context, materialText, testType string, count int, difficulty, instructions string) ([]GeneratedQuestion, error)
}

type questionGeneratorService struct {
	llm LLMService
}

func NewQuestionGeneratorService(llm LLMService) QuestionGeneratorService {
	return &questionGeneratorService{llm: llm}
}

func (s *questionGeneratorService) Generate(ctx context.Context, materialText, testType string, count int, difficulty, instructions string) ([]GeneratedQuestion, error) {
	if !s.llm.Configured() {
		return nil, apperr.ErrServiceUnconfigured
	}
	if len(strings.TrimSpace(materialText)) < minMaterialChars {
		return nil, fmt.Errorf("material text below %d characters: %w", minMaterialChars, apperr.ErrInsufficientContent)
	}
	if count <= 0 {
		count = 5
	}
	if difficulty == "" {
		difficulty = "medium"
	}
	materialText = truncateOnRuneBoundary(materialText, maxContextChars)

	prompt := buildGenerationPrompt(materialText, testType, count, difficulty, instructions)

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("testType", testType).Msg("LLM call failed, using fallback questions")
		return fallbackQuestions(testType, count), nil
	}

	questions, err := parseGeneratedQuestions(raw)
	if err != nil {
		log.Warn().Err(err).Str("testType", testType).Msg("Could not parse generated questions, using fallback")
		return fallbackQuestions(testType, count), nil
	}

	valid := validateGeneratedQuestions(questions)
	if len(valid) == 0 {
		log.Warn().Str("testType", testType).Int("parsed", len(questions)).
			Msg("No generated question survived validation, using fallback")
		return fallbackQuestions(testType, count), nil
	}
	return valid, nil
}

// truncateOnRuneBoundary cuts s to at most max bytes without splitting a
// multi-byte rune at the cut point.
func truncateOnRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func buildGenerationPrompt(materialText, testType string, count int, difficulty, instructions string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert teacher and test creator. Based on the following educational material, create %d %s level %s questions.

EDUCATIONAL MATERIAL:
---
%s
---

`, count, difficulty, testType, materialText)

	if instructions != "" {
		fmt.Fprintf(&b, "\nADDITIONAL INSTRUCTIONS:\n%s\n", instructions)
	}

	mcqShape := fmt.Sprintf(`{
  "question_text": "The question text here",
  "question_type": "mcq",
  "choices": [
    {"text": "Option A text", "is_correct": false},
    {"text": "Option B text", "is_correct": true},
    {"text": "Option C text", "is_correct": false},
    {"text": "Option D text", "is_correct": false}
  ],
  "explanation": "Explanation why the correct answer is right",
  "difficulty": "%s"
}`, difficulty)
	shortShape := fmt.Sprintf(`{
  "question_text": "The question text here",
  "question_type": "short_answer",
  "correct_answer": "The expected correct answer",
  "explanation": "Explanation about what a good answer should include",
  "difficulty": "%s"
}`, difficulty)
	longShape := fmt.Sprintf(`{
  "question_text": "The essay question text here",
  "question_type": "long_answer",
  "key_points": ["Point 1", "Point 2", "Point 3"],
  "evaluation_criteria": "Description of what makes a good answer",
  "difficulty": "%s"
}`, difficulty)

	switch testType {
	case model.TestTypeMCQ:
		fmt.Fprintf(&b, `
Create %d multiple-choice questions with exactly 4 options each (A, B, C, D).
For each question:
1. Write a clear question based on the material
2. Provide 4 possible answers labeled A through D
3. Indicate the correct answer
4. Add a brief explanation of why the answer is correct

Format your response as a JSON array with objects having this structure:
%s
`, count, mcqShape)
	case model.TestTypeShortAnswer:
		fmt.Fprintf(&b, `
Create %d short-answer questions that require brief responses (1-3 sentences).
For each question:
1. Write a clear question based on the material
2. Provide the expected correct answer
3. Add a brief explanation about what makes a good answer

Format your response as a JSON array with objects having this structure:
%s
`, count, shortShape)
	case model.TestTypeLongAnswer:
		fmt.Fprintf(&b, `
Create %d long-answer/essay questions that require detailed responses.
For each question:
1. Write a thought-provoking question based on the material
2. Provide key points that should be included in a good answer
3. Add evaluation criteria for assessing the answer quality

Format your response as a JSON array with objects having this structure:
%s
`, count, longShape)
	default:
		fmt.Fprintf(&b, `
Create %d questions with a mix of multiple-choice, short-answer, and long-answer questions.
Try to include at least one of each type.

For each question, format as appropriate for its type:

For MCQ questions:
%s

For short-answer questions:
%s

For long-answer questions:
%s
`, count, mcqShape, shortShape, longShape)
	}

	b.WriteString(`
IMPORTANT: Return ONLY a valid JSON array of questions without any other text or explanation.
Make sure the JSON is properly formatted with proper nesting, quotes, commas, and braces.
Do not include ` + "```json or ```" + ` markers in your response.
`)
	return b.String()
}

// parseGeneratedQuestions repairs the two most common model mistakes before
// unmarshalling: conversational preamble before the array, and a response
// truncated before the closing bracket.
func parseGeneratedQuestions(raw string) ([]GeneratedQuestion, error) {
	if idx := strings.Index(raw, "["); idx >= 0 {
		raw = raw[idx:]
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasSuffix(raw, "]") {
		raw += "]"
	}

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("invalid question JSON: %v: %w", err, apperr.ErrResponseMalformed)
	}
	return questions, nil
}

// validateGeneratedQuestions drops items that do not satisfy their type's
// contract. Invalid items are discarded, not retried.
func validateGeneratedQuestions(questions []GeneratedQuestion) []GeneratedQuestion {
	var valid []GeneratedQuestion
	for _, q := range questions {
		if q.QuestionText == "" || q.QuestionType == "" {
			continue
		}
		switch q.QuestionType {
		case model.QuestionTypeMCQ:
			hasCorrect := false
			for _, c := range q.Choices {
				if c.IsCorrect {
					hasCorrect = true
					break
				}
			}
			if len(q.Choices) > 0 && hasCorrect {
				valid = append(valid, q)
			}
		case model.QuestionTypeShortAnswer, model.QuestionTypeLongAnswer:
			if q.CorrectAnswer != "" || len(q.KeyPoints) > 0 {
				valid = append(valid, q)
			}
		}
	}
	return valid
}

// fallbackQuestions returns canned questions for the requested type, cycling
// to fill the requested count. It never returns an empty slice for a
// positive count.
func fallbackQuestions(testType string, count int) []GeneratedQuestion {
	var templates []GeneratedQuestion

	if testType == model.TestTypeMCQ || testType == model.TestTypeMixed {
		templates = append(templates, GeneratedQuestion{
			QuestionText: "What is the main topic of this material?",
			QuestionType: model.QuestionTypeMCQ,
			Choices: []GeneratedChoice{
				{Text: "Option A", IsCorrect: true},
				{Text: "Option B"},
				{Text: "Option C"},
				{Text: "Option D"},
			},
			Explanation: "This is a sample question. The AI failed to generate proper questions.",
			Difficulty:  "medium",
		})
	}
	if testType == model.TestTypeShortAnswer || testType == model.TestTypeMixed {
		templates = append(templates, GeneratedQuestion{
			QuestionText:  "Summarize the key points from this material.",
			QuestionType:  model.QuestionTypeShortAnswer,
			CorrectAnswer: "A good answer would include the main points from the material.",
			Explanation:   "This is a sample question. The AI failed to generate proper questions.",
			Difficulty:    "medium",
		})
	}
	if testType == model.TestTypeLongAnswer || testType == model.TestTypeMixed {
		templates = append(templates, GeneratedQuestion{
			QuestionText:       "Analyze the significance of the concepts presented in this material.",
			QuestionType:       model.QuestionTypeLongAnswer,
			KeyPoints:          []string{"Main concept", "Supporting details", "Applications or implications"},
			EvaluationCriteria: "A good answer should analyze the main concepts and their significance.",
			Explanation:        "This is a sample question. The AI failed to generate proper questions.",
			Difficulty:         "medium",
		})
	}
	if len(templates) == 0 {
		return nil
	}

	questions := make([]GeneratedQuestion, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, templates[i%len(templates)])
	}
	return questions
}
