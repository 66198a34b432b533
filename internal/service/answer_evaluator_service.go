package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lshigami/Tamarin/internal/model"
	"github.com/rs/zerolog/log"
)

// answerStopWords are stripped from an expected answer before keyword
// matching.
var answerStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true,
}

// Grade is the outcome of evaluating one answer. Points is the awarded
// share of the question's point value.
type Grade struct {
	IsCorrect bool
	Points    float64
	Feedback  string
}

// AnswerEvaluatorService grades a student's answer to a question. MCQ
// grading is deterministic; free-text grading delegates to the LLM when one
// is configured and always keeps a keyword heuristic as the fallback.
type AnswerEvaluatorService interface {
	Evaluate(ctx context.Context, question *model.Question, answer *model.StudentAnswer) (Grade, error)
}

type answerEvaluatorService struct {
	llm LLMService
}

func NewAnswerEvaluatorService(llm LLMService) AnswerEvaluatorService {
	return &answerEvaluatorService{llm: llm}
}

func (s *answerEvaluatorService) Evaluate(ctx context.Context, question *model.Question, answer *model.StudentAnswer) (Grade, error) {
	switch question.QuestionType {
	case model.QuestionTypeMCQ:
		return evaluateMCQ(question, answer.SelectedChoiceID), nil
	case model.QuestionTypeShortAnswer:
		if strings.TrimSpace(answer.AnswerText) == "" {
			return Grade{Feedback: "No answer provided."}, nil
		}
		if s.llm != nil && s.llm.Configured() {
			if grade, err := s.evaluateWithLLM(ctx, question, answer.AnswerText); err == nil {
				return grade, nil
			} else {
				log.Warn().Err(err).Uint("questionID", question.ID).Msg("LLM grading failed, using keyword heuristic")
			}
		}
		return evaluateShortAnswer(question, answer.AnswerText), nil
	case model.QuestionTypeLongAnswer:
		if strings.TrimSpace(answer.AnswerText) == "" {
			return Grade{Feedback: "No answer provided."}, nil
		}
		if s.llm != nil && s.llm.Configured() {
			if grade, err := s.evaluateWithLLM(ctx, question, answer.AnswerText); err == nil {
				return grade, nil
			} else {
				log.Warn().Err(err).Uint("questionID", question.ID).Msg("LLM grading failed, using key-point heuristic")
			}
		}
		return evaluateLongAnswer(question, answer.AnswerText), nil
	default:
		return Grade{Feedback: "Unable to evaluate this answer type."}, fmt.Errorf("unsupported question type for evaluation: %s", question.QuestionType)
	}
}

// evaluateMCQ is all-or-nothing against the flagged-correct choice. It never
// consults the LLM.
func evaluateMCQ(question *model.Question, selectedChoiceID *uint) Grade {
	if selectedChoiceID == nil {
		return Grade{Feedback: "No answer provided."}
	}
	for _, choice := range question.Choices {
		if choice.ID != *selectedChoiceID {
			continue
		}
		if choice.IsCorrect {
			return Grade{
				IsCorrect: true,
				Points:    question.Points,
				Feedback:  strings.TrimSpace("Correct! " + question.Explanation),
			}
		}
		return Grade{Feedback: strings.TrimSpace("Incorrect. " + question.Explanation)}
	}
	return Grade{Feedback: "Invalid choice selection."}
}

// evaluateShortAnswer measures how many keywords of the expected answer
// appear in the student's text. Coverage of at least 0.7 earns full points
// and at least 0.4 earns half.
func evaluateShortAnswer(question *model.Question, answerText string) Grade {
	expected := strings.ToLower(question.Metadata.ExpectedAnswer)
	student := strings.ToLower(answerText)

	keywords := map[string]bool{}
	for _, word := range strings.Fields(expected) {
		if !answerStopWords[word] {
			keywords[word] = true
		}
	}

	coverage := 0.0
	if len(keywords) > 0 {
		matched := 0
		for word := range keywords {
			if strings.Contains(student, word) {
				matched++
			}
		}
		coverage = float64(matched) / float64(len(keywords))
	}

	switch {
	case coverage >= 0.7:
		return Grade{IsCorrect: true, Points: question.Points, Feedback: "Good answer!"}
	case coverage >= 0.4:
		return Grade{IsCorrect: true, Points: question.Points * 0.5, Feedback: "Partially correct."}
	default:
		return Grade{Feedback: "Incorrect answer."}
	}
}

// evaluateLongAnswer measures the fraction of declared key points found
// anywhere in the student's text and maps it to four award tiers.
func evaluateLongAnswer(question *model.Question, answerText string) Grade {
	student := strings.ToLower(answerText)
	keyPoints := question.Metadata.KeyPoints

	coverage := 0.0
	if len(keyPoints) > 0 {
		covered := 0
		for _, point := range keyPoints {
			if strings.Contains(student, strings.ToLower(point)) {
				covered++
			}
		}
		coverage = float64(covered) / float64(len(keyPoints))
	}

	switch {
	case coverage >= 0.8:
		return Grade{IsCorrect: true, Points: question.Points, Feedback: "Excellent answer covering most key points."}
	case coverage >= 0.5:
		return Grade{IsCorrect: true, Points: question.Points * 0.7, Feedback: "Good answer covering some key points."}
	case coverage > 0:
		return Grade{IsCorrect: true, Points: question.Points * 0.3, Feedback: "Partial answer with few key points."}
	default:
		return Grade{Feedback: "Answer does not cover any key points."}
	}
}

// evaluateWithLLM asks the model for a score and feedback in a fixed
// two-line format and clamps the score to the question's point value.
func (s *answerEvaluatorService) evaluateWithLLM(ctx context.Context, question *model.Question, answerText string) (Grade, error) {
	var rubric strings.Builder
	if question.Metadata.ExpectedAnswer != "" {
		fmt.Fprintf(&rubric, "Expected answer:\n%s\n\n", question.Metadata.ExpectedAnswer)
	}
	if len(question.Metadata.KeyPoints) > 0 {
		rubric.WriteString("Key points a good answer should cover:\n")
		for _, point := range question.Metadata.KeyPoints {
			fmt.Fprintf(&rubric, "- %s\n", point)
		}
		rubric.WriteString("\n")
	}
	if question.Metadata.EvaluationCriteria != "" {
		fmt.Fprintf(&rubric, "Evaluation criteria:\n%s\n\n", question.Metadata.EvaluationCriteria)
	}

	prompt := fmt.Sprintf(`You are an expert grader. Evaluate the student's answer to the question below.

Question:
%s

%sStudent's answer:
---
%s
---

Format your response strictly as:
Score: [a number from 0.0 to %.1f]
Feedback: [concise feedback explaining the score]
`, question.QuestionText, rubric.String(), answerText, question.Points)

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return Grade{}, err
	}

	scoreStr, feedback, err := parseScoreAndFeedback(raw)
	if err != nil {
		return Grade{}, err
	}
	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return Grade{}, fmt.Errorf("could not parse score value %q from grader response", scoreStr)
	}

	if score > question.Points {
		score = question.Points
	}
	if score < 0 {
		score = 0
	}
	return Grade{
		IsCorrect: score >= question.Points*0.5,
		Points:    score,
		Feedback:  feedback,
	}, nil
}

func parseScoreAndFeedback(raw string) (scoreStr string, feedback string, err error) {
	const scorePrefix = "Score:"
	const feedbackPrefix = "Feedback:"

	scoreIndex := strings.Index(raw, scorePrefix)
	if scoreIndex == -1 {
		return "", raw, fmt.Errorf("grader response has no 'Score:' prefix")
	}

	endOfScoreLine := strings.Index(raw[scoreIndex:], "\n")
	if endOfScoreLine == -1 {
		scoreStr = strings.TrimSpace(raw[scoreIndex+len(scorePrefix):])
	} else {
		scoreStr = strings.TrimSpace(raw[scoreIndex+len(scorePrefix) : scoreIndex+endOfScoreLine])
	}

	feedbackIndex := strings.Index(raw, feedbackPrefix)
	if feedbackIndex != -1 && feedbackIndex > scoreIndex {
		feedback = strings.TrimSpace(raw[feedbackIndex+len(feedbackPrefix):])
	} else if endOfScoreLine != -1 && len(raw) > scoreIndex+endOfScoreLine+1 {
		feedback = strings.TrimSpace(raw[scoreIndex+endOfScoreLine+1:])
	} else {
		feedback = "Feedback not found in the expected format after the score."
	}

	// The score line sometimes carries trailing words, keep the number only.
	if parts := strings.Fields(scoreStr); len(parts) > 0 {
		scoreStr = parts[0]
	}
	return scoreStr, feedback, nil
}
