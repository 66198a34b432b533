package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/lshigami/Tamarin/internal/model"
	"github.com/lshigami/Tamarin/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateTestInput carries everything needed to create a test and generate
// its questions from the referenced materials.
type CreateTestInput struct {
	Title            string
	Description      string
	TestType         string
	MaterialIDs      []uint
	NumQuestions     int
	Difficulty       string
	Instructions     string
	TimeLimitMinutes *int
}

// AttemptSummary is one completed attempt in a user's statistics.
type AttemptSummary struct {
	AttemptID   uint      `json:"id"`
	TestID      uint      `json:"test_id"`
	TestTitle   string    `json:"test_title"`
	Score       float64   `json:"score"`
	MaxScore    float64   `json:"max_score"`
	Percentage  float64   `json:"percentage"`
	CompletedAt time.Time `json:"completed_at"`
}

// UserStatistics aggregates a user's completed attempts. Scores are
// percentages.
type UserStatistics struct {
	TotalTests     int              `json:"total_tests"`
	AverageScore   float64          `json:"average_score"`
	HighestScore   float64          `json:"highest_score"`
	LowestScore    float64          `json:"lowest_score"`
	TestsByType    map[string]int   `json:"tests_by_type"`
	RecentAttempts []AttemptSummary `json:"recent_attempts"`
}

// TestService orchestrates test creation, question generation, attempts and
// grading.
type TestService interface {
	CreateTest(ctx context.Context, userID uint, input CreateTestInput) (*model.Test, error)
	GetTest(testID, userID uint) (*model.Test, error)
	ListUserTests(userID uint) ([]model.Test, error)
	DeleteTest(testID, userID uint) error
	StartAttempt(testID, userID uint) (*model.TestAttempt, error)
	SubmitAnswer(ctx context.Context, attemptID, questionID, userID uint, answerText string, selectedChoiceID *uint) (*model.StudentAnswer, error)
	CompleteAttempt(ctx context.Context, attemptID, userID uint) (*model.TestAttempt, error)
	GetAttempt(attemptID, userID uint) (*model.TestAttempt, error)
	ListAttempts(testID, userID uint) ([]model.TestAttempt, error)
	GetUserStatistics(userID uint) (*UserStatistics, error)
}

type testService struct {
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.TestAttemptRepository
	answerRepo   repository.AnswerRepository
	materialRepo repository.MaterialRepository
	storage      FileStorageService
	extractor    TextExtractor
	generator    QuestionGeneratorService
	evaluator    AnswerEvaluatorService
}

func NewTestService(
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.TestAttemptRepository,
	answerRepo repository.AnswerRepository,
	materialRepo repository.MaterialRepository,
	storage FileStorageService,
	extractor TextExtractor,
	generator QuestionGeneratorService,
	evaluator AnswerEvaluatorService,
) TestService {
	return &testService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		answerRepo:   answerRepo,
		materialRepo: materialRepo,
		storage:      storage,
		extractor:    extractor,
		generator:    generator,
		evaluator:    evaluator,
	}
}

// CreateTest persists the test and generates questions from the referenced
// materials. Generation failures never lose the test row; the caller gets
// the test with however many questions could be produced.
func (s *testService) CreateTest(ctx context.Context, userID uint, input CreateTestInput) (*model.Test, error) {
	if !model.ValidTestType(input.TestType) {
		return nil, fmt.Errorf("invalid test type %q: %w", input.TestType, apperr.ErrValidationFailed)
	}

	test := &model.Test{
		UserID:           userID,
		Title:            input.Title,
		Description:      input.Description,
		TestType:         input.TestType,
		TimeLimitMinutes: input.TimeLimitMinutes,
	}
	if err := s.testRepo.Create(test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	if len(input.MaterialIDs) > 0 {
		generated := s.generateFromMaterials(ctx, test, userID, input)
		test.TotalQuestions = generated
		if err := s.testRepo.Update(test); err != nil {
			return nil, fmt.Errorf("failed to update test question count: %w", err)
		}
	}

	return s.testRepo.FindByIDWithQuestions(test.ID)
}

// generateFromMaterials splits the requested question count across the
// materials and generates per material. One bad material does not abort the
// others. The return value is the number of questions actually persisted.
func (s *testService) generateFromMaterials(ctx context.Context, test *model.Test, userID uint, input CreateTestInput) int {
	numQuestions := input.NumQuestions
	if numQuestions <= 0 {
		numQuestions = 5
	}
	perMaterial := questionQuota(numQuestions, len(input.MaterialIDs))

	persisted := 0
	for _, materialID := range input.MaterialIDs {
		material, err := s.materialRepo.FindByIDAndUser(materialID, userID)
		if err != nil {
			log.Warn().Err(err).Uint("materialID", materialID).Msg("material not found, skipping")
			continue
		}

		materialText := s.materialContent(material)
		if materialText == "" {
			log.Warn().Uint("materialID", materialID).Msg("material has no text content, skipping")
			continue
		}

		questions, err := s.generator.Generate(ctx, materialText, test.TestType, perMaterial, input.Difficulty, input.Instructions)
		if err != nil {
			log.Error().Err(err).Uint("materialID", materialID).Msg("question generation failed for material")
			continue
		}

		for _, generated := range questions {
			if err := s.saveQuestion(test.ID, materialID, generated); err != nil {
				log.Error().Err(err).Uint("testID", test.ID).Msg("failed to persist generated question")
				continue
			}
			persisted++
		}
	}
	return persisted
}

// questionQuota is the per-material share of the requested count, never less
// than one.
func questionQuota(numQuestions, numMaterials int) int {
	if numMaterials <= 0 {
		return numQuestions
	}
	quota := numQuestions / numMaterials
	if quota < 1 {
		quota = 1
	}
	return quota
}

// materialContent prefers the cached extracted text and falls back to
// re-extracting from the stored file.
func (s *testService) materialContent(material *model.Material) string {
	if material.ContentText != "" {
		return material.ContentText
	}
	if material.FilePath == "" {
		return ""
	}
	data, err := s.storage.Read(material.FilePath)
	if err != nil {
		log.Warn().Err(err).Uint("materialID", material.ID).Msg("could not read stored material file")
		return ""
	}
	text, _, err := s.extractor.Extract(data, material.FileType)
	if err != nil {
		log.Warn().Err(err).Uint("materialID", material.ID).Msg("could not re-extract material text")
		return ""
	}
	return text
}

func (s *testService) saveQuestion(testID, materialID uint, generated GeneratedQuestion) error {
	question := &model.Question{
		TestID:       testID,
		QuestionText: generated.QuestionText,
		QuestionType: generated.QuestionType,
		Difficulty:   generated.Difficulty,
		Points:       1,
		Explanation:  generated.Explanation,
		Metadata: model.QuestionMetadata{
			MaterialID: materialID,
			Source:     "ai_generated",
		},
	}
	switch generated.QuestionType {
	case model.QuestionTypeShortAnswer:
		question.Metadata.ExpectedAnswer = generated.CorrectAnswer
	case model.QuestionTypeLongAnswer:
		question.Metadata.KeyPoints = generated.KeyPoints
		question.Metadata.EvaluationCriteria = generated.EvaluationCriteria
	case model.QuestionTypeMCQ:
		for _, choice := range generated.Choices {
			question.Choices = append(question.Choices, model.Choice{
				ChoiceText: choice.Text,
				IsCorrect:  choice.IsCorrect,
			})
		}
	}

	return s.questionRepo.Create(question)
}

func (s *testService) GetTest(testID, userID uint) (*model.Test, error) {
	if _, err := s.findOwnedTest(testID, userID); err != nil {
		return nil, err
	}
	return s.testRepo.FindByIDWithQuestions(testID)
}

func (s *testService) ListUserTests(userID uint) ([]model.Test, error) {
	return s.testRepo.FindAllByUser(userID)
}

func (s *testService) DeleteTest(testID, userID uint) error {
	if _, err := s.findOwnedTest(testID, userID); err != nil {
		return err
	}
	return s.testRepo.Delete(testID)
}

func (s *testService) StartAttempt(testID, userID uint) (*model.TestAttempt, error) {
	if _, err := s.findOwnedTest(testID, userID); err != nil {
		return nil, err
	}

	attempt := &model.TestAttempt{
		TestID:    testID,
		UserID:    userID,
		StartedAt: time.Now().UTC(),
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, fmt.Errorf("failed to create test attempt: %w", err)
	}
	return attempt, nil
}

// SubmitAnswer records one answer. MCQ answers are graded synchronously
// against the flagged-correct choice; free-text answers stay ungraded until
// the attempt completes. Resubmitting a question replaces the earlier answer
// for this attempt, grading state included.
func (s *testService) SubmitAnswer(ctx context.Context, attemptID, questionID, userID uint, answerText string, selectedChoiceID *uint) (*model.StudentAnswer, error) {
	attempt, err := s.findOwnedAttempt(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.CompletedAt != nil {
		return nil, fmt.Errorf("attempt %d is already completed: %w", attemptID, apperr.ErrValidationFailed)
	}

	question, err := s.questionRepo.FindByIDWithChoices(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question %d: %w", questionID, apperr.ErrNotFound)
		}
		return nil, err
	}
	if question.TestID != attempt.TestID {
		return nil, fmt.Errorf("question %d does not belong to test %d: %w", questionID, attempt.TestID, apperr.ErrValidationFailed)
	}

	answer := &model.StudentAnswer{
		AttemptID:  attemptID,
		QuestionID: questionID,
	}

	if question.QuestionType == model.QuestionTypeMCQ {
		if selectedChoiceID == nil {
			return nil, fmt.Errorf("selected choice is required for MCQ answers: %w", apperr.ErrValidationFailed)
		}
		found := false
		for _, choice := range question.Choices {
			if choice.ID == *selectedChoiceID {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("choice %d does not belong to question %d: %w", *selectedChoiceID, questionID, apperr.ErrValidationFailed)
		}
		answer.SelectedChoiceID = selectedChoiceID

		grade := evaluateMCQ(question, selectedChoiceID)
		answer.IsCorrect = &grade.IsCorrect
		answer.PointsAwarded = &grade.Points
		answer.Feedback = grade.Feedback
	} else {
		if answerText == "" {
			return nil, fmt.Errorf("answer text is required for %s answers: %w", question.QuestionType, apperr.ErrValidationFailed)
		}
		answer.AnswerText = answerText
	}

	existing, err := s.answerRepo.FindByAttemptAndQuestion(attemptID, questionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up existing answer: %w", err)
	}
	if existing != nil {
		answer.ID = existing.ID
		answer.CreatedAt = existing.CreatedAt
		if err := s.answerRepo.Update(answer); err != nil {
			return nil, fmt.Errorf("failed to save answer: %w", err)
		}
		return answer, nil
	}

	if err := s.answerRepo.Create(answer); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}
	return answer, nil
}

// CompleteAttempt grades every still-ungraded answer, totals the score and
// writes aggregate feedback. Re-invoking it re-evaluates only answers that
// were never graded.
func (s *testService) CompleteAttempt(ctx context.Context, attemptID, userID uint) (*model.TestAttempt, error) {
	attempt, err := s.findOwnedAttempt(attemptID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.FindByTestID(attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test questions: %w", err)
	}
	questionByID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		questionByID[questions[i].ID] = &questions[i]
	}

	answers, err := s.answerRepo.FindByAttemptID(attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt answers: %w", err)
	}

	for i := range answers {
		answer := &answers[i]
		if answer.Graded() {
			continue
		}
		question, ok := questionByID[answer.QuestionID]
		if !ok {
			continue
		}
		s.gradeAnswer(ctx, question, answer)
		if err := s.answerRepo.Update(answer); err != nil {
			return nil, fmt.Errorf("failed to save graded answer: %w", err)
		}
	}

	totalPoints := 0.0
	for _, question := range questions {
		totalPoints += question.Points
	}
	earnedPoints := 0.0
	for _, answer := range answers {
		if answer.PointsAwarded != nil {
			earnedPoints += *answer.PointsAwarded
		}
	}

	now := time.Now().UTC()
	attempt.CompletedAt = &now
	attempt.Score = &earnedPoints
	attempt.MaxScore = &totalPoints
	if totalPoints > 0 {
		attempt.Feedback = aggregateFeedback(earnedPoints / totalPoints * 100)
	}

	if err := s.attemptRepo.Update(attempt); err != nil {
		return nil, fmt.Errorf("failed to complete attempt: %w", err)
	}
	return s.attemptRepo.FindByIDWithAnswers(attemptID)
}

// gradeAnswer applies the evaluator and falls back to half credit when
// evaluation itself fails, so one bad question cannot block completion.
func (s *testService) gradeAnswer(ctx context.Context, question *model.Question, answer *model.StudentAnswer) {
	grade, err := s.evaluator.Evaluate(ctx, question, answer)
	if err != nil {
		log.Error().Err(err).Uint("questionID", question.ID).Msg("answer evaluation failed, awarding partial credit")
		isCorrect := false
		points := question.Points * 0.5
		answer.IsCorrect = &isCorrect
		answer.PointsAwarded = &points
		answer.Feedback = "Your answer was automatically scored due to an evaluation error."
		return
	}
	answer.IsCorrect = &grade.IsCorrect
	answer.PointsAwarded = &grade.Points
	answer.Feedback = grade.Feedback
}

// aggregateFeedback maps a percentage score to a feedback message.
func aggregateFeedback(percentage float64) string {
	switch {
	case percentage >= 90:
		return "Excellent! You've demonstrated a thorough understanding of the material."
	case percentage >= 80:
		return "Great job! You have a good grasp of most concepts."
	case percentage >= 70:
		return "Good work! You understand many key concepts, but there's room for improvement."
	case percentage >= 60:
		return "Satisfactory. You've grasped some concepts, but should review the material further."
	default:
		return "You need more practice. Review the material and try again."
	}
}

func (s *testService) GetAttempt(attemptID, userID uint) (*model.TestAttempt, error) {
	if _, err := s.findOwnedAttempt(attemptID, userID); err != nil {
		return nil, err
	}
	return s.attemptRepo.FindByIDWithAnswers(attemptID)
}

func (s *testService) ListAttempts(testID, userID uint) ([]model.TestAttempt, error) {
	if _, err := s.findOwnedTest(testID, userID); err != nil {
		return nil, err
	}
	return s.attemptRepo.FindAllByTestAndUser(testID, userID)
}

func (s *testService) GetUserStatistics(userID uint) (*UserStatistics, error) {
	attempts, err := s.attemptRepo.FindCompletedByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed attempts: %w", err)
	}

	stats := &UserStatistics{TestsByType: map[string]int{}}
	if len(attempts) == 0 {
		return stats, nil
	}

	stats.TotalTests = len(attempts)
	stats.LowestScore = 101
	sum := 0.0
	for _, attempt := range attempts {
		percentage := attemptPercentage(&attempt)
		sum += percentage
		if percentage > stats.HighestScore {
			stats.HighestScore = percentage
		}
		if percentage < stats.LowestScore {
			stats.LowestScore = percentage
		}

		testType := "unknown"
		if attempt.Test.ID != 0 {
			testType = attempt.Test.TestType
		}
		stats.TestsByType[testType]++
	}
	stats.AverageScore = sum / float64(len(attempts))

	// Attempts arrive ordered by completion time descending.
	for _, attempt := range attempts {
		if len(stats.RecentAttempts) == 5 {
			break
		}
		summary := AttemptSummary{
			AttemptID:  attempt.ID,
			TestID:     attempt.TestID,
			TestTitle:  attempt.Test.Title,
			Percentage: attemptPercentage(&attempt),
		}
		if attempt.Score != nil {
			summary.Score = *attempt.Score
		}
		if attempt.MaxScore != nil {
			summary.MaxScore = *attempt.MaxScore
		}
		if attempt.CompletedAt != nil {
			summary.CompletedAt = *attempt.CompletedAt
		}
		stats.RecentAttempts = append(stats.RecentAttempts, summary)
	}

	return stats, nil
}

func attemptPercentage(attempt *model.TestAttempt) float64 {
	if attempt.Score == nil || attempt.MaxScore == nil || *attempt.MaxScore <= 0 {
		return 0
	}
	return *attempt.Score / *attempt.MaxScore * 100
}

func (s *testService) findOwnedTest(testID, userID uint) (*model.Test, error) {
	test, err := s.testRepo.FindByIDAndUser(testID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, apperr.ErrNotFound)
		}
		return nil, err
	}
	return test, nil
}

func (s *testService) findOwnedAttempt(attemptID, userID uint) (*model.TestAttempt, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %d: %w", attemptID, apperr.ErrNotFound)
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("attempt %d: %w", attemptID, apperr.ErrNotFound)
	}
	return attempt, nil
}
