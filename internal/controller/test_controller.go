package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/lshigami/Tamarin/internal/dto"
	"github.com/lshigami/Tamarin/internal/service"
	"github.com/rs/zerolog/log"
)

type TestController struct {
	testService service.TestService
}

func NewTestController(testService service.TestService) *TestController {
	return &TestController{testService: testService}
}

// CreateTest godoc
// @Summary Create a test and generate its questions
// @Description Creates a test and generates questions from the referenced materials. Generation failures degrade to canned questions rather than failing the request.
// @Tags Tests
// @Accept json
// @Produce json
// @Param user_id query int true "Acting user ID"
// @Param test body dto.CreateTestRequest true "Test definition"
// @Success 201 {object} dto.TestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}

	var req dto.CreateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	test, err := c.testService.CreateTest(ctx.Request.Context(), userID, service.CreateTestInput{
		Title:            req.Title,
		Description:      req.Description,
		TestType:         req.TestType,
		MaterialIDs:      req.MaterialIDs,
		NumQuestions:     req.NumQuestions,
		Difficulty:       req.Difficulty,
		Instructions:     req.Instructions,
		TimeLimitMinutes: req.TimeLimitMinutes,
	})
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("CreateTest: service error")
		respondError(ctx, err, "Failed to create test")
		return
	}

	var resp dto.TestResponse
	copier.Copy(&resp, test)
	ctx.JSON(http.StatusCreated, resp)
}

// ListTests godoc
// @Summary List the user's tests
// @Tags Tests
// @Produce json
// @Param user_id query int true "Acting user ID"
// @Success 200 {array} dto.TestSummaryResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /tests [get]
func (c *TestController) ListTests(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}

	tests, err := c.testService.ListUserTests(userID)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("ListTests: service error")
		respondError(ctx, err, "Failed to list tests")
		return
	}

	resp := make([]dto.TestSummaryResponse, 0, len(tests))
	copier.Copy(&resp, &tests)
	ctx.JSON(http.StatusOK, resp)
}

// GetTest godoc
// @Summary Get a test with its questions
// @Tags Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} dto.TestResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tests/{test_id} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}

	test, err := c.testService.GetTest(testID, userID)
	if err != nil {
		respondError(ctx, err, "Failed to get test")
		return
	}

	var resp dto.TestResponse
	copier.Copy(&resp, test)
	ctx.JSON(http.StatusOK, resp)
}

// DeleteTest godoc
// @Summary Delete a test and everything under it
// @Tags Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Param user_id query int true "Acting user ID"
// @Success 204 "Deleted"
// @Failure 404 {object} dto.ErrorResponse
// @Router /tests/{test_id} [delete]
func (c *TestController) DeleteTest(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}

	if err := c.testService.DeleteTest(testID, userID); err != nil {
		log.Error().Err(err).Uint("testID", testID).Msg("DeleteTest: service error")
		respondError(ctx, err, "Failed to delete test")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// StartAttempt godoc
// @Summary Start a new attempt on a test
// @Tags Attempts
// @Produce json
// @Param test_id path int true "Test ID"
// @Param user_id query int true "Acting user ID"
// @Success 201 {object} dto.AttemptResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tests/{test_id}/attempts [post]
func (c *TestController) StartAttempt(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}

	attempt, err := c.testService.StartAttempt(testID, userID)
	if err != nil {
		respondError(ctx, err, "Failed to start attempt")
		return
	}

	var resp dto.AttemptResponse
	copier.Copy(&resp, attempt)
	ctx.JSON(http.StatusCreated, resp)
}

// ListAttempts godoc
// @Summary List the user's attempts on a test
// @Tags Attempts
// @Produce json
// @Param test_id path int true "Test ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {array} dto.AttemptResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tests/{test_id}/attempts [get]
func (c *TestController) ListAttempts(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}

	attempts, err := c.testService.ListAttempts(testID, userID)
	if err != nil {
		respondError(ctx, err, "Failed to list attempts")
		return
	}

	resp := make([]dto.AttemptResponse, 0, len(attempts))
	copier.Copy(&resp, &attempts)
	ctx.JSON(http.StatusOK, resp)
}

// SubmitAnswer godoc
// @Summary Submit an answer within an attempt
// @Description MCQ answers are graded immediately; free-text answers stay pending until the attempt is completed.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param user_id query int true "Acting user ID"
// @Param answer body dto.SubmitAnswerRequest true "Answer payload"
// @Success 201 {object} dto.AnswerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id}/answers [post]
func (c *TestController) SubmitAnswer(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}

	var req dto.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	answer, err := c.testService.SubmitAnswer(ctx.Request.Context(), attemptID, req.QuestionID, userID, req.AnswerText, req.SelectedChoiceID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Uint("questionID", req.QuestionID).Msg("SubmitAnswer: service error")
		respondError(ctx, err, "Failed to submit answer")
		return
	}

	var resp dto.AnswerResponse
	copier.Copy(&resp, answer)
	ctx.JSON(http.StatusCreated, resp)
}

// CompleteAttempt godoc
// @Summary Complete an attempt and grade outstanding answers
// @Description Grades every still-ungraded answer, totals the score and writes aggregate feedback. Safe to re-invoke; already-graded answers are not re-graded.
// @Tags Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} dto.AttemptResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id}/complete [post]
func (c *TestController) CompleteAttempt(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}

	attempt, err := c.testService.CompleteAttempt(ctx.Request.Context(), attemptID, userID)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("CompleteAttempt: service error")
		respondError(ctx, err, "Failed to complete attempt")
		return
	}

	var resp dto.AttemptResponse
	copier.Copy(&resp, attempt)
	ctx.JSON(http.StatusOK, resp)
}

// GetAttempt godoc
// @Summary Get an attempt with its answers
// @Tags Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} dto.AttemptResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id} [get]
func (c *TestController) GetAttempt(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}

	attempt, err := c.testService.GetAttempt(attemptID, userID)
	if err != nil {
		respondError(ctx, err, "Failed to get attempt")
		return
	}

	var resp dto.AttemptResponse
	copier.Copy(&resp, attempt)
	ctx.JSON(http.StatusOK, resp)
}

// GetUserStatistics godoc
// @Summary Aggregate statistics over the user's completed attempts
// @Tags Statistics
// @Produce json
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} service.UserStatistics
// @Failure 500 {object} dto.ErrorResponse
// @Router /statistics [get]
func (c *TestController) GetUserStatistics(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}

	stats, err := c.testService.GetUserStatistics(userID)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("GetUserStatistics: service error")
		respondError(ctx, err, "Failed to compute statistics")
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
