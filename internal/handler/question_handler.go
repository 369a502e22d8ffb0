package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/response"
	"github.com/stemsi/cat-backend/internal/service"
	"github.com/stemsi/cat-backend/internal/validator"
)

// QuestionHandler handles the question bank.
type QuestionHandler struct {
	questions QuestionBank
	log       zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions QuestionBank, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		log:       log.With().Str("component", "question_handler").Logger(),
	}
}

// ListQuestions godoc
// GET /api/v1/questions?category=&difficulty=&testId=&page=&limit=
// Non-admin callers receive answers without correctness flags.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	filter, fields := parseQuestionFilter(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, total, err := h.questions.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	page := max(filter.Page, 1)
	limit := filter.Limit
	if limit < 1 {
		limit = service.DefaultQuestionPageSize
	}
	limit = min(limit, service.MaxQuestionPageSize)

	response.SuccessWithPagination(c, http.StatusOK,
		service.ForCaller(caller, questions),
		response.NewPagination(page, limit, total),
	)
}

func parseQuestionFilter(c *gin.Context) (model.QuestionFilter, map[string]string) {
	f := model.QuestionFilter{
		Category:   c.Query("category"),
		Difficulty: model.Difficulty(c.Query("difficulty")),
	}
	fields := map[string]string{}

	if raw := c.Query("testId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fields["testId"] = "testId must be a valid UUID"
		} else {
			f.TestID = &id
		}
	}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields["page"] = "page must be a number"
		}
		f.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields["limit"] = "limit must be a number"
		}
		f.Limit = n
	}

	if len(fields) > 0 {
		return f, fields
	}
	return f, nil
}

// GetQuestion godoc
// GET /api/v1/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	q, err := h.questions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if caller.IsAdmin() {
		response.Success(c, http.StatusOK, q)
		return
	}
	response.Success(c, http.StatusOK, q.Public())
}

// CreateQuestion godoc
// POST /api/v1/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// UpdateQuestion godoc
// PUT /api/v1/questions/:id
// Replaces the question and its full answer set.
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// DeleteQuestion godoc
// DELETE /api/v1/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.questions.Delete(c.Request.Context(), id); err != nil {
		respondConflict(c, h.log, err, response.ErrDependencyExists)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true})
}
