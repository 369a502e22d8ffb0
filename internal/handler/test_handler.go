package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/response"
	"github.com/stemsi/cat-backend/internal/validator"
)

// TestHandler handles the test catalog.
type TestHandler struct {
	tests TestCatalog
	log   zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(tests TestCatalog, log zerolog.Logger) *TestHandler {
	return &TestHandler{
		tests: tests,
		log:   log.With().Str("component", "test_handler").Logger(),
	}
}

// ListTests godoc
// GET /api/v1/tests?active=true
// Lists tests with creator and question/session counts.
func (h *TestHandler) ListTests(c *gin.Context) {
	activeOnly := false
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"active": "active must be true or false"})
			return
		}
		activeOnly = v
	}

	tests, err := h.tests.List(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, tests)
}

// GetTest godoc
// GET /api/v1/tests/:id
func (h *TestHandler) GetTest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	test, err := h.tests.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, test)
}

// CreateTest godoc
// POST /api/v1/tests
func (h *TestHandler) CreateTest(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.tests.Create(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, test)
}

// UpdateTest godoc
// PUT /api/v1/tests/:id
// Applies a partial update; omitted fields keep their values.
func (h *TestHandler) UpdateTest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.tests.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, test)
}

// DeleteTest godoc
// DELETE /api/v1/tests/:id
// Fails with 409 while sessions still reference the test.
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.tests.Delete(c.Request.Context(), id); err != nil {
		respondConflict(c, h.log, err, response.ErrDependencyExists)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true})
}
