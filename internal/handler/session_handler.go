package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/response"
	"github.com/stemsi/cat-backend/internal/validator"
)

// SessionHandler handles the test-taking lifecycle.
type SessionHandler struct {
	sessions SessionEngine
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionEngine, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/sessions
// Starts a timed attempt and returns the questions in delivery order.
func (h *SessionHandler) StartSession(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	started, err := h.sessions.Start(c.Request.Context(), caller, req.TestID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, started)
}

// ListSessions godoc
// GET /api/v1/sessions?status=
// Lists the caller's sessions, newest first.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), caller, model.SessionStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, sessions)
}

// GetSession godoc
// GET /api/v1/sessions/:id
// Returns the session with live timing, its questions and recorded answers.
func (h *SessionHandler) GetSession(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	view, err := h.sessions.Get(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:id
// Records (or replaces) the caller's selection for one question.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.SubmitAnswer(c.Request.Context(), caller, id, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true})
}

// FinalizeSession godoc
// PUT /api/v1/sessions/:id
// Scores the stored answers and closes the session.
func (h *SessionHandler) FinalizeSession(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	finalized, err := h.sessions.Finalize(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, finalized)
}

// GetResult godoc
// GET /api/v1/sessions/:id/result
func (h *SessionHandler) GetResult(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.sessions.Result(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}
