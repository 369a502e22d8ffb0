package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/report"
)

// ExportHandler renders finished sessions as downloadable documents.
type ExportHandler struct {
	sessions SessionEngine
	renderer ResultRenderer
	log      zerolog.Logger
	now      func() time.Time
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(sessions SessionEngine, renderer ResultRenderer, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		sessions: sessions,
		renderer: renderer,
		log:      log.With().Str("component", "export_handler").Logger(),
		now:      time.Now,
	}
}

// ExportPDF godoc
// GET /api/v1/export/pdf/:sessionId
// Streams the result of a finished session as a PDF attachment.
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "sessionId")
	if !ok {
		return
	}

	res, err := h.sessions.Result(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, res, now); err != nil {
		respondError(c, h.log, fmt.Errorf("render pdf for session %s: %w", id, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(res.Test.Title, now)))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
