package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/response"
)

// AnalyticsHandler serves admin reporting.
type AnalyticsHandler struct {
	analytics AnalyticsReporter
	log       zerolog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analytics AnalyticsReporter, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		log:       log.With().Str("component", "analytics_handler").Logger(),
	}
}

// GetAnalytics godoc
// GET /api/v1/analytics?period=30
// Period is in days and clamped to [1, 365].
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	period := 0
	if raw := c.Query("period"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"period": "period must be a number of days"})
			return
		}
		period = n
	}

	report, err := h.analytics.Report(c.Request.Context(), h.analytics.ClampPeriod(period))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// GetStats godoc
// GET /api/v1/admin/stats
func (h *AnalyticsHandler) GetStats(c *gin.Context) {
	stats, err := h.analytics.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
