package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/config"
	"github.com/stemsi/cat-backend/internal/handler"
	"github.com/stemsi/cat-backend/internal/middleware"
	"github.com/stemsi/cat-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Test      *handler.TestHandler
	Question  *handler.QuestionHandler
	Session   *handler.SessionHandler
	Analytics *handler.AnalyticsHandler
	Export    *handler.ExportHandler
	Health    *handler.HealthHandler
	WS        *handler.WSHandler
}

// Limiters are the per-IP rate limiters applied to route groups. A nil
// limiter disables limiting for its group.
type Limiters struct {
	Auth *middleware.RateLimiter
	API  *middleware.RateLimiter
}

// SetupRouter configures the middleware pipeline and every route.
//
// Pipeline: request id, request log, authenticate, authorize, security
// headers, compression, then the handler. Access rules live in
// middleware.DefaultPolicy rather than on individual groups.
func SetupRouter(
	authenticator middleware.TokenAuthenticator,
	handlers *Handlers,
	limiters Limiters,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(
		response.RequestIDMiddleware(),
		middleware.RequestLogger(log),
		middleware.Authenticate(authenticator),
		middleware.Authorize(middleware.DefaultPolicy, log),
		middleware.SecurityHeaders(),
		middleware.BrotliWithConfig(middleware.BrotliConfig{
			Quality:      middleware.DefaultBrotliConfig.Quality,
			MinLength:    middleware.DefaultBrotliConfig.MinLength,
			SkipPrefixes: []string{"/api/v1/export", "/ws/"},
		}),
	)

	router.GET("/health", middleware.NoStore(), handlers.Health.Health)
	router.HEAD("/health", middleware.NoStore(), handlers.Health.Health)

	api := router.Group("/api/v1")
	api.Use(limit(limiters.API))

	// ─── Auth ──────────────────────────────────────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/register", limit(limiters.Auth), handlers.Auth.Register)
		auth.POST("/login", limit(limiters.Auth), handlers.Auth.Login)
		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/me", handlers.Auth.Me)
	}

	// ─── Test Catalog ──────────────────────────────────────────────────
	tests := api.Group("/tests")
	{
		tests.GET("", handlers.Test.ListTests)
		tests.GET("/:id", handlers.Test.GetTest)
		tests.POST("", handlers.Test.CreateTest)
		tests.PUT("/:id", handlers.Test.UpdateTest)
		tests.DELETE("/:id", handlers.Test.DeleteTest)
	}

	// ─── Question Bank ─────────────────────────────────────────────────
	questions := api.Group("/questions")
	{
		questions.GET("", handlers.Question.ListQuestions)
		questions.GET("/:id", handlers.Question.GetQuestion)
		questions.POST("", handlers.Question.CreateQuestion)
		questions.PUT("/:id", handlers.Question.UpdateQuestion)
		questions.DELETE("/:id", handlers.Question.DeleteQuestion)
	}

	// ─── Sessions ──────────────────────────────────────────────────────
	sessions := api.Group("/sessions")
	{
		sessions.POST("", handlers.Session.StartSession)
		sessions.GET("", handlers.Session.ListSessions)
		sessions.GET("/:id", handlers.Session.GetSession)
		sessions.POST("/:id", handlers.Session.SubmitAnswer)
		sessions.PUT("/:id", handlers.Session.FinalizeSession)
		sessions.GET("/:id/result", handlers.Session.GetResult)
	}

	api.GET("/export/pdf/:sessionId", handlers.Export.ExportPDF)

	// ─── Admin ─────────────────────────────────────────────────────────
	api.GET("/analytics", handlers.Analytics.GetAnalytics)
	admin := api.Group("/admin")
	{
		admin.GET("/stats", handlers.Analytics.GetStats)
		admin.GET("/users", handlers.User.ListUsers)
		admin.PUT("/users/:id", handlers.User.UpdateUser)
	}

	// ─── WebSocket ─────────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:id/countdown", handlers.WS.Countdown)
	}

	return router
}

func limit(rl *middleware.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}
