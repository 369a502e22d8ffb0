package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/response"
	"github.com/stemsi/cat-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{fmt.Errorf("get session: %w", service.ErrNotFound), http.StatusNotFound, response.ErrNotFound},
		{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
		{fmt.Errorf("session is COMPLETED: %w", service.ErrInvalidState), http.StatusBadRequest, response.ErrInvalidState},
		{service.ErrConflict, http.StatusConflict, response.ErrConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{service.ErrTokenRevoked, http.StatusUnauthorized, response.ErrTokenRevoked},
		{service.ErrUnauthorized, http.StatusUnauthorized, response.ErrUnauthorized},
		{&service.ValidationError{Fields: map[string]string{"x": "bad"}}, http.StatusBadRequest, response.ErrValidation},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestAuthHandler(t *testing.T) {
	auth := &stubAuth{
		register: func(req model.RegisterRequest) (*model.User, error) {
			if req.Email == "taken@example.com" {
				return nil, fmt.Errorf("create user: %w", service.ErrConflict)
			}
			return &model.User{ID: uuid.New(), Name: req.Name, Email: req.Email, Role: model.RoleTestTaker}, nil
		},
		login: func(req model.LoginRequest) (*model.LoginResponse, error) {
			if req.Password != "secret1" {
				return nil, service.ErrInvalidCredentials
			}
			return &model.LoginResponse{Token: "jwt", User: model.User{ID: uuid.New(), Email: req.Email}}, nil
		},
	}
	h := NewAuthHandler(auth, zerolog.Nop())
	r := newEngine(&takerCaller)
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)

	t.Run("register", func(t *testing.T) {
		w := do(r, http.MethodPost, "/register", `{"name":"Ada","email":"ada@example.com","password":"secret1"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		var u model.User
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &u))
		assert.Equal(t, model.RoleTestTaker, u.Role)
	})

	t.Run("register duplicate email", func(t *testing.T) {
		w := do(r, http.MethodPost, "/register", `{"name":"Ada","email":"taken@example.com","password":"secret1"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.ErrEmailTaken, errCodeOf(t, w))
	})

	t.Run("register validation", func(t *testing.T) {
		w := do(r, http.MethodPost, "/register", `{"name":"Ada","email":"nope","password":"1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Fields, "email")
		assert.Contains(t, env.Error.Fields, "password")
	})

	t.Run("login", func(t *testing.T) {
		w := do(r, http.MethodPost, "/login", `{"email":"ada@example.com","password":"secret1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var res model.LoginResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
		assert.Equal(t, "jwt", res.Token)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		w := do(r, http.MethodPost, "/login", `{"email":"ada@example.com","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrInvalidCredentials, errCodeOf(t, w))
	})

	t.Run("logout and me", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/logout", "").Code)
		assert.Equal(t, 1, auth.logouts)

		w := do(r, http.MethodGet, "/me", "")
		require.Equal(t, http.StatusOK, w.Code)
		var u model.User
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &u))
		assert.Equal(t, takerCaller.UserID, u.ID)
	})
}

func TestTestHandler(t *testing.T) {
	tests := &stubTests{}
	h := NewTestHandler(tests, zerolog.Nop())
	r := newEngine(&adminCaller)
	r.GET("/tests", h.ListTests)
	r.GET("/tests/:id", h.GetTest)
	r.POST("/tests", h.CreateTest)
	r.DELETE("/tests/:id", h.DeleteTest)

	t.Run("create stamps the caller", func(t *testing.T) {
		w := do(r, http.MethodPost, "/tests", `{"title":"Go basics","category":"Programming","duration":30}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, adminCaller, tests.createdBy)
		assert.Equal(t, 30, *tests.created.Duration)
	})

	t.Run("create rejects out of range passing score", func(t *testing.T) {
		w := do(r, http.MethodPost, "/tests", `{"title":"Go basics","category":"Programming","passingScore":101}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w).Error.Fields, "passingScore")
	})

	t.Run("bad active flag", func(t *testing.T) {
		w := do(r, http.MethodGet, "/tests?active=maybe", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := do(r, http.MethodGet, "/tests/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrInvalidID, errCodeOf(t, w))
	})

	t.Run("missing test", func(t *testing.T) {
		w := do(r, http.MethodGet, "/tests/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete referenced test", func(t *testing.T) {
		tests.deleteErr = fmt.Errorf("delete test: %w", service.ErrConflict)
		w := do(r, http.MethodDelete, "/tests/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.ErrDependencyExists, errCodeOf(t, w))
	})
}

func bankFixture() []model.Question {
	qid := uuid.New()
	return []model.Question{{
		ID:          qid,
		Text:        "What does defer do?",
		Explanation: "Runs at function exit.",
		Difficulty:  model.DifficultyEasy,
		Category:    "Go",
		Points:      1,
		Answers: []model.Answer{
			{ID: uuid.New(), QuestionID: qid, Text: "Delays a call", IsCorrect: true},
			{ID: uuid.New(), QuestionID: qid, Text: "Spawns a goroutine"},
		},
	}}
}

func TestQuestionHandler(t *testing.T) {
	bank := &stubQuestions{questions: bankFixture()}
	h := NewQuestionHandler(bank, zerolog.Nop())

	list := func(caller *service.Caller, target string) *httptest.ResponseRecorder {
		r := newEngine(caller)
		r.GET("/questions", h.ListQuestions)
		r.GET("/questions/:id", h.GetQuestion)
		r.POST("/questions", h.CreateQuestion)
		return do(r, http.MethodGet, target, "")
	}

	t.Run("takers do not see correctness", func(t *testing.T) {
		w := list(&takerCaller, "/questions?difficulty=EASY&page=2&limit=20")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "isCorrect")
		assert.NotContains(t, w.Body.String(), "Runs at function exit")

		env := decode(t, w)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, &response.Pagination{Page: 2, Limit: 20, Total: 41, TotalPages: 3, HasNext: true}, env.Pagination)
		assert.Equal(t, model.DifficultyEasy, bank.filter.Difficulty)
		assert.Equal(t, 2, bank.filter.Page)
	})

	t.Run("admins see everything", func(t *testing.T) {
		w := list(&adminCaller, "/questions")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"isCorrect":true`)
		assert.Equal(t, service.DefaultQuestionPageSize, decode(t, w).Pagination.Limit)
	})

	t.Run("single question is stripped for takers", func(t *testing.T) {
		w := list(&takerCaller, "/questions/"+bank.questions[0].ID.String())
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "isCorrect")
	})

	t.Run("bad query parameters", func(t *testing.T) {
		w := list(&adminCaller, "/questions?testId=x&page=one")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		fields := decode(t, w).Error.Fields
		assert.Contains(t, fields, "testId")
		assert.Contains(t, fields, "page")
	})

	t.Run("create requires a correct answer", func(t *testing.T) {
		r := newEngine(&adminCaller)
		r.POST("/questions", h.CreateQuestion)
		w := do(r, http.MethodPost, "/questions", `{
			"text": "Which keyword declares a constant?",
			"difficulty": "EASY",
			"category": "Go",
			"answers": [{"text": "var"}, {"text": "let"}]
		}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w).Error.Fields, "answers")
	})
}

func TestSessionHandler(t *testing.T) {
	newRouter := func(s *stubSessions) *gin.Engine {
		h := NewSessionHandler(s, zerolog.Nop())
		r := newEngine(&takerCaller)
		r.POST("/sessions", h.StartSession)
		r.GET("/sessions", h.ListSessions)
		r.GET("/sessions/:id", h.GetSession)
		r.POST("/sessions/:id", h.SubmitAnswer)
		r.PUT("/sessions/:id", h.FinalizeSession)
		r.GET("/sessions/:id/result", h.GetResult)
		return r
	}
	sid := uuid.NewString()

	t.Run("start", func(t *testing.T) {
		testID := uuid.New()
		w := do(newRouter(&stubSessions{}), http.MethodPost, "/sessions", fmt.Sprintf(`{"testId":%q}`, testID))
		require.Equal(t, http.StatusCreated, w.Code)
		var started model.StartedSession
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &started))
		assert.Equal(t, testID, started.Test.ID)
	})

	t.Run("start without test id", func(t *testing.T) {
		w := do(newRouter(&stubSessions{}), http.MethodPost, "/sessions", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w).Error.Fields, "testId")
	})

	t.Run("submit answer", func(t *testing.T) {
		s := &stubSessions{}
		body := fmt.Sprintf(`{"questionId":%q,"selectedAnswerId":%q}`, uuid.New(), uuid.New())
		w := do(newRouter(s), http.MethodPost, "/sessions/"+sid, body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, string(decode(t, w).Data))
		assert.Len(t, s.answers, 1)
	})

	t.Run("finalize", func(t *testing.T) {
		w := do(newRouter(&stubSessions{}), http.MethodPut, "/sessions/"+sid, "")
		require.Equal(t, http.StatusOK, w.Code)
		var fin model.FinalizedSession
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &fin))
		assert.True(t, fin.Success)
		assert.Equal(t, model.SessionStatusCompleted, fin.Session.Status)
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
		{"double finalize", service.ErrInvalidState, http.StatusBadRequest, response.ErrInvalidState},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newRouter(&stubSessions{err: tc.err}), http.MethodPut, "/sessions/"+sid, "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errCodeOf(t, w))
		})
	}

	t.Run("answer validation errors carry fields", func(t *testing.T) {
		s := &stubSessions{err: &service.ValidationError{Fields: map[string]string{"selectedAnswerId": "answer does not belong to the question"}}}
		body := fmt.Sprintf(`{"questionId":%q,"selectedAnswerId":%q}`, uuid.New(), uuid.New())
		w := do(newRouter(s), http.MethodPost, "/sessions/"+sid, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "answer does not belong to the question", decode(t, w).Error.Fields["selectedAnswerId"])
	})

	t.Run("unexpected errors are hidden", func(t *testing.T) {
		w := do(newRouter(&stubSessions{err: errors.New("pq: connection refused")}), http.MethodGet, "/sessions", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

type stubRenderer struct {
	got *model.SessionResult
}

func (s *stubRenderer) Render(w io.Writer, res *model.SessionResult, _ time.Time) error {
	s.got = res
	_, err := w.Write([]byte("%PDF-1.4 stub"))
	return err
}

func TestExportHandler(t *testing.T) {
	res := &model.SessionResult{
		Session: model.TestSession{ID: uuid.New(), Status: model.SessionStatusCompleted},
		Test:    model.SessionTestMeta{Title: "Go Basics"},
	}
	renderer := &stubRenderer{}
	h := NewExportHandler(&stubSessions{result: res}, renderer, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	r := newEngine(&takerCaller)
	r.GET("/export/pdf/:sessionId", h.ExportPDF)

	w := do(r, http.MethodGet, "/export/pdf/"+res.Session.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="CAT-Results-Go-Basics-2024-03-09.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Same(t, res, renderer.got)

	t.Run("in-progress sessions cannot be exported", func(t *testing.T) {
		h := NewExportHandler(&stubSessions{err: service.ErrInvalidState}, renderer, zerolog.Nop())
		r := newEngine(&takerCaller)
		r.GET("/export/pdf/:sessionId", h.ExportPDF)
		w := do(r, http.MethodGet, "/export/pdf/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrInvalidState, errCodeOf(t, w))
	})
}

func TestAnalyticsHandler(t *testing.T) {
	a := &stubAnalytics{}
	h := NewAnalyticsHandler(a, zerolog.Nop())
	r := newEngine(&adminCaller)
	r.GET("/analytics", h.GetAnalytics)
	r.GET("/admin/stats", h.GetStats)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/analytics", "").Code)
	assert.Equal(t, 30, a.period)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/analytics?period=9999", "").Code)
	assert.Equal(t, 365, a.period)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/analytics?period=week", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin/stats", "").Code)
}

func TestHealthHandler(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	tests := []struct {
		name   string
		db     Pinger
		cache  Pinger
		code   int
		status string
	}{
		{"all healthy", ok, ok, http.StatusOK, "healthy"},
		{"cache down", ok, down, http.StatusOK, "degraded"},
		{"database down", down, ok, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.cache, zerolog.Nop())
			r := newEngine(nil)
			r.GET("/health", h.Health)

			w := do(r, http.MethodGet, "/health", "")
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "true", w.Header().Get("X-Health-Check"))

			var hs HealthStatus
			require.NoError(t, json.Unmarshal(decode(t, w).Data, &hs))
			assert.Equal(t, tt.status, hs.Status)
			assert.Len(t, hs.Checks, 2)
		})
	}
}
