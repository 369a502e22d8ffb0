package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/cat-backend/internal/middleware"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/response"
	"github.com/stemsi/cat-backend/internal/service"
	"github.com/stemsi/cat-backend/internal/validator"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

var (
	adminCaller = service.Caller{UserID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Role: model.RoleAdmin}
	takerCaller = service.Caller{UserID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Role: model.RoleTestTaker}
)

// withCaller installs claims for caller the way Authenticate would.
func withCaller(caller *service.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller != nil {
			c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: caller.UserID, Role: caller.Role})
		}
		c.Next()
	}
}

func newEngine(caller *service.Caller) *gin.Engine {
	r := gin.New()
	r.Use(response.RequestIDMiddleware(), withCaller(caller))
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope decodes a response, leaving data raw for per-test decoding.
type envelope struct {
	Data       json.RawMessage      `json:"data"`
	Error      *response.ErrorBody  `json:"error"`
	Pagination *response.Pagination `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func errCodeOf(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	env := decode(t, w)
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

type stubAuth struct {
	register func(model.RegisterRequest) (*model.User, error)
	login    func(model.LoginRequest) (*model.LoginResponse, error)
	logouts  int
}

func (s *stubAuth) Register(_ context.Context, req model.RegisterRequest) (*model.User, error) {
	return s.register(req)
}

func (s *stubAuth) Login(_ context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	return s.login(req)
}

func (s *stubAuth) Logout(context.Context, *service.Claims) error {
	s.logouts++
	return nil
}

func (s *stubAuth) Me(_ context.Context, claims *service.Claims) (*model.User, error) {
	return &model.User{ID: claims.UserID, Role: claims.Role}, nil
}

type stubTests struct {
	deleteErr error
	created   *model.CreateTestRequest
	createdBy service.Caller
}

func (s *stubTests) List(context.Context, bool) ([]model.TestSummary, error) {
	return []model.TestSummary{}, nil
}

func (s *stubTests) Get(_ context.Context, id uuid.UUID) (*model.TestSummary, error) {
	return nil, service.ErrNotFound
}

func (s *stubTests) Create(_ context.Context, caller service.Caller, req model.CreateTestRequest) (*model.Test, error) {
	s.created, s.createdBy = &req, caller
	return &model.Test{ID: uuid.New(), Title: req.Title, CreatedByID: caller.UserID}, nil
}

func (s *stubTests) Update(context.Context, uuid.UUID, model.UpdateTestRequest) (*model.Test, error) {
	return nil, service.ErrNotFound
}

func (s *stubTests) Delete(context.Context, uuid.UUID) error {
	return s.deleteErr
}

type stubQuestions struct {
	questions []model.Question
	filter    model.QuestionFilter
}

func (s *stubQuestions) List(_ context.Context, f model.QuestionFilter) ([]model.Question, int64, error) {
	s.filter = f
	return s.questions, int64(len(s.questions)) + 40, nil
}

func (s *stubQuestions) Get(_ context.Context, id uuid.UUID) (*model.Question, error) {
	for i := range s.questions {
		if s.questions[i].ID == id {
			return &s.questions[i], nil
		}
	}
	return nil, service.ErrNotFound
}

func (s *stubQuestions) Create(_ context.Context, req model.QuestionRequest) (*model.Question, error) {
	return &model.Question{ID: uuid.New(), Text: req.Text}, nil
}

func (s *stubQuestions) Update(context.Context, uuid.UUID, model.QuestionRequest) (*model.Question, error) {
	return nil, service.ErrNotFound
}

func (s *stubQuestions) Delete(context.Context, uuid.UUID) error {
	return nil
}

// stubSessions returns canned values; err, when set, is returned by every call.
// Fields touched from the socket loop are guarded by mu.
type stubSessions struct {
	mu        sync.Mutex
	err       error
	result    *model.SessionResult
	remaining []int
	status    model.SessionStatus
	answers   []model.SubmitAnswerRequest
	finalized int
}

func (s *stubSessions) Start(_ context.Context, _ service.Caller, testID uuid.UUID) (*model.StartedSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.StartedSession{SessionID: uuid.New(), Test: model.SessionTestMeta{ID: testID}, StartedAt: time.Now()}, nil
}

func (s *stubSessions) Get(_ context.Context, _ service.Caller, id uuid.UUID) (*model.SessionView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.SessionView{TestSession: model.TestSession{ID: id}}, nil
}

func (s *stubSessions) SubmitAnswer(_ context.Context, _ service.Caller, _ uuid.UUID, req model.SubmitAnswerRequest) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, req)
	return nil
}

func (s *stubSessions) Finalize(_ context.Context, _ service.Caller, id uuid.UUID) (*model.FinalizedSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	s.finalized++
	s.mu.Unlock()
	return &model.FinalizedSession{
		Success: true,
		Result:  model.Result{Score: 75, Passed: true},
		Session: model.TestSession{ID: id, Status: model.SessionStatusCompleted},
	}, nil
}

func (s *stubSessions) Result(context.Context, service.Caller, uuid.UUID) (*model.SessionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubSessions) List(_ context.Context, _ service.Caller, status model.SessionStatus) ([]model.SessionListItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []model.SessionListItem{}, nil
}

// Remaining pops the next value from remaining, repeating the last one.
func (s *stubSessions) Remaining(context.Context, service.Caller, uuid.UUID) (int, model.SessionStatus, error) {
	if s.err != nil {
		return 0, "", s.err
	}
	status := s.status
	if status == "" {
		status = model.SessionStatusInProgress
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.remaining) == 0 {
		return 0, status, nil
	}
	n := s.remaining[0]
	if len(s.remaining) > 1 {
		s.remaining = s.remaining[1:]
	}
	return n, status, nil
}

type stubAnalytics struct {
	period int
}

func (s *stubAnalytics) ClampPeriod(p int) int {
	if p == 0 {
		return 30
	}
	return min(max(p, 1), 365)
}

func (s *stubAnalytics) Report(_ context.Context, period int) (*model.Analytics, error) {
	s.period = period
	return &model.Analytics{Period: period}, nil
}

func (s *stubAnalytics) Stats(context.Context) (*model.AdminStats, error) {
	return &model.AdminStats{}, nil
}
