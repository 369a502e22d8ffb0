package handler

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/service"
)

// The interfaces below are the slices of the service layer each handler
// calls. The concrete services in internal/service satisfy them.

type Authenticator interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
	Logout(ctx context.Context, claims *service.Claims) error
	Me(ctx context.Context, claims *service.Claims) (*model.User, error)
}

type UserManager interface {
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, caller service.Caller, id uuid.UUID, req model.UpdateUserRequest) (*model.User, error)
}

type TestCatalog interface {
	List(ctx context.Context, activeOnly bool) ([]model.TestSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*model.TestSummary, error)
	Create(ctx context.Context, caller service.Caller, req model.CreateTestRequest) (*model.Test, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateTestRequest) (*model.Test, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type QuestionBank interface {
	List(ctx context.Context, f model.QuestionFilter) ([]model.Question, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Question, error)
	Create(ctx context.Context, req model.QuestionRequest) (*model.Question, error)
	Update(ctx context.Context, id uuid.UUID, req model.QuestionRequest) (*model.Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionEngine interface {
	Start(ctx context.Context, caller service.Caller, testID uuid.UUID) (*model.StartedSession, error)
	Get(ctx context.Context, caller service.Caller, sessionID uuid.UUID) (*model.SessionView, error)
	SubmitAnswer(ctx context.Context, caller service.Caller, sessionID uuid.UUID, req model.SubmitAnswerRequest) error
	Finalize(ctx context.Context, caller service.Caller, sessionID uuid.UUID) (*model.FinalizedSession, error)
	Result(ctx context.Context, caller service.Caller, sessionID uuid.UUID) (*model.SessionResult, error)
	List(ctx context.Context, caller service.Caller, status model.SessionStatus) ([]model.SessionListItem, error)
	Remaining(ctx context.Context, caller service.Caller, sessionID uuid.UUID) (int, model.SessionStatus, error)
}

type AnalyticsReporter interface {
	ClampPeriod(period int) int
	Report(ctx context.Context, period int) (*model.Analytics, error)
	Stats(ctx context.Context) (*model.AdminStats, error)
}

type ResultRenderer interface {
	Render(w io.Writer, res *model.SessionResult, generatedAt time.Time) error
}

var (
	_ Authenticator     = (*service.AuthService)(nil)
	_ UserManager       = (*service.UserService)(nil)
	_ TestCatalog       = (*service.TestService)(nil)
	_ QuestionBank      = (*service.QuestionService)(nil)
	_ SessionEngine     = (*service.SessionService)(nil)
	_ AnalyticsReporter = (*service.AnalyticsService)(nil)
)
