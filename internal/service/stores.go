package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/repository"
)

// UserStore persists user accounts.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	List(ctx context.Context) ([]model.User, error)
}

// TestStore persists the test catalog.
type TestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	GetSummary(ctx context.Context, id uuid.UUID) (*model.TestSummary, error)
	List(ctx context.Context, activeOnly bool) ([]model.TestSummary, error)
	Create(ctx context.Context, t *model.Test) error
	Update(ctx context.Context, t *model.Test) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionStore persists questions together with their answers.
type QuestionStore interface {
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	List(ctx context.Context, f model.QuestionFilter) ([]model.Question, int64, error)
	Create(ctx context.Context, q *model.Question) error
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionStore persists test sessions and recorded answers.
type SessionStore interface {
	Create(ctx context.Context, s *model.TestSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status model.SessionStatus) ([]model.SessionListItem, error)
	UpsertAnswer(ctx context.Context, a *model.UserAnswer) error
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.UserAnswer, error)
	Complete(ctx context.Context, s *model.TestSession) error
	ListOverdue(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]uuid.UUID, error)
}

// AnalyticsStore runs the aggregate queries behind the admin reports.
type AnalyticsStore interface {
	OverviewCounts(ctx context.Context) (model.OverviewCounts, error)
	SessionsSince(ctx context.Context, since time.Time) ([]model.SessionPoint, error)
	TestsByCategory(ctx context.Context) ([]model.CategoryCount, error)
	QuestionsByCategory(ctx context.Context) ([]model.CategoryCount, error)
	QuestionsByDifficulty(ctx context.Context) ([]model.DifficultyCount, error)
	TopPerformers(ctx context.Context, limit int) ([]model.TopPerformer, error)
	RecentSessions(ctx context.Context, limit int) ([]model.RecentSession, error)
}

// OrderCache remembers the question and answer order delivered to a session.
// Load returns nil, nil on a miss.
type OrderCache interface {
	Load(ctx context.Context, sessionID uuid.UUID) ([]model.QuestionOrder, error)
	Store(ctx context.Context, sessionID uuid.UUID, order []model.QuestionOrder, ttl time.Duration) error
}

var (
	_ UserStore      = (*repository.UserRepository)(nil)
	_ TestStore      = (*repository.TestRepository)(nil)
	_ QuestionStore  = (*repository.QuestionRepository)(nil)
	_ SessionStore   = (*repository.SessionRepository)(nil)
	_ AnalyticsStore = (*repository.AnalyticsRepository)(nil)
)
