package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[uuid.UUID]model.User{}} }

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

type memTests struct {
	mu         sync.Mutex
	tests      map[uuid.UUID]model.Test
	referenced map[uuid.UUID]bool
}

func newMemTests() *memTests {
	return &memTests{tests: map[uuid.UUID]model.Test{}, referenced: map[uuid.UUID]bool{}}
}

func (m *memTests) put(t model.Test) *model.Test {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.tests[t.ID] = t
	return &t
}

func (m *memTests) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memTests) GetSummary(ctx context.Context, id uuid.UUID) (*model.TestSummary, error) {
	t, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.TestSummary{Test: *t}, nil
}

func (m *memTests) List(_ context.Context, activeOnly bool) ([]model.TestSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.TestSummary{}
	for _, t := range m.tests {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, model.TestSummary{Test: t})
	}
	return out, nil
}

func (m *memTests) Create(_ context.Context, t *model.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	m.tests[t.ID] = *t
	return nil
}

func (m *memTests) Update(_ context.Context, t *model.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[t.ID]; !ok {
		return repository.ErrNotFound
	}
	m.tests[t.ID] = *t
	return nil
}

func (m *memTests) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return repository.ErrNotFound
	}
	if m.referenced[id] {
		return repository.ErrReferenced
	}
	delete(m.tests, id)
	return nil
}

type memQuestions struct {
	mu        sync.Mutex
	questions []model.Question
}

func (m *memQuestions) add(q model.Question) model.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	for i := range q.Answers {
		if q.Answers[i].ID == uuid.Nil {
			q.Answers[i].ID = uuid.New()
		}
		q.Answers[i].QuestionID = q.ID
	}
	m.questions = append(m.questions, q)
	return q
}

func cloneQuestion(q model.Question) model.Question {
	q.Answers = append([]model.Answer(nil), q.Answers...)
	return q
}

func (m *memQuestions) ListByTest(_ context.Context, testID uuid.UUID) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Question{}
	for _, q := range m.questions {
		if q.TestID == testID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

func (m *memQuestions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions {
		if q.ID == id {
			c := cloneQuestion(q)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memQuestions) List(_ context.Context, f model.QuestionFilter) ([]model.Question, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.Question
	for _, q := range m.questions {
		if f.Category != "" && q.Category != f.Category {
			continue
		}
		if f.Difficulty != "" && q.Difficulty != f.Difficulty {
			continue
		}
		if f.TestID != nil && q.TestID != *f.TestID {
			continue
		}
		matched = append(matched, cloneQuestion(q))
	}
	total := int64(len(matched))
	from := min((f.Page-1)*f.Limit, len(matched))
	to := min(from+f.Limit, len(matched))
	return matched[from:to], total, nil
}

func (m *memQuestions) Create(_ context.Context, q *model.Question) error {
	q.ID = uuid.New()
	for i := range q.Answers {
		q.Answers[i].ID = uuid.New()
		q.Answers[i].QuestionID = q.ID
		q.Answers[i].OrderNum = i + 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q.OrderNum = len(m.questions) + 1
	m.questions = append(m.questions, cloneQuestion(*q))
	return nil
}

func (m *memQuestions) Update(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.questions {
		if m.questions[i].ID == q.ID {
			for j := range q.Answers {
				q.Answers[j].ID = uuid.New()
				q.Answers[j].QuestionID = q.ID
				q.Answers[j].OrderNum = j + 1
			}
			q.TestID = m.questions[i].TestID
			q.OrderNum = m.questions[i].OrderNum
			m.questions[i] = cloneQuestion(*q)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memQuestions) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.questions {
		if m.questions[i].ID == id {
			m.questions = append(m.questions[:i], m.questions[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// memSessions mirrors the conditional writes of the SQL repository:
// answers and completion only land while the session is IN_PROGRESS.
type memSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.TestSession
	answers  map[uuid.UUID]map[uuid.UUID]model.UserAnswer
	tests    *memTests
}

func newMemSessions(tests *memTests) *memSessions {
	return &memSessions{
		sessions: map[uuid.UUID]model.TestSession{},
		answers:  map[uuid.UUID]map[uuid.UUID]model.UserAnswer{},
		tests:    tests,
	}
}

func (m *memSessions) Create(_ context.Context, s *model.TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id uuid.UUID) (*model.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) ListByUser(_ context.Context, userID uuid.UUID, status model.SessionStatus) ([]model.SessionListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.SessionListItem{}
	for _, s := range m.sessions {
		if s.UserID != userID || (status != "" && s.Status != status) {
			continue
		}
		out = append(out, model.SessionListItem{TestSession: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *memSessions) UpsertAnswer(_ context.Context, a *model.UserAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[a.SessionID]
	if !ok || s.Status != model.SessionStatusInProgress {
		return repository.ErrStateChanged
	}
	if m.answers[a.SessionID] == nil {
		m.answers[a.SessionID] = map[uuid.UUID]model.UserAnswer{}
	}
	if existing, ok := m.answers[a.SessionID][a.QuestionID]; ok {
		a.ID = existing.ID
	} else {
		a.ID = uuid.New()
	}
	m.answers[a.SessionID][a.QuestionID] = *a
	return nil
}

func (m *memSessions) ListAnswers(_ context.Context, sessionID uuid.UUID) ([]model.UserAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.UserAnswer{}
	for _, a := range m.answers[sessionID] {
		out = append(out, a)
	}
	return out, nil
}

func (m *memSessions) Complete(_ context.Context, s *model.TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok || cur.Status != model.SessionStatusInProgress {
		return repository.ErrStateChanged
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) ListOverdue(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	candidates := []model.TestSession{}
	for _, s := range m.sessions {
		if s.Status == model.SessionStatusInProgress {
			candidates = append(candidates, s)
		}
	}
	m.mu.Unlock()

	ids := []uuid.UUID{}
	for _, s := range candidates {
		t, err := m.tests.GetByID(ctx, s.TestID)
		if err != nil {
			continue
		}
		deadline := s.StartedAt.Add(time.Duration(t.Duration)*time.Minute + grace)
		if deadline.Before(now) && len(ids) < limit {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID][]model.QuestionOrder
	ttls   map[uuid.UUID]time.Duration
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[uuid.UUID][]model.QuestionOrder{}, ttls: map[uuid.UUID]time.Duration{}}
}

func (m *memOrders) Load(_ context.Context, id uuid.UUID) ([]model.QuestionOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id], nil
}

func (m *memOrders) Store(_ context.Context, id uuid.UUID, order []model.QuestionOrder, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id] = order
	m.ttls[id] = ttl
	return nil
}

func (m *memOrders) forget(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
