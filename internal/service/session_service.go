package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
)

// orderCacheSlack keeps a session's delivered order around after its time
// limit so late reads and result pages still see the same order.
const orderCacheSlack = time.Hour

// SessionService runs the test session lifecycle:
// IN_PROGRESS -> (submitAnswer)* -> COMPLETED | TIMED_OUT.
type SessionService struct {
	sessions  SessionStore
	tests     TestStore
	questions QuestionStore
	orders    OrderCache
	grace     time.Duration
	log       zerolog.Logger

	now  func() time.Time
	intN func(int) int
}

// NewSessionService creates a new SessionService. grace is how long past a
// test's duration a submission still counts as COMPLETED.
func NewSessionService(
	sessions SessionStore,
	tests TestStore,
	questions QuestionStore,
	orders OrderCache,
	grace time.Duration,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		tests:     tests,
		questions: questions,
		orders:    orders,
		grace:     grace,
		log:       log.With().Str("component", "session_service").Logger(),
		now:       time.Now,
	}
}

// Start opens a new IN_PROGRESS session of testID for the caller and
// returns the questions in delivery order without correctness flags.
func (s *SessionService) Start(ctx context.Context, caller Caller, testID uuid.UUID) (*model.StartedSession, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		return nil, storeErr("get test", err)
	}
	if !test.IsActive {
		return nil, fmt.Errorf("test is not active: %w", ErrInvalidState)
	}

	questions, err := s.questions.ListByTest(ctx, testID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	delivered := make([]model.QuestionForTaker, len(questions))
	for i := range questions {
		delivered[i] = questions[i].ForTaker()
	}
	shuffleForTaker(delivered, test.ShuffleQuestions, test.ShuffleAnswers, s.intN)

	session := &model.TestSession{
		UserID:    caller.UserID,
		TestID:    testID,
		Status:    model.SessionStatusInProgress,
		StartedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, storeErr("create session", err)
	}

	s.cacheOrder(ctx, session.ID, test, orderOf(delivered))

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("test_id", testID.String()).
		Str("user_id", caller.UserID.String()).
		Int("questions", len(delivered)).
		Msg("Session started")

	return &model.StartedSession{
		SessionID: session.ID,
		Test:      test.Meta(),
		Questions: delivered,
		StartedAt: session.StartedAt,
	}, nil
}

// Get returns a snapshot of a session with live timing. It never mutates
// the session, even when its time limit has passed.
func (s *SessionService) Get(ctx context.Context, caller Caller, sessionID uuid.UUID) (*model.SessionView, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr("get session", err)
	}
	if !caller.canRead(session.UserID) {
		return nil, ErrForbidden
	}

	test, err := s.tests.GetByID(ctx, session.TestID)
	if err != nil {
		return nil, storeErr("get test", err)
	}
	questions, err := s.questions.ListByTest(ctx, session.TestID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	answers, err := s.sessions.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, storeErr("list answers", err)
	}

	view := &model.SessionView{
		TestSession: *session,
		Test:        test.Meta(),
		Questions:   s.deliveredOrder(ctx, session, test, questions),
		Answers:     make(map[uuid.UUID]uuid.UUID, len(answers)),
	}
	for _, a := range answers {
		view.Answers[a.QuestionID] = a.SelectedAnswerID
	}

	if session.Status == model.SessionStatusInProgress {
		view.TimeSpent = s.elapsed(session)
		view.RemainingTime = max(0, test.Duration*60-view.TimeSpent)
	} else if session.TimeSpent != nil {
		view.TimeSpent = *session.TimeSpent
	}
	return view, nil
}

// SubmitAnswer records the caller's selection for one question, replacing
// any earlier selection. Nothing is scored here.
func (s *SessionService) SubmitAnswer(ctx context.Context, caller Caller, sessionID uuid.UUID, req model.SubmitAnswerRequest) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return storeErr("get session", err)
	}
	if session.UserID != caller.UserID {
		return ErrForbidden
	}
	if session.Status != model.SessionStatusInProgress {
		return fmt.Errorf("session is %s: %w", session.Status, ErrInvalidState)
	}

	q, err := s.questions.GetByID(ctx, req.QuestionID)
	if err != nil && !isNotFound(err) {
		return storeErr("get question", err)
	}
	if q == nil || q.TestID != session.TestID {
		return newValidationError("questionId", "question is not part of this test")
	}
	if !q.HasAnswer(req.SelectedAnswerID) {
		return newValidationError("selectedAnswerId", "answer does not belong to the question")
	}

	answer := &model.UserAnswer{
		SessionID:        sessionID,
		QuestionID:       req.QuestionID,
		SelectedAnswerID: req.SelectedAnswerID,
		AnsweredAt:       s.now().UTC(),
	}
	if err := s.sessions.UpsertAnswer(ctx, answer); err != nil {
		return storeErr("record answer", err)
	}
	return nil
}

// Finalize scores the caller's session from its stored answers and moves
// it to a terminal status. Only the first of concurrent calls succeeds.
func (s *SessionService) Finalize(ctx context.Context, caller Caller, sessionID uuid.UUID) (*model.FinalizedSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr("get session", err)
	}
	if session.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	return s.complete(ctx, session, false)
}

// Expire finalizes an abandoned session as TIMED_OUT. Used by the expiry
// sweeper, so no caller checks apply.
func (s *SessionService) Expire(ctx context.Context, sessionID uuid.UUID) (*model.FinalizedSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr("get session", err)
	}
	return s.complete(ctx, session, true)
}

func (s *SessionService) complete(ctx context.Context, session *model.TestSession, forceTimeout bool) (*model.FinalizedSession, error) {
	if session.Status != model.SessionStatusInProgress {
		return nil, fmt.Errorf("session is %s: %w", session.Status, ErrInvalidState)
	}

	test, err := s.tests.GetByID(ctx, session.TestID)
	if err != nil {
		return nil, storeErr("get test", err)
	}
	questions, err := s.questions.ListByTest(ctx, session.TestID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	answers, err := s.sessions.ListAnswers(ctx, session.ID)
	if err != nil {
		return nil, storeErr("list answers", err)
	}

	now := s.now().UTC()
	timeSpent := s.elapsedAt(session, now)
	result := ComputeResult(test, questions, answers, timeSpent)

	status := model.SessionStatusCompleted
	if forceTimeout || s.overdue(test, timeSpent) {
		status = model.SessionStatusTimedOut
	}

	done := *session
	done.Status = status
	done.CompletedAt = &now
	done.Score = &result.Score
	done.TimeSpent = &timeSpent
	if err := s.sessions.Complete(ctx, &done); err != nil {
		return nil, storeErr("complete session", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("status", string(status)).
		Float64("score", result.Score).
		Bool("passed", result.Passed).
		Int("time_spent", timeSpent).
		Msg("Session finalized")

	return &model.FinalizedSession{Success: true, Result: result, Session: done}, nil
}

// Result recomputes the result of a terminal session for its owner or an admin.
func (s *SessionService) Result(ctx context.Context, caller Caller, sessionID uuid.UUID) (*model.SessionResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr("get session", err)
	}
	if !caller.canRead(session.UserID) {
		return nil, ErrForbidden
	}
	if !session.Status.Terminal() {
		return nil, fmt.Errorf("session is still in progress: %w", ErrInvalidState)
	}

	test, err := s.tests.GetByID(ctx, session.TestID)
	if err != nil {
		return nil, storeErr("get test", err)
	}
	questions, err := s.questions.ListByTest(ctx, session.TestID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	answers, err := s.sessions.ListAnswers(ctx, session.ID)
	if err != nil {
		return nil, storeErr("list answers", err)
	}

	timeSpent := 0
	if session.TimeSpent != nil {
		timeSpent = *session.TimeSpent
	}
	return &model.SessionResult{
		Session: *session,
		Test:    test.Meta(),
		Result:  ComputeResult(test, questions, answers, timeSpent),
	}, nil
}

// List returns the caller's sessions newest first, optionally filtered by status.
func (s *SessionService) List(ctx context.Context, caller Caller, status model.SessionStatus) ([]model.SessionListItem, error) {
	if status != "" && !status.Valid() {
		return nil, newValidationError("status", "must be one of IN_PROGRESS COMPLETED TIMED_OUT")
	}
	items, err := s.sessions.ListByUser(ctx, caller.UserID, status)
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	return items, nil
}

// Remaining returns the seconds left on an IN_PROGRESS session, 0 once
// terminal or overdue. Used by the countdown stream.
func (s *SessionService) Remaining(ctx context.Context, caller Caller, sessionID uuid.UUID) (int, model.SessionStatus, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return 0, "", storeErr("get session", err)
	}
	if !caller.canRead(session.UserID) {
		return 0, "", ErrForbidden
	}
	if session.Status != model.SessionStatusInProgress {
		return 0, session.Status, nil
	}
	test, err := s.tests.GetByID(ctx, session.TestID)
	if err != nil {
		return 0, "", storeErr("get test", err)
	}
	return max(0, test.Duration*60-s.elapsed(session)), session.Status, nil
}

// Overdue lists IN_PROGRESS sessions whose time limit plus grace has passed.
func (s *SessionService) Overdue(ctx context.Context, limit int) ([]uuid.UUID, error) {
	ids, err := s.sessions.ListOverdue(ctx, s.now().UTC(), s.grace, limit)
	if err != nil {
		return nil, storeErr("list overdue sessions", err)
	}
	return ids, nil
}

func (s *SessionService) elapsed(session *model.TestSession) int {
	return s.elapsedAt(session, s.now())
}

// elapsedAt is floor(now - startedAt) in seconds, never negative.
func (s *SessionService) elapsedAt(session *model.TestSession, now time.Time) int {
	secs := math.Floor(now.Sub(session.StartedAt).Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}

func (s *SessionService) overdue(test *model.Test, timeSpent int) bool {
	return time.Duration(timeSpent)*time.Second > time.Duration(test.Duration)*time.Minute+s.grace
}

func (s *SessionService) orderTTL(test *model.Test) time.Duration {
	return time.Duration(test.Duration)*time.Minute + s.grace + orderCacheSlack
}

func (s *SessionService) cacheOrder(ctx context.Context, sessionID uuid.UUID, test *model.Test, order []model.QuestionOrder) {
	if s.orders == nil {
		return
	}
	if err := s.orders.Store(ctx, sessionID, order, s.orderTTL(test)); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to cache question order")
	}
}

// deliveredOrder returns the session's questions in the order first
// delivered. On a cache miss the defined order is used and cached again.
func (s *SessionService) deliveredOrder(ctx context.Context, session *model.TestSession, test *model.Test, questions []model.Question) []model.QuestionForTaker {
	var order []model.QuestionOrder
	if s.orders != nil {
		cached, err := s.orders.Load(ctx, session.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to load question order")
		}
		order = cached
	}

	delivered := applyOrder(questions, order)
	if order == nil && session.Status == model.SessionStatusInProgress {
		s.cacheOrder(ctx, session.ID, test, orderOf(delivered))
	}
	return delivered
}
