package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/cat-backend/internal/model"
)

const sessionColumns = `s.id, s.user_id, s.test_id, s.status, s.started_at, s.completed_at, s.score, s.time_spent`

// SessionRepository handles test session and recorded answer data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func sessionScanTargets(s *model.TestSession) []any {
	return []any{&s.ID, &s.UserID, &s.TestID, &s.Status, &s.StartedAt, &s.CompletedAt, &s.Score, &s.TimeSpent}
}

// Create inserts a new IN_PROGRESS session.
func (r *SessionRepository) Create(ctx context.Context, s *model.TestSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_sessions (user_id, test_id, status, started_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		s.UserID, s.TestID, s.Status, s.StartedAt,
	).Scan(&s.ID)
	return translate(err)
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions s WHERE s.id = $1`, id,
	).Scan(sessionScanTargets(s)...)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// ListByUser returns a user's sessions newest first, optionally filtered by status.
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, status model.SessionStatus) ([]model.SessionListItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`, t.id, t.title, t.category
		 FROM test_sessions s
		 JOIN tests t ON t.id = s.test_id
		 WHERE s.user_id = $1 AND ($2::text = '' OR s.status = $2::text)
		 ORDER BY s.started_at DESC`,
		userID, string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.SessionListItem{}
	for rows.Next() {
		var it model.SessionListItem
		targets := append(sessionScanTargets(&it.TestSession), &it.Test.ID, &it.Test.Title, &it.Test.Category)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpsertAnswer records the selection for one question, replacing any
// earlier one. The write only happens while the session is IN_PROGRESS;
// otherwise ErrStateChanged is returned.
func (r *SessionRepository) UpsertAnswer(ctx context.Context, a *model.UserAnswer) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_answers (session_id, question_id, selected_answer_id, answered_at)
		 SELECT $1, $2, $3, $4
		 WHERE EXISTS (SELECT 1 FROM test_sessions WHERE id = $1 AND status = $5)
		 ON CONFLICT (session_id, question_id)
		 DO UPDATE SET selected_answer_id = EXCLUDED.selected_answer_id,
			answered_at = EXCLUDED.answered_at
		 RETURNING id`,
		a.SessionID, a.QuestionID, a.SelectedAnswerID, a.AnsweredAt, model.SessionStatusInProgress,
	).Scan(&a.ID)
	err = translate(err)
	if errors.Is(err, ErrNotFound) {
		return ErrStateChanged
	}
	return err
}

// ListAnswers returns the recorded answers of a session.
func (r *SessionRepository) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.UserAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, selected_answer_id, answered_at
		 FROM user_answers WHERE session_id = $1
		 ORDER BY answered_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.UserAnswer{}
	for rows.Next() {
		var a model.UserAnswer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.SelectedAnswerID, &a.AnsweredAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// Complete moves an IN_PROGRESS session to a terminal status. Exactly one
// concurrent caller wins; the others get ErrStateChanged.
func (r *SessionRepository) Complete(ctx context.Context, s *model.TestSession) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_sessions
		 SET status = $1, completed_at = $2, score = $3, time_spent = $4
		 WHERE id = $5 AND status = $6`,
		s.Status, s.CompletedAt, s.Score, s.TimeSpent, s.ID, model.SessionStatusInProgress,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStateChanged
	}
	return nil
}

// ListOverdue returns IN_PROGRESS sessions whose time limit plus grace
// elapsed before now.
func (r *SessionRepository) ListOverdue(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id
		 FROM test_sessions s
		 JOIN tests t ON t.id = s.test_id
		 WHERE s.status = $1
		   AND s.started_at + make_interval(secs => t.duration * 60 + $2::double precision) < $3
		 ORDER BY s.started_at ASC
		 LIMIT $4`,
		model.SessionStatusInProgress, grace.Seconds(), now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
