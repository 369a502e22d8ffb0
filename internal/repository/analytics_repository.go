package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/cat-backend/internal/model"
)

// completedStatuses are the terminal statuses that carry a score.
var completedStatuses = []string{string(model.SessionStatusCompleted), string(model.SessionStatusTimedOut)}

// AnalyticsRepository handles the aggregate queries behind the admin
// analytics and dashboard views.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// OverviewCounts retrieves platform totals plus completion and pass counts.
func (r *AnalyticsRepository) OverviewCounts(ctx context.Context) (model.OverviewCounts, error) {
	var c model.OverviewCounts
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM tests),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM test_sessions),
			(SELECT COUNT(*) FROM test_sessions WHERE status = ANY($1)),
			(SELECT COUNT(*) FROM test_sessions s JOIN tests t ON t.id = s.test_id
			  WHERE s.status = ANY($1) AND s.score >= t.passing_score),
			(SELECT AVG(score)::double precision FROM test_sessions WHERE status = ANY($1))`,
		completedStatuses,
	).Scan(&c.TotalUsers, &c.TotalTests, &c.TotalQuestions, &c.TotalSessions,
		&c.CompletedSessions, &c.PassedSessions, &c.AverageScore)
	return c, err
}

// SessionsSince returns the start time and score of every session started at or after since.
func (r *AnalyticsRepository) SessionsSince(ctx context.Context, since time.Time) ([]model.SessionPoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT started_at, score FROM test_sessions WHERE started_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []model.SessionPoint{}
	for rows.Next() {
		var p model.SessionPoint
		if err := rows.Scan(&p.StartedAt, &p.Score); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// TestsByCategory counts tests per category.
func (r *AnalyticsRepository) TestsByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	return r.categoryCounts(ctx, `SELECT category, COUNT(*) FROM tests GROUP BY category ORDER BY COUNT(*) DESC, category`)
}

// QuestionsByCategory counts questions per category.
func (r *AnalyticsRepository) QuestionsByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	return r.categoryCounts(ctx, `SELECT category, COUNT(*) FROM questions GROUP BY category ORDER BY COUNT(*) DESC, category`)
}

func (r *AnalyticsRepository) categoryCounts(ctx context.Context, query string) ([]model.CategoryCount, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []model.CategoryCount{}
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// QuestionsByDifficulty counts questions per difficulty.
func (r *AnalyticsRepository) QuestionsByDifficulty(ctx context.Context) ([]model.DifficultyCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT difficulty, COUNT(*) FROM questions GROUP BY difficulty ORDER BY difficulty`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []model.DifficultyCount{}
	for rows.Next() {
		var c model.DifficultyCount
		if err := rows.Scan(&c.Difficulty, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TopPerformers ranks users by mean score over completed sessions.
func (r *AnalyticsRepository) TopPerformers(ctx context.Context, limit int) ([]model.TopPerformer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.email, AVG(s.score)::double precision, COUNT(s.id)
		 FROM test_sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.status = ANY($1) AND s.score IS NOT NULL
		 GROUP BY u.id, u.name, u.email
		 ORDER BY AVG(s.score) DESC, u.name ASC, u.id ASC
		 LIMIT $2`,
		completedStatuses, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	performers := []model.TopPerformer{}
	for rows.Next() {
		var p model.TopPerformer
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email, &p.AvgScore, &p.CompletedTests); err != nil {
			return nil, err
		}
		performers = append(performers, p)
	}
	return performers, rows.Err()
}

// RecentSessions returns the newest sessions across all users.
func (r *AnalyticsRepository) RecentSessions(ctx context.Context, limit int) ([]model.RecentSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.status, s.score, s.started_at, s.completed_at,
			u.id, u.name, u.email, t.id, t.title, t.category
		 FROM test_sessions s
		 JOIN users u ON u.id = s.user_id
		 JOIN tests t ON t.id = s.test_id
		 ORDER BY s.started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.RecentSession{}
	for rows.Next() {
		var s model.RecentSession
		if err := rows.Scan(&s.ID, &s.Status, &s.Score, &s.StartedAt, &s.CompletedAt,
			&s.User.ID, &s.User.Name, &s.User.Email,
			&s.Test.ID, &s.Test.Title, &s.Test.Category); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
