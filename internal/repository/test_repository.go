package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/cat-backend/internal/model"
)

const testColumns = `t.id, t.title, t.description, t.category, t.duration, t.total_questions,
	t.passing_score, t.shuffle_questions, t.shuffle_answers, t.is_active, t.created_by_id,
	t.created_at, t.updated_at`

// TestRepository handles test catalog data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

func testScanTargets(t *model.Test) []any {
	return []any{
		&t.ID, &t.Title, &t.Description, &t.Category, &t.Duration, &t.TotalQuestions,
		&t.PassingScore, &t.ShuffleQuestions, &t.ShuffleAnswers, &t.IsActive, &t.CreatedByID,
		&t.CreatedAt, &t.UpdatedAt,
	}
}

// GetByID retrieves a test by ID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests t WHERE t.id = $1`, id,
	).Scan(testScanTargets(t)...)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

const summaryQuery = `
	SELECT ` + testColumns + `,
		u.id, u.name, u.email,
		(SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id),
		(SELECT COUNT(*) FROM test_sessions s WHERE s.test_id = t.id)
	FROM tests t
	JOIN users u ON u.id = t.created_by_id`

func summaryScanTargets(s *model.TestSummary) []any {
	return append(testScanTargets(&s.Test),
		&s.CreatedBy.ID, &s.CreatedBy.Name, &s.CreatedBy.Email,
		&s.QuestionCount, &s.SessionCount,
	)
}

// GetSummary retrieves a test with its author and usage counts.
func (r *TestRepository) GetSummary(ctx context.Context, id uuid.UUID) (*model.TestSummary, error) {
	s := &model.TestSummary{}
	err := r.pool.QueryRow(ctx, summaryQuery+` WHERE t.id = $1`, id).Scan(summaryScanTargets(s)...)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// List returns the catalog newest first, optionally only active tests.
func (r *TestRepository) List(ctx context.Context, activeOnly bool) ([]model.TestSummary, error) {
	query := summaryQuery
	if activeOnly {
		query += ` WHERE t.is_active = TRUE`
	}
	query += ` ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tests := []model.TestSummary{}
	for rows.Next() {
		var s model.TestSummary
		if err := rows.Scan(summaryScanTargets(&s)...); err != nil {
			return nil, err
		}
		tests = append(tests, s)
	}
	return tests, rows.Err()
}

// Create inserts a new test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, description, category, duration, total_questions, passing_score,
			shuffle_questions, shuffle_answers, is_active, created_by_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.Description, t.Category, t.Duration, t.TotalQuestions, t.PassingScore,
		t.ShuffleQuestions, t.ShuffleAnswers, t.IsActive, t.CreatedByID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return translate(err)
}

// Update persists every editable column of t.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE tests SET title = $1, description = $2, category = $3, duration = $4,
			total_questions = $5, passing_score = $6, shuffle_questions = $7,
			shuffle_answers = $8, is_active = $9, updated_at = NOW()
		 WHERE id = $10
		 RETURNING updated_at`,
		t.Title, t.Description, t.Category, t.Duration, t.TotalQuestions, t.PassingScore,
		t.ShuffleQuestions, t.ShuffleAnswers, t.IsActive, t.ID,
	).Scan(&t.UpdatedAt)
	return translate(err)
}

// Delete removes a test and its questions. Returns ErrReferenced while
// sessions still point at it.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
