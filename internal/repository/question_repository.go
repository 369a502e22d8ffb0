package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/cat-backend/internal/model"
)

const questionColumns = `q.id, q.test_id, q.text, q.explanation, q.difficulty, q.category,
	q.points, q.order_num, q.created_at, q.updated_at`

// QuestionRepository handles question and answer data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func questionScanTargets(q *model.Question) []any {
	return []any{
		&q.ID, &q.TestID, &q.Text, &q.Explanation, &q.Difficulty, &q.Category,
		&q.Points, &q.OrderNum, &q.CreatedAt, &q.UpdatedAt,
	}
}

// ListByTest returns a test's questions in defined order, each with its
// answers in defined order.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions q
		 WHERE q.test_id = $1
		 ORDER BY q.order_num ASC, q.created_at ASC`, testID)
	if err != nil {
		return nil, err
	}
	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachAnswers(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetByID retrieves a question with its answers.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions q WHERE q.id = $1`, id,
	).Scan(questionScanTargets(q)...)
	if err != nil {
		return nil, translate(err)
	}
	list := []model.Question{*q}
	if err := r.attachAnswers(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns a filtered page of the question bank and the total match count.
func (r *QuestionRepository) List(ctx context.Context, f model.QuestionFilter) ([]model.Question, int64, error) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("q.category = $%d", len(args)))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		conds = append(conds, fmt.Sprintf("q.difficulty = $%d", len(args)))
	}
	if f.TestID != nil {
		args = append(args, *f.TestID)
		conds = append(conds, fmt.Sprintf("q.test_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions q`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	args = append(args, f.Limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions q`+where+
			fmt.Sprintf(` ORDER BY q.created_at DESC, q.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachAnswers(ctx, questions); err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// Create inserts a question and its answers in one transaction. The
// question is appended after the test's existing questions.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO questions (test_id, text, explanation, difficulty, category, points, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6,
				(SELECT COALESCE(MAX(order_num), 0) + 1 FROM questions WHERE test_id = $1))
			 RETURNING id, order_num, created_at, updated_at`,
			q.TestID, q.Text, q.Explanation, q.Difficulty, q.Category, q.Points,
		).Scan(&q.ID, &q.OrderNum, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		return insertAnswers(ctx, tx, q)
	})
}

// Update replaces a question's fields and its whole answer set.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE questions SET text = $1, explanation = $2, difficulty = $3, category = $4,
				points = $5, updated_at = NOW()
			 WHERE id = $6
			 RETURNING test_id, order_num, created_at, updated_at`,
			q.Text, q.Explanation, q.Difficulty, q.Category, q.Points, q.ID,
		).Scan(&q.TestID, &q.OrderNum, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM answers WHERE question_id = $1`, q.ID); err != nil {
			return translate(err)
		}
		return insertAnswers(ctx, tx, q)
	})
}

// Delete removes a question. Returns ErrReferenced when recorded answers point at it.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// insertAnswers assigns ids and order to q.Answers and bulk-inserts them.
func insertAnswers(ctx context.Context, tx pgx.Tx, q *model.Question) error {
	for i := range q.Answers {
		q.Answers[i].ID = uuid.New()
		q.Answers[i].QuestionID = q.ID
		q.Answers[i].OrderNum = i + 1
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"answers"},
		[]string{"id", "question_id", "text", "is_correct", "order_num"},
		pgx.CopyFromSlice(len(q.Answers), func(i int) ([]any, error) {
			a := q.Answers[i]
			return []any{a.ID, a.QuestionID, a.Text, a.IsCorrect, a.OrderNum}, nil
		}),
	)
	return translate(err)
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(questionScanTargets(&q)...); err != nil {
			return nil, err
		}
		q.Answers = []model.Answer{}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// attachAnswers loads the answers of every question in one query.
func (r *QuestionRepository) attachAnswers(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]int, len(questions))
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		index[q.ID] = i
		ids[i] = q.ID
		questions[i].Answers = []model.Answer{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, text, is_correct, order_num
		 FROM answers WHERE question_id = ANY($1)
		 ORDER BY question_id, order_num ASC`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect, &a.OrderNum); err != nil {
			return err
		}
		i := index[a.QuestionID]
		questions[i].Answers = append(questions[i].Answers, a)
	}
	return rows.Err()
}
