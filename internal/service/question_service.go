package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
)

// Question bank paging bounds.
const (
	DefaultQuestionPageSize = 20
	MaxQuestionPageSize     = 100
)

// QuestionService manages the question bank.
type QuestionService struct {
	questions QuestionStore
	tests     TestStore
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore, tests TestStore, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		tests:     tests,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// List returns a filtered page of questions and the total match count.
func (s *QuestionService) List(ctx context.Context, f model.QuestionFilter) ([]model.Question, int64, error) {
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		return nil, 0, newValidationError("difficulty", "must be one of EASY MEDIUM HARD")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultQuestionPageSize
	}
	if f.Limit > MaxQuestionPageSize {
		f.Limit = MaxQuestionPageSize
	}

	questions, total, err := s.questions.List(ctx, f)
	if err != nil {
		return nil, 0, storeErr("list questions", err)
	}
	return questions, total, nil
}

// Get returns one question with its answers.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get question", err)
	}
	return q, nil
}

// Create adds a question with its answers to an existing test.
func (s *QuestionService) Create(ctx context.Context, req model.QuestionRequest) (*model.Question, error) {
	if req.TestID == nil {
		return nil, newValidationError("testId", "is required")
	}
	if _, err := s.tests.GetByID(ctx, *req.TestID); err != nil {
		if isNotFound(err) {
			return nil, newValidationError("testId", "test does not exist")
		}
		return nil, storeErr("get test", err)
	}

	q := buildQuestion(req)
	q.TestID = *req.TestID
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, storeErr("create question", err)
	}
	s.log.Info().Str("question_id", q.ID.String()).Str("test_id", q.TestID.String()).Msg("Question created")
	return q, nil
}

// Update replaces a question's fields and its whole answer set. The
// question stays in its test.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req model.QuestionRequest) (*model.Question, error) {
	q := buildQuestion(req)
	q.ID = id
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	if err := s.questions.Update(ctx, q); err != nil {
		return nil, storeErr("update question", err)
	}
	return q, nil
}

// Delete removes a question. Returns ErrConflict when sessions recorded answers to it.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.questions.Delete(ctx, id); err != nil {
		return storeErr("delete question", err)
	}
	return nil
}

// ForCaller projects questions for the caller: admins see everything,
// everyone else gets answers without correctness.
func ForCaller(caller Caller, questions []model.Question) any {
	if caller.IsAdmin() {
		return questions
	}
	out := make([]model.PublicQuestion, len(questions))
	for i := range questions {
		out[i] = questions[i].Public()
	}
	return out
}

func buildQuestion(req model.QuestionRequest) *model.Question {
	q := &model.Question{
		Text:        strings.TrimSpace(req.Text),
		Explanation: req.Explanation,
		Difficulty:  req.Difficulty,
		Category:    strings.TrimSpace(req.Category),
		Points:      intOr(req.Points, 1),
		Answers:     make([]model.Answer, len(req.Answers)),
	}
	for i, a := range req.Answers {
		q.Answers[i] = model.Answer{Text: strings.TrimSpace(a.Text), IsCorrect: a.IsCorrect}
	}
	return q
}

// validateQuestion enforces the question bank invariants: at least two
// answers with one marked correct and positive points.
func validateQuestion(q *model.Question) error {
	fields := map[string]string{}
	if len([]rune(q.Text)) < 10 {
		fields["text"] = "must be at least 10 characters"
	}
	if !q.Difficulty.Valid() {
		fields["difficulty"] = "must be one of EASY MEDIUM HARD"
	}
	if q.Category == "" {
		fields["category"] = "is required"
	}
	if q.Points < 1 {
		fields["points"] = "must be a positive integer"
	}

	correct := 0
	for _, a := range q.Answers {
		if a.Text == "" {
			fields["answers"] = "answer text is required"
		}
		if a.IsCorrect {
			correct++
		}
	}
	switch {
	case len(q.Answers) < 2:
		fields["answers"] = "must have at least 2 answers"
	case correct == 0:
		fields["answers"] = "must have at least one correct answer"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
