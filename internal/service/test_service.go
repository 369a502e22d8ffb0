package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
)

// Defaults applied when a new test omits the field.
const (
	DefaultTestDuration       = 100
	DefaultTestTotalQuestions = 100
	DefaultTestPassingScore   = 60
)

// TestService manages the test catalog.
type TestService struct {
	tests TestStore
	log   zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(tests TestStore, log zerolog.Logger) *TestService {
	return &TestService{tests: tests, log: log.With().Str("component", "test_service").Logger()}
}

// List returns the catalog with author and counts, optionally active tests only.
func (s *TestService) List(ctx context.Context, activeOnly bool) ([]model.TestSummary, error) {
	tests, err := s.tests.List(ctx, activeOnly)
	if err != nil {
		return nil, storeErr("list tests", err)
	}
	return tests, nil
}

// Get returns one test with author and counts.
func (s *TestService) Get(ctx context.Context, id uuid.UUID) (*model.TestSummary, error) {
	t, err := s.tests.GetSummary(ctx, id)
	if err != nil {
		return nil, storeErr("get test", err)
	}
	return t, nil
}

// Create adds a test authored by the caller.
func (s *TestService) Create(ctx context.Context, caller Caller, req model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Category:         strings.TrimSpace(req.Category),
		Duration:         intOr(req.Duration, DefaultTestDuration),
		TotalQuestions:   intOr(req.TotalQuestions, DefaultTestTotalQuestions),
		PassingScore:     intOr(req.PassingScore, DefaultTestPassingScore),
		ShuffleQuestions: boolOr(req.ShuffleQuestions, true),
		ShuffleAnswers:   boolOr(req.ShuffleAnswers, true),
		IsActive:         boolOr(req.IsActive, true),
		CreatedByID:      caller.UserID,
	}
	if err := validateTest(t); err != nil {
		return nil, err
	}
	if err := s.tests.Create(ctx, t); err != nil {
		return nil, storeErr("create test", err)
	}
	s.log.Info().Str("test_id", t.ID.String()).Str("title", t.Title).Msg("Test created")
	return t, nil
}

// Update applies the fields present in req.
func (s *TestService) Update(ctx context.Context, id uuid.UUID, req model.UpdateTestRequest) (*model.Test, error) {
	t, err := s.tests.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get test", err)
	}

	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Category != nil {
		t.Category = strings.TrimSpace(*req.Category)
	}
	t.Duration = intOr(req.Duration, t.Duration)
	t.TotalQuestions = intOr(req.TotalQuestions, t.TotalQuestions)
	t.PassingScore = intOr(req.PassingScore, t.PassingScore)
	t.ShuffleQuestions = boolOr(req.ShuffleQuestions, t.ShuffleQuestions)
	t.ShuffleAnswers = boolOr(req.ShuffleAnswers, t.ShuffleAnswers)
	t.IsActive = boolOr(req.IsActive, t.IsActive)

	if err := validateTest(t); err != nil {
		return nil, err
	}
	if err := s.tests.Update(ctx, t); err != nil {
		return nil, storeErr("update test", err)
	}
	return t, nil
}

// Delete removes a test. Returns ErrConflict while sessions reference it.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.tests.Delete(ctx, id); err != nil {
		return storeErr("delete test", err)
	}
	s.log.Info().Str("test_id", id.String()).Msg("Test deleted")
	return nil
}

func validateTest(t *model.Test) error {
	fields := map[string]string{}
	if len([]rune(t.Title)) < 3 {
		fields["title"] = "must be at least 3 characters"
	}
	if t.Category == "" {
		fields["category"] = "is required"
	}
	if t.Duration < 1 {
		fields["duration"] = "must be at least 1 minute"
	}
	if t.TotalQuestions < 1 {
		fields["totalQuestions"] = "must be at least 1"
	}
	if t.PassingScore < 0 || t.PassingScore > 100 {
		fields["passingScore"] = "must be between 0 and 100"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
