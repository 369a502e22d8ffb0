package model

import (
	"time"

	"github.com/google/uuid"
)

// Test is a test definition in the catalog.
type Test struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Duration         int       `json:"duration"`
	TotalQuestions   int       `json:"totalQuestions"`
	PassingScore     int       `json:"passingScore"`
	ShuffleQuestions bool      `json:"shuffleQuestions"`
	ShuffleAnswers   bool      `json:"shuffleAnswers"`
	IsActive         bool      `json:"isActive"`
	CreatedByID      uuid.UUID `json:"createdById"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TestCreator is the author projection embedded in catalog listings.
type TestCreator struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// TestSummary is a catalog row with author and usage counts.
type TestSummary struct {
	Test
	CreatedBy     TestCreator `json:"createdBy"`
	QuestionCount int         `json:"questionCount"`
	SessionCount  int         `json:"sessionCount"`
}

// CreateTestRequest is the payload for creating a test. Pointer fields
// distinguish "absent" from a zero value so defaults can be applied.
type CreateTestRequest struct {
	Title            string `json:"title" binding:"required,min=3,max=255"`
	Description      string `json:"description" binding:"max=5000"`
	Category         string `json:"category" binding:"required,min=1,max=100"`
	Duration         *int   `json:"duration" binding:"omitempty,min=1,max=1440"`
	TotalQuestions   *int   `json:"totalQuestions" binding:"omitempty,min=1,max=1000"`
	PassingScore     *int   `json:"passingScore" binding:"omitempty,min=0,max=100"`
	ShuffleQuestions *bool  `json:"shuffleQuestions"`
	ShuffleAnswers   *bool  `json:"shuffleAnswers"`
	IsActive         *bool  `json:"isActive"`
}

// UpdateTestRequest is the payload for editing a test; absent fields are kept.
type UpdateTestRequest struct {
	Title            *string `json:"title" binding:"omitempty,min=3,max=255"`
	Description      *string `json:"description" binding:"omitempty,max=5000"`
	Category         *string `json:"category" binding:"omitempty,min=1,max=100"`
	Duration         *int    `json:"duration" binding:"omitempty,min=1,max=1440"`
	TotalQuestions   *int    `json:"totalQuestions" binding:"omitempty,min=1,max=1000"`
	PassingScore     *int    `json:"passingScore" binding:"omitempty,min=0,max=100"`
	ShuffleQuestions *bool   `json:"shuffleQuestions"`
	ShuffleAnswers   *bool   `json:"shuffleAnswers"`
	IsActive         *bool   `json:"isActive"`
}

// Meta returns the projection of t carried by session payloads.
func (t *Test) Meta() SessionTestMeta {
	return SessionTestMeta{
		ID:             t.ID,
		Title:          t.Title,
		Category:       t.Category,
		Duration:       t.Duration,
		TotalQuestions: t.TotalQuestions,
		PassingScore:   t.PassingScore,
	}
}
