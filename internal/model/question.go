package model

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a multiple-choice item belonging to one test.
type Question struct {
	ID          uuid.UUID  `json:"id"`
	TestID      uuid.UUID  `json:"testId"`
	Text        string     `json:"text"`
	Explanation string     `json:"explanation"`
	Difficulty  Difficulty `json:"difficulty"`
	Category    string     `json:"category"`
	Points      int        `json:"points"`
	OrderNum    int        `json:"orderNum"`
	Answers     []Answer   `json:"answers"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Answer is one option of a question.
type Answer struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"questionId"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"isCorrect"`
	OrderNum   int       `json:"orderNum"`
}

// HasAnswer reports whether answerID is one of q's options.
func (q *Question) HasAnswer(answerID uuid.UUID) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}

// IsCorrectAnswer reports whether answerID is an option of q flagged correct.
func (q *Question) IsCorrectAnswer(answerID uuid.UUID) bool {
	for _, a := range q.Answers {
		if a.ID == answerID && a.IsCorrect {
			return true
		}
	}
	return false
}

// QuestionForTaker is a question as delivered during a session, without correctness.
type QuestionForTaker struct {
	ID      uuid.UUID        `json:"id"`
	Text    string           `json:"text"`
	Points  int              `json:"points"`
	Answers []AnswerForTaker `json:"answers"`
}

// AnswerForTaker is an answer option without its correctness flag.
type AnswerForTaker struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// QuestionFilter narrows a question bank listing.
type QuestionFilter struct {
	Category   string
	Difficulty Difficulty
	TestID     *uuid.UUID
	Page       int
	Limit      int
}

// AnswerInput is one option inside a create/update question payload.
type AnswerInput struct {
	Text      string `json:"text" binding:"required,min=1,max=1000"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuestionRequest is the payload for creating or replacing a question.
// TestID is required on create and ignored on update.
type QuestionRequest struct {
	Text        string        `json:"text" binding:"required,min=10,max=5000"`
	Explanation string        `json:"explanation" binding:"max=5000"`
	Difficulty  Difficulty    `json:"difficulty" binding:"required,oneof=EASY MEDIUM HARD"`
	Category    string        `json:"category" binding:"required,min=1,max=100"`
	Points      *int          `json:"points" binding:"omitempty,min=1,max=1000"`
	TestID      *uuid.UUID    `json:"testId"`
	Answers     []AnswerInput `json:"answers" binding:"required,min=2,max=20,has_correct,dive"`
}

// PublicQuestion is a question bank entry as seen by non-admin callers.
type PublicQuestion struct {
	ID         uuid.UUID        `json:"id"`
	TestID     uuid.UUID        `json:"testId"`
	Text       string           `json:"text"`
	Difficulty Difficulty       `json:"difficulty"`
	Category   string           `json:"category"`
	Points     int              `json:"points"`
	OrderNum   int              `json:"orderNum"`
	Answers    []AnswerForTaker `json:"answers"`
}

// ForTaker drops correctness and everything not needed to answer q.
func (q *Question) ForTaker() QuestionForTaker {
	out := QuestionForTaker{ID: q.ID, Text: q.Text, Points: q.Points, Answers: make([]AnswerForTaker, len(q.Answers))}
	for i, a := range q.Answers {
		out.Answers[i] = AnswerForTaker{ID: a.ID, Text: a.Text}
	}
	return out
}

// Public drops the correctness flags and explanation of q.
func (q *Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		TestID:     q.TestID,
		Text:       q.Text,
		Difficulty: q.Difficulty,
		Category:   q.Category,
		Points:     q.Points,
		OrderNum:   q.OrderNum,
		Answers:    q.ForTaker().Answers,
	}
}
