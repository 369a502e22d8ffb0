package model

import "github.com/google/uuid"

// Result is the scored outcome of a session.
type Result struct {
	Score            float64           `json:"score"`
	Passed           bool              `json:"passed"`
	CorrectAnswers   int               `json:"correctAnswers"`
	TotalQuestions   int               `json:"totalQuestions"`
	TotalPoints      int               `json:"totalPoints"`
	EarnedPoints     int               `json:"earnedPoints"`
	TimeSpent        string            `json:"timeSpent"`
	TimeSpentSeconds int               `json:"timeSpentSeconds"`
	PassingScore     int               `json:"passingScore"`
	Questions        []QuestionOutcome `json:"questions"`
}

// QuestionOutcome is the per-question line of a Result.
type QuestionOutcome struct {
	QuestionID       uuid.UUID  `json:"questionId"`
	Text             string     `json:"text"`
	Points           int        `json:"points"`
	Answered         bool       `json:"answered"`
	Correct          bool       `json:"correct"`
	SelectedAnswerID *uuid.UUID `json:"selectedAnswerId"`
}
