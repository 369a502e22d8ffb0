package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates test session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusTimedOut   SessionStatus = "TIMED_OUT"
)

// Terminal reports whether no further transition can leave s.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusTimedOut
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == SessionStatusInProgress || s.Terminal()
}

// TestSession is one user's attempt at one test.
type TestSession struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"userId"`
	TestID      uuid.UUID     `json:"testId"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt"`
	Score       *float64      `json:"score"`
	TimeSpent   *int          `json:"timeSpent"`
}

// UserAnswer is the latest selection recorded for one question of a session.
type UserAnswer struct {
	ID               uuid.UUID `json:"id"`
	SessionID        uuid.UUID `json:"sessionId"`
	QuestionID       uuid.UUID `json:"questionId"`
	SelectedAnswerID uuid.UUID `json:"selectedAnswerId"`
	AnsweredAt       time.Time `json:"answeredAt"`
}

// SessionTestInfo is the test projection carried in session listings.
type SessionTestInfo struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
}

// SessionListItem is a row of the caller's session history.
type SessionListItem struct {
	TestSession
	Test SessionTestInfo `json:"test"`
}

// StartSessionRequest is the payload for starting a test.
type StartSessionRequest struct {
	TestID uuid.UUID `json:"testId" binding:"required"`
}

// SubmitAnswerRequest records one selection.
type SubmitAnswerRequest struct {
	QuestionID       uuid.UUID `json:"questionId" binding:"required"`
	SelectedAnswerID uuid.UUID `json:"selectedAnswerId" binding:"required"`
}

// SessionTestMeta is the test projection returned when a session starts.
type SessionTestMeta struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Category       string    `json:"category"`
	Duration       int       `json:"duration"`
	TotalQuestions int       `json:"totalQuestions"`
	PassingScore   int       `json:"passingScore"`
}

// StartedSession is returned by starting a test.
type StartedSession struct {
	SessionID uuid.UUID          `json:"sessionId"`
	Test      SessionTestMeta    `json:"test"`
	Questions []QuestionForTaker `json:"questions"`
	StartedAt time.Time          `json:"startedAt"`
}

// SessionView is a read-only snapshot of a session with live timing.
type SessionView struct {
	TestSession
	Test          SessionTestMeta         `json:"test"`
	TimeSpent     int                     `json:"timeSpent"`
	RemainingTime int                     `json:"remainingTime"`
	Questions     []QuestionForTaker      `json:"questions"`
	Answers       map[uuid.UUID]uuid.UUID `json:"answers"`
}

// QuestionOrder is the delivered order of one question and its answers.
type QuestionOrder struct {
	QuestionID uuid.UUID   `json:"q"`
	AnswerIDs  []uuid.UUID `json:"a"`
}

// FinalizedSession is returned by submitting a test.
type FinalizedSession struct {
	Success bool        `json:"success"`
	Result  Result      `json:"result"`
	Session TestSession `json:"session"`
}

// SessionResult pairs a terminal session with its test and computed result.
type SessionResult struct {
	Session TestSession     `json:"session"`
	Test    SessionTestMeta `json:"test"`
	Result  Result          `json:"result"`
}
