package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/cat-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// Request is a client message. Fields beyond Action are read per action.
type Request struct {
	Action           Action    `json:"action"`
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedAnswerID uuid.UUID `json:"selected_answer_id"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick    Event = "tick"
	EventExpired Event = "expired"
	EventSaved   Event = "saved"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
	EventError   Event = "error"
)

// TickResponse carries the seconds left on the session clock.
type TickResponse struct {
	Event         Event `json:"event"`
	RemainingTime int   `json:"remaining_time"`
}

// ExpiredResponse is sent once when the clock reaches zero or the session
// was closed elsewhere.
type ExpiredResponse struct {
	Event  Event               `json:"event"`
	Status model.SessionStatus `json:"status"`
}

// SavedResponse acknowledges a recorded answer.
type SavedResponse struct {
	Event      Event     `json:"event"`
	QuestionID uuid.UUID `json:"question_id"`
}

// GradedResponse is the outcome of a submit.
type GradedResponse struct {
	Event  Event               `json:"event"`
	Status model.SessionStatus `json:"status"`
	Result model.Result        `json:"result"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}
