package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/cat-backend/internal/model"
)

// ComputeResult scores a session from its test, the test's questions and
// the recorded answers. It is a pure function of its inputs.
//
// score = earned / total * 100, clamped to [0, 100] and rounded to two
// decimals; a test with no points scores 0. passed compares the rounded
// score against the passing score.
func ComputeResult(test *model.Test, questions []model.Question, answers []model.UserAnswer, timeSpent int) model.Result {
	selected := make(map[uuid.UUID]uuid.UUID, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedAnswerID
	}

	res := model.Result{
		TotalQuestions:   len(questions),
		PassingScore:     test.PassingScore,
		TimeSpent:        FormatDuration(timeSpent),
		TimeSpentSeconds: timeSpent,
		Questions:        make([]model.QuestionOutcome, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		res.TotalPoints += q.Points

		outcome := model.QuestionOutcome{QuestionID: q.ID, Text: q.Text, Points: q.Points}
		if answerID, ok := selected[q.ID]; ok {
			outcome.Answered = true
			outcome.SelectedAnswerID = &answerID
			if q.IsCorrectAnswer(answerID) {
				outcome.Correct = true
				res.CorrectAnswers++
				res.EarnedPoints += q.Points
			}
		}
		res.Questions = append(res.Questions, outcome)
	}

	if res.TotalPoints > 0 {
		res.Score = roundScore(float64(res.EarnedPoints) / float64(res.TotalPoints) * 100)
	}
	res.Passed = res.Score >= float64(test.PassingScore)
	return res
}

// roundScore clamps s to [0, 100] and rounds it to two decimals.
func roundScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 100 {
		s = 100
	}
	return round2(s)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatDuration renders seconds as "1h 1m 1s". Hours appear only when
// non-zero; minutes appear when hours or minutes are non-zero.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if h > 0 || m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", s))
	return strings.Join(parts, " ")
}
