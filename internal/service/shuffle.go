package service

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/stemsi/cat-backend/internal/model"
)

// fisherYates permutes n elements uniformly using intN as the random
// source. intN(k) must return a value in [0, k).
func fisherYates(n int, intN func(int) int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := intN(i + 1)
		swap(i, j)
	}
}

// shuffleForTaker applies the test's shuffle flags to questions in place.
// Answer order of each question is permuted independently.
func shuffleForTaker(questions []model.QuestionForTaker, byQuestion, byAnswer bool, intN func(int) int) {
	if intN == nil {
		intN = rand.IntN
	}
	if byQuestion {
		fisherYates(len(questions), intN, func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	if byAnswer {
		for k := range questions {
			answers := questions[k].Answers
			fisherYates(len(answers), intN, func(i, j int) {
				answers[i], answers[j] = answers[j], answers[i]
			})
		}
	}
}

// orderOf records the delivered order of questions.
func orderOf(questions []model.QuestionForTaker) []model.QuestionOrder {
	order := make([]model.QuestionOrder, len(questions))
	for i, q := range questions {
		ids := make([]uuid.UUID, len(q.Answers))
		for j, a := range q.Answers {
			ids[j] = a.ID
		}
		order[i] = model.QuestionOrder{QuestionID: q.ID, AnswerIDs: ids}
	}
	return order
}

// applyOrder arranges questions (in defined order) as recorded in order.
// Questions or answers missing from order keep their defined position
// after the recorded ones; recorded ids that no longer exist are skipped.
func applyOrder(questions []model.Question, order []model.QuestionOrder) []model.QuestionForTaker {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	out := make([]model.QuestionForTaker, 0, len(questions))
	placed := make(map[uuid.UUID]bool, len(questions))
	for _, o := range order {
		q, ok := byID[o.QuestionID]
		if !ok || placed[q.ID] {
			continue
		}
		placed[q.ID] = true
		out = append(out, arrangeAnswers(q, o.AnswerIDs))
	}
	for i := range questions {
		if !placed[questions[i].ID] {
			out = append(out, questions[i].ForTaker())
		}
	}
	return out
}

func arrangeAnswers(q *model.Question, answerIDs []uuid.UUID) model.QuestionForTaker {
	t := q.ForTaker()
	pos := make(map[uuid.UUID]int, len(t.Answers))
	for i, a := range t.Answers {
		pos[a.ID] = i
	}
	arranged := make([]model.AnswerForTaker, 0, len(t.Answers))
	used := make([]bool, len(t.Answers))
	for _, id := range answerIDs {
		if i, ok := pos[id]; ok && !used[i] {
			used[i] = true
			arranged = append(arranged, t.Answers[i])
		}
	}
	for i, a := range t.Answers {
		if !used[i] {
			arranged = append(arranged, a)
		}
	}
	t.Answers = arranged
	return t
}
