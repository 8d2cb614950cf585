package lms

import (
	"math"

	"polnischlernen/internal/models"
	"polnischlernen/internal/quiz"
)

// LessonAnswer ist die Antwort auf eine Lektionsfrage.
// single nutzt genau eine Option, multiple beliebig viele, text nur Text.
type LessonAnswer struct {
	OptionIDs []string `json:"option_ids,omitempty"`
	Text      string   `json:"text,omitempty"`
}

type QuestionResult struct {
	QuestionID       string   `json:"question_id"`
	Correct          bool     `json:"correct"`
	CorrectOptionIDs []string `json:"correct_option_ids,omitempty"`
	CorrectAnswer    string   `json:"correct_answer,omitempty"`
}

// QuizResult ist die Auswertung eines Lektionsquiz
type QuizResult struct {
	Correct      int              `json:"correct"`
	Total        int              `json:"total"`
	Percent      int              `json:"percent"`
	PassingScore int              `json:"passing_score"`
	Passed       bool             `json:"passed"`
	Questions    []QuestionResult `json:"questions"`
}

// Evaluate bewertet alle Fragen ohne Teilpunkte.
// Ein Quiz ohne Fragen ergibt 0 Prozent und gilt als nicht bestanden.
func Evaluate(lq *models.LessonQuiz, answers map[string]LessonAnswer) QuizResult {
	res := QuizResult{
		Total:        len(lq.Questions),
		PassingScore: lq.PassingScore,
		Questions:    make([]QuestionResult, 0, len(lq.Questions)),
	}

	for _, q := range lq.Questions {
		qr := QuestionResult{QuestionID: q.ID}
		answer, answered := answers[q.ID]

		switch q.Type {
		case models.QuestionSingle:
			qr.CorrectOptionIDs = correctOptions(q)
			qr.Correct = answered && len(answer.OptionIDs) == 1 && optionCorrect(q, answer.OptionIDs[0])
		case models.QuestionMultiple:
			qr.CorrectOptionIDs = correctOptions(q)
			qr.Correct = answered && sameSet(answer.OptionIDs, qr.CorrectOptionIDs)
		case models.QuestionText:
			qr.CorrectAnswer = q.CorrectAnswer
			qr.Correct = answered && quiz.EqualText(answer.Text, q.CorrectAnswer)
		}

		if qr.Correct {
			res.Correct++
		}
		res.Questions = append(res.Questions, qr)
	}

	if res.Total > 0 {
		res.Percent = int(math.Round(float64(res.Correct) / float64(res.Total) * 100))
		res.Passed = res.Percent >= res.PassingScore
	}
	return res
}

func correctOptions(q models.LessonQuestion) []string {
	var ids []string
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func optionCorrect(q models.LessonQuestion, id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return o.IsCorrect
		}
	}
	return false
}

func sameSet(given, want []string) bool {
	seen := make(map[string]bool, len(given))
	for _, id := range given {
		seen[id] = true
	}
	if len(seen) != len(want) {
		return false
	}
	for _, id := range want {
		if !seen[id] {
			return false
		}
	}
	return true
}

// CanComplete prüft, ob eine Lektion abgeschlossen werden darf:
// ein vorhandenes Quiz muss bestanden, ein vorhandenes Video angesehen sein.
func CanComplete(lesson *models.Lesson, quizPassed, videoWatched bool) bool {
	if lesson.Quiz != nil && len(lesson.Quiz.Questions) > 0 && !quizPassed {
		return false
	}
	if lesson.VideoURL != "" && !videoWatched {
		return false
	}
	return true
}
