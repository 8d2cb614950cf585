package quiz

import "strings"

// Normalize ist die einheitliche Vergleichsform für freie Texteingaben:
// Ränder entfernt, Leerraum zusammengefasst, Kleinbuchstaben.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// EqualText vergleicht zwei Eingaben in normalisierter Form
func EqualText(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// IsCorrect bewertet einen einzelnen Slot. Fehlende Slots zählen als falsch.
func IsCorrect(q Question, a Answer) bool {
	switch q := q.(type) {
	case MultipleChoice:
		c, ok := a.(Choice)
		return ok && string(c) == q.Answer
	case FillInBlank:
		b, ok := a.(Blanks)
		if !ok || len(q.Blanks) == 0 || len(b) < len(q.Blanks) {
			return false
		}
		if q.MarkerCount() != len(q.Blanks) {
			return false
		}
		for i, expected := range q.Blanks {
			if !EqualText(b[i], expected) {
				return false
			}
		}
		return true
	case TrueFalse:
		v, ok := a.(Bool)
		return ok && bool(v) == q.Answer
	}
	return false
}

// Score zählt die richtig beantworteten Fragen. Lückentext gibt nur einen Punkt,
// wenn alle Lücken stimmen.
func Score(questions []Question, answers []Answer) int {
	score := 0
	for i, q := range questions {
		var a Answer
		if i < len(answers) {
			a = answers[i]
		}
		if IsCorrect(q, a) {
			score++
		}
	}
	return score
}

// ScoreMessage liefert den Abschlusstext passend zum Ergebnis
func ScoreMessage(score, total int) string {
	if total <= 0 || score <= 0 {
		return "Weiter üben, du schaffst das!"
	}
	percent := float64(score) / float64(total) * 100
	switch {
	case percent >= 100:
		return "Ausgezeichnet! Herzlichen Glückwunsch!"
	case percent >= 80:
		return "Sehr gut gemacht!"
	case percent >= 60:
		return "Gute Arbeit! Du bist auf dem richtigen Weg."
	case percent >= 40:
		return "Nicht schlecht, aber da geht noch mehr."
	default:
		return "Weiter üben, du schaffst das!"
	}
}
