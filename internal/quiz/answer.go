package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Answer ist der Inhalt eines Antwort-Slots: Choice, Blanks oder Bool.
// Ein nil-Slot bedeutet "unbeantwortet".
type Answer interface {
	isAnswer()
}

// Choice ist der gewählte Buchstabe einer Multiple-Choice-Frage
type Choice string

// Blanks sind die Eingaben pro Lücke, in Reihenfolge
type Blanks []string

// Bool ist die Auswahl bei Wahr/Falsch
type Bool bool

func (Choice) isAnswer() {}
func (Blanks) isAnswer() {}
func (Bool) isAnswer()   {}

// emptyAnswer liefert den Startzustand eines Slots
func emptyAnswer(q Question) Answer {
	if fb, ok := q.(FillInBlank); ok {
		return make(Blanks, len(fb.Blanks))
	}
	return nil
}

// fits prüft, ob die Antwort zur Variante passt
func fits(q Question, a Answer) bool {
	switch q.(type) {
	case MultipleChoice:
		c, ok := a.(Choice)
		return ok && LabelIndex(string(c)) >= 0
	case FillInBlank:
		_, ok := a.(Blanks)
		return ok
	case TrueFalse:
		_, ok := a.(Bool)
		return ok
	}
	return false
}

// IsAnswered: Multiple-Choice und Wahr/Falsch brauchen eine Auswahl,
// Lückentext verlangt in jeder Lücke nicht-leeren Text.
func IsAnswered(q Question, a Answer) bool {
	switch q := q.(type) {
	case MultipleChoice, TrueFalse:
		return a != nil
	case FillInBlank:
		b, ok := a.(Blanks)
		if !ok || len(b) < len(q.Blanks) {
			return false
		}
		for i := range q.Blanks {
			if strings.TrimSpace(b[i]) == "" {
				return false
			}
		}
		return true
	}
	return false
}

// wireAnswer ist das JSON-Format einer Antwort
type wireAnswer struct {
	Label  *string  `json:"label,omitempty"`
	Blanks []string `json:"blanks,omitempty"`
	Value  *bool    `json:"value,omitempty"`
}

// DecodeAnswer liest eine Antwort aus {"label"}, {"blanks"} oder {"value"}
func DecodeAnswer(data []byte) (Answer, error) {
	var w wireAnswer
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	switch {
	case w.Label != nil:
		return Choice(*w.Label), nil
	case w.Blanks != nil:
		return Blanks(w.Blanks), nil
	case w.Value != nil:
		return Bool(*w.Value), nil
	}
	return nil, fmt.Errorf("antwort ohne label, blanks oder value")
}

// EncodeAnswer ist das Gegenstück zu DecodeAnswer, nil wird zu null
func EncodeAnswer(a Answer) any {
	switch v := a.(type) {
	case Choice:
		s := string(v)
		return wireAnswer{Label: &s}
	case Blanks:
		return wireAnswer{Blanks: []string(v)}
	case Bool:
		b := bool(v)
		return wireAnswer{Value: &b}
	}
	return nil
}
