package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// QuestionCount ist die feste Anzahl an Fragen pro Quiz
const QuestionCount = 4

// BlankMarker markiert eine Lücke im Kontext einer Lückentext-Frage
const BlankMarker = "[BLANK]"

var (
	ErrNoQuestions     = errors.New("quiz enthält keine fragen")
	ErrQuestionCount   = fmt.Errorf("quiz muss genau %d fragen enthalten", QuestionCount)
	ErrInvalidQuestion = errors.New("ungültige frage")
)

// Type unterscheidet die Fragevarianten
type Type string

const (
	TypeMultipleChoice Type = "multipleChoice"
	TypeFillInBlank    Type = "fillInBlank"
	TypeTrueFalse      Type = "trueFalse"
)

// Difficulty ist der Schwierigkeitsgrad einer Frage
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Labels sind die Antwortbuchstaben einer Multiple-Choice-Frage
var Labels = [4]string{"A", "B", "C", "D"}

// Common enthält die Felder, die alle Varianten teilen
type Common struct {
	Prompt     string     `json:"question"`
	Difficulty Difficulty `json:"difficulty"`
	Hint       string     `json:"hint,omitempty"`
	ImageURL   *string    `json:"imageUrl"`
	TimeLimit  int        `json:"timeLimit,omitempty"` // Sekunden
}

func (c Common) common() Common { return c }

// Question ist eine der drei Varianten MultipleChoice, FillInBlank oder TrueFalse.
// Konsumenten müssen alle drei per type switch behandeln.
type Question interface {
	Type() Type
	Validate() error
	common() Common
}

// MultipleChoice hat genau vier Optionen, die richtige wird per Buchstabe A-D angegeben
type MultipleChoice struct {
	Common
	Options [4]string `json:"options"`
	Answer  string    `json:"answer"`
}

// FillInBlank enthält einen Kontext mit BlankMarker und die erwarteten Werte pro Lücke
type FillInBlank struct {
	Common
	Context string   `json:"context"`
	Blanks  []string `json:"blanks"`
}

// TrueFalse ist eine Aussage, die wahr oder falsch ist
type TrueFalse struct {
	Common
	Statement string `json:"statement"`
	Answer    bool   `json:"answer"`
}

func (MultipleChoice) Type() Type { return TypeMultipleChoice }
func (FillInBlank) Type() Type    { return TypeFillInBlank }
func (TrueFalse) Type() Type      { return TypeTrueFalse }

// Info gibt die gemeinsamen Felder einer Frage zurück
func Info(q Question) Common {
	return q.common()
}

// WithImage liefert eine Kopie der Frage mit gesetzter Bild-URL (nil entfernt das Bild)
func WithImage(q Question, url *string) Question {
	switch v := q.(type) {
	case MultipleChoice:
		v.ImageURL = url
		return v
	case FillInBlank:
		v.ImageURL = url
		return v
	case TrueFalse:
		v.ImageURL = url
		return v
	}
	return q
}

func (c Common) validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return fmt.Errorf("%w: fragetext fehlt", ErrInvalidQuestion)
	}
	switch c.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("%w: unbekannte schwierigkeit %q", ErrInvalidQuestion, c.Difficulty)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("%w: negatives zeitlimit", ErrInvalidQuestion)
	}
	return nil
}

func (q MultipleChoice) Validate() error {
	if err := q.Common.validate(); err != nil {
		return err
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %s ist leer", ErrInvalidQuestion, Labels[i])
		}
	}
	if LabelIndex(q.Answer) < 0 {
		return fmt.Errorf("%w: antwort %q ist kein buchstabe A-D", ErrInvalidQuestion, q.Answer)
	}
	return nil
}

func (q FillInBlank) Validate() error {
	if err := q.Common.validate(); err != nil {
		return err
	}
	if len(q.Blanks) == 0 {
		return fmt.Errorf("%w: keine lücken", ErrInvalidQuestion)
	}
	if n := q.MarkerCount(); n != len(q.Blanks) {
		return fmt.Errorf("%w: %d lücken im kontext, aber %d erwartete werte", ErrInvalidQuestion, n, len(q.Blanks))
	}
	for i, b := range q.Blanks {
		if Normalize(b) == "" {
			return fmt.Errorf("%w: erwarteter wert für lücke %d ist leer", ErrInvalidQuestion, i+1)
		}
	}
	return nil
}

func (q TrueFalse) Validate() error {
	if err := q.Common.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(q.Statement) == "" {
		return fmt.Errorf("%w: aussage fehlt", ErrInvalidQuestion)
	}
	return nil
}

// MarkerCount zählt die Lücken im Kontext
func (q FillInBlank) MarkerCount() int {
	return strings.Count(q.Context, BlankMarker)
}

// Segments teilt den Kontext an den Lücken, len(Segments) == MarkerCount()+1
func (q FillInBlank) Segments() []string {
	return strings.Split(q.Context, BlankMarker)
}

// LabelIndex liefert die Position eines Antwortbuchstabens oder -1
func LabelIndex(label string) int {
	for i, l := range Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// wireQuestion ist das JSON-Format aller Varianten
type wireQuestion struct {
	Type       Type            `json:"type"`
	Question   string          `json:"question"`
	Difficulty Difficulty      `json:"difficulty,omitempty"`
	Hint       string          `json:"hint,omitempty"`
	ImageURL   *string         `json:"imageUrl"`
	TimeLimit  int             `json:"timeLimit,omitempty"`
	Options    []string        `json:"options,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Context    string          `json:"context,omitempty"`
	Blanks     []string        `json:"blanks,omitempty"`
	Statement  string          `json:"statement,omitempty"`
}

// Decode liest eine einzelne Frage aus JSON. Fehlt der Typ, wird Multiple-Choice angenommen.
func Decode(data []byte) (Question, error) {
	var w wireQuestion
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	common := Common{
		Prompt:     w.Question,
		Difficulty: w.Difficulty,
		Hint:       w.Hint,
		ImageURL:   w.ImageURL,
		TimeLimit:  w.TimeLimit,
	}
	if common.Difficulty == "" {
		common.Difficulty = DifficultyMedium
	}

	switch w.Type {
	case TypeMultipleChoice, "":
		if len(w.Options) != len(Labels) {
			return nil, fmt.Errorf("%w: multiple-choice braucht genau 4 optionen, erhalten %d", ErrInvalidQuestion, len(w.Options))
		}
		q := MultipleChoice{Common: common}
		copy(q.Options[:], w.Options)
		if err := json.Unmarshal(w.Answer, &q.Answer); err != nil {
			return nil, fmt.Errorf("%w: antwort muss ein buchstabe sein", ErrInvalidQuestion)
		}
		return q, nil
	case TypeFillInBlank:
		return FillInBlank{Common: common, Context: w.Context, Blanks: w.Blanks}, nil
	case TypeTrueFalse:
		q := TrueFalse{Common: common, Statement: w.Statement}
		if err := json.Unmarshal(w.Answer, &q.Answer); err != nil {
			return nil, fmt.Errorf("%w: antwort muss true oder false sein", ErrInvalidQuestion)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("%w: unbekannter typ %q", ErrInvalidQuestion, w.Type)
	}
}

// Encode schreibt eine Frage im Wire-Format
func Encode(q Question) ([]byte, error) {
	c := q.common()
	w := wireQuestion{
		Type:       q.Type(),
		Question:   c.Prompt,
		Difficulty: c.Difficulty,
		Hint:       c.Hint,
		ImageURL:   c.ImageURL,
		TimeLimit:  c.TimeLimit,
	}
	var answer any
	switch v := q.(type) {
	case MultipleChoice:
		w.Options = v.Options[:]
		answer = v.Answer
	case FillInBlank:
		w.Context = v.Context
		w.Blanks = v.Blanks
	case TrueFalse:
		w.Statement = v.Statement
		answer = v.Answer
	}
	if answer != nil {
		raw, err := json.Marshal(answer)
		if err != nil {
			return nil, err
		}
		w.Answer = raw
	}
	return json.Marshal(w)
}

// Set ist eine geordnete Fragenliste mit JSON-Unterstützung
type Set []Question

func (s Set) MarshalJSON() ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(s))
	for _, q := range s {
		raw, err := Encode(q)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return json.Marshal(raws)
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Set, 0, len(raws))
	for i, raw := range raws {
		q, err := Decode(raw)
		if err != nil {
			return fmt.Errorf("frage %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	*s = out
	return nil
}

// Validate prüft Länge und Inhalt eines kompletten Quiz
func (s Set) Validate() error {
	if len(s) == 0 {
		return ErrNoQuestions
	}
	if len(s) != QuestionCount {
		return fmt.Errorf("%w: erhalten %d", ErrQuestionCount, len(s))
	}
	for i, q := range s {
		if q == nil {
			return fmt.Errorf("frage %d: %w", i+1, ErrInvalidQuestion)
		}
		if err := q.Validate(); err != nil {
			return fmt.Errorf("frage %d: %w", i+1, err)
		}
	}
	return nil
}
