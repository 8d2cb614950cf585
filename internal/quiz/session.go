package quiz

// Feedback ist das Sofort-Signal nach einer Auswahl
type Feedback string

const (
	FeedbackNone      Feedback = "none"
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
)

// State ist der Lebenszyklus einer Session
type State string

const (
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
)

// NoHintText wird angezeigt, wenn die Frage keinen Hinweis hat
const NoHintText = "Keine Hinweise verfügbar"

// Session hält den veränderlichen Zustand eines Quizdurchlaufs.
// Sie ist nicht threadsicher, der Aufrufer serialisiert Zugriffe.
type Session struct {
	questions []Question
	answers   []Answer
	current   int
	submitted bool
	score     int
	streak    int
	hintUsed  bool
}

// NewSession prüft die Fragen und startet einen Durchlauf bei Frage 0
func NewSession(questions []Question) (*Session, error) {
	set := Set(questions)
	if err := set.Validate(); err != nil {
		return nil, err
	}
	qs := make([]Question, len(questions))
	copy(qs, questions)

	s := &Session{questions: qs}
	s.Reset()
	return s, nil
}

// SelectAnswer setzt die Antwort der aktiven Frage. Nach der Abgabe, für eine andere
// als die aktive Frage oder bei unpassender Variante wird nichts verändert.
func (s *Session) SelectAnswer(index int, a Answer) (Feedback, bool) {
	if s.submitted || index != s.current || a == nil {
		return FeedbackNone, false
	}
	q := s.questions[index]
	if !fits(q, a) {
		return FeedbackNone, false
	}

	switch q := q.(type) {
	case FillInBlank:
		in := a.(Blanks)
		slot := make(Blanks, len(q.Blanks))
		copy(slot, in)
		s.answers[index] = slot
		return FeedbackNone, true
	default:
		s.answers[index] = a
		if IsCorrect(q, a) {
			s.streak++
			return FeedbackCorrect, true
		}
		s.streak = 0
		return FeedbackIncorrect, true
	}
}

// Advance geht zur nächsten Frage oder gibt auf der letzten ab.
// Unbeantwortete Fragen blockieren.
func (s *Session) Advance() bool {
	if s.submitted {
		return false
	}
	if !IsAnswered(s.questions[s.current], s.answers[s.current]) {
		return false
	}
	if s.current == len(s.questions)-1 {
		s.Submit()
		return true
	}
	s.current++
	s.hintUsed = false
	return true
}

// Retreat geht eine Frage zurück, auch nach der Abgabe
func (s *Session) Retreat() bool {
	if s.current == 0 {
		return false
	}
	s.current--
	s.hintUsed = false
	return true
}

// Submit wertet einmalig aus, weitere Aufrufe ändern nichts
func (s *Session) Submit() int {
	if s.submitted {
		return s.score
	}
	s.submitted = true
	s.score = Score(s.questions, s.answers)
	return s.score
}

// RequestHint markiert den Hinweis als benutzt und liefert den Text
func (s *Session) RequestHint() string {
	s.hintUsed = true
	if hint := s.questions[s.current].common().Hint; hint != "" {
		return hint
	}
	return NoHintText
}

// Reset stellt den Startzustand her, die Fragen bleiben erhalten
func (s *Session) Reset() {
	s.answers = make([]Answer, len(s.questions))
	for i, q := range s.questions {
		s.answers[i] = emptyAnswer(q)
	}
	s.current = 0
	s.submitted = false
	s.score = 0
	s.streak = 0
	s.hintUsed = false
}

func (s *Session) Questions() []Question {
	out := make([]Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Answers liefert eine Kopie aller Slots
func (s *Session) Answers() []Answer {
	out := make([]Answer, len(s.answers))
	for i, a := range s.answers {
		if b, ok := a.(Blanks); ok {
			a = append(Blanks(nil), b...)
		}
		out[i] = a
	}
	return out
}

func (s *Session) Current() int    { return s.current }
func (s *Session) Submitted() bool { return s.submitted }
func (s *Session) Streak() int     { return s.streak }
func (s *Session) HintUsed() bool  { return s.hintUsed }

func (s *Session) CurrentQuestion() Question {
	return s.questions[s.current]
}

// Score liefert das Ergebnis, ok ist false vor der Abgabe
func (s *Session) Score() (int, bool) {
	return s.score, s.submitted
}

func (s *Session) State() State {
	if s.submitted {
		return StateSubmitted
	}
	return StateInProgress
}

// Review ist erst nach der Abgabe verfügbar
func (s *Session) Review() ([]ItemReview, bool) {
	if !s.submitted {
		return nil, false
	}
	return Review(s.questions, s.answers), true
}

// Snapshot ist die lesbare Sicht auf die Session für Aufrufer
type Snapshot struct {
	State        State   `json:"state"`
	Questions    Set     `json:"questions"`
	Answers      []any   `json:"answers"`
	CurrentIndex int     `json:"currentIndex"`
	Answered     bool    `json:"currentAnswered"`
	Submitted    bool    `json:"submitted"`
	Score        *int    `json:"score"`
	MaxScore     int     `json:"maxScore"`
	Message      string  `json:"message,omitempty"`
	Streak       int     `json:"streak"`
	HintUsed     bool    `json:"hintUsed"`
	Progress     float64 `json:"progress"`
}

// Snapshot erstellt eine Kopie des aktuellen Zustands
func (s *Session) Snapshot() Snapshot {
	answers := make([]any, len(s.answers))
	for i, a := range s.answers {
		answers[i] = EncodeAnswer(a)
	}
	snap := Snapshot{
		State:        s.State(),
		Questions:    Set(s.Questions()),
		Answers:      answers,
		CurrentIndex: s.current,
		Answered:     IsAnswered(s.questions[s.current], s.answers[s.current]),
		Submitted:    s.submitted,
		MaxScore:     len(s.questions),
		Streak:       s.streak,
		HintUsed:     s.hintUsed,
		Progress:     float64(s.current) / float64(len(s.questions)) * 100,
	}
	if s.submitted {
		score := s.score
		snap.Score = &score
		snap.Message = ScoreMessage(score, len(s.questions))
		snap.Progress = 100
	}
	return snap
}
