package theory

// Phase ist ein Schritt des Theorie-Assistenten
type Phase string

const (
	PhaseTheory          Phase = "theory"
	PhaseTheoryPractice  Phase = "theory-practice"
	PhaseFlashcards      Phase = "flashcards"
	PhaseGrammar         Phase = "grammar"
	PhaseGrammarPractice Phase = "grammar-practice"
)

// Phases ist die feste Reihenfolge
var Phases = []Phase{PhaseTheory, PhaseTheoryPractice, PhaseFlashcards, PhaseGrammar, PhaseGrammarPractice}

// Index liefert die Position in Phases oder -1
func (p Phase) Index() int {
	for i, ph := range Phases {
		if ph == p {
			return i
		}
	}
	return -1
}

// IsPractice gilt für die beiden Übungsphasen
func (p Phase) IsPractice() bool {
	return p == PhaseTheoryPractice || p == PhaseGrammarPractice
}

// Hooks sind die Ereignisse einer einzelnen Wizard-Instanz
type Hooks struct {
	OnPhaseCompleted func(Phase)
	OnHandoff        func()
}

// Wizard führt linear durch die fünf Phasen und übergibt am Ende an das Quiz.
// Wie quiz.Session ist er nicht threadsicher.
type Wizard struct {
	doc       Document
	current   int
	completed []bool
	last      *CheckResult
	hooks     Hooks
}

func NewWizard(doc Document, hooks Hooks) *Wizard {
	return &Wizard{
		doc:       doc,
		completed: make([]bool, len(Phases)),
		hooks:     hooks,
	}
}

func (w *Wizard) Phase() Phase { return Phases[w.current] }

func (w *Wizard) Completed(p Phase) bool {
	i := p.Index()
	return i >= 0 && w.completed[i]
}

// ProgressPercent = (Index der aktuellen Phase + 1) / Anzahl Phasen × 100
func (w *Wizard) ProgressPercent() float64 {
	return float64(w.current+1) / float64(len(Phases)) * 100
}

// CanGoTo: aktuelle oder frühere Phase, bereits abgeschlossene Phase, oder
// alle Phasen davor sind abgeschlossen.
func (w *Wizard) CanGoTo(p Phase) bool {
	target := p.Index()
	if target < 0 {
		return false
	}
	if target <= w.current || w.completed[target] {
		return true
	}
	for i := 0; i < target; i++ {
		if !w.completed[i] {
			return false
		}
	}
	return true
}

func (w *Wizard) GoToPhase(p Phase) bool {
	if !w.CanGoTo(p) {
		return false
	}
	if idx := p.Index(); idx != w.current {
		w.current = idx
		w.last = nil
	}
	return true
}

// CompleteCurrentPhase markiert die Phase und geht weiter. In der letzten
// Phase wird stattdessen an das Quiz übergeben, Rückgabe ist dann true.
func (w *Wizard) CompleteCurrentPhase() bool {
	w.markCompleted()
	if w.current == len(Phases)-1 {
		if w.hooks.OnHandoff != nil {
			w.hooks.OnHandoff()
		}
		return true
	}
	w.current++
	w.last = nil
	return false
}

// Exercises liefert die Übungen der aktuellen Phase, außerhalb der Übungsphasen nil
func (w *Wizard) Exercises() []Exercise {
	switch w.Phase() {
	case PhaseTheoryPractice:
		return w.doc.Exercises
	case PhaseGrammarPractice:
		return w.doc.Grammar.Exercises
	}
	return nil
}

// CheckExercises prüft die Eingaben der aktuellen Übungsphase. Sind alle
// richtig, gilt die Phase als abgeschlossen, ohne weiterzugehen.
func (w *Wizard) CheckExercises(inputs []string) (CheckResult, bool) {
	if !w.Phase().IsPractice() {
		return CheckResult{}, false
	}
	res := CheckExercises(w.Exercises(), inputs)
	w.last = &res
	if res.Passed {
		w.markCompleted()
	}
	return res, true
}

// SkipExercises schließt die aktuelle Übungsphase ohne Prüfung ab
func (w *Wizard) SkipExercises() bool {
	if !w.Phase().IsPractice() {
		return false
	}
	w.markCompleted()
	return true
}

func (w *Wizard) markCompleted() {
	if w.completed[w.current] {
		return
	}
	w.completed[w.current] = true
	if w.hooks.OnPhaseCompleted != nil {
		w.hooks.OnPhaseCompleted(w.Phase())
	}
}

// Content ist der Inhalt, den die aktuelle Phase anzeigt
type Content struct {
	Text       string      `json:"text,omitempty"`
	Exercises  []Exercise  `json:"exercises,omitempty"`
	Flashcards []Flashcard `json:"flashcards,omitempty"`
}

func (w *Wizard) Content() Content {
	switch w.Phase() {
	case PhaseTheory:
		return Content{Text: w.doc.TheoryText()}
	case PhaseFlashcards:
		return Content{Flashcards: w.doc.Flashcards}
	case PhaseGrammar:
		return Content{Text: w.doc.Grammar.Text}
	default:
		return Content{Exercises: w.Exercises()}
	}
}

// Snapshot ist die lesbare Sicht auf den Wizard
type Snapshot struct {
	Title     string         `json:"title"`
	Phase     Phase          `json:"phase"`
	Completed map[Phase]bool `json:"completed"`
	Reachable map[Phase]bool `json:"reachable"`
	Progress  float64        `json:"progressPercent"`
	Content   Content        `json:"content"`
	LastCheck *CheckResult   `json:"lastCheck,omitempty"`
}

func (w *Wizard) Snapshot() Snapshot {
	snap := Snapshot{
		Title:     w.doc.Title,
		Phase:     w.Phase(),
		Completed: make(map[Phase]bool, len(Phases)),
		Reachable: make(map[Phase]bool, len(Phases)),
		Progress:  w.ProgressPercent(),
		Content:   w.Content(),
	}
	for i, p := range Phases {
		snap.Completed[p] = w.completed[i]
		snap.Reachable[p] = w.CanGoTo(p)
	}
	if w.last != nil {
		res := *w.last
		snap.LastCheck = &res
	}
	return snap
}
