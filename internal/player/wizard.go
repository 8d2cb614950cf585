package player

import (
	"context"
	"sync"
	"sync/atomic"

	"polnischlernen/internal/quiz"
	"polnischlernen/internal/theory"
)

type wizardEntry struct {
	mu      sync.Mutex
	id      string
	userID  string
	topic   string
	wizard  *theory.Wizard
	handoff quiz.Set
	quizID  string
	touched atomic.Int64
	// ctx der laufenden Anfrage, damit Hooks darauf zugreifen können
	ctx context.Context
}

// WizardView ist die Antwort der Assistenten-Endpunkte
type WizardView struct {
	ID string `json:"id"`
	theory.Snapshot
	QuizSessionID string `json:"quizSessionId,omitempty"`
}

func (e *wizardEntry) view() WizardView {
	return WizardView{ID: e.id, Snapshot: e.wizard.Snapshot(), QuizSessionID: e.quizID}
}

// StartWizard parst das Markdown und startet in der Theoriephase.
// handoff ist optional; ist es gesetzt, wird es vorab geprüft und am Ende als Quiz gestartet.
func (p *Player) StartWizard(userID, topic, markdown string, handoff quiz.Set) (WizardView, error) {
	if handoff != nil {
		if err := handoff.Validate(); err != nil {
			return WizardView{}, err
		}
	}

	doc := theory.Parse(markdown)
	if topic == "" {
		topic = doc.Title
	}
	e := &wizardEntry{
		id:      newID(),
		userID:  userID,
		topic:   topic,
		handoff: handoff,
		ctx:     context.Background(),
	}
	e.wizard = theory.NewWizard(doc, theory.Hooks{
		OnPhaseCompleted: func(ph theory.Phase) {
			if p.recorder != nil {
				p.recorder.PublishPhaseCompleted(e.ctx, e.userID, e.id, doc.Title, string(ph))
			}
		},
		OnHandoff: func() { p.handoff(e) },
	})

	p.touch(&e.touched)

	// wie beim Quiz gilt pro Nutzer nur der zuletzt gestartete Assistent
	p.mu.Lock()
	for id, old := range p.wizards {
		if old.userID == userID {
			delete(p.wizards, id)
		}
	}
	p.wizards[e.id] = e
	p.mu.Unlock()

	p.logger.Info("📖 Theorie-Assistent gestartet", "wizard_id", e.id, "title", doc.Title, "exercises", len(doc.Exercises))
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view(), nil
}

// handoff startet das Anschlussquiz höchstens einmal
func (p *Player) handoff(e *wizardEntry) {
	if e.quizID != "" || e.handoff == nil {
		return
	}
	v, err := p.StartQuiz(e.userID, e.topic, e.handoff)
	if err != nil {
		p.logger.Warn("Übergabe an das Quiz fehlgeschlagen", "wizard_id", e.id, "error", err)
		return
	}
	e.quizID = v.ID
	p.logger.Info("➡️ Übergabe an das Quiz", "wizard_id", e.id, "session_id", v.ID)
}

func (p *Player) lookupWizard(id string) (*wizardEntry, error) {
	p.mu.RLock()
	e, ok := p.wizards[id]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrWizardNotFound
	}
	p.touch(&e.touched)
	return e, nil
}

// EndWizard entfernt einen Assistenten, ein bereits gestartetes Anschlussquiz läuft weiter
func (p *Player) EndWizard(id string) error {
	p.mu.Lock()
	_, ok := p.wizards[id]
	delete(p.wizards, id)
	p.mu.Unlock()
	if !ok {
		return ErrWizardNotFound
	}
	p.logger.Info("🛑 Theorie-Assistent beendet", "wizard_id", id)
	return nil
}

func (p *Player) withWizard(ctx context.Context, id string, fn func(w *theory.Wizard)) (WizardView, error) {
	e, err := p.lookupWizard(id)
	if err != nil {
		return WizardView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx = ctx
	defer func() { e.ctx = context.Background() }()
	fn(e.wizard)
	return e.view(), nil
}

func (p *Player) Wizard(id string) (WizardView, error) {
	return p.withWizard(context.Background(), id, func(*theory.Wizard) {})
}

func (p *Player) GoToPhase(ctx context.Context, id string, phase theory.Phase) (WizardView, bool, error) {
	var ok bool
	v, err := p.withWizard(ctx, id, func(w *theory.Wizard) { ok = w.GoToPhase(phase) })
	return v, ok, err
}

// CompletePhase schließt die aktuelle Phase ab; handedOff ist in der letzten Phase true
func (p *Player) CompletePhase(ctx context.Context, id string) (WizardView, bool, error) {
	var handedOff bool
	v, err := p.withWizard(ctx, id, func(w *theory.Wizard) { handedOff = w.CompleteCurrentPhase() })
	return v, handedOff, err
}

func (p *Player) CheckExercises(ctx context.Context, id string, inputs []string) (WizardView, theory.CheckResult, bool, error) {
	var (
		res theory.CheckResult
		ok  bool
	)
	v, err := p.withWizard(ctx, id, func(w *theory.Wizard) { res, ok = w.CheckExercises(inputs) })
	return v, res, ok, err
}

func (p *Player) SkipExercises(ctx context.Context, id string) (WizardView, bool, error) {
	var ok bool
	v, err := p.withWizard(ctx, id, func(w *theory.Wizard) { ok = w.SkipExercises() })
	return v, ok, err
}
