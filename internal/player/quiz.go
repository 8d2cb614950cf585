package player

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"polnischlernen/internal/quiz"
)

type quizEntry struct {
	mu       sync.Mutex
	id       string
	userID   string
	topic    string
	session  *quiz.Session
	timer    *time.Timer
	gen      int
	deadline time.Time
	recorded bool
	touched  atomic.Int64
}

// QuizView ist die Antwort der Quiz-Endpunkte
type QuizView struct {
	ID    string `json:"id"`
	Topic string `json:"topic,omitempty"`
	quiz.Snapshot
	Deadline *time.Time `json:"deadline,omitempty"`
}

func (e *quizEntry) view() QuizView {
	v := QuizView{ID: e.id, Topic: e.topic, Snapshot: e.session.Snapshot()}
	if e.timer != nil && !e.session.Submitted() {
		d := e.deadline
		v.Deadline = &d
	}
	return v
}

func (e *quizEntry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

// armTimer startet den Countdown der aktiven Frage neu
func (p *Player) armTimer(e *quizEntry) {
	e.stopTimer()
	if e.session.Submitted() {
		return
	}
	limit := quiz.Info(e.session.CurrentQuestion()).TimeLimit
	if limit <= 0 {
		return
	}

	gen := e.gen
	d := time.Duration(limit) * p.timeUnit
	e.deadline = time.Now().Add(d)
	e.timer = time.AfterFunc(d, func() { p.expire(e, gen) })
}

func (p *Player) expire(e *quizEntry, gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || e.session.Submitted() {
		return
	}
	e.timer = nil
	score := e.session.Submit()
	p.logger.Info("⏰ Zeit abgelaufen, Quiz automatisch abgegeben", "session_id", e.id, "score", score)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.record(ctx, e)
}

// record speichert das Ergebnis genau einmal pro Durchlauf
func (p *Player) record(ctx context.Context, e *quizEntry) {
	if e.recorded || !e.session.Submitted() {
		return
	}
	e.recorded = true
	if p.recorder == nil {
		return
	}
	score, _ := e.session.Score()
	if _, err := p.recorder.RecordTopicAttempt(ctx, e.userID, e.topic, score, len(e.session.Questions())); err != nil {
		p.logger.Warn("Quizversuch nicht gespeichert", "session_id", e.id, "error", err)
	}
}

// afterTransition hält Countdown und Speicherung nach jeder Zustandsänderung konsistent
func (p *Player) afterTransition(ctx context.Context, e *quizEntry, prevIndex int, wasSubmitted bool) {
	if e.session.Submitted() {
		if !wasSubmitted {
			e.stopTimer()
			p.record(ctx, e)
		}
		return
	}
	if e.session.Current() != prevIndex || wasSubmitted {
		p.armTimer(e)
	}
}

func (p *Player) lookupQuiz(id string) (*quizEntry, error) {
	p.mu.RLock()
	e, ok := p.quizzes[id]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	p.touch(&e.touched)
	return e, nil
}

// StartQuiz legt eine neue Session an und startet ggf. den Countdown der ersten Frage
func (p *Player) StartQuiz(userID, topic string, questions quiz.Set) (QuizView, error) {
	session, err := quiz.NewSession(questions)
	if err != nil {
		return QuizView{}, err
	}

	e := &quizEntry{id: newID(), userID: userID, topic: topic, session: session}
	p.touch(&e.touched)
	e.mu.Lock()
	p.armTimer(e)
	view := e.view()
	e.mu.Unlock()

	// ein neues Quiz ersetzt die bisherigen Sessions des Nutzers
	p.mu.Lock()
	var replaced []*quizEntry
	for id, old := range p.quizzes {
		if old.userID == userID {
			delete(p.quizzes, id)
			replaced = append(replaced, old)
		}
	}
	p.quizzes[e.id] = e
	p.mu.Unlock()
	for _, old := range replaced {
		p.discardQuiz(old)
	}

	p.logger.Info("🎯 Quiz gestartet", "session_id", e.id, "topic", topic, "user_id", userID, "replaced", len(replaced))
	return view, nil
}

func (p *Player) discardQuiz(e *quizEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimer()
}

// EndQuiz entfernt eine Session und stoppt ihren Countdown
func (p *Player) EndQuiz(id string) error {
	p.mu.Lock()
	e, ok := p.quizzes[id]
	delete(p.quizzes, id)
	p.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	p.discardQuiz(e)
	p.logger.Info("🛑 Quiz beendet", "session_id", id)
	return nil
}

// withQuiz führt fn unter dem Lock der Session aus
func (p *Player) withQuiz(ctx context.Context, id string, fn func(s *quiz.Session) bool) (QuizView, bool, error) {
	e, err := p.lookupQuiz(id)
	if err != nil {
		return QuizView{}, false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, wasSubmitted := e.session.Current(), e.session.Submitted()
	ok := fn(e.session)
	p.afterTransition(ctx, e, prev, wasSubmitted)
	return e.view(), ok, nil
}

func (p *Player) Quiz(id string) (QuizView, error) {
	v, _, err := p.withQuiz(context.Background(), id, func(*quiz.Session) bool { return true })
	return v, err
}

// Answer setzt die Antwort der aktiven Frage
func (p *Player) Answer(ctx context.Context, id string, index int, a quiz.Answer) (QuizView, quiz.Feedback, bool, error) {
	feedback := quiz.FeedbackNone
	v, ok, err := p.withQuiz(ctx, id, func(s *quiz.Session) bool {
		var accepted bool
		feedback, accepted = s.SelectAnswer(index, a)
		return accepted
	})
	return v, feedback, ok, err
}

func (p *Player) Next(ctx context.Context, id string) (QuizView, bool, error) {
	return p.withQuiz(ctx, id, (*quiz.Session).Advance)
}

func (p *Player) Back(ctx context.Context, id string) (QuizView, bool, error) {
	return p.withQuiz(ctx, id, (*quiz.Session).Retreat)
}

// Submit gibt das Quiz ab, wiederholte Aufrufe ändern nichts
func (p *Player) Submit(ctx context.Context, id string) (QuizView, error) {
	v, _, err := p.withQuiz(ctx, id, func(s *quiz.Session) bool {
		s.Submit()
		return true
	})
	return v, err
}

func (p *Player) Hint(ctx context.Context, id string) (string, QuizView, error) {
	var hint string
	v, _, err := p.withQuiz(ctx, id, func(s *quiz.Session) bool {
		hint = s.RequestHint()
		return true
	})
	return hint, v, err
}

// Reset startet einen neuen Durchlauf mit denselben Fragen
func (p *Player) Reset(id string) (QuizView, error) {
	e, err := p.lookupQuiz(id)
	if err != nil {
		return QuizView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.Reset()
	e.recorded = false
	p.armTimer(e)
	return e.view(), nil
}

// Review liefert die Auswertung, erst nach der Abgabe verfügbar
func (p *Player) Review(id string) ([]quiz.ItemReview, bool, error) {
	e, err := p.lookupQuiz(id)
	if err != nil {
		return nil, false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	items, ok := e.session.Review()
	return items, ok, nil
}
