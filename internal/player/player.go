package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"polnischlernen/internal/logging"
	"polnischlernen/internal/models"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("quiz-session nicht gefunden")
	ErrWizardNotFound  = errors.New("theorie-assistent nicht gefunden")
)

// Recorder nimmt abgeschlossene Quizze und Theoriephasen entgegen
type Recorder interface {
	RecordTopicAttempt(ctx context.Context, userID, topic string, score, maxScore int) (*models.QuizAttempt, error)
	PublishPhaseCompleted(ctx context.Context, userID, wizardID, title, phase string)
}

// Config steuert die Aufräumlogik des Players
type Config struct {
	// IdleTimeout entfernt Sessions und Assistenten ohne Zugriff, 0 schaltet das ab
	IdleTimeout time.Duration

	// SweepInterval ist der Abstand der Aufräumläufe, Standard IdleTimeout/2
	SweepInterval time.Duration
}

// Player verwaltet die laufenden Quiz-Sessions und Theorie-Assistenten.
// Jede Instanz hat ein eigenes Mutex, Zugriffe werden pro Instanz serialisiert.
// Ein Instanz-Lock darf p.mu nehmen, umgekehrt nie.
type Player struct {
	mu      sync.RWMutex
	quizzes map[string]*quizEntry
	wizards map[string]*wizardEntry

	recorder Recorder
	logger   logging.Logger

	// timeUnit ist die Einheit von timeLimit, Tests verkürzen sie
	timeUnit time.Duration
	now      func() time.Time
	idle     time.Duration

	stop      chan struct{}
	closeOnce sync.Once
}

func New(recorder Recorder, logger logging.Logger, cfg Config) *Player {
	p := &Player{
		quizzes:  make(map[string]*quizEntry),
		wizards:  make(map[string]*wizardEntry),
		recorder: recorder,
		logger:   logger.With("component", "player"),
		timeUnit: time.Second,
		now:      time.Now,
		idle:     cfg.IdleTimeout,
		stop:     make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 {
		interval := cfg.SweepInterval
		if interval <= 0 {
			interval = cfg.IdleTimeout / 2
		}
		go p.janitor(interval)
	}
	return p
}

// Close beendet das Aufräumen und stoppt alle Countdowns
func (p *Player) Close() {
	p.closeOnce.Do(func() { close(p.stop) })

	p.mu.RLock()
	entries := make([]*quizEntry, 0, len(p.quizzes))
	for _, e := range p.quizzes {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		e.stopTimer()
		e.mu.Unlock()
	}
}

// Counts liefert die Zahl der laufenden Quiz-Sessions und Assistenten
func (p *Player) Counts() (quizzes, wizards int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.quizzes), len(p.wizards)
}

func (p *Player) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.sweep(p.now())
		case <-p.stop:
			return
		}
	}
}

// sweep entfernt alle Einträge, die länger als idle nicht benutzt wurden
func (p *Player) sweep(now time.Time) {
	if p.idle <= 0 {
		return
	}
	cutoff := now.Add(-p.idle).UnixNano()

	p.mu.Lock()
	var quizzes []*quizEntry
	for id, e := range p.quizzes {
		if e.touched.Load() < cutoff {
			delete(p.quizzes, id)
			quizzes = append(quizzes, e)
		}
	}
	wizards := 0
	for id, e := range p.wizards {
		if e.touched.Load() < cutoff {
			delete(p.wizards, id)
			wizards++
		}
	}
	p.mu.Unlock()

	for _, e := range quizzes {
		e.mu.Lock()
		e.stopTimer()
		e.mu.Unlock()
	}
	if len(quizzes) > 0 || wizards > 0 {
		p.logger.Info("🧹 Inaktive Sessions entfernt", "quizzes", len(quizzes), "wizards", wizards)
	}
}

func (p *Player) touch(t *atomic.Int64) {
	t.Store(p.now().UnixNano())
}

func newID() string {
	return uuid.New().String()
}
