package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"polnischlernen/internal/logging"
	"polnischlernen/internal/models"
	"polnischlernen/internal/quiz"
	"polnischlernen/internal/theory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []models.QuizAttempt
	phases   []string
}

func (f *fakeRecorder) RecordTopicAttempt(_ context.Context, userID, topic string, score, maxScore int) (*models.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := models.QuizAttempt{UserID: userID, Kind: models.AttemptTopic, Subject: topic, Score: score, MaxScore: maxScore}
	f.attempts = append(f.attempts, a)
	return &a, nil
}

func (f *fakeRecorder) PublishPhaseCompleted(_ context.Context, _, _, _, phase string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phases = append(f.phases, phase)
}

func (f *fakeRecorder) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func questions(timeLimit int) quiz.Set {
	return quiz.Set{
		quiz.MultipleChoice{
			Common:  quiz.Common{Prompt: "Was heißt 'danke'?", Difficulty: quiz.DifficultyEasy, TimeLimit: timeLimit},
			Options: [4]string{"proszę", "dziękuję", "przepraszam", "cześć"},
			Answer:  "B",
		},
		quiz.MultipleChoice{
			Common:  quiz.Common{Prompt: "Was heißt 'Haus'?", Difficulty: quiz.DifficultyMedium},
			Options: [4]string{"dom", "kot", "pies", "las"},
			Answer:  "A",
		},
		quiz.FillInBlank{
			Common:  quiz.Common{Prompt: "Ergänze", Difficulty: quiz.DifficultyHard},
			Context: "Mam [BLANK] lat.",
			Blanks:  []string{"dziesięć"},
		},
		quiz.TrueFalse{
			Common:    quiz.Common{Prompt: "Stimmt das?", Difficulty: quiz.DifficultyEasy},
			Statement: "Warszawa jest stolicą Polski.",
			Answer:    true,
		},
	}
}

func newTestPlayer() (*Player, *fakeRecorder) {
	rec := &fakeRecorder{}
	p := New(rec, logging.Discard(), Config{})
	p.timeUnit = 10 * time.Millisecond
	return p, rec
}

func TestQuizFlow_RecordsOnce(t *testing.T) {
	p, rec := newTestPlayer()
	defer p.Close()
	ctx := context.Background()

	v, err := p.StartQuiz("user-1", "Grundlagen", questions(0))
	require.NoError(t, err)
	assert.Nil(t, v.Deadline)

	steps := []quiz.Answer{quiz.Choice("B"), quiz.Choice("A"), quiz.Blanks{"dziesięć"}, quiz.Bool(false)}
	for i, a := range steps {
		_, feedback, ok, err := p.Answer(ctx, v.ID, i, a)
		require.NoError(t, err)
		require.True(t, ok)
		if i == 3 {
			assert.Equal(t, quiz.FeedbackIncorrect, feedback)
		}
		_, ok, err = p.Next(ctx, v.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	final, err := p.Quiz(v.ID)
	require.NoError(t, err)
	assert.True(t, final.Submitted)
	require.NotNil(t, final.Score)
	assert.Equal(t, 3, *final.Score)

	_, err = p.Submit(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.attemptCount())
	assert.Equal(t, "Grundlagen", rec.attempts[0].Subject)

	items, ok, err := p.Review(v.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, quiz.StatusIncorrect, items[3].Status)

	reset, err := p.Reset(v.ID)
	require.NoError(t, err)
	assert.False(t, reset.Submitted)
	_, err = p.Submit(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.attemptCount())
}

func TestQuiz_CountdownAutoSubmits(t *testing.T) {
	p, rec := newTestPlayer()
	defer p.Close()

	v, err := p.StartQuiz("user-1", "Zeit", questions(3))
	require.NoError(t, err)
	require.NotNil(t, v.Deadline)

	assert.Eventually(t, func() bool {
		view, err := p.Quiz(v.ID)
		return err == nil && view.Submitted
	}, time.Second, 5*time.Millisecond)

	view, err := p.Quiz(v.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Score)
	assert.Equal(t, 0, *view.Score)
	assert.Nil(t, view.Deadline)
	assert.Equal(t, 1, rec.attemptCount())
}

func TestQuiz_CountdownStopsWhenLeavingQuestion(t *testing.T) {
	p, rec := newTestPlayer()
	defer p.Close()
	ctx := context.Background()

	v, err := p.StartQuiz("user-1", "Zeit", questions(5))
	require.NoError(t, err)
	_, _, ok, err := p.Answer(ctx, v.ID, 0, quiz.Choice("B"))
	require.NoError(t, err)
	require.True(t, ok)
	next, ok, err := p.Next(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, next.Deadline, "frage 2 hat kein zeitlimit")

	time.Sleep(100 * time.Millisecond)
	view, err := p.Quiz(v.ID)
	require.NoError(t, err)
	assert.False(t, view.Submitted)
	assert.Equal(t, 0, rec.attemptCount())
}

func TestQuiz_NotFoundAndInvalid(t *testing.T) {
	p, _ := newTestPlayer()
	_, err := p.Quiz("fehlt")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = p.StartQuiz("user-1", "x", nil)
	assert.ErrorIs(t, err, quiz.ErrNoQuestions)
}

const markdown = `# Liczby

## 1. Введение
Tekst.

## 4. Упражнения
1. 2 + 2 | cztery

## 5. Визуальный материал
1. jeden | один

## 8. Грамматика

### Правило
Regel.

### Упражнения
1. 3 + 3 | sześć
`

func TestWizard_HandoffStartsQuizOnce(t *testing.T) {
	p, rec := newTestPlayer()
	defer p.Close()
	ctx := context.Background()

	v, err := p.StartWizard("user-1", "", markdown, questions(0))
	require.NoError(t, err)
	assert.Equal(t, "Liczby", v.Title)
	assert.Equal(t, theory.PhaseTheory, v.Phase)

	_, handedOff, err := p.CompletePhase(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, handedOff)

	_, res, ok, err := p.CheckExercises(ctx, v.ID, []string{" Cztery "})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, res.Passed)

	for _, want := range []theory.Phase{theory.PhaseFlashcards, theory.PhaseGrammar, theory.PhaseGrammarPractice} {
		view, _, err := p.CompletePhase(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, want, view.Phase)
	}

	_, ok, err = p.SkipExercises(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, ok)

	view, handedOff, err := p.CompletePhase(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, handedOff)
	require.NotEmpty(t, view.QuizSessionID)

	again, handedOff, err := p.CompletePhase(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, handedOff)
	assert.Equal(t, view.QuizSessionID, again.QuizSessionID)

	q, err := p.Quiz(view.QuizSessionID)
	require.NoError(t, err)
	assert.Equal(t, "Liczby", q.Topic)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"theory", "theory-practice", "flashcards", "grammar", "grammar-practice"}, rec.phases)
}

func TestWizard_GoToPhaseGate(t *testing.T) {
	p, _ := newTestPlayer()
	ctx := context.Background()

	v, err := p.StartWizard("user-1", "Zahlen", markdown, nil)
	require.NoError(t, err)

	_, ok, err := p.GoToPhase(ctx, v.ID, theory.PhaseGrammar)
	require.NoError(t, err)
	assert.False(t, ok)

	_, handedOff, err := p.CompletePhase(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, handedOff)

	back, ok, err := p.GoToPhase(ctx, v.ID, theory.PhaseTheory)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, theory.PhaseTheory, back.Phase)

	_, err = p.Wizard("fehlt")
	assert.ErrorIs(t, err, ErrWizardNotFound)
}

func TestWizard_RejectsInvalidHandoffQuiz(t *testing.T) {
	p, _ := newTestPlayer()
	_, err := p.StartWizard("user-1", "", markdown, questions(0)[:2])
	assert.ErrorIs(t, err, quiz.ErrQuestionCount)
}

func TestEndQuiz_StopsCountdown(t *testing.T) {
	p, rec := newTestPlayer()
	defer p.Close()

	v, err := p.StartQuiz("user-1", "Zeit", questions(3))
	require.NoError(t, err)
	require.NoError(t, p.EndQuiz(v.ID))

	_, err = p.Quiz(v.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, p.EndQuiz(v.ID), ErrSessionNotFound)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, rec.attemptCount(), "beendete Session wird nicht mehr abgegeben")
	quizzes, _ := p.Counts()
	assert.Equal(t, 0, quizzes)
}

func TestStartQuiz_ReplacesUsersPreviousSession(t *testing.T) {
	p, _ := newTestPlayer()
	defer p.Close()

	first, err := p.StartQuiz("user-1", "Zahlen", questions(0))
	require.NoError(t, err)
	other, err := p.StartQuiz("user-2", "Zahlen", questions(0))
	require.NoError(t, err)
	second, err := p.StartQuiz("user-1", "Farben", questions(0))
	require.NoError(t, err)

	_, err = p.Quiz(first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = p.Quiz(other.ID)
	assert.NoError(t, err)
	_, err = p.Quiz(second.ID)
	assert.NoError(t, err)

	quizzes, _ := p.Counts()
	assert.Equal(t, 2, quizzes)
}

func TestEndWizard(t *testing.T) {
	p, _ := newTestPlayer()
	defer p.Close()

	first, err := p.StartWizard("user-1", "", markdown, nil)
	require.NoError(t, err)
	second, err := p.StartWizard("user-1", "", markdown, nil)
	require.NoError(t, err)

	_, err = p.Wizard(first.ID)
	assert.ErrorIs(t, err, ErrWizardNotFound)

	require.NoError(t, p.EndWizard(second.ID))
	assert.ErrorIs(t, p.EndWizard(second.ID), ErrWizardNotFound)
	_, wizards := p.Counts()
	assert.Equal(t, 0, wizards)
}

func TestSweep_RemovesIdleEntries(t *testing.T) {
	p, _ := newTestPlayer()
	defer p.Close()
	p.idle = time.Hour

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	idleQuiz, err := p.StartQuiz("user-1", "Zahlen", questions(0))
	require.NoError(t, err)
	idleWizard, err := p.StartWizard("user-1", "", markdown, nil)
	require.NoError(t, err)

	clock = clock.Add(45 * time.Minute)
	active, err := p.StartQuiz("user-2", "Farben", questions(0))
	require.NoError(t, err)

	clock = clock.Add(30 * time.Minute)
	p.sweep(clock)

	_, err = p.Quiz(idleQuiz.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = p.Wizard(idleWizard.ID)
	assert.ErrorIs(t, err, ErrWizardNotFound)
	_, err = p.Quiz(active.ID)
	assert.NoError(t, err)

	// der Zugriff eben zählt als Aktivität
	clock = clock.Add(59 * time.Minute)
	p.sweep(clock)
	_, err = p.Quiz(active.ID)
	assert.NoError(t, err)
}

func TestJanitor_EvictsIdleSessions(t *testing.T) {
	p := New(&fakeRecorder{}, logging.Discard(), Config{IdleTimeout: 30 * time.Millisecond, SweepInterval: 10 * time.Millisecond})
	defer p.Close()

	_, err := p.StartQuiz("user-1", "Zahlen", questions(0))
	require.NoError(t, err)
	_, err = p.StartWizard("user-1", "", markdown, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		quizzes, wizards := p.Counts()
		return quizzes == 0 && wizards == 0
	}, time.Second, 10*time.Millisecond)
}
