package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkdown = `# Liczby

## 1. Введение
Давайте разберем числа.

## 2. Основной текст
**jeden** | *один*

## 3. Вопросы для обсуждения
- Сколько вам лет?

## 4. Упражнения
1. Translate to Polish: десять | dziesięć
2. Complete the sentence: Mam ... lat. | dwadzieścia
- Arrange words: (dom, mój, jest, to) | To jest mój dom

## 5. Визуальный материал
1. **jeden** | *один*
2. dwa | два
| Polski | Русский |
|---|---|

## 6. Загадки
Zagadka

## 8. Грамматика

### Правило
Liczebniki odmieniają się.

### Исключения
Brak.

### Упражнения
1. 2 + 2 | cztery
2. 3 + 3 | sześć
`

func TestParse_Sections(t *testing.T) {
	doc := Parse(sampleMarkdown)

	assert.Equal(t, "Liczby", doc.Title)
	assert.Equal(t, "Давайте разберем числа.", doc.Intro)
	assert.Contains(t, doc.TheoryText(), "Сколько вам лет?")
	assert.Contains(t, doc.TheoryText(), "Zagadka")
	assert.Empty(t, doc.Listening)

	require.Len(t, doc.Exercises, 3)
	assert.Equal(t, Exercise{Question: "Translate to Polish: десять", Answer: "dziesięć"}, doc.Exercises[0])
	assert.Equal(t, "To jest mój dom", doc.Exercises[2].Answer)

	require.Len(t, doc.Flashcards, 2)
	assert.Equal(t, Flashcard{Word: "jeden", Translation: "один"}, doc.Flashcards[0])

	assert.Equal(t, "Liczebniki odmieniają się.", doc.Grammar.Rule)
	assert.Contains(t, doc.Grammar.Text, "Brak.")
	assert.NotContains(t, doc.Grammar.Text, "cztery")
	require.Len(t, doc.Grammar.Exercises, 2)
	assert.Equal(t, "sześć", doc.Grammar.Exercises[1].Answer)
}

func TestParse_MissingHeadingsDegrade(t *testing.T) {
	doc := Parse("Nur Text ohne Überschriften")
	assert.Empty(t, doc.Exercises)
	assert.Empty(t, doc.Flashcards)
	assert.Empty(t, doc.Grammar.Text)

	w := NewWizard(doc, Hooks{})
	assert.Empty(t, w.Content().Text)
}

func TestCheckExercises(t *testing.T) {
	exs := []Exercise{{Question: "a", Answer: "Dziesięć"}, {Question: "b", Answer: "To jest mój dom"}}

	res := CheckExercises(exs, []string{"dziesięć", " to  jest MÓJ dom"})
	assert.True(t, res.Passed)
	assert.Equal(t, 2, res.Correct)

	res = CheckExercises(exs, []string{"dziesięć", "to jest dom"})
	assert.False(t, res.Passed)
	assert.Equal(t, []bool{true, false}, res.Results)

	assert.False(t, CheckExercises(nil, nil).Passed)
}

func TestWizard_GrammarGate(t *testing.T) {
	w := NewWizard(Parse(sampleMarkdown), Hooks{})

	assert.False(t, w.GoToPhase(PhaseGrammar))
	assert.Equal(t, PhaseTheory, w.Phase())

	assert.False(t, w.CompleteCurrentPhase())
	assert.Equal(t, PhaseTheoryPractice, w.Phase())
	assert.False(t, w.GoToPhase(PhaseGrammar), "übungen und karteikarten fehlen noch")

	require.True(t, w.SkipExercises())
	assert.Equal(t, PhaseTheoryPractice, w.Phase(), "überspringen bleibt in der phase")
	assert.False(t, w.GoToPhase(PhaseGrammar), "karteikarten fehlen noch")

	require.True(t, w.GoToPhase(PhaseFlashcards))
	w.CompleteCurrentPhase()
	assert.Equal(t, PhaseGrammar, w.Phase())

	require.True(t, w.GoToPhase(PhaseTheory))
	assert.True(t, w.GoToPhase(PhaseGrammar), "alle vorherigen phasen abgeschlossen")
}

func TestWizard_CurrentPhaseReachable(t *testing.T) {
	w := NewWizard(Parse(sampleMarkdown), Hooks{})
	w.CompleteCurrentPhase()
	w.CompleteCurrentPhase()
	w.CompleteCurrentPhase()
	require.Equal(t, PhaseGrammar, w.Phase())
	assert.True(t, w.GoToPhase(PhaseGrammar))
	assert.True(t, w.GoToPhase(PhaseTheoryPractice))
	assert.False(t, w.GoToPhase(PhaseGrammarPractice))
	assert.False(t, w.GoToPhase(Phase("unknown")))
}

func TestWizard_ExercisesCompletePhase(t *testing.T) {
	var completed []Phase
	w := NewWizard(Parse(sampleMarkdown), Hooks{
		OnPhaseCompleted: func(p Phase) { completed = append(completed, p) },
	})

	_, ok := w.CheckExercises([]string{"x"})
	assert.False(t, ok, "keine übungsphase")

	w.CompleteCurrentPhase()
	res, ok := w.CheckExercises([]string{"dziesięć", "dwadzieścia", "to jest"})
	require.True(t, ok)
	assert.False(t, res.Passed)
	assert.False(t, w.Completed(PhaseTheoryPractice))

	res, _ = w.CheckExercises([]string{"dziesięć", "Dwadzieścia", "to jest mój dom"})
	assert.True(t, res.Passed)
	assert.True(t, w.Completed(PhaseTheoryPractice))
	assert.Equal(t, PhaseTheoryPractice, w.Phase())
	assert.Equal(t, []Phase{PhaseTheory, PhaseTheoryPractice}, completed)

	require.NotNil(t, w.Snapshot().LastCheck)
}

func TestWizard_EmptyPracticeNeedsSkip(t *testing.T) {
	w := NewWizard(Parse("## 1. Введение\nText"), Hooks{})
	w.CompleteCurrentPhase()
	res, ok := w.CheckExercises(nil)
	require.True(t, ok)
	assert.False(t, res.Passed)
	assert.False(t, w.Completed(PhaseTheoryPractice))
	assert.True(t, w.SkipExercises())
	assert.True(t, w.Completed(PhaseTheoryPractice))
}

func TestWizard_ProgressAndHandoff(t *testing.T) {
	handoffs := 0
	w := NewWizard(Parse(sampleMarkdown), Hooks{OnHandoff: func() { handoffs++ }})
	assert.InDelta(t, 20.0, w.ProgressPercent(), 0.001)

	for i := 0; i < 4; i++ {
		assert.False(t, w.CompleteCurrentPhase())
	}
	assert.Equal(t, PhaseGrammarPractice, w.Phase())
	assert.InDelta(t, 100.0, w.ProgressPercent(), 0.001)

	assert.True(t, w.CompleteCurrentPhase())
	assert.Equal(t, 1, handoffs)
	assert.Equal(t, PhaseGrammarPractice, w.Phase())

	snap := w.Snapshot()
	for _, p := range Phases {
		assert.True(t, snap.Completed[p])
	}
}
