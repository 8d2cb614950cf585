package lms

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"polnischlernen/internal/cache"
	"polnischlernen/internal/events"
	"polnischlernen/internal/logging"
	"polnischlernen/internal/models"
	"polnischlernen/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompletionStore struct {
	mock.Mock
}

func (m *mockCompletionStore) Get(ctx context.Context, userID, lessonID string) (*models.CompletionRecord, error) {
	args := m.Called(ctx, userID, lessonID)
	rec, _ := args.Get(0).(*models.CompletionRecord)
	return rec, args.Error(1)
}

func (m *mockCompletionStore) Set(ctx context.Context, userID, lessonID string, rec models.CompletionRecord) error {
	args := m.Called(ctx, userID, lessonID, rec)
	return args.Error(0)
}

func (m *mockCompletionStore) Reset(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func sampleLessonQuiz() *models.LessonQuiz {
	return &models.LessonQuiz{
		PassingScore: 70,
		Questions: []models.LessonQuestion{
			{ID: "q1", Type: models.QuestionSingle, Options: []models.QuizOption{
				{ID: "o1", Text: "zwei", IsCorrect: true},
				{ID: "o2", Text: "drei"},
			}},
			{ID: "q2", Type: models.QuestionMultiple, Options: []models.QuizOption{
				{ID: "o3", Text: "jeden", IsCorrect: true},
				{ID: "o4", Text: "dwa", IsCorrect: true},
				{ID: "o5", Text: "dom"},
			}},
			{ID: "q3", Type: models.QuestionText, CorrectAnswer: "Dziesięć"},
		},
	}
}

func TestEvaluate(t *testing.T) {
	lq := sampleLessonQuiz()

	all := Evaluate(lq, map[string]LessonAnswer{
		"q1": {OptionIDs: []string{"o1"}},
		"q2": {OptionIDs: []string{"o4", "o3"}},
		"q3": {Text: "  dziesięć "},
	})
	assert.Equal(t, 3, all.Correct)
	assert.Equal(t, 100, all.Percent)
	assert.True(t, all.Passed)

	partial := Evaluate(lq, map[string]LessonAnswer{
		"q1": {OptionIDs: []string{"o1"}},
		"q2": {OptionIDs: []string{"o3", "o4", "o5"}},
		"q3": {Text: "dziesięć"},
	})
	assert.Equal(t, 2, partial.Correct)
	assert.Equal(t, 67, partial.Percent)
	assert.False(t, partial.Passed)
	assert.False(t, partial.Questions[1].Correct)
	assert.ElementsMatch(t, []string{"o3", "o4"}, partial.Questions[1].CorrectOptionIDs)

	none := Evaluate(lq, nil)
	assert.Equal(t, 0, none.Percent)
	assert.False(t, none.Passed)

	empty := Evaluate(&models.LessonQuiz{}, nil)
	assert.False(t, empty.Passed)
}

func TestCanComplete(t *testing.T) {
	plain := &models.Lesson{}
	assert.True(t, CanComplete(plain, false, false))

	withQuiz := &models.Lesson{Quiz: sampleLessonQuiz()}
	assert.False(t, CanComplete(withQuiz, false, false))
	assert.True(t, CanComplete(withQuiz, true, false))

	withVideo := &models.Lesson{VideoURL: "https://video.example/1", Quiz: sampleLessonQuiz()}
	assert.False(t, CanComplete(withVideo, true, false))
	assert.True(t, CanComplete(withVideo, true, true))
}

type fixture struct {
	svc    *Service
	store  storage.Storage
	events *events.MockPublisher
	ref    LessonRef
	quiz   *models.LessonQuiz
}

func newFixture(t *testing.T, videoURL string) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "lms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	course := &models.Course{Title: "Polnisch A1"}
	require.NoError(t, store.SaveCourse(ctx, course))
	module := &models.Module{CourseID: course.ID, Title: "Zahlen"}
	require.NoError(t, store.SaveModule(ctx, module))
	lesson := &models.Lesson{ModuleID: module.ID, Title: "Eins bis zehn", VideoURL: videoURL}
	require.NoError(t, store.SaveLesson(ctx, lesson))
	other := &models.Lesson{ModuleID: module.ID, Title: "Elf bis zwanzig", Order: 1}
	require.NoError(t, store.SaveLesson(ctx, other))

	lq := sampleLessonQuiz()
	lq.LessonID = lesson.ID
	require.NoError(t, store.SaveLessonQuiz(ctx, lq))

	pub := events.NewMockPublisher()
	svc := NewService(store, cache.NewCompletionStore(cache.NewMemoryCache()), pub, logging.Discard())
	return &fixture{
		svc:    svc,
		store:  store,
		events: pub,
		ref:    LessonRef{CourseID: course.ID, ModuleID: module.ID, LessonID: lesson.ID},
		quiz:   lq,
	}
}

func (f *fixture) correctAnswers() map[string]LessonAnswer {
	q := f.quiz.Questions
	return map[string]LessonAnswer{
		q[0].ID: {OptionIDs: []string{q[0].Options[0].ID}},
		q[1].ID: {OptionIDs: []string{q[1].Options[0].ID, q[1].Options[1].ID}},
		q[2].ID: {Text: "dziesięć"},
	}
}

func TestSubmitLessonQuiz_CompletesLesson(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	res, err := f.svc.SubmitLessonQuiz(ctx, "user-1", f.ref, f.correctAnswers())
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.True(t, res.LessonCompleted)

	summary, err := f.svc.CourseSummary(ctx, "user-1", f.ref.CourseID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.ref.LessonID}, summary.CompletedLessons)
	assert.Equal(t, 2, summary.TotalLessons)
	assert.Equal(t, 50, summary.Percent)

	assert.Equal(t, []events.EventType{
		events.EventQuizSubmitted,
		events.EventProgressUpdated,
		events.EventLessonCompleted,
	}, f.events.Types())

	attempts, err := f.store.ListQuizAttempts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 100, attempts[0].Percent)
}

func TestSubmitLessonQuiz_FailedKeepsLessonOpen(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	res, err := f.svc.SubmitLessonQuiz(ctx, "user-1", f.ref, map[string]LessonAnswer{})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.False(t, res.LessonCompleted)

	_, err = f.svc.RecordProgress(ctx, "user-1", ProgressUpdate{LessonRef: f.ref, Completed: true})
	assert.ErrorIs(t, err, ErrNotCompletable)

	status, err := f.svc.LessonStatus(ctx, "user-1", f.ref)
	require.NoError(t, err)
	assert.False(t, status.QuizPassed)
	assert.False(t, status.CanComplete)
}

func TestSubmitLessonQuiz_CompletionStoreError(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	errDown := errors.New("redis weg")

	completions := new(mockCompletionStore)
	completions.On("Set", mock.Anything, "user-1", f.ref.LessonID, mock.MatchedBy(func(rec models.CompletionRecord) bool {
		return rec.Completed && rec.Score == 100
	})).Return(errDown).Once()

	svc := NewService(f.store, completions, f.events, logging.Discard())
	_, err := svc.SubmitLessonQuiz(ctx, "user-1", f.ref, f.correctAnswers())
	require.ErrorIs(t, err, errDown)
	assert.Contains(t, err.Error(), "abschluss speichern")
	completions.AssertExpectations(t)

	_, err = f.store.GetProgress(ctx, "user-1", f.ref.LessonID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVideoGate(t *testing.T) {
	f := newFixture(t, "https://video.example/zahlen")
	ctx := context.Background()

	res, err := f.svc.SubmitLessonQuiz(ctx, "user-1", f.ref, f.correctAnswers())
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.False(t, res.LessonCompleted, "video noch nicht gesehen")

	status, err := f.svc.LessonStatus(ctx, "user-1", f.ref)
	require.NoError(t, err)
	assert.True(t, status.QuizPassed)
	assert.False(t, status.CanComplete)

	// bestandenes Quiz plus gesehenes Video schließt die Lektion ohne weiteren Aufruf ab
	summary, err := f.svc.RecordProgress(ctx, "user-1", ProgressUpdate{LessonRef: f.ref, VideoWatched: true})
	require.NoError(t, err)
	assert.Equal(t, []string{f.ref.LessonID}, summary.CompletedLessons)
	assert.Contains(t, f.events.Types(), events.EventLessonCompleted)

	summary, err = f.svc.RecordProgress(ctx, "user-1", ProgressUpdate{LessonRef: f.ref, Completed: true})
	require.NoError(t, err)
	assert.Equal(t, []string{f.ref.LessonID}, summary.CompletedLessons)

	p, err := f.store.GetProgress(ctx, "user-1", f.ref.LessonID)
	require.NoError(t, err)
	assert.True(t, p.VideoWatched, "video-status bleibt erhalten")
}

func TestLessonMismatch(t *testing.T) {
	f := newFixture(t, "")
	ref := f.ref
	ref.ModuleID = "anderes-modul"
	_, err := f.svc.SubmitLessonQuiz(context.Background(), "user-1", ref, nil)
	assert.ErrorIs(t, err, ErrLessonMismatch)
}

func TestRecordTopicAttempt(t *testing.T) {
	f := newFixture(t, "")
	attempt, err := f.svc.RecordTopicAttempt(context.Background(), "user-1", "Zahlen", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 75, attempt.Percent)
	assert.True(t, attempt.Passed)
	assert.Equal(t, []events.EventType{events.EventQuizSubmitted}, f.events.Types())
}

func TestVideoFirstThenQuiz_NoEarlyCompletion(t *testing.T) {
	f := newFixture(t, "https://video.example/zahlen")
	ctx := context.Background()

	summary, err := f.svc.RecordProgress(ctx, "user-1", ProgressUpdate{LessonRef: f.ref, VideoWatched: true})
	require.NoError(t, err)
	assert.Empty(t, summary.CompletedLessons, "quiz noch offen")

	res, err := f.svc.SubmitLessonQuiz(ctx, "user-1", f.ref, f.correctAnswers())
	require.NoError(t, err)
	assert.True(t, res.LessonCompleted)
}

func TestResetProgress(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.svc.SubmitLessonQuiz(ctx, "user-1", f.ref, f.correctAnswers())
	require.NoError(t, err)
	_, err = f.svc.SubmitLessonQuiz(ctx, "user-2", f.ref, f.correctAnswers())
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetProgress(ctx, "user-1"))

	summary, err := f.svc.CourseSummary(ctx, "user-1", f.ref.CourseID)
	require.NoError(t, err)
	assert.Empty(t, summary.CompletedLessons)
	assert.Equal(t, 0, summary.Percent)

	status, err := f.svc.LessonStatus(ctx, "user-1", f.ref)
	require.NoError(t, err)
	assert.False(t, status.QuizPassed)

	other, err := f.svc.LessonStatus(ctx, "user-2", f.ref)
	require.NoError(t, err)
	assert.True(t, other.QuizPassed, "andere nutzer bleiben unberührt")

	attempts, err := f.store.ListQuizAttempts(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, attempts, 1, "versuche bleiben als historie")

	assert.Contains(t, f.events.Types(), events.EventProgressReset)
}
