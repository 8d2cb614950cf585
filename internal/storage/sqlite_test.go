package storage

import (
	"context"
	"path/filepath"
	"testing"

	"polnischlernen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCourse(t *testing.T, s Storage) (*models.Course, *models.Module, *models.Lesson) {
	t.Helper()
	ctx := context.Background()

	course := &models.Course{Title: "Polnisch A1", Level: models.LevelBeginner, Tags: []string{"a1", "basics"}}
	require.NoError(t, s.SaveCourse(ctx, course))

	module := &models.Module{CourseID: course.ID, Title: "Zahlen", Order: 1}
	require.NoError(t, s.SaveModule(ctx, module))

	lesson := &models.Lesson{ModuleID: module.ID, Title: "Eins bis zehn", Content: "jeden, dwa, trzy", Order: 1}
	require.NoError(t, s.SaveLesson(ctx, lesson))
	return course, module, lesson
}

func TestSQLite_CourseTree(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	course, module, lesson := seedCourse(t, s)

	second := &models.Lesson{ModuleID: module.ID, Title: "Elf bis zwanzig", Order: 0}
	require.NoError(t, s.SaveLesson(ctx, second))

	got, err := s.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Polnisch A1", got.Title)
	assert.Equal(t, []string{"a1", "basics"}, []string(got.Tags))
	require.Len(t, got.Modules, 1)
	require.Len(t, got.Modules[0].Lessons, 2)
	assert.Equal(t, second.ID, got.Modules[0].Lessons[0].ID, "sortiert nach order_number")
	assert.Equal(t, lesson.ID, got.Modules[0].Lessons[1].ID)

	list, err := s.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetCourse(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_LessonQuizReplace(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, _, lesson := seedCourse(t, s)

	quiz := &models.LessonQuiz{
		LessonID:     lesson.ID,
		PassingScore: 70,
		Questions: []models.LessonQuestion{
			{Text: "Was heißt 'dwa'?", Type: models.QuestionSingle, Options: []models.QuizOption{
				{Text: "zwei", IsCorrect: true},
				{Text: "drei"},
			}},
			{Text: "Schreibe 'zehn'", Type: models.QuestionText, CorrectAnswer: "dziesięć"},
		},
	}
	require.NoError(t, s.SaveLessonQuiz(ctx, quiz))
	firstID := quiz.ID

	got, err := s.GetLesson(ctx, lesson.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Quiz)
	assert.Equal(t, 70, got.Quiz.PassingScore)
	require.Len(t, got.Quiz.Questions, 2)
	require.Len(t, got.Quiz.Questions[0].Options, 2)
	assert.True(t, got.Quiz.Questions[0].Options[0].IsCorrect)
	assert.Equal(t, "dziesięć", got.Quiz.Questions[1].CorrectAnswer)

	replacement := &models.LessonQuiz{
		LessonID:     lesson.ID,
		PassingScore: 50,
		Questions:    []models.LessonQuestion{{Text: "Neu", Type: models.QuestionText, CorrectAnswer: "nowy"}},
	}
	require.NoError(t, s.SaveLessonQuiz(ctx, replacement))
	assert.Equal(t, firstID, replacement.ID)

	again, err := s.GetLessonQuiz(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Len(t, again.Questions, 1)
	assert.Equal(t, 50, again.PassingScore)
}

func TestSQLite_LessonWithoutQuiz(t *testing.T) {
	s := newTestStorage(t)
	_, _, lesson := seedCourse(t, s)

	got, err := s.GetLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Quiz)
}

func TestSQLite_ProgressUpsert(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	course, module, lesson := seedCourse(t, s)

	p := &models.CourseProgress{UserID: "user-1", CourseID: course.ID, ModuleID: module.ID, LessonID: lesson.ID, VideoWatched: true}
	require.NoError(t, s.SaveProgress(ctx, p))

	update := &models.CourseProgress{UserID: "user-1", CourseID: course.ID, ModuleID: module.ID, LessonID: lesson.ID, Completed: true, VideoWatched: true}
	require.NoError(t, s.SaveProgress(ctx, update))
	assert.Equal(t, p.ID, update.ID)

	list, err := s.ListProgress(ctx, "user-1", course.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)

	other, err := s.ListProgress(ctx, "user-2", "")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLite_DeleteProgress(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	course, module, lesson := seedCourse(t, s)

	for _, user := range []string{"user-1", "user-2"} {
		require.NoError(t, s.SaveProgress(ctx, &models.CourseProgress{
			UserID: user, CourseID: course.ID, ModuleID: module.ID, LessonID: lesson.ID, Completed: true,
		}))
	}

	n, err := s.DeleteProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetProgress(ctx, "user-1", lesson.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetProgress(ctx, "user-2", lesson.ID)
	assert.NoError(t, err)

	n, err = s.DeleteProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_DeleteCourseCascades(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	course, module, lesson := seedCourse(t, s)
	require.NoError(t, s.SaveLessonQuiz(ctx, &models.LessonQuiz{
		LessonID:  lesson.ID,
		Questions: []models.LessonQuestion{{Text: "x", Type: models.QuestionText, CorrectAnswer: "y"}},
	}))

	require.NoError(t, s.DeleteCourse(ctx, course.ID))
	_, err := s.GetModule(ctx, module.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetLesson(ctx, lesson.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetLessonQuiz(ctx, lesson.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteCourse(ctx, course.ID), ErrNotFound)
}

func TestSQLite_QuizAttempts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveQuizAttempt(ctx, &models.QuizAttempt{UserID: "user-1", Kind: models.AttemptTopic, Subject: "Zahlen", Score: 3, MaxScore: 4, Percent: 75}))
	list, err := s.ListQuizAttempts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AttemptTopic, list[0].Kind)
	assert.Equal(t, 75, list[0].Percent)
}
