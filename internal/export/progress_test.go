package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"polnischlernen/internal/models"
	"polnischlernen/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestProgressWorkbook(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	defer store.Close()

	course := &models.Course{Title: "Polnisch A1"}
	require.NoError(t, store.SaveCourse(ctx, course))
	module := &models.Module{CourseID: course.ID, Title: "Zahlen"}
	require.NoError(t, store.SaveModule(ctx, module))
	lesson := &models.Lesson{ModuleID: module.ID, Title: "Eins bis zehn"}
	require.NoError(t, store.SaveLesson(ctx, lesson))

	require.NoError(t, store.SaveProgress(ctx, &models.CourseProgress{
		UserID: "user-1", CourseID: course.ID, ModuleID: module.ID, LessonID: lesson.ID, Completed: true,
	}))
	require.NoError(t, store.SaveQuizAttempt(ctx, &models.QuizAttempt{
		UserID: "user-1", Kind: models.AttemptLesson, Subject: lesson.ID, Score: 3, MaxScore: 3, Percent: 100, Passed: true,
	}))
	require.NoError(t, store.SaveQuizAttempt(ctx, &models.QuizAttempt{
		UserID: "user-1", Kind: models.AttemptTopic, Subject: "Farben", Score: 2, MaxScore: 4, Percent: 50,
	}))

	data, err := NewExporter(store).ProgressWorkbook(ctx, "user-1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetProgress, SheetAttempts}, f.GetSheetList())

	rows, err := f.GetRows(SheetProgress)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Kurs", rows[0][0])
	assert.Equal(t, []string{"Polnisch A1", "Zahlen", "Eins bis zehn", "Ja", "Nein"}, rows[1][:5])

	attempts, err := f.GetRows(SheetAttempts)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, "Lektionsquiz", attempts[1][1])
	assert.Equal(t, "Eins bis zehn", attempts[1][2])
	assert.Equal(t, "Themenquiz", attempts[2][1])
	assert.Equal(t, "Farben", attempts[2][2])
	assert.Equal(t, "Nein", attempts[2][6])
}

func TestProgressWorkbook_EmptyUser(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "leer.db"))
	require.NoError(t, err)
	defer store.Close()

	data, err := NewExporter(store).ProgressWorkbook(context.Background(), "niemand")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetAttempts)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
