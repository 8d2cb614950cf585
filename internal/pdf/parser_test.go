package pdf

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"polnischlernen/internal/logging"
	"polnischlernen/internal/models"
	"polnischlernen/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Vorwort ohne Überschrift
Lekcja 1: Powitania
Dzień dobry heißt guten Tag.
Cześć ist informell.

2. Liczby
jeden dwa trzy
ZWROTY GRZECZNOŚCIOWE
proszę, dziękuję
`

func TestExtractSections(t *testing.T) {
	sections := ExtractSections(sample)
	require.Len(t, sections, 3)

	assert.Equal(t, "Lekcja 1: Powitania", sections[0].Title)
	assert.Equal(t, "Dzień dobry heißt guten Tag.\nCześć ist informell.\n", sections[0].Content)
	assert.Equal(t, "2. Liczby", sections[1].Title)
	assert.Equal(t, "ZWROTY GRZECZNOŚCIOWE", sections[2].Title)
	assert.Equal(t, "proszę, dziękuję\n", sections[2].Content)
}

func TestHeadingHeuristics(t *testing.T) {
	assert.True(t, isNumberedHeading("1.1 Aussprache"))
	assert.False(t, isNumberedHeading("2024 war ein gutes Jahr"))
	assert.True(t, isUpperHeading("ŻÓŁW"))
	assert.False(t, isUpperHeading("ABC"))
	assert.False(t, isUpperHeading("123 456"))
}

func TestLessonsFromSections(t *testing.T) {
	words := strings.Repeat("słowo ", 151)
	lessons := LessonsFromSections("mod-1", []Section{
		{Title: "Eins", Content: "  kurz  "},
		{Title: "Zwei", Content: words},
	}, 3)

	require.Len(t, lessons, 2)
	assert.Equal(t, "mod-1", lessons[0].ModuleID)
	assert.Equal(t, "kurz", lessons[0].Content)
	assert.Equal(t, 1, lessons[0].Duration)
	assert.Equal(t, 3, lessons[0].Order)
	assert.Equal(t, 2, lessons[1].Duration)
	assert.Equal(t, 4, lessons[1].Order)
}

func newImporter(t *testing.T, content string) (*Importer, storage.Storage, *models.Module) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	course := &models.Course{Title: "Polnisch A1"}
	require.NoError(t, store.SaveCourse(ctx, course))
	module := &models.Module{CourseID: course.ID, Title: "Start"}
	require.NoError(t, store.SaveModule(ctx, module))
	require.NoError(t, store.SaveLesson(ctx, &models.Lesson{ModuleID: module.ID, Title: "Vorhanden", Order: 1}))

	imp := NewImporter(store, logging.Discard())
	imp.parse = func(io.Reader, string) (*Document, error) {
		return &Document{Name: "lekcje.pdf", Content: content, PageCount: 2}, nil
	}
	return imp, store, module
}

func TestImporter_AppendsLessons(t *testing.T) {
	imp, store, module := newImporter(t, sample)
	ctx := context.Background()

	lessons, err := imp.Import(ctx, module.ID, strings.NewReader("%PDF"), "lekcje.pdf")
	require.NoError(t, err)
	require.Len(t, lessons, 3)
	assert.Equal(t, 2, lessons[0].Order)

	got, err := store.GetModule(ctx, module.ID)
	require.NoError(t, err)
	require.Len(t, got.Lessons, 4)
	assert.Equal(t, "Vorhanden", got.Lessons[0].Title)
	assert.Equal(t, "Lekcja 1: Powitania", got.Lessons[1].Title)
}

func TestImporter_WholeDocumentWithoutHeadings(t *testing.T) {
	imp, _, module := newImporter(t, "nur fließtext\nohne gliederung")

	lessons, err := imp.Import(context.Background(), module.ID, strings.NewReader(""), "grammatik.pdf")
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "grammatik", lessons[0].Title)
}

func TestImporter_Errors(t *testing.T) {
	imp, _, module := newImporter(t, "   ")
	ctx := context.Background()

	_, err := imp.Import(ctx, "fehlt", strings.NewReader(""), "x.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = imp.Import(ctx, module.ID, strings.NewReader(""), "leer.pdf")
	assert.Error(t, err)

	imp.parse = func(io.Reader, string) (*Document, error) { return nil, errors.New("kaputt") }
	_, err = imp.Import(ctx, module.ID, strings.NewReader(""), "kaputt.pdf")
	assert.EqualError(t, err, "kaputt")

	_, err = ParseFromReader(strings.NewReader("keine pdf"), "x.pdf")
	assert.Error(t, err)
}
