package export

import (
	"context"
	"fmt"

	"polnischlernen/internal/models"
	"polnischlernen/internal/storage"

	"github.com/xuri/excelize/v2"
)

const (
	SheetProgress = "Fortschritt"
	SheetAttempts = "Versuche"

	dateLayout = "02.01.2006 15:04"
)

type lessonInfo struct {
	course string
	module string
	lesson string
}

// Exporter erstellt Excel-Auswertungen aus dem Speicher
type Exporter struct {
	store storage.Storage
}

func NewExporter(store storage.Storage) *Exporter {
	return &Exporter{store: store}
}

// lessonIndex bildet Lektions-IDs auf Kurs-, Modul- und Lektionstitel ab
func (e *Exporter) lessonIndex(ctx context.Context) (map[string]lessonInfo, error) {
	courses, err := e.store.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]lessonInfo)
	for _, c := range courses {
		full, err := e.store.GetCourse(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range full.Modules {
			for _, l := range m.Lessons {
				index[l.ID] = lessonInfo{course: full.Title, module: m.Title, lesson: l.Title}
			}
		}
	}
	return index, nil
}

func yesNo(b bool) string {
	if b {
		return "Ja"
	}
	return "Nein"
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProgressWorkbook exportiert Lektionsfortschritt und Quizversuche eines Nutzers
func (e *Exporter) ProgressWorkbook(ctx context.Context, userID string) ([]byte, error) {
	index, err := e.lessonIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("kurse laden: %w", err)
	}
	progress, err := e.store.ListProgress(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("fortschritt laden: %w", err)
	}
	attempts, err := e.store.ListQuizAttempts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quizversuche laden: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range []string{SheetProgress, SheetAttempts} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("excel-blatt erstellen: %w", err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	progressIdx, err := f.GetSheetIndex(SheetProgress)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(progressIdx)

	if err := writeRows(f, SheetProgress,
		[]string{"Kurs", "Modul", "Lektion", "Abgeschlossen", "Video gesehen", "Aktualisiert"},
		progressRows(progress, index)); err != nil {
		return nil, err
	}
	if err := writeRows(f, SheetAttempts,
		[]string{"Datum", "Art", "Thema/Lektion", "Punkte", "Maximal", "Prozent", "Bestanden"},
		attemptRows(attempts, index)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel-datei schreiben: %w", err)
	}
	return buf.Bytes(), nil
}

func progressRows(progress []models.CourseProgress, index map[string]lessonInfo) [][]any {
	rows := make([][]any, 0, len(progress))
	for _, p := range progress {
		info, ok := index[p.LessonID]
		if !ok {
			info = lessonInfo{course: p.CourseID, module: p.ModuleID, lesson: p.LessonID}
		}
		rows = append(rows, []any{
			info.course,
			info.module,
			info.lesson,
			yesNo(p.Completed),
			yesNo(p.VideoWatched),
			p.UpdatedAt.Format(dateLayout),
		})
	}
	return rows
}

func attemptRows(attempts []models.QuizAttempt, index map[string]lessonInfo) [][]any {
	rows := make([][]any, 0, len(attempts))
	for _, a := range attempts {
		kind, subject := "Themenquiz", a.Subject
		if a.Kind == models.AttemptLesson {
			kind = "Lektionsquiz"
			if info, ok := index[a.Subject]; ok {
				subject = info.lesson
			}
		}
		rows = append(rows, []any{
			a.CreatedAt.Format(dateLayout),
			kind,
			subject,
			a.Score,
			a.MaxScore,
			a.Percent,
			yesNo(a.Passed),
		})
	}
	return rows
}
