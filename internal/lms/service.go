package lms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"polnischlernen/internal/events"
	"polnischlernen/internal/logging"
	"polnischlernen/internal/models"
	"polnischlernen/internal/storage"
)

var (
	// ErrNoQuiz wird geliefert, wenn eine Lektion kein Quiz hat
	ErrNoQuiz = errors.New("lektion hat kein quiz")
	// ErrNotCompletable bedeutet, dass Quiz oder Video noch offen sind
	ErrNotCompletable = errors.New("lektion kann noch nicht abgeschlossen werden")
	// ErrLessonMismatch bedeutet, dass Lektion und Modul/Kurs nicht zusammenpassen
	ErrLessonMismatch = errors.New("lektion gehört nicht zu diesem modul")
)

// TopicPassPercent ist die Bestehensgrenze für generierte Themenquizze
const TopicPassPercent = 60

// CompletionStore hält die Quizabschlüsse pro Nutzer und Lektion
type CompletionStore interface {
	Get(ctx context.Context, userID, lessonID string) (*models.CompletionRecord, error)
	Set(ctx context.Context, userID, lessonID string, rec models.CompletionRecord) error
	Reset(ctx context.Context, userID string) error
}

// LessonRef adressiert eine Lektion innerhalb eines Kurses
type LessonRef struct {
	CourseID string `json:"course_id" validate:"required"`
	ModuleID string `json:"module_id" validate:"required"`
	LessonID string `json:"lesson_id" validate:"required"`
}

// ProgressUpdate ist eine Fortschrittsmeldung des Clients
type ProgressUpdate struct {
	LessonRef
	Completed    bool `json:"completed"`
	VideoWatched bool `json:"video_watched"`
}

// SubmitResult ist das Ergebnis einer Quizabgabe inklusive Lektionsstatus
type SubmitResult struct {
	QuizResult
	LessonCompleted bool `json:"lesson_completed"`
}

// Service verbindet Speicher, Abschlüsse und Ereignisse
type Service struct {
	store       storage.Storage
	completions CompletionStore
	events      events.Publisher
	logger      logging.Logger
	now         func() time.Time
}

func NewService(store storage.Storage, completions CompletionStore, publisher events.Publisher, logger logging.Logger) *Service {
	return &Service{
		store:       store,
		completions: completions,
		events:      publisher,
		logger:      logger.With("component", "lms"),
		now:         time.Now,
	}
}

func (s *Service) publish(ctx context.Context, t events.EventType, userID string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.NewEvent(t, userID, data)); err != nil {
		s.logger.Warn("Ereignis verworfen", "event_type", t, "error", err)
	}
}

func (s *Service) lessonFor(ctx context.Context, ref LessonRef) (*models.Lesson, error) {
	lesson, err := s.store.GetLesson(ctx, ref.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson.ModuleID != ref.ModuleID {
		return nil, ErrLessonMismatch
	}
	module, err := s.store.GetModule(ctx, ref.ModuleID)
	if err != nil {
		return nil, err
	}
	if module.CourseID != ref.CourseID {
		return nil, ErrLessonMismatch
	}
	return lesson, nil
}

// Lesson lädt die Lektion und prüft, dass sie zu Modul und Kurs gehört
func (s *Service) Lesson(ctx context.Context, ref LessonRef) (*models.Lesson, error) {
	return s.lessonFor(ctx, ref)
}

func (s *Service) quizPassed(ctx context.Context, userID, lessonID string) (bool, error) {
	rec, err := s.completions.Get(ctx, userID, lessonID)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Completed, nil
}

// SubmitLessonQuiz bewertet das Lektionsquiz, speichert den Versuch und schließt
// die Lektion ab, sobald alle Bedingungen erfüllt sind
func (s *Service) SubmitLessonQuiz(ctx context.Context, userID string, ref LessonRef, answers map[string]LessonAnswer) (*SubmitResult, error) {
	lesson, err := s.lessonFor(ctx, ref)
	if err != nil {
		return nil, err
	}
	if lesson.Quiz == nil || len(lesson.Quiz.Questions) == 0 {
		return nil, ErrNoQuiz
	}

	result := Evaluate(lesson.Quiz, answers)
	out := &SubmitResult{QuizResult: result}

	attempt := &models.QuizAttempt{
		UserID:   userID,
		Kind:     models.AttemptLesson,
		Subject:  lesson.ID,
		Score:    result.Correct,
		MaxScore: result.Total,
		Percent:  result.Percent,
		Passed:   result.Passed,
	}
	if err := s.store.SaveQuizAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("quizversuch speichern: %w", err)
	}
	s.publish(ctx, events.EventQuizSubmitted, userID, events.QuizSubmittedData{
		Kind:     string(models.AttemptLesson),
		Subject:  lesson.ID,
		Score:    result.Correct,
		MaxScore: result.Total,
		Percent:  result.Percent,
		Passed:   result.Passed,
	})

	if !result.Passed {
		s.logger.Info("Lektionsquiz nicht bestanden", "lesson_id", lesson.ID, "percent", result.Percent, "passing", result.PassingScore)
		return out, nil
	}

	rec := models.CompletionRecord{Completed: true, Score: result.Percent, Date: s.now().UTC()}
	if err := s.completions.Set(ctx, userID, lesson.ID, rec); err != nil {
		return nil, fmt.Errorf("abschluss speichern: %w", err)
	}

	progress, err := s.currentProgress(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if progress.Completed {
		out.LessonCompleted = true
		return out, nil
	}
	if CanComplete(lesson, true, progress.VideoWatched) {
		progress.Completed = true
		if err := s.saveProgress(ctx, progress, true, result.Percent); err != nil {
			return nil, err
		}
		out.LessonCompleted = true
	}
	return out, nil
}

func (s *Service) currentProgress(ctx context.Context, userID string, ref LessonRef) (*models.CourseProgress, error) {
	p, err := s.store.GetProgress(ctx, userID, ref.LessonID)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.CourseProgress{
			UserID:   userID,
			CourseID: ref.CourseID,
			ModuleID: ref.ModuleID,
			LessonID: ref.LessonID,
		}, nil
	}
	return p, err
}

func (s *Service) saveProgress(ctx context.Context, p *models.CourseProgress, newlyCompleted bool, score int) error {
	if err := s.store.SaveProgress(ctx, p); err != nil {
		return fmt.Errorf("fortschritt speichern: %w", err)
	}
	s.publish(ctx, events.EventProgressUpdated, p.UserID, events.ProgressUpdatedData{
		CourseID:     p.CourseID,
		LessonID:     p.LessonID,
		Completed:    p.Completed,
		VideoWatched: p.VideoWatched,
	})
	if newlyCompleted {
		s.logger.Info("✅ Lektion abgeschlossen", "user_id", p.UserID, "lesson_id", p.LessonID)
		s.publish(ctx, events.EventLessonCompleted, p.UserID, events.LessonCompletedData{
			CourseID: p.CourseID,
			LessonID: p.LessonID,
			Score:    score,
		})
	}
	return nil
}

// RecordProgress speichert Videostatus und Abschluss einer Lektion.
// Abschluss wird nur akzeptiert, wenn Quiz und Video erledigt sind; ein einmal
// gesehenes Video und ein Abschluss bleiben bestehen. Ist das Quiz schon
// bestanden, schließt das gesehene Video die Lektion automatisch ab.
func (s *Service) RecordProgress(ctx context.Context, userID string, upd ProgressUpdate) (*models.CourseProgressSummary, error) {
	lesson, err := s.lessonFor(ctx, upd.LessonRef)
	if err != nil {
		return nil, err
	}

	progress, err := s.currentProgress(ctx, userID, upd.LessonRef)
	if err != nil {
		return nil, err
	}
	wasCompleted := progress.Completed
	newlyWatched := upd.VideoWatched && !progress.VideoWatched
	progress.VideoWatched = progress.VideoWatched || upd.VideoWatched

	score := 0
	if !wasCompleted && (upd.Completed || newlyWatched) {
		rec, err := s.completions.Get(ctx, userID, lesson.ID)
		if err != nil {
			return nil, err
		}
		passed := rec != nil && rec.Completed
		switch {
		case CanComplete(lesson, passed, progress.VideoWatched):
			if rec != nil {
				score = rec.Score
			}
			progress.Completed = true
		case upd.Completed:
			return nil, ErrNotCompletable
		}
	}

	if err := s.saveProgress(ctx, progress, progress.Completed && !wasCompleted, score); err != nil {
		return nil, err
	}
	return s.CourseSummary(ctx, userID, upd.CourseID)
}

// ResetProgress setzt den Lernfortschritt eines Nutzers zurück: gespeicherte
// Fortschritte und bestandene Quizze. Quizversuche bleiben als Historie erhalten.
func (s *Service) ResetProgress(ctx context.Context, userID string) error {
	removed, err := s.store.DeleteProgress(ctx, userID)
	if err != nil {
		return fmt.Errorf("fortschritt löschen: %w", err)
	}
	if err := s.completions.Reset(ctx, userID); err != nil {
		return fmt.Errorf("abschlüsse löschen: %w", err)
	}
	s.logger.Info("♻️ Fortschritt zurückgesetzt", "user_id", userID, "lessons", removed)
	s.publish(ctx, events.EventProgressReset, userID, events.ProgressResetData{Lessons: removed})
	return nil
}

// CompletedLessons liefert die IDs der abgeschlossenen Lektionen eines Kurses
func (s *Service) CompletedLessons(ctx context.Context, userID, courseID string) ([]string, error) {
	list, err := s.store.ListProgress(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, p := range list {
		if p.Completed {
			ids = append(ids, p.LessonID)
		}
	}
	return ids, nil
}

// CourseSummary berechnet den Kursfortschritt in Prozent
func (s *Service) CourseSummary(ctx context.Context, userID, courseID string) (*models.CourseProgressSummary, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	completed, err := s.CompletedLessons(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, m := range course.Modules {
		total += len(m.Lessons)
	}
	summary := &models.CourseProgressSummary{
		CourseID:         courseID,
		CompletedLessons: completed,
		TotalLessons:     total,
	}
	if total > 0 {
		summary.Percent = int(math.Round(float64(len(completed)) / float64(total) * 100))
	}
	return summary, nil
}

// LessonStatus beschreibt, was für den Abschluss einer Lektion noch fehlt
type LessonStatus struct {
	Completed    bool `json:"completed"`
	QuizPassed   bool `json:"quiz_passed"`
	VideoWatched bool `json:"video_watched"`
	CanComplete  bool `json:"can_complete"`
}

func (s *Service) LessonStatus(ctx context.Context, userID string, ref LessonRef) (*LessonStatus, error) {
	lesson, err := s.lessonFor(ctx, ref)
	if err != nil {
		return nil, err
	}
	passed, err := s.quizPassed(ctx, userID, lesson.ID)
	if err != nil {
		return nil, err
	}
	progress, err := s.currentProgress(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	return &LessonStatus{
		Completed:    progress.Completed,
		QuizPassed:   passed,
		VideoWatched: progress.VideoWatched,
		CanComplete:  !progress.Completed && CanComplete(lesson, passed, progress.VideoWatched),
	}, nil
}

// RecordTopicAttempt speichert das Ergebnis eines generierten Themenquiz
func (s *Service) RecordTopicAttempt(ctx context.Context, userID, topic string, score, maxScore int) (*models.QuizAttempt, error) {
	percent := 0
	if maxScore > 0 {
		percent = int(math.Round(float64(score) / float64(maxScore) * 100))
	}
	attempt := &models.QuizAttempt{
		UserID:   userID,
		Kind:     models.AttemptTopic,
		Subject:  topic,
		Score:    score,
		MaxScore: maxScore,
		Percent:  percent,
		Passed:   percent >= TopicPassPercent,
	}
	if err := s.store.SaveQuizAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("quizversuch speichern: %w", err)
	}
	s.publish(ctx, events.EventQuizSubmitted, userID, events.QuizSubmittedData{
		Kind:     string(models.AttemptTopic),
		Subject:  topic,
		Score:    score,
		MaxScore: maxScore,
		Percent:  percent,
		Passed:   attempt.Passed,
	})
	return attempt, nil
}

// PublishPhaseCompleted meldet eine abgeschlossene Theoriephase
func (s *Service) PublishPhaseCompleted(ctx context.Context, userID, wizardID, title, phase string) {
	s.publish(ctx, events.EventTheoryPhaseCompleted, userID, events.TheoryPhaseCompletedData{
		WizardID: wizardID,
		Title:    title,
		Phase:    phase,
	})
}
