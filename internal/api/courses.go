package api

import (
	"fmt"
	"net/http"
	"time"

	"polnischlernen/internal/lms"
	"polnischlernen/internal/models"

	"github.com/gorilla/mux"
)

// Maximal 50MB pro PDF
const maxUploadSize = 50 << 20

func lessonRef(r *http.Request) lms.LessonRef {
	vars := mux.Vars(r)
	return lms.LessonRef{CourseID: vars["courseId"], ModuleID: vars["moduleId"], LessonID: vars["lessonId"]}
}

// === Kurs Endpoints ===

func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.store.ListCourses(r.Context())
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden der Kurse")
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}
	jsonResponse(w, map[string]any{"courses": courses, "count": len(courses)}, http.StatusOK)
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var course models.Course
	if !h.decode(w, r, &course) {
		return
	}
	course.ID = ""
	course.Modules = nil

	if err := h.store.SaveCourse(r.Context(), &course); err != nil {
		h.serviceError(w, err, "Fehler beim Speichern des Kurses")
		return
	}
	h.logger.Info("📚 Kurs angelegt", "course_id", course.ID, "title", course.Title)
	jsonResponse(w, course, http.StatusCreated)
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.store.GetCourse(r.Context(), mux.Vars(r)["courseId"])
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden des Kurses")
		return
	}
	jsonResponse(w, course, http.StatusOK)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["courseId"]
	if err := h.store.DeleteCourse(r.Context(), id); err != nil {
		h.serviceError(w, err, "Fehler beim Löschen des Kurses")
		return
	}
	h.logger.Info("🗑️ Kurs gelöscht", "course_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID := mux.Vars(r)["courseId"]
	if _, err := h.store.GetCourse(ctx, courseID); err != nil {
		h.serviceError(w, err, "Fehler beim Laden des Kurses")
		return
	}

	var module models.Module
	if !h.decode(w, r, &module) {
		return
	}
	module.ID = ""
	module.CourseID = courseID
	module.Lessons = nil

	if err := h.store.SaveModule(ctx, &module); err != nil {
		h.serviceError(w, err, "Fehler beim Speichern des Moduls")
		return
	}
	jsonResponse(w, module, http.StatusCreated)
}

// CreateLesson legt eine leere oder befüllte Lektion im Modul an
func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := lessonRef(r)
	module, err := h.store.GetModule(ctx, ref.ModuleID)
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden des Moduls")
		return
	}
	if module.CourseID != ref.CourseID {
		errorResponse(w, "Nicht gefunden", http.StatusNotFound)
		return
	}

	var lesson models.Lesson
	if !h.decode(w, r, &lesson) {
		return
	}
	lesson.ID = ""
	lesson.ModuleID = module.ID
	lesson.Quiz = nil

	if err := h.store.SaveLesson(ctx, &lesson); err != nil {
		h.serviceError(w, err, "Fehler beim Speichern der Lektion")
		return
	}
	jsonResponse(w, lesson, http.StatusCreated)
}

// === Lektion Endpoints ===

func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.lms.Lesson(r.Context(), lessonRef(r))
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden der Lektion")
		return
	}
	if lesson.Quiz != nil && r.URL.Query().Get("solutions") != "true" {
		lesson.Quiz = withoutSolutions(lesson.Quiz)
	}
	jsonResponse(w, lesson, http.StatusOK)
}

func (h *Handler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	existing, err := h.lms.Lesson(ctx, lessonRef(r))
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden der Lektion")
		return
	}

	var lesson models.Lesson
	if !h.decode(w, r, &lesson) {
		return
	}
	lesson.ID = existing.ID
	lesson.ModuleID = existing.ModuleID
	lesson.CreatedAt = existing.CreatedAt
	lesson.Quiz = nil

	if err := h.store.SaveLesson(ctx, &lesson); err != nil {
		h.serviceError(w, err, "Fehler beim Speichern der Lektion")
		return
	}
	jsonResponse(w, lesson, http.StatusOK)
}

// LessonStatus zeigt, was für den Abschluss noch fehlt
func (h *Handler) LessonStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.lms.LessonStatus(r.Context(), h.userID(w, r), lessonRef(r))
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden des Lektionsstatus")
		return
	}
	jsonResponse(w, status, http.StatusOK)
}

// withoutSolutions entfernt Lösungen für die Lernansicht
func withoutSolutions(q *models.LessonQuiz) *models.LessonQuiz {
	out := *q
	out.Questions = make([]models.LessonQuestion, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		opts := make([]models.QuizOption, len(question.Options))
		for j, o := range question.Options {
			o.IsCorrect = false
			opts[j] = o
		}
		question.Options = opts
		out.Questions[i] = question
	}
	return &out
}

// === Lektionsquiz Endpoints ===

func (h *Handler) GetLessonQuiz(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.lms.Lesson(r.Context(), lessonRef(r))
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden der Lektion")
		return
	}
	if lesson.Quiz == nil {
		h.serviceError(w, lms.ErrNoQuiz, "")
		return
	}
	q := lesson.Quiz
	if r.URL.Query().Get("solutions") != "true" {
		q = withoutSolutions(q)
	}
	jsonResponse(w, q, http.StatusOK)
}

// quizConsistency prüft, was sich nicht über Struct-Tags ausdrücken lässt
func quizConsistency(q *models.LessonQuiz) []fieldError {
	var errs []fieldError
	for i, question := range q.Questions {
		if question.Type == models.QuestionText {
			continue
		}
		correct := 0
		for _, o := range question.Options {
			if o.IsCorrect {
				correct++
			}
		}
		field := fmt.Sprintf("questions[%d].options", i)
		switch {
		case len(question.Options) < 2:
			errs = append(errs, fieldError{Field: field, Message: "mindestens 2 Optionen"})
		case question.Type == models.QuestionSingle && correct != 1:
			errs = append(errs, fieldError{Field: field, Message: "genau eine richtige Option"})
		case question.Type == models.QuestionMultiple && correct == 0:
			errs = append(errs, fieldError{Field: field, Message: "mindestens eine richtige Option"})
		}
	}
	return errs
}

func (h *Handler) PutLessonQuiz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lesson, err := h.lms.Lesson(ctx, lessonRef(r))
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden der Lektion")
		return
	}

	var q models.LessonQuiz
	if !h.decode(w, r, &q) {
		return
	}
	if errs := quizConsistency(&q); len(errs) > 0 {
		jsonResponse(w, map[string]any{
			"error":   "Validierung fehlgeschlagen",
			"details": errs,
		}, http.StatusBadRequest)
		return
	}
	q.ID = ""
	q.LessonID = lesson.ID

	if err := h.store.SaveLessonQuiz(ctx, &q); err != nil {
		h.serviceError(w, err, "Fehler beim Speichern des Quiz")
		return
	}
	h.logger.Info("📝 Lektionsquiz gespeichert", "lesson_id", lesson.ID, "questions", len(q.Questions))
	jsonResponse(w, q, http.StatusOK)
}

// SubmitLessonQuiz bewertet die Antworten; answers ist nach Fragen-ID geschlüsselt
func (h *Handler) SubmitLessonQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]lms.LessonAnswer `json:"answers"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.lms.SubmitLessonQuiz(r.Context(), h.userID(w, r), lessonRef(r), req.Answers)
	if err != nil {
		h.serviceError(w, err, "Quiz konnte nicht bewertet werden")
		return
	}
	jsonResponse(w, res, http.StatusOK)
}

// === Fortschritt Endpoints ===

func (h *Handler) GetCourseProgress(w http.ResponseWriter, r *http.Request) {
	summary, err := h.lms.CourseSummary(r.Context(), h.userID(w, r), mux.Vars(r)["courseId"])
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden des Fortschritts")
		return
	}
	jsonResponse(w, summary, http.StatusOK)
}

func (h *Handler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	var upd lms.ProgressUpdate
	if !h.decode(w, r, &upd) {
		return
	}

	summary, err := h.lms.RecordProgress(r.Context(), h.userID(w, r), upd)
	if err != nil {
		h.serviceError(w, err, "Fortschritt konnte nicht gespeichert werden")
		return
	}
	jsonResponse(w, summary, http.StatusOK)
}

// ResetProgress löscht Fortschritt und bestandene Quizze des aktuellen Nutzers
func (h *Handler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(w, r)
	if err := h.lms.ResetProgress(r.Context(), userID); err != nil {
		h.serviceError(w, err, "Fortschritt konnte nicht zurückgesetzt werden")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Import / Export ===

// ImportLessons legt aus einer hochgeladenen PDF neue Lektionen an
func (h *Handler) ImportLessons(w http.ResponseWriter, r *http.Request) {
	ref := lessonRef(r)
	module, err := h.store.GetModule(r.Context(), ref.ModuleID)
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden des Moduls")
		return
	}
	if module.CourseID != ref.CourseID {
		errorResponse(w, "Nicht gefunden", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		errorResponse(w, "Upload zu groß oder fehlerhaft", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, "Keine Datei gefunden", http.StatusBadRequest)
		return
	}
	defer file.Close()

	lessons, err := h.importer.Import(r.Context(), module.ID, file, header.Filename)
	if err != nil {
		errorResponse(w, fmt.Sprintf("Fehler beim Import: %v", err), http.StatusBadRequest)
		return
	}
	jsonResponse(w, map[string]any{"lessons": lessons, "count": len(lessons)}, http.StatusCreated)
}

// ExportProgress liefert den Fortschritt als Excel-Datei
func (h *Handler) ExportProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = h.userID(w, r)
	}

	data, err := h.exporter.ProgressWorkbook(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err, "Export fehlgeschlagen")
		return
	}

	filename := fmt.Sprintf("fortschritt-%s-%s.xlsx", userID, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
