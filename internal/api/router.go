package api

import (
	"net/http"

	"polnischlernen/internal/logging"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter erstellt den HTTP-Router mit allen Endpoints
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(logging.Middleware(h.logger))

	// API-Version
	api := r.PathPrefix("/api/v1").Subrouter()

	// System
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")
	api.HandleFunc("/status", h.GetStatus).Methods("GET")
	api.HandleFunc("/models", h.GetModels).Methods("GET")
	api.HandleFunc("/models", h.SetModel).Methods("POST")

	// Generatoren
	api.HandleFunc("/generate/quiz", h.GenerateQuiz).Methods("POST")
	api.HandleFunc("/generate/theory", h.GenerateTheory).Methods("POST")
	api.HandleFunc("/generate/theory/stream", h.StreamTheory).Methods("GET")
	api.HandleFunc("/generate/audio", h.GenerateAudio).Methods("POST")
	api.HandleFunc("/generate/flashcard-image", h.GenerateFlashcardImage).Methods("POST")

	// Quiz-Sessions
	api.HandleFunc("/quiz/sessions", h.CreateQuizSession).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}", h.GetQuizSession).Methods("GET")
	api.HandleFunc("/quiz/sessions/{id}", h.EndQuizSession).Methods("DELETE")
	api.HandleFunc("/quiz/sessions/{id}/answer", h.AnswerQuestion).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/next", h.NextQuestion).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/back", h.PreviousQuestion).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/submit", h.SubmitQuiz).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/hint", h.QuizHint).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/reset", h.ResetQuiz).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/review", h.ReviewQuiz).Methods("GET")

	// Theorie-Assistent
	api.HandleFunc("/theory/wizards", h.CreateWizard).Methods("POST")
	api.HandleFunc("/theory/wizards/{id}", h.GetWizard).Methods("GET")
	api.HandleFunc("/theory/wizards/{id}", h.EndWizard).Methods("DELETE")
	api.HandleFunc("/theory/wizards/{id}/phase", h.GoToPhase).Methods("POST")
	api.HandleFunc("/theory/wizards/{id}/complete", h.CompletePhase).Methods("POST")
	api.HandleFunc("/theory/wizards/{id}/exercises", h.CheckExercises).Methods("POST")
	api.HandleFunc("/theory/wizards/{id}/skip", h.SkipExercises).Methods("POST")

	// Kurse
	api.HandleFunc("/courses", h.GetCourses).Methods("GET")
	api.HandleFunc("/courses", h.CreateCourse).Methods("POST")
	api.HandleFunc("/courses/{courseId}", h.GetCourse).Methods("GET")
	api.HandleFunc("/courses/{courseId}", h.DeleteCourse).Methods("DELETE")
	api.HandleFunc("/courses/{courseId}/progress", h.GetCourseProgress).Methods("GET")
	api.HandleFunc("/courses/{courseId}/modules", h.CreateModule).Methods("POST")

	// Lektionen
	lessons := api.PathPrefix("/courses/{courseId}/modules/{moduleId}/lessons").Subrouter()
	lessons.HandleFunc("", h.CreateLesson).Methods("POST")
	lessons.HandleFunc("/import", h.ImportLessons).Methods("POST")
	lessons.HandleFunc("/{lessonId}", h.GetLesson).Methods("GET")
	lessons.HandleFunc("/{lessonId}", h.UpdateLesson).Methods("PUT")
	lessons.HandleFunc("/{lessonId}/status", h.LessonStatus).Methods("GET")
	lessons.HandleFunc("/{lessonId}/quiz", h.GetLessonQuiz).Methods("GET")
	lessons.HandleFunc("/{lessonId}/quiz", h.PutLessonQuiz).Methods("PUT")
	lessons.HandleFunc("/{lessonId}/quiz/submit", h.SubmitLessonQuiz).Methods("POST")

	// Fortschritt
	api.HandleFunc("/progress", h.RecordProgress).Methods("POST")
	api.HandleFunc("/progress", h.ResetProgress).Methods("DELETE")
	api.HandleFunc("/export/progress.xlsx", h.ExportProgress).Methods("GET")

	// CORS für lokale Entwicklung
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
