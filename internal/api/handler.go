package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"polnischlernen/internal/cache"
	"polnischlernen/internal/config"
	"polnischlernen/internal/export"
	"polnischlernen/internal/llm"
	"polnischlernen/internal/lms"
	"polnischlernen/internal/logging"
	"polnischlernen/internal/pdf"
	"polnischlernen/internal/player"
	"polnischlernen/internal/quiz"
	"polnischlernen/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
)

// Deps bündelt die Dienste, die der Handler benötigt
type Deps struct {
	Store    storage.Storage
	Tutor    *llm.Tutor
	Player   *player.Player
	LMS      *lms.Service
	Theory   *cache.TheoryCache
	Importer *pdf.Importer
	Exporter *export.Exporter
	Config   *config.Config
	Logger   logging.Logger
}

// Handler verwaltet alle API-Endpunkte
type Handler struct {
	store    storage.Storage
	llm      llm.Provider
	tutor    *llm.Tutor
	player   *player.Player
	lms      *lms.Service
	theory   *cache.TheoryCache
	importer *pdf.Importer
	exporter *export.Exporter
	config   *config.Config
	logger   logging.Logger

	validate *validator.Validate
	sessions *sessions.CookieStore
	upgrader websocket.Upgrader
}

// NewHandler erstellt einen neuen API-Handler
func NewHandler(d Deps) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	store := sessions.NewCookieStore([]byte(d.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Handler{
		store:    d.Store,
		llm:      d.Tutor.Provider(),
		tutor:    d.Tutor,
		player:   d.Player,
		lms:      d.LMS,
		theory:   d.Theory,
		importer: d.Importer,
		exporter: d.Exporter,
		config:   d.Config,
		logger:   d.Logger.With("component", "api"),
		validate: validate,
		sessions: store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Response-Helper
func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// transitionResponse meldet abgelehnte Zustandsübergänge mit 409
func transitionResponse(w http.ResponseWriter, data any, accepted bool) {
	status := http.StatusOK
	if !accepted {
		status = http.StatusConflict
	}
	jsonResponse(w, data, status)
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "Pflichtfeld"
	case "max":
		return fmt.Sprintf("höchstens %s", fe.Param())
	case "min":
		return fmt.Sprintf("mindestens %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("erlaubt: %s", fe.Param())
	}
	return fmt.Sprintf("ungültig (%s)", fe.Tag())
}

// fieldPath liefert den Feldpfad ohne den Typnamen, z.B. questions[0].text
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// decode liest den JSON-Body und prüft ihn anhand der validate-Tags
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		errorResponse(w, fmt.Sprintf("Ungültige Anfrage: %v", err), http.StatusBadRequest)
		return false
	}
	return h.check(w, dst)
}

func (h *Handler) check(w http.ResponseWriter, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return false
	}
	details := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldError{Field: fieldPath(fe), Message: validationMessage(fe)})
	}
	jsonResponse(w, map[string]any{
		"error":   "Validierung fehlgeschlagen",
		"details": details,
	}, http.StatusBadRequest)
	return false
}

// serviceError bildet Fehler der Fachschicht auf HTTP-Status ab
func (h *Handler) serviceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, lms.ErrLessonMismatch):
		errorResponse(w, "Nicht gefunden", http.StatusNotFound)
	case errors.Is(err, lms.ErrNoQuiz):
		errorResponse(w, "Lektion hat kein Quiz", http.StatusNotFound)
	case errors.Is(err, player.ErrSessionNotFound):
		errorResponse(w, "Quiz-Session nicht gefunden", http.StatusNotFound)
	case errors.Is(err, player.ErrWizardNotFound):
		errorResponse(w, "Theorie-Assistent nicht gefunden", http.StatusNotFound)
	case errors.Is(err, lms.ErrNotCompletable):
		errorResponse(w, "Lektion kann noch nicht abgeschlossen werden", http.StatusConflict)
	case errors.Is(err, quiz.ErrNoQuestions), errors.Is(err, quiz.ErrQuestionCount), errors.Is(err, quiz.ErrInvalidQuestion):
		errorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.LogError(err, msg)
		errorResponse(w, msg, http.StatusInternalServerError)
	}
}

// === System Endpoints ===

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	dbErr := h.store.Ping(ctx)
	if dbErr != nil {
		status = "degraded"
	}

	jsonResponse(w, map[string]any{
		"status":        status,
		"database_ok":   dbErr == nil,
		"llm_available": h.llm.IsAvailable(ctx),
		"llm_provider":  h.llm.GetName(),
		"timestamp":     time.Now(),
	}, http.StatusOK)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	courses, err := h.store.ListCourses(ctx)
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden der Kurse")
		return
	}
	quizzes, wizards := h.player.Counts()

	jsonResponse(w, map[string]any{
		"courses_count":   len(courses),
		"quiz_sessions":   quizzes,
		"theory_wizards":  wizards,
		"llm_available":   h.llm.IsAvailable(ctx),
		"llm_provider":    h.llm.GetName(),
		"current_model":   h.llm.GetCurrentModel(),
		"database_driver": h.config.DatabaseDriver,
		"user_id":         h.userID(w, r),
	}, http.StatusOK)
}

func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.llm.GetModels(r.Context())
	if err != nil {
		errorResponse(w, fmt.Sprintf("Konnte Modelle nicht abrufen: %v", err), http.StatusServiceUnavailable)
		return
	}

	jsonResponse(w, map[string]any{
		"models":        models,
		"current_model": h.llm.GetCurrentModel(),
	}, http.StatusOK)
}

// SetModel ändert das aktive Chat-Modell
func (h *Handler) SetModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	models, err := h.llm.GetModels(r.Context())
	if err != nil {
		errorResponse(w, "Konnte Modelle nicht abrufen", http.StatusServiceUnavailable)
		return
	}

	found := false
	for _, m := range models {
		if m.Name == req.Model {
			found = true
			break
		}
	}
	if !found {
		errorResponse(w, fmt.Sprintf("Modell '%s' nicht gefunden", req.Model), http.StatusBadRequest)
		return
	}

	h.llm.SetModel(req.Model)
	h.config.ChatModel = req.Model
	h.logger.Info("🔄 Modell geändert", "model", req.Model)

	jsonResponse(w, map[string]any{
		"message":       "Modell geändert",
		"current_model": req.Model,
	}, http.StatusOK)
}
