package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"polnischlernen/internal/quiz"

	"github.com/gorilla/mux"
)

// === Quiz-Session Endpoints ===

func (h *Handler) CreateQuizSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic     string   `json:"topic"`
		Questions quiz.Set `json:"questions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Fragen: "+err.Error(), http.StatusBadRequest)
		return
	}

	view, err := h.player.StartQuiz(h.userID(w, r), strings.TrimSpace(req.Topic), req.Questions)
	if err != nil {
		h.serviceError(w, err, "Quiz-Session konnte nicht gestartet werden")
		return
	}
	jsonResponse(w, view, http.StatusCreated)
}

func (h *Handler) GetQuizSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.player.Quiz(mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden der Quiz-Session")
		return
	}
	jsonResponse(w, view, http.StatusOK)
}

// AnswerQuestion setzt die Antwort der aktiven Frage und liefert das Sofort-Feedback
func (h *Handler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index  int             `json:"index"`
		Answer json.RawMessage `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	answer, err := quiz.DecodeAnswer(req.Answer)
	if err != nil {
		errorResponse(w, "Ungültige Antwort: "+err.Error(), http.StatusBadRequest)
		return
	}

	view, feedback, ok, err := h.player.Answer(r.Context(), mux.Vars(r)["id"], req.Index, answer)
	if err != nil {
		h.serviceError(w, err, "Antwort konnte nicht gespeichert werden")
		return
	}
	transitionResponse(w, map[string]any{
		"session":  view,
		"feedback": feedback,
		"accepted": ok,
	}, ok)
}

func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	view, ok, err := h.player.Next(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Fehler beim Weiterblättern")
		return
	}
	transitionResponse(w, view, ok)
}

func (h *Handler) PreviousQuestion(w http.ResponseWriter, r *http.Request) {
	view, ok, err := h.player.Back(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Fehler beim Zurückblättern")
		return
	}
	transitionResponse(w, view, ok)
}

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.player.Submit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Quiz konnte nicht abgegeben werden")
		return
	}
	jsonResponse(w, view, http.StatusOK)
}

func (h *Handler) QuizHint(w http.ResponseWriter, r *http.Request) {
	hint, view, err := h.player.Hint(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Hinweis nicht verfügbar")
		return
	}
	jsonResponse(w, map[string]any{"hint": hint, "session": view}, http.StatusOK)
}

func (h *Handler) ResetQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.player.Reset(mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Quiz konnte nicht zurückgesetzt werden")
		return
	}
	jsonResponse(w, view, http.StatusOK)
}

// EndQuizSession verwirft eine Session samt Countdown
func (h *Handler) EndQuizSession(w http.ResponseWriter, r *http.Request) {
	if err := h.player.EndQuiz(mux.Vars(r)["id"]); err != nil {
		h.serviceError(w, err, "Quiz konnte nicht beendet werden")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReviewQuiz liefert die Auswertung pro Frage, erst nach der Abgabe
func (h *Handler) ReviewQuiz(w http.ResponseWriter, r *http.Request) {
	items, ok, err := h.player.Review(mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Auswertung nicht verfügbar")
		return
	}
	if !ok {
		errorResponse(w, "Quiz ist noch nicht abgegeben", http.StatusConflict)
		return
	}
	jsonResponse(w, map[string]any{
		"items":         items,
		"discrepancies": quiz.Discrepancies(items),
	}, http.StatusOK)
}
