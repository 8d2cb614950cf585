package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"polnischlernen/internal/quiz"
	"polnischlernen/internal/theory"

	"github.com/gorilla/mux"
)

// === Theorie-Assistent Endpoints ===

func (h *Handler) CreateWizard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic    string   `json:"topic"`
		Markdown string   `json:"markdown"`
		Quiz     quiz.Set `json:"quiz"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		errorResponse(w, "Kein Theorietext angegeben", http.StatusBadRequest)
		return
	}

	handoff := req.Quiz
	if len(handoff) == 0 {
		handoff = nil
	}
	view, err := h.player.StartWizard(h.userID(w, r), strings.TrimSpace(req.Topic), req.Markdown, handoff)
	if err != nil {
		h.serviceError(w, err, "Theorie-Assistent konnte nicht gestartet werden")
		return
	}
	jsonResponse(w, view, http.StatusCreated)
}

func (h *Handler) GetWizard(w http.ResponseWriter, r *http.Request) {
	view, err := h.player.Wizard(mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Fehler beim Laden des Theorie-Assistenten")
		return
	}
	jsonResponse(w, view, http.StatusOK)
}

// GoToPhase springt zu einer erreichbaren Phase
func (h *Handler) GoToPhase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase theory.Phase `json:"phase" validate:"required,oneof=theory theory-practice flashcards grammar grammar-practice"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	view, ok, err := h.player.GoToPhase(r.Context(), mux.Vars(r)["id"], req.Phase)
	if err != nil {
		h.serviceError(w, err, "Phasenwechsel fehlgeschlagen")
		return
	}
	transitionResponse(w, view, ok)
}

// CompletePhase schließt die aktuelle Phase ab; in der letzten Phase startet das Quiz
func (h *Handler) CompletePhase(w http.ResponseWriter, r *http.Request) {
	view, handedOff, err := h.player.CompletePhase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Phase konnte nicht abgeschlossen werden")
		return
	}
	jsonResponse(w, map[string]any{"wizard": view, "handedOff": handedOff}, http.StatusOK)
}

func (h *Handler) CheckExercises(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	view, res, ok, err := h.player.CheckExercises(r.Context(), mux.Vars(r)["id"], req.Answers)
	if err != nil {
		h.serviceError(w, err, "Übungen konnten nicht geprüft werden")
		return
	}
	transitionResponse(w, map[string]any{"wizard": view, "result": res}, ok)
}

func (h *Handler) SkipExercises(w http.ResponseWriter, r *http.Request) {
	view, ok, err := h.player.SkipExercises(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "Übungen konnten nicht übersprungen werden")
		return
	}
	transitionResponse(w, view, ok)
}

func (h *Handler) EndWizard(w http.ResponseWriter, r *http.Request) {
	if err := h.player.EndWizard(mux.Vars(r)["id"]); err != nil {
		h.serviceError(w, err, "Theorie-Assistent konnte nicht beendet werden")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
