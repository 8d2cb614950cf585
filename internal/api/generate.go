package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"polnischlernen/internal/llm"
)

const theoryCacheControl = "public, s-maxage=3600, stale-while-revalidate=86400"

func topicFrom(r *http.Request) string {
	return strings.TrimSpace(r.FormValue("topic"))
}

// generationError unterscheidet unbrauchbare Modellantworten von Ausfällen des Anbieters
func (h *Handler) generationError(w http.ResponseWriter, err error, msg string) {
	h.logger.LogError(err, msg)
	if errors.Is(err, llm.ErrInvalidResponse) {
		errorResponse(w, msg+": ungültige Antwort des Modells", http.StatusBadGateway)
		return
	}
	errorResponse(w, msg, http.StatusBadGateway)
}

// GenerateQuiz erstellt ein illustriertes Quiz zum Thema, optional direkt als Session
func (h *Handler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	topic := topicFrom(r)
	if topic == "" {
		errorResponse(w, "Kein Thema angegeben", http.StatusBadRequest)
		return
	}

	questions, err := h.tutor.GenerateQuiz(r.Context(), topic)
	if err != nil {
		h.generationError(w, err, "Quiz konnte nicht erstellt werden")
		return
	}

	resp := map[string]any{"topic": topic, "questions": questions}
	if r.FormValue("start") == "true" {
		view, err := h.player.StartQuiz(h.userID(w, r), topic, questions)
		if err != nil {
			h.serviceError(w, err, "Quiz-Session konnte nicht gestartet werden")
			return
		}
		resp["session"] = view
	}
	jsonResponse(w, resp, http.StatusOK)
}

// GenerateTheory liefert das Theorie-Markdown, pro Thema zwischengespeichert
func (h *Handler) GenerateTheory(w http.ResponseWriter, r *http.Request) {
	topic := topicFrom(r)
	if topic == "" {
		errorResponse(w, "Kein Thema angegeben", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	content, cached := h.theory.Get(ctx, topic)
	if !cached {
		var err error
		content, err = h.tutor.GenerateTheory(ctx, topic)
		if err != nil {
			h.generationError(w, err, "Theorie konnte nicht erstellt werden")
			return
		}
		if err := h.theory.Set(ctx, topic, content); err != nil {
			h.logger.Warn("Theorie nicht im Cache gespeichert", "topic", topic, "error", err)
		}
	}

	w.Header().Set("Cache-Control", theoryCacheControl)
	jsonResponse(w, map[string]any{
		"topic":   topic,
		"content": content,
		"cached":  cached,
	}, http.StatusOK)
}

// StreamTheory sendet das Theorie-Markdown stückweise über WebSocket
func (h *Handler) StreamTheory(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req struct {
		Topic string `json:"topic"`
	}
	if err := conn.ReadJSON(&req); err != nil {
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		conn.WriteJSON(map[string]string{"error": "Kein Thema angegeben"})
		return
	}

	// Abbruch beendet auch den Stream des Providers
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	chunks, err := h.tutor.StreamTheory(ctx, topic)
	if err != nil {
		h.logger.LogError(err, "Theorie-Stream fehlgeschlagen", "topic", topic)
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	var full strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			conn.WriteJSON(map[string]string{"error": chunk.Error.Error()})
			return
		}
		full.WriteString(chunk.Content)
		if err := conn.WriteJSON(map[string]any{
			"content": chunk.Content,
			"done":    chunk.Done,
		}); err != nil {
			return
		}
	}

	if full.Len() > 0 {
		if err := h.theory.Set(ctx, topic, full.String()); err != nil {
			h.logger.Warn("Theorie nicht im Cache gespeichert", "topic", topic, "error", err)
		}
	}
}

// GenerateAudio spricht einen polnischen Text
func (h *Handler) GenerateAudio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text" validate:"required,max=4096"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	audio, err := h.tutor.GenerateAudio(r.Context(), req.Text)
	if err != nil {
		h.generationError(w, err, "Audio konnte nicht erstellt werden")
		return
	}

	jsonResponse(w, map[string]string{
		"audioData":   base64.StdEncoding.EncodeToString(audio),
		"contentType": "audio/mp3",
	}, http.StatusOK)
}

// GenerateFlashcardImage erzeugt das Bild einer Lernkarte
func (h *Handler) GenerateFlashcardImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Word string `json:"word" validate:"required,max=200"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	url, err := h.tutor.FlashcardImage(r.Context(), req.Word)
	if err != nil {
		h.generationError(w, err, "Bild konnte nicht erstellt werden")
		return
	}
	jsonResponse(w, map[string]string{"imageUrl": url}, http.StatusOK)
}
