package api

import (
	"net/http"
)

const (
	sessionName = "polnischlernen"
	sessionUser = "user_id"
)

// userID liest den Nutzer aus dem Session-Cookie. Ohne Anmeldung wird der
// Demo-Nutzer gesetzt und das Cookie erneuert.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		// Cookie mit fremdem Schlüssel, neue Session verwenden
		h.logger.Debug("Session-Cookie verworfen", "error", err)
	}
	if id, ok := session.Values[sessionUser].(string); ok && id != "" {
		return id
	}

	session.Values[sessionUser] = h.config.DemoUserID
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("Session konnte nicht gespeichert werden", "error", err)
	}
	return h.config.DemoUserID
}
