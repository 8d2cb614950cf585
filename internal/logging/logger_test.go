package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "json", "info")

	r := mux.NewRouter()
	r.Use(Middleware(logger))
	r.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	r.HandleFunc("/kaputt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/kaputt", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, float64(200), first["status"])
	assert.Equal(t, "ERROR", second["level"])
	assert.Equal(t, "/kaputt", second["path"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "text", "warn")
	logger.Info("unsichtbar")
	logger.With("komponente", "test").Warn("sichtbar")

	assert.NotContains(t, buf.String(), "unsichtbar")
	assert.Contains(t, buf.String(), "komponente=test")
}
