package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"polnischlernen/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSEChunk(w http.ResponseWriter, content string) {
	fmt.Fprintf(w, "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"test\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", content)
}

// sseServer hält die erste Anfrage nach vollem Puffer offen, weitere Anfragen enden normal
func sseServer(t *testing.T, firstChunks int) *httptest.Server {
	t.Helper()
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		if requests.Add(1) == 1 {
			for i := 0; i < firstChunks; i++ {
				writeSSEChunk(w, "x")
			}
			flusher.Flush()
			<-r.Context().Done()
			return
		}
		writeSSEChunk(w, "dzień dobry")
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatStream_AbandonedStreamReleasesSlot(t *testing.T) {
	srv := sseServer(t, 100)
	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:        "test",
		BaseURL:       srv.URL + "/v1",
		ChatModel:     "test",
		MaxConcurrent: 1,
	}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	abandoned, err := p.ChatStream(ctx, []ChatMessage{User("Hallo")}, nil)
	require.NoError(t, err)

	// Puffer voll, niemand liest mehr
	assert.Eventually(t, func() bool { return len(abandoned) == cap(abandoned) }, 2*time.Second, 10*time.Millisecond)
	cancel()

	next, cancelNext := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelNext()
	chunks, err := p.ChatStream(next, []ChatMessage{User("Hallo")}, nil)
	require.NoError(t, err, "Slot des abgebrochenen Streams muss frei werden")

	var content string
	var done bool
	for chunk := range chunks {
		require.NoError(t, chunk.Error)
		content += chunk.Content
		done = done || chunk.Done
	}
	assert.Equal(t, "dzień dobry", content)
	assert.True(t, done)
}
