package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"polnischlernen/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoChannelRoundTrip(t *testing.T) {
	pub, sub, err := NewPublisher(PublisherConfig{Topic: "lernfortschritt", Logger: logging.Discard()})
	require.NoError(t, err)
	require.NotNil(t, sub)
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []*Event
	require.NoError(t, Consume(ctx, sub, "lernfortschritt", logging.Discard(), func(e *Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}))

	event := NewEvent(EventLessonCompleted, "user-1", LessonCompletedData{LessonID: "l1", Score: 90})
	require.NoError(t, pub.Publish(ctx, event))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	got := received[0]
	mu.Unlock()
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, EventLessonCompleted, got.Type)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "polnischlernen", got.Source)

	data, ok := got.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "l1", data["lesson_id"])
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	require.NoError(t, m.Publish(context.Background(), NewEvent(EventQuizSubmitted, "u", nil)))
	require.NoError(t, m.Publish(context.Background(), NewEvent(EventProgressUpdated, "u", nil)))
	assert.Equal(t, []EventType{EventQuizSubmitted, EventProgressUpdated}, m.Types())
}
