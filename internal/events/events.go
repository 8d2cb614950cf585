package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType bezeichnet die Art eines Lernereignisses
type EventType string

const (
	EventQuizSubmitted        EventType = "quiz.submitted"
	EventLessonCompleted      EventType = "lesson.completed"
	EventProgressUpdated      EventType = "progress.updated"
	EventProgressReset        EventType = "progress.reset"
	EventTheoryPhaseCompleted EventType = "theory.phase_completed"
)

const (
	eventSource  = "polnischlernen"
	eventVersion = "1.0"
)

// Event ist die gemeinsame Hülle aller Ereignisse
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	UserID    string    `json:"user_id"`
	Data      any       `json:"data"`
}

func NewEvent(t EventType, userID string, data any) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		UserID:    userID,
		Data:      data,
	}
}

// Nutzdaten

type QuizSubmittedData struct {
	Kind     string `json:"kind"` // lesson oder topic
	Subject  string `json:"subject"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Percent  int    `json:"percent"`
	Passed   bool   `json:"passed"`
}

type LessonCompletedData struct {
	CourseID string `json:"course_id,omitempty"`
	LessonID string `json:"lesson_id"`
	Score    int    `json:"score"`
}

type ProgressUpdatedData struct {
	CourseID     string `json:"course_id"`
	LessonID     string `json:"lesson_id"`
	Completed    bool   `json:"completed"`
	VideoWatched bool   `json:"video_watched"`
}

type ProgressResetData struct {
	Lessons int `json:"lessons"`
}

type TheoryPhaseCompletedData struct {
	WizardID string `json:"wizard_id"`
	Title    string `json:"title"`
	Phase    string `json:"phase"`
}
