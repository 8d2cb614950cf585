package models

import (
	"time"

	"gorm.io/datatypes"
)

// Level ist die Niveaustufe eines Kurses
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Course repräsentiert einen Sprachkurs
type Course struct {
	ID          string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title       string                      `json:"title" gorm:"not null" validate:"required,max=200"`
	Description string                      `json:"description"`
	ImageURL    string                      `json:"image_url"`
	Level       Level                       `json:"level" gorm:"type:varchar(20);default:beginner" validate:"omitempty,oneof=beginner intermediate advanced"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	Modules     []Module                    `json:"modules,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

// Module gliedert einen Kurs in Kapitel
type Module struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CourseID    string    `json:"course_id" gorm:"index;not null"`
	Title       string    `json:"title" gorm:"not null" validate:"required,max=200"`
	Description string    `json:"description"`
	Order       int       `json:"order_number" gorm:"column:order_number"`
	CreatedAt   time.Time `json:"created_at"`
	Lessons     []Lesson  `json:"lessons,omitempty" gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
}

// Lesson ist eine einzelne Lektion mit Text und optionalem Video
type Lesson struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ModuleID  string      `json:"module_id" gorm:"index;not null"`
	Title     string      `json:"title" gorm:"not null" validate:"required,max=200"`
	Content   string      `json:"content"`
	VideoURL  string      `json:"video_url"`
	Duration  int         `json:"duration"` // Minuten
	Order     int         `json:"order_number" gorm:"column:order_number"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Quiz      *LessonQuiz `json:"quiz,omitempty" gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE"`
}

// QuestionType ist der Typ einer Lektionsfrage
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionText     QuestionType = "text"
)

// LessonQuiz ist das Abschlussquiz einer Lektion
type LessonQuiz struct {
	ID           string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	LessonID     string           `json:"lesson_id" gorm:"uniqueIndex;not null"`
	PassingScore int              `json:"passing_score" validate:"min=0,max=100"`
	Questions    []LessonQuestion `json:"questions" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" validate:"required,min=1,dive"`
}

// LessonQuestion ist eine Frage im Lektionsquiz
type LessonQuestion struct {
	ID            string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	QuizID        string       `json:"quiz_id" gorm:"index;not null"`
	Text          string       `json:"text" validate:"required"`
	Type          QuestionType `json:"type" gorm:"type:varchar(10)" validate:"required,oneof=single multiple text"`
	CorrectAnswer string       `json:"correct_answer,omitempty" validate:"required_if=Type text"`
	Order         int          `json:"order_number" gorm:"column:order_number"`
	Options       []QuizOption `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" validate:"dive"`
}

// QuizOption ist eine Antwortmöglichkeit
type QuizOption struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	QuestionID string `json:"question_id" gorm:"index;not null"`
	Text       string `json:"text" validate:"required"`
	IsCorrect  bool   `json:"is_correct"`
	Order      int    `json:"order_number" gorm:"column:order_number"`
}

// CourseProgress ist der Stand eines Nutzers für eine Lektion
type CourseProgress struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string    `json:"user_id" gorm:"uniqueIndex:idx_progress_user_lesson;not null"`
	CourseID     string    `json:"course_id" gorm:"index;not null"`
	ModuleID     string    `json:"module_id"`
	LessonID     string    `json:"lesson_id" gorm:"uniqueIndex:idx_progress_user_lesson;not null"`
	Completed    bool      `json:"completed"`
	VideoWatched bool      `json:"video_watched"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (CourseProgress) TableName() string { return "course_progress" }

// AttemptKind unterscheidet Lektionsquiz und generiertes Themenquiz
type AttemptKind string

const (
	AttemptLesson AttemptKind = "lesson"
	AttemptTopic  AttemptKind = "topic"
)

// QuizAttempt ist ein abgeschlossener Quizversuch
type QuizAttempt struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string      `json:"user_id" gorm:"index;not null"`
	Kind      AttemptKind `json:"kind" gorm:"type:varchar(10)"`
	Subject   string      `json:"subject"` // Lektions-ID oder Thema
	Score     int         `json:"score"`
	MaxScore  int         `json:"max_score"`
	Percent   int         `json:"percent"`
	Passed    bool        `json:"passed"`
	CreatedAt time.Time   `json:"created_at"`
}

// CompletionRecord ist der gespeicherte Abschluss eines Lektionsquiz
type CompletionRecord struct {
	Completed bool      `json:"completed"`
	Score     int       `json:"score"`
	Date      time.Time `json:"date"`
}

// CourseProgressSummary fasst den Fortschritt eines Nutzers in einem Kurs zusammen
type CourseProgressSummary struct {
	CourseID         string   `json:"course_id"`
	CompletedLessons []string `json:"completed_lessons"`
	TotalLessons     int      `json:"total_lessons"`
	Percent          int      `json:"percent"`
}
