package storage

import (
	"context"
	"errors"

	"polnischlernen/internal/models"
)

// ErrNotFound wird von allen Implementierungen für fehlende Datensätze geliefert
var ErrNotFound = errors.New("datensatz nicht gefunden")

// Storage definiert das Interface für Datenpersistenz
type Storage interface {
	// Kurse
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	SaveCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id string) error

	// Module
	SaveModule(ctx context.Context, module *models.Module) error
	GetModule(ctx context.Context, id string) (*models.Module, error)

	// Lektionen
	GetLesson(ctx context.Context, id string) (*models.Lesson, error)
	SaveLesson(ctx context.Context, lesson *models.Lesson) error

	// Lektionsquiz
	GetLessonQuiz(ctx context.Context, lessonID string) (*models.LessonQuiz, error)
	SaveLessonQuiz(ctx context.Context, quiz *models.LessonQuiz) error

	// Fortschritt
	SaveProgress(ctx context.Context, p *models.CourseProgress) error
	GetProgress(ctx context.Context, userID, lessonID string) (*models.CourseProgress, error)
	ListProgress(ctx context.Context, userID, courseID string) ([]models.CourseProgress, error)
	DeleteProgress(ctx context.Context, userID string) (int, error)

	// Quizversuche
	SaveQuizAttempt(ctx context.Context, a *models.QuizAttempt) error
	ListQuizAttempts(ctx context.Context, userID string) ([]models.QuizAttempt, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open wählt die Implementierung anhand des Treibers
func Open(driver, path, url string) (Storage, error) {
	switch driver {
	case "postgres":
		return NewPostgresStorage(url)
	default:
		return NewSQLiteStorage(path)
	}
}
