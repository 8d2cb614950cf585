package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"polnischlernen/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PostgresStorage implementiert Storage über gorm, kompatibel mit Supabase
type PostgresStorage struct {
	db *gorm.DB
}

// NewPostgresStorage verbindet sich und migriert das Schema
func NewPostgresStorage(databaseURL string) (*PostgresStorage, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL fehlt")
	}
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres verbinden: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Course{},
		&models.Module{},
		&models.Lesson{},
		&models.LessonQuiz{},
		&models.LessonQuestion{},
		&models.QuizOption{},
		&models.CourseProgress{},
		&models.QuizAttempt{},
	); err != nil {
		return nil, fmt.Errorf("schema migrieren: %w", err)
	}

	return &PostgresStorage{db: db}, nil
}

func gormNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func byOrder(db *gorm.DB) *gorm.DB {
	return db.Order("order_number ASC")
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *PostgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Kurse

func (p *PostgresStorage) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses := []models.Course{}
	err := p.db.WithContext(ctx).Order("created_at ASC").Find(&courses).Error
	return courses, err
}

func (p *PostgresStorage) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := p.db.WithContext(ctx).
		Preload("Modules", byOrder).
		Preload("Modules.Lessons", byOrder).
		First(&course, "id = ?", id).Error
	if err != nil {
		return nil, gormNotFound(err)
	}
	return &course, nil
}

func (p *PostgresStorage) SaveCourse(ctx context.Context, c *models.Course) error {
	ensureID(&c.ID)
	if c.Level == "" {
		c.Level = models.LevelBeginner
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return p.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error
}

func (p *PostgresStorage) DeleteCourse(ctx context.Context, id string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moduleIDs := tx.Model(&models.Module{}).Select("id").Where("course_id = ?", id)
		lessonIDs := tx.Model(&models.Lesson{}).Select("id").Where("module_id IN (?)", moduleIDs)
		quizIDs := tx.Model(&models.LessonQuiz{}).Select("id").Where("lesson_id IN (?)", lessonIDs)
		questionIDs := tx.Model(&models.LessonQuestion{}).Select("id").Where("quiz_id IN (?)", quizIDs)

		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&models.QuizOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id IN (?)", quizIDs).Delete(&models.LessonQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id IN (?)", lessonIDs).Delete(&models.LessonQuiz{}).Error; err != nil {
			return err
		}
		if err := tx.Where("module_id IN (?)", moduleIDs).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Module{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Course{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Module

func (p *PostgresStorage) SaveModule(ctx context.Context, m *models.Module) error {
	ensureID(&m.ID)
	return p.db.WithContext(ctx).Omit(clause.Associations).Save(m).Error
}

func (p *PostgresStorage) GetModule(ctx context.Context, id string) (*models.Module, error) {
	var m models.Module
	err := p.db.WithContext(ctx).Preload("Lessons", byOrder).First(&m, "id = ?", id).Error
	if err != nil {
		return nil, gormNotFound(err)
	}
	return &m, nil
}

// Lektionen

func (p *PostgresStorage) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	var l models.Lesson
	err := p.db.WithContext(ctx).
		Preload("Quiz").
		Preload("Quiz.Questions", byOrder).
		Preload("Quiz.Questions.Options", byOrder).
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, gormNotFound(err)
	}
	return &l, nil
}

func (p *PostgresStorage) SaveLesson(ctx context.Context, l *models.Lesson) error {
	ensureID(&l.ID)
	return p.db.WithContext(ctx).Omit(clause.Associations).Save(l).Error
}

// Lektionsquiz

func (p *PostgresStorage) GetLessonQuiz(ctx context.Context, lessonID string) (*models.LessonQuiz, error) {
	var q models.LessonQuiz
	err := p.db.WithContext(ctx).
		Preload("Questions", byOrder).
		Preload("Questions.Options", byOrder).
		First(&q, "lesson_id = ?", lessonID).Error
	if err != nil {
		return nil, gormNotFound(err)
	}
	return &q, nil
}

func (p *PostgresStorage) SaveLessonQuiz(ctx context.Context, q *models.LessonQuiz) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.LessonQuiz
		err := tx.Where("lesson_id = ?", q.LessonID).First(&existing).Error
		switch {
		case err == nil:
			questionIDs := tx.Model(&models.LessonQuestion{}).Select("id").Where("quiz_id = ?", existing.ID)
			if err := tx.Where("question_id IN (?)", questionIDs).Delete(&models.QuizOption{}).Error; err != nil {
				return err
			}
			if err := tx.Where("quiz_id = ?", existing.ID).Delete(&models.LessonQuestion{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if q.ID == "" {
				q.ID = existing.ID
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		ensureID(&q.ID)
		for i := range q.Questions {
			lq := &q.Questions[i]
			ensureID(&lq.ID)
			lq.QuizID = q.ID
			lq.Order = i
			for j := range lq.Options {
				ensureID(&lq.Options[j].ID)
				lq.Options[j].QuestionID = lq.ID
				lq.Options[j].Order = j
			}
		}
		return tx.Create(q).Error
	})
}

// Fortschritt

func (p *PostgresStorage) SaveProgress(ctx context.Context, cp *models.CourseProgress) error {
	ensureID(&cp.ID)
	cp.UpdatedAt = time.Now()
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"course_id", "module_id", "completed", "video_watched", "updated_at"}),
	}).Create(cp).Error
}

func (p *PostgresStorage) GetProgress(ctx context.Context, userID, lessonID string) (*models.CourseProgress, error) {
	var cp models.CourseProgress
	err := p.db.WithContext(ctx).First(&cp, "user_id = ? AND lesson_id = ?", userID, lessonID).Error
	if err != nil {
		return nil, gormNotFound(err)
	}
	return &cp, nil
}

func (p *PostgresStorage) ListProgress(ctx context.Context, userID, courseID string) ([]models.CourseProgress, error) {
	var list []models.CourseProgress
	query := p.db.WithContext(ctx).Where("user_id = ?", userID)
	if courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}
	err := query.Order("updated_at ASC").Find(&list).Error
	return list, err
}

func (p *PostgresStorage) DeleteProgress(ctx context.Context, userID string) (int, error) {
	res := p.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CourseProgress{})
	return int(res.RowsAffected), res.Error
}

// Quizversuche

func (p *PostgresStorage) SaveQuizAttempt(ctx context.Context, a *models.QuizAttempt) error {
	ensureID(&a.ID)
	return p.db.WithContext(ctx).Create(a).Error
}

func (p *PostgresStorage) ListQuizAttempts(ctx context.Context, userID string) ([]models.QuizAttempt, error) {
	var list []models.QuizAttempt
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&list).Error
	return list, err
}
