package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"polnischlernen/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStorage implementiert Storage mit SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage erstellt eine neue SQLite-Storage-Instanz
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema anlegen: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		image_url TEXT,
		level TEXT DEFAULT 'beginner',
		tags TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS modules (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		order_number INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS lessons (
		id TEXT PRIMARY KEY,
		module_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT,
		video_url TEXT,
		duration INTEGER DEFAULT 0,
		order_number INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (module_id) REFERENCES modules(id)
	);

	CREATE TABLE IF NOT EXISTS lesson_quizzes (
		id TEXT PRIMARY KEY,
		lesson_id TEXT NOT NULL UNIQUE,
		passing_score INTEGER DEFAULT 0,
		FOREIGN KEY (lesson_id) REFERENCES lessons(id)
	);

	CREATE TABLE IF NOT EXISTS lesson_questions (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		correct_answer TEXT,
		order_number INTEGER DEFAULT 0,
		FOREIGN KEY (quiz_id) REFERENCES lesson_quizzes(id)
	);

	CREATE TABLE IF NOT EXISTS quiz_options (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		text TEXT NOT NULL,
		is_correct INTEGER DEFAULT 0,
		order_number INTEGER DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES lesson_questions(id)
	);

	CREATE TABLE IF NOT EXISTS course_progress (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		module_id TEXT,
		lesson_id TEXT NOT NULL,
		completed INTEGER DEFAULT 0,
		video_watched INTEGER DEFAULT 0,
		updated_at DATETIME NOT NULL,
		UNIQUE (user_id, lesson_id)
	);

	CREATE TABLE IF NOT EXISTS quiz_attempts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		subject TEXT,
		score INTEGER,
		max_score INTEGER,
		percent INTEGER,
		passed INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_modules_course ON modules(course_id);
	CREATE INDEX IF NOT EXISTS idx_lessons_module ON lessons(module_id);
	CREATE INDEX IF NOT EXISTS idx_questions_quiz ON lesson_questions(quiz_id);
	CREATE INDEX IF NOT EXISTS idx_options_question ON quiz_options(question_id);
	CREATE INDEX IF NOT EXISTS idx_progress_course ON course_progress(user_id, course_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_user ON quiz_attempts(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// Kurse

func (s *SQLiteStorage) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, image_url, level, tags, created_at, updated_at
		FROM courses ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &c.Level, &c.Tags, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (s *SQLiteStorage) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var c models.Course
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, image_url, level, tags, created_at, updated_at
		FROM courses WHERE id = ?
	`, id).Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &c.Level, &c.Tags, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	c.Modules, err = s.modulesByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStorage) SaveCourse(ctx context.Context, c *models.Course) error {
	ensureID(&c.ID)
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Level == "" {
		c.Level = models.LevelBeginner
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO courses (id, title, description, image_url, level, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Title, c.Description, c.ImageURL, c.Level, c.Tags, c.CreatedAt, c.UpdatedAt)
	return err
}

// DeleteCourse entfernt den Kurs samt Modulen, Lektionen und Quizzen
func (s *SQLiteStorage) DeleteCourse(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM quiz_options WHERE question_id IN (
			SELECT q.id FROM lesson_questions q
			JOIN lesson_quizzes z ON z.id = q.quiz_id
			JOIN lessons l ON l.id = z.lesson_id
			JOIN modules m ON m.id = l.module_id
			WHERE m.course_id = ?)`,
		`DELETE FROM lesson_questions WHERE quiz_id IN (
			SELECT z.id FROM lesson_quizzes z
			JOIN lessons l ON l.id = z.lesson_id
			JOIN modules m ON m.id = l.module_id
			WHERE m.course_id = ?)`,
		`DELETE FROM lesson_quizzes WHERE lesson_id IN (
			SELECT l.id FROM lessons l JOIN modules m ON m.id = l.module_id WHERE m.course_id = ?)`,
		`DELETE FROM lessons WHERE module_id IN (SELECT id FROM modules WHERE course_id = ?)`,
		`DELETE FROM modules WHERE course_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Module

func (s *SQLiteStorage) SaveModule(ctx context.Context, m *models.Module) error {
	ensureID(&m.ID)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO modules (id, course_id, title, description, order_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.CourseID, m.Title, m.Description, m.Order, m.CreatedAt)
	return err
}

func (s *SQLiteStorage) GetModule(ctx context.Context, id string) (*models.Module, error) {
	var m models.Module
	err := s.db.QueryRowContext(ctx, `
		SELECT id, course_id, title, description, order_number, created_at
		FROM modules WHERE id = ?
	`, id).Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.Order, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	m.Lessons, err = s.lessonsByModule(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStorage) modulesByCourse(ctx context.Context, courseID string) ([]models.Module, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_id, title, description, order_number, created_at
		FROM modules WHERE course_id = ? ORDER BY order_number
	`, courseID)
	if err != nil {
		return nil, err
	}

	var modules []models.Module
	for rows.Next() {
		var m models.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.Order, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		modules = append(modules, m)
	}
	rows.Close()

	for i := range modules {
		modules[i].Lessons, err = s.lessonsByModule(ctx, modules[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return modules, nil
}

// Lektionen

func (s *SQLiteStorage) lessonsByModule(ctx context.Context, moduleID string) ([]models.Lesson, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, module_id, title, content, video_url, duration, order_number, created_at, updated_at
		FROM lessons WHERE module_id = ? ORDER BY order_number
	`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.ModuleID, &l.Title, &l.Content, &l.VideoURL, &l.Duration, &l.Order, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (s *SQLiteStorage) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	var l models.Lesson
	err := s.db.QueryRowContext(ctx, `
		SELECT id, module_id, title, content, video_url, duration, order_number, created_at, updated_at
		FROM lessons WHERE id = ?
	`, id).Scan(&l.ID, &l.ModuleID, &l.Title, &l.Content, &l.VideoURL, &l.Duration, &l.Order, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	quiz, err := s.GetLessonQuiz(ctx, l.ID)
	switch {
	case err == nil:
		l.Quiz = quiz
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return &l, nil
}

func (s *SQLiteStorage) SaveLesson(ctx context.Context, l *models.Lesson) error {
	ensureID(&l.ID)
	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO lessons (id, module_id, title, content, video_url, duration, order_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.ModuleID, l.Title, l.Content, l.VideoURL, l.Duration, l.Order, l.CreatedAt, l.UpdatedAt)
	return err
}

// Lektionsquiz

func (s *SQLiteStorage) GetLessonQuiz(ctx context.Context, lessonID string) (*models.LessonQuiz, error) {
	var q models.LessonQuiz
	err := s.db.QueryRowContext(ctx, `
		SELECT id, lesson_id, passing_score FROM lesson_quizzes WHERE lesson_id = ?
	`, lessonID).Scan(&q.ID, &q.LessonID, &q.PassingScore)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quiz_id, text, type, correct_answer, order_number
		FROM lesson_questions WHERE quiz_id = ? ORDER BY order_number
	`, q.ID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var lq models.LessonQuestion
		var correct sql.NullString
		if err := rows.Scan(&lq.ID, &lq.QuizID, &lq.Text, &lq.Type, &correct, &lq.Order); err != nil {
			rows.Close()
			return nil, err
		}
		lq.CorrectAnswer = correct.String
		q.Questions = append(q.Questions, lq)
	}
	rows.Close()

	for i := range q.Questions {
		opts, err := s.optionsByQuestion(ctx, q.Questions[i].ID)
		if err != nil {
			return nil, err
		}
		q.Questions[i].Options = opts
	}
	return &q, nil
}

func (s *SQLiteStorage) optionsByQuestion(ctx context.Context, questionID string) ([]models.QuizOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_id, text, is_correct, order_number
		FROM quiz_options WHERE question_id = ? ORDER BY order_number
	`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []models.QuizOption
	for rows.Next() {
		var o models.QuizOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect, &o.Order); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// SaveLessonQuiz ersetzt das Quiz einer Lektion komplett
func (s *SQLiteStorage) SaveLessonQuiz(ctx context.Context, q *models.LessonQuiz) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM lesson_quizzes WHERE lesson_id = ?`, q.LessonID).Scan(&existing)
	switch {
	case err == nil:
		for _, stmt := range []string{
			`DELETE FROM quiz_options WHERE question_id IN (SELECT id FROM lesson_questions WHERE quiz_id = ?)`,
			`DELETE FROM lesson_questions WHERE quiz_id = ?`,
			`DELETE FROM lesson_quizzes WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, existing); err != nil {
				return err
			}
		}
		if q.ID == "" {
			q.ID = existing
		}
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	ensureID(&q.ID)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO lesson_quizzes (id, lesson_id, passing_score) VALUES (?, ?, ?)
	`, q.ID, q.LessonID, q.PassingScore); err != nil {
		return err
	}

	for i := range q.Questions {
		lq := &q.Questions[i]
		ensureID(&lq.ID)
		lq.QuizID = q.ID
		lq.Order = i
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lesson_questions (id, quiz_id, text, type, correct_answer, order_number)
			VALUES (?, ?, ?, ?, ?, ?)
		`, lq.ID, lq.QuizID, lq.Text, lq.Type, lq.CorrectAnswer, lq.Order); err != nil {
			return err
		}
		for j := range lq.Options {
			o := &lq.Options[j]
			ensureID(&o.ID)
			o.QuestionID = lq.ID
			o.Order = j
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO quiz_options (id, question_id, text, is_correct, order_number)
				VALUES (?, ?, ?, ?, ?)
			`, o.ID, o.QuestionID, o.Text, o.IsCorrect, o.Order); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Fortschritt

func (s *SQLiteStorage) SaveProgress(ctx context.Context, p *models.CourseProgress) error {
	if p.ID == "" {
		if existing, err := s.GetProgress(ctx, p.UserID, p.LessonID); err == nil {
			p.ID = existing.ID
		}
	}
	ensureID(&p.ID)
	p.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO course_progress (id, user_id, course_id, module_id, lesson_id, completed, video_watched, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.UserID, p.CourseID, p.ModuleID, p.LessonID, p.Completed, p.VideoWatched, p.UpdatedAt)
	return err
}

func (s *SQLiteStorage) GetProgress(ctx context.Context, userID, lessonID string) (*models.CourseProgress, error) {
	var p models.CourseProgress
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, course_id, module_id, lesson_id, completed, video_watched, updated_at
		FROM course_progress WHERE user_id = ? AND lesson_id = ?
	`, userID, lessonID).Scan(&p.ID, &p.UserID, &p.CourseID, &p.ModuleID, &p.LessonID, &p.Completed, &p.VideoWatched, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ListProgress liefert alle Einträge eines Nutzers, optional auf einen Kurs begrenzt
func (s *SQLiteStorage) ListProgress(ctx context.Context, userID, courseID string) ([]models.CourseProgress, error) {
	query := `
		SELECT id, user_id, course_id, module_id, lesson_id, completed, video_watched, updated_at
		FROM course_progress WHERE user_id = ?`
	args := []any{userID}
	if courseID != "" {
		query += ` AND course_id = ?`
		args = append(args, courseID)
	}
	query += ` ORDER BY updated_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.CourseProgress
	for rows.Next() {
		var p models.CourseProgress
		if err := rows.Scan(&p.ID, &p.UserID, &p.CourseID, &p.ModuleID, &p.LessonID, &p.Completed, &p.VideoWatched, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// DeleteProgress entfernt alle Fortschrittseinträge eines Nutzers und liefert deren Anzahl
func (s *SQLiteStorage) DeleteProgress(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM course_progress WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Quizversuche

func (s *SQLiteStorage) SaveQuizAttempt(ctx context.Context, a *models.QuizAttempt) error {
	ensureID(&a.ID)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quiz_attempts (id, user_id, kind, subject, score, max_score, percent, passed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Kind, a.Subject, a.Score, a.MaxScore, a.Percent, a.Passed, a.CreatedAt)
	return err
}

func (s *SQLiteStorage) ListQuizAttempts(ctx context.Context, userID string) ([]models.QuizAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, subject, score, max_score, percent, passed, created_at
		FROM quiz_attempts WHERE user_id = ? ORDER BY created_at, rowid
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.QuizAttempt
	for rows.Next() {
		var a models.QuizAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Subject, &a.Score, &a.MaxScore, &a.Percent, &a.Passed, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
