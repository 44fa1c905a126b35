// Package store persists exams and graded submissions in SQLite. Every
// notification the hub publishes corresponds to a row written here first.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Exam statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Exam struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	InstructorID string    `json:"instructorId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Submission struct {
	ID          string    `json:"id"`
	ExamID      string    `json:"examId"`
	StudentName string    `json:"studentName"`
	Score       float64   `json:"score"`
	GradedAt    time.Time `json:"gradedAt"`
}

const schema = `
CREATE TABLE IF NOT EXISTS exams (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	status        TEXT NOT NULL,
	instructor_id TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
	id           TEXT PRIMARY KEY,
	exam_id      TEXT NOT NULL REFERENCES exams(id),
	student_name TEXT NOT NULL,
	score        REAL NOT NULL,
	graded_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exams_instructor ON exams(instructor_id);
CREATE INDEX IF NOT EXISTS idx_submissions_exam ON submissions(exam_id);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateExam(ctx context.Context, title, status, instructorID string) (Exam, error) {
	exam := Exam{
		ID:           uuid.New().String(),
		Title:        title,
		Status:       status,
		InstructorID: instructorID,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exams (id, title, status, instructor_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		exam.ID, exam.Title, exam.Status, exam.InstructorID, exam.CreatedAt)
	if err != nil {
		return Exam{}, fmt.Errorf("inserting exam: %w", err)
	}
	return exam, nil
}

func (s *Store) GetExam(ctx context.Context, id string) (Exam, error) {
	var exam Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, status, instructor_id, created_at FROM exams WHERE id = ?`, id).
		Scan(&exam.ID, &exam.Title, &exam.Status, &exam.InstructorID, &exam.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, ErrExamNotFound
	}
	if err != nil {
		return Exam{}, fmt.Errorf("loading exam %s: %w", id, err)
	}
	return exam, nil
}

func (s *Store) UpdateExamStatus(ctx context.Context, id, status string) (Exam, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exams SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return Exam{}, fmt.Errorf("updating exam %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Exam{}, ErrExamNotFound
	}
	return s.GetExam(ctx, id)
}

func (s *Store) AddSubmission(ctx context.Context, examID, studentName string, score float64) (Submission, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return Submission{}, err
	}
	sub := Submission{
		ID:          uuid.New().String(),
		ExamID:      examID,
		StudentName: studentName,
		Score:       score,
		GradedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, exam_id, student_name, score, graded_at) VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.ExamID, sub.StudentName, sub.Score, sub.GradedAt)
	if err != nil {
		return Submission{}, fmt.Errorf("inserting submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns a graded exam's submissions, newest first.
func (s *Store) ListSubmissions(ctx context.Context, examID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, student_name, score, graded_at
		 FROM submissions WHERE exam_id = ? ORDER BY graded_at DESC`, examID)
	if err != nil {
		return nil, fmt.Errorf("listing submissions for %s: %w", examID, err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.ExamID, &sub.StudentName, &sub.Score, &sub.GradedAt); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
