// Package store persists the course catalog and student histories in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"degree_planner/internal/catalog"
	"degree_planner/internal/recommender"
)

// ErrStudentNotFound is returned when a profile lookup names an unknown student.
var ErrStudentNotFound = errors.New("store: student not found")

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	course_code TEXT PRIMARY KEY,
	course_name TEXT NOT NULL DEFAULT '',
	credits     INTEGER NOT NULL CHECK (credits > 0),
	difficulty  INTEGER NOT NULL CHECK (difficulty BETWEEN 1 AND 10),
	semester    INTEGER NOT NULL CHECK (semester > 0)
);
CREATE TABLE IF NOT EXISTS prerequisites (
	course_code TEXT NOT NULL,
	prereq_code TEXT NOT NULL,
	PRIMARY KEY (course_code, prereq_code)
);
CREATE TABLE IF NOT EXISTS students (
	student_id           TEXT PRIMARY KEY,
	cgpa                 REAL NOT NULL,
	current_semester     INTEGER NOT NULL,
	on_probation         INTEGER,
	max_credits_override INTEGER
);
CREATE TABLE IF NOT EXISTS student_courses (
	student_id     TEXT NOT NULL,
	course_code    TEXT NOT NULL,
	grade          TEXT NOT NULL,
	semester_taken INTEGER
);
CREATE INDEX IF NOT EXISTS idx_student_courses_student ON student_courses (student_id);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "advisor.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// LoadCatalog reads every course and prerequisite edge. Courses keep
// insertion order.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	courses, err := s.loadCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	edges, err := s.loadPrerequisites(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prerequisites: %w", err)
	}
	return catalog.New(courses, edges)
}

func (s *Store) loadCourses(ctx context.Context) ([]catalog.Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT course_code, course_name, credits, difficulty, semester FROM courses ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Course
	for rows.Next() {
		var c catalog.Course
		if err := rows.Scan(&c.Code, &c.Name, &c.Credits, &c.Difficulty, &c.OfferedSemester); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadPrerequisites(ctx context.Context) ([]catalog.Prerequisite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT prereq_code, course_code FROM prerequisites ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Prerequisite
	for rows.Next() {
		var e catalog.Prerequisite
		if err := rows.Scan(&e.PrereqCode, &e.CourseCode); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListStudentIDs returns every student id in lexical order.
func (s *Store) ListStudentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT student_id FROM students ORDER BY student_id`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetStudentProfile builds a profile from the student's record and course
// history. Every course in the history counts as completed; D and F grades
// are backlogs; C and D grades are low grades. A missing probation flag
// defaults to cgpa < 2.0. When a course was taken more than once the
// latest grade wins.
func (s *Store) GetStudentProfile(ctx context.Context, studentID string) (*recommender.StudentProfile, error) {
	var (
		p         = &recommender.StudentProfile{StudentID: studentID}
		probation sql.NullBool
		override  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT cgpa, current_semester, on_probation, max_credits_override FROM students WHERE student_id = ?`,
		studentID,
	).Scan(&p.CGPA, &p.CurrentSemester, &probation, &override)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}
	if err != nil {
		return nil, fmt.Errorf("load student %s: %w", studentID, err)
	}

	p.OnProbation = p.CGPA < 2.0
	if probation.Valid {
		p.OnProbation = probation.Bool
	}
	if override.Valid {
		v := int(override.Int64)
		p.MaxCreditsOverride = &v
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT course_code, grade FROM student_courses WHERE student_id = ?
		 ORDER BY COALESCE(semester_taken, 0), rowid`, studentID)
	if err != nil {
		return nil, fmt.Errorf("load history of %s: %w", studentID, err)
	}
	defer rows.Close()

	p.Grades = map[string]string{}
	for rows.Next() {
		var code, grade string
		if err := rows.Scan(&code, &grade); err != nil {
			return nil, err
		}
		p.Grades[code] = grade
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	p.Completed, p.Backlogs, p.LowGrades = classify(p.Grades)
	return p, nil
}

func classify(grades map[string]string) (completed, backlogs, lowGrades catalog.Set) {
	completed, backlogs, lowGrades = catalog.NewSet(), catalog.NewSet(), catalog.NewSet()
	for code, grade := range grades {
		completed.Add(code)
		switch grade {
		case "D":
			backlogs.Add(code)
			lowGrades.Add(code)
		case "F":
			backlogs.Add(code)
		case "C":
			lowGrades.Add(code)
		}
	}
	return completed, backlogs, lowGrades
}

// CourseRecord is one course attempt in a student's history.
type CourseRecord struct {
	Code     string `yaml:"code" json:"course_code" validate:"required"`
	Grade    string `yaml:"grade" json:"grade" validate:"required,oneof=A A- B+ B B- C+ C C- D F"`
	Semester int    `yaml:"semester,omitempty" json:"semester_taken,omitempty" validate:"gte=0"`
}

// StudentRecord is a student and their history.
type StudentRecord struct {
	ID                 string         `yaml:"id" json:"student_id" validate:"required"`
	CGPA               float64        `yaml:"cgpa" json:"cgpa" validate:"gte=0,lte=4"`
	CurrentSemester    int            `yaml:"current_semester" json:"current_semester" validate:"gte=0"`
	OnProbation        *bool          `yaml:"on_probation,omitempty" json:"on_probation,omitempty"`
	MaxCreditsOverride *int           `yaml:"max_credits_override,omitempty" json:"max_credits_override,omitempty" validate:"omitempty,gt=0"`
	History            []CourseRecord `yaml:"history" json:"history" validate:"dive"`
}

// SaveCourses upserts courses and replaces their prerequisite edges.
func (s *Store) SaveCourses(ctx context.Context, courses []catalog.Course, edges []catalog.Prerequisite) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range courses {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO courses (course_code, course_name, credits, difficulty, semester) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(course_code) DO UPDATE SET course_name = excluded.course_name,
				 credits = excluded.credits, difficulty = excluded.difficulty, semester = excluded.semester`,
				c.Code, c.Name, c.Credits, c.Difficulty, c.OfferedSemester); err != nil {
				return fmt.Errorf("save course %s: %w", c.Code, err)
			}
		}
		targets := catalog.NewSet()
		for _, e := range edges {
			targets.Add(e.CourseCode)
		}
		for _, code := range targets.Sorted() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM prerequisites WHERE course_code = ?`, code); err != nil {
				return fmt.Errorf("clear prerequisites of %s: %w", code, err)
			}
		}
		for _, e := range edges {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO prerequisites (course_code, prereq_code) VALUES (?, ?)`,
				e.CourseCode, e.PrereqCode); err != nil {
				return fmt.Errorf("save prerequisite %s -> %s: %w", e.PrereqCode, e.CourseCode, err)
			}
		}
		return nil
	})
}

// SaveStudent upserts a student and replaces their history.
func (s *Store) SaveStudent(ctx context.Context, rec StudentRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return saveStudent(ctx, tx, rec)
	})
}

func saveStudent(ctx context.Context, tx *sql.Tx, rec StudentRecord) error {
	var probation, override any
	if rec.OnProbation != nil {
		probation = *rec.OnProbation
	}
	if rec.MaxCreditsOverride != nil {
		override = *rec.MaxCreditsOverride
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO students (student_id, cgpa, current_semester, on_probation, max_credits_override) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(student_id) DO UPDATE SET cgpa = excluded.cgpa, current_semester = excluded.current_semester,
		 on_probation = excluded.on_probation, max_credits_override = excluded.max_credits_override`,
		rec.ID, rec.CGPA, rec.CurrentSemester, probation, override); err != nil {
		return fmt.Errorf("save student %s: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_courses WHERE student_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clear history of %s: %w", rec.ID, err)
	}
	history := append([]CourseRecord(nil), rec.History...)
	sort.SliceStable(history, func(i, j int) bool { return history[i].Semester < history[j].Semester })
	for _, h := range history {
		var sem any
		if h.Semester > 0 {
			sem = h.Semester
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_courses (student_id, course_code, grade, semester_taken) VALUES (?, ?, ?, ?)`,
			rec.ID, h.Code, h.Grade, sem); err != nil {
			return fmt.Errorf("save history of %s: %w", rec.ID, err)
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
