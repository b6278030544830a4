package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"degree_planner/internal/catalog"
)

// Fixture is a YAML document holding a catalog and student histories.
//
//	courses:
//	  - {code: CS101, name: Programming I, credits: 4, difficulty: 5, semester: 1}
//	prerequisites:
//	  - {prereq: CS101, course: CS102}
//	students:
//	  - id: S001
//	    cgpa: 2.8
//	    current_semester: 3
//	    history:
//	      - {code: CS101, grade: B, semester: 1}
type Fixture struct {
	Courses       []catalog.Course       `yaml:"courses" validate:"dive"`
	Prerequisites []catalog.Prerequisite `yaml:"prerequisites" validate:"dive"`
	Students      []StudentRecord        `yaml:"students" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeFixture parses and validates a fixture. Unknown keys are rejected.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	// building the catalog catches duplicate codes
	if _, err := catalog.New(f.Courses, f.Prerequisites); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer file.Close()
	return DecodeFixture(file)
}

// ImportFixture writes a fixture in one transaction per section.
func (s *Store) ImportFixture(ctx context.Context, f *Fixture) error {
	if err := s.SaveCourses(ctx, f.Courses, f.Prerequisites); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range f.Students {
			if err := saveStudent(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}
