package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateCourse is returned when two catalog records share a code.
	ErrDuplicateCourse = errors.New("catalog: duplicate course code")
	// ErrUnknownCourse is returned when a query names a code that is not in the graph.
	ErrUnknownCourse = errors.New("catalog: unknown course")
)

// Course is one immutable catalog record.
type Course struct {
	Code            string `json:"course_code" yaml:"code" validate:"required"`
	Name            string `json:"course_name" yaml:"name"`
	Credits         int    `json:"credits" yaml:"credits" validate:"gt=0"`
	Difficulty      int    `json:"difficulty" yaml:"difficulty" validate:"min=1,max=10"`
	OfferedSemester int    `json:"semester" yaml:"semester" validate:"gt=0"`
}

// Prerequisite is a directed edge: PrereqCode must be completed before CourseCode.
type Prerequisite struct {
	PrereqCode string `json:"prereq_code" yaml:"prereq" validate:"required"`
	CourseCode string `json:"course_code" yaml:"course" validate:"required"`
}

// Catalog holds the course records and the prerequisite graph built over them.
// It has no mutation API and is shared read-only between requests.
type Catalog struct {
	courses map[string]Course
	order   []string
	graph   *PrerequisiteGraph
}

// New builds a catalog from validated course records and prerequisite edges.
// Courses keep the order they were supplied in.
func New(courses []Course, edges []Prerequisite) (*Catalog, error) {
	byCode := make(map[string]Course, len(courses))
	order := make([]string, 0, len(courses))
	for _, c := range courses {
		if _, exists := byCode[c.Code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCourse, c.Code)
		}
		byCode[c.Code] = c
		order = append(order, c.Code)
	}
	return &Catalog{
		courses: byCode,
		order:   order,
		graph:   NewPrerequisiteGraph(order, edges),
	}, nil
}

// Course looks up a course by code.
func (c *Catalog) Course(code string) (Course, bool) {
	course, ok := c.courses[code]
	return course, ok
}

// Courses returns every course in catalog order.
func (c *Catalog) Courses() []Course {
	out := make([]Course, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.courses[code])
	}
	return out
}

// Codes returns every course code in catalog order.
func (c *Catalog) Codes() []string {
	return append([]string(nil), c.order...)
}

// Len reports the number of courses.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Graph returns the prerequisite graph.
func (c *Catalog) Graph() *PrerequisiteGraph {
	return c.graph
}

// CreditsOf sums the credits of the given codes, ignoring codes outside the catalog.
func (c *Catalog) CreditsOf(codes Set) int {
	total := 0
	for code := range codes {
		if course, ok := c.courses[code]; ok {
			total += course.Credits
		}
	}
	return total
}

// Set is an unordered collection of course codes.
type Set map[string]struct{}

// NewSet builds a set from codes.
func NewSet(codes ...string) Set {
	s := make(Set, len(codes))
	for _, code := range codes {
		s[code] = struct{}{}
	}
	return s
}

// Has reports whether code is in the set. A nil set is empty.
func (s Set) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Add inserts code.
func (s Set) Add(code string) {
	s[code] = struct{}{}
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for code := range s {
		out[code] = struct{}{}
	}
	return out
}

// Minus returns the codes in s that are not in other.
func (s Set) Minus(other Set) Set {
	out := make(Set)
	for code := range s {
		if !other.Has(code) {
			out[code] = struct{}{}
		}
	}
	return out
}

// Sorted returns the codes in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for code := range s {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
