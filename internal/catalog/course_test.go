package catalog

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Catalog", func() {
	courses := []Course{
		{Code: "A", Name: "Intro", Credits: 3, Difficulty: 2, OfferedSemester: 1},
		{Code: "B", Name: "Next", Credits: 3, Difficulty: 5, OfferedSemester: 2},
		{Code: "C", Name: "Side", Credits: 4, Difficulty: 3, OfferedSemester: 2},
	}

	It("should keep supplied order and look courses up by code", func() {
		cat, err := New(courses, []Prerequisite{{PrereqCode: "A", CourseCode: "B"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(cat.Codes()).To(Equal([]string{"A", "B", "C"}))
		Expect(cat.Len()).To(Equal(3))
		b, ok := cat.Course("B")
		Expect(ok).To(BeTrue())
		Expect(b.Credits).To(Equal(3))
		Expect(cat.Graph().Predecessors("B")).To(Equal([]string{"A"}))
	})

	It("should reject duplicate codes", func() {
		_, err := New(append(courses, courses[0]), nil)
		Expect(errors.Is(err, ErrDuplicateCourse)).To(BeTrue())
	})

	It("should sum credits of known codes only", func() {
		cat, err := New(courses, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cat.CreditsOf(NewSet("A", "C", "ZZZ"))).To(Equal(7))
	})

	Describe("Set", func() {
		It("should support set algebra without aliasing", func() {
			s := NewSet("A", "B")
			clone := s.Clone()
			clone.Add("C")
			Expect(s.Has("C")).To(BeFalse())
			Expect(clone.Minus(s).Sorted()).To(Equal([]string{"C"}))
			var empty Set
			Expect(empty.Has("A")).To(BeFalse())
		})
	})
})
