package catalog

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func edges(pairs ...string) []Prerequisite {
	out := make([]Prerequisite, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Prerequisite{PrereqCode: pairs[i], CourseCode: pairs[i+1]})
	}
	return out
}

// indexOf returns the position of code in order, or -1.
func indexOf(order []string, code string) int {
	for i, c := range order {
		if c == code {
			return i
		}
	}
	return -1
}

var _ = Describe("PrerequisiteGraph", func() {
	var g *PrerequisiteGraph

	BeforeEach(func() {
		// CS101 -> CS201 -> CS301 -> CS401
		//        \-> CS202 -/
		// MA101 -> CS301, ISO100 isolated
		g = NewPrerequisiteGraph(
			[]string{"CS101", "CS201", "CS202", "CS301", "CS401", "MA101", "ISO100"},
			edges(
				"CS101", "CS201",
				"CS101", "CS202",
				"CS201", "CS301",
				"CS202", "CS301",
				"MA101", "CS301",
				"CS301", "CS401",
			),
		)
	})

	Context("with an acyclic catalog", func() {
		It("should validate cleanly", func() {
			Expect(g.Validate()).To(Succeed())
		})

		It("should keep isolated courses as nodes", func() {
			Expect(g.Has("ISO100")).To(BeTrue())
			Expect(g.Predecessors("ISO100")).To(BeEmpty())
			Expect(g.Descendants("ISO100")).To(BeEmpty())
		})

		It("should return direct predecessors in lexical order", func() {
			Expect(g.Predecessors("CS301")).To(Equal([]string{"CS201", "CS202", "MA101"}))
			Expect(g.Predecessors("CS101")).To(BeEmpty())
		})

		It("should return transitive ancestors", func() {
			Expect(g.Ancestors("CS401").Sorted()).To(Equal([]string{"CS101", "CS201", "CS202", "CS301", "MA101"}))
		})

		It("should return transitive descendants as unlock power", func() {
			Expect(g.Descendants("CS101").Sorted()).To(Equal([]string{"CS201", "CS202", "CS301", "CS401"}))
			Expect(g.UnlockPower("CS101")).To(Equal(4))
			Expect(g.UnlockPower("CS401")).To(Equal(0))
		})

		It("should order a subset respecting every edge", func() {
			subset := NewSet("CS401", "CS301", "CS201", "CS101", "MA101")
			order, err := g.TopologicalOrder(subset)
			Expect(err).NotTo(HaveOccurred())
			Expect(order).To(HaveLen(5))
			for _, e := range edges("CS101", "CS201", "CS201", "CS301", "MA101", "CS301", "CS301", "CS401") {
				Expect(indexOf(order, e.PrereqCode)).To(BeNumerically("<", indexOf(order, e.CourseCode)))
			}
		})

		It("should reject unknown codes", func() {
			_, err := g.TopologicalOrder(NewSet("NOPE"))
			Expect(errors.Is(err, ErrUnknownCourse)).To(BeTrue())
		})

		It("should answer empty sets for unknown codes in reachability queries", func() {
			Expect(g.Ancestors("NOPE")).To(BeEmpty())
			Expect(g.Predecessors("NOPE")).To(BeNil())
		})
	})

	Context("with a cycle", func() {
		BeforeEach(func() {
			g = NewPrerequisiteGraph(
				[]string{"A", "B", "C", "D"},
				edges("A", "B", "B", "C", "C", "B", "C", "D"),
			)
		})

		It("should report the cycle from Validate", func() {
			err := g.Validate()
			Expect(errors.Is(err, ErrCycleDetected)).To(BeTrue())
			var cycleErr *CycleError
			Expect(errors.As(err, &cycleErr)).To(BeTrue())
			Expect(cycleErr.Cycles).To(ContainElement([]string{"B", "C"}))
		})

		It("should return the unordered set together with the cycle error", func() {
			order, err := g.TopologicalOrder(NewSet("A", "B", "C"))
			Expect(errors.Is(err, ErrCycleDetected)).To(BeTrue())
			Expect(order).To(Equal([]string{"A", "B", "C"}))
		})

		It("should still order subsets that avoid the cycle", func() {
			order, err := g.TopologicalOrder(NewSet("A", "B"))
			Expect(err).NotTo(HaveOccurred())
			Expect(order).To(Equal([]string{"A", "B"}))
		})
	})

	Context("with a self prerequisite", func() {
		BeforeEach(func() {
			g = NewPrerequisiteGraph([]string{"X", "Y"}, edges("X", "X", "X", "Y"))
		})

		It("should treat the self edge as a cycle", func() {
			Expect(errors.Is(g.Validate(), ErrCycleDetected)).To(BeTrue())
			_, err := g.TopologicalOrder(NewSet("X"))
			Expect(errors.Is(err, ErrCycleDetected)).To(BeTrue())
		})

		It("should list the course as its own predecessor", func() {
			Expect(g.Predecessors("X")).To(Equal([]string{"X"}))
			Expect(g.Descendants("X").Sorted()).To(Equal([]string{"Y"}))
		})
	})
})
