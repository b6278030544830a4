package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// ErrCycleDetected marks a prerequisite graph that is not acyclic.
var ErrCycleDetected = errors.New("catalog: prerequisite cycle detected")

// CycleError reports the cyclic components found while ordering a node set.
// Nodes holds the full requested set in lexical order, which callers may use
// as an unordered fallback.
type CycleError struct {
	Cycles [][]string
	Nodes  []string
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Cycles))
	for _, c := range e.Cycles {
		parts = append(parts, "["+strings.Join(c, " ")+"]")
	}
	return fmt.Sprintf("%v: %s", ErrCycleDetected, strings.Join(parts, ", "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// PrerequisiteGraph is a directed graph of prereq -> course edges over course
// codes. Every catalog code is a node even when it has no edges. The graph is
// never mutated after construction, so concurrent readers need no locking.
type PrerequisiteGraph struct {
	ids       map[string]int64
	codes     []string
	forward   *simple.DirectedGraph
	reverse   *simple.DirectedGraph
	selfLoops Set
	cycles    [][]string
}

// NewPrerequisiteGraph builds the graph from the full code set plus edges.
// Edge endpoints missing from codes are added as nodes. Cycles do not fail
// construction; they are recorded and reported by Validate and by ordering
// queries.
func NewPrerequisiteGraph(codes []string, edges []Prerequisite) *PrerequisiteGraph {
	g := &PrerequisiteGraph{
		ids:       make(map[string]int64, len(codes)),
		forward:   simple.NewDirectedGraph(),
		reverse:   simple.NewDirectedGraph(),
		selfLoops: make(Set),
	}
	for _, code := range codes {
		g.ensureNode(code)
	}
	for _, e := range edges {
		from := g.ensureNode(e.PrereqCode)
		to := g.ensureNode(e.CourseCode)
		if from == to {
			// gonum simple graphs reject self edges; keep them on the side.
			g.selfLoops.Add(e.PrereqCode)
			continue
		}
		if g.forward.HasEdgeFromTo(from, to) {
			continue
		}
		g.forward.SetEdge(g.forward.NewEdge(simple.Node(from), simple.Node(to)))
		g.reverse.SetEdge(g.reverse.NewEdge(simple.Node(to), simple.Node(from)))
	}
	g.cycles = g.findCycles()
	return g
}

func (g *PrerequisiteGraph) ensureNode(code string) int64 {
	if id, ok := g.ids[code]; ok {
		return id
	}
	id := int64(len(g.codes))
	g.ids[code] = id
	g.codes = append(g.codes, code)
	g.forward.AddNode(simple.Node(id))
	g.reverse.AddNode(simple.Node(id))
	return id
}

func (g *PrerequisiteGraph) findCycles() [][]string {
	var cycles [][]string
	if _, err := topo.SortStabilized(g.forward, g.byCode); err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			cycles = append(cycles, g.componentCodes(unorderable)...)
		}
	}
	for _, code := range g.selfLoops.Sorted() {
		cycles = append(cycles, []string{code})
	}
	return cycles
}

// Validate returns a *CycleError when the graph is not acyclic.
func (g *PrerequisiteGraph) Validate() error {
	if len(g.cycles) == 0 {
		return nil
	}
	all := make(Set)
	for _, c := range g.cycles {
		for _, code := range c {
			all.Add(code)
		}
	}
	return &CycleError{Cycles: g.cycles, Nodes: all.Sorted()}
}

// Has reports whether code is a node.
func (g *PrerequisiteGraph) Has(code string) bool {
	_, ok := g.ids[code]
	return ok
}

// Predecessors returns the direct prerequisites of code in lexical order.
func (g *PrerequisiteGraph) Predecessors(code string) []string {
	id, ok := g.ids[code]
	if !ok {
		return nil
	}
	out := g.sortedCodes(graph.NodesOf(g.forward.To(id)))
	if g.selfLoops.Has(code) {
		out = append(out, code)
		sort.Strings(out)
	}
	return out
}

// Successors returns the courses that list code as a direct prerequisite.
func (g *PrerequisiteGraph) Successors(code string) []string {
	id, ok := g.ids[code]
	if !ok {
		return nil
	}
	out := g.sortedCodes(graph.NodesOf(g.forward.From(id)))
	if g.selfLoops.Has(code) {
		out = append(out, code)
		sort.Strings(out)
	}
	return out
}

// Ancestors returns every course that transitively precedes code.
func (g *PrerequisiteGraph) Ancestors(code string) Set {
	return g.reachable(g.reverse, code)
}

// Descendants returns every course that transitively requires code.
func (g *PrerequisiteGraph) Descendants(code string) Set {
	return g.reachable(g.forward, code)
}

// UnlockPower is the number of transitive descendants of code.
func (g *PrerequisiteGraph) UnlockPower(code string) int {
	return len(g.Descendants(code))
}

func (g *PrerequisiteGraph) reachable(dg *simple.DirectedGraph, code string) Set {
	out := make(Set)
	id, ok := g.ids[code]
	if !ok {
		return out
	}
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			if n.ID() != id {
				out.Add(g.codes[n.ID()])
			}
		},
	}
	bf.Walk(dg, simple.Node(id), nil)
	return out
}

// TopologicalOrder orders subset so that every prerequisite edge inside the
// subset points forward. Ties are broken by code. When the induced subgraph
// has a cycle, the subset is returned unordered (lexical) together with a
// *CycleError, so callers can tell a degraded answer from a real ordering.
func (g *PrerequisiteGraph) TopologicalOrder(subset Set) ([]string, error) {
	sub := simple.NewDirectedGraph()
	var selfCycles [][]string
	for code := range subset {
		id, ok := g.ids[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCourse, code)
		}
		sub.AddNode(simple.Node(id))
		if g.selfLoops.Has(code) {
			selfCycles = append(selfCycles, []string{code})
		}
	}
	for code := range subset {
		id := g.ids[code]
		for _, n := range graph.NodesOf(g.forward.From(id)) {
			if subset.Has(g.codes[n.ID()]) {
				sub.SetEdge(sub.NewEdge(simple.Node(id), n))
			}
		}
	}

	sorted, err := topo.SortStabilized(sub, g.byCode)
	if err != nil || len(selfCycles) > 0 {
		cycleErr := &CycleError{Nodes: subset.Sorted()}
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			cycleErr.Cycles = g.componentCodes(unorderable)
		} else if err != nil {
			return nil, fmt.Errorf("catalog: topological sort: %w", err)
		}
		sort.Slice(selfCycles, func(i, j int) bool { return selfCycles[i][0] < selfCycles[j][0] })
		cycleErr.Cycles = append(cycleErr.Cycles, selfCycles...)
		return cycleErr.Nodes, cycleErr
	}
	return g.toCodes(sorted), nil
}

// byCode orders nodes lexically by course code.
func (g *PrerequisiteGraph) byCode(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return g.codes[nodes[i].ID()] < g.codes[nodes[j].ID()]
	})
}

func (g *PrerequisiteGraph) toCodes(nodes []graph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, g.codes[n.ID()])
	}
	return out
}

func (g *PrerequisiteGraph) sortedCodes(nodes []graph.Node) []string {
	out := g.toCodes(nodes)
	sort.Strings(out)
	return out
}

func (g *PrerequisiteGraph) componentCodes(components topo.Unorderable) [][]string {
	out := make([][]string, 0, len(components))
	for _, comp := range components {
		out = append(out, g.sortedCodes(comp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
