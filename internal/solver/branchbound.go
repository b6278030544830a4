package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// checkEvery is how many search nodes pass between context checks.
const checkEvery = 512

// Solution is the result of a solve.
type Solution struct {
	Status    Status
	Values    []bool
	Objective float64
	// Nodes is the number of search nodes expanded.
	Nodes int
}

// Selected returns the indices of variables set to one.
func (s Solution) Selected() []int {
	var out []int
	for i, on := range s.Values {
		if on {
			out = append(out, i)
		}
	}
	return out
}

type search struct {
	ctx   context.Context
	p     *Program
	order []int

	// per constraint, per depth: sums of the positive and negative
	// coefficients of variables not yet decided
	posSuf [][]float64
	negSuf [][]float64
	objSuf []float64

	lhs     []float64
	current []bool

	found bool
	best  float64
	bestX []bool
	nodes int
	err   error
}

// Solve maximizes p. Infeasible programs return StatusInfeasible with a nil
// error. A context deadline returns ErrTimeout; other context errors are
// returned as is. Among equally good assignments the first one found wins,
// and variables with larger objective coefficients are tried first.
func Solve(ctx context.Context, p *Program) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{Status: StatusNotSolved}, err
	}
	n := p.NumVars()
	for _, v := range p.Objective {
		if math.IsInf(v, 1) {
			return Solution{Status: StatusUnbounded}, nil
		}
	}

	s := &search{
		ctx:     ctx,
		p:       p,
		order:   make([]int, n),
		lhs:     make([]float64, len(p.Constraints)),
		current: make([]bool, n),
	}
	for i := range s.order {
		s.order[i] = i
	}
	sort.SliceStable(s.order, func(a, b int) bool {
		return p.Objective[s.order[a]] > p.Objective[s.order[b]]
	})
	s.buildSuffixes()
	s.walk(0, 0)

	if s.err != nil {
		if errors.Is(s.err, context.DeadlineExceeded) {
			return Solution{Status: StatusNotSolved, Nodes: s.nodes}, fmt.Errorf("%w after %d nodes", ErrTimeout, s.nodes)
		}
		return Solution{Status: StatusNotSolved, Nodes: s.nodes}, s.err
	}
	if !s.found {
		return Solution{Status: StatusInfeasible, Nodes: s.nodes}, nil
	}
	return Solution{
		Status:    StatusOptimal,
		Values:    s.bestX,
		Objective: s.best,
		Nodes:     s.nodes,
	}, nil
}

func (s *search) buildSuffixes() {
	n := len(s.order)
	s.objSuf = make([]float64, n+1)
	for k := n - 1; k >= 0; k-- {
		s.objSuf[k] = s.objSuf[k+1] + math.Max(0, s.p.Objective[s.order[k]])
	}
	s.posSuf = make([][]float64, len(s.p.Constraints))
	s.negSuf = make([][]float64, len(s.p.Constraints))
	for ci, c := range s.p.Constraints {
		pos := make([]float64, n+1)
		neg := make([]float64, n+1)
		for k := n - 1; k >= 0; k-- {
			v := c.Coeffs[s.order[k]]
			pos[k] = pos[k+1] + math.Max(0, v)
			neg[k] = neg[k+1] + math.Min(0, v)
		}
		s.posSuf[ci] = pos
		s.negSuf[ci] = neg
	}
}

// feasibleFrom reports whether some completion of the variables at depth
// k and beyond could still satisfy every constraint.
func (s *search) feasibleFrom(k int) bool {
	for ci, c := range s.p.Constraints {
		lo := s.lhs[ci] + s.negSuf[ci][k]
		hi := s.lhs[ci] + s.posSuf[ci][k]
		switch c.Op {
		case LE:
			if lo > c.RHS+eps {
				return false
			}
		case GE:
			if hi < c.RHS-eps {
				return false
			}
		case EQ:
			if lo > c.RHS+eps || hi < c.RHS-eps {
				return false
			}
		}
	}
	return true
}

func (s *search) walk(k int, obj float64) {
	if s.err != nil {
		return
	}
	if s.nodes%checkEvery == 0 {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return
		}
	}
	s.nodes++

	if !s.feasibleFrom(k) {
		return
	}
	if s.found && obj+s.objSuf[k] <= s.best+eps {
		return
	}
	if k == len(s.order) {
		// every bound above is exact once nothing is left to decide
		s.found = true
		s.best = obj
		s.bestX = append(s.bestX[:0], s.current...)
		return
	}

	v := s.order[k]
	s.current[v] = true
	for ci, c := range s.p.Constraints {
		s.lhs[ci] += c.Coeffs[v]
	}
	s.walk(k+1, obj+s.p.Objective[v])
	for ci, c := range s.p.Constraints {
		s.lhs[ci] -= c.Coeffs[v]
	}
	s.current[v] = false

	s.walk(k+1, obj)
}
