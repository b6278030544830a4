// Package solver solves small 0/1 linear programs exactly.
//
// Programs are maximization problems over binary decision variables with
// linear constraints. The solver is a depth-first branch and bound that is
// exact for the problem sizes course selection produces (tens of variables)
// and honours context deadlines so callers can bound solve time.
package solver

import (
	"errors"
	"fmt"
	"math"
)

// Op is a constraint comparison operator.
type Op int

const (
	// LE is lhs <= rhs.
	LE Op = iota
	// GE is lhs >= rhs.
	GE
	// EQ is lhs == rhs.
	EQ
)

func (o Op) String() string {
	switch o {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// MarshalText renders the operator symbol.
func (o Op) MarshalText() ([]byte, error) {
	switch o {
	case LE, GE, EQ:
		return []byte(o.String()), nil
	}
	return nil, fmt.Errorf("%w: operator %d", ErrMalformed, int(o))
}

// UnmarshalText accepts "<=", ">=" and "==" ("=" is read as "==").
func (o *Op) UnmarshalText(text []byte) error {
	switch string(text) {
	case "<=":
		*o = LE
	case ">=":
		*o = GE
	case "==", "=":
		*o = EQ
	default:
		return fmt.Errorf("%w: operator %q", ErrMalformed, text)
	}
	return nil
}

// Constraint is sum(Coeffs[i] * x[i]) Op RHS.
type Constraint struct {
	Name   string
	Coeffs []float64
	Op     Op
	RHS    float64
}

// Status is the raw outcome reported by Solve.
type Status string

const (
	StatusOptimal    Status = "Optimal"
	StatusInfeasible Status = "Infeasible"
	StatusUnbounded  Status = "Unbounded"
	StatusNotSolved  Status = "Not Solved"
)

var (
	// ErrTimeout is returned when the context deadline passes before the search completes.
	ErrTimeout = errors.New("solver: time limit reached")
	// ErrMalformed is returned for programs whose dimensions do not line up.
	ErrMalformed = errors.New("solver: malformed program")
)

// Program is a maximization over len(Objective) binary variables.
type Program struct {
	Objective   []float64
	Constraints []Constraint
}

// NewProgram returns a program with the given objective coefficients.
func NewProgram(objective []float64) *Program {
	return &Program{Objective: append([]float64(nil), objective...)}
}

// NumVars reports the number of decision variables.
func (p *Program) NumVars() int {
	return len(p.Objective)
}

// AddConstraint appends a constraint.
func (p *Program) AddConstraint(c Constraint) {
	p.Constraints = append(p.Constraints, c)
}

// Validate checks that every constraint spans every variable and that all
// coefficients are numbers.
func (p *Program) Validate() error {
	for i, v := range p.Objective {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: objective coefficient %d is NaN", ErrMalformed, i)
		}
	}
	for _, c := range p.Constraints {
		if len(c.Coeffs) != len(p.Objective) {
			return fmt.Errorf("%w: constraint %q has %d coefficients, want %d",
				ErrMalformed, c.Name, len(c.Coeffs), len(p.Objective))
		}
		if c.Op != LE && c.Op != GE && c.Op != EQ {
			return fmt.Errorf("%w: constraint %q has unknown operator %v", ErrMalformed, c.Name, c.Op)
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("%w: constraint %q has non-finite right-hand side", ErrMalformed, c.Name)
		}
		for _, v := range c.Coeffs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: constraint %q has non-finite coefficient", ErrMalformed, c.Name)
			}
		}
	}
	return nil
}

// Evaluate returns the objective value of an assignment and whether it
// satisfies every constraint.
func (p *Program) Evaluate(x []bool) (float64, bool) {
	obj := 0.0
	for i, on := range x {
		if on {
			obj += p.Objective[i]
		}
	}
	for _, c := range p.Constraints {
		lhs := 0.0
		for i, on := range x {
			if on {
				lhs += c.Coeffs[i]
			}
		}
		if !satisfied(c.Op, lhs, c.RHS) {
			return obj, false
		}
	}
	return obj, true
}

const eps = 1e-9

func satisfied(op Op, lhs, rhs float64) bool {
	switch op {
	case LE:
		return lhs <= rhs+eps
	case GE:
		return lhs >= rhs-eps
	default:
		return math.Abs(lhs-rhs) <= eps
	}
}
