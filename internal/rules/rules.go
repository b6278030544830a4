// Package rules holds the academic rules every planning computation agrees on.
// The record is fixed and strongly typed; it is loaded once and shared by value.
package rules

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CreditRange is an inclusive [Min, Max] total-credit bound.
type CreditRange struct {
	Min int `mapstructure:"min" yaml:"min" json:"min" validate:"gte=0"`
	Max int `mapstructure:"max" yaml:"max" json:"max" validate:"gtefield=Min"`
}

// EnvelopeTable is the per-standing credit envelope used by the single-semester optimizer.
type EnvelopeTable struct {
	Probation CreditRange `mapstructure:"probation" yaml:"probation" json:"probation"`
	Low       CreditRange `mapstructure:"low" yaml:"low" json:"low"`
	Normal    CreditRange `mapstructure:"normal" yaml:"normal" json:"normal"`
	Overload  CreditRange `mapstructure:"overload" yaml:"overload" json:"overload"`
}

// AvgCreditLoad is the per-standing average credits a student completes per semester.
type AvgCreditLoad struct {
	High      int `mapstructure:"high" yaml:"high" json:"high" validate:"gt=0"`
	Mid       int `mapstructure:"mid" yaml:"mid" json:"mid" validate:"gt=0"`
	Low       int `mapstructure:"low" yaml:"low" json:"low" validate:"gt=0"`
	Probation int `mapstructure:"probation" yaml:"probation" json:"probation" validate:"gt=0"`
}

// AcademicRules is the curriculum configuration.
type AcademicRules struct {
	MaxNormalCredits       int           `mapstructure:"max_normal_credits" yaml:"max_normal_credits" json:"max_normal_credits" validate:"gt=0"`
	MaxOverloadCredits     int           `mapstructure:"max_overload_credits" yaml:"max_overload_credits" json:"max_overload_credits" validate:"gtefield=MaxNormalCredits"`
	MinCGPAForOverload     float64       `mapstructure:"min_cgpa_for_overload" yaml:"min_cgpa_for_overload" json:"min_cgpa_for_overload" validate:"gt=0"`
	MaxBacklogsPerSemester int           `mapstructure:"max_backlogs_per_semester" yaml:"max_backlogs_per_semester" json:"max_backlogs_per_semester" validate:"gte=0"`
	TotalDegreeCredits     int           `mapstructure:"total_degree_credits" yaml:"total_degree_credits" json:"total_degree_credits" validate:"gt=0"`
	MaxSemesters           int           `mapstructure:"max_semesters" yaml:"max_semesters" json:"max_semesters" validate:"gt=0"`
	AvgCreditLoad          AvgCreditLoad `mapstructure:"avg_credit_load" yaml:"avg_credit_load" json:"avg_credit_load"`
	Envelopes              EnvelopeTable `mapstructure:"envelopes" yaml:"envelopes" json:"envelopes"`
}

// Defaults returns the documented default rules.
func Defaults() AcademicRules {
	return AcademicRules{
		MaxNormalCredits:       18,
		MaxOverloadCredits:     21,
		MinCGPAForOverload:     3.0,
		MaxBacklogsPerSemester: 3,
		TotalDegreeCredits:     137,
		MaxSemesters:           8,
		AvgCreditLoad: AvgCreditLoad{
			High:      20,
			Mid:       18,
			Low:       16,
			Probation: 15,
		},
		Envelopes: EnvelopeTable{
			Probation: CreditRange{Min: 12, Max: 15},
			Low:       CreditRange{Min: 13, Max: 16},
			Normal:    CreditRange{Min: 15, Max: 18},
			Overload:  CreditRange{Min: 15, Max: 21},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and cross-field constraints.
func (r AcademicRules) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}

// Standing is the CGPA tier a student falls into.
type Standing int

const (
	// StandingProbation is on probation or below 2.0.
	StandingProbation Standing = iota
	// StandingLow is 2.0 up to 2.5.
	StandingLow
	// StandingNormal is 2.5 up to the overload threshold.
	StandingNormal
	// StandingOverload is at or above the overload threshold.
	StandingOverload
)

func (s Standing) String() string {
	switch s {
	case StandingProbation:
		return "probation"
	case StandingLow:
		return "low"
	case StandingNormal:
		return "normal"
	case StandingOverload:
		return "overload"
	default:
		return "unknown"
	}
}

// StandingFor classifies a student. Probation wins over CGPA.
func (r AcademicRules) StandingFor(cgpa float64, onProbation bool) Standing {
	switch {
	case onProbation || cgpa < 2.0:
		return StandingProbation
	case cgpa >= r.MinCGPAForOverload:
		return StandingOverload
	case cgpa >= 2.5:
		return StandingNormal
	default:
		return StandingLow
	}
}

// Envelope returns the credit envelope for a standing.
func (r AcademicRules) Envelope(s Standing) CreditRange {
	switch s {
	case StandingProbation:
		return r.Envelopes.Probation
	case StandingLow:
		return r.Envelopes.Low
	case StandingOverload:
		return r.Envelopes.Overload
	default:
		return r.Envelopes.Normal
	}
}

// AvgLoad returns the average per-semester credit load for a standing.
func (r AcademicRules) AvgLoad(s Standing) int {
	switch s {
	case StandingProbation:
		return r.AvgCreditLoad.Probation
	case StandingLow:
		return r.AvgCreditLoad.Low
	case StandingOverload:
		return r.AvgCreditLoad.High
	default:
		return r.AvgCreditLoad.Mid
	}
}

// PlanningCap is the two-tier semester cap used by the forward planner.
func (r AcademicRules) PlanningCap(cgpa float64) int {
	if cgpa >= r.MinCGPAForOverload {
		return r.MaxOverloadCredits
	}
	return r.MaxNormalCredits
}
