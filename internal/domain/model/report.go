package model

import "time"

// StudentSummary is the per-student view of a scored team.
type StudentSummary struct {
	Student        string   `json:"student" yaml:"student"`
	Name           string   `json:"name" yaml:"name"`
	Ratings        int      `json:"ratings" yaml:"ratings"`
	Average        float64  `json:"average" yaml:"average"`
	Variance       float64  `json:"variance" yaml:"variance"`
	LowContributor bool     `json:"low_contributor" yaml:"low_contributor"`
	Income         *float64 `json:"income,omitempty" yaml:"income,omitempty"`
	LowSeller      bool     `json:"low_seller" yaml:"low_seller"`
	Submitted      bool     `json:"submitted" yaml:"submitted"`
}

// TeamReport is the scored outcome for one team.
type TeamReport struct {
	Team        string             `json:"team" yaml:"team"`
	Flagged     bool               `json:"flagged" yaml:"flagged"`
	Flags       []string           `json:"flags" yaml:"flags"`
	Variance    map[string]float64 `json:"variance" yaml:"variance"`
	MaxVariance float64            `json:"max_variance" yaml:"max_variance"`
	FairShare   float64            `json:"fair_share" yaml:"fair_share"`
	Students    []StudentSummary   `json:"students" yaml:"students"`
	Keywords    []string           `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	SumIssues   int                `json:"sum_issues" yaml:"sum_issues"`
	Financials  *TeamFinancials    `json:"financials,omitempty" yaml:"financials,omitempty"`
	Evaluations []Evaluation       `json:"evaluations,omitempty" yaml:"evaluations,omitempty"`
	Feedback    []Feedback         `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Error       string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Totals summarises a run.
type Totals struct {
	Teams       int `json:"teams" yaml:"teams"`
	Flagged     int `json:"flagged" yaml:"flagged"`
	Submissions int `json:"submissions" yaml:"submissions"`
	Missing     int `json:"missing" yaml:"missing"`
	// Students is the roster size, or the number of students seen in the
	// survey when no roster was given.
	Students int `json:"students" yaml:"students"`
	// WithFinancials counts scored teams that had a financial file.
	WithFinancials int `json:"with_financials" yaml:"with_financials"`
}

// Report is the complete output of one pipeline run.
type Report struct {
	RunID             string        `json:"run_id" yaml:"run_id"`
	GeneratedAt       time.Time     `json:"generated_at" yaml:"generated_at"`
	VarianceThreshold float64       `json:"variance_threshold" yaml:"variance_threshold"`
	Totals            Totals        `json:"totals" yaml:"totals"`
	Teams             []TeamReport  `json:"teams" yaml:"teams"`
	Missing           []RosterEntry `json:"missing,omitempty" yaml:"missing,omitempty"`
	MissingByPeriod   []PeriodGroup `json:"missing_by_period,omitempty" yaml:"missing_by_period,omitempty"`
	Warnings          []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
