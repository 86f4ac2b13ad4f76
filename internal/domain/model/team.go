// Package model contains domain models passed between layers.
package model

import "time"

// Category is one of the fixed work-description areas asked about in the survey.
type Category string

// Work categories, in survey order.
const (
	CategoryDesign        Category = "design"
	CategoryManufacturing Category = "manufacturing"
	CategorySales         Category = "sales"
	CategoryMarketing     Category = "marketing"
)

// Categories lists every Category in survey order.
var Categories = []Category{CategoryDesign, CategoryManufacturing, CategorySales, CategoryMarketing}

// WorkDescription maps a category to the free text written for it. Categories
// left blank are absent from the map.
type WorkDescription map[Category]string

// Assessment is what one submitter said about one student (possibly themselves).
type Assessment struct {
	Student    string          `json:"student" yaml:"student"`
	Percentage float64         `json:"percentage" yaml:"percentage"`
	Work       WorkDescription `json:"work,omitempty" yaml:"work,omitempty"`
}

// Evaluation is one retained survey submission.
type Evaluation struct {
	Submitter    string       `json:"submitter" yaml:"submitter"`
	SubmittedAt  time.Time    `json:"submitted_at" yaml:"submitted_at"`
	RawTimestamp string       `json:"raw_timestamp,omitempty" yaml:"raw_timestamp,omitempty"`
	Assessments  []Assessment `json:"assessments" yaml:"assessments"`
	EvidenceURLs []string     `json:"evidence_urls,omitempty" yaml:"evidence_urls,omitempty"`
	PhotoURLs    []string     `json:"photo_urls,omitempty" yaml:"photo_urls,omitempty"`
	// Thumbnails holds a direct image link per photo URL, in the same order.
	Thumbnails   []string     `json:"thumbnails,omitempty" yaml:"thumbnails,omitempty"`
}

// Percentage returns the percentage this submitter assigned to student.
func (e Evaluation) Percentage(student string) (float64, bool) {
	for _, a := range e.Assessments {
		if a.Student == student {
			return a.Percentage, true
		}
	}
	return 0, false
}

// PercentageTotal sums every percentage in the submission.
func (e Evaluation) PercentageTotal() float64 {
	var total float64
	for _, a := range e.Assessments {
		total += a.Percentage
	}
	return total
}

// Feedback holds the free-text answers of one submission.
type Feedback struct {
	Submitter  string `json:"submitter" yaml:"submitter"`
	Challenges string `json:"challenges,omitempty" yaml:"challenges,omitempty"`
	Positives  string `json:"positives,omitempty" yaml:"positives,omitempty"`
	Advice     string `json:"advice,omitempty" yaml:"advice,omitempty"`
}

// Texts returns the three answers in prompt order.
func (f Feedback) Texts() []string {
	return []string{f.Challenges, f.Positives, f.Advice}
}

// Team is a finalized project team. Values are built once by the survey
// ingestor and only read afterwards.
type Team struct {
	Key         string       `json:"key" yaml:"key"`
	Students    []string     `json:"students" yaml:"students"`
	Evaluations []Evaluation `json:"evaluations" yaml:"evaluations"`
	Feedback    []Feedback   `json:"feedback" yaml:"feedback"`
}

// Size is the number of distinct students known for the team.
func (t Team) Size() int { return len(t.Students) }

// HasStudent reports whether id is a member of the team.
func (t Team) HasStudent(id string) bool {
	for _, s := range t.Students {
		if s == id {
			return true
		}
	}
	return false
}

// Submitters returns the submitter of every evaluation, in evaluation order.
func (t Team) Submitters() []string {
	out := make([]string, len(t.Evaluations))
	for i, e := range t.Evaluations {
		out[i] = e.Submitter
	}
	return out
}
