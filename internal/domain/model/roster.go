package model

// RosterEntry is one expected student from the class roster.
type RosterEntry struct {
	// ID is the canonical "{team} - {last}, {first}" identifier.
	ID        string `json:"id" yaml:"id"`
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	Team      string `json:"team" yaml:"team"`
	Period    string `json:"period" yaml:"period"`
}

// PeriodGroup collects roster entries that share a cohort period.
type PeriodGroup struct {
	Period   string        `json:"period" yaml:"period"`
	Students []RosterEntry `json:"students" yaml:"students"`
}
