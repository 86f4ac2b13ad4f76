// Package repository holds the team reports produced during a run.
package repository

import (
	"context"

	"github.com/okian/peerreview/internal/domain/model"
)

// Store provides read/write access to the team reports of a run.
type Store interface {
	// Put inserts or replaces the report of report.Team.
	Put(ctx context.Context, report model.TeamReport) error

	// Get returns the report of a team.
	// Returns ErrNotFound if the team is unknown.
	Get(ctx context.Context, team string) (model.TeamReport, error)

	// List returns reports ordered by team key. With onlyFlagged set,
	// unflagged teams are left out.
	List(ctx context.Context, onlyFlagged bool) ([]model.TeamReport, error)

	// Count returns the number of stored teams.
	Count(ctx context.Context) int
}
