package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/peerreview/internal/domain/model"
)

// MemoryStore is a Store backed by a map. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]model.TeamReport
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryStore{reports: make(map[string]model.TeamReport, cfg.expectedTeams)}
}

// Put stores report under its team key.
func (s *MemoryStore) Put(ctx context.Context, report model.TeamReport) error { //nolint:gocritic // hugeParam: reports are stored by value
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put team %s: %w", report.Team, err)
	}
	if report.Team == "" {
		return ErrEmptyTeam
	}
	s.mu.Lock()
	s.reports[report.Team] = report
	s.mu.Unlock()
	return nil
}

// Get returns the report of team.
func (s *MemoryStore) Get(_ context.Context, team string) (model.TeamReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[team]
	if !ok {
		return model.TeamReport{}, fmt.Errorf("team %s: %w", team, ErrNotFound)
	}
	return r, nil
}

// List returns the stored reports sorted by team key.
func (s *MemoryStore) List(ctx context.Context, onlyFlagged bool) ([]model.TeamReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	s.mu.RLock()
	keys := make([]string, 0, len(s.reports))
	for k := range s.reports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.TeamReport, 0, len(keys))
	for _, k := range keys {
		r := s.reports[k]
		if onlyFlagged && !r.Flagged {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()
	return out, nil
}

// Count returns the number of stored teams.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
