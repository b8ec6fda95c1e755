package journal

import (
	"sort"
	"sync"
	"time"

	domain "github.com/Sothcheat/provision/internal/domain/journal"
)

// memoryRun is the in-memory persisted form of one run.
type memoryRun struct {
	startedAt time.Time
	endedAt   time.Time
	status    domain.Status
	records   []domain.Record
}

// MemoryStore keeps journals in memory. Used by tests and as the sink
// for MCP-driven runs that should not touch the host state dir.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*memoryRun
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*memoryRun)}
}

// Begin registers a fresh run.
func (s *MemoryStore) Begin(j *domain.Journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[j.RunID().String()] = &memoryRun{
		startedAt: j.StartedAt(),
		status:    domain.StatusRunning,
	}
	return nil
}

// Append records one entry.
func (s *MemoryStore) Append(runID domain.RunID, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID.String()]
	if !ok {
		return &domain.NotFoundError{RunID: runID.String()}
	}
	run.records = append(run.records, rec)
	return nil
}

// Finalize marks the run's terminal status.
func (s *MemoryStore) Finalize(runID domain.RunID, status domain.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID.String()]
	if !ok {
		return &domain.NotFoundError{RunID: runID.String()}
	}
	run.status = status
	run.endedAt = at
	return nil
}

// Load rebuilds a journal.
func (s *MemoryStore) Load(runID domain.RunID) (*domain.Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID.String()]
	if !ok {
		return nil, &domain.NotFoundError{RunID: runID.String()}
	}
	records := make([]domain.Record, len(run.records))
	copy(records, run.records)
	return domain.Restore(runID, run.startedAt, run.endedAt, run.status, records), nil
}

// List summarizes all runs, newest first.
func (s *MemoryStore) List() ([]domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]domain.Summary, 0, len(s.runs))
	for id, run := range s.runs {
		runID, err := domain.ParseRunID(id)
		if err != nil {
			continue
		}
		j := domain.Restore(runID, run.startedAt, run.endedAt, run.status, run.records)
		summaries = append(summaries, domain.Summary{
			RunID:     runID,
			StartedAt: run.startedAt,
			EndedAt:   run.endedAt,
			Status:    run.status,
			Counts:    j.Count(),
		})
	}

	sort.Slice(summaries, func(i, k int) bool {
		return summaries[i].StartedAt.After(summaries[k].StartedAt)
	})

	return summaries, nil
}

// Ensure MemoryStore implements the domain store.
var _ domain.Store = (*MemoryStore)(nil)
