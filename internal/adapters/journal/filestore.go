// Package journal provides durable journal store adapters.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	domain "github.com/Sothcheat/provision/internal/domain/journal"
)

// line is the JSONL envelope for one persisted record. The format is
// deliberately human-inspectable: one JSON object per line, appended in
// order, with a final status marker.
type line struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id,omitempty"`
	StepID  string    `json:"step_id,omitempty"`
	Outcome string    `json:"outcome,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Status  string    `json:"status,omitempty"`
	At      time.Time `json:"at"`
}

// Line types beyond the domain record types.
const (
	lineRun    = "run"
	lineStatus = "status"
)

// FileStore persists one JSONL file per run under a state directory.
// Every append is fsynced before returning, so a crash between steps
// leaves a loadable partial journal.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// DefaultRoot resolves the state directory for run journals:
// PROVISION_STATE_DIR when set, /var/lib/provision/runs for root, and
// the XDG state dir fallback otherwise.
func DefaultRoot() string {
	if dir := os.Getenv("PROVISION_STATE_DIR"); dir != "" {
		return dir
	}
	if os.Geteuid() == 0 {
		return "/var/lib/provision/runs"
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "provision", "runs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "provision", "runs")
	}
	return filepath.Join(home, ".local", "state", "provision", "runs")
}

func (s *FileStore) path(runID domain.RunID) string {
	return filepath.Join(s.root, runID.String()+".jsonl")
}

// Begin persists the journal header for a fresh run.
func (s *FileStore) Begin(j *domain.Journal) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", s.root, err)
	}

	f, err := os.OpenFile(s.path(j.RunID()), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create journal %s: %w", j.RunID(), err)
	}
	defer f.Close()

	header := line{Type: lineRun, RunID: j.RunID().String(), At: j.StartedAt()}
	if err := writeLine(f, header); err != nil {
		return err
	}
	return f.Sync()
}

// Append persists one record, durably, before returning.
func (s *FileStore) Append(runID domain.RunID, rec domain.Record) error {
	f, err := os.OpenFile(s.path(runID), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.NotFoundError{RunID: runID.String()}
		}
		return err
	}
	defer f.Close()

	entry := line{
		Type:    string(rec.Type),
		StepID:  rec.StepID,
		Outcome: string(rec.Outcome),
		Detail:  rec.Detail,
		At:      rec.At,
	}
	if err := writeLine(f, entry); err != nil {
		return err
	}
	return f.Sync()
}

// Finalize appends the terminal status marker.
func (s *FileStore) Finalize(runID domain.RunID, status domain.Status, at time.Time) error {
	f, err := os.OpenFile(s.path(runID), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.NotFoundError{RunID: runID.String()}
		}
		return err
	}
	defer f.Close()

	if err := writeLine(f, line{Type: lineStatus, Status: string(status), At: at}); err != nil {
		return err
	}
	return f.Sync()
}

// Load reads a persisted journal. A truncated trailing line (crash mid
// write) is ignored; everything before it is intact.
func (s *FileStore) Load(runID domain.RunID) (*domain.Journal, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domain.NotFoundError{RunID: runID.String()}
		}
		return nil, err
	}

	var (
		startedAt time.Time
		endedAt   time.Time
		status    = domain.StatusRunning
		records   []domain.Record
	)

	for _, raw := range strings.Split(string(data), "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var entry line
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}

		switch entry.Type {
		case lineRun:
			startedAt = entry.At
		case lineStatus:
			status = domain.Status(entry.Status)
			endedAt = entry.At
		case string(domain.RecordStarted), string(domain.RecordResult):
			records = append(records, domain.Record{
				Type:    domain.RecordType(entry.Type),
				StepID:  entry.StepID,
				Outcome: domain.OutcomeKind(entry.Outcome),
				Detail:  entry.Detail,
				At:      entry.At,
			})
		}
	}

	return domain.Restore(runID, startedAt, endedAt, status, records), nil
}

// List returns summaries of all persisted runs, newest first.
func (s *FileStore) List() ([]domain.Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	summaries := make([]domain.Summary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		runID, err := domain.ParseRunID(strings.TrimSuffix(name, ".jsonl"))
		if err != nil {
			continue
		}
		j, err := s.Load(runID)
		if err != nil {
			continue
		}
		summaries = append(summaries, domain.Summary{
			RunID:     j.RunID(),
			StartedAt: j.StartedAt(),
			EndedAt:   j.EndedAt(),
			Status:    j.Status(),
			Counts:    j.Count(),
		})
	}

	sort.Slice(summaries, func(i, k int) bool {
		return summaries[i].StartedAt.After(summaries[k].StartedAt)
	})

	return summaries, nil
}

func writeLine(f *os.File, entry line) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Ensure FileStore implements the domain store.
var _ domain.Store = (*FileStore)(nil)
