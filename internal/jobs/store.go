package jobs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hybridq/hybrid-core/internal/metrics"
	"github.com/hybridq/hybrid-core/pkg/models"
	"github.com/hybridq/hybrid-core/pkg/utils"
)

// record is the internal job state. Public accessors return copies so
// callers never share the store's mutable state.
type record struct {
	job       models.Job
	collector *metrics.Collector
}

// Store holds hybrid job records in memory.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*record
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*record)}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// Create registers a new job in CREATED state. An empty jobID generates
// one.
func (s *Store) Create(jobID string, spec models.JobSpec) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID == "" {
		jobID = utils.GenerateJobID()
	}
	if strings.ContainsAny(jobID, "/ \t\n") {
		return models.Job{}, fmt.Errorf("job ID cannot contain slashes or whitespace: %q", jobID)
	}
	if _, exists := s.jobs[jobID]; exists {
		return models.Job{}, fmt.Errorf("job already exists: %s", jobID)
	}

	rec := &record{
		job: models.Job{
			ID:              jobID,
			Status:          models.JobStatusCreated,
			Spec:            spec,
			CreatedAtUnixMs: nowUnixMs(),
		},
	}
	s.jobs[jobID] = rec
	return rec.job, nil
}

// Get returns a copy of the job record.
func (s *Store) Get(jobID string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return models.Job{}, false
	}
	return rec.job, true
}

// List returns jobs sorted by creation time, newest first, optionally
// filtered by status, with limit/offset pagination.
func (s *Store) List(limit, offset int, status models.JobStatus) []models.Job {
	s.mu.RLock()
	all := make([]models.Job, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if status != "" && rec.job.Status != status {
			continue
		}
		all = append(all, rec.job)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAtUnixMs != all[j].CreatedAtUnixMs {
			return all[i].CreatedAtUnixMs > all[j].CreatedAtUnixMs
		}
		return all[i].ID < all[j].ID
	})

	if offset >= len(all) {
		return []models.Job{}
	}
	all = all[offset:]

	if limit <= 0 {
		limit = 50
	}
	return all[:utils.Min(limit, len(all))]
}

// SetStatus transitions a job's status and stamps start/end timestamps.
// Terminal states are sticky: transitioning a terminal job to a different
// status fails with ErrJobTerminal.
func (s *Store) SetStatus(jobID string, status models.JobStatus, errMsg string) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return models.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if rec.job.Status.IsTerminal() && rec.job.Status != status {
		return models.Job{}, fmt.Errorf("%w: %s is %s", ErrJobTerminal, jobID, rec.job.Status)
	}

	rec.job.Status = status
	if errMsg != "" {
		rec.job.Error = errMsg
	}

	switch status {
	case models.JobStatusRunning:
		if rec.job.StartedAtUnixMs == 0 {
			rec.job.StartedAtUnixMs = nowUnixMs()
		}
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled:
		if rec.job.EndedAtUnixMs == 0 {
			rec.job.EndedAtUnixMs = nowUnixMs()
		}
	}

	return rec.job, nil
}

// SetResult attaches the final optimization outcome to a job.
func (s *Store) SetResult(jobID string, result models.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	rec.job.Result = &result
	return nil
}

// SetCollector attaches the per-job metrics collector.
func (s *Store) SetCollector(jobID string, c *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	rec.collector = c
	return nil
}

// GetCollector returns the job's metrics collector, if any.
func (s *Store) GetCollector(jobID string) (*metrics.Collector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[jobID]
	if !ok || rec.collector == nil {
		return nil, false
	}
	return rec.collector, true
}
