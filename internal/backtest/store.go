package backtest

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

// RunStore keeps runs and evaluation jobs in memory. Results only live for
// the lifetime of the process; anyone who wants to keep them pulls them over
// the HTTP API.
type RunStore struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	evals map[string]*EvalJob
	audit map[string][]byte
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs:  make(map[string]*Run),
		evals: make(map[string]*EvalJob),
		audit: make(map[string][]byte),
	}
}

func (s *RunStore) InsertRun(run Run) {
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now
	s.mu.Lock()
	s.runs[run.ID] = &run
	s.mu.Unlock()
}

func (s *RunStore) UpdateRunStatus(id, status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return
	}
	run.Status = status
	run.Message = message
	run.UpdatedAt = time.Now()
}

// CompleteRun stores the final result, stats and audit trail of a run.
func (s *RunStore) CompleteRun(id string, stats RunStats, result *strategy.Result, audit []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return
	}
	now := time.Now()
	run.Status = RunStatusDone
	run.Message = ""
	run.Stats = stats
	run.Result = result
	run.UpdatedAt = now
	run.CompletedAt = now
	s.audit[id] = audit
}

func (s *RunStore) FailRun(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return
	}
	run.Status = RunStatusFailed
	run.Message = err.Error()
	run.UpdatedAt = time.Now()
}

func (s *RunStore) GetRun(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return Run{}, fmt.Errorf("run %s not found", id)
	}
	return *run, nil
}

// ListRuns returns runs newest first, up to limit.
func (s *RunStore) ListRuns(limit int) []Run {
	s.mu.RLock()
	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, *run)
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

// AuditLog returns the trade-by-trade audit trail of a finished run.
func (s *RunStore) AuditLog(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	audit, ok := s.audit[id]
	if !ok {
		return nil, fmt.Errorf("run %s has no audit log", id)
	}
	return audit, nil
}

func (s *RunStore) InsertEval(job EvalJob) {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.mu.Lock()
	s.evals[job.ID] = &job
	s.mu.Unlock()
}

func (s *RunStore) UpdateEvalStatus(id, status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.evals[id]
	if !ok {
		return
	}
	job.Status = status
	job.Message = message
	job.UpdatedAt = time.Now()
}

func (s *RunStore) CompleteEval(id string, done EvalJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.evals[id]
	if !ok {
		return
	}
	now := time.Now()
	job.Status = RunStatusDone
	job.Message = ""
	job.Rows = done.Rows
	job.Ranking = done.Ranking
	job.BestByPeriod = done.BestByPeriod
	job.UpdatedAt = now
	job.CompletedAt = now
}

func (s *RunStore) FailEval(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.evals[id]
	if !ok {
		return
	}
	job.Status = RunStatusFailed
	job.Message = err.Error()
	job.UpdatedAt = time.Now()
}

func (s *RunStore) GetEval(id string) (EvalJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.evals[id]
	if !ok {
		return EvalJob{}, fmt.Errorf("evaluation %s not found", id)
	}
	return *job, nil
}

// ListEvals returns jobs newest first without their row payloads, which can
// run to tens of thousands of entries.
func (s *RunStore) ListEvals(limit int) []EvalJob {
	s.mu.RLock()
	jobs := make([]EvalJob, 0, len(s.evals))
	for _, job := range s.evals {
		item := *job
		item.Rows = nil
		item.BestByPeriod = nil
		item.Ranking = nil
		jobs = append(jobs, item)
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}
