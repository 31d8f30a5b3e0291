package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/modsearch/internal/search"
	"github.com/google/uuid"
)

// JobStatus represents the state of a search job.
type JobStatus string

const (
	StatusQueued         JobStatus = "queued"
	StatusAuthenticating JobStatus = "authenticating"
	StatusListing        JobStatus = "listing"
	StatusDownloading    JobStatus = "downloading"
	StatusLoading        JobStatus = "loading"
	StatusSearching      JobStatus = "searching"
	StatusCompleted      JobStatus = "completed"
	StatusFailed         JobStatus = "failed"
	StatusPartial        JobStatus = "partial"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// Job tracks the state of a single search run.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	Target string `json:"target"`
	Exact  bool   `json:"exact"`

	// Refresh downloads the application's definitions before searching.
	Refresh bool `json:"refresh"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	locations []search.Location
	reports   []string
	errors    []string
}

// Progress tracks processing progress.
type Progress struct {
	ModulesTotal      int      `json:"modules_total"`
	ModulesDownloaded int      `json:"modules_downloaded"`
	ModulesFailed     int      `json:"modules_failed"`
	Documents         int      `json:"documents"`
	Hits              int      `json:"hits"`
	Locations         int      `json:"locations"`
	Errors            []string `json:"errors"`
}

// NewJob creates a queued job with a fresh ID.
func NewJob(target string, exact, refresh bool) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Target:    target,
		Exact:     exact,
		Refresh:   refresh,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SearchTarget is the core search target of the job.
func (j *Job) SearchTarget() search.Target {
	return search.Target{Value: j.Target, Exact: j.Exact}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetModulesTotal records how many modules will be downloaded.
func (j *Job) SetModulesTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ModulesTotal = n
	j.UpdatedAt = time.Now()
}

// RecordDownload counts one finished module download.
func (j *Job) RecordDownload(failed bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if failed {
		j.Progress.ModulesFailed++
	} else {
		j.Progress.ModulesDownloaded++
	}
	j.UpdatedAt = time.Now()
}

// SetResult stores the outcome of a scan.
func (j *Job) SetResult(res search.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Documents = res.Documents
	j.Progress.Hits = res.Hits
	j.Progress.Locations = len(res.Locations)
	j.locations = res.Locations
	j.UpdatedAt = time.Now()
}

// Locations returns the merged locations, or nil before the scan finished.
func (j *Job) Locations() []search.Location {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.locations
}

// AddReport records the path of a saved report.
func (j *Job) AddReport(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reports = append(j.reports, path)
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Target    string    `json:"target"`
	Exact     bool      `json:"exact"`
	Refresh   bool      `json:"refresh"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	Reports   []string  `json:"reports"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	reports := append([]string{}, j.reports...)
	progress := j.Progress
	progress.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		Target:    j.Target,
		Exact:     j.Exact,
		Refresh:   j.Refresh,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  progress,
		Reports:   reports,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
