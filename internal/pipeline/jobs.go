package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

// JobStatus represents the state of a scoring job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusScoring    JobStatus = "scoring"
	StatusDelivering JobStatus = "delivering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Mode selects the shape of a job's result.
type Mode string

const (
	ModeStrip    Mode = "strip"
	ModeAnnotate Mode = "annotate"
)

// ParseMode accepts "strip" or "annotate"; empty means strip.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeStrip:
		return ModeStrip, true
	case ModeAnnotate:
		return ModeAnnotate, true
	}
	return "", false
}

// Job tracks the state of a single asynchronous scoring request.
type Job struct {
	mu sync.Mutex

	ID          string `json:"job_id"`
	Mode        Mode   `json:"mode"`
	Filename    string `json:"filename,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	doc      hfepa.Document
	opts     hfepa.Options
	result   hfepa.AnnotatedDocument
	cached   bool
	warnings []string
	errors   []string
}

// Progress summarizes what scoring found and how delivery went.
type Progress struct {
	Pages            int      `json:"pages"`
	Lines            int      `json:"lines"`
	HeaderLines      int      `json:"header_lines"`
	FooterLines      int      `json:"footer_lines"`
	DeliveryAttempts int      `json:"delivery_attempts"`
	Errors           []string `json:"errors"`
}

// NewJob creates a queued job with a fresh ID.
func NewJob(mode Mode, doc hfepa.Document, opts hfepa.Options, callbackURL string) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Mode:        mode,
		CallbackURL: callbackURL,
		Status:      StatusQueued,
		Phase:       "queued",
		Progress:    Progress{Pages: len(doc)},
		CreatedAt:   now,
		UpdatedAt:   now,
		doc:         doc,
		opts:        opts,
	}
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

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
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

// IncrDeliveryAttempts atomically increments the callback attempt count.
func (j *Job) IncrDeliveryAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DeliveryAttempts++
	j.UpdatedAt = time.Now()
}

// SetResult stores the scoring output and tallies the line counts.
func (j *Job) SetResult(result hfepa.AnnotatedDocument, contentHash string, cached bool, warnings []string) {
	lines, headers, footers := 0, 0, 0
	for _, page := range result {
		for _, rec := range page {
			lines++
			switch rec.LineType {
			case hfepa.LineHeader:
				headers++
			case hfepa.LineFooter:
				footers++
			}
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = result
	j.ContentHash = contentHash
	j.cached = cached
	j.warnings = warnings
	j.Progress.Pages = len(result)
	j.Progress.Lines = lines
	j.Progress.HeaderLines = headers
	j.Progress.FooterLines = footers
	j.UpdatedAt = time.Now()
}

// Document returns the pages submitted with the job.
func (j *Job) Document() hfepa.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.doc
}

// Options returns the detector options submitted with the job.
func (j *Job) Options() hfepa.Options {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.opts
}

// JobResult is the body served by the result endpoint and posted to the
// callback URL. Pages holds an hfepa.Document for strip jobs and an
// hfepa.AnnotatedDocument for annotate jobs.
type JobResult struct {
	JobID    string   `json:"job_id"`
	Mode     Mode     `json:"mode"`
	Cached   bool     `json:"cached"`
	Pages    any      `json:"pages"`
	Warnings []string `json:"warnings,omitempty"`
}

// Result returns the job's output, or false if scoring has not finished.
func (j *Job) Result() (JobResult, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result == nil {
		return JobResult{}, false
	}
	res := JobResult{
		JobID:    j.ID,
		Mode:     j.Mode,
		Cached:   j.cached,
		Warnings: j.warnings,
	}
	if j.Mode == ModeAnnotate {
		res.Pages = j.result
	} else {
		res.Pages = hfepa.StripAnnotated(j.result)
	}
	return res, true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Mode        Mode      `json:"mode"`
	Filename    string    `json:"filename,omitempty"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash,omitempty"`
	Cached      bool      `json:"cached"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	progress := j.Progress
	progress.Errors = append([]string{}, errs...)
	return JobSnapshot{
		ID:          j.ID,
		Mode:        j.Mode,
		Filename:    j.Filename,
		Status:      j.Status,
		Phase:       j.Phase,
		Progress:    progress,
		ContentHash: j.ContentHash,
		Cached:      j.cached,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
