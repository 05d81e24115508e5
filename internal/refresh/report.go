package refresh

import (
	"sync"
	"time"

	"graft/internal/mutate"

	"github.com/google/uuid"
)

// Report summarizes one refresh cycle.
type Report struct {
	ID         string       `json:"id"`
	Mutate     bool         `json:"mutate"`
	Requested  []string     `json:"requested"`
	Processed  []string     `json:"processed"`
	Remaining  []string     `json:"remaining,omitempty"`
	Stats      mutate.Stats `json:"stats"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`

	mu sync.Mutex
}

func newReport(mutating bool, requested []string) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Mutate:    mutating,
		Requested: requested,
		Processed: []string{},
		StartedAt: time.Now(),
	}
}

func (r *Report) processed(name string, st mutate.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Processed = append(r.Processed, name)
	r.Stats.Add(st)
}

func (r *Report) finish(remaining []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Remaining = remaining
	r.FinishedAt = time.Now()
}

// Duration is how long the cycle ran.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Empty reports whether the cycle had nothing to do.
func (r *Report) Empty() bool { return len(r.Requested) == 0 }
