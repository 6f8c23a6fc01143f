package tasks

import (
	"sync"

	"github.com/desertthunder/betterd/internal/shared"
)

// Registry is the in-memory index of shuffle jobs, keyed by job id.
//
// Jobs are intentionally ephemeral: the browser polls a job it just started,
// so there is nothing to recover after a restart and no persistence layer
// behind this map.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*ShuffleJob
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*ShuffleJob)}
}

// Add stores the job under its id.
func (r *Registry) Add(job *ShuffleJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// Get looks up a job by id, returning [shared.ErrJobNotFound] when absent.
func (r *Registry) Get(id string) (*ShuffleJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, shared.ErrJobNotFound
	}
	return job, nil
}

// Len reports the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
