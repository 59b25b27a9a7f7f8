// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"os"
	"sync"
)

// Registry maps the scheduler's job ids to live child processes so a
// cancellation path running on another goroutine can kill them. A single
// mutex guards every operation: the worker deregistering a finished process
// and a canceller killing it must never interleave.
type Registry struct {
	mu        sync.Mutex
	processes map[string]*os.Process
}

// NewRegistry returns an empty process registry.
func NewRegistry() *Registry {
	return &Registry{processes: make(map[string]*os.Process)}
}

// Register associates jobid with a live process, overwriting any stale
// entry for the same id. An empty jobid is a no-op.
func (r *Registry) Register(jobid string, proc *os.Process) {
	if jobid == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processes[jobid] = proc
}

// Deregister removes the entry for jobid if present.
func (r *Registry) Deregister(jobid string) {
	if jobid == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.processes, jobid)
}

// Kill hard-kills the process registered under jobid and removes the entry.
// Killing an unknown or already-finished job is a silent no-op; cancellation
// is idempotent by design of the surrounding scheduler.
func (r *Registry) Kill(jobid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if proc, ok := r.processes[jobid]; ok {
		_ = proc.Kill()
		delete(r.processes, jobid)
	}
}

// Contains reports whether jobid currently has a registered process.
func (r *Registry) Contains(jobid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.processes[jobid]
	return ok
}

// Len returns the number of registered processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processes)
}

// Clear drops all entries without signaling the underlying processes. It is
// meant for bulk shutdown where the scheduler owns process teardown, not for
// graceful termination.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.processes)
}
