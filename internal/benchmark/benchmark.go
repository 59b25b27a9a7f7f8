// SPDX-License-Identifier: MPL-2.0

// Package benchmark samples the resource usage of a running process for the
// duration of a scoped acquisition. The runner acquires a sampler around its
// blocking wait; releasing the sampler finalizes the record on every exit
// path.
package benchmark

import (
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// DefaultSampler is the sampler used when no explicit one is configured.
var DefaultSampler = &Sampler{Interval: 100 * time.Millisecond}

type (
	// Record accumulates resource samples for one command invocation.
	// Fields are updated while sampling is in flight and are stable once
	// the acquisition has been released.
	Record struct {
		mu sync.Mutex

		// WallTime is the duration between acquisition and release.
		WallTime time.Duration
		// MaxRSS is the peak resident set size observed, in bytes.
		MaxRSS uint64
		// MaxVMS is the peak virtual memory size observed, in bytes.
		MaxVMS uint64
		// CPUTime is the cumulative user+system CPU time, in seconds.
		CPUTime float64
		// IOIn is the number of bytes read by the process.
		IOIn uint64
		// IOOut is the number of bytes written by the process.
		IOOut uint64
	}

	// Sampler produces scoped acquisitions that sample a process on a
	// fixed interval.
	Sampler struct {
		Interval time.Duration
	}
)

// Sampled begins sampling the process identified by pid into rec and
// returns the release function. The release function is idempotent and must
// be called when the surrounding wait ends, regardless of outcome.
func (s *Sampler) Sampled(pid int32, rec *Record) (stop func()) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSampler.Interval
	}

	start := time.Now()
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			rec.sample(pid)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
			rec.mu.Lock()
			rec.WallTime = time.Since(start)
			rec.mu.Unlock()
		})
	}
}

// sample takes one measurement of the process. A vanished process (already
// exited between samples) is silently skipped.
func (r *Record) sample(pid int32) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if mem, err := proc.MemoryInfo(); err == nil {
		if mem.RSS > r.MaxRSS {
			r.MaxRSS = mem.RSS
		}
		if mem.VMS > r.MaxVMS {
			r.MaxVMS = mem.VMS
		}
	}
	if times, err := proc.Times(); err == nil {
		if cpu := times.User + times.System; cpu > r.CPUTime {
			r.CPUTime = cpu
		}
	}
	if io, err := proc.IOCounters(); err == nil {
		if io.ReadBytes > r.IOIn {
			r.IOIn = io.ReadBytes
		}
		if io.WriteBytes > r.IOOut {
			r.IOOut = io.WriteBytes
		}
	}
}

// String renders the record as a one-line tab-separated summary:
// wall time, peak RSS (MB), peak VMS (MB), CPU seconds, IO in/out (bytes).
func (r *Record) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("%.4f\t%.2f\t%.2f\t%.2f\t%d\t%d",
		r.WallTime.Seconds(),
		float64(r.MaxRSS)/1024/1024,
		float64(r.MaxVMS)/1024/1024,
		r.CPUTime,
		r.IOIn,
		r.IOOut,
	)
}
