// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestSampledObservesOwnProcess(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	s := &Sampler{Interval: 10 * time.Millisecond}
	stop := s.Sampled(int32(os.Getpid()), rec)
	time.Sleep(50 * time.Millisecond)
	stop()

	if rec.WallTime <= 0 {
		t.Errorf("WallTime = %v, want > 0", rec.WallTime)
	}
	if rec.MaxRSS == 0 {
		t.Error("MaxRSS = 0, want a resident-set sample")
	}
}

func TestSampledStopIsIdempotent(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	stop := DefaultSampler.Sampled(int32(os.Getpid()), rec)
	stop()
	first := rec.WallTime
	stop()
	if rec.WallTime != first {
		t.Error("second stop changed WallTime")
	}
}

func TestSampledVanishedProcess(t *testing.T) {
	t.Parallel()

	// A pid that cannot exist: sampling must be a no-op, not a crash.
	rec := &Record{}
	s := &Sampler{Interval: 5 * time.Millisecond}
	stop := s.Sampled(1<<30, rec)
	time.Sleep(20 * time.Millisecond)
	stop()

	if rec.MaxRSS != 0 {
		t.Errorf("MaxRSS = %d for nonexistent process", rec.MaxRSS)
	}
}

func TestRecordString(t *testing.T) {
	t.Parallel()

	rec := &Record{WallTime: 1500 * time.Millisecond, MaxRSS: 10 << 20, CPUTime: 0.25}
	fields := strings.Split(rec.String(), "\t")
	if len(fields) != 6 {
		t.Fatalf("String has %d fields, want 6: %q", len(fields), rec.String())
	}
	if fields[0] != "1.5000" {
		t.Errorf("wall-time field = %q, want 1.5000", fields[0])
	}
	if fields[1] != "10.00" {
		t.Errorf("rss field = %q, want 10.00", fields[1])
	}
}
