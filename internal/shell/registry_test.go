// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"os/exec"
	"runtime"
	"sync"
	"testing"
)

func TestRegistryRegisterDeregister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if r.Contains("job1") {
		t.Error("fresh registry contains job1")
	}

	cmd := startSleeper(t)
	r.Register("job1", cmd.Process)
	if !r.Contains("job1") {
		t.Error("registered job1 not found")
	}

	r.Deregister("job1")
	if r.Contains("job1") {
		t.Error("deregistered job1 still present")
	}
}

func TestRegistryEmptyJobIDIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	cmd := startSleeper(t)
	r.Register("", cmd.Process)
	if r.Len() != 0 {
		t.Errorf("Register with empty jobid inserted an entry, Len = %d", r.Len())
	}
	r.Deregister("")
}

func TestRegistryKillUnknownIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Kill("no-such-job")
	if r.Len() != 0 {
		t.Errorf("Kill on unknown job changed registry, Len = %d", r.Len())
	}
}

func TestRegistryKillTerminatesAndRemoves(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	cmd := startSleeper(t)
	r.Register("job1", cmd.Process)

	r.Kill("job1")
	if r.Contains("job1") {
		t.Error("killed job1 still registered")
	}

	// The process must actually be gone; Wait reaps it and reports the
	// kill signal as a failed exit.
	if err := cmd.Wait(); err == nil {
		t.Error("killed process exited successfully")
	}

	// Killing again is idempotent.
	r.Kill("job1")
}

func TestRegistryClearDropsWithoutSignaling(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	cmd := startSleeper(t)
	r.Register("job1", cmd.Process)

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Clear left %d entries", r.Len())
	}

	// The process was not signaled; it is still ours to stop.
	if err := cmd.Process.Kill(); err != nil {
		t.Errorf("process already gone after Clear: %v", err)
	}
	_ = cmd.Wait()
}

func TestRegistryConcurrentKillAndDeregister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	cmd := startSleeper(t)
	r.Register("job1", cmd.Process)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Kill("job1")
		}()
		go func() {
			defer wg.Done()
			r.Deregister("job1")
		}()
	}
	wg.Wait()

	if r.Contains("job1") {
		t.Error("job1 still registered after concurrent kill/deregister")
	}
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
}

// startSleeper launches a long-running child to register in tests.
func startSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX test command")
	}
	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("starting sleeper: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return cmd
}
