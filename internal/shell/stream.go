// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
)

// Stream is a lazy, finite, non-restartable sequence of output lines from a
// running command. It follows the bufio.Scanner shape: call Next until it
// returns false, read each line with Text, then check Err.
//
// Reaping is tied to consumption: when the stream is exhausted, it waits for
// the process and deregisters the job id; a caller that abandons the stream
// early must call Close, which kills the process, waits, and deregisters.
// Either way the child is reaped exactly once and never leaks.
type Stream struct {
	cmd      *exec.Cmd
	pipe     io.ReadCloser
	scanner  *bufio.Scanner
	registry *Registry
	jobid    string
	command  string

	done bool
	err  error
}

func newStream(cmd *exec.Cmd, pipe io.ReadCloser, registry *Registry, jobid, command string) *Stream {
	return &Stream{
		cmd:      cmd,
		pipe:     pipe,
		scanner:  bufio.NewScanner(pipe),
		registry: registry,
		jobid:    jobid,
		command:  command,
	}
}

// Next advances to the next output line, blocking until the child produces
// one. It returns false when the output is exhausted, at which point the
// process has been waited for and deregistered.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	if s.scanner.Scan() {
		return true
	}
	s.finish()
	return false
}

// Text returns the current line without its trailing line terminator.
func (s *Stream) Text() string {
	return s.scanner.Text()
}

// Err returns the terminal error of the stream: a *CommandFailedError when
// the command exited non-zero, a read error from the pipe, or nil. It is
// meaningful only after Next has returned false.
func (s *Stream) Err() error {
	return s.err
}

// Command returns the command text the stream is producing output for.
func (s *Stream) Command() string {
	return s.command
}

// Close releases the stream before exhaustion: it kills the child if still
// running, waits for it, and deregisters the job id. Closing an exhausted or
// already-closed stream is a no-op.
func (s *Stream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	_ = s.cmd.Process.Kill()
	_ = s.pipe.Close()
	_ = s.cmd.Wait()
	s.registry.Deregister(s.jobid)
	return nil
}

// finish reaps the process after the pipe has drained and surfaces the exit
// status through Err.
func (s *Stream) finish() {
	s.done = true
	waitErr := s.cmd.Wait()
	s.registry.Deregister(s.jobid)

	if scanErr := s.scanner.Err(); scanErr != nil {
		s.err = scanErr
		return
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			s.err = &CommandFailedError{ExitCode: exitErr.ExitCode(), Command: s.command}
			return
		}
		s.err = waitErr
	}
}
