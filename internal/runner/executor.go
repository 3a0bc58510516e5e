// Package runner executes a single command under a wall-clock deadline,
// capturing its output streams and exit status.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Status classifies how an execution terminated.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusSignaled Status = "signaled"
	StatusTimeout  Status = "timeout"
)

// Config describes one execution: the command, its working directory,
// text supplied on stdin and the timeout. A zero timeout means no
// deadline.
type Config struct {
	Command string
	Args    []string
	Dir     string
	Stdin   string
	Timeout time.Duration
}

// Result carries everything observed about one terminated execution.
// Stdout and Stderr hold whatever the process wrote up to termination,
// including partial output of killed processes.
type Result struct {
	Command       string
	Status        Status
	ExitCode      int
	Signal        string
	Stdout        []byte
	Stderr        []byte
	ExecutionTime int64 // milliseconds
}

// TimedOut reports whether the execution was killed at the deadline.
func (r *Result) TimedOut() bool { return r.Status == StatusTimeout }

// pipeGrace bounds how long Wait may keep blocking on the output pipes
// once the process itself has exited. A descendant that escapes the
// process group (setsid) while inheriting stdout/stderr would otherwise
// hold Wait open for as long as it lives.
const pipeGrace = 1 * time.Second

// Execute runs the configured command once, to completion or to forced
// termination. The child is started in its own process group so that a
// timeout or context cancellation kills the whole process tree; the
// deadline (plus the fixed pipe grace) is the only termination
// guarantee given to the caller.
//
// A non-zero exit or a fatal signal is reported in the Result, not as
// an error. An error is returned only when the command cannot be
// started at all or the host refuses to kill it.
func Execute(ctx context.Context, config *Config) (*Result, error) {
	cmd := exec.Command(config.Command, config.Args...)
	cmd.Dir = config.Dir
	cmd.Stdin = strings.NewReader(config.Stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = pipeGrace

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command %s: %w", config.Command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var deadline <-chan time.Time
	if config.Timeout > 0 {
		timer := time.NewTimer(config.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	result := &Result{
		Command:  fullCommand(config),
		Status:   StatusSuccess,
		ExitCode: 0,
	}

	var waitErr error
	select {
	case waitErr = <-done:
	case <-deadline:
		if err := killProcessGroup(cmd); err != nil {
			return nil, fmt.Errorf("failed to kill timed-out process group: %w", err)
		}
		waitErr = <-done
		result.Status = StatusTimeout
		result.ExitCode = -1
	case <-ctx.Done():
		if err := killProcessGroup(cmd); err != nil {
			return nil, fmt.Errorf("failed to kill cancelled process group: %w", err)
		}
		<-done
		return nil, ctx.Err()
	}

	result.ExecutionTime = time.Since(startTime).Milliseconds()
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()

	if result.Status == StatusTimeout {
		return result, nil
	}

	if waitErr != nil {
		if errors.Is(waitErr, exec.ErrWaitDelay) {
			// The process exited cleanly; an orphaned descendant kept
			// the pipes open past the grace period. Output written
			// after the cutoff is lost.
			return result, nil
		}
		exitError, ok := waitErr.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("failed to wait for command: %w", waitErr)
		}
		status, ok := exitError.Sys().(syscall.WaitStatus)
		switch {
		case ok && status.Signaled():
			result.Status = StatusSignaled
			result.ExitCode = -1
			result.Signal = status.Signal().String()
		case ok:
			result.Status = StatusFailed
			result.ExitCode = status.ExitStatus()
		default:
			result.Status = StatusFailed
			result.ExitCode = 1
		}
	}

	return result, nil
}

// killProcessGroup force-kills the command's whole process group,
// covering any descendants the child may have spawned.
func killProcessGroup(cmd *exec.Cmd) error {
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		// The process may already be gone; killing it directly is the
		// best remaining option.
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return nil
	}
	if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}

func fullCommand(config *Config) string {
	if len(config.Args) == 0 {
		return config.Command
	}
	return config.Command + " " + strings.Join(config.Args, " ")
}
