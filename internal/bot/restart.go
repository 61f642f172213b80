package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// ProcessRestarter restarts the bot in two halves: Restart asks the running
// process to shut down, and once it has, Spawn starts a detached copy of
// the binary with the same arguments. The old process releases its port and
// session file before the new one starts.
type ProcessRestarter struct {
	mu        sync.Mutex
	shutdown  context.CancelFunc
	requested bool

	// Executable and Args default to the running binary and os.Args[1:]
	Executable func() (string, error)
	Args       []string
}

// NewRestarter returns a restarter that cancels shutdown when triggered
func NewRestarter(shutdown context.CancelFunc) *ProcessRestarter {
	return &ProcessRestarter{
		shutdown:   shutdown,
		Executable: os.Executable,
		Args:       os.Args[1:],
	}
}

// Restart marks the restart and begins shutdown
func (r *ProcessRestarter) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown == nil {
		return errors.New("restart is not wired to a shutdown")
	}
	r.requested = true
	r.shutdown()
	return nil
}

// Requested reports whether Restart was called
func (r *ProcessRestarter) Requested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requested
}

// Spawn starts the replacement process detached from this one and returns
// its PID. The caller exits afterwards.
func (r *ProcessRestarter) Spawn() (int, error) {
	executable, err := r.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, r.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start new process: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release new process: %w", err)
	}
	return pid, nil
}
