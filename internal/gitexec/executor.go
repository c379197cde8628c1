package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// ErrNotRepository is returned when the directory is not inside a git work tree
var ErrNotRepository = errors.New("not a git repository")

// Executor defines the interface for executing git commands
type Executor interface {
	// RunInDir executes a git command with the given arguments in a specific directory
	RunInDir(ctx context.Context, dir string, args ...string) (string, error)
}

// RealExecutor implements Executor for actual git command execution
type RealExecutor struct {
	// Binary is the git executable, "git" when empty
	Binary string
}

// NewExecutor creates a new RealExecutor instance
func NewExecutor() Executor {
	return &RealExecutor{}
}

// RunInDir executes a git command in a specific directory
func (e *RealExecutor) RunInDir(ctx context.Context, dir string, args ...string) (string, error) {
	binary := e.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "not a git repository") {
			return "", fmt.Errorf("git %s in %s: %w", strings.Join(args, " "), dir, ErrNotRepository)
		}
		return "", fmt.Errorf("git %s failed in %s: %w\nstderr: %s",
			strings.Join(args, " "), dir, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// MockExecutor implements Executor for testing
type MockExecutor struct {
	// RunInDirFunc is called when RunInDir is invoked
	RunInDirFunc func(dir string, args ...string) (string, error)

	mu      sync.Mutex
	callLog []MockCall
}

// MockCall represents a recorded call to the mock executor
type MockCall struct {
	Dir    string
	Args   []string
	Output string
	Error  error
}

// NewMockExecutor creates a new MockExecutor with default behavior
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// RunInDir executes the mock RunInDir function
func (m *MockExecutor) RunInDir(ctx context.Context, dir string, args ...string) (string, error) {
	var output string
	var err error

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else if m.RunInDirFunc != nil {
		output, err = m.RunInDirFunc(dir, args...)
	}

	m.mu.Lock()
	m.callLog = append(m.callLog, MockCall{
		Dir:    dir,
		Args:   args,
		Output: output,
		Error:  err,
	})
	m.mu.Unlock()

	return output, err
}

// Calls returns a copy of all recorded calls
func (m *MockExecutor) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.callLog...)
}

// Subcommands returns the first argument of each recorded call
func (m *MockExecutor) Subcommands() []string {
	var subs []string
	for _, call := range m.Calls() {
		if len(call.Args) > 0 {
			subs = append(subs, call.Args[0])
		}
	}
	return subs
}

// Reset clears the call log
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	m.callLog = nil
	m.mu.Unlock()
}
