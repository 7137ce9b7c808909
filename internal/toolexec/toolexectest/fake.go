// Package toolexectest provides a scripted toolexec.Runner for tests.
package toolexectest

import (
	"context"
	"strings"
	"sync"

	"github.com/goplus/uibuild/internal/toolexec"
)

// Result is the scripted outcome of one command.
type Result struct {
	Output string
	Err    error
}

// Runner records every command and answers from Results, keyed by the
// command line prefix ("git submodule", "cmake --version", ...). The
// longest matching key wins; unmatched commands succeed with no output.
type Runner struct {
	mu      sync.Mutex
	Results map[string]Result
	Calls   []toolexec.Cmd
}

// New returns an empty fake runner.
func New() *Runner {
	return &Runner{Results: map[string]Result{}}
}

// On scripts the result for commands starting with prefix.
func (r *Runner) On(prefix string, res Result) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results[prefix] = res
	return r
}

func (r *Runner) Run(ctx context.Context, c toolexec.Cmd) error {
	_, err := r.Output(ctx, c)
	return err
}

func (r *Runner) Output(ctx context.Context, c toolexec.Cmd) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, c)
	line := c.String()
	best := ""
	found := false
	for prefix := range r.Results {
		if strings.HasPrefix(line, prefix) && len(prefix) >= len(best) {
			best, found = prefix, true
		}
	}
	if !found {
		return "", nil
	}
	res := r.Results[best]
	return res.Output, res.Err
}

// Commands returns the recorded command lines.
func (r *Runner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		out[i] = c.String()
	}
	return out
}

// Called reports whether any recorded command starts with prefix.
func (r *Runner) Called(prefix string) bool {
	for _, line := range r.Commands() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
