// Package toolexec runs the external tools a build step delegates to.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/execabs"
)

// ErrNotFound is returned when the executable cannot be resolved.
var ErrNotFound = errors.New("executable not found")

// Cmd describes one tool invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env overrides entries of the inherited environment.
	Env map[string]string
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands to completion.
type Runner interface {
	// Run executes c, streaming its output to the build log.
	Run(ctx context.Context, c Cmd) error
	// Output executes c and returns its standard output.
	Output(ctx context.Context, c Cmd) (string, error)
}

// ExitError reports a command that started but did not succeed.
type ExitError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Cmd, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Log receives streamed tool output. Defaults to os.Stderr, stdout is
	// left alone for linkage directives.
	Log    io.Writer
	Logger *log.Logger
}

// NewExecRunner returns a runner streaming tool output to stderr.
func NewExecRunner(logger *log.Logger) *ExecRunner {
	return &ExecRunner{Log: os.Stderr, Logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, c Cmd) error {
	cmd, err := r.command(ctx, c)
	if err != nil {
		return err
	}
	out := r.Log
	if out == nil {
		out = os.Stderr
	}
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return &ExitError{Cmd: c.String(), Err: err}
	}
	return nil
}

func (r *ExecRunner) Output(ctx context.Context, c Cmd) (string, error) {
	cmd, err := r.command(ctx, c)
	if err != nil {
		return "", err
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &ExitError{Cmd: c.String(), Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}

func (r *ExecRunner) command(ctx context.Context, c Cmd) (*execabs.Cmd, error) {
	if _, err := execabs.LookPath(c.Name); err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrNotFound)
	}
	if r.Logger != nil {
		r.Logger.Debug("exec", "cmd", c.String(), "dir", c.Dir)
	}
	cmd := execabs.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}
	return cmd, nil
}

// MergeEnv applies override on top of base and returns a sorted environment.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
