package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/uibuild/internal/toolexec"
)

// ErrGitNotInstalled is returned when the git executable cannot be run.
var ErrGitNotInstalled = errors.New("git does not appear to be installed")

// Submodule brings a vendored sub-tree of the enclosing repository up to
// the revision pinned by that repository.
type Submodule interface {
	Update(ctx context.Context, name string) error
}

// Step names the stage of a submodule update that failed.
type Step string

const (
	StepVersion Step = "check git"
	StepInit    Step = "init submodule"
	StepUpdate  Step = "update submodule"
	StepOpen    Step = "open repository"
	StepLookup  Step = "look up submodule"
)

// StepError reports which step of a submodule update failed.
type StepError struct {
	Step Step
	Name string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Step, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// gitCLI implements Submodule with the git executable.
type gitCLI struct {
	dir    string
	git    string
	runner toolexec.Runner
}

// GitOption configures the git CLI submodule driver.
type GitOption func(*gitCLI)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitCLI) {
		g.git = path
	}
}

// WithRunner sets the runner used to invoke git.
func WithRunner(r toolexec.Runner) GitOption {
	return func(g *gitCLI) {
		g.runner = r
	}
}

// NewGitCLI returns a Submodule driving the git executable inside the
// repository rooted at dir.
func NewGitCLI(dir string, opts ...GitOption) Submodule {
	g := &gitCLI{dir: dir, git: "git", runner: toolexec.NewExecRunner(nil)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Update initializes the submodule when its checkout has no .git marker
// and updates it recursively otherwise.
func (g *gitCLI) Update(ctx context.Context, name string) error {
	if _, err := os.Stat(filepath.Join(g.dir, name, ".git")); os.IsNotExist(err) {
		if _, err := g.output(ctx, "version"); err != nil {
			return &StepError{Step: StepVersion, Name: name, Err: fmt.Errorf("%w: %v", ErrGitNotInstalled, err)}
		}
		if err := g.run(ctx, "submodule", "update", "--init", "--", name); err != nil {
			return &StepError{Step: StepInit, Name: name, Err: err}
		}
		return nil
	}
	if err := g.run(ctx, "submodule", "update", "--recursive", "--", name); err != nil {
		if errors.Is(err, toolexec.ErrNotFound) {
			err = fmt.Errorf("%w: %v", ErrGitNotInstalled, err)
		}
		return &StepError{Step: StepUpdate, Name: name, Err: err}
	}
	return nil
}

func (g *gitCLI) run(ctx context.Context, args ...string) error {
	_, err := g.output(ctx, args...)
	return err
}

func (g *gitCLI) output(ctx context.Context, args ...string) (string, error) {
	return g.runner.Output(ctx, toolexec.Cmd{Name: g.git, Args: args, Dir: g.dir})
}
