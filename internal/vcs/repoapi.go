package vcs

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
)

// repoAPI implements Submodule through the go-git repository API, without
// requiring a git executable.
type repoAPI struct {
	dir string
}

// NewRepoAPI returns a Submodule for the repository containing dir.
func NewRepoAPI(dir string) Submodule {
	return &repoAPI{dir: dir}
}

func (r *repoAPI) Update(ctx context.Context, name string) error {
	repo, err := git.PlainOpenWithOptions(r.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return &StepError{Step: StepOpen, Name: name, Err: err}
	}
	wt, err := repo.Worktree()
	if err != nil {
		return &StepError{Step: StepOpen, Name: name, Err: err}
	}
	sub, err := wt.Submodule(name)
	if err != nil {
		return &StepError{Step: StepLookup, Name: name, Err: err}
	}
	err = sub.UpdateContext(ctx, &git.SubmoduleUpdateOptions{
		Init:              true,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return &StepError{Step: StepUpdate, Name: name, Err: err}
	}
	return nil
}
