// Package acquire makes sure the vendored native source tree is present
// before anything consumes it.
package acquire

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/goplus/uibuild/internal/feature"
	"github.com/goplus/uibuild/internal/vcs"
)

// SubmoduleName is the vendored tree managed by this tool.
const SubmoduleName = "libui"

// Policy decides what a failed acquisition does to the build.
type Policy int

const (
	// Warn logs the failure and lets the build continue with whatever
	// source is already on disk.
	Warn Policy = iota
	// Abort fails the build.
	Abort
)

// ParsePolicy accepts "warn" and "abort".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warn", "":
		return Warn, nil
	case "abort":
		return Abort, nil
	}
	return Warn, fmt.Errorf("unknown acquisition failure policy %q (want abort or warn)", s)
}

func (p Policy) String() string {
	if p == Abort {
		return "abort"
	}
	return "warn"
}

// Warner surfaces warnings in the host build log.
type Warner interface {
	Warning(msg string)
}

// Acquirer updates the vendored submodule when the fetch feature is on.
type Acquirer struct {
	Features  feature.Set
	Submodule vcs.Submodule
	Policy    Policy
	Logger    *log.Logger
	Warner    Warner
}

func (a *Acquirer) Run(ctx context.Context) error {
	if !a.Features.Enabled(feature.Fetch) {
		a.logger().Debug("fetch feature disabled, skipping source acquisition")
		return nil
	}
	a.logger().Info("updating vendored source", "submodule", SubmoduleName)
	err := a.Submodule.Update(ctx, SubmoduleName)
	if err == nil {
		return nil
	}
	if a.Policy == Abort {
		return fmt.Errorf("acquire %s: %w", SubmoduleName, err)
	}
	msg := fmt.Sprintf("could not update %s, continuing with the existing tree: %v", SubmoduleName, err)
	a.logger().Warn(msg)
	if a.Warner != nil {
		a.Warner.Warning(msg)
	}
	return nil
}

func (a *Acquirer) logger() *log.Logger {
	if a.Logger == nil {
		return log.Default()
	}
	return a.Logger
}
