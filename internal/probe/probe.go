// Package probe locates system libraries the statically linked native
// library still depends on.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/goplus/uibuild/internal/target"
	"github.com/goplus/uibuild/internal/toolexec"
)

var (
	// ErrUnsupported is returned for targets without a known set of
	// system dependencies for static linkage.
	ErrUnsupported = errors.New("static linkage has no system library probe for this target")
	// ErrPkgConfigNotInstalled is returned when pkg-config cannot be run.
	ErrPkgConfigNotInstalled = errors.New("pkg-config does not appear to be installed")
)

// GTK3 is the system toolkit the Linux backend of libui is built on.
const GTK3 = "gtk+-3.0"

// NotFoundError reports a system package that pkg-config does not know.
type NotFoundError struct {
	Package string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("system library %s not found (install its development package or set PKG_CONFIG_PATH): %v", e.Package, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Library holds the flags a probed package contributes.
type Library struct {
	Name   string
	Libs   []string
	CFlags []string
}

// Prober looks up a system package.
type Prober interface {
	Probe(ctx context.Context, pkg string) (*Library, error)
}

// Plan lists the system packages to probe for a static link.
type Plan struct {
	Target   target.Target
	Packages []string
}

// For returns the probe plan for static linkage on t. Apple links against
// system frameworks and needs no probe.
func For(t target.Target) (Plan, error) {
	switch t {
	case target.Linux:
		return Plan{Target: t, Packages: []string{GTK3}}, nil
	case target.Apple:
		return Plan{Target: t}, nil
	}
	return Plan{Target: t}, fmt.Errorf("%w: %s", ErrUnsupported, t)
}

// Run probes every package of the plan in order, stopping at the first
// failure.
func (p Plan) Run(ctx context.Context, prober Prober) ([]*Library, error) {
	var libs []*Library
	for _, pkg := range p.Packages {
		lib, err := prober.Probe(ctx, pkg)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// PkgConfig probes packages with the pkg-config tool.
type PkgConfig struct {
	Runner toolexec.Runner
	// Path is the pkg-config executable, "pkg-config" when empty.
	Path string
}

func (p *PkgConfig) Probe(ctx context.Context, pkg string) (*Library, error) {
	if _, err := p.query(ctx, "--exists", pkg); err != nil {
		if errors.Is(err, toolexec.ErrNotFound) {
			return nil, fmt.Errorf("probe %s: %w", pkg, ErrPkgConfigNotInstalled)
		}
		return nil, &NotFoundError{Package: pkg, Err: err}
	}
	libs, err := p.fields(ctx, "--libs", pkg)
	if err != nil {
		return nil, err
	}
	cflags, err := p.fields(ctx, "--cflags", pkg)
	if err != nil {
		return nil, err
	}
	return &Library{Name: pkg, Libs: libs, CFlags: cflags}, nil
}

func (p *PkgConfig) fields(ctx context.Context, flag, pkg string) ([]string, error) {
	out, err := p.query(ctx, flag, pkg)
	if err != nil {
		return nil, fmt.Errorf("pkg-config %s %s: %w", flag, pkg, err)
	}
	fields, err := shell.Fields(strings.TrimSpace(out), nil)
	if err != nil {
		return nil, fmt.Errorf("pkg-config %s %s: parse %q: %w", flag, pkg, out, err)
	}
	return fields, nil
}

func (p *PkgConfig) query(ctx context.Context, args ...string) (string, error) {
	bin := p.Path
	if bin == "" {
		bin = "pkg-config"
	}
	return p.Runner.Output(ctx, toolexec.Cmd{Name: bin, Args: args})
}
