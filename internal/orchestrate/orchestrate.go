// Package orchestrate sequences the stages of a run: source acquisition,
// binding generation and linkage. The first failing stage aborts the run.
package orchestrate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/goplus/uibuild/internal/acquire"
	"github.com/goplus/uibuild/internal/bindgen"
	"github.com/goplus/uibuild/internal/buildsys"
	"github.com/goplus/uibuild/internal/cmake"
	"github.com/goplus/uibuild/internal/config"
	"github.com/goplus/uibuild/internal/directive"
	"github.com/goplus/uibuild/internal/link"
	"github.com/goplus/uibuild/internal/locate"
	"github.com/goplus/uibuild/internal/probe"
	"github.com/goplus/uibuild/internal/toolexec"
	"github.com/goplus/uibuild/internal/vcs"
)

// Stage names.
const (
	StageAcquire = "acquire"
	StageBindgen = "bindgen"
	StageLink    = "link"
)

// Stage is one step of the pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// StageError tags a failure with the stage it came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Run executes stages in order and stops at the first failure.
func Run(ctx context.Context, stages ...Stage) error {
	for _, s := range stages {
		if err := s.Run(ctx); err != nil {
			return &StageError{Stage: s.Name, Err: err}
		}
	}
	return nil
}

// NativeBuildFunc runs the native build; cmake.BuildNative by default.
type NativeBuildFunc func(ctx context.Context, runner toolexec.Runner, req cmake.Request) (string, error)

// Deps are the collaborators of a run. Zero fields get the real
// implementations.
type Deps struct {
	Runner    toolexec.Runner
	Submodule vcs.Submodule
	Prober    probe.Prober
	Build     NativeBuildFunc
	// Stdout receives the linkage directives.
	Stdout io.Writer
	Logger *log.Logger
}

// Orchestrator runs the pipeline for one Config.
type Orchestrator struct {
	cfg     config.Config
	deps    Deps
	emitter *directive.Emitter

	// Bindings is the generated binding package, set by the bindgen stage.
	Bindings string
	// Linked is set by the link stage.
	Linked *link.Result
}

// New returns an orchestrator for cfg.
func New(cfg config.Config, deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Runner == nil {
		deps.Runner = toolexec.NewExecRunner(deps.Logger)
	}
	if deps.Submodule == nil {
		switch cfg.Acquire.Strategy {
		case config.StrategyCLI:
			deps.Submodule = vcs.NewGitCLI(cfg.ProjectDir, vcs.WithRunner(deps.Runner))
		default:
			deps.Submodule = vcs.NewRepoAPI(cfg.ProjectDir)
		}
	}
	if deps.Prober == nil {
		deps.Prober = &probe.PkgConfig{Runner: deps.Runner}
	}
	if deps.Build == nil {
		deps.Build = cmake.BuildNative
	}
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		emitter: directive.New(deps.Stdout, cfg.DirectivePrefix),
	}
}

// Stages returns the pipeline: acquire, bindgen, link.
func (o *Orchestrator) Stages() []Stage {
	return []Stage{
		{Name: StageAcquire, Run: o.acquire},
		{Name: StageBindgen, Run: o.bindgen},
		{Name: StageLink, Run: o.link},
	}
}

// Run executes every stage.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.deps.Logger.Debug("starting",
		"target", o.cfg.Target, "triple", o.cfg.Triple,
		"features", o.cfg.Features.Names(), "link", o.cfg.LinkMode,
		"out", o.cfg.OutDir)
	return Run(ctx, o.Stages()...)
}

func (o *Orchestrator) acquire(ctx context.Context) error {
	a := &acquire.Acquirer{
		Features:  o.cfg.Features,
		Submodule: o.deps.Submodule,
		Policy:    o.cfg.Acquire.OnFailure,
		Logger:    o.deps.Logger,
		Warner:    o.emitter,
	}
	return a.Run(ctx)
}

func (o *Orchestrator) bindgen(ctx context.Context) error {
	dir, err := bindgen.Generate(ctx, o.deps.Runner, bindgen.Options{
		Header:      o.cfg.Header(),
		IncludeDirs: []string{o.cfg.VendorDir()},
		OutDir:      o.cfg.OutDir,
		OpaqueTypes: bindgen.DefaultOpaqueTypes,
	})
	if err != nil {
		return err
	}
	o.Bindings = dir
	o.deps.Logger.Info("generated bindings", "dir", dir)
	return nil
}

func (o *Orchestrator) link(ctx context.Context) error {
	l := &link.Linker{
		Target: o.cfg.Target,
		Mode:   o.cfg.LinkMode,
		Resolver: &locate.Locator{
			Features: o.cfg.Features,
			Target:   o.cfg.Target,
			WorkDir:  o.cfg.WorkDir,
			Build:    o.buildNative,
		},
		Prober:  o.deps.Prober,
		Emitter: o.emitter,
		Logger:  o.deps.Logger,
	}
	res, err := l.Run(ctx)
	if err != nil {
		return err
	}
	o.Linked = res
	return nil
}

func (o *Orchestrator) buildNative(ctx context.Context, static bool) (string, error) {
	o.deps.Logger.Info("building native library", "source", o.cfg.VendorDir(), "static", static)
	return o.deps.Build(ctx, o.deps.Runner, cmake.Request{
		SourceDir: o.cfg.VendorDir(),
		OutDir:    o.cfg.OutDir,
		Profile:   buildsys.Release,
		Static:    static,
		Target:    o.cfg.Target,
	})
}
