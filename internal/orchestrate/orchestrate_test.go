package orchestrate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/goplus/uibuild/internal/acquire"
	"github.com/goplus/uibuild/internal/bindgen"
	"github.com/goplus/uibuild/internal/config"
	"github.com/goplus/uibuild/internal/directive"
	"github.com/goplus/uibuild/internal/feature"
	"github.com/goplus/uibuild/internal/probe"
	"github.com/goplus/uibuild/internal/target"
	"github.com/goplus/uibuild/internal/toolexec/toolexectest"
)

const cmakeVersion = "cmake version 3.27.4\n"

type fakeSubmodule struct {
	calls int
	err   error
}

func (f *fakeSubmodule) Update(ctx context.Context, name string) error {
	f.calls++
	return f.err
}

type fixture struct {
	cfg    config.Config
	runner *toolexectest.Runner
	sub    *fakeSubmodule
	out    bytes.Buffer
}

func newFixture(t *testing.T, triple string, mode directive.LinkMode, features ...string) *fixture {
	t.Helper()
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, bindgen.DefaultHeader), []byte("#include \"libui/ui.h\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tgt, err := target.Parse(triple)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		cfg: config.Config{
			Triple:     triple,
			Target:     tgt,
			Features:   feature.Of(features...),
			OutDir:     filepath.Join(project, "out"),
			ProjectDir: project,
			WorkDir:    project,
			LinkMode:   mode,
			Acquire:    config.Acquire{Strategy: config.StrategyRepo, OnFailure: acquire.Warn},
		},
		runner: toolexectest.New().On("cmake --version", toolexectest.Result{Output: cmakeVersion}),
		sub:    &fakeSubmodule{},
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(f.cfg, Deps{
		Runner:    f.runner,
		Submodule: f.sub,
		Stdout:    &f.out,
		Logger:    log.New(io.Discard),
	})
}

func (f *fixture) directives() []string {
	return strings.Split(strings.TrimSpace(f.out.String()), "\n")
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	stage := func(name string, err error) Stage {
		return Stage{Name: name, Run: func(ctx context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}
	err := Run(context.Background(), stage("a", nil), stage("b", boom), stage("c", nil))
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "b" || !errors.Is(err, boom) {
		t.Fatalf("error = %v, want stage b wrapping boom", err)
	}
	if strings.Join(ran, ",") != "a,b" {
		t.Fatalf("ran = %v, want a,b", ran)
	}
}

func TestScenarioWindowsPrebuilt(t *testing.T) {
	f := newFixture(t, "x86_64-pc-windows-msvc", directive.Dynamic)
	o := f.orchestrator()
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	libDir := filepath.Join(f.cfg.WorkDir, "lib")
	want := []string{
		"uibuild:link-search=native=" + libDir,
		"uibuild:link-lib=dylib=libui",
	}
	if got := f.directives(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("directives = %v, want %v", got, want)
	}
	if f.runner.Called("cmake") {
		t.Fatal("native build ran without the build feature")
	}
	if f.sub.calls != 0 {
		t.Fatal("submodule updated without the fetch feature")
	}
	if o.Bindings != filepath.Join(f.cfg.OutDir, "ui") {
		t.Fatalf("Bindings = %q", o.Bindings)
	}
}

func TestScenarioWindowsStaticUnsupported(t *testing.T) {
	f := newFixture(t, "x86_64-pc-windows-msvc", directive.Static)
	err := f.orchestrator().Run(context.Background())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageLink {
		t.Fatalf("error = %v, want link stage failure", err)
	}
	if !errors.Is(err, probe.ErrUnsupported) {
		t.Fatalf("error = %v, want ErrUnsupported", err)
	}
}

func TestScenarioAppleBuild(t *testing.T) {
	f := newFixture(t, "x86_64-apple-darwin", directive.Static, feature.Build)
	o := f.orchestrator()
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var configure string
	for _, c := range f.runner.Commands() {
		if strings.HasPrefix(c, "cmake -S") {
			configure = c
		}
	}
	if !strings.Contains(configure, "--stdlib=libc++") {
		t.Fatalf("configure %q lacks the libc++ flag", configure)
	}
	if f.runner.Called("pkg-config") {
		t.Fatal("system library probe ran on apple")
	}
	wantDir := filepath.Join(f.cfg.OutDir, "build", "out")
	if o.Linked.Dir != wantDir || o.Linked.LibName != "ui" {
		t.Fatalf("Linked = %+v", o.Linked)
	}
	want := []string{
		"uibuild:link-search=native=" + wantDir,
		"uibuild:link-lib=static=ui",
	}
	if got := f.directives(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("directives = %v, want %v", got, want)
	}
}

func TestScenarioLinuxBuild(t *testing.T) {
	f := newFixture(t, "x86_64-unknown-linux-gnu", directive.Static, feature.Build)
	f.runner.On("pkg-config --libs", toolexectest.Result{Output: "-lgtk-3 -lgdk-3\n"})
	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	exists := 0
	for _, c := range f.runner.Commands() {
		if c == "pkg-config --exists "+probe.GTK3 {
			exists++
		}
	}
	if exists != 1 {
		t.Fatalf("probe ran %d times, want 1", exists)
	}
	got := f.directives()
	wantSearch := "uibuild:link-search=native=" + filepath.Join(f.cfg.OutDir, "build", "out")
	if got[0] != wantSearch {
		t.Fatalf("first directive = %q, want %q", got[0], wantSearch)
	}
	if got[len(got)-1] != "uibuild:link-lib=static=ui" {
		t.Fatalf("last directive = %q", got[len(got)-1])
	}
}

func TestScenarioLinuxProbeFailure(t *testing.T) {
	f := newFixture(t, "x86_64-unknown-linux-gnu", directive.Static, feature.Build)
	f.runner.On("pkg-config --exists", toolexectest.Result{Err: errors.New("exit status 1")})
	err := f.orchestrator().Run(context.Background())
	var nf *probe.NotFoundError
	if !errors.As(err, &nf) || nf.Package != probe.GTK3 {
		t.Fatalf("error = %v, want NotFoundError for %s", err, probe.GTK3)
	}
	if !strings.Contains(err.Error(), probe.GTK3) {
		t.Fatalf("error %q does not name %s", err, probe.GTK3)
	}
	for _, d := range f.directives() {
		if strings.HasPrefix(d, "uibuild:link-lib") {
			t.Fatalf("link directive emitted after probe failure: %q", d)
		}
	}
}

func TestAcquirePolicies(t *testing.T) {
	failure := errors.New("remote unreachable")

	f := newFixture(t, "x86_64-unknown-linux-gnu", directive.Dynamic, feature.Fetch)
	f.sub.err = failure
	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("warn policy: Run = %v, want nil", err)
	}
	if f.sub.calls != 1 {
		t.Fatalf("submodule calls = %d, want 1", f.sub.calls)
	}
	if !strings.Contains(f.out.String(), "uibuild:warning=") {
		t.Fatalf("warning directive missing: %q", f.out.String())
	}

	f = newFixture(t, "x86_64-unknown-linux-gnu", directive.Dynamic, feature.Fetch)
	f.sub.err = failure
	f.cfg.Acquire.OnFailure = acquire.Abort
	err := f.orchestrator().Run(context.Background())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageAcquire || !errors.Is(err, failure) {
		t.Fatalf("abort policy: error = %v", err)
	}
	if f.runner.Called("c-for-go") {
		t.Fatal("bindgen ran after an aborted acquisition")
	}
	if f.out.Len() != 0 {
		t.Fatalf("directives emitted after abort: %q", f.out.String())
	}
}

func TestBindgenFailureAborts(t *testing.T) {
	f := newFixture(t, "x86_64-unknown-linux-gnu", directive.Static, feature.Build)
	f.runner.On("c-for-go", toolexectest.Result{Err: errors.New("parse error")})
	err := f.orchestrator().Run(context.Background())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageBindgen {
		t.Fatalf("error = %v, want bindgen stage failure", err)
	}
	if f.runner.Called("cmake") || f.out.Len() != 0 {
		t.Fatal("link stage ran after bindgen failure")
	}
}
