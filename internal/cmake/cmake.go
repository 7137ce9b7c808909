// Package cmake drives CMake builds of the vendored native library.
package cmake

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/goplus/uibuild/internal/buildsys"
	"github.com/goplus/uibuild/internal/target"
	"github.com/goplus/uibuild/internal/toolexec"
)

var (
	// ErrCMakeNotInstalled is returned when cmake cannot be run.
	ErrCMakeNotInstalled = errors.New("cmake does not appear to be installed")
	// ErrCMakeTooOld is returned when cmake is older than MinVersion.
	ErrCMakeTooOld = errors.New("cmake is too old")
)

// MinVersion is the oldest CMake able to configure the vendored tree.
const MinVersion = "v3.1.0"

type defineValue struct {
	value    string
	typeName string
}

// CMake wraps common CMake build steps with chainable configuration.
type CMake struct {
	runner    toolexec.Runner
	sourceDir string
	buildDir  string
	buildType buildsys.Profile
	cxxFlags  []string
	defines   map[string]defineValue
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New creates a CMake helper that runs cmake through runner.
func New(runner toolexec.Runner) *CMake {
	return &CMake{
		runner:  runner,
		defines: map[string]defineValue{},
	}
}

func (c *CMake) Source(dir string) {
	c.sourceDir = dir
}

func (c *CMake) BuildDir(dir string) {
	c.buildDir = dir
}

func (c *CMake) BuildType(p buildsys.Profile) *CMake {
	c.buildType = p
	return c
}

// CXXFlag appends a flag to CMAKE_CXX_FLAGS.
func (c *CMake) CXXFlag(flag string) *CMake {
	c.cxxFlags = append(c.cxxFlags, flag)
	return c
}

func (c *CMake) Define(key, value string) *CMake {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

func (c *CMake) DefineBool(key string, value bool) *CMake {
	if value {
		c.defines[key] = defineValue{value: "ON", typeName: "BOOL"}
		return c
	}
	c.defines[key] = defineValue{value: "OFF", typeName: "BOOL"}
	return c
}

func (c *CMake) Configure(ctx context.Context, args ...string) error {
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.OutputDir()}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", string(c.buildType))
	}
	if len(c.cxxFlags) > 0 {
		c.Define("CMAKE_CXX_FLAGS", strings.Join(c.cxxFlags, " "))
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(ctx, cmakeArgs...)
}

// Build builds the default target of the configured tree.
func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--build", c.OutputDir()}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", string(c.buildType))
	}
	cmdArgs = append(cmdArgs, args...)
	return c.run(ctx, cmdArgs...)
}

// OutputDir returns the build dir, "build" when unset.
func (c *CMake) OutputDir() string {
	if c.buildDir == "" {
		return "build"
	}
	return c.buildDir
}

// Version returns the installed cmake version in semver form ("v3.22.1").
func (c *CMake) Version(ctx context.Context) (string, error) {
	out, err := c.runner.Output(ctx, toolexec.Cmd{Name: "cmake", Args: []string{"--version"}})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCMakeNotInstalled, err)
	}
	return parseVersion(out)
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := c.defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}

func (c *CMake) run(ctx context.Context, args ...string) error {
	return c.runner.Run(ctx, toolexec.Cmd{Name: "cmake", Args: args})
}

var versionRE = regexp.MustCompile(`cmake version (\d+)\.(\d+)(?:\.(\d+))?`)

func parseVersion(out string) (string, error) {
	m := versionRE.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("unrecognized cmake --version output: %q", strings.TrimSpace(out))
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v := "v" + m[1] + "." + m[2] + "." + patch
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid cmake version %q", v)
	}
	return v, nil
}

// Request describes one native build.
type Request struct {
	// SourceDir is the vendored source tree.
	SourceDir string
	// OutDir is the build-scoped output root; the CMake tree goes to OutDir/build.
	OutDir  string
	Profile buildsys.Profile
	Static  bool
	Target  target.Target
}

// BuildNative configures and builds the vendored tree and returns the
// output root.
func BuildNative(ctx context.Context, runner toolexec.Runner, req Request) (string, error) {
	c := New(runner)
	v, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	if semver.Compare(v, MinVersion) < 0 {
		return "", fmt.Errorf("%w: found %s, need %s", ErrCMakeTooOld, v, MinVersion)
	}

	profile := req.Profile
	if profile == "" {
		profile = buildsys.Release
	}
	c.BuildType(profile)
	if req.Static {
		c.DefineBool("BUILD_SHARED_LIBS", false)
	}
	if req.Target.IsApple() {
		c.CXXFlag("--stdlib=libc++")
	}

	if _, err := buildsys.Run(ctx, c, req.SourceDir, filepath.Join(req.OutDir, "build")); err != nil {
		return "", fmt.Errorf("cmake %w", err)
	}
	return req.OutDir, nil
}
