// Package buildsys declares the lifecycle shared by native build systems.
package buildsys

import (
	"context"
	"fmt"
)

// BuildSystem captures shared capabilities of build helpers (CMake for now).
// Implementations add their own configuration extras.
type BuildSystem interface {
	// Basic paths.
	Source(dir string)
	BuildDir(dir string)

	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error

	// Where the build tree lands.
	OutputDir() string
}

// Run points bs at source and buildDir, configures and builds it, and
// returns the resulting build tree.
func Run(ctx context.Context, bs BuildSystem, source, buildDir string) (string, error) {
	bs.Source(source)
	bs.BuildDir(buildDir)
	if err := bs.Configure(ctx); err != nil {
		return "", fmt.Errorf("configure: %w", err)
	}
	if err := bs.Build(ctx); err != nil {
		return "", fmt.Errorf("build: %w", err)
	}
	return bs.OutputDir(), nil
}

// Profile is the build configuration passed to the native build system.
type Profile string

// Release is the only profile used for the vendored library.
const Release Profile = "Release"
