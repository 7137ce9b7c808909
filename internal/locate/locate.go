// Package locate decides where the native library to link lives.
package locate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/goplus/uibuild/internal/feature"
	"github.com/goplus/uibuild/internal/target"
)

// PrebuiltDir is where a prebuilt library is expected when the build
// feature is off, relative to the working directory.
const PrebuiltDir = "lib"

// BuildFunc runs the native build and returns its output root.
type BuildFunc func(ctx context.Context, static bool) (string, error)

// Locator resolves the artifact directory.
type Locator struct {
	Features feature.Set
	Target   target.Target
	// WorkDir anchors PrebuiltDir; the process working directory when empty.
	WorkDir string
	Build   BuildFunc
}

// Resolve returns the directory holding the native library. With the build
// feature on it runs Build and maps its output root onto the layout the
// native build system produces; otherwise it trusts WorkDir/lib and never
// builds.
func (l *Locator) Resolve(ctx context.Context, static bool) (string, error) {
	if !l.Features.Enabled(feature.Build) {
		wd := l.WorkDir
		if wd == "" {
			var err error
			if wd, err = os.Getwd(); err != nil {
				return "", fmt.Errorf("unable to retrieve current directory: %w", err)
			}
		}
		return filepath.Join(wd, PrebuiltDir), nil
	}
	if l.Build == nil {
		return "", fmt.Errorf("build feature enabled but no native build configured")
	}
	root, err := l.Build(ctx, static)
	if err != nil {
		return "", err
	}
	return BuildOutputDir(root, l.Target), nil
}

// BuildOutputDir maps a native build root onto the artifact directory.
// Multi-configuration generators used for MSVC nest one more directory
// named after the configuration.
func BuildOutputDir(root string, t target.Target) string {
	dir := filepath.Join(root, "build", "out")
	if t.IsMSVC() {
		dir = filepath.Join(dir, "Release")
	}
	return dir
}

// FindLibrary lists the files in dir that look like the library libName
// for any platform's naming scheme.
func FindLibrary(dir, libName string) ([]string, error) {
	lib := "lib" + libName
	pattern := "{" + strings.Join([]string{
		lib + ".a", lib + ".so", lib + ".so.*", lib + ".dylib", lib + ".lib", lib + "*.dll",
		libName + ".lib", libName + ".dll",
	}, ",") + "}"
	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil, err
	}
	return matches, nil
}
