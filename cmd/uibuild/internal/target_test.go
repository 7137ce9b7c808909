package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/uibuild/internal/target"
)

func TestPrintTarget(t *testing.T) {
	tests := []struct {
		triple string
		want   []string
	}{
		{"x86_64-pc-windows-msvc", []string{
			"family:       msvc",
			"library:      libui",
			"probe:        unsupported for static linkage",
			"build output: " + filepath.Join("$OUT_DIR", "build", "out", "Release"),
		}},
		{"x86_64-apple-darwin", []string{
			"family:       apple",
			"library:      ui",
			"probe:        none",
			"build output: " + filepath.Join("$OUT_DIR", "build", "out"),
		}},
		{"x86_64-unknown-linux-gnu", []string{
			"family:       linux",
			"library:      ui",
			"probe:        [gtk+-3.0]",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.triple, func(t *testing.T) {
			tgt, err := target.Parse(tt.triple)
			if err != nil {
				t.Fatal(err)
			}
			var buf bytes.Buffer
			printTarget(&buf, tt.triple, tgt)
			out := buf.String()
			if !strings.Contains(out, "triple:       "+tt.triple) {
				t.Errorf("output lacks triple:\n%s", out)
			}
			for _, line := range tt.want {
				if !strings.Contains(out, line+"\n") {
					t.Errorf("output lacks %q:\n%s", line, out)
				}
			}
		})
	}
}

func TestTargetCommand(t *testing.T) {
	got := execute(t, "target", "aarch64-apple-ios")
	if !strings.Contains(got, "family:       apple") {
		t.Fatalf("output:\n%s", got)
	}
}

// useProject points the commands at a fresh viper and a project directory
// holding a uibuild.yaml with content.
func useProject(t *testing.T, content string) {
	t.Helper()
	for _, k := range []string{"TARGET", "UIBUILD_TARGET", "UIBUILD_FEATURES", "UIBUILD_FEATURE_FETCH", "UIBUILD_FEATURE_BUILD"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, "uibuild.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UIBUILD_PROJECT_DIR", project)
	old := v
	v = newViper()
	t.Cleanup(func() { v = old })
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute %v: %v", args, err)
	}
	return buf.String()
}

func TestFeaturesFromConfigFile(t *testing.T) {
	useProject(t, "features: [fetch, build]\n")

	got := execute(t, "features")
	if want := "BUILD\nFETCH\n"; got != want {
		t.Fatalf("features output = %q, want %q", got, want)
	}
}

func TestTargetFromConfigFile(t *testing.T) {
	useProject(t, "target: x86_64-pc-windows-msvc\n")

	got := execute(t, "target")
	if !strings.Contains(got, "family:       msvc\n") {
		t.Fatalf("output:\n%s", got)
	}
}
