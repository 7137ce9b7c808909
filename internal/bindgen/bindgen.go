// Package bindgen produces the Go binding surface of the native API from
// its umbrella header, delegating the translation to c-for-go.
package bindgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/goplus/uibuild/internal/toolexec"
)

// ErrHeaderNotFound is returned when the umbrella header does not exist.
var ErrHeaderNotFound = errors.New("header not found")

// Defaults for the vendored library.
const (
	DefaultHeader  = "wrapper.h"
	DefaultPackage = "ui"
	ManifestName   = "bindings.yml"
)

// DefaultOpaqueTypes are kept opaque instead of being translated field by
// field: max_align_t comes out larger than the C definition.
var DefaultOpaqueTypes = []string{"max_align_t"}

// Options configures one generation.
type Options struct {
	// Header transitively includes the whole native API.
	Header      string
	IncludeDirs []string
	// OutDir is the build-scoped output directory.
	OutDir      string
	Package     string
	OpaqueTypes []string
	// Tool is the generator executable, "c-for-go" when empty.
	Tool string
}

// GenerateError reports a failed generator run.
type GenerateError struct {
	Header string
	Err    error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generate bindings for %s: %v", e.Header, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// manifest mirrors the subset of the c-for-go manifest we write.
type manifest struct {
	Generator  generatorSection  `yaml:"GENERATOR"`
	Parser     parserSection     `yaml:"PARSER"`
	Translator translatorSection `yaml:"TRANSLATOR"`
}

type generatorSection struct {
	PackageName        string      `yaml:"PackageName"`
	PackageDescription string      `yaml:"PackageDescription,omitempty"`
	Includes           []string    `yaml:"Includes"`
	FlagGroups         []flagGroup `yaml:"FlagGroups,omitempty"`
}

type flagGroup struct {
	Name  string   `yaml:"name"`
	Flags []string `yaml:"flags"`
}

type parserSection struct {
	IncludePaths []string `yaml:"IncludePaths,omitempty"`
	SourcesPaths []string `yaml:"SourcesPaths"`
}

type translatorSection struct {
	Rules map[string][]rule `yaml:"Rules"`
}

type rule struct {
	Action string `yaml:"action"`
	From   string `yaml:"from"`
}

func newManifest(opts Options) *manifest {
	m := &manifest{
		Generator: generatorSection{
			PackageName:        opts.Package,
			PackageDescription: "Package " + opts.Package + " provides Go bindings for libui.",
			Includes:           []string{filepath.Base(opts.Header)},
		},
		Parser: parserSection{
			IncludePaths: append([]string{filepath.Dir(opts.Header)}, opts.IncludeDirs...),
			SourcesPaths: []string{opts.Header},
		},
		Translator: translatorSection{
			Rules: map[string][]rule{
				"global": {{Action: "accept", From: "^ui"}},
			},
		},
	}
	var cflags []string
	for _, dir := range m.Parser.IncludePaths {
		cflags = append(cflags, "-I"+dir)
	}
	m.Generator.FlagGroups = []flagGroup{{Name: "CFLAGS", Flags: cflags}}
	for _, typ := range opts.OpaqueTypes {
		// opaque types are not translated structurally
		m.Translator.Rules["type"] = append(m.Translator.Rules["type"], rule{Action: "ignore", From: "^" + typ + "$"})
	}
	return m
}

// WriteManifest writes the generator manifest for opts into opts.OutDir
// and returns its path.
func WriteManifest(opts Options) (string, error) {
	data, err := yaml.Marshal(newManifest(opts))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(opts.OutDir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Generate writes the binding package for opts.Header and returns the
// directory holding it. Any failure is fatal to the caller: there is no
// partial binding surface.
func Generate(ctx context.Context, runner toolexec.Runner, opts Options) (string, error) {
	if opts.Package == "" {
		opts.Package = DefaultPackage
	}
	if opts.Tool == "" {
		opts.Tool = "c-for-go"
	}
	if opts.OutDir == "" {
		return "", &GenerateError{Header: opts.Header, Err: errors.New("no output directory")}
	}
	info, err := os.Stat(opts.Header)
	if err != nil || info.IsDir() {
		return "", &GenerateError{Header: opts.Header, Err: ErrHeaderNotFound}
	}

	path, err := WriteManifest(opts)
	if err != nil {
		return "", &GenerateError{Header: opts.Header, Err: fmt.Errorf("write manifest: %w", err)}
	}
	err = runner.Run(ctx, toolexec.Cmd{Name: opts.Tool, Args: []string{"-out", opts.OutDir, path}})
	if err != nil {
		return "", &GenerateError{Header: opts.Header, Err: err}
	}
	return filepath.Join(opts.OutDir, opts.Package), nil
}
