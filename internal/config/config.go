// Package config gathers every environment-sourced input of a run into an
// immutable Config, built once before any stage runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/goplus/uibuild/internal/acquire"
	"github.com/goplus/uibuild/internal/bindgen"
	"github.com/goplus/uibuild/internal/directive"
	"github.com/goplus/uibuild/internal/feature"
	"github.com/goplus/uibuild/internal/target"
)

const (
	// AppName is the application name.
	AppName = "uibuild"
	// ConfigFileName is the name of the optional config file (without extension).
	ConfigFileName = "uibuild"
	// EnvPrefix prefixes every environment variable of the tool.
	EnvPrefix = "UIBUILD"
)

// Viper keys.
const (
	KeyTarget          = "target"
	KeyOutDir          = "out_dir"
	KeyProjectDir      = "project_dir"
	KeyLinkMode        = "link_mode"
	KeyStrategy        = "acquire.strategy"
	KeyOnFailure       = "acquire.on_failure"
	KeyFeatures        = "features"
	KeyVerbose         = "verbose"
	KeyDirectivePrefix = "directive_prefix"
)

// ErrNoOutDir is returned when no output directory is configured.
var ErrNoOutDir = errors.New("output directory is not set (OUT_DIR)")

// Strategy selects how the vendored tree is acquired.
type Strategy string

const (
	// StrategyCLI drives the git executable.
	StrategyCLI Strategy = "cli"
	// StrategyRepo uses the repository API and needs no git executable.
	StrategyRepo Strategy = "repo"
)

// ParseStrategy accepts "cli" and "repo".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyCLI:
		return StrategyCLI, nil
	case StrategyRepo, "":
		return StrategyRepo, nil
	}
	return StrategyRepo, fmt.Errorf("unknown acquisition strategy %q (want cli or repo)", s)
}

// Acquire configures source acquisition.
type Acquire struct {
	Strategy  Strategy
	OnFailure acquire.Policy
}

// Config is the validated input of one run.
type Config struct {
	Triple   string
	Target   target.Target
	Features feature.Set
	// OutDir is the build-scoped directory for generated artifacts.
	OutDir string
	// ProjectDir is the enclosing project holding the vendored tree.
	ProjectDir string
	// WorkDir anchors the prebuilt ./lib convention.
	WorkDir         string
	LinkMode        directive.LinkMode
	Acquire         Acquire
	Verbose         bool
	DirectivePrefix string
	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// NewViper returns a viper instance with defaults and environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLinkMode, directive.Static.String())
	v.SetDefault(KeyStrategy, string(StrategyRepo))
	v.SetDefault(KeyOnFailure, acquire.Warn.String())
	v.SetDefault(KeyDirectivePrefix, directive.DefaultPrefix)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the host build tool's own variables are accepted as fallbacks
	_ = v.BindEnv(KeyTarget, EnvPrefix+"_TARGET", "TARGET")
	_ = v.BindEnv(KeyOutDir, EnvPrefix+"_OUT_DIR", "OUT_DIR")
	_ = v.BindEnv(KeyOnFailure, EnvPrefix+"_ON_ACQUIRE_FAILURE", EnvPrefix+"_ACQUIRE_ON_FAILURE")
	return v
}

// ReadFile merges the config file into v. An explicit path must exist;
// otherwise uibuild.{yaml,toml,json} is looked up in dir and may be absent.
func ReadFile(v *viper.Viper, path, dir string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// ReadConfig merges the config file into v, looking it up in the project
// directory given by flags or the environment, and returns the project
// directory after the merge. Relative paths resolve against wd.
func ReadConfig(v *viper.Viper, configFile, wd string) (projectDir, used string, err error) {
	lookup := resolveDir(wd, v.GetString(KeyProjectDir))
	if used, err = ReadFile(v, configFile, lookup); err != nil {
		return "", "", err
	}
	return resolveDir(wd, v.GetString(KeyProjectDir)), used, nil
}

func resolveDir(wd, dir string) string {
	switch {
	case dir == "":
		return wd
	case filepath.IsAbs(dir):
		return filepath.Clean(dir)
	}
	return filepath.Join(wd, dir)
}

// Load builds the Config from v, the config file and environ. It is the
// only place the environment is consulted.
func Load(v *viper.Viper, configFile string, environ []string) (Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("unable to retrieve current directory: %w", err)
	}
	projectDir, used, err := ReadConfig(v, configFile, wd)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Triple:          v.GetString(KeyTarget),
		ProjectDir:      projectDir,
		WorkDir:         wd,
		Verbose:         v.GetBool(KeyVerbose),
		DirectivePrefix: v.GetString(KeyDirectivePrefix),
		ConfigFile:      used,
	}
	if cfg.Target, err = target.Parse(cfg.Triple); err != nil {
		return Config{}, err
	}
	out := v.GetString(KeyOutDir)
	if out == "" {
		return Config{}, ErrNoOutDir
	}
	cfg.OutDir = resolveDir(wd, out)
	if cfg.LinkMode, err = directive.ParseLinkMode(v.GetString(KeyLinkMode)); err != nil {
		return Config{}, err
	}
	if cfg.Acquire.Strategy, err = ParseStrategy(v.GetString(KeyStrategy)); err != nil {
		return Config{}, err
	}
	if cfg.Acquire.OnFailure, err = acquire.ParsePolicy(v.GetString(KeyOnFailure)); err != nil {
		return Config{}, err
	}
	cfg.Features = Features(v, environ)
	return cfg, nil
}

// Features returns the features enabled by environ and by the features key.
func Features(v *viper.Viper, environ []string) feature.Set {
	return feature.FromEnviron(environ, feature.EnvPrefix).
		Union(feature.Parse(strings.Join(v.GetStringSlice(KeyFeatures), ",")))
}

// VendorDir returns the vendored source tree.
func (c Config) VendorDir() string {
	return filepath.Join(c.ProjectDir, acquire.SubmoduleName)
}

// Header returns the umbrella header of the native API.
func (c Config) Header() string {
	return filepath.Join(c.ProjectDir, bindgen.DefaultHeader)
}
