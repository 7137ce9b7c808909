package internal

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goplus/uibuild/internal/config"
)

var (
	v       *viper.Viper
	cfgFile string
	logger  = log.NewWithOptions(os.Stderr, log.Options{Prefix: config.AppName})
)

var rootCmd = &cobra.Command{
	Use:   "uibuild",
	Short: "uibuild prepares the native libui dependency for linkage",
	Long: `uibuild fetches the vendored libui tree, generates Go bindings from wrapper.h,
builds or locates the native library and prints the linkage directives the host
build consumes. Inputs come from the environment (TARGET, OUT_DIR, UIBUILD_*),
an optional uibuild.yaml and the flags below.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runRun,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is uibuild.{yaml,toml,json} in the project directory)")
	f.String("target", "", "target triple (default $TARGET)")
	f.String("out-dir", "", "output directory for generated artifacts (default $OUT_DIR)")
	f.String("project-dir", "", "enclosing project directory (default current directory)")
	f.String("link-mode", "static", "link mode: static or dynamic")
	f.String("acquire-strategy", "repo", "source acquisition: repo (git library) or cli (git executable)")
	f.String("on-acquire-failure", "warn", "what a failed acquisition does: warn or abort")
	f.StringSlice("features", nil, "features to enable in addition to UIBUILD_FEATURE_* (fetch, build)")
	f.String("directive-prefix", "uibuild", "prefix of the emitted directive lines")
	f.BoolP("verbose", "v", false, "enable debug logging")

	v = newViper()
}

var flagKeys = map[string]string{
	config.KeyTarget:          "target",
	config.KeyOutDir:          "out-dir",
	config.KeyProjectDir:      "project-dir",
	config.KeyLinkMode:        "link-mode",
	config.KeyStrategy:        "acquire-strategy",
	config.KeyOnFailure:       "on-acquire-failure",
	config.KeyFeatures:        "features",
	config.KeyDirectivePrefix: "directive-prefix",
	config.KeyVerbose:         "verbose",
}

// newViper returns a viper bound to the persistent flags of rootCmd.
func newViper() *viper.Viper {
	nv := config.NewViper()
	f := rootCmd.PersistentFlags()
	for key, name := range flagKeys {
		if err := nv.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(err)
		}
	}
	return nv
}

// setup merges the config file before any command queries v, so that
// diagnostics and runs see the same keys.
func setup(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("unable to retrieve current directory: %w", err)
	}
	_, used, err := config.ReadConfig(v, cfgFile, wd)
	if err != nil {
		return err
	}
	if v.GetBool(config.KeyVerbose) {
		logger.SetLevel(log.DebugLevel)
	}
	if used != "" {
		logger.Debug("using config file", "path", used)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}
