package internal

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goplus/uibuild/internal/config"
	"github.com/goplus/uibuild/internal/locate"
	"github.com/goplus/uibuild/internal/probe"
	"github.com/goplus/uibuild/internal/target"
)

var targetCmd = &cobra.Command{
	Use:   "target [triple]",
	Short: "Show how a target triple is classified",
	Long:  `Target prints the platform family, library name and static-link probe plan for a triple (default $TARGET).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTarget,
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List the enabled features",
	Args:  cobra.NoArgs,
	RunE:  runFeatures,
}

func init() {
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(featuresCmd)
}

func runTarget(cmd *cobra.Command, args []string) error {
	triple := v.GetString(config.KeyTarget)
	if len(args) == 1 {
		triple = args[0]
	}
	t, err := target.Parse(triple)
	if err != nil {
		return err
	}
	printTarget(cmd.OutOrStdout(), triple, t)
	return nil
}

func printTarget(w io.Writer, triple string, t target.Target) {
	probeDesc := "none"
	if plan, err := probe.For(t); err != nil {
		probeDesc = "unsupported for static linkage"
	} else if len(plan.Packages) > 0 {
		probeDesc = fmt.Sprint(plan.Packages)
	}
	fmt.Fprintf(w, "triple:       %s\n", triple)
	fmt.Fprintf(w, "family:       %s\n", t)
	fmt.Fprintf(w, "library:      %s\n", t.LibName())
	fmt.Fprintf(w, "probe:        %s\n", probeDesc)
	fmt.Fprintf(w, "build output: %s\n", locate.BuildOutputDir("$OUT_DIR", t))
}

func runFeatures(cmd *cobra.Command, args []string) error {
	for _, name := range config.Features(v, os.Environ()).Names() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
