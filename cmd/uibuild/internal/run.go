package internal

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/goplus/uibuild/internal/config"
	"github.com/goplus/uibuild/internal/orchestrate"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Acquire, generate and link the native library",
	Long: `Run executes the whole pipeline: update the vendored tree (feature fetch),
generate bindings, locate or build (feature build) the native library and print
the linkage directives on stdout.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v, cfgFile, os.Environ())
	if err != nil {
		return err
	}
	o := orchestrate.New(cfg, orchestrate.Deps{
		Stdout: cmd.OutOrStdout(),
		Logger: logger,
	})
	return o.Run(cmd.Context())
}
