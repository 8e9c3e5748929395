package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/victornm/etrivia/internal/config"
	"github.com/victornm/etrivia/internal/server"
	"github.com/victornm/etrivia/internal/telemetry"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute()
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:          "etrivia",
		Short:        "Multiple-choice trivia from Open Trivia DB",
		SilenceUsage: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&f.configPath, "config", os.Getenv("CONFIG_PATH"), "path to YAML config (env CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(newPlayCmd(f))
	cmd.AddCommand(newServeCmd(f))
	cmd.AddCommand(newCategoriesCmd())
	return cmd
}

// load reads the config and installs the logger. defaultLevel applies when neither
// the flag nor the config set a level.
func (f *rootFlags) load(cmd *cobra.Command, defaultLevel string) (server.Config, error) {
	c := server.DefaultConfig()
	c.Log.Level = defaultLevel

	if err := config.Load(f.configPath, &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}
	if f.logLevel != "" {
		c.Log.Level = f.logLevel
	}

	if err := telemetry.SetupLogger(cmd.ErrOrStderr(), c.Log.Level, c.Log.Format); err != nil {
		return c, err
	}
	return c, nil
}
