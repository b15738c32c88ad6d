package cmd

import (
	"context"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/nospawn/internal/config"
	"github.com/charmbracelet/nospawn/internal/log"
	"github.com/charmbracelet/nospawn/internal/version"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nospawn",
		Short: "Forbid the current process from creating new processes",
		Long: heredoc.Doc(`
			nospawn irreversibly removes a process's ability to start other
			processes. On Linux it installs a seccomp filter denying fork,
			vfork, execve, execveat and seccomp itself; on Windows it binds the
			process to a job object that allows a single active process.

			Use it to contain embedded interpreters that run untrusted scripts.
		`),
		Example: heredoc.Doc(`
			# Activate and report which mechanism was used
			nospawn activate

			# Activate, then prove that no escape works
			nospawn probe

			# Run an untrusted script after activation
			nospawn run -c 'ls; curl example.com'

			# Show the filter for arm64
			nospawn filter --arch arm64
		`),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug logging")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for the activation journal")
	rootCmd.PersistentFlags().String("log-file", "", "Write JSON logs to this file")

	rootCmd.AddCommand(
		newActivateCmd(),
		newProbeCmd(),
		newRunCmd(),
		newFilterCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

// Execute runs the nospawn CLI.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration, applies flag overrides and sets up
// logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
	if flags.Lookup("require") != nil && flags.Changed("require") {
		cfg.Require, _ = flags.GetBool("require")
	}

	log.Setup(cfg.LogFile, cfg.Debug)
	return cfg, nil
}
