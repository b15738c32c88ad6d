package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/nospawn/internal/config"
	"github.com/charmbracelet/nospawn/internal/db"
	"github.com/charmbracelet/nospawn/internal/sandbox"
	"github.com/charmbracelet/nospawn/internal/seccomp"
	"github.com/spf13/cobra"
)

func newActivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate the sandbox and report the result",
		Long: "Activate the sandbox for this process and report the result. " +
			"A failed activation is reported but not fatal unless --require is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			r, err := activate(cmd.Context(), cfg)
			if asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), resultJSON(r))
			} else {
				printResult(cmd.OutOrStdout(), r)
			}
			return err
		},
	}
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	addRequireFlag(cmd)
	return cmd
}

func addRequireFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("require", false, "Exit with an error if the sandbox cannot be activated")
}

// activate activates the sandbox, journals the attempt and applies the
// failure policy.
func activate(ctx context.Context, cfg *config.Config) (sandbox.Result, error) {
	r := sandbox.Activate()

	if cfg.Journal {
		if err := record(ctx, cfg, r); err != nil {
			slog.Warn("Failed to journal activation", "error", err)
		}
	}

	if !r.Success && cfg.Require {
		return r, fmt.Errorf("sandbox is required: %w", r.Err)
	}
	return r, nil
}

func record(ctx context.Context, cfg *config.Config, r sandbox.Result) error {
	conn, err := db.Connect(ctx, cfg.DataDir)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = db.New(conn).RecordActivation(ctx, db.Activation{
		PID:               int64(os.Getpid()),
		Platform:          sandbox.Platform(),
		Success:           r.Success,
		Mechanism:         r.Mechanism,
		Message:           r.Message,
		FilterFingerprint: fingerprint(r),
	})
	return err
}

// fingerprint identifies the seccomp program behind a successful Linux
// activation.
func fingerprint(r sandbox.Result) string {
	if r.Mechanism != sandbox.MechanismSeccomp && r.Mechanism != sandbox.MechanismPrctl {
		return ""
	}
	abi, ok := seccomp.Native()
	if !ok {
		return ""
	}
	fp, err := seccomp.Build(abi).Fingerprint()
	if err != nil {
		return ""
	}
	return fp
}
