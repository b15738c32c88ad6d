package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/nospawn/internal/luahost"
	"github.com/charmbracelet/nospawn/internal/shell"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Activate the sandbox, then run an untrusted script",
		Long: "Activate the sandbox, then run a script in the embedded POSIX shell, " +
			"or in the embedded Lua interpreter with --lua. The script cannot " +
			"start other programs.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := scriptOptions{}
			opts.source, _ = cmd.Flags().GetString("command")
			opts.lua, _ = cmd.Flags().GetBool("lua")
			opts.timeout, _ = cmd.Flags().GetDuration("timeout")
			blocked, _ := cmd.Flags().GetStringSlice("block")
			blockedArgs, _ := cmd.Flags().GetStringSlice("block-args")

			if (opts.source == "") == (len(args) == 0) {
				return errors.New("provide exactly one of --command or a script file")
			}
			if len(args) == 1 {
				opts.file = args[0]
			}

			opts.blockFuncs = []shell.BlockFunc{shell.CommandsBlocker(blocked)}
			for _, spec := range blockedArgs {
				block, err := parseArgumentsBlocker(spec)
				if err != nil {
					return err
				}
				opts.blockFuncs = append(opts.blockFuncs, block)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts.coreUtils = cfg.CoreUtils

			if _, err := activate(cmd.Context(), cfg); err != nil {
				return err
			}
			return runScript(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringP("command", "c", "", "Script text to run")
	cmd.Flags().Bool("lua", false, "Run the script as Lua")
	cmd.Flags().Duration("timeout", luahost.DefaultTimeout, "Stop the script after this long (0 disables)")
	cmd.Flags().StringSlice("block", nil, "Commands the shell refuses to run")
	cmd.Flags().StringSlice("block-args", nil, "Subcommands the shell refuses to run, as cmd:arg:-flag")
	addRequireFlag(cmd)
	return cmd
}

type scriptOptions struct {
	// Exactly one of source and file is set.
	source string
	file   string

	lua        bool
	timeout    time.Duration
	coreUtils  bool
	blockFuncs []shell.BlockFunc
}

// runScript runs an untrusted script. It does not activate the sandbox.
func runScript(ctx context.Context, opts scriptOptions, stdout, stderr io.Writer) error {
	if opts.lua {
		s := luahost.NewState(luahost.WithStdout(stdout), luahost.WithTimeout(opts.timeout))
		defer s.Close()
		if opts.file != "" {
			return s.DoFile(ctx, opts.file)
		}
		return s.DoString(ctx, opts.source)
	}

	script := opts.source
	if opts.file != "" {
		content, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		script = string(content)
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	sh := shell.NewShell(&shell.Options{
		CoreUtils:  opts.coreUtils,
		BlockFuncs: opts.blockFuncs,
	})
	err := sh.ExecStream(ctx, script, stdout, stderr)
	switch {
	case err == nil:
		return nil
	case shell.IsInterrupt(err):
		return fmt.Errorf("script interrupted: %w", err)
	default:
		return fmt.Errorf("script failed (exit status %d): %w", shell.ExitCode(err), err)
	}
}

// parseArgumentsBlocker turns "npm:install:-g" into a blocker for
// "npm install -g ...". Words starting with a dash are flags.
func parseArgumentsBlocker(spec string) (shell.BlockFunc, error) {
	parts := strings.Split(spec, ":")
	if parts[0] == "" || len(parts) < 2 {
		return nil, fmt.Errorf("invalid --block-args %q, want cmd:arg[:-flag...]", spec)
	}

	var args, flags []string
	for _, p := range parts[1:] {
		switch {
		case p == "":
			return nil, fmt.Errorf("invalid --block-args %q, empty word", spec)
		case strings.HasPrefix(p, "-"):
			flags = append(flags, p)
		default:
			args = append(args, p)
		}
	}
	return shell.ArgumentsBlocker(parts[0], args, flags), nil
}
