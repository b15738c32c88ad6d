// Package shell runs untrusted POSIX shell scripts inside the host process.
//
// Scripts are interpreted by mvdan.cc/sh/v3. External commands are either
// served in-process (sh, bash, shell scripts and the Go coreutils) or handed
// to the operating system, which refuses them once the sandbox is active.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/x/exp/slice"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrSpawnDenied is returned when the operating system refused to create a
// process for an external command.
var ErrSpawnDenied = errors.New("process creation denied by sandbox")

// errNotEnoughQuota is ERROR_NOT_ENOUGH_QUOTA, what CreateProcess reports
// when a job's active process limit is reached.
const errNotEnoughQuota = syscall.Errno(1816)

// BlockFunc reports whether a command should be refused before it runs.
type BlockFunc func(args []string) bool

// Shell executes scripts with its own working directory and environment.
type Shell struct {
	mu         sync.Mutex
	env        []string
	cwd        string
	coreUtils  bool
	blockFuncs []BlockFunc
}

// Options for creating a new shell.
type Options struct {
	WorkingDir string
	Env        []string
	BlockFuncs []BlockFunc

	// CoreUtils serves common utilities (ls, cat, ...) from Go code instead
	// of spawning them.
	CoreUtils bool
}

// NewShell creates a new shell instance with the given options.
func NewShell(opts *Options) *Shell {
	if opts == nil {
		opts = &Options{}
	}

	cwd := opts.WorkingDir
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	env := opts.Env
	if env == nil {
		env = os.Environ()
	}

	return &Shell{
		cwd:        cwd,
		env:        env,
		coreUtils:  opts.CoreUtils,
		blockFuncs: opts.BlockFuncs,
	}
}

// Exec executes a script and returns its output.
func (s *Shell) Exec(ctx context.Context, script string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := s.ExecStream(ctx, script, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// ExecStream executes a script, streaming its output to the given writers.
func (s *Shell) ExecStream(ctx context.Context, script string, stdout, stderr io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		return fmt.Errorf("could not parse script: %w", err)
	}

	runner, err := interp.New(
		interp.StdIO(nil, stdout, stderr),
		interp.Interactive(false),
		interp.Env(expand.ListEnviron(s.env...)),
		interp.Dir(s.cwd),
		interp.ExecHandlers(s.execHandlers()...),
	)
	if err != nil {
		return fmt.Errorf("could not run script: %w", err)
	}

	err = runner.Run(ctx, line)
	s.cwd = runner.Dir
	slog.Debug("Script finished", "exit_code", ExitCode(err), "error", err)
	return err
}

// WorkingDir returns the current working directory.
func (s *Shell) WorkingDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// CommandsBlocker creates a BlockFunc that blocks exact command matches.
func CommandsBlocker(cmds []string) BlockFunc {
	banned := make(map[string]struct{}, len(cmds))
	for _, cmd := range cmds {
		banned[cmd] = struct{}{}
	}

	return func(args []string) bool {
		if len(args) == 0 {
			return false
		}
		_, ok := banned[args[0]]
		return ok
	}
}

// ArgumentsBlocker creates a BlockFunc that blocks a specific subcommand.
func ArgumentsBlocker(cmd string, args []string, flags []string) BlockFunc {
	return func(parts []string) bool {
		if len(parts) == 0 || parts[0] != cmd {
			return false
		}

		argParts, flagParts := splitArgsFlags(parts[1:])
		if len(argParts) < len(args) || len(flagParts) < len(flags) {
			return false
		}

		return slices.Equal(argParts[:len(args)], args) && slice.IsSubset(flags, flagParts)
	}
}

func splitArgsFlags(parts []string) (args []string, flags []string) {
	args = make([]string, 0, len(parts))
	flags = make([]string, 0, len(parts))
	for _, part := range parts {
		if !strings.HasPrefix(part, "-") {
			args = append(args, part)
			continue
		}
		flag, _, _ := strings.Cut(part, "=")
		flags = append(flags, flag)
	}
	return args, flags
}

type execMiddleware = func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc

func (s *Shell) execHandlers() []execMiddleware {
	handlers := []execMiddleware{s.blockHandler()}
	if s.coreUtils {
		handlers = append(handlers, s.inProcessHandlers()...)
	}
	// Last, so only the operating system's refusals are rewritten.
	return append(handlers, spawnHandler)
}

func (s *Shell) blockHandler() execMiddleware {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			for _, blockFunc := range s.blockFuncs {
				if blockFunc(args) {
					return fmt.Errorf("command is not allowed for security reasons: %s", strings.Join(args, " "))
				}
			}
			return next(ctx, args)
		}
	}
}

// spawnHandler turns the kernel's refusal to start a command into
// ErrSpawnDenied.
func spawnHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		err := next(ctx, args)
		if isSpawnDenied(err) {
			return fmt.Errorf("%s: %w: %w", args[0], ErrSpawnDenied, err)
		}
		return err
	}
}

func isSpawnDenied(err error) bool {
	return errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, errNotEnoughQuota)
}

// IsInterrupt checks if an error is due to interruption.
func IsInterrupt(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ExitCode extracts the exit code from an error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr interp.ExitStatus
	if errors.As(err, &exitErr) {
		return int(exitErr)
	}
	return 1
}
