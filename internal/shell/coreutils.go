package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"mvdan.cc/sh/moreinterp/coreutils"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// inProcessHandlers keep sh, bash, shell scripts and coreutils inside the
// process, so they keep working after process creation is denied.
func (s *Shell) inProcessHandlers() []execMiddleware {
	return []execMiddleware{
		s.shHandler(),
		s.scriptHandler(),
		coreutils.ExecHandler,
	}
}

// shHandler runs "sh -c script" and "sh file" with a nested interpreter.
func (s *Shell) shHandler() execMiddleware {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			name := filepath.Base(args[0])
			if name != "sh" && name != "bash" {
				return next(ctx, args)
			}

			hc := interp.HandlerCtx(ctx)
			for i := 1; i < len(args); i++ {
				if args[i] == "-c" {
					if i+1 == len(args) {
						return fmt.Errorf("%s: -c requires an argument", name)
					}
					// The first operand after the script is $0.
					return s.runScript(ctx, args[i+1], args[min(i+3, len(args)):], hc)
				}
				if !strings.HasPrefix(args[i], "-") {
					content, err := os.ReadFile(resolve(hc.Dir, args[i]))
					if err != nil {
						return err
					}
					return s.runScript(ctx, string(content), args[i+1:], hc)
				}
			}
			return fmt.Errorf("%s: interactive mode not supported", name)
		}
	}
}

// scriptHandler runs executables with a sh or bash shebang in-process.
func (s *Shell) scriptHandler() execMiddleware {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			hc := interp.HandlerCtx(ctx)
			path := args[0]
			if !strings.ContainsAny(path, "/"+string(os.PathSeparator)) {
				found, err := lookPath(path, hc.Env.Get("PATH").String())
				if err != nil {
					return next(ctx, args)
				}
				path = found
			}
			path = resolve(hc.Dir, path)
			if !isShellScript(path) {
				return next(ctx, args)
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			return s.runScript(ctx, string(content), args[1:], hc)
		}
	}
}

func (s *Shell) runScript(ctx context.Context, content string, params []string, hc interp.HandlerContext) error {
	line, err := syntax.NewParser().Parse(strings.NewReader(content), "")
	if err != nil {
		return fmt.Errorf("could not parse script: %w", err)
	}

	runner, err := interp.New(
		interp.StdIO(hc.Stdin, hc.Stdout, hc.Stderr),
		interp.Interactive(false),
		interp.Env(hc.Env),
		interp.Dir(hc.Dir),
		interp.Params(params...),
		interp.ExecHandlers(s.execHandlers()...),
	)
	if err != nil {
		return fmt.Errorf("could not run script: %w", err)
	}
	return runner.Run(ctx, line)
}

// resolve makes name relative to the interpreter's directory rather than
// the process's.
func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func isShellScript(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 128)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}
	return isShellShebang(string(buf[:n]))
}

// isShellShebang reports whether header starts with a shebang naming sh or
// bash, either directly or through env.
func isShellShebang(header string) bool {
	line, ok := strings.CutPrefix(header, "#!")
	if !ok {
		return false
	}
	line, _, _ = strings.Cut(line, "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	name := path.Base(fields[0])
	if name == "env" {
		fields = slices.DeleteFunc(fields[1:], func(f string) bool {
			return strings.HasPrefix(f, "-")
		})
		if len(fields) == 0 {
			return false
		}
		name = path.Base(fields[0])
	}
	return name == "sh" || name == "bash"
}

func lookPath(file string, pathEnv string) (string, error) {
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, file)
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return path, nil
		}
	}
	return "", os.ErrNotExist
}
