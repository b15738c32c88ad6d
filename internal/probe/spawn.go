package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/nospawn/internal/luahost"
	"github.com/charmbracelet/nospawn/internal/shell"
	lua "github.com/yuin/gopher-lua"
	"mvdan.cc/sh/v3/syntax"
)

func execProbe(target Target) Probe {
	return Probe{
		Name:        "exec",
		Description: "Start the target with os/exec",
		Category:    CategoryProcess,
		Run: func(ctx context.Context) error {
			cmd := exec.CommandContext(ctx, target.Path, target.Args...)
			if err := cmd.Start(); err != nil {
				return nil
			}
			_ = cmd.Wait()
			return fmt.Errorf("started %s as pid %d", target.Path, cmd.Process.Pid)
		},
	}
}

func shellProbe(target Target) Probe {
	return Probe{
		Name:        "shell",
		Description: "Run the target from the embedded shell",
		Category:    CategoryProcess,
		Run: func(ctx context.Context) error {
			words := append([]string{target.Path}, target.Args...)
			for i, w := range words {
				q, err := syntax.Quote(w, syntax.LangPOSIX)
				if err != nil {
					return fmt.Errorf("cannot quote %q: %w", w, err)
				}
				words[i] = q
			}

			sh := shell.NewShell(nil)
			_, _, err := sh.Exec(ctx, strings.Join(words, " "))
			if errors.Is(err, shell.ErrSpawnDenied) {
				return nil
			}
			return fmt.Errorf("shell ran %s (exit status %d)", target.Path, shell.ExitCode(err))
		},
	}
}

func luaProbe() Probe {
	return Probe{
		Name:        "lua",
		Description: "Run a command with Lua os.execute",
		Category:    CategoryProcess,
		Run: func(ctx context.Context) error {
			s := luahost.NewState()
			defer s.Close()

			if err := s.DoString(ctx, `status = os.execute("exit 0")`); err != nil {
				return nil
			}
			status, err := s.Global("status")
			if err != nil {
				return nil
			}
			if n, ok := status.(lua.LNumber); ok && n == 0 {
				return fmt.Errorf("os.execute started a shell")
			}
			return nil
		},
	}
}
