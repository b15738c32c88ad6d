package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/nospawn/internal/db"
	"github.com/charmbracelet/nospawn/internal/probe"
	"github.com/charmbracelet/nospawn/internal/sandbox"
	"github.com/charmbracelet/nospawn/internal/shell"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// execute runs the CLI in-process. Only commands that leave the sandbox
// alone may be run this way.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NOSPAWN_DATA_DIR", t.TempDir())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestFilterDisassemble(t *testing.T) {
	out, err := execute(t, "filter", "--arch", "amd64")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 13)
	require.Equal(t, "seccomp filter for amd64", lines[0])
	require.Equal(t, "000  ld   arch", lines[1])
	require.Equal(t, "010  ret  ERRNO(EACCES)", lines[11])
	require.Regexp(t, `^fingerprint [0-9a-f]{16}$`, lines[12])
}

func TestFilterCheck(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--arch", "amd64", "--check", "execve"}, "execve(59) from amd64 on the amd64 filter: deny (EACCES)"},
		{[]string{"--arch", "amd64", "--check", "59"}, "execve(59) from amd64 on the amd64 filter: deny (EACCES)"},
		{[]string{"--arch", "amd64", "--check", "39"}, "syscall(39) from amd64 on the amd64 filter: allow"},
		{[]string{"--arch", "amd64", "--check", "39", "--foreign"}, "syscall(39) from arm64 on the amd64 filter: deny (EACCES)"},
		{[]string{"--arch", "arm64", "--check", "execveat"}, "execveat(281) from arm64 on the arm64 filter: deny (EACCES)"},
		{[]string{"--arch", "amd64", "--check", "0x40000000"}, "syscall(1073741824) from amd64 on the amd64 filter: deny (EACCES)"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, append([]string{"filter"}, tt.args...)...)
			require.NoError(t, err)
			require.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestFilterErrors(t *testing.T) {
	_, err := execute(t, "filter", "--arch", "mips")
	require.ErrorContains(t, err, `unknown architecture "mips"`)

	_, err = execute(t, "filter", "--arch", "arm64", "--check", "fork")
	require.ErrorContains(t, err, `"fork" is neither a denylisted syscall on arm64 nor a number`)
}

func TestHistoryEmpty(t *testing.T) {
	out, err := execute(t, "history")
	require.NoError(t, err)
	require.Contains(t, out, "No activations recorded.")
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	conn, err := db.Connect(t.Context(), dir)
	require.NoError(t, err)
	q := db.New(conn)
	for i, success := range []bool{false, true} {
		a := db.Activation{
			PID:       42,
			Platform:  "linux/amd64",
			Success:   success,
			CreatedAt: time.UnixMilli(1_700_000_000_000).Add(time.Duration(i) * time.Second),
		}
		if success {
			a.Mechanism = sandbox.MechanismSeccomp
		} else {
			a.Message = "prctl(PR_SET_NO_NEW_PRIVS, ...) failed: operation not permitted"
		}
		_, err := q.RecordActivation(t.Context(), a)
		require.NoError(t, err)
	}
	require.NoError(t, conn.Close())

	out, err := execute(t, "history", "--data-dir", dir, "--json")
	require.NoError(t, err)
	entries := gjson.Parse(out).Array()
	require.Len(t, entries, 2)
	require.True(t, entries[0].Get("success").Bool())
	require.Equal(t, "seccomp", entries[0].Get("mechanism").String())
	require.Equal(t, "2023-11-14T22:13:21.000Z", entries[0].Get("created_at").String())
	require.False(t, entries[1].Get("success").Bool())
	require.Contains(t, entries[1].Get("message").String(), "operation not permitted")

	out, err = execute(t, "history", "--data-dir", dir, "-n", "1")
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(out, "\n"))
	require.Contains(t, out, "pid 42")
}

func TestResultJSON(t *testing.T) {
	out := resultJSON(sandbox.Result{Success: true, Mechanism: sandbox.MechanismPrctl})
	require.True(t, gjson.Get(out, "success").Bool())
	require.Equal(t, "", gjson.Get(out, "message").String())
	require.Equal(t, "prctl", gjson.Get(out, "mechanism").String())
	require.Equal(t, sandbox.Platform(), gjson.Get(out, "platform").String())
}

func TestFingerprint(t *testing.T) {
	require.Empty(t, fingerprint(sandbox.Result{Message: "boom"}))
	require.Empty(t, fingerprint(sandbox.Result{Success: true, Mechanism: sandbox.MechanismJobObject}))
}

func TestProbeResultsJSON(t *testing.T) {
	results := []probe.Result{
		{Probe: &probe.Probe{Name: "exec", Category: "spawn"}, Passed: true},
		{Probe: &probe.Probe{Name: "fork", Category: "spawn"}, Detail: "child ran"},
	}

	t.Run("not activated", func(t *testing.T) {
		out := probeResultsJSON(nil, results)
		require.False(t, gjson.Get(out, "activation").Exists())
		require.Equal(t, int64(2), gjson.Get(out, "probes.#").Int())
		require.False(t, gjson.Get(out, "probes.0.detail").Exists())
		require.Equal(t, "child ran", gjson.Get(out, "probes.1.detail").String())
	})

	t.Run("activated", func(t *testing.T) {
		out := probeResultsJSON(&sandbox.Result{Success: true, Mechanism: sandbox.MechanismPrctl}, results)
		require.True(t, gjson.Get(out, "activation.success").Bool())
		require.Equal(t, "prctl", gjson.Get(out, "activation.mechanism").String())
	})
}

func TestParseArgumentsBlocker(t *testing.T) {
	block, err := parseArgumentsBlocker("npm:install:-g")
	require.NoError(t, err)
	require.True(t, block([]string{"npm", "install", "-g", "left-pad"}))
	require.False(t, block([]string{"npm", "install", "left-pad"}))
	require.False(t, block([]string{"yarn", "install", "-g"}))

	for _, spec := range []string{"", "npm", ":install", "npm::-g"} {
		_, err := parseArgumentsBlocker(spec)
		require.Error(t, err, spec)
	}
}

func TestRunScriptShell(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := runScript(t.Context(), scriptOptions{source: "echo hi"}, &stdout, &stderr)
	require.NoError(t, err)
	require.Equal(t, "hi\n", stdout.String())
}

func TestRunScriptBlockArgs(t *testing.T) {
	block, err := parseArgumentsBlocker("npm:install:-g")
	require.NoError(t, err)

	opts := scriptOptions{
		source:     "npm install -g left-pad",
		blockFuncs: []shell.BlockFunc{block},
	}
	err = runScript(t.Context(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorContains(t, err, "command is not allowed for security reasons: npm install -g left-pad")
}

func TestRunScriptShellTimeout(t *testing.T) {
	opts := scriptOptions{
		source:  "while true; do :; done",
		timeout: 50 * time.Millisecond,
	}
	err := runScript(t.Context(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	require.True(t, shell.IsInterrupt(err))
	require.ErrorContains(t, err, "script interrupted")
}

func TestRunScriptLuaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.lua")
	require.NoError(t, os.WriteFile(path, []byte(`print("hello " .. "lua")`), 0o644))

	var stdout bytes.Buffer
	err := runScript(t.Context(), scriptOptions{file: path, lua: true}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "hello lua\n", stdout.String())

	err = runScript(t.Context(), scriptOptions{file: path + ".missing", lua: true}, &stdout, &bytes.Buffer{})
	require.Error(t, err)
}

func TestRunScriptLuaTimeout(t *testing.T) {
	opts := scriptOptions{
		source:  "while true do end",
		lua:     true,
		timeout: 50 * time.Millisecond,
	}
	err := runScript(t.Context(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorContains(t, err, "deadline exceeded")
}

func TestRunRequiresOneSource(t *testing.T) {
	_, err := execute(t, "run")
	require.ErrorContains(t, err, "provide exactly one of --command or a script file")

	_, err = execute(t, "run", "--block-args", "npm", "-c", "true")
	require.ErrorContains(t, err, "invalid --block-args")
}
