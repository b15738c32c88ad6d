package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// helperEnv makes the test binary activate the sandbox and probe itself
// instead of running tests. Activation cannot be undone, so it only ever
// happens in that child.
const helperEnv = "NOSPAWN_SANDBOX_HELPER"

// Exit codes of the helper process.
const (
	helperContained   = 0
	helperUnavailable = 2
	helperEscaped     = 3
	helperReactivated = 4
)

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(runHelper())
	}
	os.Exit(m.Run())
}

func runHelper() int {
	r := Activate()
	if !r.Success {
		fmt.Fprintf(os.Stderr, "activate: %s\n", r.Message)
		return helperUnavailable
	}
	fmt.Printf("activated using %s\n", r.Mechanism)

	if err := checkContained(); err != nil {
		fmt.Fprintf(os.Stderr, "escaped: %v\n", err)
		return helperEscaped
	}

	again := Activate()
	if again.Success || again.Message == "" {
		fmt.Fprintf(os.Stderr, "second activation: %+v\n", again)
		return helperReactivated
	}
	fmt.Printf("second activation: %s\n", again.Message)
	return helperContained
}

// selfCommand returns a command that runs this test binary without tests.
func selfCommand() *exec.Cmd {
	return exec.Command(os.Args[0], "-test.run=^$")
}

func TestActivateContainsProcess(t *testing.T) {
	cmd := exec.CommandContext(t.Context(), os.Args[0], "-test.run=^$")
	cmd.Env = append(os.Environ(), helperEnv+"=1")
	out, err := cmd.CombinedOutput()
	t.Logf("helper output:\n%s", out)
	require.NotNil(t, cmd.ProcessState, "helper did not start: %v", err)

	code := cmd.ProcessState.ExitCode()
	if code == helperUnavailable {
		t.Skipf("sandbox unavailable here: %s", strings.TrimSpace(string(out)))
	}
	require.NoError(t, err)
	require.Equal(t, helperContained, code)
	require.Contains(t, string(out), "second activation: sandbox already activated")
}

type fakeBackend struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Activate() Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return failed(&ActivationError{Kind: ErrFilterInstall, Call: "fake"})
	}
	return succeeded("fake")
}

func withBackend(t *testing.T, b Backend) {
	t.Helper()
	mu.Lock()
	prev, prevActive := platform, active
	platform, active = b, false
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		platform, active = prev, prevActive
		mu.Unlock()
	})
}

func TestActivateLatch(t *testing.T) {
	fake := &fakeBackend{}
	withBackend(t, fake)

	require.False(t, IsActive())
	first := Activate()
	require.True(t, first.Success)
	require.True(t, IsActive())

	second := Activate()
	require.False(t, second.Success)
	require.ErrorIs(t, second.Err, ErrAlreadyActive)
	require.Equal(t, "sandbox already activated", second.Message)
	require.Equal(t, 1, fake.calls, "backend must not run twice")
}

func TestActivateFailureCanRetry(t *testing.T) {
	fake := &fakeBackend{fail: true}
	withBackend(t, fake)

	r := Activate()
	require.False(t, r.Success)
	require.Equal(t, "fake failed", r.Message)
	require.False(t, IsActive())

	fake.fail = false
	require.True(t, Activate().Success)
	require.Equal(t, 2, fake.calls)
}

func TestActivateConcurrent(t *testing.T) {
	fake := &fakeBackend{}
	withBackend(t, fake)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Activate()
		}()
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r.Success {
			wins++
			continue
		}
		require.ErrorIs(t, r.Err, ErrAlreadyActive)
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, fake.calls)
}

func TestPlatform(t *testing.T) {
	require.NotEmpty(t, Platform())
}
