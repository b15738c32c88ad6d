package sandbox

import (
	"log/slog"
	"sync"
)

// Backend is one platform's way of forbidding process creation. Exactly one
// implementation is compiled into a binary.
type Backend interface {
	// Name identifies the backend in logs and diagnostics.
	Name() string

	// Activate applies the restriction to the current process.
	Activate() Result
}

var (
	mu       sync.Mutex
	active   = false
	platform = newBackend()
)

// Activate restricts the current process so it can no longer create new
// processes. It never panics; failures are described by the result.
//
// Calls are serialised. Once a call has succeeded every later call fails with
// ErrAlreadyActive; a failed call may be retried.
func Activate() Result {
	mu.Lock()
	defer mu.Unlock()

	if active {
		return failed(ErrAlreadyActive)
	}

	r := platform.Activate()
	if !r.Success {
		slog.Warn("Sandbox activation failed", "platform", platform.Name(), "error", r.Message)
		return r
	}

	active = true
	slog.Info("Sandbox activated", "platform", platform.Name(), "mechanism", r.Mechanism)
	return r
}

// IsActive reports whether Activate has succeeded in this process.
func IsActive() bool {
	mu.Lock()
	defer mu.Unlock()
	return active
}

// Platform returns the name of the compiled-in backend.
func Platform() string {
	return platform.Name()
}
