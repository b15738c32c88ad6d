package sandbox

// Kind classifies activation failures.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	// ErrPrivilegeLock means no_new_privs could not be set.
	ErrPrivilegeLock Kind = "privilege lock failed"

	// ErrFilterUnavailable means seccomp(2) is missing on this kernel. It is
	// handled by falling back to prctl and only ever logged.
	ErrFilterUnavailable Kind = "seccomp(2) unavailable"

	// ErrFilterInstall means the filter (or pledge) could not be installed.
	ErrFilterInstall Kind = "filter install failed"

	// ErrContainerCreate means the job object could not be created.
	ErrContainerCreate Kind = "job object create failed"

	// ErrContainerConfigure means the job limits could not be read or set.
	ErrContainerConfigure Kind = "job object configure failed"

	// ErrContainerBind means the process could not be assigned to the job.
	ErrContainerBind Kind = "job object assign failed"

	// ErrUnsupportedPlatform means no backend exists for this target.
	ErrUnsupportedPlatform Kind = "not implemented for this platform"

	// ErrAlreadyActive means an earlier call already activated the sandbox.
	ErrAlreadyActive Kind = "sandbox already activated"
)

// ActivationError is a failed operating system call during activation.
type ActivationError struct {
	Kind Kind

	// Call is the operation that failed, e.g. "prctl(PR_SET_NO_NEW_PRIVS, ...)".
	Call string

	// Err is the underlying OS error.
	Err error
}

func (e *ActivationError) Error() string {
	if e.Err == nil {
		return e.Call + " failed"
	}
	return e.Call + " failed: " + e.Err.Error()
}

func (e *ActivationError) Unwrap() error { return e.Err }

// Is matches the error's Kind.
func (e *ActivationError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}
