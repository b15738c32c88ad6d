//go:build linux && (amd64 || arm64)

package sandbox

import (
	"errors"
	"log/slog"
	"runtime"

	"github.com/charmbracelet/nospawn/internal/seccomp"
	"golang.org/x/sys/unix"
)

const (
	callNoNewPrivs   = "prctl(PR_SET_NO_NEW_PRIVS, ...)"
	callSeccomp      = "seccomp(SECCOMP_SET_MODE_FILTER, SECCOMP_FILTER_FLAG_TSYNC, ...)"
	callPrctlSeccomp = "prctl(PR_SET_SECCOMP, ...)"
)

// kernel is the set of system calls activation needs.
type kernel interface {
	// setNoNewPrivs sets no_new_privs on the calling thread.
	setNoNewPrivs() error

	// installTSync installs filter with seccomp(2) on every thread.
	installTSync(filter []unix.SockFilter) error

	// installLegacy installs filter with prctl(PR_SET_SECCOMP). allThreads
	// is false when only the calling thread could be covered.
	installLegacy(filter []unix.SockFilter) (allThreads bool, err error)
}

type seccompBackend struct {
	abi    seccomp.ABI
	kernel kernel
}

func newBackend() Backend {
	abi, _ := seccomp.Native()
	return &seccompBackend{abi: abi, kernel: newLinuxKernel(abi)}
}

func (b *seccompBackend) Name() string {
	return "linux/" + b.abi.Name
}

func (b *seccompBackend) Activate() Result {
	// no_new_privs and a non-TSYNC filter are per task; keep both on the
	// same thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := b.kernel.setNoNewPrivs(); err != nil {
		return failed(&ActivationError{Kind: ErrPrivilegeLock, Call: callNoNewPrivs, Err: err})
	}

	prog := seccomp.Build(b.abi)
	filter, err := sockFilter(prog)
	if err != nil {
		return failed(&ActivationError{Kind: ErrFilterInstall, Call: "assemble filter", Err: err})
	}

	err = b.kernel.installTSync(filter)
	if err == nil {
		return succeeded(MechanismSeccomp)
	}
	if !errors.Is(err, unix.ENOSYS) {
		return failed(&ActivationError{Kind: ErrFilterInstall, Call: callSeccomp, Err: err})
	}
	slog.Debug("Falling back to prctl",
		"error", &ActivationError{Kind: ErrFilterUnavailable, Call: callSeccomp, Err: err})

	allThreads, err := b.kernel.installLegacy(filter)
	if err != nil {
		return failed(&ActivationError{Kind: ErrFilterInstall, Call: callPrctlSeccomp, Err: err})
	}
	if !allThreads {
		slog.Warn("Seccomp filter covers the calling thread only",
			"reason", "all-thread syscalls are unsupported in this binary")
	}
	return succeeded(MechanismPrctl)
}

// sockFilter assembles prog into the kernel's sock_filter layout.
func sockFilter(prog seccomp.Program) ([]unix.SockFilter, error) {
	raw, err := prog.Assemble()
	if err != nil {
		return nil, err
	}
	filter := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		filter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return filter, nil
}
