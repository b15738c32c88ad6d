package probe

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/charmbracelet/nospawn/internal/seccomp"
	"golang.org/x/sys/unix"
)

// seccompGetActionAvail is SECCOMP_GET_ACTION_AVAIL, a query that changes
// nothing when it is allowed.
const seccompGetActionAvail = 2

func platformProbes() []Probe {
	abi, ok := seccomp.Native()
	if !ok {
		return nil
	}

	var probes []Probe
	if sc, ok := abi.Lookup("seccomp"); ok {
		probes = append(probes, Probe{
			Name:        "seccomp",
			Description: "Call seccomp(2) to replace or loosen the filter",
			Category:    CategoryFilter,
			Run: func(ctx context.Context) error {
				action := uint32(seccomp.RetAllow)
				_, _, errno := unix.Syscall(uintptr(sc.Number), seccompGetActionAvail, 0, uintptr(unsafe.Pointer(&action)))
				if errno == 0 {
					return fmt.Errorf("seccomp(2) is reachable")
				}
				return nil
			},
		})
	}
	if fork, ok := abi.Lookup("fork"); ok {
		probes = append(probes, Probe{
			Name:        "fork",
			Description: "Call fork(2) directly",
			Category:    CategoryProcess,
			Run: func(ctx context.Context) error {
				pid, err := rawFork(uintptr(fork.Number))
				if err != nil {
					return nil
				}
				var status unix.WaitStatus
				_, _ = unix.Wait4(pid, &status, 0, nil)
				return fmt.Errorf("fork(2) created pid %d", pid)
			},
		})
	}
	return probes
}

// rawFork forks the process. The child exits at once without touching the
// Go runtime.
//
//go:norace
func rawFork(nr uintptr) (int, error) {
	r1, _, errno := unix.RawSyscall(nr, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	if r1 == 0 {
		unix.RawSyscall(unix.SYS_EXIT_GROUP, 0, 0, 0)
	}
	return int(r1), nil
}
