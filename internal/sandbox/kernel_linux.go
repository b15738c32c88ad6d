//go:build linux && (amd64 || arm64)

package sandbox

import (
	"runtime"
	"syscall"
	"unsafe"

	"github.com/charmbracelet/nospawn/internal/seccomp"
	"golang.org/x/sys/unix"
)

// Values from include/uapi/linux/seccomp.h, spelled out so old headers in
// x/sys do not matter.
const (
	seccompSetModeFilter   = 1
	seccompFilterFlagTSync = 1
	seccompModeFilter      = 2
)

type linuxKernel struct {
	// seccompNr is the seccomp(2) number taken from the denylist table.
	seccompNr uintptr
}

func newLinuxKernel(abi seccomp.ABI) linuxKernel {
	sc, _ := abi.Lookup("seccomp")
	return linuxKernel{seccompNr: uintptr(sc.Number)}
}

func (linuxKernel) setNoNewPrivs() error {
	return unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0)
}

func (k linuxKernel) installTSync(filter []unix.SockFilter) error {
	prog := unix.SockFprog{Len: uint16(len(filter)), Filter: &filter[0]}
	_, _, errno := unix.Syscall(k.seccompNr, seccompSetModeFilter, seccompFilterFlagTSync, uintptr(unsafe.Pointer(&prog)))
	runtime.KeepAlive(filter)
	if errno != 0 {
		return errno
	}
	return nil
}

func (linuxKernel) installLegacy(filter []unix.SockFilter) (bool, error) {
	prog := &unix.SockFprog{Len: uint16(len(filter)), Filter: &filter[0]}
	defer runtime.KeepAlive(filter)
	defer runtime.KeepAlive(prog)

	_, _, errno := syscall.AllThreadsSyscall(unix.SYS_PRCTL, unix.PR_SET_NO_NEW_PRIVS, 1, 0)
	switch errno {
	case 0:
		_, _, errno = syscall.AllThreadsSyscall(unix.SYS_PRCTL, unix.PR_SET_SECCOMP, seccompModeFilter, uintptr(unsafe.Pointer(prog)))
		if errno != 0 {
			return true, errno
		}
		return true, nil
	case syscall.ENOTSUP:
		// cgo binaries cannot run syscalls on every thread.
		err := unix.Prctl(unix.PR_SET_SECCOMP, seccompModeFilter, uintptr(unsafe.Pointer(prog)), 0, 0)
		return false, err
	default:
		return true, errno
	}
}
