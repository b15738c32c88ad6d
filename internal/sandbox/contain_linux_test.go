//go:build linux && (amd64 || arm64)

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unsafe"

	"github.com/charmbracelet/nospawn/internal/probe"
	"github.com/charmbracelet/nospawn/internal/seccomp"
	"golang.org/x/sys/unix"
)

// checkContained runs inside the activated helper.
func checkContained() error {
	if err := selfCommand().Run(); !errors.Is(err, unix.EACCES) {
		return fmt.Errorf("exec: want EACCES, got %v", err)
	}

	abi, _ := seccomp.Native()

	// Installing another filter, even one that allows everything, is denied.
	sc, _ := abi.Lookup("seccomp")
	allow := []unix.SockFilter{{Code: unix.BPF_RET | unix.BPF_K, K: seccomp.RetAllow}}
	prog := unix.SockFprog{Len: 1, Filter: &allow[0]}
	_, _, errno := unix.Syscall(uintptr(sc.Number), seccompSetModeFilter, 0, uintptr(unsafe.Pointer(&prog)))
	if errno != unix.EACCES {
		return fmt.Errorf("seccomp reinstall: want EACCES, got %v", errno)
	}

	if fork, ok := abi.Lookup("fork"); ok {
		if err := forkDenied(uintptr(fork.Number)); err != nil {
			return err
		}
	}

	// With null arguments these calls could only fail with EFAULT if the
	// filter let them through.
	execveat, _ := abi.Lookup("execveat")
	if _, _, errno := unix.RawSyscall6(uintptr(execveat.Number), 0, 0, 0, 0, 0, 0); errno != unix.EACCES {
		return fmt.Errorf("execveat: want EACCES, got %v", errno)
	}
	if abi.X32 {
		// x32 execve is 520; every x32 number is denied, even getpid.
		for _, nr := range []uintptr{seccomp.X32SyscallBit | 520, seccomp.X32SyscallBit | 39} {
			if _, _, errno := unix.RawSyscall(nr, 0, 0, 0); errno != unix.EACCES {
				return fmt.Errorf("x32 syscall %#x: want EACCES, got %v", nr, errno)
			}
		}
	}

	if _, _, errno := unix.RawSyscall(unix.SYS_GETPID, 0, 0, 0); errno != 0 {
		return fmt.Errorf("getpid: %v", errno)
	}

	return escapesBlocked()
}

// forkDenied calls fork(2) directly. Should it succeed, the child exits at
// once without returning into the runtime.
func forkDenied(nr uintptr) error {
	pid, _, errno := unix.RawSyscall(nr, 0, 0, 0)
	if errno == unix.EACCES {
		return nil
	}
	if errno == 0 && pid == 0 {
		unix.RawSyscall(unix.SYS_EXIT_GROUP, 0, 0, 0)
	}
	if errno == 0 {
		var status unix.WaitStatus
		_, _ = unix.Wait4(int(pid), &status, 0, nil)
	}
	return fmt.Errorf("fork: want EACCES, got pid %d errno %v", pid, errno)
}

// escapesBlocked runs the full escape battery against this process.
func escapesBlocked() error {
	r := probe.NewRunner(probe.Battery(probe.Target{Path: os.Args[0], Args: []string{"-test.run=^$"}}))
	var escaped []string
	for _, res := range r.RunAll(context.Background()) {
		if !res.Passed {
			escaped = append(escaped, res.Probe.Name+": "+res.Detail)
		}
	}
	if len(escaped) > 0 {
		return fmt.Errorf("escapes succeeded: %s", strings.Join(escaped, "; "))
	}
	return nil
}
