// Package seccomp builds the syscall filter that stops a process from
// creating new processes.
//
// The filter is a classic BPF program evaluated by the kernel against every
// system call. It is assembled by hand from a small per-ABI table of syscall
// numbers rather than from system headers, so a binary built on a new
// toolchain still carries the right numbers on kernels whose headers predate
// execveat(2) or seccomp(2).
//
// # Program layout
//
//	ld  [4]                  ; seccomp_data.arch
//	jeq #AUDIT_ARCH, 0, deny ; foreign ABI -> deny
//	ld  [0]                  ; seccomp_data.nr
//	jgt #0x3fffffff, deny    ; amd64 only: any x32 syscall -> deny
//	jeq #seccomp, deny
//	jeq #fork, deny
//	jeq #vfork, deny
//	jeq #execve, deny
//	jeq #execveat, deny
//	ret #ALLOW
//	deny: ret #ERRNO|EACCES
//
// Numbers that do not exist on an ABI (fork and vfork on arm64) are left out.
//
// Programs are plain [golang.org/x/net/bpf] instruction values so they can
// be inspected, disassembled and run through [Evaluate] without touching the
// kernel. Installing them is the sandbox package's job.
package seccomp
