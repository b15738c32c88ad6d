// Package sandbox irreversibly removes the calling process's ability to
// start other programs.
//
// A host calls [Activate] once, early, before it runs anything untrusted
// (plugins, embedded shell or Lua scripts). If an attacker later gains code
// execution inside the host, the operating system itself refuses to create
// processes, so the foothold cannot be turned into a shell.
//
// # Backends
//
// Exactly one backend is compiled in per target:
//
//   - Linux (amd64, arm64): sets no_new_privs, then installs a seccomp
//     filter (see package seccomp) that fails execve, execveat, fork, vfork
//     and seccomp itself with EACCES. The filter is installed with
//     seccomp(2) and SECCOMP_FILTER_FLAG_TSYNC so every thread of the Go
//     runtime is covered. Kernels without seccomp(2) fall back to
//     prctl(PR_SET_SECCOMP), issued on all threads.
//
//   - Windows: creates a job object limited to one active process and
//     assigns the current process to it. Any CreateProcess from inside the
//     job exceeds the limit.
//
//   - OpenBSD: pledge(2) with every promise except proc and exec.
//
//   - Everything else: [Activate] reports "not implemented for this
//     platform" without touching the OS.
//
// # Usage
//
//   - Activate: call once at startup. The result says whether the sandbox
//     is in place and, if not, why. The package never decides policy: a host
//     may continue unsandboxed or abort.
//
// Activation is a permanent side effect on the process. There is no handle
// to release and no way to undo it; a second call reports
// [ErrAlreadyActive].
package sandbox
