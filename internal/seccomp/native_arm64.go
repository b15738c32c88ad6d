package seccomp

var native = &ARM64
