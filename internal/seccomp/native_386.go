package seccomp

var native = &I386
