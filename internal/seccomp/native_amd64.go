package seccomp

var native = &AMD64
