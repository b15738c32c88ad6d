//go:build !amd64 && !arm64 && !386

package seccomp

var native *ABI
