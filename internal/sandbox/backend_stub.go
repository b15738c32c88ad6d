//go:build !(linux && (amd64 || arm64)) && !windows && !openbsd

package sandbox

import "runtime"

type unsupportedBackend struct{}

func newBackend() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) Name() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Activate is a no-op that reports the platform as unsupported.
func (unsupportedBackend) Activate() Result {
	return failed(ErrUnsupportedPlatform)
}
