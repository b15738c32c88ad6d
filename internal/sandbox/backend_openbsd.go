//go:build openbsd

package sandbox

import (
	"golang.org/x/sys/unix"
)

// promises is every pledge promise a long-running host may need, minus proc
// and exec. "error" turns violations into ENOSYS instead of SIGABRT so a
// blocked fork is an error the caller can see.
const promises = "stdio rpath wpath cpath dpath flock fattr chown inet dns unix tty getpw sendfd recvfd ps vminfo error"

type pledgeBackend struct{}

func newBackend() Backend {
	return pledgeBackend{}
}

func (pledgeBackend) Name() string {
	return "openbsd"
}

// Activate pledges the process. pledge can only ever drop promises, so
// proc and exec are gone for good.
func (pledgeBackend) Activate() Result {
	if err := unix.PledgePromises(promises); err != nil {
		return failed(&ActivationError{Kind: ErrFilterInstall, Call: "pledge", Err: err})
	}
	return succeeded(MechanismPledge)
}
