package seccomp

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/net/bpf"
)

// Data is the subset of struct seccomp_data the filter reads.
type Data struct {
	Nr   uint32
	Arch uint32
}

// seccompDataSize is sizeof(struct seccomp_data): nr, arch,
// instruction_pointer and six arguments.
const seccompDataSize = 64

// Verdict is the outcome of evaluating a program for one syscall.
type Verdict struct {
	// Action is the raw value returned by the program.
	Action uint32
}

// Allowed reports whether the kernel would let the syscall through.
func (v Verdict) Allowed() bool {
	return v.Action == RetAllow
}

// Errno returns the error number the syscall fails with, or zero when the
// action is not SECCOMP_RET_ERRNO.
func (v Verdict) Errno() uint32 {
	if v.Action&^retData != RetErrno {
		return 0
	}
	return v.Action & retData
}

func (v Verdict) String() string {
	switch {
	case v.Allowed():
		return "allow"
	case v.Errno() == errnoEACCES:
		return "deny (EACCES)"
	case v.Errno() != 0:
		return fmt.Sprintf("deny (errno %d)", v.Errno())
	default:
		return fmt.Sprintf("action %#x", v.Action)
	}
}

// Evaluate runs p against d the way the kernel would.
//
// The bpf VM loads words in network byte order, so the record is laid out
// big-endian here. The program only issues aligned 32-bit loads of nr and
// arch, which makes the result identical to the kernel's native-endian view.
func Evaluate(p Program, d Data) (Verdict, error) {
	vm, err := bpf.NewVM(p)
	if err != nil {
		return Verdict{}, fmt.Errorf("loading program: %w", err)
	}

	buf := make([]byte, seccompDataSize)
	binary.BigEndian.PutUint32(buf[offsetNr:], d.Nr)
	binary.BigEndian.PutUint32(buf[offsetArch:], d.Arch)

	action, err := vm.Run(buf)
	if err != nil {
		return Verdict{}, fmt.Errorf("running program: %w", err)
	}
	return Verdict{Action: uint32(action)}, nil
}
