package seccomp

import (
	"fmt"

	"golang.org/x/net/bpf"
)

// Offsets into struct seccomp_data (include/uapi/linux/seccomp.h).
const (
	offsetNr   = 0
	offsetArch = 4
)

// Filter return values (include/uapi/linux/seccomp.h).
const (
	RetAllow = 0x7fff0000
	RetErrno = 0x00050000
	retData  = 0x0000ffff
)

// errnoEACCES is EACCES on every Linux ABI in this package.
const errnoEACCES = 13

// RetDeny is the action taken for a denylisted syscall: fail it with EACCES.
const RetDeny = RetErrno | (errnoEACCES & retData)

// Program is a seccomp filter in instruction order.
type Program []bpf.Instruction

// Build returns the process-creation filter for abi. It only reads the
// compiled-in tables and cannot fail.
func Build(abi ABI) Program {
	prog := Program{
		bpf.LoadAbsolute{Off: offsetArch, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: abi.AuditArch},
		bpf.LoadAbsolute{Off: offsetNr, Size: 4},
	}
	if abi.X32 {
		prog = append(prog, bpf.JumpIf{Cond: bpf.JumpGreaterThan, Val: X32SyscallBit - 1})
	}
	for _, sc := range abi.denylist {
		prog = append(prog, bpf.JumpIf{Cond: bpf.JumpEqual, Val: sc.Number})
	}
	prog = append(prog,
		bpf.RetConstant{Val: RetAllow},
		bpf.RetConstant{Val: RetDeny},
	)

	// Point every test at the deny terminal. The arch guard denies on
	// mismatch, the others on match.
	deny := len(prog) - 1
	for i, ins := range prog {
		jump, ok := ins.(bpf.JumpIf)
		if !ok {
			continue
		}
		skip := uint8(deny - i - 1)
		if i == 1 {
			jump.SkipFalse = skip
		} else {
			jump.SkipTrue = skip
		}
		prog[i] = jump
	}
	return prog
}

// Assemble encodes the program for the kernel.
func (p Program) Assemble() ([]bpf.RawInstruction, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("empty program")
	}
	raw, err := bpf.Assemble(p)
	if err != nil {
		return nil, fmt.Errorf("assembling filter: %w", err)
	}
	return raw, nil
}
