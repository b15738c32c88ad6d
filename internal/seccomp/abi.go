package seccomp

import "slices"

// Audit architecture tokens from include/uapi/linux/audit.h.
const (
	auditArchX86_64  = 0xc000003e
	auditArchAARCH64 = 0xc00000b7
	auditArchI386    = 0x40000003
)

// X32SyscallBit marks syscalls made through the x32 calling convention on
// x86_64 kernels (__X32_SYSCALL_BIT).
const X32SyscallBit = 0x40000000

// Syscall is a denylisted system call and its number on one ABI.
type Syscall struct {
	Name   string
	Number uint32
}

// ABI describes one kernel syscall calling convention.
type ABI struct {
	// Name is the GOARCH style name ("amd64", "arm64", "386").
	Name string

	// AuditArch is the value the kernel reports in seccomp_data.arch.
	AuditArch uint32

	// X32 is true when the kernel can also service x32 syscalls for this
	// architecture, overlapping its native numbering.
	X32 bool

	denylist []Syscall
}

// Denylist returns the syscalls blocked on this ABI in filter order.
func (a ABI) Denylist() []Syscall {
	return slices.Clone(a.denylist)
}

// Lookup returns the denylisted syscall with the given name.
func (a ABI) Lookup(name string) (Syscall, bool) {
	for _, sc := range a.denylist {
		if sc.Name == name {
			return sc, true
		}
	}
	return Syscall{}, false
}

// The tables below are the single place to update when the kernel grows a
// new way of starting programs. Order matters: it is the order of the jumps
// in the program and therefore of the disassembly.
var (
	// AMD64 numbers from arch/x86/entry/syscalls/syscall_64.tbl (v6.x).
	// execveat was added in 3.19 and seccomp in 3.17.
	AMD64 = ABI{
		Name:      "amd64",
		AuditArch: auditArchX86_64,
		X32:       true,
		denylist: []Syscall{
			{"seccomp", 317},
			{"fork", 57},
			{"vfork", 58},
			{"execve", 59},
			{"execveat", 322},
		},
	}

	// ARM64 numbers from include/uapi/asm-generic/unistd.h (v6.x). The
	// generic table has no fork or vfork; both go through clone.
	ARM64 = ABI{
		Name:      "arm64",
		AuditArch: auditArchAARCH64,
		denylist: []Syscall{
			{"seccomp", 277},
			{"execve", 221},
			{"execveat", 281},
		},
	}

	// I386 numbers from arch/x86/entry/syscalls/syscall_32.tbl (v6.x).
	I386 = ABI{
		Name:      "386",
		AuditArch: auditArchI386,
		denylist: []Syscall{
			{"seccomp", 354},
			{"fork", 2},
			{"vfork", 190},
			{"execve", 11},
			{"execveat", 358},
		},
	}
)

// ABIs returns every ABI the package knows how to filter.
func ABIs() []ABI {
	return []ABI{AMD64, ARM64, I386}
}

// ABIByName returns the ABI with the given GOARCH style name.
func ABIByName(name string) (ABI, bool) {
	for _, abi := range ABIs() {
		if abi.Name == name {
			return abi, true
		}
	}
	return ABI{}, false
}

// Native returns the ABI of the running binary. The second result is false
// on architectures without a table.
func Native() (ABI, bool) {
	if native == nil {
		return ABI{}, false
	}
	return *native, true
}
