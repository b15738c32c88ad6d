package seccomp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateDenylist(t *testing.T) {
	for _, abi := range ABIs() {
		t.Run(abi.Name, func(t *testing.T) {
			prog := Build(abi)
			for _, sc := range abi.Denylist() {
				v, err := Evaluate(prog, Data{Nr: sc.Number, Arch: abi.AuditArch})
				require.NoError(t, err)
				require.False(t, v.Allowed(), "%s must be denied", sc.Name)
				require.Equal(t, uint32(errnoEACCES), v.Errno())
			}
		})
	}
}

func TestEvaluateAllowsUnrelatedSyscalls(t *testing.T) {
	// getpid, read and clone stay usable.
	cases := map[string][]uint32{
		"amd64": {39, 0, 56},
		"arm64": {172, 63, 220},
		"386":   {20, 3, 120},
	}
	for _, abi := range ABIs() {
		t.Run(abi.Name, func(t *testing.T) {
			prog := Build(abi)
			for _, nr := range cases[abi.Name] {
				v, err := Evaluate(prog, Data{Nr: nr, Arch: abi.AuditArch})
				require.NoError(t, err)
				require.True(t, v.Allowed(), "syscall %d", nr)
				require.Equal(t, "allow", v.String())
			}
		})
	}
}

func TestEvaluateForeignArchIsDenied(t *testing.T) {
	prog := Build(AMD64)
	foreign := []uint32{auditArchI386, auditArchAARCH64, 0}
	for _, arch := range foreign {
		for _, nr := range []uint32{0, 39, 57, 59, 1000, X32SyscallBit + 59} {
			v, err := Evaluate(prog, Data{Nr: nr, Arch: arch})
			require.NoError(t, err)
			require.False(t, v.Allowed(), "arch %#x nr %d", arch, nr)
			require.Equal(t, "deny (EACCES)", v.String())
		}
	}
}

func TestEvaluateX32IsDenied(t *testing.T) {
	prog := Build(AMD64)
	// x32 execve is 520 with the x32 bit; getpid is 39 with the bit.
	for _, nr := range []uint32{X32SyscallBit | 520, X32SyscallBit | 545, X32SyscallBit | 39, X32SyscallBit} {
		v, err := Evaluate(prog, Data{Nr: nr, Arch: auditArchX86_64})
		require.NoError(t, err)
		require.False(t, v.Allowed(), "nr %#x", nr)
	}

	v, err := Evaluate(prog, Data{Nr: X32SyscallBit - 1, Arch: auditArchX86_64})
	require.NoError(t, err)
	require.True(t, v.Allowed())
}

func TestVerdictString(t *testing.T) {
	require.Equal(t, "deny (errno 1)", Verdict{Action: RetErrno | 1}.String())
	require.Equal(t, "action 0x0", Verdict{}.String())
	require.Zero(t, Verdict{Action: RetAllow}.Errno())
}
