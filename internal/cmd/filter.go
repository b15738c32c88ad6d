package cmd

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/charmbracelet/nospawn/internal/seccomp"
	"github.com/spf13/cobra"
)

func newFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print or evaluate the seccomp filter",
		Long: "Print the seccomp program for an architecture together with its " +
			"fingerprint, or evaluate a single system call against it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archName, _ := cmd.Flags().GetString("arch")
			check, _ := cmd.Flags().GetString("check")
			foreign, _ := cmd.Flags().GetBool("foreign")

			abi, err := resolveABI(archName)
			if err != nil {
				return err
			}
			prog := seccomp.Build(abi)
			w := cmd.OutOrStdout()

			if check == "" {
				fp, err := prog.Fingerprint()
				if err != nil {
					return err
				}
				printTitle(w, "seccomp filter for %s", abi.Name)
				fmt.Fprint(w, prog.Disassemble(abi))
				fmt.Fprintf(w, "fingerprint %s\n", fp)
				return nil
			}

			sc, err := resolveSyscall(abi, check)
			if err != nil {
				return err
			}
			data := seccomp.Data{Nr: sc.Number, Arch: abi.AuditArch}
			from := abi.Name
			if foreign {
				other := foreignABI(abi)
				data.Arch = other.AuditArch
				from = other.Name
			}
			v, err := seccomp.Evaluate(prog, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s(%d) from %s on the %s filter: %s\n", sc.Name, sc.Number, from, abi.Name, v)
			return nil
		},
	}
	cmd.Flags().String("arch", "", "Architecture: amd64, arm64 or 386 (default: native)")
	cmd.Flags().String("check", "", "Evaluate one system call, by denylist name or number")
	cmd.Flags().Bool("foreign", false, "Evaluate the call as if made from another architecture")
	return cmd
}

func resolveABI(name string) (seccomp.ABI, error) {
	if name == "" {
		if abi, ok := seccomp.Native(); ok {
			return abi, nil
		}
		return seccomp.ABI{}, fmt.Errorf("no seccomp ABI for %s, use --arch", runtime.GOARCH)
	}
	abi, ok := seccomp.ABIByName(name)
	if !ok {
		return seccomp.ABI{}, fmt.Errorf("unknown architecture %q", name)
	}
	return abi, nil
}

func resolveSyscall(abi seccomp.ABI, s string) (seccomp.Syscall, error) {
	if sc, ok := abi.Lookup(s); ok {
		return sc, nil
	}
	nr, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return seccomp.Syscall{}, fmt.Errorf("%q is neither a denylisted syscall on %s nor a number", s, abi.Name)
	}
	for _, sc := range abi.Denylist() {
		if sc.Number == uint32(nr) {
			return sc, nil
		}
	}
	return seccomp.Syscall{Name: "syscall", Number: uint32(nr)}, nil
}

func foreignABI(abi seccomp.ABI) seccomp.ABI {
	for _, other := range seccomp.ABIs() {
		if other.AuditArch != abi.AuditArch {
			return other
		}
	}
	return abi
}
