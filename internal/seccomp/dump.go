package seccomp

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/net/bpf"
)

// Disassemble renders the program one instruction per line, with jump
// targets resolved to absolute indexes and constants named where the
// builder knows them.
func (p Program) Disassemble(abi ABI) string {
	names := make(map[uint32]string)
	for _, sc := range abi.denylist {
		names[sc.Number] = sc.Name
	}

	var sb strings.Builder
	for i, ins := range p {
		fmt.Fprintf(&sb, "%03d  ", i)
		switch ins := ins.(type) {
		case bpf.LoadAbsolute:
			switch ins.Off {
			case offsetArch:
				sb.WriteString("ld   arch")
			case offsetNr:
				sb.WriteString("ld   nr")
			default:
				fmt.Fprintf(&sb, "ld   [%d]", ins.Off)
			}
		case bpf.JumpIf:
			op := "jeq"
			if ins.Cond == bpf.JumpGreaterThan {
				op = "jgt"
			}
			operand := fmt.Sprintf("%#x", ins.Val)
			switch {
			case i == 1:
				operand = fmt.Sprintf("%s(%#x)", abi.Name, ins.Val)
			case ins.Cond == bpf.JumpGreaterThan:
				operand = fmt.Sprintf("x32(%#x)", ins.Val)
			case names[ins.Val] != "":
				operand = fmt.Sprintf("%s(%d)", names[ins.Val], ins.Val)
			}
			fmt.Fprintf(&sb, "%-4s %s  true:%03d false:%03d",
				op, operand, i+1+int(ins.SkipTrue), i+1+int(ins.SkipFalse))
		case bpf.RetConstant:
			switch ins.Val {
			case RetAllow:
				sb.WriteString("ret  ALLOW")
			case RetDeny:
				sb.WriteString("ret  ERRNO(EACCES)")
			default:
				fmt.Fprintf(&sb, "ret  %#x", ins.Val)
			}
		default:
			fmt.Fprintf(&sb, "%v", ins)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Fingerprint returns a short stable hash of the assembled program, handy
// for telling which filter a process was started with.
func (p Program) Fingerprint() (string, error) {
	raw, err := p.Assemble()
	if err != nil {
		return "", err
	}
	buf := make([]byte, 0, len(raw)*8)
	for _, ins := range raw {
		buf = binary.LittleEndian.AppendUint16(buf, ins.Op)
		buf = append(buf, ins.Jt, ins.Jf)
		buf = binary.LittleEndian.AppendUint32(buf, ins.K)
	}
	return fmt.Sprintf("%016x", xxh3.Hash(buf)), nil
}
