package amd64

import (
	"tracedis/internal/disasm"
)

type access uint8

const (
	rd access = 1 << iota
	wr
	rw = rd | wr
)

var (
	reg8Legacy = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
	reg8       = [16]string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil", "r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}
	reg16      = [16]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di", "r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w"}
	reg32      = [16]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi", "r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
	reg64      = [16]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
	xmm        = [16]string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7", "xmm8", "xmm9", "xmm10", "xmm11", "xmm12", "xmm13", "xmm14", "xmm15"}
	segs       = [8]string{"es", "cs", "ss", "ds", "fs", "gs"}
)

// gpr names general register n at size bytes. Without a REX prefix the
// byte registers 4-7 are AH..BH.
func gpr(n uint8, size int, rex bool) string {
	switch size {
	case 1:
		if !rex {
			return reg8Legacy[n&7]
		}
		return reg8[n]
	case 2:
		return reg16[n]
	case 4:
		return reg32[n]
	}
	return reg64[n]
}

type kind uint8

const (
	kReg kind = iota
	kMem
	kImm
	kRel
)

// arg is an operand descriptor. Memory operands keep base and index
// names; RIP-relative and absolute forms carry the resolved address in
// val once the instruction length is known.
type arg struct {
	k     kind
	reg   string
	base  string
	index string
	scale uint8
	disp  int64
	rip   bool
	abs   bool
	size  int // memory size in bytes, 0 prints no keyword
	seg   string
	val   uint64
	neg   bool // immediate prints as a signed value
	acc   access
}

type op struct {
	mn   string
	size int
	typ  disasm.Type
	dest disasm.Target
	args [3]arg
	n    int
}

func (o *op) add(a arg) {
	o.args[o.n] = a
	o.n++
}

func regArg(name string, a access) arg { return arg{k: kReg, reg: name, acc: a} }

func (a arg) use(inst *disasm.Inst) {
	switch a.k {
	case kReg:
		if a.acc&rd != 0 {
			inst.Reads.Add(a.reg)
		}
		if a.acc&wr != 0 {
			inst.Writes.Add(a.reg)
		}
	case kMem:
		inst.Reads.Add(a.base)
		inst.Reads.Add(a.index)
	}
}

var sizeKeyword = map[int]string{
	1:  "byte ptr ",
	2:  "word ptr ",
	4:  "dword ptr ",
	8:  "qword ptr ",
	16: "xmmword ptr ",
}

func (a arg) render(sym disasm.SymbolResolver) disasm.Operand {
	switch a.k {
	case kReg:
		return disasm.Operand{disasm.Reg(a.reg)}
	case kImm:
		text := Format.Number(a.val)
		if a.neg {
			text = Format.Signed(int64(a.val))
		}
		return disasm.Operand{disasm.Num(text, a.val)}
	case kRel:
		return disasm.Operand{disasm.AddrTok(a.val, Format, sym)}
	}

	var out disasm.Operand
	if kw := sizeKeyword[a.size]; kw != "" {
		out = append(out, disasm.Punct(kw))
	}
	if a.seg != "" {
		out = append(out, disasm.Punct(a.seg+":"))
	}
	out = append(out, disasm.Punct("["))
	switch {
	case a.rip, a.abs:
		out = append(out, disasm.AddrTok(a.val, Format, sym))
	default:
		if a.base != "" {
			out = append(out, disasm.Reg(a.base))
		}
		if a.index != "" {
			if a.base != "" {
				out = append(out, disasm.Punct("+"))
			}
			out = append(out, disasm.Reg(a.index))
			if a.scale > 1 {
				out = append(out, disasm.Punct("*"), disasm.Num(Format.Number(uint64(a.scale)), uint64(a.scale)))
			}
		}
		switch {
		case a.disp < 0:
			out = append(out, disasm.Off(Format.Signed(a.disp), uint64(a.disp)))
		case a.disp > 0:
			out = append(out, disasm.Punct("+"), disasm.Off(Format.Number(uint64(a.disp)), uint64(a.disp)))
		}
	}
	return append(out, disasm.Punct("]"))
}
