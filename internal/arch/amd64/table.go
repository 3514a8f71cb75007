package amd64

import (
	"tracedis/internal/disasm"
)

// opnd names an operand shape using the Intel manual's abbreviations:
// E is ModRM r/m, G is ModRM reg, I immediate, J relative, Z the register
// in the low opcode bits, O a moffs, V/W xmm reg and xmm/mem.
type opnd uint8

const (
	aNone opnd = iota
	aEb
	aEw
	aRvMw // operand-size register, or a word in memory
	aEv
	aEd // always 32 bits
	aEy // 32 or 64 bits by REX.W
	aGb
	aGv
	aGy
	aM // memory only, no size keyword
	aIb
	aIbs // imm8 sign-extended to the operand size
	aIw
	aIz // imm16 or imm32 sign-extended to the operand size
	aIv // full operand size immediate
	aJb
	aJz
	aAL
	aCL
	aDX
	aRAX
	aZb
	aZv
	aOb
	aOv
	aSw
	aFS
	aGS
	aOne
	aVx
	aWx
	aWd
	aWq
)

type flag uint16

const (
	fD64  flag = 1 << iota // operand size defaults to 64 bits
	fF64                   // operand size is always 64 bits
	fXchg                  // every operand is read and written
	fRep                   // F3 prints as REP
	fRepe                  // F3/F2 print as REPE/REPNE
	fSSE                   // row depends on the mandatory prefix
)

type entry struct {
	mn    string
	args  [3]opnd
	acc   access // first operand; the rest are read
	typ   disasm.Type
	flags flag
	sized *[3]string // mnemonic for 16, 32 and 64-bit operand size
	group *[8]entry  // row selected by ModRM.reg
	mod3  *[8]entry  // group row when ModRM.mod is 3
}

func e(mn string, acc access, args ...opnd) entry {
	x := entry{mn: mn, acc: acc}
	copy(x.args[:], args)
	return x
}

func (x entry) t(typ disasm.Type) entry {
	x.typ = typ
	return x
}

func (x entry) f(fl flag) entry {
	x.flags |= fl
	return x
}

func sized(w, d, q string) entry { return entry{sized: &[3]string{w, d, q}} }

func (x entry) name(opsize int) string {
	if x.sized == nil {
		return x.mn
	}
	return x.sized[opsize>>2]
}

// needsModRM reports whether the row reads a ModRM byte.
func (x entry) needsModRM() bool {
	if x.group != nil {
		return true
	}
	for _, a := range x.args {
		switch a {
		case aEb, aEw, aRvMw, aEv, aEd, aEy, aGb, aGv, aGy, aM, aSw, aVx, aWx, aWd, aWq:
			return true
		}
	}
	return false
}

var (
	oneByte [256]entry
	twoByte [256]entry

	// sse rows are keyed by opcode and mandatory prefix: none, 66, F3, F2.
	sse = map[[2]byte]entry{}

	// f3Alt rows replace a 0F row when F3 is present.
	f3Alt = map[byte]entry{}

	// endbr maps the ModRM byte of F3 0F 1E to the CET landing pads.
	endbr = map[byte]string{0xfa: "endbr64", 0xfb: "endbr32"}
)

const (
	pNone = iota
	p66
	pF3
	pF2
)

var (
	aluNames   = [8]string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}
	shiftNames = [8]string{"rol", "ror", "rcl", "rcr", "shl", "shr", "", "sar"}
	ccNames    = [16]string{"o", "no", "b", "ae", "e", "ne", "be", "a", "s", "ns", "p", "np", "l", "ge", "le", "g"}
)

func aluAccess(i int) access {
	if aluNames[i] == "cmp" {
		return rd
	}
	return rw
}

func group(rows [8]entry) entry { return entry{group: &rows} }

func init() {
	for i, mn := range aluNames {
		b := byte(i) << 3
		acc := aluAccess(i)
		oneByte[b+0] = e(mn, acc, aEb, aGb)
		oneByte[b+1] = e(mn, acc, aEv, aGv)
		oneByte[b+2] = e(mn, acc, aGb, aEb)
		oneByte[b+3] = e(mn, acc, aGv, aEv)
		oneByte[b+4] = e(mn, acc, aAL, aIb)
		oneByte[b+5] = e(mn, acc, aRAX, aIz)
	}

	for r := byte(0); r < 8; r++ {
		oneByte[0x50+r] = e("push", rd, aZv).f(fD64)
		oneByte[0x58+r] = e("pop", wr, aZv).f(fD64)
		oneByte[0x90+r] = e("xchg", rw, aZv, aRAX).f(fXchg)
		oneByte[0xb0+r] = e("mov", wr, aZb, aIb)
		oneByte[0xb8+r] = e("mov", wr, aZv, aIv)
		twoByte[0xc8+r] = e("bswap", rw, aZv)
	}

	for cc, s := range ccNames {
		oneByte[0x70+cc] = e("j"+s, 0, aJb).t(disasm.Jcc).f(fF64)
		twoByte[0x80+cc] = e("j"+s, 0, aJz).t(disasm.Jcc).f(fF64)
		twoByte[0x40+cc] = e("cmov"+s, rw, aGv, aEv)
		twoByte[0x90+cc] = e("set"+s, wr, aEb)
	}

	oneByte[0x63] = e("movsxd", wr, aGv, aEd)
	oneByte[0x68] = e("push", rd, aIz).f(fD64)
	oneByte[0x69] = e("imul", wr, aGv, aEv, aIz)
	oneByte[0x6a] = e("push", rd, aIbs).f(fD64)
	oneByte[0x6b] = e("imul", wr, aGv, aEv, aIbs)
	oneByte[0x6c] = e("insb", 0).f(fRep)
	oneByte[0x6d] = sized("insw", "insd", "insd").f(fRep)
	oneByte[0x6e] = e("outsb", 0).f(fRep)
	oneByte[0x6f] = sized("outsw", "outsd", "outsd").f(fRep)

	alu := func(src opnd, dst opnd) entry {
		var rows [8]entry
		for i, mn := range aluNames {
			rows[i] = e(mn, aluAccess(i), dst, src)
		}
		return group(rows)
	}
	oneByte[0x80] = alu(aIb, aEb)
	oneByte[0x81] = alu(aIz, aEv)
	oneByte[0x83] = alu(aIbs, aEv)

	oneByte[0x84] = e("test", rd, aEb, aGb)
	oneByte[0x85] = e("test", rd, aEv, aGv)
	oneByte[0x86] = e("xchg", rw, aEb, aGb).f(fXchg)
	oneByte[0x87] = e("xchg", rw, aEv, aGv).f(fXchg)
	oneByte[0x88] = e("mov", wr, aEb, aGb)
	oneByte[0x89] = e("mov", wr, aEv, aGv)
	oneByte[0x8a] = e("mov", wr, aGb, aEb)
	oneByte[0x8b] = e("mov", wr, aGv, aEv)
	oneByte[0x8c] = e("mov", wr, aRvMw, aSw)
	oneByte[0x8d] = e("lea", wr, aGv, aM)
	oneByte[0x8e] = e("mov", wr, aSw, aEw)
	oneByte[0x8f] = group([8]entry{0: e("pop", wr, aEv).f(fD64)})

	oneByte[0x98] = sized("cbw", "cwde", "cdqe")
	oneByte[0x99] = sized("cwd", "cdq", "cqo")
	oneByte[0x9b] = e("fwait", 0)
	oneByte[0x9c] = sized("pushf", "", "pushfq").f(fD64)
	oneByte[0x9d] = sized("popf", "", "popfq").f(fD64)
	oneByte[0x9e] = e("sahf", 0)
	oneByte[0x9f] = e("lahf", 0)

	oneByte[0xa0] = e("mov", wr, aAL, aOb)
	oneByte[0xa1] = e("mov", wr, aRAX, aOv)
	oneByte[0xa2] = e("mov", wr, aOb, aAL)
	oneByte[0xa3] = e("mov", wr, aOv, aRAX)
	oneByte[0xa4] = e("movsb", 0).f(fRep)
	oneByte[0xa5] = sized("movsw", "movsd", "movsq").f(fRep)
	oneByte[0xa6] = e("cmpsb", 0).f(fRepe)
	oneByte[0xa7] = sized("cmpsw", "cmpsd", "cmpsq").f(fRepe)
	oneByte[0xa8] = e("test", rd, aAL, aIb)
	oneByte[0xa9] = e("test", rd, aRAX, aIz)
	oneByte[0xaa] = e("stosb", 0).f(fRep)
	oneByte[0xab] = sized("stosw", "stosd", "stosq").f(fRep)
	oneByte[0xac] = e("lodsb", 0).f(fRep)
	oneByte[0xad] = sized("lodsw", "lodsd", "lodsq").f(fRep)
	oneByte[0xae] = e("scasb", 0).f(fRepe)
	oneByte[0xaf] = sized("scasw", "scasd", "scasq").f(fRepe)

	shift := func(dst, count opnd) entry {
		var rows [8]entry
		for i, mn := range shiftNames {
			if mn != "" {
				rows[i] = e(mn, rw, dst, count)
			}
		}
		return group(rows)
	}
	oneByte[0xc0] = shift(aEb, aIb)
	oneByte[0xc1] = shift(aEv, aIb)
	oneByte[0xd0] = shift(aEb, aOne)
	oneByte[0xd1] = shift(aEv, aOne)
	oneByte[0xd2] = shift(aEb, aCL)
	oneByte[0xd3] = shift(aEv, aCL)

	oneByte[0xc2] = e("ret", 0, aIw).t(disasm.Ret)
	oneByte[0xc3] = e("ret", 0).t(disasm.Ret)
	oneByte[0xc6] = group([8]entry{0: e("mov", wr, aEb, aIb)})
	oneByte[0xc7] = group([8]entry{0: e("mov", wr, aEv, aIz)})
	oneByte[0xc8] = e("enter", 0, aIw, aIb)
	oneByte[0xc9] = e("leave", 0)
	oneByte[0xca] = e("retf", 0, aIw).t(disasm.Ret)
	oneByte[0xcb] = e("retf", 0).t(disasm.Ret)
	oneByte[0xcc] = e("int3", 0)
	oneByte[0xcd] = e("int", 0, aIb).t(disasm.Syscall)
	oneByte[0xcf] = sized("iretw", "iretd", "iretq").t(disasm.Rti)
	oneByte[0xd7] = e("xlatb", 0)

	oneByte[0xe0] = e("loopne", 0, aJb).t(disasm.Jcc).f(fF64)
	oneByte[0xe1] = e("loope", 0, aJb).t(disasm.Jcc).f(fF64)
	oneByte[0xe2] = e("loop", 0, aJb).t(disasm.Jcc).f(fF64)
	oneByte[0xe3] = e("jrcxz", 0, aJb).t(disasm.Jcc).f(fF64)
	oneByte[0xe4] = e("in", wr, aAL, aIb)
	oneByte[0xe5] = e("in", wr, aRAX, aIb)
	oneByte[0xe6] = e("out", rd, aIb, aAL)
	oneByte[0xe7] = e("out", rd, aIb, aRAX)
	oneByte[0xe8] = e("call", 0, aJz).t(disasm.Call).f(fF64)
	oneByte[0xe9] = e("jmp", 0, aJz).t(disasm.Jmp).f(fF64)
	oneByte[0xeb] = e("jmp", 0, aJb).t(disasm.Jmp).f(fF64)
	oneByte[0xec] = e("in", wr, aAL, aDX)
	oneByte[0xed] = e("in", wr, aRAX, aDX)
	oneByte[0xee] = e("out", rd, aDX, aAL)
	oneByte[0xef] = e("out", rd, aDX, aRAX)

	oneByte[0xf1] = e("int1", 0)
	oneByte[0xf4] = e("hlt", 0)
	oneByte[0xf5] = e("cmc", 0)
	unary := func(dst, testImm opnd) entry {
		return group([8]entry{
			e("test", rd, dst, testImm),
			e("test", rd, dst, testImm),
			e("not", rw, dst),
			e("neg", rw, dst),
			e("mul", rd, dst),
			e("imul", rd, dst),
			e("div", rd, dst),
			e("idiv", rd, dst),
		})
	}
	oneByte[0xf6] = unary(aEb, aIb)
	oneByte[0xf7] = unary(aEv, aIz)
	oneByte[0xf8] = e("clc", 0)
	oneByte[0xf9] = e("stc", 0)
	oneByte[0xfa] = e("cli", 0)
	oneByte[0xfb] = e("sti", 0)
	oneByte[0xfc] = e("cld", 0)
	oneByte[0xfd] = e("std", 0)
	oneByte[0xfe] = group([8]entry{e("inc", rw, aEb), e("dec", rw, aEb)})
	oneByte[0xff] = group([8]entry{
		e("inc", rw, aEv),
		e("dec", rw, aEv),
		e("call", rd, aEv).t(disasm.Call).f(fF64),
		e("call far", rd, aM).t(disasm.Call),
		e("jmp", rd, aEv).t(disasm.JmpIndirect).f(fF64),
		e("jmp far", rd, aM).t(disasm.JmpIndirect),
		e("push", rd, aEv).f(fD64),
	})

	twoByte[0x05] = e("syscall", 0).t(disasm.Syscall)
	twoByte[0x07] = sized("sysret", "sysret", "sysretq").t(disasm.Rti)
	twoByte[0x0b] = e("ud2", 0)
	twoByte[0x0d] = group([8]entry{1: e("prefetchw", 0, aM)})
	twoByte[0x18] = group([8]entry{
		e("prefetchnta", 0, aM),
		e("prefetcht0", 0, aM),
		e("prefetcht1", 0, aM),
		e("prefetcht2", 0, aM),
	})
	twoByte[0x1f] = group([8]entry{0: e("nop", 0, aEv)})
	twoByte[0x31] = e("rdtsc", 0)
	twoByte[0x34] = e("sysenter", 0).t(disasm.Syscall)
	twoByte[0x35] = sized("sysexit", "sysexit", "sysexitq").t(disasm.Rti)
	twoByte[0xa0] = e("push", rd, aFS).f(fD64)
	twoByte[0xa1] = e("pop", wr, aFS).f(fD64)
	twoByte[0xa2] = e("cpuid", 0)
	twoByte[0xa3] = e("bt", rd, aEv, aGv)
	twoByte[0xa4] = e("shld", rw, aEv, aGv, aIb)
	twoByte[0xa5] = e("shld", rw, aEv, aGv, aCL)
	twoByte[0xa8] = e("push", rd, aGS).f(fD64)
	twoByte[0xa9] = e("pop", wr, aGS).f(fD64)
	twoByte[0xab] = e("bts", rw, aEv, aGv)
	twoByte[0xac] = e("shrd", rw, aEv, aGv, aIb)
	twoByte[0xad] = e("shrd", rw, aEv, aGv, aCL)
	twoByte[0xae] = entry{
		group: &[8]entry{
			e("fxsave", 0, aM),
			e("fxrstor", 0, aM),
			e("ldmxcsr", 0, aM),
			e("stmxcsr", 0, aM),
		},
		mod3: &[8]entry{5: e("lfence", 0), 6: e("mfence", 0), 7: e("sfence", 0)},
	}
	twoByte[0xaf] = e("imul", rw, aGv, aEv)
	twoByte[0xb0] = e("cmpxchg", rw, aEb, aGb)
	twoByte[0xb1] = e("cmpxchg", rw, aEv, aGv)
	twoByte[0xb3] = e("btr", rw, aEv, aGv)
	twoByte[0xb6] = e("movzx", wr, aGv, aEb)
	twoByte[0xb7] = e("movzx", wr, aGv, aEw)
	twoByte[0xba] = group([8]entry{
		4: e("bt", rd, aEv, aIb),
		5: e("bts", rw, aEv, aIb),
		6: e("btr", rw, aEv, aIb),
		7: e("btc", rw, aEv, aIb),
	})
	twoByte[0xbb] = e("btc", rw, aEv, aGv)
	twoByte[0xbc] = e("bsf", wr, aGv, aEv)
	twoByte[0xbd] = e("bsr", wr, aGv, aEv)
	twoByte[0xbe] = e("movsx", wr, aGv, aEb)
	twoByte[0xbf] = e("movsx", wr, aGv, aEw)
	twoByte[0xc0] = e("xadd", rw, aEb, aGb).f(fXchg)
	twoByte[0xc1] = e("xadd", rw, aEv, aGv).f(fXchg)

	f3Alt[0xb8] = e("popcnt", wr, aGv, aEv)
	f3Alt[0xbc] = e("tzcnt", wr, aGv, aEv)
	f3Alt[0xbd] = e("lzcnt", wr, aGv, aEv)

	sseRow := func(op byte, rows [4]entry) {
		twoByte[op] = entry{flags: fSSE}
		for p, r := range rows {
			if r.mn != "" {
				sse[[2]byte{op, byte(p)}] = r
			}
		}
	}
	sseRow(0x10, [4]entry{e("movups", wr, aVx, aWx), e("movupd", wr, aVx, aWx), e("movss", wr, aVx, aWd), e("movsd", wr, aVx, aWq)})
	sseRow(0x11, [4]entry{e("movups", wr, aWx, aVx), e("movupd", wr, aWx, aVx), e("movss", wr, aWd, aVx), e("movsd", wr, aWq, aVx)})
	sseRow(0x28, [4]entry{e("movaps", wr, aVx, aWx), e("movapd", wr, aVx, aWx)})
	sseRow(0x29, [4]entry{e("movaps", wr, aWx, aVx), e("movapd", wr, aWx, aVx)})
	sseRow(0x2a, [4]entry{pF3: e("cvtsi2ss", rw, aVx, aEy), pF2: e("cvtsi2sd", rw, aVx, aEy)})
	sseRow(0x2c, [4]entry{pF3: e("cvttss2si", wr, aGy, aWd), pF2: e("cvttsd2si", wr, aGy, aWq)})
	sseRow(0x2e, [4]entry{e("ucomiss", rd, aVx, aWd), e("ucomisd", rd, aVx, aWq)})
	sseRow(0x2f, [4]entry{e("comiss", rd, aVx, aWd), e("comisd", rd, aVx, aWq)})
	sseRow(0x54, [4]entry{e("andps", rw, aVx, aWx), e("andpd", rw, aVx, aWx)})
	sseRow(0x57, [4]entry{e("xorps", rw, aVx, aWx), e("xorpd", rw, aVx, aWx)})
	for op, base := range map[byte]string{0x58: "add", 0x59: "mul", 0x5c: "sub", 0x5e: "div"} {
		sseRow(op, [4]entry{
			e(base+"ps", rw, aVx, aWx),
			e(base+"pd", rw, aVx, aWx),
			e(base+"ss", rw, aVx, aWd),
			e(base+"sd", rw, aVx, aWq),
		})
	}
	sseRow(0x6e, [4]entry{p66: e("movd", wr, aVx, aEy)})
	sseRow(0x6f, [4]entry{p66: e("movdqa", wr, aVx, aWx), pF3: e("movdqu", wr, aVx, aWx)})
	sseRow(0x7e, [4]entry{p66: e("movd", wr, aEy, aVx), pF3: e("movq", wr, aVx, aWq)})
	sseRow(0x7f, [4]entry{p66: e("movdqa", wr, aWx, aVx), pF3: e("movdqu", wr, aWx, aVx)})
	sseRow(0xd6, [4]entry{p66: e("movq", wr, aWq, aVx)})
	sseRow(0xef, [4]entry{p66: e("pxor", rw, aVx, aWx)})
}
