package pdp11

import (
	"tracedis/internal/disasm"
)

// shape says where the operands of a form live in the opcode word.
type shape uint8

const (
	sNone   shape = iota
	sDD           // general operand in bits 0-5
	sSSDD         // general operands in bits 6-11 and 0-5
	sR            // register in bits 0-2
	sRDD          // register in bits 6-8, general operand in bits 0-5
	sSSR          // general operand in bits 0-5, register in bits 6-8
	sBranch       // signed 8-bit word offset
	sSOB          // register in bits 6-8, 6-bit backwards word offset
	sN3           // 3-bit number
	sN6           // 6-bit number
	sN8           // 8-bit number
	sCC           // condition code set/clear
)

// form is one row of the opcode table: w&mask == bits selects it.
type form struct {
	mask, bits uint16
	mn         string
	shape      shape
	typ        disasm.Type
	a, b       access // first and second operand access
}

// forms is searched in order; narrower masks come first.
var forms = [...]form{
	{0177777, 0000000, "HALT", sNone, disasm.Other, 0, 0},
	{0177777, 0000001, "WAIT", sNone, disasm.Other, 0, 0},
	{0177777, 0000002, "RTI", sNone, disasm.Rti, 0, 0},
	{0177777, 0000003, "BPT", sNone, disasm.Other, 0, 0},
	{0177777, 0000004, "IOT", sNone, disasm.Other, 0, 0},
	{0177777, 0000005, "RESET", sNone, disasm.Other, 0, 0},
	{0177777, 0000006, "RTT", sNone, disasm.Rti, 0, 0},
	{0177777, 0000007, "MFPT", sNone, disasm.Other, 0, 0},

	{0177700, 0000100, "JMP", sDD, disasm.JmpIndirect, 0, 0},
	{0177770, 0000200, "RTS", sR, disasm.Ret, rw, 0},
	{0177770, 0000230, "SPL", sN3, disasm.Other, 0, 0},
	{0177740, 0000240, "", sCC, disasm.Other, 0, 0},
	{0177700, 0000300, "SWAB", sDD, disasm.Other, rw, 0},

	{0177400, 0000400, "BR", sBranch, disasm.Jmp, 0, 0},
	{0177400, 0001000, "BNE", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0001400, "BEQ", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0002000, "BGE", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0002400, "BLT", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0003000, "BGT", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0003400, "BLE", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0100000, "BPL", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0100400, "BMI", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0101000, "BHI", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0101400, "BLOS", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0102000, "BVC", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0102400, "BVS", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0103000, "BCC", sBranch, disasm.Jcc, 0, 0},
	{0177400, 0103400, "BCS", sBranch, disasm.Jcc, 0, 0},

	{0177000, 0004000, "JSR", sRDD, disasm.Call, rw, 0},

	{0177700, 0005000, "CLR", sDD, disasm.Other, wr, 0},
	{0177700, 0005100, "COM", sDD, disasm.Other, rw, 0},
	{0177700, 0005200, "INC", sDD, disasm.Other, rw, 0},
	{0177700, 0005300, "DEC", sDD, disasm.Other, rw, 0},
	{0177700, 0005400, "NEG", sDD, disasm.Other, rw, 0},
	{0177700, 0005500, "ADC", sDD, disasm.Other, rw, 0},
	{0177700, 0005600, "SBC", sDD, disasm.Other, rw, 0},
	{0177700, 0005700, "TST", sDD, disasm.Other, rd, 0},
	{0177700, 0006000, "ROR", sDD, disasm.Other, rw, 0},
	{0177700, 0006100, "ROL", sDD, disasm.Other, rw, 0},
	{0177700, 0006200, "ASR", sDD, disasm.Other, rw, 0},
	{0177700, 0006300, "ASL", sDD, disasm.Other, rw, 0},
	{0177700, 0006400, "MARK", sN6, disasm.Ret, 0, 0},
	{0177700, 0006500, "MFPI", sDD, disasm.Other, rd, 0},
	{0177700, 0006600, "MTPI", sDD, disasm.Other, wr, 0},
	{0177700, 0006700, "SXT", sDD, disasm.Other, wr, 0},

	{0177700, 0105000, "CLRB", sDD, disasm.Other, wr, 0},
	{0177700, 0105100, "COMB", sDD, disasm.Other, rw, 0},
	{0177700, 0105200, "INCB", sDD, disasm.Other, rw, 0},
	{0177700, 0105300, "DECB", sDD, disasm.Other, rw, 0},
	{0177700, 0105400, "NEGB", sDD, disasm.Other, rw, 0},
	{0177700, 0105500, "ADCB", sDD, disasm.Other, rw, 0},
	{0177700, 0105600, "SBCB", sDD, disasm.Other, rw, 0},
	{0177700, 0105700, "TSTB", sDD, disasm.Other, rd, 0},
	{0177700, 0106000, "RORB", sDD, disasm.Other, rw, 0},
	{0177700, 0106100, "ROLB", sDD, disasm.Other, rw, 0},
	{0177700, 0106200, "ASRB", sDD, disasm.Other, rw, 0},
	{0177700, 0106300, "ASLB", sDD, disasm.Other, rw, 0},
	{0177700, 0106400, "MTPS", sDD, disasm.Other, rd, 0},
	{0177700, 0106500, "MFPD", sDD, disasm.Other, rd, 0},
	{0177700, 0106600, "MTPD", sDD, disasm.Other, wr, 0},
	{0177700, 0106700, "MFPS", sDD, disasm.Other, wr, 0},

	{0177000, 0070000, "MUL", sSSR, disasm.Other, rd, rw},
	{0177000, 0071000, "DIV", sSSR, disasm.Other, rd, rw},
	{0177000, 0072000, "ASH", sSSR, disasm.Other, rd, rw},
	{0177000, 0073000, "ASHC", sSSR, disasm.Other, rd, rw},
	{0177000, 0074000, "XOR", sRDD, disasm.Other, rd, rw},
	{0177000, 0077000, "SOB", sSOB, disasm.Jcc, rw, 0},

	{0177400, 0104000, "EMT", sN8, disasm.Syscall, 0, 0},
	{0177400, 0104400, "TRAP", sN8, disasm.Syscall, 0, 0},

	{0170000, 0010000, "MOV", sSSDD, disasm.Other, rd, wr},
	{0170000, 0020000, "CMP", sSSDD, disasm.Other, rd, rd},
	{0170000, 0030000, "BIT", sSSDD, disasm.Other, rd, rd},
	{0170000, 0040000, "BIC", sSSDD, disasm.Other, rd, rw},
	{0170000, 0050000, "BIS", sSSDD, disasm.Other, rd, rw},
	{0170000, 0060000, "ADD", sSSDD, disasm.Other, rd, rw},
	{0170000, 0110000, "MOVB", sSSDD, disasm.Other, rd, wr},
	{0170000, 0120000, "CMPB", sSSDD, disasm.Other, rd, rd},
	{0170000, 0130000, "BITB", sSSDD, disasm.Other, rd, rd},
	{0170000, 0140000, "BICB", sSSDD, disasm.Other, rd, rw},
	{0170000, 0150000, "BISB", sSSDD, disasm.Other, rd, rw},
	{0170000, 0160000, "SUB", sSSDD, disasm.Other, rd, rw},
}

func lookup(w uint16) (*form, bool) {
	for i := range forms {
		if w&forms[i].mask == forms[i].bits {
			return &forms[i], true
		}
	}
	return nil, false
}

var ccNames = [2][4]string{
	{"CLC", "CLV", "CLZ", "CLN"},
	{"SEC", "SEV", "SEZ", "SEN"},
}

// ccName names a condition code operate instruction. Combinations of
// flags other than all four print joined with '|'.
func ccName(w uint16) string {
	set := w >> 4 & 1
	flags := w & 017
	switch flags {
	case 0:
		return "NOP"
	case 017:
		if set == 1 {
			return "SCC"
		}
		return "CCC"
	}
	var mn string
	for i := 0; i < 4; i++ {
		if flags&(1<<i) == 0 {
			continue
		}
		if mn != "" {
			mn += "|"
		}
		mn += ccNames[set][i]
	}
	return mn
}

// decode walks the opcode table and pulls index and immediate words for
// the general operands, source first.
func decode(c *disasm.Cursor) (op, bool) {
	w := c.U16(0)
	if c.Err() != nil {
		return op{}, false
	}
	f, ok := lookup(w)
	if !ok {
		return op{}, false
	}

	o := op{mn: f.mn, size: 2, typ: f.typ}
	pc := c.PC()
	switch f.shape {
	case sDD:
		o.add(general(c, &o.size, w&077, f.a))
	case sSSDD:
		o.add(general(c, &o.size, w>>6&077, f.a))
		o.add(general(c, &o.size, w&077, f.b))
	case sR:
		o.add(reg(uint8(w&7), f.a))
	case sRDD:
		o.add(reg(uint8(w>>6&7), f.a))
		o.add(general(c, &o.size, w&077, f.b))
	case sSSR:
		o.add(general(c, &o.size, w&077, f.a))
		o.add(reg(uint8(w>>6&7), f.b))
	case sBranch:
		t := wrap(int64(pc) + 2 + 2*int64(int8(w)))
		o.add(addr(t))
		o.dest = disasm.At(t)
	case sSOB:
		t := wrap(int64(pc) + 2 - 2*int64(w&077))
		o.add(reg(uint8(w>>6&7), f.a))
		o.add(addr(t))
		o.dest = disasm.At(t)
	case sN3:
		o.add(num(uint64(w & 7)))
	case sN6:
		o.add(num(uint64(w & 077)))
	case sN8:
		o.add(num(uint64(w & 0377)))
	case sCC:
		o.mn = ccName(w)
	}

	switch f.mn {
	case "MUL":
		// An even register receives the 32-bit product in R and R+1.
		o.implicit(o.args[1].reg|1, wr)
	case "DIV", "ASHC":
		o.implicit(o.args[1].reg|1, rw)
	case "JSR":
		// The linkage register is pushed.
		o.implicit(sp, rw)
	case "RTS":
		o.implicit(sp, rw)
	}

	switch f.mn {
	case "JMP", "JSR":
		return transfer(o)
	case "MOV":
		return alias(o), true
	}
	return o, true
}

// transfer classifies JMP and JSR by the destination mode. Register mode
// is reserved; absolute and relative destinations are static.
func transfer(o op) (op, bool) {
	dst := o.args[o.n-1]
	if dst.mode == 0 {
		return op{}, false
	}
	if dst.reg == regPC && (dst.mode == 3 || dst.mode == 6) {
		o.dest = disasm.At(dst.val)
		if o.typ == disasm.JmpIndirect {
			o.typ = disasm.Jmp
		}
	}
	return o, true
}

// alias rewrites MOV src,-(SP) as PUSH src and MOV (SP)+,dst as POP dst.
// The stack operand is kept hidden so it still shows in the register sets.
func alias(o op) op {
	src, dst := &o.args[0], &o.args[1]
	switch {
	case dst.mode == 4 && dst.reg == sp:
		o.mn = "PUSH"
		dst.hide = true
	case src.mode == 2 && src.reg == sp:
		o.mn = "POP"
		src.hide = true
	}
	return o
}

// wrap keeps addresses inside the 16-bit space.
func wrap(v int64) uint64 { return uint64(uint16(v)) }
