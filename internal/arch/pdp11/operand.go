package pdp11

import (
	"tracedis/internal/disasm"
)

type access uint8

const (
	rd access = 1 << iota
	wr
	rw = rd | wr
)

type kind uint8

const (
	kGeneral kind = iota // mode/register field
	kReg                 // register named by a 3-bit field
	kNum                 // SPL, MARK, EMT and TRAP argument
	kAddr                // branch destination
)

var regNames = [8]string{"R0", "R1", "R2", "R3", "R4", "R5", "SP", "PC"}

const (
	sp    = 6
	regPC = 7
)

// arg is an operand descriptor. For general operands val holds the
// index or immediate word, or the effective address for the PC-relative
// modes.
type arg struct {
	k    kind
	mode uint8
	reg  uint8
	val  uint64
	acc  access
	hide bool
}

type op struct {
	mn   string
	size int
	typ  disasm.Type
	dest disasm.Target
	args [2]arg
	n    int
	// registers used but not named by an operand, one bit per register
	implR, implW uint8
}

func (o *op) add(a arg) {
	o.args[o.n] = a
	o.n++
}

// implicit records the register a reaches without an operand.
func (o *op) implicit(n uint8, a access) {
	if a&rd != 0 {
		o.implR |= 1 << n
	}
	if a&wr != 0 {
		o.implW |= 1 << n
	}
}

// useImplicit adds the implicit registers after the operand ones.
func (o *op) useImplicit(inst *disasm.Inst) {
	for n, name := range regNames {
		if o.implR&(1<<n) != 0 {
			inst.Reads.Add(name)
		}
		if o.implW&(1<<n) != 0 {
			inst.Writes.Add(name)
		}
	}
}

func reg(n uint8, a access) arg { return arg{k: kReg, reg: n & 7, acc: a} }
func num(v uint64) arg          { return arg{k: kNum, val: v} }
func addr(t uint64) arg         { return arg{k: kAddr, val: t} }

// general decodes a six-bit mode/register field. Index and immediate words
// are taken from the cursor at *size, which advances past them.
func general(c *disasm.Cursor, size *int, field uint16, a access) arg {
	g := arg{k: kGeneral, mode: uint8(field >> 3 & 7), reg: uint8(field & 7), acc: a}
	if !g.hasWord() {
		return g
	}
	word := c.U16(*size)
	*size += 2
	g.val = uint64(word)
	if g.reg == regPC && g.mode >= 6 {
		g.val = wrap(int64(c.PC()) + int64(*size) + int64(word))
	}
	return g
}

// hasWord reports whether the operand is followed by an extra word.
func (a arg) hasWord() bool {
	if a.k != kGeneral {
		return false
	}
	return a.mode >= 6 || (a.reg == regPC && (a.mode == 2 || a.mode == 3))
}

// pcMode reports the immediate, absolute, relative and relative deferred
// forms, whose PC use is not shown as a register.
func (a arg) pcMode() bool {
	return a.reg == regPC && a.hasWord()
}

func (a arg) use(inst *disasm.Inst) {
	name := regNames[a.reg]
	switch {
	case a.k == kReg, a.k == kGeneral && a.mode == 0:
		if a.acc&rd != 0 {
			inst.Reads.Add(name)
		}
		if a.acc&wr != 0 {
			inst.Writes.Add(name)
		}
	case a.k != kGeneral, a.pcMode():
	case a.mode >= 2 && a.mode <= 5:
		inst.Reads.Add(name)
		inst.Writes.Add(name)
	default:
		inst.Reads.Add(name)
	}
}

func (a arg) render(sym disasm.SymbolResolver) disasm.Operand {
	switch a.k {
	case kReg:
		return disasm.Operand{disasm.Reg(regNames[a.reg])}
	case kNum:
		return disasm.Operand{disasm.Num(Format.Number(a.val), a.val)}
	case kAddr:
		return disasm.Operand{disasm.AddrTok(a.val, Format, sym)}
	}

	r := disasm.Reg(regNames[a.reg])
	if a.reg == regPC {
		switch a.mode {
		case 2:
			return disasm.Operand{disasm.Punct("#"), disasm.Num(Format.Number(a.val), a.val)}
		case 3:
			return disasm.Operand{disasm.Punct("@#"), disasm.AddrTok(a.val, Format, sym)}
		case 6:
			return disasm.Operand{disasm.AddrTok(a.val, Format, sym)}
		case 7:
			return disasm.Operand{disasm.Punct("@"), disasm.AddrTok(a.val, Format, sym)}
		}
	}
	switch a.mode {
	case 0:
		return disasm.Operand{r}
	case 1:
		return disasm.Operand{disasm.Punct("("), r, disasm.Punct(")")}
	case 2:
		return disasm.Operand{disasm.Punct("("), r, disasm.Punct(")+")}
	case 3:
		return disasm.Operand{disasm.Punct("@("), r, disasm.Punct(")+")}
	case 4:
		return disasm.Operand{disasm.Punct("-("), r, disasm.Punct(")")}
	case 5:
		return disasm.Operand{disasm.Punct("@-("), r, disasm.Punct(")")}
	}
	x := disasm.Off(Format.Signed(int64(int16(a.val))), a.val)
	if a.mode == 6 {
		return disasm.Operand{x, disasm.Punct("("), r, disasm.Punct(")")}
	}
	return disasm.Operand{disasm.Punct("@"), x, disasm.Punct("("), r, disasm.Punct(")")}
}
