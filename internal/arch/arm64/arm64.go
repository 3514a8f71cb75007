// Package arm64 decodes AArch64 code.
//
// Control flow is classified from the fixed 32-bit encoding with mask
// tests; full operand decoding is delegated to arm64asm.
package arm64

import (
	"encoding/binary"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"tracedis/internal/disasm"
)

// Order is the byte order of A64 code.
var Order = binary.LittleEndian

// Format prints numbers like the GNU tools do.
var Format = disasm.NumberFormat{
	Radix:        16,
	Prefix:       "0x",
	DecimalBelow: 10,
	AddrDigits:   16,
}

// MaxLen is the size of every A64 instruction.
const MaxLen = 4

// Decoder implements disasm.Decoder for AArch64.
type Decoder struct{}

func (Decoder) Length(r *disasm.Reader) int {
	if _, err := disasm.Walk(r, tree); err != nil {
		return 0
	}
	return MaxLen
}

func (Decoder) Type(r *disasm.Reader) disasm.Type {
	o, err := disasm.Walk(r, tree)
	if err != nil {
		return disasm.Other
	}
	return o.typ
}

func (Decoder) Branch(r *disasm.Reader) disasm.Target {
	o, err := disasm.Walk(r, tree)
	if err != nil {
		return disasm.None
	}
	return o.dest
}

func (Decoder) Disassemble(r *disasm.Reader, sym disasm.SymbolResolver) (*disasm.Inst, error) {
	o, err := disasm.Walk(r, tree)
	if err != nil {
		return nil, disasm.Undecodable(r.PC(), err)
	}
	inst := &disasm.Inst{
		VA:     r.PC(),
		Len:    MaxLen,
		Op:     mnemonic(o.inst),
		Type:   o.typ,
		Target: o.dest,
		Raw:    r.Raw(MaxLen),
	}
	args := o.inst.Args[:]
	if o.inst.Op == arm64asm.B {
		if _, ok := args[0].(arm64asm.Cond); ok {
			args = args[1:]
		}
	}
	if o.inst.Op == arm64asm.RET {
		if reg, ok := args[0].(arm64asm.Reg); ok && reg == arm64asm.X30 {
			args = nil
		}
	}
	store := readsOnly(o.inst.Op)
	for i, a := range args {
		if a == nil {
			break
		}
		use(inst, a, i == 0 && !store)
		inst.Args = append(inst.Args, render(a, o.inst.Op, r.PC(), sym))
	}
	return inst, nil
}

// op is the decode leaf: the arm64asm instruction plus its control-flow
// classification.
type op struct {
	inst arm64asm.Inst
	typ  disasm.Type
	dest disasm.Target
}

func tree(c *disasm.Cursor) (op, bool) {
	if !c.Require(MaxLen) {
		return op{}, false
	}
	w := c.U32(0)
	var raw [MaxLen]byte
	Order.PutUint32(raw[:], w)
	inst, err := arm64asm.Decode(raw[:])
	if err != nil {
		return op{}, false
	}
	typ, dest := classify(w, c.PC())
	return op{inst: inst, typ: typ, dest: dest}, true
}

// classify derives type and target from the encoding.
func classify(w uint32, pc uint64) (disasm.Type, disasm.Target) {
	switch {
	case w&0xfc000000 == 0x14000000:
		return disasm.Jmp, rel(pc, w, 0, 26)
	case w&0xfc000000 == 0x94000000:
		return disasm.Call, rel(pc, w, 0, 26)
	case w&0xff000010 == 0x54000000:
		if w&0xe == 0xe {
			return disasm.Jmp, rel(pc, w, 5, 19)
		}
		return disasm.Jcc, rel(pc, w, 5, 19)
	case w&0x7e000000 == 0x34000000:
		return disasm.Jcc, rel(pc, w, 5, 19)
	case w&0x7e000000 == 0x36000000:
		return disasm.Jcc, rel(pc, w, 5, 14)
	case w&0xfffffc1f == 0xd61f0000:
		return disasm.JmpIndirect, disasm.None
	case w&0xfffffc1f == 0xd63f0000:
		return disasm.Call, disasm.None
	case w&0xfffffc1f == 0xd65f0000:
		return disasm.Ret, disasm.None
	case w == 0xd69f03e0:
		return disasm.Rti, disasm.None
	case w&0xffe0001f == 0xd4000001:
		return disasm.Syscall, disasm.None
	}
	return disasm.Other, disasm.None
}

// rel resolves a word-scaled signed immediate of width bits at lsb.
func rel(pc uint64, w uint32, lsb, width uint) disasm.Target {
	imm := int64(w>>lsb&(1<<width-1)) << (64 - width) >> (64 - width)
	return disasm.At(pc + uint64(imm*4))
}

func mnemonic(inst arm64asm.Inst) string {
	mn := strings.ToLower(inst.Op.String())
	if inst.Op == arm64asm.B {
		if cond, ok := inst.Args[0].(arm64asm.Cond); ok {
			mn += "." + strings.ToLower(cond.String())
		}
	}
	return mn
}

// readsOnly reports whether no operand of op is a destination register.
func readsOnly(o arm64asm.Op) bool {
	switch o {
	case arm64asm.CMP, arm64asm.CMN, arm64asm.TST, arm64asm.CCMP, arm64asm.CCMN,
		arm64asm.CBZ, arm64asm.CBNZ, arm64asm.TBZ, arm64asm.TBNZ,
		arm64asm.B, arm64asm.BL, arm64asm.BR, arm64asm.BLR, arm64asm.RET,
		arm64asm.FCMP, arm64asm.FCMPE, arm64asm.PRFM, arm64asm.MSR:
		return true
	}
	return strings.HasPrefix(o.String(), "ST")
}

func use(inst *disasm.Inst, a arm64asm.Arg, dst bool) {
	add := func(name string) {
		if dst {
			inst.Writes.Add(name)
			return
		}
		inst.Reads.Add(name)
	}
	switch a := a.(type) {
	case arm64asm.Reg:
		add(strings.ToLower(a.String()))
	case arm64asm.RegSP:
		add(strings.ToLower(a.String()))
	case arm64asm.MemImmediate:
		base := strings.ToLower(a.Base.String())
		inst.Reads.Add(base)
		if a.Mode == arm64asm.AddrPreIndex || a.Mode == arm64asm.AddrPostIndex {
			inst.Writes.Add(base)
		}
	case arm64asm.MemExtend:
		inst.Reads.Add(strings.ToLower(a.Base.String()))
		inst.Reads.Add(strings.ToLower(a.Index.String()))
	}
}

func render(a arm64asm.Arg, o arm64asm.Op, pc uint64, sym disasm.SymbolResolver) disasm.Operand {
	switch a := a.(type) {
	case arm64asm.Reg:
		return disasm.Operand{disasm.Reg(strings.ToLower(a.String()))}
	case arm64asm.RegSP:
		return disasm.Operand{disasm.Reg(strings.ToLower(a.String()))}
	case arm64asm.PCRel:
		base := pc
		if o == arm64asm.ADRP {
			base &^= 0xfff
		}
		return disasm.Operand{disasm.AddrTok(base+uint64(a), Format, sym)}
	case arm64asm.Imm:
		v := uint64(a.Imm)
		return disasm.Operand{disasm.Punct("#"), disasm.Num(Format.Number(v), v)}
	case arm64asm.Imm64:
		return disasm.Operand{disasm.Punct("#"), disasm.Num(Format.Number(a.Imm), a.Imm)}
	}
	return disasm.Operand{disasm.Punct(strings.ToLower(a.String()))}
}
