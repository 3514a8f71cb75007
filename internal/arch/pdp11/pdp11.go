// Package pdp11 decodes the PDP-11 instruction set: the basic set, EIS,
// the processor status and previous-space moves, and SOB/XOR/MARK/SPL.
// Floating point (17xxxx) is not decoded.
package pdp11

import (
	"encoding/binary"

	"tracedis/internal/disasm"
)

// Order is the byte order of PDP-11 code.
var Order = binary.LittleEndian

// Format prints numbers and addresses in octal, as MACRO-11 listings do.
var Format = disasm.NumberFormat{
	Radix:      8,
	AddrDigits: 6,
}

// MaxLen is the longest PDP-11 instruction: opcode plus a source and a
// destination index word.
const MaxLen = 6

// Decoder implements disasm.Decoder for the PDP-11.
type Decoder struct{}

func (Decoder) Length(r *disasm.Reader) int {
	o, err := disasm.Walk(r, tree)
	if err != nil {
		return 0
	}
	return o.size
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
		Len:    o.size,
		Op:     o.mn,
		Type:   o.typ,
		Target: o.dest,
		Raw:    r.Raw(o.size),
	}
	for _, a := range o.args[:o.n] {
		a.use(inst)
		if !a.hide {
			inst.Args = append(inst.Args, a.render(sym))
		}
	}
	o.useImplicit(inst)
	return inst, nil
}

func tree(c *disasm.Cursor) (op, bool) {
	o, ok := decode(c)
	if !ok || !c.Require(o.size) {
		return op{}, false
	}
	return o, true
}
