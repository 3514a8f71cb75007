// Package h8s decodes the Renesas H8S/2600 instruction set (advanced mode,
// big-endian 16-bit opcode words).
package h8s

import (
	"encoding/binary"

	"tracedis/internal/disasm"
)

// Order is the byte order of H8S code.
var Order = binary.BigEndian

// Format prints numbers the way the Renesas assembler does: H'1F.
var Format = disasm.NumberFormat{
	Radix:        16,
	Prefix:       "H'",
	Upper:        true,
	DecimalBelow: 10,
	AddrDigits:   6,
}

// MaxLen is the longest H8S encoding (MOV.L @(d:32,ERs),ERd).
const MaxLen = 10

// Decoder implements disasm.Decoder for H8S.
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
	return inst, nil
}

func tree(c *disasm.Cursor) (op, bool) {
	o, ok := decode(c)
	if !ok || !c.Require(o.size) {
		return op{}, false
	}
	return o, true
}
