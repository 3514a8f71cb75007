// Package amd64 decodes the 64-bit x86 instruction set in Intel syntax.
//
// Decoding is driven by the opcode tables in table.go: legacy prefixes,
// REX, the one-byte map and the integer and SSE move subset of the 0F map.
// VEX/EVEX, x87 and the 0F38/0F3A maps are reported as unknown opcodes.
package amd64

import (
	"encoding/binary"

	"tracedis/internal/disasm"
)

// Order is the byte order of x86 code.
var Order = binary.LittleEndian

// Format prints numbers the way objdump's Intel mode does.
var Format = disasm.NumberFormat{
	Radix:        16,
	Prefix:       "0x",
	DecimalBelow: 10,
	AddrDigits:   16,
}

// MaxLen is the architectural instruction length limit.
const MaxLen = 15

// Decoder implements disasm.Decoder for AMD64.
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
		inst.Args = append(inst.Args, a.render(sym))
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
