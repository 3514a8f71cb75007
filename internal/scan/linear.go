// Package scan drives the decoders over whole code regions: linear
// listings, basic-block graphs, concurrent section scans and property
// verification.
package scan

import (
	"tracedis/internal/arch"
	"tracedis/internal/disasm"
	"tracedis/internal/logging"
)

// Linear disassembles code starting at pc. Undecodable positions are
// skipped by the family alignment and counted.
func Linear(s *arch.Spec, code []byte, pc uint64, sym disasm.SymbolResolver) (disasm.Stream, int) {
	var (
		out   disasm.Stream
		bad   int
		whole = s.NewReader(code, pc)
	)
	for off := 0; off < len(code); {
		r := whole.At(off)
		inst, err := s.Decoder.Disassemble(r, sym)
		if err != nil {
			logging.Default().Debug("undecodable", "arch", s.Name, "pc", r.PC(), "err", err)
			bad++
			off += s.Align
			continue
		}
		out = append(out, *inst)
		off += inst.Len
	}
	return out, bad
}
