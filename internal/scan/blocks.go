package scan

import (
	"sort"

	"tracedis/internal/arch"
	"tracedis/internal/disasm"
)

// Block is a straight-line run of instructions.
type Block struct {
	Start uint64
	End   uint64 // address after the last instruction
	Insts int
	Term  disasm.Type // type of the last instruction
	Succs []uint64    // successors inside the region
}

// Call is a call site and its static target, if any.
type Call struct {
	Site   uint64
	Target disasm.Target
}

// Graph is the control-flow summary of one region.
type Graph struct {
	Blocks      []Block
	Calls       []Call
	Undecodable int
}

// Block returns the block starting at addr.
func (g *Graph) Block(addr uint64) (Block, bool) {
	i := sort.Search(len(g.Blocks), func(i int) bool { return g.Blocks[i].Start >= addr })
	if i < len(g.Blocks) && g.Blocks[i].Start == addr {
		return g.Blocks[i], true
	}
	return Block{}, false
}

type step struct {
	pc   uint64
	n    int
	typ  disasm.Type
	dest disasm.Target
}

// Blocks builds the basic-block graph of code at pc using only the
// Length, Type and Branch fast paths.
func Blocks(s *arch.Spec, code []byte, pc uint64) *Graph {
	g := &Graph{}
	whole := s.NewReader(code, pc)
	end := pc + uint64(len(code))
	inside := func(a uint64) bool { return a >= pc && a < end }

	var steps []step
	leaders := map[uint64]bool{pc: true}
	for off := 0; off < len(code); {
		r := whole.At(off)
		n := s.Decoder.Length(r)
		if n == 0 {
			g.Undecodable++
			off += s.Align
			leaders[pc+uint64(off)] = true
			continue
		}
		st := step{pc: r.PC(), n: n, typ: s.Decoder.Type(r), dest: s.Decoder.Branch(r)}
		steps = append(steps, st)
		off += n

		if st.typ == disasm.Call {
			g.Calls = append(g.Calls, Call{Site: st.pc, Target: st.dest})
			continue
		}
		if st.dest.Valid && inside(st.dest.Addr) {
			leaders[st.dest.Addr] = true
		}
		if st.typ.EndsBlock() {
			leaders[pc+uint64(off)] = true
		}
	}

	var cur *Block
	for i, st := range steps {
		if cur == nil || leaders[st.pc] || cur.End != st.pc {
			g.Blocks = append(g.Blocks, Block{Start: st.pc, End: st.pc})
			cur = &g.Blocks[len(g.Blocks)-1]
		}
		cur.End = st.pc + uint64(st.n)
		cur.Insts++
		cur.Term = st.typ

		last := i == len(steps)-1 || leaders[steps[i+1].pc] || steps[i+1].pc != cur.End
		if !last {
			continue
		}
		if st.dest.Valid && st.typ != disasm.Call && inside(st.dest.Addr) {
			cur.Succs = append(cur.Succs, st.dest.Addr)
		}
		switch st.typ {
		case disasm.Jmp, disasm.JmpIndirect, disasm.Ret, disasm.Rti:
		default:
			if i+1 < len(steps) && steps[i+1].pc == cur.End {
				cur.Succs = append(cur.Succs, cur.End)
			}
		}
		cur = nil
	}
	return g
}
