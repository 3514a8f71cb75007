package amd64

import (
	"tracedis/internal/disasm"
)

// state is the per-instruction decoder position: prefixes seen so far and
// the offset of the next unread byte.
type state struct {
	c      *disasm.Cursor
	off    int
	op     byte
	rex    uint8
	osz    bool
	asz    bool
	rep    byte
	lock   bool
	seg    string
	opsize int
	modrm  uint8
}

func (s *state) next() uint8 {
	b := s.c.U8(s.off)
	s.off++
	return b
}

// prefixes consumes legacy and REX prefixes. A REX prefix only counts when
// it immediately precedes the opcode.
func (s *state) prefixes() bool {
	for ; s.off < MaxLen; s.off++ {
		b := s.c.U8(s.off)
		if s.c.Err() != nil {
			return false
		}
		switch b {
		case 0xf0:
			s.lock = true
		case 0xf2, 0xf3:
			s.rep = b
		case 0x26, 0x2e, 0x36, 0x3e:
			s.seg = ""
		case 0x64:
			s.seg = "fs"
		case 0x65:
			s.seg = "gs"
		case 0x66:
			s.osz = true
		case 0x67:
			s.asz = true
		default:
			if b&0xf0 != 0x40 {
				return true
			}
			s.rex = b
			continue
		}
		s.rex = 0
	}
	return false
}

func (s *state) mandatory() byte {
	switch {
	case s.rep == 0xf3:
		return pF3
	case s.rep == 0xf2:
		return pF2
	case s.osz:
		return p66
	}
	return pNone
}

func (s *state) operandSize(fl flag) int {
	switch {
	case fl&fF64 != 0, s.rex&8 != 0:
		return 8
	case s.osz:
		return 2
	case fl&fD64 != 0:
		return 8
	}
	return 4
}

func decode(c *disasm.Cursor) (op, bool) {
	s := &state{c: c}
	if !s.prefixes() {
		return op{}, false
	}

	var x entry
	s.op = s.next()
	escaped := s.op == 0x0f
	if escaped {
		s.op = s.next()
		if s.op == 0x1e && s.rep == 0xf3 {
			if mn, ok := endbr[c.U8(s.off)]; ok {
				return op{mn: mn, size: s.off + 1}, true
			}
		}
		x = twoByte[s.op]
		if alt, ok := f3Alt[s.op]; ok && s.rep == 0xf3 {
			x = alt
			s.rep = 0
		}
		if x.flags&fSSE != 0 {
			p := s.mandatory()
			row, ok := sse[[2]byte{s.op, p}]
			if !ok {
				return op{}, false
			}
			x = row
			switch p {
			case p66:
				s.osz = false
				if s.rex&8 != 0 && (s.op == 0x6e || s.op == 0x7e) {
					x.mn = "movq"
				}
			case pF2, pF3:
				s.rep = 0
			}
		}
	} else {
		x = oneByte[s.op]
	}
	if c.Err() != nil {
		return op{}, false
	}

	if x.needsModRM() {
		s.modrm = s.next()
		if c.Err() != nil {
			return op{}, false
		}
	}
	if x.group != nil {
		rows := x.group
		if x.mod3 != nil && s.modrm>>6 == 3 {
			rows = x.mod3
		}
		x = rows[s.modrm>>3&7]
	}

	s.opsize = s.operandSize(x.flags)
	mn := x.name(s.opsize)
	if mn == "" {
		return op{}, false
	}

	o := op{mn: mn, typ: x.typ}
	for i, spec := range x.args {
		if spec == aNone {
			break
		}
		acc := rd
		switch {
		case x.flags&fXchg != 0:
			acc = rw
		case i == 0:
			acc = x.acc
		}
		a, ok := s.operand(spec, acc)
		if !ok {
			return op{}, false
		}
		o.add(a)
	}
	if c.Err() != nil || s.off > MaxLen {
		return op{}, false
	}
	o.size = s.off

	end := c.PC() + uint64(s.off)
	for i := range o.args[:o.n] {
		a := &o.args[i]
		switch {
		case a.k == kRel:
			a.val = end + uint64(a.disp)
			o.dest = disasm.At(a.val)
		case a.k == kMem && a.rip:
			a.val = end + uint64(a.disp)
		}
	}

	if !escaped && s.op == 0x90 && s.rex&1 == 0 {
		o.n = 0
		o.mn = "nop"
		if s.rep == 0xf3 {
			o.mn = "pause"
			s.rep = 0
		}
	}
	o.mn = s.decorate(o.mn, x.flags)
	return o, true
}

// decorate prefixes the mnemonic with LOCK and the string repeat forms.
func (s *state) decorate(mn string, fl flag) string {
	switch {
	case fl&fRep != 0 && s.rep == 0xf3:
		mn = "rep " + mn
	case fl&fRepe != 0 && s.rep == 0xf3:
		mn = "repe " + mn
	case fl&fRepe != 0 && s.rep == 0xf2:
		mn = "repne " + mn
	}
	if s.lock {
		mn = "lock " + mn
	}
	return mn
}

func (s *state) regField() uint8 { return s.modrm>>3&7 | (s.rex>>2&1)<<3 }
func (s *state) rmField() uint8  { return s.modrm&7 | (s.rex&1)<<3 }

// wsize is the size of the y operands: 64 bits with REX.W, else 32.
func (s *state) wsize() int {
	if s.rex&8 != 0 {
		return 8
	}
	return 4
}

func (s *state) operand(spec opnd, acc access) (arg, bool) {
	rex := s.rex != 0
	switch spec {
	case aEb:
		return s.rm(1, acc)
	case aEw:
		return s.rm(2, acc)
	case aRvMw:
		if s.modrm>>6 == 3 {
			return s.rm(s.opsize, acc)
		}
		return s.rm(2, acc)
	case aEv:
		return s.rm(s.opsize, acc)
	case aEd:
		return s.rm(4, acc)
	case aEy:
		return s.rm(s.wsize(), acc)
	case aM:
		if s.modrm>>6 == 3 {
			return arg{}, false
		}
		return s.mem(0), true
	case aGb:
		return regArg(gpr(s.regField(), 1, rex), acc), true
	case aGv:
		return regArg(gpr(s.regField(), s.opsize, rex), acc), true
	case aGy:
		return regArg(gpr(s.regField(), s.wsize(), rex), acc), true
	case aSw:
		n := s.modrm >> 3 & 7
		if n > 5 {
			return arg{}, false
		}
		return regArg(segs[n], acc), true
	case aVx:
		return regArg(xmm[s.regField()], acc), true
	case aWx:
		return s.xmmRM(16, acc), true
	case aWd:
		return s.xmmRM(4, acc), true
	case aWq:
		return s.xmmRM(8, acc), true
	case aIb:
		return imm(uint64(s.next())), true
	case aIbs:
		return signed(int64(int8(s.next()))), true
	case aIw:
		v := s.c.U16(s.off)
		s.off += 2
		return imm(uint64(v)), true
	case aIz:
		if s.opsize == 2 {
			v := s.c.U16(s.off)
			s.off += 2
			return imm(uint64(v)), true
		}
		v := s.c.I32(s.off)
		s.off += 4
		if s.opsize == 8 {
			return signed(int64(v)), true
		}
		return imm(uint64(uint32(v))), true
	case aIv:
		switch s.opsize {
		case 2:
			v := s.c.U16(s.off)
			s.off += 2
			return imm(uint64(v)), true
		case 4:
			v := s.c.U32(s.off)
			s.off += 4
			return imm(uint64(v)), true
		}
		v := s.c.U64(s.off)
		s.off += 8
		return imm(v), true
	case aJb:
		return arg{k: kRel, disp: int64(int8(s.next()))}, true
	case aJz:
		v := s.c.I32(s.off)
		s.off += 4
		return arg{k: kRel, disp: int64(v)}, true
	case aAL:
		return regArg("al", acc), true
	case aCL:
		return regArg("cl", acc), true
	case aDX:
		return regArg("dx", acc), true
	case aRAX:
		return regArg(gpr(0, s.opsize, false), acc), true
	case aZb:
		return regArg(gpr(s.op&7|(s.rex&1)<<3, 1, rex), acc), true
	case aZv:
		return regArg(gpr(s.op&7|(s.rex&1)<<3, s.opsize, rex), acc), true
	case aFS:
		return regArg("fs", acc), true
	case aGS:
		return regArg("gs", acc), true
	case aOb, aOv:
		size := 1
		if spec == aOv {
			size = s.opsize
		}
		a := arg{k: kMem, abs: true, size: size, seg: s.seg}
		if s.asz {
			a.val = uint64(s.c.U32(s.off))
			s.off += 4
		} else {
			a.val = s.c.U64(s.off)
			s.off += 8
		}
		return a, true
	case aOne:
		return imm(1), true
	}
	return arg{}, false
}

func imm(v uint64) arg { return arg{k: kImm, val: v} }

func signed(v int64) arg { return arg{k: kImm, val: uint64(v), neg: v < 0} }

func (s *state) rm(size int, acc access) (arg, bool) {
	if s.modrm>>6 == 3 {
		return regArg(gpr(s.rmField(), size, s.rex != 0), acc), true
	}
	return s.mem(size), true
}

func (s *state) xmmRM(size int, acc access) arg {
	if s.modrm>>6 == 3 {
		return regArg(xmm[s.rmField()], acc)
	}
	return s.mem(size)
}

func (s *state) disp32() int64 {
	v := s.c.I32(s.off)
	s.off += 4
	return int64(v)
}

// mem decodes the ModRM memory form, reading SIB and displacement bytes.
func (s *state) mem(size int) arg {
	mod, rm := s.modrm>>6, s.modrm&7
	a := arg{k: kMem, size: size, seg: s.seg, scale: 1}
	names := &reg64
	if s.asz {
		names = &reg32
	}
	switch {
	case rm == 4:
		sib := s.next()
		a.scale = 1 << (sib >> 6)
		if index := sib>>3&7 | (s.rex>>1&1)<<3; index != 4 {
			a.index = names[index]
		}
		if sib&7 == 5 && mod == 0 {
			a.disp = s.disp32()
			if a.index == "" {
				a.abs = true
				a.val = uint64(a.disp)
			}
			return a
		}
		a.base = names[sib&7|(s.rex&1)<<3]
	case rm == 5 && mod == 0:
		a.rip = true
		a.disp = s.disp32()
		return a
	default:
		a.base = names[s.rmField()]
	}
	switch mod {
	case 1:
		a.disp = int64(int8(s.next()))
	case 2:
		a.disp = s.disp32()
	}
	return a
}
