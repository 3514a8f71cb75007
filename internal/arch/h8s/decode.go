package h8s

import (
	"tracedis/internal/disasm"
)

var condNames = [16]string{
	"BRA", "BRN", "BHI", "BLS", "BCC", "BCS", "BNE", "BEQ",
	"BVC", "BVS", "BPL", "BMI", "BGE", "BLT", "BGT", "BLE",
}

// branch classifies a Bcc leaf. BRN never branches.
func branch(cond uint8, size int, target uint64) op {
	o := leaf(condNames[cond], size, pcrel(target))
	switch cond {
	case 0:
		return o.flow(disasm.Jmp, disasm.At(target))
	case 1:
		return o
	}
	return o.flow(disasm.Jcc, disasm.At(target))
}

func rel(pc uint64, size int, d int64) uint64 {
	return uint64(uint32(int64(pc) + int64(size) + d))
}

// decode walks the H8S opcode map. The first word selects the format;
// prefixed and extended forms read further words from the cursor.
func decode(c *disasm.Cursor) (op, bool) {
	w := c.U16(0)
	if c.Err() != nil {
		return op{}, false
	}
	b0, b1 := uint8(w>>8), uint8(w)

	switch b0 >> 4 {
	case 0x0:
		return decode0(c, b0, b1)
	case 0x1:
		return decode1(b0, b1)
	case 0x2:
		return leaf("MOV.B", 2, abs8(b1), r8(b0, wr)), true
	case 0x3:
		return leaf("MOV.B", 2, r8(b0, rd), abs8(b1)), true
	case 0x4:
		return branch(b0&0xf, 2, rel(c.PC(), 2, int64(int8(b1)))), true
	case 0x5:
		return decode5(c, b0, b1)
	case 0x6:
		return decode6(c, b0, b1)
	case 0x7:
		return decode7(c, b0, b1)
	}

	// 8x-Fx: #xx:8 byte immediates
	r := b0 & 0xf
	switch b0 >> 4 {
	case 0x8:
		return leaf("ADD.B", 2, imm(uint64(b1)), r8(r, rw)), true
	case 0x9:
		return leaf("ADDX", 2, imm(uint64(b1)), r8(r, rw)), true
	case 0xa:
		return leaf("CMP.B", 2, imm(uint64(b1)), r8(r, rd)), true
	case 0xb:
		return leaf("SUBX", 2, imm(uint64(b1)), r8(r, rw)), true
	case 0xc:
		return leaf("OR.B", 2, imm(uint64(b1)), r8(r, rw)), true
	case 0xd:
		return leaf("XOR.B", 2, imm(uint64(b1)), r8(r, rw)), true
	case 0xe:
		return leaf("AND.B", 2, imm(uint64(b1)), r8(r, rw)), true
	}
	return leaf("MOV.B", 2, imm(uint64(b1)), r8(r, wr)), true
}

func decode0(c *disasm.Cursor, b0, b1 uint8) (op, bool) {
	hi, lo := b1>>4, b1&0xf
	switch b0 {
	case 0x00:
		if b1 == 0 {
			return leaf("NOP", 2), true
		}
	case 0x01:
		return decode01(c, b1)
	case 0x02:
		switch hi {
		case 0:
			return leaf("STC.B", 2, ctl(ccr, rd), r8(lo, wr)), true
		case 1:
			return leaf("STC.B", 2, ctl(exr, rd), r8(lo, wr)), true
		case 2, 3:
			if lo&8 == 0 {
				return leaf("STMAC", 2, ctl(mach+hi-2, rd), r32(lo, wr)), true
			}
		}
	case 0x03:
		switch hi {
		case 0:
			return leaf("LDC.B", 2, r8(lo, rd), ctl(ccr, wr)), true
		case 1:
			return leaf("LDC.B", 2, r8(lo, rd), ctl(exr, wr)), true
		case 2, 3:
			if lo&8 == 0 {
				return leaf("LDMAC", 2, r32(lo, rd), ctl(mach+hi-2, wr)), true
			}
		}
	case 0x04:
		return leaf("ORC", 2, imm(uint64(b1)), ctl(ccr, rw)), true
	case 0x05:
		return leaf("XORC", 2, imm(uint64(b1)), ctl(ccr, rw)), true
	case 0x06:
		return leaf("ANDC", 2, imm(uint64(b1)), ctl(ccr, rw)), true
	case 0x07:
		return leaf("LDC.B", 2, imm(uint64(b1)), ctl(ccr, wr)), true
	case 0x08:
		return leaf("ADD.B", 2, r8(hi, rd), r8(lo, rw)), true
	case 0x09:
		return leaf("ADD.W", 2, r16(hi, rd), r16(lo, rw)), true
	case 0x0a:
		if hi == 0 {
			return leaf("INC.B", 2, r8(lo, rw)), true
		}
		if hi&8 != 0 && lo&8 == 0 {
			return leaf("ADD.L", 2, r32(hi, rd), r32(lo, rw)), true
		}
	case 0x0b:
		return incdec("ADDS", "INC", hi, lo)
	case 0x0c:
		return leaf("MOV.B", 2, r8(hi, rd), r8(lo, wr)), true
	case 0x0d:
		return leaf("MOV.W", 2, r16(hi, rd), r16(lo, wr)), true
	case 0x0e:
		return leaf("ADDX", 2, r8(hi, rd), r8(lo, rw)), true
	case 0x0f:
		if hi == 0 {
			return leaf("DAA", 2, r8(lo, rw)), true
		}
		if hi&8 != 0 && lo&8 == 0 {
			return leaf("MOV.L", 2, r32(hi, rd), r32(lo, wr)), true
		}
	}
	return op{}, false
}

// incdec decodes the 0B/1B rows: ADDS/SUBS by 1, 2, 4 and INC/DEC.W/L by 1, 2.
func incdec(adds, inc string, hi, lo uint8) (op, bool) {
	switch hi {
	case 0x0, 0x8, 0x9:
		if lo&8 != 0 {
			return op{}, false
		}
		n := uint64(1)
		if hi != 0 {
			n = 2 << (hi & 1)
		}
		return leaf(adds, 2, imm(n), r32(lo, rw)), true
	case 0x5, 0xd:
		return leaf(inc+".W", 2, imm(uint64(hi>>3)+1), r16(lo, rw)), true
	case 0x7, 0xf:
		if lo&8 != 0 {
			return op{}, false
		}
		return leaf(inc+".L", 2, imm(uint64(hi>>3)+1), r32(lo, rw)), true
	}
	return op{}, false
}

var shiftNames = [4][2]string{
	{"SHLL", "SHAL"},
	{"SHLR", "SHAR"},
	{"ROTXL", "ROTL"},
	{"ROTXR", "ROTR"},
}

var sizeSuffix = [4]byte{'B', 'W', 0, 'L'}

func decode1(b0, b1 uint8) (op, bool) {
	hi, lo := b1>>4, b1&0xf
	switch b0 {
	case 0x10, 0x11, 0x12, 0x13:
		sz := sizeSuffix[hi&3]
		if sz == 0 || (sz == 'L' && lo&8 != 0) {
			return op{}, false
		}
		mn := shiftNames[b0&3][hi>>3] + "." + string(sz)
		if hi&4 != 0 {
			return leaf(mn, 2, imm(2), rsz(sz, lo, rw)), true
		}
		return leaf(mn, 2, rsz(sz, lo, rw)), true
	case 0x14:
		return leaf("OR.B", 2, r8(hi, rd), r8(lo, rw)), true
	case 0x15:
		return leaf("XOR.B", 2, r8(hi, rd), r8(lo, rw)), true
	case 0x16:
		return leaf("AND.B", 2, r8(hi, rd), r8(lo, rw)), true
	case 0x17:
		return decode17(hi, lo)
	case 0x18:
		return leaf("SUB.B", 2, r8(hi, rd), r8(lo, rw)), true
	case 0x19:
		return leaf("SUB.W", 2, r16(hi, rd), r16(lo, rw)), true
	case 0x1a:
		if hi == 0 {
			return leaf("DEC.B", 2, r8(lo, rw)), true
		}
		if hi&8 != 0 && lo&8 == 0 {
			return leaf("SUB.L", 2, r32(hi, rd), r32(lo, rw)), true
		}
	case 0x1b:
		return incdec("SUBS", "DEC", hi, lo)
	case 0x1c:
		return leaf("CMP.B", 2, r8(hi, rd), r8(lo, rd)), true
	case 0x1d:
		return leaf("CMP.W", 2, r16(hi, rd), r16(lo, rd)), true
	case 0x1e:
		return leaf("SUBX", 2, r8(hi, rd), r8(lo, rw)), true
	case 0x1f:
		if hi == 0 {
			return leaf("DAS", 2, r8(lo, rw)), true
		}
		if hi&8 != 0 && lo&8 == 0 {
			return leaf("CMP.L", 2, r32(hi, rd), r32(lo, rd)), true
		}
	}
	return op{}, false
}

// decode17 covers NOT, EXTU, NEG and EXTS.
func decode17(hi, lo uint8) (op, bool) {
	var mn string
	switch hi {
	case 0x0:
		mn = "NOT.B"
	case 0x1:
		mn = "NOT.W"
	case 0x3:
		mn = "NOT.L"
	case 0x5:
		mn = "EXTU.W"
	case 0x7:
		mn = "EXTU.L"
	case 0x8:
		mn = "NEG.B"
	case 0x9:
		mn = "NEG.W"
	case 0xb:
		mn = "NEG.L"
	case 0xd:
		mn = "EXTS.W"
	case 0xf:
		mn = "EXTS.L"
	default:
		return op{}, false
	}
	sz := mn[len(mn)-1]
	if sz == 'L' && lo&8 != 0 {
		return op{}, false
	}
	return leaf(mn, 2, rsz(sz, lo, rw)), true
}

func decode5(c *disasm.Cursor, b0, b1 uint8) (op, bool) {
	hi, lo := b1>>4, b1&0xf
	pc := c.PC()
	switch b0 {
	case 0x50:
		return leaf("MULXU.B", 2, r8(hi, rd), r16(lo, rw)), true
	case 0x51:
		return leaf("DIVXU.B", 2, r8(hi, rd), r16(lo, rw)), true
	case 0x52:
		if lo&8 == 0 {
			return leaf("MULXU.W", 2, r16(hi, rd), r32(lo, rw)), true
		}
	case 0x53:
		if lo&8 == 0 {
			return leaf("DIVXU.W", 2, r16(hi, rd), r32(lo, rw)), true
		}
	case 0x54:
		if b1 == 0x70 {
			return leaf("RTS", 2).flow(disasm.Ret, disasm.None), true
		}
	case 0x55:
		t := rel(pc, 2, int64(int8(b1)))
		return leaf("BSR", 2, pcrel(t)).flow(disasm.Call, disasm.At(t)), true
	case 0x56:
		if b1 == 0x70 {
			return leaf("RTE", 2).flow(disasm.Rti, disasm.None), true
		}
	case 0x57:
		if b1&0xcf == 0 {
			return leaf("TRAPA", 2, imm(uint64(hi&3))).flow(disasm.Syscall, disasm.None), true
		}
	case 0x58:
		if lo == 0 {
			return branch(hi, 4, rel(pc, 4, int64(c.I16(2)))), true
		}
	case 0x59:
		if lo == 0 && hi&8 == 0 {
			return leaf("JMP", 2, ind(hi)).flow(disasm.JmpIndirect, disasm.None), true
		}
	case 0x5a:
		t := uint64(c.U32(0) & 0xffffff)
		return leaf("JMP", 4, abs24(uint32(t))).flow(disasm.Jmp, disasm.At(t)), true
	case 0x5b:
		return leaf("JMP", 2, memInd(b1)).flow(disasm.JmpIndirect, disasm.None), true
	case 0x5c:
		if b1 == 0 {
			t := rel(pc, 4, int64(c.I16(2)))
			return leaf("BSR", 4, pcrel(t)).flow(disasm.Call, disasm.At(t)), true
		}
	case 0x5d:
		if lo == 0 && hi&8 == 0 {
			return leaf("JSR", 2, ind(hi)).flow(disasm.Call, disasm.None), true
		}
	case 0x5e:
		t := uint64(c.U32(0) & 0xffffff)
		return leaf("JSR", 4, abs24(uint32(t))).flow(disasm.Call, disasm.At(t)), true
	case 0x5f:
		return leaf("JSR", 2, memInd(b1)).flow(disasm.Call, disasm.None), true
	}
	return op{}, false
}

var bitRegNames = [4]string{"BSET", "BNOT", "BCLR", "BTST"}

func decode6(c *disasm.Cursor, b0, b1 uint8) (op, bool) {
	hi, lo := b1>>4, b1&0xf
	switch b0 {
	case 0x60, 0x61, 0x62:
		return leaf(bitRegNames[b0&3], 2, r8(hi, rd), r8(lo, rw)), true
	case 0x63:
		return leaf("BTST", 2, r8(hi, rd), r8(lo, rd)), true
	case 0x64:
		return leaf("OR.W", 2, r16(hi, rd), r16(lo, rw)), true
	case 0x65:
		return leaf("XOR.W", 2, r16(hi, rd), r16(lo, rw)), true
	case 0x66:
		return leaf("AND.W", 2, r16(hi, rd), r16(lo, rw)), true
	case 0x67:
		mn := "BST"
		if hi&8 != 0 {
			mn = "BIST"
		}
		return leaf(mn, 2, imm(uint64(hi&7)), r8(lo, rw)), true
	case 0x68, 0x69:
		sz := sizeOf(b0)
		mn := "MOV." + string(sz)
		if hi&8 == 0 {
			return leaf(mn, 2, ind(hi), rsz(sz, lo, wr)), true
		}
		return leaf(mn, 2, rsz(sz, lo, rd), ind(hi)), true
	case 0x6a:
		return decode6A(c, hi, lo)
	case 0x6b:
		switch hi {
		case 0x0:
			return leaf("MOV.W", 4, abs16(c.U16(2)), r16(lo, wr)), true
		case 0x2:
			return leaf("MOV.W", 6, abs32(c.U32(2)), r16(lo, wr)), true
		case 0x8:
			return leaf("MOV.W", 4, r16(lo, rd), abs16(c.U16(2))), true
		case 0xa:
			return leaf("MOV.W", 6, r16(lo, rd), abs32(c.U32(2))), true
		}
	case 0x6c, 0x6d:
		return pushPop(sizeOf(b0), hi, lo, 2)
	case 0x6e, 0x6f:
		sz := sizeOf(b0)
		mn := "MOV." + string(sz)
		d := c.I16(2)
		if hi&8 == 0 {
			return leaf(mn, 4, disp16(hi, d), rsz(sz, lo, wr)), true
		}
		return leaf(mn, 4, rsz(sz, lo, rd), disp16(hi, d)), true
	}
	return op{}, false
}

// sizeOf picks B or W from the low bit of 68-6F and 78 sub-opcodes.
func sizeOf(b uint8) byte {
	if b&1 == 0 {
		return 'B'
	}
	return 'W'
}

// pushPop decodes @ERn+ / @-ERn moves. With the stack pointer as pointer
// register the word and long forms print as POP/PUSH; the pointer operand
// stays in the register sets.
func pushPop(sz byte, hi, lo uint8, size int) (op, bool) {
	if sz == 'L' && lo&8 != 0 {
		return op{}, false
	}
	ptr := hi & 7
	mn := "MOV." + string(sz)
	alias := ptr == sp && sz != 'B'
	if hi&8 == 0 {
		src := postInc(ptr)
		if alias {
			return leaf("POP."+string(sz), size, src.hidden(), rsz(sz, lo, wr)), true
		}
		return leaf(mn, size, src, rsz(sz, lo, wr)), true
	}
	dst := preDec(ptr)
	if alias {
		return leaf("PUSH."+string(sz), size, rsz(sz, lo, rd), dst.hidden()), true
	}
	return leaf(mn, size, rsz(sz, lo, rd), dst), true
}

func decode6A(c *disasm.Cursor, hi, lo uint8) (op, bool) {
	switch hi {
	case 0x0:
		return leaf("MOV.B", 4, abs16(c.U16(2)), r8(lo, wr)), true
	case 0x2:
		return leaf("MOV.B", 6, abs32(c.U32(2)), r8(lo, wr)), true
	case 0x4:
		return leaf("MOVFPE", 4, abs16(c.U16(2)), r8(lo, wr)), true
	case 0x8:
		return leaf("MOV.B", 4, r8(lo, rd), abs16(c.U16(2))), true
	case 0xa:
		return leaf("MOV.B", 6, r8(lo, rd), abs32(c.U32(2))), true
	case 0xc:
		return leaf("MOVTPE", 4, r8(lo, rd), abs16(c.U16(2))), true
	case 0x1:
		switch lo {
		case 0x0:
			return bitTest(c, 4, abs16(c.U16(2)))
		case 0x8:
			return bitWrite(c, 4, abs16(c.U16(2)))
		}
	case 0x3:
		switch lo {
		case 0x0:
			return bitTest(c, 6, abs32(c.U32(2)))
		case 0x8:
			return bitWrite(c, 6, abs32(c.U32(2)))
		}
	}
	return op{}, false
}

var bitLogicNames = [4][2]string{
	{"BOR", "BIOR"},
	{"BXOR", "BIXOR"},
	{"BAND", "BIAND"},
	{"BLD", "BILD"},
}

// bitTest decodes the flag-reading bit instructions whose opcode pair sits
// at off, applied to memory operand mem.
func bitTest(c *disasm.Cursor, off int, mem arg) (op, bool) {
	b2, b3 := c.U8(off), c.U8(off+1)
	size := off + 2
	switch b2 {
	case 0x63:
		if b3&0xf == 0 {
			return leaf("BTST", size, r8(b3>>4, rd), mem), true
		}
	case 0x73:
		if b3&0x8f == 0 {
			return leaf("BTST", size, imm(uint64(b3>>4)), mem), true
		}
	case 0x74, 0x75, 0x76, 0x77:
		if b3&0xf == 0 {
			return leaf(bitLogicNames[b2-0x74][b3>>7], size, imm(uint64(b3>>4&7)), mem), true
		}
	}
	return op{}, false
}

// bitWrite decodes the memory-modifying bit instructions.
func bitWrite(c *disasm.Cursor, off int, mem arg) (op, bool) {
	b2, b3 := c.U8(off), c.U8(off+1)
	size := off + 2
	switch b2 {
	case 0x60, 0x61, 0x62:
		if b3&0xf == 0 {
			return leaf(bitRegNames[b2&3], size, r8(b3>>4, rd), mem), true
		}
	case 0x70, 0x71, 0x72:
		if b3&0x8f == 0 {
			return leaf(bitRegNames[b2&3], size, imm(uint64(b3>>4)), mem), true
		}
	case 0x67:
		if b3&0xf == 0 {
			mn := "BST"
			if b3&0x80 != 0 {
				mn = "BIST"
			}
			return leaf(mn, size, imm(uint64(b3>>4&7)), mem), true
		}
	}
	return op{}, false
}

var immOpNames = [7]string{"MOV", "ADD", "CMP", "SUB", "OR", "XOR", "AND"}

func immAccess(n uint8) access {
	switch n {
	case 0:
		return wr
	case 2:
		return rd
	}
	return rw
}

func decode7(c *disasm.Cursor, b0, b1 uint8) (op, bool) {
	hi, lo := b1>>4, b1&0xf
	switch b0 {
	case 0x70, 0x71, 0x72:
		if hi&8 == 0 {
			return leaf(bitRegNames[b0&3], 2, imm(uint64(hi)), r8(lo, rw)), true
		}
	case 0x73:
		if hi&8 == 0 {
			return leaf("BTST", 2, imm(uint64(hi)), r8(lo, rd)), true
		}
	case 0x74, 0x75, 0x76, 0x77:
		return leaf(bitLogicNames[b0-0x74][hi>>3], 2, imm(uint64(hi&7)), r8(lo, rd)), true
	case 0x78:
		if lo != 0 || hi&8 != 0 {
			return op{}, false
		}
		b2, b3 := c.U8(2), c.U8(3)
		if b2 != 0x6a && b2 != 0x6b {
			return op{}, false
		}
		sz := sizeOf(b2)
		mn := "MOV." + string(sz)
		d := c.I32(4)
		switch b3 >> 4 {
		case 0x2:
			return leaf(mn, 8, disp32(hi, d), rsz(sz, b3, wr)), true
		case 0xa:
			return leaf(mn, 8, rsz(sz, b3, rd), disp32(hi, d)), true
		}
	case 0x79:
		if hi <= 6 {
			return leaf(immOpNames[hi]+".W", 4, imm(uint64(c.U16(2))), r16(lo, immAccess(hi))), true
		}
	case 0x7a:
		if hi <= 6 && lo&8 == 0 {
			return leaf(immOpNames[hi]+".L", 6, imm(uint64(c.U32(2))), r32(lo, immAccess(hi))), true
		}
	case 0x7b:
		if c.U16(2) != 0x598f {
			return op{}, false
		}
		switch b1 {
		case 0x5c:
			return leaf("EEPMOV.B", 4), true
		case 0xd4:
			return leaf("EEPMOV.W", 4), true
		}
	case 0x7c:
		if lo == 0 && hi&8 == 0 {
			return bitTest(c, 2, ind(hi))
		}
	case 0x7d:
		if lo == 0 && hi&8 == 0 {
			return bitWrite(c, 2, ind(hi))
		}
	case 0x7e:
		return bitTest(c, 2, abs8(b1))
	case 0x7f:
		return bitWrite(c, 2, abs8(b1))
	}
	return op{}, false
}

// decode01 handles the 01xx prefix page: long moves, control register
// memory transfers, LDM/STM and the H8S/2600 extensions.
func decode01(c *disasm.Cursor, b1 uint8) (op, bool) {
	switch b1 {
	case 0x00:
		return decodeMovL(c)
	case 0x10, 0x20, 0x30:
		return decodeLdmStm(c, b1>>4+1)
	case 0x40:
		return decodeCtlMem(c, ccr)
	case 0x41:
		b2, b3 := c.U8(2), c.U8(3)
		switch b2 {
		case 0x04:
			return leaf("ORC", 4, imm(uint64(b3)), ctl(exr, rw)), true
		case 0x05:
			return leaf("XORC", 4, imm(uint64(b3)), ctl(exr, rw)), true
		case 0x06:
			return leaf("ANDC", 4, imm(uint64(b3)), ctl(exr, rw)), true
		case 0x07:
			return leaf("LDC.B", 4, imm(uint64(b3)), ctl(exr, wr)), true
		}
		return decodeCtlMem(c, exr)
	case 0x60:
		b2, b3 := c.U8(2), c.U8(3)
		if b2 == 0x6d && b3&0x88 == 0 {
			return leaf("MAC", 4, postInc(b3>>4), postInc(b3)), true
		}
	case 0x80:
		return leaf("SLEEP", 2), true
	case 0xa0:
		return leaf("CLRMAC", 2), true
	case 0xc0, 0xd0:
		b2, b3 := c.U8(2), c.U8(3)
		hi, lo := b3>>4, b3&0xf
		mn := "MULXS"
		if b1 == 0xd0 {
			mn = "DIVXS"
		}
		switch {
		case b2 == 0x50 && b1 == 0xc0, b2 == 0x51 && b1 == 0xd0:
			return leaf(mn+".B", 4, r8(hi, rd), r16(lo, rw)), true
		case b2 == 0x52 && b1 == 0xc0, b2 == 0x53 && b1 == 0xd0:
			if lo&8 == 0 {
				return leaf(mn+".W", 4, r16(hi, rd), r32(lo, rw)), true
			}
		}
	case 0xe0:
		b2, b3 := c.U8(2), c.U8(3)
		if b2 == 0x7b && b3&0x8f == 0x0c {
			return leaf("TAS", 4, ind(b3>>4)), true
		}
	case 0xf0:
		b2, b3 := c.U8(2), c.U8(3)
		if b2 >= 0x64 && b2 <= 0x66 && b3&0x88 == 0 {
			mn := [3]string{"OR.L", "XOR.L", "AND.L"}[b2-0x64]
			return leaf(mn, 4, r32(b3>>4, rd), r32(b3, rw)), true
		}
	}
	return op{}, false
}

func decodeMovL(c *disasm.Cursor) (op, bool) {
	b2, b3 := c.U8(2), c.U8(3)
	hi, lo := b3>>4, b3&0xf
	if lo&8 != 0 {
		return op{}, false
	}
	switch b2 {
	case 0x69:
		if hi&8 == 0 {
			return leaf("MOV.L", 4, ind(hi), r32(lo, wr)), true
		}
		return leaf("MOV.L", 4, r32(lo, rd), ind(hi)), true
	case 0x6b:
		switch hi {
		case 0x0:
			return leaf("MOV.L", 6, abs16(c.U16(4)), r32(lo, wr)), true
		case 0x2:
			return leaf("MOV.L", 8, abs32(c.U32(4)), r32(lo, wr)), true
		case 0x8:
			return leaf("MOV.L", 6, r32(lo, rd), abs16(c.U16(4))), true
		case 0xa:
			return leaf("MOV.L", 8, r32(lo, rd), abs32(c.U32(4))), true
		}
	case 0x6d:
		return pushPop('L', hi, lo, 4)
	case 0x6f:
		d := c.I16(4)
		if hi&8 == 0 {
			return leaf("MOV.L", 6, disp16(hi, d), r32(lo, wr)), true
		}
		return leaf("MOV.L", 6, r32(lo, rd), disp16(hi, d)), true
	case 0x78:
		if lo != 0 || hi&8 != 0 || c.U8(4) != 0x6b {
			return op{}, false
		}
		b5 := c.U8(5)
		if b5&8 != 0 {
			return op{}, false
		}
		d := c.I32(6)
		switch b5 >> 4 {
		case 0x2:
			return leaf("MOV.L", 10, disp32(hi, d), r32(b5, wr)), true
		case 0xa:
			return leaf("MOV.L", 10, r32(b5, rd), disp32(hi, d)), true
		}
	}
	return op{}, false
}

// decodeLdmStm decodes LDM.L/STM.L over count consecutive registers. LDM
// encodes the last register of the list, STM the first.
func decodeLdmStm(c *disasm.Cursor, count uint8) (op, bool) {
	b2, b3 := c.U8(2), c.U8(3)
	hi, n := b3>>4, b3&0xf
	if b2 != 0x6d || n&8 != 0 {
		return op{}, false
	}
	align := uint8(4)
	if count == 2 {
		align = 2
	}
	switch hi {
	case 0x7:
		if n+1 < count {
			return op{}, false
		}
		first := n + 1 - count
		if first%align != 0 {
			return op{}, false
		}
		return leaf("LDM.L", 4, postInc(sp), regList(first, count, wr)), true
	case 0xf:
		if n%align != 0 || n+count > 8 {
			return op{}, false
		}
		return leaf("STM.L", 4, regList(n, count, rd), preDec(sp)), true
	}
	return op{}, false
}

// decodeCtlMem decodes LDC.W/STC.W between a control register and memory.
func decodeCtlMem(c *disasm.Cursor, reg uint8) (op, bool) {
	b2, b3 := c.U8(2), c.U8(3)
	hi := b3 >> 4
	load := hi&8 == 0
	mem := func(size int, m arg) (op, bool) {
		if load {
			return leaf("LDC.W", size, m, ctl(reg, wr)), true
		}
		return leaf("STC.W", size, ctl(reg, rd), m), true
	}
	switch b2 {
	case 0x69:
		if b3&0xf == 0 {
			return mem(4, ind(hi))
		}
	case 0x6b:
		switch b3 {
		case 0x00, 0x80:
			return mem(6, abs16(c.U16(4)))
		case 0x20, 0xa0:
			return mem(8, abs32(c.U32(4)))
		}
	case 0x6d:
		if b3&0xf == 0 {
			if load {
				return mem(4, postInc(hi))
			}
			return mem(4, preDec(hi))
		}
	case 0x6f:
		if b3&0xf == 0 {
			return mem(6, disp16(hi, c.I16(4)))
		}
	case 0x78:
		if b3&0x8f != 0 || c.U8(4) != 0x6b {
			return op{}, false
		}
		b5 := c.U8(5)
		if b5 != 0x20 && b5 != 0xa0 {
			return op{}, false
		}
		load = b5 == 0x20
		return mem(10, disp32(hi, c.I32(6)))
	}
	return op{}, false
}
