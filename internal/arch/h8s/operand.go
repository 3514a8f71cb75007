package h8s

import (
	"tracedis/internal/disasm"
)

type mode uint8

const (
	mReg8    mode = iota + 1 // R0H..R7L
	mReg16                   // R0..E7
	mReg32                   // ER0..ER7
	mInd                     // @ERn
	mDisp16                  // @(d:16,ERn)
	mDisp32                  // @(d:32,ERn)
	mPostInc                 // @ERn+
	mPreDec                  // @-ERn
	mAbs8                    // @aa:8
	mAbs16                   // @aa:16
	mAbs24                   // @aa:24
	mAbs32                   // @aa:32
	mMemInd                  // @@aa:8
	mImm                     // #xx
	mPCRel                   // branch destination
	mCtl                     // CCR, EXR, MACH, MACL
	mRegList                 // (ERn-ERm)
)

type access uint8

const (
	rd access = 1 << iota
	wr
	rw = rd | wr
)

var (
	reg8Names  = [16]string{"R0H", "R1H", "R2H", "R3H", "R4H", "R5H", "R6H", "R7H", "R0L", "R1L", "R2L", "R3L", "R4L", "R5L", "R6L", "R7L"}
	reg16Names = [16]string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7", "E0", "E1", "E2", "E3", "E4", "E5", "E6", "E7"}
	reg32Names = [8]string{"ER0", "ER1", "ER2", "ER3", "ER4", "ER5", "ER6", "SP"}
	ctlNames   = [4]string{"CCR", "EXR", "MACH", "MACL"}
)

const (
	ccr uint8 = iota
	exr
	mach
	macl
)

// sp is the register number of ER7, the stack pointer.
const sp = 7

// arg is an operand descriptor: cheap to build, rendered to tokens only by
// Disassemble.
type arg struct {
	m    mode
	reg  uint8
	val  uint64 // immediate, displacement, effective address or list length
	acc  access
	hide bool // contributes to register sets but is not printed (PUSH/POP)
}

// op is a leaf of the opcode tree.
type op struct {
	mn   string
	size int
	typ  disasm.Type
	dest disasm.Target
	args [3]arg
	n    int
}

func leaf(mn string, size int, args ...arg) op {
	o := op{mn: mn, size: size}
	o.n = copy(o.args[:], args)
	return o
}

func (o op) flow(t disasm.Type, dest disasm.Target) op {
	o.typ = t
	o.dest = dest
	return o
}

func r8(n uint8, a access) arg  { return arg{m: mReg8, reg: n & 0xf, acc: a} }
func r16(n uint8, a access) arg { return arg{m: mReg16, reg: n & 0xf, acc: a} }
func r32(n uint8, a access) arg { return arg{m: mReg32, reg: n & 7, acc: a} }

// rsz returns the general register operand for an operand size letter.
func rsz(sz byte, n uint8, a access) arg {
	switch sz {
	case 'B':
		return r8(n, a)
	case 'W':
		return r16(n, a)
	}
	return r32(n, a)
}

func ind(n uint8) arg             { return arg{m: mInd, reg: n & 7} }
func postInc(n uint8) arg         { return arg{m: mPostInc, reg: n & 7} }
func preDec(n uint8) arg          { return arg{m: mPreDec, reg: n & 7} }
func disp16(n uint8, d int16) arg { return arg{m: mDisp16, reg: n & 7, val: uint64(int64(d))} }
func disp32(n uint8, d int32) arg { return arg{m: mDisp32, reg: n & 7, val: uint64(int64(d))} }

// abs8 addresses the top 256 bytes of the address space.
func abs8(aa uint8) arg { return arg{m: mAbs8, val: 0xffffff00 | uint64(aa)} }

// abs16 is sign-extended into the 32-bit address space.
func abs16(aa uint16) arg { return arg{m: mAbs16, val: uint64(uint32(int32(int16(aa))))} }
func abs24(aa uint32) arg { return arg{m: mAbs24, val: uint64(aa & 0xffffff)} }
func abs32(aa uint32) arg { return arg{m: mAbs32, val: uint64(aa)} }

func memInd(aa uint8) arg { return arg{m: mMemInd, val: uint64(aa)} }
func imm(v uint64) arg    { return arg{m: mImm, val: v} }
func pcrel(t uint64) arg  { return arg{m: mPCRel, val: t} }

func ctl(n uint8, a access) arg { return arg{m: mCtl, reg: n, acc: a} }

func regList(first, count uint8, a access) arg {
	return arg{m: mRegList, reg: first, val: uint64(count), acc: a}
}

func (a arg) hidden() arg {
	a.hide = true
	return a
}

func (a arg) regName() string {
	switch a.m {
	case mReg8:
		return reg8Names[a.reg]
	case mReg16:
		return reg16Names[a.reg]
	case mCtl:
		return ctlNames[a.reg]
	}
	return reg32Names[a.reg&7]
}

// use records the registers the operand reads and writes.
func (a arg) use(inst *disasm.Inst) {
	switch a.m {
	case mReg8, mReg16, mReg32, mCtl:
		if a.acc&rd != 0 {
			inst.Reads.Add(a.regName())
		}
		if a.acc&wr != 0 {
			inst.Writes.Add(a.regName())
		}
	case mInd, mDisp16, mDisp32:
		inst.Reads.Add(a.regName())
	case mPostInc, mPreDec:
		inst.Reads.Add(a.regName())
		inst.Writes.Add(a.regName())
	case mRegList:
		for r := a.reg; r < a.reg+uint8(a.val); r++ {
			r32(r, a.acc).use(inst)
		}
	}
}

func (a arg) render(sym disasm.SymbolResolver) disasm.Operand {
	switch a.m {
	case mReg8, mReg16, mReg32, mCtl:
		return disasm.Operand{disasm.Reg(a.regName())}
	case mInd:
		return disasm.Operand{disasm.Punct("@"), disasm.Reg(a.regName())}
	case mPostInc:
		return disasm.Operand{disasm.Punct("@"), disasm.Reg(a.regName()), disasm.Punct("+")}
	case mPreDec:
		return disasm.Operand{disasm.Punct("@-"), disasm.Reg(a.regName())}
	case mDisp16, mDisp32:
		suffix := ":16,"
		if a.m == mDisp32 {
			suffix = ":32,"
		}
		return disasm.Operand{
			disasm.Punct("@("),
			disasm.Off(Format.Signed(int64(a.val)), a.val),
			disasm.Punct(suffix),
			disasm.Reg(a.regName()),
			disasm.Punct(")"),
		}
	case mAbs8, mAbs16, mAbs24, mAbs32:
		return disasm.Operand{
			disasm.Punct("@"),
			disasm.AddrTok(a.val, Format, sym),
			disasm.Punct(absSuffix[a.m-mAbs8]),
		}
	case mMemInd:
		return disasm.Operand{
			disasm.Punct("@@"),
			{Kind: disasm.TokAddress, Text: Format.Number(a.val), Value: a.val, HasValue: true},
			disasm.Punct(":8"),
		}
	case mImm:
		return disasm.Operand{disasm.Punct("#"), disasm.Num(Format.Number(a.val), a.val)}
	case mPCRel:
		return disasm.Operand{disasm.AddrTok(a.val, Format, sym)}
	case mRegList:
		return disasm.Operand{
			disasm.Punct("("),
			disasm.Reg(reg32Names[a.reg]),
			disasm.Punct("-"),
			disasm.Reg(reg32Names[a.reg+uint8(a.val)-1]),
			disasm.Punct(")"),
		}
	}
	return nil
}

var absSuffix = [4]string{":8", ":16", ":24", ":32"}
