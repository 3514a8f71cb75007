package h8s

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tracedis/internal/disasm"
)

func reader(pc uint64, code ...byte) *disasm.Reader {
	return disasm.NewReader(code, pc, Order)
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		name   string
		pc     uint64
		code   []byte
		text   string
		len    int
		typ    disasm.Type
		target disasm.Target
	}{
		{name: "nop", code: []byte{0x00, 0x00}, text: "NOP", len: 2, typ: disasm.Other},
		{name: "bsr d:8", pc: 0x2000, code: []byte{0x55, 0x0a}, text: "BSR H'200C", len: 2, typ: disasm.Call, target: disasm.At(0x200c)},
		{name: "bra", pc: 0x1000, code: []byte{0x40, 0x06}, text: "BRA H'1008", len: 2, typ: disasm.Jmp, target: disasm.At(0x1008)},
		{name: "brn never branches", pc: 0x1000, code: []byte{0x41, 0x06}, text: "BRN H'1008", len: 2, typ: disasm.Other},
		{name: "beq backwards", pc: 0x1000, code: []byte{0x47, 0xfe}, text: "BEQ H'1000", len: 2, typ: disasm.Jcc, target: disasm.At(0x1000)},
		{name: "beq d:16", pc: 0x1000, code: []byte{0x58, 0x70, 0x00, 0x10}, text: "BEQ H'1014", len: 4, typ: disasm.Jcc, target: disasm.At(0x1014)},
		{name: "bsr d:16", pc: 0x1000, code: []byte{0x5c, 0x00, 0xff, 0xfc}, text: "BSR H'1000", len: 4, typ: disasm.Call, target: disasm.At(0x1000)},
		{name: "rts", code: []byte{0x54, 0x70}, text: "RTS", len: 2, typ: disasm.Ret},
		{name: "rte", code: []byte{0x56, 0x70}, text: "RTE", len: 2, typ: disasm.Rti},
		{name: "trapa", code: []byte{0x57, 0x30}, text: "TRAPA #3", len: 2, typ: disasm.Syscall},
		{name: "jmp abs24", code: []byte{0x5a, 0x01, 0x23, 0x45}, text: "JMP @H'12345:24", len: 4, typ: disasm.Jmp, target: disasm.At(0x12345)},
		{name: "jmp register", code: []byte{0x59, 0x20}, text: "JMP @ER2", len: 2, typ: disasm.JmpIndirect},
		{name: "jmp memory indirect", code: []byte{0x5b, 0x10}, text: "JMP @@H'10:8", len: 2, typ: disasm.JmpIndirect},
		{name: "jsr register", code: []byte{0x5d, 0x30}, text: "JSR @ER3", len: 2, typ: disasm.Call},
		{name: "jsr abs24", code: []byte{0x5e, 0x00, 0x40, 0x00}, text: "JSR @H'4000:24", len: 4, typ: disasm.Call, target: disasm.At(0x4000)},
		{name: "mov.b reg", code: []byte{0x0c, 0x8a}, text: "MOV.B R0L, R2L", len: 2},
		{name: "mov.w imm", code: []byte{0x79, 0x00, 0x12, 0x34}, text: "MOV.W #H'1234, R0", len: 4},
		{name: "mov.l imm", code: []byte{0x7a, 0x00, 0x00, 0x01, 0x00, 0x00}, text: "MOV.L #H'10000, ER0", len: 6},
		{name: "mov.w abs32", code: []byte{0x6b, 0x20, 0x00, 0x12, 0x34, 0x56}, text: "MOV.W @H'123456:32, R0", len: 6},
		{name: "mov.w disp16", code: []byte{0x6f, 0x12, 0xff, 0xf0}, text: "MOV.W @(-H'10:16,ER1), R2", len: 4},
		{name: "mov.l disp32", code: []byte{0x01, 0x00, 0x78, 0x10, 0x6b, 0x22, 0x00, 0x00, 0x01, 0x00}, text: "MOV.L @(H'100:32,ER1), ER2", len: 10},
		{name: "mov.b disp32 store", code: []byte{0x78, 0x30, 0x6a, 0xa4, 0x00, 0x00, 0x00, 0x08}, text: "MOV.B R4H, @(8:32,ER3)", len: 8},
		{name: "push.w", code: []byte{0x6d, 0xf2}, text: "PUSH.W R2", len: 2},
		{name: "pop.w", code: []byte{0x6d, 0x72}, text: "POP.W R2", len: 2},
		{name: "push.l", code: []byte{0x01, 0x00, 0x6d, 0xf2}, text: "PUSH.L ER2", len: 4},
		{name: "mov.b predec sp stays generic", code: []byte{0x6c, 0xf2}, text: "MOV.B R2H, @-SP", len: 2},
		{name: "stm", code: []byte{0x01, 0x10, 0x6d, 0xf0}, text: "STM.L (ER0-ER1), @-SP", len: 4},
		{name: "ldm", code: []byte{0x01, 0x30, 0x6d, 0x73}, text: "LDM.L @SP+, (ER0-ER3)", len: 4},
		{name: "sleep", code: []byte{0x01, 0x80}, text: "SLEEP", len: 2},
		{name: "eepmov.b", code: []byte{0x7b, 0x5c, 0x59, 0x8f}, text: "EEPMOV.B", len: 4},
		{name: "btst indirect", code: []byte{0x7c, 0x30, 0x73, 0x20}, text: "BTST #2, @ER3", len: 4},
		{name: "bset abs8", code: []byte{0x7f, 0x80, 0x70, 0x10}, text: "BSET #1, @H'FFFFFF80:8", len: 4},
		{name: "bset abs16", code: []byte{0x6a, 0x18, 0x12, 0x34, 0x70, 0x30}, text: "BSET #3, @H'1234:16", len: 6},
		{name: "shlr.b", code: []byte{0x11, 0x00}, text: "SHLR.B R0H", len: 2},
		{name: "rotl.w by 2", code: []byte{0x12, 0xd5}, text: "ROTL.W #2, R5", len: 2},
		{name: "not.l", code: []byte{0x17, 0x30}, text: "NOT.L ER0", len: 2},
		{name: "adds #4", code: []byte{0x0b, 0x97}, text: "ADDS #4, SP", len: 2},
		{name: "dec.w #2", code: []byte{0x1b, 0xd3}, text: "DEC.W #2, R3", len: 2},
		{name: "mulxs.w", code: []byte{0x01, 0xc0, 0x52, 0x31}, text: "MULXS.W R3, ER1", len: 4},
		{name: "and.l reg", code: []byte{0x01, 0xf0, 0x66, 0x12}, text: "AND.L ER1, ER2", len: 4},
		{name: "stc exr", code: []byte{0x02, 0x13}, text: "STC.B EXR, R3H", len: 2},
		{name: "ldc.w disp16", code: []byte{0x01, 0x40, 0x6f, 0x30, 0x00, 0x04}, text: "LDC.W @(4:16,ER3), CCR", len: 6},
		{name: "andc exr", code: []byte{0x01, 0x41, 0x06, 0xf8}, text: "ANDC #H'F8, EXR", len: 4},
		{name: "cmp.b imm", code: []byte{0xa8, 0x07}, text: "CMP.B #7, R0L", len: 2},
		{name: "mov.b abs8 load", code: []byte{0x2a, 0x12}, text: "MOV.B @H'FFFFFF12:8, R2L", len: 2},
	}

	var d Decoder
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reader(tt.pc, tt.code...)
			inst, err := d.Disassemble(r, nil)
			if err != nil {
				t.Fatalf("Disassemble(% x) error: %v", tt.code, err)
			}
			if got := inst.Text(); got != tt.text {
				t.Errorf("text = %q, want %q", got, tt.text)
			}
			if inst.Len != tt.len {
				t.Errorf("len = %d, want %d", inst.Len, tt.len)
			}
			if inst.Type != tt.typ {
				t.Errorf("type = %v, want %v", inst.Type, tt.typ)
			}
			if inst.Target != tt.target {
				t.Errorf("target = %+v, want %+v", inst.Target, tt.target)
			}
			if got := d.Length(r); got != tt.len {
				t.Errorf("Length = %d, want %d", got, tt.len)
			}
			if got := d.Type(r); got != tt.typ {
				t.Errorf("Type = %v, want %v", got, tt.typ)
			}
			if got := d.Branch(r); got != tt.target {
				t.Errorf("Branch = %+v, want %+v", got, tt.target)
			}
			if diff := cmp.Diff(tt.code[:tt.len], inst.Raw); diff != "" {
				t.Errorf("raw mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegisterSets(t *testing.T) {
	tests := []struct {
		name   string
		code   []byte
		reads  disasm.RegSet
		writes disasm.RegSet
	}{
		{name: "mov.b", code: []byte{0x0c, 0x8a}, reads: disasm.RegSet{"R0L"}, writes: disasm.RegSet{"R2L"}},
		{name: "add.w", code: []byte{0x09, 0x12}, reads: disasm.RegSet{"R1", "R2"}, writes: disasm.RegSet{"R2"}},
		{name: "cmp.w reads only", code: []byte{0x1d, 0x12}, reads: disasm.RegSet{"R1", "R2"}},
		{name: "push.w", code: []byte{0x6d, 0xf2}, reads: disasm.RegSet{"R2", "SP"}, writes: disasm.RegSet{"SP"}},
		{name: "pop.w", code: []byte{0x6d, 0x72}, reads: disasm.RegSet{"SP"}, writes: disasm.RegSet{"SP", "R2"}},
		{name: "mov.w predec generic", code: []byte{0x6d, 0xe2}, reads: disasm.RegSet{"R2", "ER6"}, writes: disasm.RegSet{"ER6"}},
		{name: "stm", code: []byte{0x01, 0x10, 0x6d, 0xf0}, reads: disasm.RegSet{"ER0", "ER1", "SP"}, writes: disasm.RegSet{"SP"}},
		{name: "ldm", code: []byte{0x01, 0x10, 0x6d, 0x71}, reads: disasm.RegSet{"SP"}, writes: disasm.RegSet{"SP", "ER0", "ER1"}},
		{name: "ldc ccr", code: []byte{0x03, 0x05}, reads: disasm.RegSet{"R5H"}, writes: disasm.RegSet{"CCR"}},
		{name: "jmp register", code: []byte{0x59, 0x20}, reads: disasm.RegSet{"ER2"}},
		{name: "nop", code: []byte{0x00, 0x00}},
	}

	var d Decoder
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := d.Disassemble(reader(0, tt.code...), nil)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.reads, inst.Reads); diff != "" {
				t.Errorf("reads (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.writes, inst.Writes); diff != "" {
				t.Errorf("writes (-want +got):\n%s", diff)
			}
		})
	}
}

// The PUSH/POP aliases must report the same register sets as the generic
// pre-decrement and post-increment moves through SP.
func TestPushPopAliasSets(t *testing.T) {
	var d Decoder
	for _, code := range [][]byte{
		{0x6d, 0xf2},
		{0x6d, 0x72},
		{0x01, 0x00, 0x6d, 0xf2},
		{0x01, 0x00, 0x6d, 0x72},
	} {
		inst, err := d.Disassemble(reader(0, code...), nil)
		if err != nil {
			t.Fatal(err)
		}
		if !inst.Reads.Has("SP") || !inst.Writes.Has("SP") {
			t.Errorf("% x: %s reads=%v writes=%v, want SP in both", code, inst.Text(), inst.Reads, inst.Writes)
		}
		if len(inst.Args) != 1 {
			t.Errorf("% x: %s has %d operands, want 1", code, inst.Text(), len(inst.Args))
		}
	}
}

func TestLabels(t *testing.T) {
	syms := disasm.SymbolFunc(func(addr uint64) (string, bool) {
		if addr == 0x200c {
			return "handler", true
		}
		return "", false
	})

	var d Decoder
	inst, err := d.Disassemble(reader(0x2000, 0x55, 0x0a), syms)
	if err != nil {
		t.Fatal(err)
	}
	want := []disasm.Operand{{{Kind: disasm.TokLabel, Text: "handler", Value: 0x200c, HasValue: true}}}
	if diff := cmp.Diff(want, inst.Args); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}

	inst, err = d.Disassemble(reader(0x3000, 0x55, 0x0a), syms)
	if err != nil {
		t.Fatal(err)
	}
	if k := inst.Args[0][0].Kind; k != disasm.TokAddress {
		t.Errorf("unknown target kind = %v, want ADDRESS", k)
	}
}

func TestUndecodable(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		cause error
	}{
		{name: "empty", code: nil, cause: disasm.ErrTruncated},
		{name: "half word", code: []byte{0x00}, cause: disasm.ErrTruncated},
		{name: "jmp abs24 short", code: []byte{0x5a, 0x01, 0x23}, cause: disasm.ErrTruncated},
		{name: "prefix only", code: []byte{0x01, 0x00}, cause: disasm.ErrTruncated},
		{name: "mov.l disp32 short", code: []byte{0x01, 0x00, 0x78, 0x10, 0x6b, 0x22, 0x00, 0x00}, cause: disasm.ErrTruncated},
		{name: "nop with operand", code: []byte{0x00, 0x01}, cause: disasm.ErrUnknownOpcode},
		{name: "misaligned ldm", code: []byte{0x01, 0x10, 0x6d, 0x72}, cause: disasm.ErrUnknownOpcode},
		{name: "bad eepmov", code: []byte{0x7b, 0x5c, 0x00, 0x00}, cause: disasm.ErrUnknownOpcode},
		{name: "shift size 2", code: []byte{0x10, 0x20}, cause: disasm.ErrUnknownOpcode},
	}

	var d Decoder
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reader(0x100, tt.code...)
			_, err := d.Disassemble(r, nil)
			if !errors.Is(err, disasm.ErrUndecodable) || !errors.Is(err, tt.cause) {
				t.Fatalf("error = %v, want %v wrapping %v", err, disasm.ErrUndecodable, tt.cause)
			}
			if n := d.Length(r); n != 0 {
				t.Errorf("Length = %d, want 0", n)
			}
			if typ := d.Type(r); typ != disasm.Other {
				t.Errorf("Type = %v, want OTHER", typ)
			}
			if b := d.Branch(r); b != disasm.None {
				t.Errorf("Branch = %+v, want none", b)
			}
		})
	}
}

// TestOpcodeSpace decodes every first word with a zero-padded tail and
// checks that the four entry points agree and that every shortened window
// is rejected.
func TestOpcodeSpace(t *testing.T) {
	var d Decoder
	buf := make([]byte, MaxLen)
	for w := 0; w <= 0xffff; w++ {
		binary.BigEndian.PutUint16(buf, uint16(w))
		r := reader(0x1000, buf...)

		inst, err := d.Disassemble(r, nil)
		n := d.Length(r)
		if err != nil {
			if !errors.Is(err, disasm.ErrUnknownOpcode) {
				t.Fatalf("%04x: error %v, want unknown opcode", w, err)
			}
			if n != 0 {
				t.Fatalf("%04x: Length = %d for undecodable word", w, n)
			}
			continue
		}
		if n != inst.Len || n < 2 || n > MaxLen || n%2 != 0 {
			t.Fatalf("%04x: Length = %d, Disassemble len = %d", w, n, inst.Len)
		}
		if typ := d.Type(r); typ != inst.Type {
			t.Fatalf("%04x %s: Type = %v, Disassemble type = %v", w, inst.Text(), typ, inst.Type)
		}
		if b := d.Branch(r); b != inst.Target {
			t.Fatalf("%04x %s: Branch = %+v, Disassemble target = %+v", w, inst.Text(), b, inst.Target)
		}
		if inst.Type == disasm.Jcc && !inst.Target.Valid {
			t.Fatalf("%04x %s: conditional branch without target", w, inst.Text())
		}
		for k := 0; k < n; k++ {
			if got := d.Length(reader(0x1000, buf[:k]...)); got != 0 {
				t.Fatalf("%04x %s: Length over %d bytes = %d, want 0", w, inst.Text(), k, got)
			}
		}
	}
}

func TestConcurrentDecoding(t *testing.T) {
	var d Decoder
	code := []byte{0x01, 0x00, 0x78, 0x10, 0x6b, 0x22, 0x00, 0x00, 0x01, 0x00}
	want, err := d.Disassemble(reader(0, code...), nil)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := d.Disassemble(reader(0, code...), nil)
				if err != nil {
					t.Error(err)
					return
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("concurrent decode differs:\n%s", diff)
					return
				}
			}
		}()
	}
	wg.Wait()
}
